package ratelimit_test

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"mime/multipart"
	"net/url"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/persona-api/internal/ratelimit"
	"github.com/stretchr/testify/assert"
)

var errMultipartNotSupported = errors.New("multipart not supported in mock")

// mockHumaContext implements huma.Context for testing scope resolution.
type mockHumaContext struct {
	operation *huma.Operation
}

func (m *mockHumaContext) Operation() *huma.Operation {
	return m.operation
}
func (m *mockHumaContext) Context() context.Context          { return context.Background() }
func (m *mockHumaContext) TLS() *tls.ConnectionState         { return nil }
func (m *mockHumaContext) Version() huma.ProtoVersion        { return huma.ProtoVersion{} }
func (m *mockHumaContext) Method() string                    { return "" }
func (m *mockHumaContext) Host() string                      { return "" }
func (m *mockHumaContext) RemoteAddr() string                { return "" }
func (m *mockHumaContext) URL() url.URL                      { return url.URL{} }
func (m *mockHumaContext) Param(_ string) string             { return "" }
func (m *mockHumaContext) Query(_ string) string             { return "" }
func (m *mockHumaContext) Header(_ string) string            { return "" }
func (m *mockHumaContext) EachHeader(_ func(string, string)) {}
func (m *mockHumaContext) BodyReader() io.Reader             { return nil }
func (m *mockHumaContext) GetMultipartForm() (*multipart.Form, error) {
	return nil, errMultipartNotSupported
}
func (m *mockHumaContext) SetReadDeadline(_ time.Time) error { return nil }
func (m *mockHumaContext) SetStatus(_ int)                   {}
func (m *mockHumaContext) Status() int                       { return 0 }
func (m *mockHumaContext) AppendHeader(_, _ string)          {}
func (m *mockHumaContext) SetHeader(_, _ string)             {}
func (m *mockHumaContext) BodyWriter() io.Writer             { return nil }

func TestOperationScopeResolver_Resolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		operation      *huma.Operation
		expectedScopes []ratelimit.Scope
	}{
		{
			name:           "no operation resolves to no scopes",
			operation:      nil,
			expectedScopes: nil,
		},
		{
			name:           "operation without metadata is not throttled",
			operation:      &huma.Operation{},
			expectedScopes: nil,
		},
		{
			name: "metadata under another key is ignored",
			operation: &huma.Operation{
				Metadata: map[string]any{"other": ratelimit.EndpointConfig{Scopes: []ratelimit.Scope{ratelimit.ScopeLow}}},
			},
			expectedScopes: nil,
		},
		{
			name: "wrong metadata type is ignored",
			operation: &huma.Operation{
				Metadata: map[string]any{ratelimit.MetadataKey: "low"},
			},
			expectedScopes: nil,
		},
		{
			name:           "single scope",
			operation:      &huma.Operation{Metadata: ratelimit.Metadata(ratelimit.ScopeAnon)},
			expectedScopes: []ratelimit.Scope{ratelimit.ScopeAnon},
		},
		{
			name:           "scopes keep their order",
			operation:      &huma.Operation{Metadata: ratelimit.Metadata(ratelimit.ScopeUser, ratelimit.ScopeLow)},
			expectedScopes: []ratelimit.Scope{ratelimit.ScopeUser, ratelimit.ScopeLow},
		},
	}

	resolver := ratelimit.NewOperationScopeResolver()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			scopes := resolver.Resolve(&mockHumaContext{operation: tt.operation})

			assert.Equal(t, tt.expectedScopes, scopes)
		})
	}
}

func TestGetEndpointConfig(t *testing.T) {
	t.Parallel()

	t.Run("returns nil without metadata", func(t *testing.T) {
		t.Parallel()

		assert.Nil(t, ratelimit.GetEndpointConfig(&mockHumaContext{operation: &huma.Operation{}}))
	})

	t.Run("returns configured scopes", func(t *testing.T) {
		t.Parallel()

		ctx := &mockHumaContext{operation: &huma.Operation{Metadata: ratelimit.Metadata(ratelimit.ScopeLogin)}}

		cfg := ratelimit.GetEndpointConfig(ctx)

		if assert.NotNil(t, cfg) {
			assert.Equal(t, []ratelimit.Scope{ratelimit.ScopeLogin}, cfg.Scopes)
		}
	})
}
