package ratelimit

import "github.com/danielgtaylor/huma/v2"

// Scope names a throttle bucket. Each scope has its own limit, window and key
// prefix in the Policy.
type Scope string

const (
	// ScopeAnon applies to unauthenticated clients only.
	ScopeAnon Scope = "anon"
	// ScopeUser applies per user when authenticated, per client otherwise.
	ScopeUser Scope = "user"
	// ScopeLogin guards credential exchange.
	ScopeLogin Scope = "login"
	// ScopeLow is the tight daily budget for key material.
	ScopeLow Scope = "low"
)

// MetadataKey is the key used to store rate limit config in operation metadata.
const MetadataKey = "rateLimit"

// EndpointConfig lists the scopes an operation is throttled under.
// Attach it to a Huma operation via the Metadata field.
type EndpointConfig struct {
	Scopes []Scope
}

// ScopeResolver determines which scopes apply to a given request.
type ScopeResolver interface {
	Resolve(ctx huma.Context) []Scope
}

// OperationScopeResolver reads scopes from operation metadata.
// Operations without an EndpointConfig resolve to no scopes and are not throttled.
type OperationScopeResolver struct{}

// NewOperationScopeResolver creates a new operation-aware scope resolver.
func NewOperationScopeResolver() *OperationScopeResolver {
	return &OperationScopeResolver{}
}

// Resolve returns the scopes configured on the request's operation.
func (r *OperationScopeResolver) Resolve(ctx huma.Context) []Scope {
	cfg := GetEndpointConfig(ctx)
	if cfg == nil {
		return nil
	}

	return cfg.Scopes
}

// GetEndpointConfig extracts the EndpointConfig from operation metadata, if present.
func GetEndpointConfig(ctx huma.Context) *EndpointConfig {
	op := ctx.Operation()
	if op == nil || op.Metadata == nil {
		return nil
	}

	cfg, ok := op.Metadata[MetadataKey].(EndpointConfig)
	if !ok {
		return nil
	}

	return &cfg
}

// Metadata returns operation metadata that throttles the operation under scopes.
func Metadata(scopes ...Scope) map[string]any {
	return map[string]any{MetadataKey: EndpointConfig{Scopes: scopes}}
}
