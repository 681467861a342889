package handlers

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/persona-api/internal/ratelimit"
)

// Middleware is a per-operation Huma middleware.
type Middleware = func(ctx huma.Context, next func(huma.Context))

// RegisterRoutes registers account and persona routes. tokenLimit guards token
// issuance. The other throttles are declared as scopes in operation metadata
// and enforced by the API-wide policy middleware.
func RegisterRoutes(
	api huma.API,
	accountHandler *AccountHandler,
	personaHandler *PersonaHandler,
	tokenLimit Middleware,
) {
	huma.Register(api, huma.Operation{
		OperationID:   "register-user",
		Method:        http.MethodPost,
		Path:          "/user/register",
		Summary:       "Register user",
		Tags:          []string{"Users"},
		DefaultStatus: http.StatusCreated,
		Metadata:      ratelimit.Metadata(ratelimit.ScopeAnon),
	}, accountHandler.Register)

	// POST /user/token - Issue access token
	// Rate limited per client to slow down credential guessing
	huma.Register(api, huma.Operation{
		OperationID: "issue-token",
		Method:      http.MethodPost,
		Path:        "/user/token",
		Summary:     "Issue access token",
		Description: "Exchanges credentials for a bearer token. Limited per client IP.",
		Tags:        []string{"Users"},
		Middlewares: huma.Middlewares{tokenLimit},
	}, accountHandler.IssueToken)

	huma.Register(api, huma.Operation{
		OperationID: "get-profile",
		Method:      http.MethodGet,
		Path:        "/user/profile",
		Summary:     "Read profile",
		Tags:        []string{"Users"},
		Metadata:    ratelimit.Metadata(ratelimit.ScopeUser),
	}, accountHandler.Profile)

	huma.Register(api, huma.Operation{
		OperationID: "update-profile",
		Method:      http.MethodPatch,
		Path:        "/user/profile",
		Summary:     "Update profile",
		Description: "Sets the wallet address. An empty address clears it.",
		Tags:        []string{"Users"},
		Metadata:    ratelimit.Metadata(ratelimit.ScopeUser),
	}, accountHandler.UpdateProfile)

	huma.Register(api, huma.Operation{
		OperationID:   "delete-account",
		Method:        http.MethodDelete,
		Path:          "/api/delete-account",
		Summary:       "Delete account",
		Description:   "Removes the caller with all details, personas and API keys.",
		Tags:          []string{"Users"},
		DefaultStatus: http.StatusNoContent,
	}, accountHandler.DeleteAccount)

	huma.Register(api, huma.Operation{
		OperationID:   "create-detail",
		Method:        http.MethodPost,
		Path:          "/api/details",
		Summary:       "Create detail",
		Tags:          []string{"Details"},
		DefaultStatus: http.StatusCreated,
	}, personaHandler.CreateDetail)

	huma.Register(api, huma.Operation{
		OperationID: "list-details",
		Method:      http.MethodGet,
		Path:        "/api/details",
		Summary:     "List details",
		Tags:        []string{"Details"},
	}, personaHandler.ListDetails)

	huma.Register(api, huma.Operation{
		OperationID: "get-detail",
		Method:      http.MethodGet,
		Path:        "/api/details/{id}",
		Summary:     "Read detail",
		Tags:        []string{"Details"},
	}, personaHandler.GetDetail)

	huma.Register(api, huma.Operation{
		OperationID: "update-detail",
		Method:      http.MethodPatch,
		Path:        "/api/details/{id}",
		Summary:     "Update detail",
		Tags:        []string{"Details"},
	}, personaHandler.UpdateDetail)

	huma.Register(api, huma.Operation{
		OperationID:   "delete-detail",
		Method:        http.MethodDelete,
		Path:          "/api/details/{id}",
		Summary:       "Delete detail",
		Tags:          []string{"Details"},
		DefaultStatus: http.StatusNoContent,
	}, personaHandler.DeleteDetail)

	huma.Register(api, huma.Operation{
		OperationID:   "create-persona",
		Method:        http.MethodPost,
		Path:          "/api/personas",
		Summary:       "Create persona",
		Tags:          []string{"Personas"},
		DefaultStatus: http.StatusCreated,
	}, personaHandler.CreatePersona)

	huma.Register(api, huma.Operation{
		OperationID: "list-personas",
		Method:      http.MethodGet,
		Path:        "/api/personas",
		Summary:     "List personas",
		Tags:        []string{"Personas"},
	}, personaHandler.ListPersonas)

	huma.Register(api, huma.Operation{
		OperationID: "get-persona-record",
		Method:      http.MethodGet,
		Path:        "/api/personas/{id}",
		Summary:     "Read persona record",
		Tags:        []string{"Personas"},
	}, personaHandler.GetPersona)

	huma.Register(api, huma.Operation{
		OperationID: "update-persona",
		Method:      http.MethodPatch,
		Path:        "/api/personas/{id}",
		Summary:     "Rename persona",
		Tags:        []string{"Personas"},
	}, personaHandler.UpdatePersona)

	huma.Register(api, huma.Operation{
		OperationID:   "delete-persona",
		Method:        http.MethodDelete,
		Path:          "/api/personas/{id}",
		Summary:       "Delete persona",
		Description:   "Removes the persona with its links and API keys. Linked details are kept.",
		Tags:          []string{"Personas"},
		DefaultStatus: http.StatusNoContent,
	}, personaHandler.DeletePersona)

	huma.Register(api, huma.Operation{
		OperationID:   "assign-detail",
		Method:        http.MethodPost,
		Path:          "/api/personas/{id}/details",
		Summary:       "Assign detail to persona",
		Tags:          []string{"Personas"},
		DefaultStatus: http.StatusNoContent,
	}, personaHandler.AssignDetail)

	huma.Register(api, huma.Operation{
		OperationID: "list-persona-details",
		Method:      http.MethodGet,
		Path:        "/api/personas/{id}/details",
		Summary:     "List persona details",
		Tags:        []string{"Personas"},
	}, personaHandler.ListPersonaDetails)

	huma.Register(api, huma.Operation{
		OperationID:   "unassign-detail",
		Method:        http.MethodDelete,
		Path:          "/api/personas/{id}/details/{detailId}",
		Summary:       "Unassign detail from persona",
		Tags:          []string{"Personas"},
		DefaultStatus: http.StatusNoContent,
	}, personaHandler.UnassignDetail)

	huma.Register(api, huma.Operation{
		OperationID: "list-unassigned-details",
		Method:      http.MethodGet,
		Path:        "/api/personas/{id}/unassigned-details",
		Summary:     "List details not assigned to persona",
		Tags:        []string{"Personas"},
	}, personaHandler.ListUnassignedDetails)

	// POST /api/personas/{id}/api-keys - Generate API key
	// Throttled by the low scope
	huma.Register(api, huma.Operation{
		OperationID:   "generate-api-key",
		Method:        http.MethodPost,
		Path:          "/api/personas/{id}/api-keys",
		Summary:       "Generate API key",
		Description:   "Creates an API key for the persona. The raw key is only returned in this response.",
		Tags:          []string{"API Keys"},
		DefaultStatus: http.StatusCreated,
		Metadata:      ratelimit.Metadata(ratelimit.ScopeLow),
	}, personaHandler.GenerateAPIKey)

	huma.Register(api, huma.Operation{
		OperationID: "list-api-keys",
		Method:      http.MethodGet,
		Path:        "/api/personas/{id}/api-keys",
		Summary:     "List API keys",
		Tags:        []string{"API Keys"},
	}, personaHandler.ListAPIKeys)

	huma.Register(api, huma.Operation{
		OperationID: "revoke-all-api-keys",
		Method:      http.MethodDelete,
		Path:        "/api/personas/{id}/api-keys",
		Summary:     "Revoke all API keys",
		Tags:        []string{"API Keys"},
		Metadata:    ratelimit.Metadata(ratelimit.ScopeLow),
	}, personaHandler.RevokeAllAPIKeys)

	huma.Register(api, huma.Operation{
		OperationID:   "revoke-api-key",
		Method:        http.MethodDelete,
		Path:          "/api/api-keys/{prefix}",
		Summary:       "Revoke API key",
		Tags:          []string{"API Keys"},
		DefaultStatus: http.StatusNoContent,
	}, personaHandler.RevokeAPIKey)

	huma.Register(api, huma.Operation{
		OperationID: "get-persona",
		Method:      http.MethodGet,
		Path:        "/api/persona/{id}",
		Summary:     "Read persona",
		Description: "Returns the persona's details as key/value pairs. " +
			"Accessible with an Api-Key bound to the persona or by its owner.",
		Tags: []string{"Personas"},
	}, personaHandler.PersonaValues)
}
