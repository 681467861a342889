package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/persona-api/internal/account"
	"github.com/serroba/persona-api/internal/analytics"
	"github.com/serroba/persona-api/internal/messaging"
	"github.com/serroba/persona-api/internal/persona"
	"go.uber.org/zap"
)

// PersonaHandler handles details, personas and their API keys.
type PersonaHandler struct {
	personas               *persona.Service
	publishPersonaAccessed messaging.Publish[analytics.PersonaAccessedEvent]
	logger                 *zap.Logger
}

// NewPersonaHandler creates a new persona handler.
func NewPersonaHandler(
	personas *persona.Service,
	publishPersonaAccessed messaging.Publish[analytics.PersonaAccessedEvent],
	logger *zap.Logger,
) *PersonaHandler {
	return &PersonaHandler{
		personas:               personas,
		publishPersonaAccessed: publishPersonaAccessed,
		logger:                 logger,
	}
}

func (h *PersonaHandler) CreateDetail(ctx context.Context, req *CreateDetailRequest) (*DetailResponse, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	detail := &persona.Detail{
		Key:         req.Body.Key,
		ValueType:   persona.ValueType(req.Body.ValueType),
		StringValue: req.Body.StringValue,
		FileURL:     req.Body.FileURL,
		ImageURL:    req.Body.ImageURL,
	}

	if req.Body.DateValue != "" {
		date, err := time.Parse(time.DateOnly, req.Body.DateValue)
		if err != nil {
			return nil, huma.Error422UnprocessableEntity("dateValue must be YYYY-MM-DD")
		}

		detail.DateValue = &date
	}

	if err := h.personas.CreateDetail(ctx, userID, detail); err != nil {
		return nil, toHTTPError(err, h.logger)
	}

	return &DetailResponse{Body: toDetailBody(detail)}, nil
}

func (h *PersonaHandler) ListDetails(ctx context.Context, _ *struct{}) (*DetailListResponse, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	details, err := h.personas.ListDetails(ctx, userID)
	if err != nil {
		return nil, toHTTPError(err, h.logger)
	}

	return &DetailListResponse{Body: toDetailBodies(details)}, nil
}

func (h *PersonaHandler) GetDetail(ctx context.Context, req *DetailPathRequest) (*DetailResponse, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	detail, err := h.personas.GetDetail(ctx, userID, req.ID)
	if err != nil {
		return nil, toHTTPError(err, h.logger)
	}

	return &DetailResponse{Body: toDetailBody(detail)}, nil
}

func (h *PersonaHandler) UpdateDetail(ctx context.Context, req *UpdateDetailRequest) (*DetailResponse, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	update := persona.DetailUpdate{
		Key:         req.Body.Key,
		StringValue: req.Body.StringValue,
		FileURL:     req.Body.FileURL,
		ImageURL:    req.Body.ImageURL,
	}

	if req.Body.ValueType != nil {
		valueType := persona.ValueType(*req.Body.ValueType)
		update.ValueType = &valueType
	}

	if req.Body.DateValue != nil {
		date, err := time.Parse(time.DateOnly, *req.Body.DateValue)
		if err != nil {
			return nil, huma.Error422UnprocessableEntity("dateValue must be YYYY-MM-DD")
		}

		update.DateValue = &date
	}

	detail, err := h.personas.UpdateDetail(ctx, userID, req.ID, update)
	if err != nil {
		return nil, toHTTPError(err, h.logger)
	}

	return &DetailResponse{Body: toDetailBody(detail)}, nil
}

func (h *PersonaHandler) DeleteDetail(ctx context.Context, req *DetailPathRequest) (*struct{}, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	if err := h.personas.DeleteDetail(ctx, userID, req.ID); err != nil {
		return nil, toHTTPError(err, h.logger)
	}

	return nil, nil
}

func (h *PersonaHandler) CreatePersona(ctx context.Context, req *CreatePersonaRequest) (*PersonaResponse, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	p, err := h.personas.CreatePersona(ctx, userID, req.Body.Key)
	if err != nil {
		return nil, toHTTPError(err, h.logger)
	}

	return &PersonaResponse{Body: toPersonaBody(p)}, nil
}

func (h *PersonaHandler) ListPersonas(ctx context.Context, _ *struct{}) (*PersonaListResponse, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	personas, err := h.personas.ListPersonas(ctx, userID)
	if err != nil {
		return nil, toHTTPError(err, h.logger)
	}

	resp := &PersonaListResponse{Body: make([]PersonaBody, 0, len(personas))}
	for i := range personas {
		resp.Body = append(resp.Body, toPersonaBody(&personas[i]))
	}

	return resp, nil
}

func (h *PersonaHandler) GetPersona(ctx context.Context, req *PersonaPathRequest) (*PersonaResponse, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	p, err := h.personas.OwnedPersona(ctx, userID, req.ID)
	if err != nil {
		return nil, toHTTPError(err, h.logger)
	}

	return &PersonaResponse{Body: toPersonaBody(p)}, nil
}

func (h *PersonaHandler) UpdatePersona(ctx context.Context, req *UpdatePersonaRequest) (*PersonaResponse, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	p, err := h.personas.RenamePersona(ctx, userID, req.ID, req.Body.Key)
	if err != nil {
		return nil, toHTTPError(err, h.logger)
	}

	return &PersonaResponse{Body: toPersonaBody(p)}, nil
}

func (h *PersonaHandler) DeletePersona(ctx context.Context, req *PersonaPathRequest) (*struct{}, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	if err := h.personas.DeletePersona(ctx, userID, req.ID); err != nil {
		return nil, toHTTPError(err, h.logger)
	}

	return nil, nil
}

func (h *PersonaHandler) AssignDetail(ctx context.Context, req *AssignDetailRequest) (*struct{}, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	if err := h.personas.AssignDetail(ctx, userID, req.ID, req.Body.DetailID); err != nil {
		return nil, toHTTPError(err, h.logger)
	}

	return nil, nil
}

func (h *PersonaHandler) ListPersonaDetails(ctx context.Context, req *PersonaPathRequest) (*DetailListResponse, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	details, err := h.personas.Details(ctx, userID, req.ID)
	if err != nil {
		return nil, toHTTPError(err, h.logger)
	}

	return &DetailListResponse{Body: toDetailBodies(details)}, nil
}

func (h *PersonaHandler) UnassignDetail(ctx context.Context, req *PersonaDetailPathRequest) (*struct{}, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	if err := h.personas.UnassignDetail(ctx, userID, req.ID, req.DetailID); err != nil {
		return nil, toHTTPError(err, h.logger)
	}

	return nil, nil
}

func (h *PersonaHandler) ListUnassignedDetails(ctx context.Context, req *PersonaPathRequest) (*DetailListResponse, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	details, err := h.personas.UnassignedDetails(ctx, userID, req.ID)
	if err != nil {
		return nil, toHTTPError(err, h.logger)
	}

	return &DetailListResponse{Body: toDetailBodies(details)}, nil
}

func (h *PersonaHandler) GenerateAPIKey(ctx context.Context, req *GenerateAPIKeyRequest) (*GenerateAPIKeyResponse, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	key, raw, err := h.personas.GenerateAPIKey(ctx, userID, req.ID, req.Body.Description)
	if err != nil {
		return nil, toHTTPError(err, h.logger)
	}

	resp := &GenerateAPIKeyResponse{}
	resp.Body.Prefix = key.Prefix
	resp.Body.Key = raw
	resp.Body.Name = key.Name
	resp.Body.Description = key.Description
	resp.Body.CreatedAt = key.CreatedAt

	return resp, nil
}

func (h *PersonaHandler) ListAPIKeys(ctx context.Context, req *PersonaPathRequest) (*APIKeyListResponse, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	keys, err := h.personas.ListAPIKeys(ctx, userID, req.ID)
	if err != nil {
		return nil, toHTTPError(err, h.logger)
	}

	resp := &APIKeyListResponse{Body: make([]APIKeyBody, 0, len(keys))}
	for i := range keys {
		resp.Body = append(resp.Body, toAPIKeyBody(&keys[i]))
	}

	return resp, nil
}

func (h *PersonaHandler) RevokeAllAPIKeys(ctx context.Context, req *PersonaPathRequest) (*RevokeAllAPIKeysResponse, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	n, err := h.personas.RevokeAllAPIKeys(ctx, userID, req.ID)
	if err != nil {
		return nil, toHTTPError(err, h.logger)
	}

	resp := &RevokeAllAPIKeysResponse{}
	resp.Body.Deleted = n
	resp.Body.Detail = fmt.Sprintf("All %d keys deleted for this Persona.", n)

	return resp, nil
}

func (h *PersonaHandler) RevokeAPIKey(ctx context.Context, req *RevokeAPIKeyRequest) (*struct{}, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	if err := h.personas.RevokeAPIKey(ctx, userID, req.Prefix); err != nil {
		return nil, toHTTPError(err, h.logger)
	}

	return nil, nil
}

// PersonaValues serves a persona's details to API key holders and to its owner.
func (h *PersonaHandler) PersonaValues(ctx context.Context, req *PersonaValuesRequest) (*PersonaValuesResponse, error) {
	caller := persona.Caller{Authorization: req.Authorization}
	caller.UserID, caller.Authenticated = account.UserFromContext(ctx)

	access, err := h.personas.Authorize(ctx, req.ID, caller)
	if err != nil {
		return nil, toHTTPError(err, h.logger)
	}

	values, err := h.personas.Values(ctx, access.Persona.ID)
	if err != nil {
		return nil, toHTTPError(err, h.logger)
	}

	meta := RequestMetaFromContext(ctx)
	event := analytics.NewPersonaAccessedEvent(access.Persona.ID, string(access.Via), meta.ClientIP, meta.UserAgent, time.Now())

	if err := h.publishPersonaAccessed(ctx, event); err != nil {
		h.logger.Error("failed to publish access event",
			zap.Int64("persona_id", event.PersonaID),
			zap.Error(err),
		)
	}

	return &PersonaValuesResponse{Body: values}, nil
}

func toDetailBody(d *persona.Detail) DetailBody {
	return DetailBody{
		ID:        d.ID,
		Key:       d.Key,
		ValueType: string(d.ValueType),
		Value:     d.CurrentValue(),
		CreatedAt: d.CreatedAt,
	}
}

func toDetailBodies(details []persona.Detail) []DetailBody {
	out := make([]DetailBody, 0, len(details))
	for i := range details {
		out = append(out, toDetailBody(&details[i]))
	}

	return out
}

func toPersonaBody(p *persona.Persona) PersonaBody {
	return PersonaBody{ID: p.ID, Key: p.Key, CreatedAt: p.CreatedAt}
}

func toAPIKeyBody(k *persona.APIKey) APIKeyBody {
	return APIKeyBody{
		Prefix:      k.Prefix,
		Name:        k.Name,
		Description: k.Description,
		CreatedAt:   k.CreatedAt,
	}
}
