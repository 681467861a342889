package persona

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
)

// AccessVia names how a persona read was authorised.
type AccessVia string

const (
	ViaAPIKey AccessVia = "api_key"
	ViaOwner  AccessVia = "owner"
)

const apiKeyScheme = "api-key "

// Caller describes who is asking to read a persona.
type Caller struct {
	// Authorization is the raw Authorization header.
	Authorization string
	UserID        int64
	Authenticated bool
}

// Access is a granted persona read.
type Access struct {
	Persona *Persona
	Via     AccessVia
}

// Authorize grants a read of personaID when the caller presents an API key
// bound to that persona, or is authenticated and owns it. The API key is
// checked first; a failing key still lets an owner through.
func (s *Service) Authorize(ctx context.Context, personaID int64, caller Caller) (*Access, error) {
	logger := s.logger.With(zap.Int64("persona_id", personaID))

	if personaID <= 0 {
		logger.Warn("no persona id provided")

		return nil, ErrForbidden
	}

	if access, err := s.authorizeAPIKey(ctx, personaID, caller.Authorization, logger); err != nil || access != nil {
		return access, err
	}

	if caller.Authenticated {
		p, err := s.repo.GetPersona(ctx, personaID)

		switch {
		case err == nil && p.UserID == caller.UserID:
			logger.Info("access granted to persona owner")

			return &Access{Persona: p, Via: ViaOwner}, nil
		case err == nil:
			logger.Warn("user does not own persona", zap.Int64("user_id", caller.UserID))
		case errors.Is(err, ErrNotFound):
			logger.Warn("persona not found")
		default:
			return nil, err
		}
	}

	logger.Warn("persona access denied")

	return nil, ErrForbidden
}

// authorizeAPIKey returns a nil Access and nil error when the header does not
// grant access, so the caller can fall through to the ownership check.
func (s *Service) authorizeAPIKey(ctx context.Context, personaID int64, header string, logger *zap.Logger) (*Access, error) {
	if len(header) < len(apiKeyScheme) || !strings.EqualFold(header[:len(apiKeyScheme)], apiKeyScheme) {
		return nil, nil
	}

	raw := strings.TrimSpace(header[len(apiKeyScheme):])
	if raw == "" {
		logger.Warn("empty api key provided")

		return nil, nil
	}

	prefix, ok := KeyPrefix(raw)
	if !ok {
		logger.Info("malformed api key")

		return nil, nil
	}

	key, err := s.repo.GetAPIKeyByPrefix(ctx, prefix)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			logger.Info("unknown api key", zap.String("prefix", prefix))

			return nil, nil
		}

		return nil, err
	}

	if !key.Matches(raw) {
		logger.Info("api key secret mismatch", zap.String("prefix", prefix))

		return nil, nil
	}

	if key.PersonaID != personaID {
		logger.Info("api key does not match persona", zap.String("prefix", prefix))

		return nil, nil
	}

	p, err := s.repo.GetPersona(ctx, personaID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}

		return nil, err
	}

	logger.Info("access granted via api key", zap.String("prefix", prefix))

	return &Access{Persona: p, Via: ViaAPIKey}, nil
}
