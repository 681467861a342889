package persona

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Service implements persona management for authenticated owners.
type Service struct {
	repo   Repository
	keys   *KeyGenerator
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a persona service.
func NewService(repo Repository, keys *KeyGenerator, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		keys:   keys,
		logger: logger,
		now:    time.Now,
	}
}

// CreateDetail stores a detail for userID after normalising its key.
func (s *Service) CreateDetail(ctx context.Context, userID int64, detail *Detail) error {
	detail.Key = NormalizeKey(detail.Key)
	if detail.Key == "" {
		return ErrInvalidKey
	}

	if detail.ValueType == "" {
		detail.ValueType = ValueString
	}

	if !detail.ValueType.Valid() {
		return ErrInvalidValueType
	}

	detail.UserID = userID
	detail.CreatedAt = s.now()

	return s.repo.CreateDetail(ctx, detail)
}

func (s *Service) ListDetails(ctx context.Context, userID int64) ([]Detail, error) {
	return s.repo.ListDetails(ctx, userID)
}

// GetDetail returns the detail only when userID owns it; otherwise ErrNotFound.
func (s *Service) GetDetail(ctx context.Context, userID, detailID int64) (*Detail, error) {
	detail, err := s.repo.GetDetail(ctx, detailID)
	if err != nil {
		return nil, err
	}

	if detail.UserID != userID {
		return nil, ErrNotFound
	}

	return detail, nil
}

// UpdateDetail applies a partial update to an owned detail. The key is
// normalised again and the value type revalidated.
func (s *Service) UpdateDetail(ctx context.Context, userID, detailID int64, update DetailUpdate) (*Detail, error) {
	detail, err := s.GetDetail(ctx, userID, detailID)
	if err != nil {
		return nil, err
	}

	update.Apply(detail)

	detail.Key = NormalizeKey(detail.Key)
	if detail.Key == "" {
		return nil, ErrInvalidKey
	}

	if !detail.ValueType.Valid() {
		return nil, ErrInvalidValueType
	}

	if err := s.repo.UpdateDetail(ctx, detail); err != nil {
		return nil, err
	}

	return detail, nil
}

// DeleteDetail removes an owned detail from the user and all of its personas.
func (s *Service) DeleteDetail(ctx context.Context, userID, detailID int64) error {
	if _, err := s.GetDetail(ctx, userID, detailID); err != nil {
		return err
	}

	return s.repo.DeleteDetail(ctx, detailID)
}

// CreatePersona stores a persona named key for userID.
func (s *Service) CreatePersona(ctx context.Context, userID int64, key string) (*Persona, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, ErrInvalidKey
	}

	p := &Persona{
		UserID:    userID,
		Key:       key,
		CreatedAt: s.now(),
	}

	if err := s.repo.CreatePersona(ctx, p); err != nil {
		return nil, err
	}

	return p, nil
}

func (s *Service) ListPersonas(ctx context.Context, userID int64) ([]Persona, error) {
	return s.repo.ListPersonas(ctx, userID)
}

// OwnedPersona returns the persona only when userID owns it; otherwise ErrNotFound.
func (s *Service) OwnedPersona(ctx context.Context, userID, personaID int64) (*Persona, error) {
	p, err := s.repo.GetPersona(ctx, personaID)
	if err != nil {
		return nil, err
	}

	if p.UserID != userID {
		return nil, ErrNotFound
	}

	return p, nil
}

// RenamePersona changes the key of an owned persona.
func (s *Service) RenamePersona(ctx context.Context, userID, personaID int64, key string) (*Persona, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, ErrInvalidKey
	}

	p, err := s.OwnedPersona(ctx, userID, personaID)
	if err != nil {
		return nil, err
	}

	p.Key = key

	if err := s.repo.UpdatePersona(ctx, p); err != nil {
		return nil, err
	}

	return p, nil
}

// DeletePersona removes an owned persona with its links and API keys.
// The linked details themselves are kept.
func (s *Service) DeletePersona(ctx context.Context, userID, personaID int64) error {
	if _, err := s.OwnedPersona(ctx, userID, personaID); err != nil {
		return err
	}

	return s.repo.DeletePersona(ctx, personaID)
}

// AssignDetail links a detail to a persona. Both must belong to userID.
func (s *Service) AssignDetail(ctx context.Context, userID, personaID, detailID int64) error {
	if _, err := s.OwnedPersona(ctx, userID, personaID); err != nil {
		return err
	}

	if _, err := s.GetDetail(ctx, userID, detailID); err != nil {
		return err
	}

	return s.repo.LinkDetail(ctx, personaID, detailID)
}

// UnassignDetail removes a link. The detail stays with the user.
func (s *Service) UnassignDetail(ctx context.Context, userID, personaID, detailID int64) error {
	if _, err := s.OwnedPersona(ctx, userID, personaID); err != nil {
		return err
	}

	return s.repo.UnlinkDetail(ctx, personaID, detailID)
}

// UnassignedDetails lists the user's details that could still be linked to an owned persona.
func (s *Service) UnassignedDetails(ctx context.Context, userID, personaID int64) ([]Detail, error) {
	if _, err := s.OwnedPersona(ctx, userID, personaID); err != nil {
		return nil, err
	}

	return s.repo.UnassignedDetails(ctx, userID, personaID)
}

// Details lists the details linked to an owned persona.
func (s *Service) Details(ctx context.Context, userID, personaID int64) ([]Detail, error) {
	if _, err := s.OwnedPersona(ctx, userID, personaID); err != nil {
		return nil, err
	}

	return s.repo.PersonaDetails(ctx, personaID)
}

// Values returns the persona's details as key to current value.
func (s *Service) Values(ctx context.Context, personaID int64) (map[string]any, error) {
	details, err := s.repo.PersonaDetails(ctx, personaID)
	if err != nil {
		return nil, err
	}

	values := make(map[string]any, len(details))
	for i := range details {
		values[details[i].Key] = details[i].CurrentValue()
	}

	return values, nil
}

// GenerateAPIKey mints a key for an owned persona. The raw key is only ever returned here.
func (s *Service) GenerateAPIKey(ctx context.Context, userID, personaID int64, description string) (*APIKey, string, error) {
	p, err := s.OwnedPersona(ctx, userID, personaID)
	if err != nil {
		return nil, "", err
	}

	if strings.TrimSpace(description) == "" {
		description = "Generated API Key"
	}

	prefix, raw, hashed := s.keys.Generate()

	key := &APIKey{
		PersonaID:   p.ID,
		Prefix:      prefix,
		HashedKey:   hashed,
		Name:        fmt.Sprintf("API Key for %s", p.Key),
		Description: description,
		CreatedAt:   s.now(),
	}

	if err := s.repo.SaveAPIKey(ctx, key); err != nil {
		return nil, "", err
	}

	s.logger.Info("api key generated",
		zap.Int64("persona_id", p.ID),
		zap.String("prefix", prefix),
	)

	return key, raw, nil
}

// ListAPIKeys lists the keys of an owned persona.
func (s *Service) ListAPIKeys(ctx context.Context, userID, personaID int64) ([]APIKey, error) {
	if _, err := s.OwnedPersona(ctx, userID, personaID); err != nil {
		return nil, err
	}

	return s.repo.ListAPIKeys(ctx, personaID)
}

// RevokeAPIKey deletes the key with prefix. Keys of personas owned by someone
// else yield ErrForbidden.
func (s *Service) RevokeAPIKey(ctx context.Context, userID int64, prefix string) error {
	key, err := s.repo.GetAPIKeyByPrefix(ctx, prefix)
	if err != nil {
		return err
	}

	p, err := s.repo.GetPersona(ctx, key.PersonaID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrForbidden
		}

		return err
	}

	if p.UserID != userID {
		return ErrForbidden
	}

	return s.repo.DeleteAPIKey(ctx, prefix)
}

// RevokeAllAPIKeys deletes every key of an owned persona and returns how many were removed.
func (s *Service) RevokeAllAPIKeys(ctx context.Context, userID, personaID int64) (int64, error) {
	if _, err := s.OwnedPersona(ctx, userID, personaID); err != nil {
		return 0, err
	}

	n, err := s.repo.DeleteAPIKeys(ctx, personaID)
	if err != nil {
		return 0, err
	}

	s.logger.Info("api keys revoked",
		zap.Int64("persona_id", personaID),
		zap.Int64("count", n),
	)

	return n, nil
}
