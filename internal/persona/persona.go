package persona

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrConflict         = errors.New("already exists")
	ErrInvalidKey       = errors.New("key must not be empty")
	ErrInvalidValueType = errors.New("value type must be one of string, date, file, image")
)

// DefaultImage is reported for image details without an uploaded image.
const DefaultImage = "default-profile.jpg"

// ValueType selects which value field of a Detail is active.
type ValueType string

const (
	ValueString ValueType = "string"
	ValueDate   ValueType = "date"
	ValueFile   ValueType = "file"
	ValueImage  ValueType = "image"
)

// Valid reports whether t is a known value type.
func (t ValueType) Valid() bool {
	switch t {
	case ValueString, ValueDate, ValueFile, ValueImage:
		return true
	default:
		return false
	}
}

// Detail is a single profile attribute owned by a user.
type Detail struct {
	ID          int64
	UserID      int64
	Key         string
	ValueType   ValueType
	StringValue string
	DateValue   *time.Time
	FileURL     string
	ImageURL    string
	CreatedAt   time.Time
}

// CurrentValue returns the value of the active field.
// Dates render as YYYY-MM-DD, missing files as nil, missing images as DefaultImage.
func (d *Detail) CurrentValue() any {
	switch d.ValueType {
	case ValueString:
		return d.StringValue
	case ValueDate:
		if d.DateValue == nil {
			return nil
		}

		return d.DateValue.Format(time.DateOnly)
	case ValueFile:
		if d.FileURL == "" {
			return nil
		}

		return d.FileURL
	case ValueImage:
		if d.ImageURL == "" {
			return DefaultImage
		}

		return d.ImageURL
	default:
		return nil
	}
}

// DetailUpdate is a partial change to a Detail. Nil fields are left as they are.
type DetailUpdate struct {
	Key         *string
	ValueType   *ValueType
	StringValue *string
	DateValue   *time.Time
	FileURL     *string
	ImageURL    *string
}

// Apply copies the set fields onto d.
func (u DetailUpdate) Apply(d *Detail) {
	if u.Key != nil {
		d.Key = *u.Key
	}

	if u.ValueType != nil {
		d.ValueType = *u.ValueType
	}

	if u.StringValue != nil {
		d.StringValue = *u.StringValue
	}

	if u.DateValue != nil {
		date := *u.DateValue
		d.DateValue = &date
	}

	if u.FileURL != nil {
		d.FileURL = *u.FileURL
	}

	if u.ImageURL != nil {
		d.ImageURL = *u.ImageURL
	}
}

// NormalizeKey trims key, joins inner whitespace runs with underscores and lowercases it.
func NormalizeKey(key string) string {
	return strings.ToLower(strings.Join(strings.Fields(key), "_"))
}

// Persona is a named bundle of details.
type Persona struct {
	ID        int64
	UserID    int64
	Key       string
	CreatedAt time.Time
}

// APIKey grants read access to one persona. Only the hash of the key is stored.
type APIKey struct {
	ID          int64
	PersonaID   int64
	Prefix      string
	HashedKey   string
	Name        string
	Description string
	CreatedAt   time.Time
}

// Repository persists details, personas, their links and API keys.
type Repository interface {
	// CreateDetail assigns the ID. Returns ErrConflict when the key is taken for the user.
	CreateDetail(ctx context.Context, detail *Detail) error
	ListDetails(ctx context.Context, userID int64) ([]Detail, error)
	GetDetail(ctx context.Context, id int64) (*Detail, error)
	// UpdateDetail overwrites the stored detail. Returns ErrConflict when the
	// new key is taken for the user.
	UpdateDetail(ctx context.Context, detail *Detail) error
	// DeleteDetail also unlinks the detail from every persona.
	DeleteDetail(ctx context.Context, id int64) error

	// CreatePersona assigns the ID. Returns ErrConflict when the key is taken for the user.
	CreatePersona(ctx context.Context, persona *Persona) error
	ListPersonas(ctx context.Context, userID int64) ([]Persona, error)
	GetPersona(ctx context.Context, id int64) (*Persona, error)
	// UpdatePersona returns ErrConflict when the new key is taken for the user.
	UpdatePersona(ctx context.Context, persona *Persona) error
	// DeletePersona also removes its links and API keys.
	DeletePersona(ctx context.Context, id int64) error

	// LinkDetail returns ErrConflict when the pair is already linked.
	LinkDetail(ctx context.Context, personaID, detailID int64) error
	// UnlinkDetail returns ErrNotFound when the pair is not linked.
	UnlinkDetail(ctx context.Context, personaID, detailID int64) error
	PersonaDetails(ctx context.Context, personaID int64) ([]Detail, error)
	// UnassignedDetails lists the user's details not linked to personaID.
	UnassignedDetails(ctx context.Context, userID, personaID int64) ([]Detail, error)

	SaveAPIKey(ctx context.Context, key *APIKey) error
	GetAPIKeyByPrefix(ctx context.Context, prefix string) (*APIKey, error)
	ListAPIKeys(ctx context.Context, personaID int64) ([]APIKey, error)
	DeleteAPIKey(ctx context.Context, prefix string) error
	// DeleteAPIKeys removes every key of personaID and reports how many there were.
	DeleteAPIKeys(ctx context.Context, personaID int64) (int64, error)
}
