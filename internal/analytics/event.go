package analytics

import (
	"time"

	"github.com/google/uuid"
)

const (
	TopicPersonaAccessed = "persona.accessed"
	TopicRateLimited     = "ratelimit.rejected"
)

// PersonaAccessedEvent is emitted whenever a persona's details are read.
type PersonaAccessedEvent struct {
	EventID    string    `json:"eventId"`
	PersonaID  int64     `json:"personaId"`
	Via        string    `json:"via"`
	ClientIP   string    `json:"clientIp"`
	UserAgent  string    `json:"userAgent"`
	AccessedAt time.Time `json:"accessedAt"`
}

// NewPersonaAccessedEvent builds an event with a fresh ID.
func NewPersonaAccessedEvent(personaID int64, via, clientIP, userAgent string, at time.Time) *PersonaAccessedEvent {
	return &PersonaAccessedEvent{
		EventID:    uuid.NewString(),
		PersonaID:  personaID,
		Via:        via,
		ClientIP:   clientIP,
		UserAgent:  userAgent,
		AccessedAt: at,
	}
}

// RateLimitedEvent is emitted when a request is rejected by a rate limiter.
type RateLimitedEvent struct {
	EventID    string    `json:"eventId"`
	ClientID   string    `json:"clientId"`
	Path       string    `json:"path"`
	Scope      string    `json:"scope,omitempty"`
	RetryAfter float64   `json:"retryAfter"`
	RejectedAt time.Time `json:"rejectedAt"`
}

// NewRateLimitedEvent builds an event with a fresh ID.
func NewRateLimitedEvent(clientID, path string, retryAfter float64, at time.Time) *RateLimitedEvent {
	return &RateLimitedEvent{
		EventID:    uuid.NewString(),
		ClientID:   clientID,
		Path:       path,
		RetryAfter: retryAfter,
		RejectedAt: at,
	}
}
