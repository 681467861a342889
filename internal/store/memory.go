package store

import (
	"context"
	"sort"
	"sync"

	"github.com/serroba/persona-api/internal/account"
	"github.com/serroba/persona-api/internal/persona"
)

type personaDetailLink struct {
	personaID int64
	detailID  int64
}

// MemoryStore is an in-memory implementation of account.Repository and persona.Repository.
type MemoryStore struct {
	mu sync.RWMutex

	nextID int64

	users     map[int64]account.User
	usernames map[string]int64
	sessions  map[string]account.Session
	details   map[int64]persona.Detail
	personas  map[int64]persona.Persona
	links     map[personaDetailLink]struct{}
	apiKeys   map[string]persona.APIKey // prefix -> key
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[int64]account.User),
		usernames: make(map[string]int64),
		sessions:  make(map[string]account.Session),
		details:   make(map[int64]persona.Detail),
		personas:  make(map[int64]persona.Persona),
		links:     make(map[personaDetailLink]struct{}),
		apiKeys:   make(map[string]persona.APIKey),
	}
}

// id must be called with the write lock held.
func (m *MemoryStore) id() int64 {
	m.nextID++

	return m.nextID
}

func (m *MemoryStore) CreateUser(_ context.Context, user *account.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.usernames[user.Username]; ok {
		return account.ErrUsernameTaken
	}

	user.ID = m.id()
	m.users[user.ID] = *user
	m.usernames[user.Username] = user.ID

	return nil
}

func (m *MemoryStore) GetUserByUsername(_ context.Context, username string) (*account.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.usernames[username]
	if !ok {
		return nil, account.ErrUserNotFound
	}

	user := m.users[id]

	return &user, nil
}

func (m *MemoryStore) GetUser(_ context.Context, id int64) (*account.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[id]
	if !ok {
		return nil, account.ErrUserNotFound
	}

	return &user, nil
}

func (m *MemoryStore) UpdateWallet(_ context.Context, id int64, wallet string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok {
		return account.ErrUserNotFound
	}

	if wallet != "" {
		for otherID, other := range m.users {
			if otherID != id && other.WalletAddress == wallet {
				return account.ErrWalletTaken
			}
		}
	}

	user.WalletAddress = wallet
	m.users[id] = user

	return nil
}

// DeleteUser removes the user with its sessions, details, personas, links and keys.
func (m *MemoryStore) DeleteUser(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok {
		return account.ErrUserNotFound
	}

	for token, session := range m.sessions {
		if session.UserID == id {
			delete(m.sessions, token)
		}
	}

	for personaID, p := range m.personas {
		if p.UserID == id {
			m.deletePersona(personaID)
		}
	}

	for detailID, d := range m.details {
		if d.UserID == id {
			m.deleteDetail(detailID)
		}
	}

	delete(m.usernames, user.Username)
	delete(m.users, id)

	return nil
}

func (m *MemoryStore) SaveSession(_ context.Context, session *account.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[session.Token] = *session

	return nil
}

func (m *MemoryStore) GetSession(_ context.Context, token string) (*account.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[token]
	if !ok {
		return nil, account.ErrInvalidToken
	}

	return &session, nil
}

func (m *MemoryStore) CreateDetail(_ context.Context, detail *persona.Detail) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, d := range m.details {
		if d.UserID == detail.UserID && d.Key == detail.Key {
			return persona.ErrConflict
		}
	}

	detail.ID = m.id()
	m.details[detail.ID] = *detail

	return nil
}

func (m *MemoryStore) ListDetails(_ context.Context, userID int64) ([]persona.Detail, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]persona.Detail, 0)

	for _, d := range m.details {
		if d.UserID == userID {
			out = append(out, d)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}

func (m *MemoryStore) GetDetail(_ context.Context, id int64) (*persona.Detail, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.details[id]
	if !ok {
		return nil, persona.ErrNotFound
	}

	return &d, nil
}

func (m *MemoryStore) UpdateDetail(_ context.Context, detail *persona.Detail) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.details[detail.ID]; !ok {
		return persona.ErrNotFound
	}

	for id, d := range m.details {
		if id != detail.ID && d.UserID == detail.UserID && d.Key == detail.Key {
			return persona.ErrConflict
		}
	}

	m.details[detail.ID] = *detail

	return nil
}

func (m *MemoryStore) DeleteDetail(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.details[id]; !ok {
		return persona.ErrNotFound
	}

	m.deleteDetail(id)

	return nil
}

// deleteDetail must be called with the write lock held.
func (m *MemoryStore) deleteDetail(id int64) {
	for link := range m.links {
		if link.detailID == id {
			delete(m.links, link)
		}
	}

	delete(m.details, id)
}

func (m *MemoryStore) CreatePersona(_ context.Context, p *persona.Persona) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.personas {
		if existing.UserID == p.UserID && existing.Key == p.Key {
			return persona.ErrConflict
		}
	}

	p.ID = m.id()
	m.personas[p.ID] = *p

	return nil
}

func (m *MemoryStore) ListPersonas(_ context.Context, userID int64) ([]persona.Persona, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]persona.Persona, 0)

	for _, p := range m.personas {
		if p.UserID == userID {
			out = append(out, p)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}

func (m *MemoryStore) GetPersona(_ context.Context, id int64) (*persona.Persona, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.personas[id]
	if !ok {
		return nil, persona.ErrNotFound
	}

	return &p, nil
}

func (m *MemoryStore) UpdatePersona(_ context.Context, p *persona.Persona) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.personas[p.ID]; !ok {
		return persona.ErrNotFound
	}

	for id, existing := range m.personas {
		if id != p.ID && existing.UserID == p.UserID && existing.Key == p.Key {
			return persona.ErrConflict
		}
	}

	m.personas[p.ID] = *p

	return nil
}

func (m *MemoryStore) DeletePersona(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.personas[id]; !ok {
		return persona.ErrNotFound
	}

	m.deletePersona(id)

	return nil
}

// deletePersona must be called with the write lock held.
func (m *MemoryStore) deletePersona(id int64) {
	for link := range m.links {
		if link.personaID == id {
			delete(m.links, link)
		}
	}

	for prefix, key := range m.apiKeys {
		if key.PersonaID == id {
			delete(m.apiKeys, prefix)
		}
	}

	delete(m.personas, id)
}

func (m *MemoryStore) LinkDetail(_ context.Context, personaID, detailID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	link := personaDetailLink{personaID: personaID, detailID: detailID}
	if _, ok := m.links[link]; ok {
		return persona.ErrConflict
	}

	m.links[link] = struct{}{}

	return nil
}

func (m *MemoryStore) PersonaDetails(_ context.Context, personaID int64) ([]persona.Detail, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]persona.Detail, 0)

	for link := range m.links {
		if link.personaID != personaID {
			continue
		}

		if d, ok := m.details[link.detailID]; ok {
			out = append(out, d)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}

func (m *MemoryStore) UnlinkDetail(_ context.Context, personaID, detailID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	link := personaDetailLink{personaID: personaID, detailID: detailID}
	if _, ok := m.links[link]; !ok {
		return persona.ErrNotFound
	}

	delete(m.links, link)

	return nil
}

func (m *MemoryStore) UnassignedDetails(_ context.Context, userID, personaID int64) ([]persona.Detail, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]persona.Detail, 0)

	for _, d := range m.details {
		if d.UserID != userID {
			continue
		}

		if _, linked := m.links[personaDetailLink{personaID: personaID, detailID: d.ID}]; !linked {
			out = append(out, d)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}

func (m *MemoryStore) SaveAPIKey(_ context.Context, key *persona.APIKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.apiKeys[key.Prefix]; ok {
		return persona.ErrConflict
	}

	key.ID = m.id()
	m.apiKeys[key.Prefix] = *key

	return nil
}

func (m *MemoryStore) GetAPIKeyByPrefix(_ context.Context, prefix string) (*persona.APIKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	key, ok := m.apiKeys[prefix]
	if !ok {
		return nil, persona.ErrNotFound
	}

	return &key, nil
}

func (m *MemoryStore) ListAPIKeys(_ context.Context, personaID int64) ([]persona.APIKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]persona.APIKey, 0)

	for _, key := range m.apiKeys {
		if key.PersonaID == personaID {
			out = append(out, key)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}

func (m *MemoryStore) DeleteAPIKey(_ context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.apiKeys[prefix]; !ok {
		return persona.ErrNotFound
	}

	delete(m.apiKeys, prefix)

	return nil
}

func (m *MemoryStore) DeleteAPIKeys(_ context.Context, personaID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64

	for prefix, key := range m.apiKeys {
		if key.PersonaID == personaID {
			delete(m.apiKeys, prefix)
			n++
		}
	}

	return n, nil
}

// Compile-time checks.
var (
	_ account.Repository = (*MemoryStore)(nil)
	_ persona.Repository = (*MemoryStore)(nil)
)
