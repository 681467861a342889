package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/serroba/persona-api/internal/account"
	"github.com/serroba/persona-api/internal/persona"
	"github.com/serroba/persona-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Users(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	t.Run("create assigns id and rejects duplicates", func(t *testing.T) {
		user := &account.User{Username: "ada", PasswordHash: []byte("hash")}
		require.NoError(t, s.CreateUser(ctx, user))
		assert.NotZero(t, user.ID)

		err := s.CreateUser(ctx, &account.User{Username: "ada"})
		assert.ErrorIs(t, err, account.ErrUsernameTaken)
	})

	t.Run("get by username", func(t *testing.T) {
		got, err := s.GetUserByUsername(ctx, "ada")
		require.NoError(t, err)
		assert.Equal(t, "ada", got.Username)

		_, err = s.GetUserByUsername(ctx, "nobody")
		assert.ErrorIs(t, err, account.ErrUserNotFound)
	})

	t.Run("sessions", func(t *testing.T) {
		session := &account.Session{Token: "tok", UserID: 1, ExpiresAt: time.Now().Add(time.Hour)}
		require.NoError(t, s.SaveSession(ctx, session))

		got, err := s.GetSession(ctx, "tok")
		require.NoError(t, err)
		assert.Equal(t, int64(1), got.UserID)

		_, err = s.GetSession(ctx, "missing")
		assert.ErrorIs(t, err, account.ErrInvalidToken)
	})
}

func TestMemoryStore_Details(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	first := &persona.Detail{UserID: 1, Key: "name", ValueType: persona.ValueString}
	second := &persona.Detail{UserID: 1, Key: "email", ValueType: persona.ValueString}
	other := &persona.Detail{UserID: 2, Key: "name", ValueType: persona.ValueString}

	require.NoError(t, s.CreateDetail(ctx, first))
	require.NoError(t, s.CreateDetail(ctx, second))
	require.NoError(t, s.CreateDetail(ctx, other))

	t.Run("duplicate key for same user conflicts", func(t *testing.T) {
		err := s.CreateDetail(ctx, &persona.Detail{UserID: 1, Key: "name"})

		assert.ErrorIs(t, err, persona.ErrConflict)
	})

	t.Run("list is scoped to user and ordered by id", func(t *testing.T) {
		details, err := s.ListDetails(ctx, 1)
		require.NoError(t, err)

		require.Len(t, details, 2)
		assert.Equal(t, first.ID, details[0].ID)
		assert.Equal(t, second.ID, details[1].ID)
	})

	t.Run("get missing detail", func(t *testing.T) {
		_, err := s.GetDetail(ctx, 999)

		assert.ErrorIs(t, err, persona.ErrNotFound)
	})
}

func TestMemoryStore_PersonasAndLinks(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	detail := &persona.Detail{UserID: 1, Key: "name", ValueType: persona.ValueString, StringValue: "Ada"}
	require.NoError(t, s.CreateDetail(ctx, detail))

	p := &persona.Persona{UserID: 1, Key: "work"}
	require.NoError(t, s.CreatePersona(ctx, p))

	t.Run("duplicate persona key conflicts", func(t *testing.T) {
		err := s.CreatePersona(ctx, &persona.Persona{UserID: 1, Key: "work"})

		assert.ErrorIs(t, err, persona.ErrConflict)
	})

	t.Run("same key for another user is allowed", func(t *testing.T) {
		err := s.CreatePersona(ctx, &persona.Persona{UserID: 2, Key: "work"})

		assert.NoError(t, err)
	})

	t.Run("link and list details", func(t *testing.T) {
		require.NoError(t, s.LinkDetail(ctx, p.ID, detail.ID))
		assert.ErrorIs(t, s.LinkDetail(ctx, p.ID, detail.ID), persona.ErrConflict)

		details, err := s.PersonaDetails(ctx, p.ID)
		require.NoError(t, err)
		require.Len(t, details, 1)
		assert.Equal(t, "Ada", details[0].StringValue)
	})

	t.Run("list personas", func(t *testing.T) {
		personas, err := s.ListPersonas(ctx, 1)
		require.NoError(t, err)

		require.Len(t, personas, 1)
		assert.Equal(t, "work", personas[0].Key)
	})
}

func TestMemoryStore_APIKeys(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	key := &persona.APIKey{PersonaID: 7, Prefix: "abcd1234", HashedKey: "hash"}
	require.NoError(t, s.SaveAPIKey(ctx, key))
	assert.NotZero(t, key.ID)

	assert.ErrorIs(t, s.SaveAPIKey(ctx, &persona.APIKey{PersonaID: 7, Prefix: "abcd1234"}), persona.ErrConflict)

	got, err := s.GetAPIKeyByPrefix(ctx, "abcd1234")
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.PersonaID)

	keys, err := s.ListAPIKeys(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, keys, 1)

	require.NoError(t, s.DeleteAPIKey(ctx, "abcd1234"))
	assert.ErrorIs(t, s.DeleteAPIKey(ctx, "abcd1234"), persona.ErrNotFound)

	_, err = s.GetAPIKeyByPrefix(ctx, "abcd1234")
	assert.ErrorIs(t, err, persona.ErrNotFound)
}

func TestMemoryStore_DeleteUserCascades(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	ada := &account.User{Username: "ada"}
	require.NoError(t, s.CreateUser(ctx, ada))

	bob := &account.User{Username: "bob"}
	require.NoError(t, s.CreateUser(ctx, bob))

	require.NoError(t, s.SaveSession(ctx, &account.Session{Token: "ada-tok", UserID: ada.ID}))
	require.NoError(t, s.SaveSession(ctx, &account.Session{Token: "bob-tok", UserID: bob.ID}))

	detail := &persona.Detail{UserID: ada.ID, Key: "name"}
	require.NoError(t, s.CreateDetail(ctx, detail))

	p := &persona.Persona{UserID: ada.ID, Key: "work"}
	require.NoError(t, s.CreatePersona(ctx, p))
	require.NoError(t, s.LinkDetail(ctx, p.ID, detail.ID))
	require.NoError(t, s.SaveAPIKey(ctx, &persona.APIKey{PersonaID: p.ID, Prefix: "abc"}))

	require.NoError(t, s.DeleteUser(ctx, ada.ID))

	_, err := s.GetUser(ctx, ada.ID)
	require.ErrorIs(t, err, account.ErrUserNotFound)

	_, err = s.GetUserByUsername(ctx, "ada")
	require.ErrorIs(t, err, account.ErrUserNotFound)

	_, err = s.GetSession(ctx, "ada-tok")
	require.ErrorIs(t, err, account.ErrInvalidToken)

	_, err = s.GetSession(ctx, "bob-tok")
	require.NoError(t, err)

	_, err = s.GetDetail(ctx, detail.ID)
	require.ErrorIs(t, err, persona.ErrNotFound)

	_, err = s.GetPersona(ctx, p.ID)
	require.ErrorIs(t, err, persona.ErrNotFound)

	_, err = s.GetAPIKeyByPrefix(ctx, "abc")
	require.ErrorIs(t, err, persona.ErrNotFound)

	assert.ErrorIs(t, s.DeleteUser(ctx, ada.ID), account.ErrUserNotFound)
}

func TestMemoryStore_UpdateWallet(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	ada := &account.User{Username: "ada"}
	require.NoError(t, s.CreateUser(ctx, ada))

	bob := &account.User{Username: "bob"}
	require.NoError(t, s.CreateUser(ctx, bob))

	require.NoError(t, s.UpdateWallet(ctx, ada.ID, "0xabc"))
	assert.ErrorIs(t, s.UpdateWallet(ctx, bob.ID, "0xabc"), account.ErrWalletTaken)

	t.Run("empty wallets never clash", func(t *testing.T) {
		require.NoError(t, s.UpdateWallet(ctx, ada.ID, ""))
		require.NoError(t, s.UpdateWallet(ctx, bob.ID, ""))
	})

	t.Run("unknown user", func(t *testing.T) {
		assert.ErrorIs(t, s.UpdateWallet(ctx, 999, "0x1"), account.ErrUserNotFound)
	})
}

func TestMemoryStore_DetailAndPersonaUpdates(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	name := &persona.Detail{UserID: 1, Key: "name"}
	require.NoError(t, s.CreateDetail(ctx, name))

	city := &persona.Detail{UserID: 1, Key: "city"}
	require.NoError(t, s.CreateDetail(ctx, city))

	work := &persona.Persona{UserID: 1, Key: "work"}
	require.NoError(t, s.CreatePersona(ctx, work))

	home := &persona.Persona{UserID: 1, Key: "home"}
	require.NoError(t, s.CreatePersona(ctx, home))

	t.Run("detail key clash", func(t *testing.T) {
		clash := *name
		clash.Key = "city"

		assert.ErrorIs(t, s.UpdateDetail(ctx, &clash), persona.ErrConflict)
	})

	t.Run("detail update", func(t *testing.T) {
		updated := *name
		updated.StringValue = "Ada"
		require.NoError(t, s.UpdateDetail(ctx, &updated))

		got, err := s.GetDetail(ctx, name.ID)
		require.NoError(t, err)
		assert.Equal(t, "Ada", got.StringValue)
	})

	t.Run("missing detail", func(t *testing.T) {
		assert.ErrorIs(t, s.UpdateDetail(ctx, &persona.Detail{ID: 999}), persona.ErrNotFound)
		assert.ErrorIs(t, s.DeleteDetail(ctx, 999), persona.ErrNotFound)
	})

	t.Run("persona key clash", func(t *testing.T) {
		clash := *work
		clash.Key = "home"

		assert.ErrorIs(t, s.UpdatePersona(ctx, &clash), persona.ErrConflict)
	})

	t.Run("unassigned and unlink", func(t *testing.T) {
		require.NoError(t, s.LinkDetail(ctx, work.ID, name.ID))

		unassigned, err := s.UnassignedDetails(ctx, 1, work.ID)
		require.NoError(t, err)
		require.Len(t, unassigned, 1)
		assert.Equal(t, city.ID, unassigned[0].ID)

		require.NoError(t, s.UnlinkDetail(ctx, work.ID, name.ID))
		assert.ErrorIs(t, s.UnlinkDetail(ctx, work.ID, name.ID), persona.ErrNotFound)

		unassigned, err = s.UnassignedDetails(ctx, 1, work.ID)
		require.NoError(t, err)
		assert.Len(t, unassigned, 2)
	})

	t.Run("delete detail drops its links", func(t *testing.T) {
		require.NoError(t, s.LinkDetail(ctx, home.ID, city.ID))
		require.NoError(t, s.DeleteDetail(ctx, city.ID))

		details, err := s.PersonaDetails(ctx, home.ID)
		require.NoError(t, err)
		assert.Empty(t, details)
	})

	t.Run("delete persona drops keys and links", func(t *testing.T) {
		require.NoError(t, s.LinkDetail(ctx, work.ID, name.ID))
		require.NoError(t, s.SaveAPIKey(ctx, &persona.APIKey{PersonaID: work.ID, Prefix: "k1"}))
		require.NoError(t, s.SaveAPIKey(ctx, &persona.APIKey{PersonaID: home.ID, Prefix: "k2"}))

		require.NoError(t, s.DeletePersona(ctx, work.ID))
		assert.ErrorIs(t, s.DeletePersona(ctx, work.ID), persona.ErrNotFound)

		_, err := s.GetAPIKeyByPrefix(ctx, "k1")
		require.ErrorIs(t, err, persona.ErrNotFound)

		_, err = s.GetAPIKeyByPrefix(ctx, "k2")
		require.NoError(t, err)

		_, err = s.GetDetail(ctx, name.ID)
		assert.NoError(t, err)
	})

	t.Run("delete all keys of a persona", func(t *testing.T) {
		require.NoError(t, s.SaveAPIKey(ctx, &persona.APIKey{PersonaID: home.ID, Prefix: "k3"}))

		n, err := s.DeleteAPIKeys(ctx, home.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		keys, err := s.ListAPIKeys(ctx, home.ID)
		require.NoError(t, err)
		assert.Empty(t, keys)
	})
}
