package store

import (
	"context"
	_ "embed"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/serroba/persona-api/internal/account"
	"github.com/serroba/persona-api/internal/persona"
)

const uniqueViolation = "23505"

//go:embed schema.sql
var schema string

// PostgresStore is a PostgreSQL implementation of account.Repository and persona.Repository.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the tables when they do not exist yet.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, schema)

	return err
}

func (p *PostgresStore) CreateUser(ctx context.Context, user *account.User) error {
	query := `
		INSERT INTO users (username, password_hash, email, wallet_address, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := p.pool.QueryRow(ctx, query,
		user.Username,
		user.PasswordHash,
		nullableString(user.Email),
		nullableString(user.WalletAddress),
		user.CreatedAt,
	).Scan(&user.ID)
	if isUniqueViolation(err) {
		return account.ErrUsernameTaken
	}

	return err
}

func (p *PostgresStore) GetUserByUsername(ctx context.Context, username string) (*account.User, error) {
	return p.getUser(ctx, `WHERE username = $1`, username)
}

func (p *PostgresStore) GetUser(ctx context.Context, id int64) (*account.User, error) {
	return p.getUser(ctx, `WHERE id = $1`, id)
}

func (p *PostgresStore) getUser(ctx context.Context, where string, arg any) (*account.User, error) {
	query := `SELECT id, username, password_hash, email, wallet_address, created_at FROM users ` + where

	var (
		user          account.User
		email, wallet *string
	)

	err := p.pool.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&email,
		&wallet,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrUserNotFound
		}

		return nil, err
	}

	user.Email = deref(email)
	user.WalletAddress = deref(wallet)

	return &user, nil
}

func (p *PostgresStore) UpdateWallet(ctx context.Context, id int64, wallet string) error {
	tag, err := p.pool.Exec(ctx, `UPDATE users SET wallet_address = $2 WHERE id = $1`, id, nullableString(wallet))
	if err != nil {
		if isUniqueViolation(err) {
			return account.ErrWalletTaken
		}

		return err
	}

	if tag.RowsAffected() == 0 {
		return account.ErrUserNotFound
	}

	return nil
}

// DeleteUser relies on ON DELETE CASCADE for sessions and persona data.
func (p *PostgresStore) DeleteUser(ctx context.Context, id int64) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return account.ErrUserNotFound
	}

	return nil
}

func (p *PostgresStore) SaveSession(ctx context.Context, session *account.Session) error {
	query := `INSERT INTO sessions (token, user_id, expires_at) VALUES ($1, $2, $3)`

	_, err := p.pool.Exec(ctx, query, session.Token, session.UserID, session.ExpiresAt)

	return err
}

func (p *PostgresStore) GetSession(ctx context.Context, token string) (*account.Session, error) {
	query := `SELECT token, user_id, expires_at FROM sessions WHERE token = $1`

	var session account.Session

	err := p.pool.QueryRow(ctx, query, token).Scan(&session.Token, &session.UserID, &session.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrInvalidToken
		}

		return nil, err
	}

	return &session, nil
}

func (p *PostgresStore) CreateDetail(ctx context.Context, detail *persona.Detail) error {
	query := `
		INSERT INTO details (user_id, key, value_type, string_value, date_value, file_url, image_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	err := p.pool.QueryRow(ctx, query,
		detail.UserID,
		detail.Key,
		string(detail.ValueType),
		nullableString(detail.StringValue),
		detail.DateValue,
		nullableString(detail.FileURL),
		nullableString(detail.ImageURL),
		detail.CreatedAt,
	).Scan(&detail.ID)
	if isUniqueViolation(err) {
		return persona.ErrConflict
	}

	return err
}

const detailColumns = `d.id, d.user_id, d.key, d.value_type, d.string_value, d.date_value, d.file_url, d.image_url, d.created_at`

func (p *PostgresStore) ListDetails(ctx context.Context, userID int64) ([]persona.Detail, error) {
	query := `SELECT ` + detailColumns + ` FROM details d WHERE d.user_id = $1 ORDER BY d.id`

	return p.queryDetails(ctx, query, userID)
}

func (p *PostgresStore) GetDetail(ctx context.Context, id int64) (*persona.Detail, error) {
	query := `SELECT ` + detailColumns + ` FROM details d WHERE d.id = $1`

	details, err := p.queryDetails(ctx, query, id)
	if err != nil {
		return nil, err
	}

	if len(details) == 0 {
		return nil, persona.ErrNotFound
	}

	return &details[0], nil
}

func (p *PostgresStore) UpdateDetail(ctx context.Context, detail *persona.Detail) error {
	query := `
		UPDATE details
		SET key = $2, value_type = $3, string_value = $4, date_value = $5, file_url = $6, image_url = $7
		WHERE id = $1
	`

	tag, err := p.pool.Exec(ctx, query,
		detail.ID,
		detail.Key,
		string(detail.ValueType),
		nullableString(detail.StringValue),
		detail.DateValue,
		nullableString(detail.FileURL),
		nullableString(detail.ImageURL),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return persona.ErrConflict
		}

		return err
	}

	if tag.RowsAffected() == 0 {
		return persona.ErrNotFound
	}

	return nil
}

func (p *PostgresStore) DeleteDetail(ctx context.Context, id int64) error {
	return p.deleteByID(ctx, `DELETE FROM details WHERE id = $1`, id)
}

func (p *PostgresStore) PersonaDetails(ctx context.Context, personaID int64) ([]persona.Detail, error) {
	query := `
		SELECT ` + detailColumns + `
		FROM details d
		JOIN persona_details pd ON pd.detail_id = d.id
		WHERE pd.persona_id = $1
		ORDER BY d.id
	`

	return p.queryDetails(ctx, query, personaID)
}

func (p *PostgresStore) UnassignedDetails(ctx context.Context, userID, personaID int64) ([]persona.Detail, error) {
	query := `
		SELECT ` + detailColumns + `
		FROM details d
		WHERE d.user_id = $1
		  AND NOT EXISTS (
			SELECT 1 FROM persona_details pd WHERE pd.detail_id = d.id AND pd.persona_id = $2
		  )
		ORDER BY d.id
	`

	return p.queryDetails(ctx, query, userID, personaID)
}

func (p *PostgresStore) queryDetails(ctx context.Context, query string, args ...any) ([]persona.Detail, error) {
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (persona.Detail, error) {
		var (
			d                        persona.Detail
			valueType                string
			stringValue, file, image *string
			dateValue                *time.Time
		)

		err := row.Scan(&d.ID, &d.UserID, &d.Key, &valueType, &stringValue, &dateValue, &file, &image, &d.CreatedAt)

		d.ValueType = persona.ValueType(valueType)
		d.StringValue = deref(stringValue)
		d.DateValue = dateValue
		d.FileURL = deref(file)
		d.ImageURL = deref(image)

		return d, err
	})
}

func (p *PostgresStore) CreatePersona(ctx context.Context, pr *persona.Persona) error {
	query := `
		INSERT INTO personas (user_id, key, created_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	err := p.pool.QueryRow(ctx, query, pr.UserID, pr.Key, pr.CreatedAt).Scan(&pr.ID)
	if isUniqueViolation(err) {
		return persona.ErrConflict
	}

	return err
}

func (p *PostgresStore) ListPersonas(ctx context.Context, userID int64) ([]persona.Persona, error) {
	query := `SELECT id, user_id, key, created_at FROM personas WHERE user_id = $1 ORDER BY id`

	rows, err := p.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, scanPersona)
}

func (p *PostgresStore) GetPersona(ctx context.Context, id int64) (*persona.Persona, error) {
	query := `SELECT id, user_id, key, created_at FROM personas WHERE id = $1`

	rows, err := p.pool.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}

	pr, err := pgx.CollectOneRow(rows, scanPersona)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, persona.ErrNotFound
		}

		return nil, err
	}

	return &pr, nil
}

func (p *PostgresStore) UpdatePersona(ctx context.Context, pr *persona.Persona) error {
	tag, err := p.pool.Exec(ctx, `UPDATE personas SET key = $2 WHERE id = $1`, pr.ID, pr.Key)
	if err != nil {
		if isUniqueViolation(err) {
			return persona.ErrConflict
		}

		return err
	}

	if tag.RowsAffected() == 0 {
		return persona.ErrNotFound
	}

	return nil
}

// DeletePersona relies on ON DELETE CASCADE for links and API keys.
func (p *PostgresStore) DeletePersona(ctx context.Context, id int64) error {
	return p.deleteByID(ctx, `DELETE FROM personas WHERE id = $1`, id)
}

func scanPersona(row pgx.CollectableRow) (persona.Persona, error) {
	var pr persona.Persona

	err := row.Scan(&pr.ID, &pr.UserID, &pr.Key, &pr.CreatedAt)

	return pr, err
}

func (p *PostgresStore) LinkDetail(ctx context.Context, personaID, detailID int64) error {
	query := `INSERT INTO persona_details (persona_id, detail_id) VALUES ($1, $2)`

	_, err := p.pool.Exec(ctx, query, personaID, detailID)
	if isUniqueViolation(err) {
		return persona.ErrConflict
	}

	return err
}

func (p *PostgresStore) UnlinkDetail(ctx context.Context, personaID, detailID int64) error {
	return p.deleteByID(ctx, `DELETE FROM persona_details WHERE persona_id = $1 AND detail_id = $2`, personaID, detailID)
}

func (p *PostgresStore) SaveAPIKey(ctx context.Context, key *persona.APIKey) error {
	query := `
		INSERT INTO persona_api_keys (persona_id, prefix, hashed_key, name, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := p.pool.QueryRow(ctx, query,
		key.PersonaID,
		key.Prefix,
		key.HashedKey,
		key.Name,
		key.Description,
		key.CreatedAt,
	).Scan(&key.ID)
	if isUniqueViolation(err) {
		return persona.ErrConflict
	}

	return err
}

const apiKeyColumns = `id, persona_id, prefix, hashed_key, name, description, created_at`

func (p *PostgresStore) GetAPIKeyByPrefix(ctx context.Context, prefix string) (*persona.APIKey, error) {
	query := `SELECT ` + apiKeyColumns + ` FROM persona_api_keys WHERE prefix = $1`

	rows, err := p.pool.Query(ctx, query, prefix)
	if err != nil {
		return nil, err
	}

	key, err := pgx.CollectOneRow(rows, scanAPIKey)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, persona.ErrNotFound
		}

		return nil, err
	}

	return &key, nil
}

func (p *PostgresStore) ListAPIKeys(ctx context.Context, personaID int64) ([]persona.APIKey, error) {
	query := `SELECT ` + apiKeyColumns + ` FROM persona_api_keys WHERE persona_id = $1 ORDER BY id`

	rows, err := p.pool.Query(ctx, query, personaID)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, scanAPIKey)
}

func scanAPIKey(row pgx.CollectableRow) (persona.APIKey, error) {
	var key persona.APIKey

	err := row.Scan(&key.ID, &key.PersonaID, &key.Prefix, &key.HashedKey, &key.Name, &key.Description, &key.CreatedAt)

	return key, err
}

func (p *PostgresStore) DeleteAPIKey(ctx context.Context, prefix string) error {
	return p.deleteByID(ctx, `DELETE FROM persona_api_keys WHERE prefix = $1`, prefix)
}

func (p *PostgresStore) DeleteAPIKeys(ctx context.Context, personaID int64) (int64, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM persona_api_keys WHERE persona_id = $1`, personaID)
	if err != nil {
		return 0, err
	}

	return tag.RowsAffected(), nil
}

// deleteByID runs a single-row delete and maps "no row" to persona.ErrNotFound.
func (p *PostgresStore) deleteByID(ctx context.Context, query string, args ...any) error {
	tag, err := p.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return persona.ErrNotFound
	}

	return nil
}

// Ping checks database connectivity.
func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Shutdown closes the connection pool.
func (p *PostgresStore) Shutdown() error {
	p.pool.Close()

	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}

// Compile-time checks.
var (
	_ account.Repository = (*PostgresStore)(nil)
	_ persona.Repository = (*PostgresStore)(nil)
)
