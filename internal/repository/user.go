package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/RealZimboGuy/reviewflow/pkg/reviewflow/core"
	"github.com/RealZimboGuy/reviewflow/pkg/reviewflow/domain"
)

// UserRepository provides persistence methods for the users table.
type UserRepository struct {
	db    *sql.DB
	clock core.Clock
}

func NewUserRepository(db *sql.DB, clock core.Clock) *UserRepository {
	return &UserRepository{db: db, clock: clock}
}

const userColumns = `id, username, password, role, session_id, api_key, session_expiry, created, enabled`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(s rowScanner) (*domain.User, error) {
	var u domain.User
	err := s.Scan(
		&u.ID,
		&u.Username,
		&u.Password,
		&u.Role,
		&u.SessionID,
		&u.ApiKey,
		&u.SessionExpiry,
		&u.Created,
		&u.Enabled,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Save inserts a new user and returns its generated id.
// It will set Created to now if it's not provided (null or zero).
func (r *UserRepository) Save(ctx context.Context, u *domain.User) (int64, error) {
	if !u.Created.Valid {
		u.Created = sql.NullTime{Time: r.clock.Now().UTC(), Valid: true}
	}
	if u.Role == "" {
		u.Role = domain.RoleAuthor
	}
	if !u.Enabled.Valid {
		u.Enabled = sql.NullBool{Bool: true, Valid: true}
	}

	base := `
        INSERT INTO users (username, password, role, session_id, api_key, session_expiry, created, enabled)
        VALUES (` + placeholders(1, 8) + `)
    `
	args := []any{
		u.Username,
		u.Password,
		u.Role,
		u.SessionID,
		u.ApiKey,
		u.SessionExpiry,
		formatDateInDatabase(u.Created.Time),
		u.Enabled,
	}

	var id int64
	if supportsReturning() {
		if err := r.db.QueryRowContext(ctx, base+" RETURNING id", args...).Scan(&id); err != nil {
			return 0, err
		}
	} else {
		res, err := r.db.ExecContext(ctx, base, args...)
		if err != nil {
			return 0, err
		}
		if id, err = res.LastInsertId(); err != nil {
			return 0, err
		}
	}
	u.ID = id
	return id, nil
}

// FindByUsername fetches a user by exact username. Returns (nil, nil) if not found.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT `+userColumns+`
        FROM users
        WHERE username = `+placeholder(1)+`
        LIMIT 1
    `, username)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

// FindBySessionID fetches a user by session_id and ensures session_expiry is in the future.
func (r *UserRepository) FindBySessionID(ctx context.Context, sessionID string, now time.Time) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT `+userColumns+`
        FROM users
        WHERE session_id = `+placeholder(1)+` AND session_expiry > `+placeholder(2)+`
        LIMIT 1
    `, sessionID, formatDateInDatabase(now))
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

// FindByApiKey fetches a user by api_key (exact match). Returns (nil, nil) if not found.
func (r *UserRepository) FindByApiKey(ctx context.Context, apiKey string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT `+userColumns+`
        FROM users
        WHERE api_key = `+placeholder(1)+`
        LIMIT 1
    `, apiKey)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

// UpdateSession sets session_id and session_expiry for a user by id.
func (r *UserRepository) UpdateSession(ctx context.Context, userID int64, sessionID string, expiry time.Time) error {
	_, err := r.db.ExecContext(ctx, `
        UPDATE users
        SET session_id = `+placeholder(1)+`, session_expiry = `+placeholder(2)+`
        WHERE id = `+placeholder(3),
		sessionID, formatDateInDatabase(expiry), userID)
	return err
}

// ClearSessionBySessionID nulls session_id and session_expiry for the user with the given current session_id.
func (r *UserRepository) ClearSessionBySessionID(ctx context.Context, sessionID string) error {
	_, err := r.db.ExecContext(ctx, `
        UPDATE users
        SET session_id = NULL, session_expiry = NULL
        WHERE session_id = `+placeholder(1), sessionID)
	return err
}

// FindAll returns all users ordered by id ascending.
func (r *UserRepository) FindAll(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT `+userColumns+`
        FROM users
        ORDER BY id ASC
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}
