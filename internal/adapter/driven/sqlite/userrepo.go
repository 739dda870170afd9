package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ericfisherdev/reviewdesk/internal/domain/model"
	"github.com/ericfisherdev/reviewdesk/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.UserStore = (*UserRepo)(nil)

const userColumns = `id, username, first_name, last_name, email, password_hash, is_active, is_staff, date_joined`

// UserRepo is the SQLite implementation of the UserStore port interface.
type UserRepo struct {
	db *DB
}

// NewUserRepo creates a new UserRepo backed by the given DB.
func NewUserRepo(db *DB) *UserRepo {
	return &UserRepo{db: db}
}

// Create inserts a new user. Returns driven.ErrAlreadyExists when the
// username is taken.
func (r *UserRepo) Create(ctx context.Context, user model.User) (model.User, error) {
	const query = `INSERT INTO users (username, first_name, last_name, email, password_hash, is_active, is_staff, date_joined)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	if user.DateJoined.IsZero() {
		user.DateJoined = nowUTC()
	}

	result, err := r.db.Writer.ExecContext(ctx, query,
		user.Username, user.FirstName, user.LastName, user.Email, user.PasswordHash,
		boolToInt(user.IsActive), boolToInt(user.IsStaff), formatTime(user.DateJoined),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.User{}, fmt.Errorf("create user %s: %w", user.Username, driven.ErrAlreadyExists)
		}
		return model.User{}, fmt.Errorf("create user %s: %w", user.Username, err)
	}

	user.ID, err = result.LastInsertId()
	if err != nil {
		return model.User{}, fmt.Errorf("get user id: %w", err)
	}

	return user, nil
}

// GetByID retrieves a user by primary key.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = ?`

	user, err := scanUser(r.db.Reader.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get user %d: %w", id, driven.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}

	return user, nil
}

// GetByUsername retrieves a user by username. Returns nil, nil if the user
// does not exist.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE username = ?`

	user, err := scanUser(r.db.Reader.QueryRowContext(ctx, query, username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", username, err)
	}

	return user, nil
}

// GetByUsernames returns the matching users in the order requested.
func (r *UserRepo) GetByUsernames(ctx context.Context, usernames []string) ([]model.User, error) {
	if len(usernames) == 0 {
		return nil, nil
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE username IN (` + placeholders(len(usernames)) + `)`
	args := make([]any, len(usernames))
	for i, name := range usernames {
		args[i] = name
	}

	users, err := r.queryUsers(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]model.User, len(users))
	for _, u := range users {
		byName[u.Username] = u
	}

	ordered := make([]model.User, 0, len(users))
	for _, name := range usernames {
		if u, ok := byName[name]; ok {
			ordered = append(ordered, u)
			delete(byName, name)
		}
	}

	return ordered, nil
}

// Update persists every mutable column of the user.
func (r *UserRepo) Update(ctx context.Context, user model.User) error {
	const query = `UPDATE users SET first_name = ?, last_name = ?, email = ?, password_hash = ?, is_active = ?, is_staff = ?
		WHERE id = ?`

	result, err := r.db.Writer.ExecContext(ctx, query,
		user.FirstName, user.LastName, user.Email, user.PasswordHash,
		boolToInt(user.IsActive), boolToInt(user.IsStaff), user.ID,
	)
	if err != nil {
		return fmt.Errorf("update user %s: %w", user.Username, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("update user %s: %w", user.Username, driven.ErrNotFound)
	}

	return nil
}

// ListActive returns all active users ordered by username.
func (r *UserRepo) ListActive(ctx context.Context) ([]model.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE is_active = 1 ORDER BY username`
	return r.queryUsers(ctx, query)
}

// GetProfile returns the stored profile or the default one.
func (r *UserRepo) GetProfile(ctx context.Context, userID int64) (model.Profile, error) {
	const query = `SELECT user_id, timezone, syntax_highlighting, open_an_issue, is_private FROM profiles WHERE user_id = ?`

	var p model.Profile
	err := r.db.Reader.QueryRowContext(ctx, query, userID).Scan(
		&p.UserID, &p.Timezone, &p.SyntaxHighlighting, &p.OpenAnIssue, &p.IsPrivate,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.DefaultProfile(userID), nil
	}
	if err != nil {
		return model.Profile{}, fmt.Errorf("get profile for user %d: %w", userID, err)
	}

	return p, nil
}

// SaveProfile inserts or replaces the user's profile.
func (r *UserRepo) SaveProfile(ctx context.Context, profile model.Profile) error {
	const query = `INSERT INTO profiles (user_id, timezone, syntax_highlighting, open_an_issue, is_private)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			timezone = excluded.timezone,
			syntax_highlighting = excluded.syntax_highlighting,
			open_an_issue = excluded.open_an_issue,
			is_private = excluded.is_private`

	_, err := r.db.Writer.ExecContext(ctx, query,
		profile.UserID, profile.Timezone, boolToInt(profile.SyntaxHighlighting),
		boolToInt(profile.OpenAnIssue), boolToInt(profile.IsPrivate),
	)
	if err != nil {
		return fmt.Errorf("save profile for user %d: %w", profile.UserID, err)
	}

	return nil
}

func (r *UserRepo) queryUsers(ctx context.Context, query string, args ...any) ([]model.User, error) {
	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}

	return users, nil
}

func scanUser(s scanner) (*model.User, error) {
	var u model.User
	var dateJoined string

	err := s.Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.Email,
		&u.PasswordHash, &u.IsActive, &u.IsStaff, &dateJoined)
	if err != nil {
		return nil, err
	}

	u.DateJoined, err = parseTime(dateJoined)
	if err != nil {
		return nil, fmt.Errorf("parse date_joined: %w", err)
	}

	return &u, nil
}
