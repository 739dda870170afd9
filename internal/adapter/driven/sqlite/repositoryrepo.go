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
var _ driven.RepositoryStore = (*RepositoryRepo)(nil)

const repositoryColumns = `id, name, path, tool, bug_tracker, hosting_repo, local_site_id, added_at`

// RepositoryRepo is the SQLite implementation of the RepositoryStore port interface.
type RepositoryRepo struct {
	db *DB
}

// NewRepositoryRepo creates a new RepositoryRepo backed by the given DB.
func NewRepositoryRepo(db *DB) *RepositoryRepo {
	return &RepositoryRepo{db: db}
}

// Create inserts a new repository. Returns driven.ErrAlreadyExists if a
// repository with the same name already exists on the local site.
func (r *RepositoryRepo) Create(ctx context.Context, repo model.Repository) (model.Repository, error) {
	const query = `INSERT INTO repositories (name, path, tool, bug_tracker, hosting_repo, local_site_id, added_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	if repo.AddedAt.IsZero() {
		repo.AddedAt = nowUTC()
	}
	if repo.Tool == "" {
		repo.Tool = "git"
	}

	result, err := r.db.Writer.ExecContext(ctx, query,
		repo.Name, repo.Path, repo.Tool, repo.BugTracker, repo.HostingRepo,
		nullableID(repo.LocalSiteID), formatTime(repo.AddedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.Repository{}, fmt.Errorf("add repository %s: %w", repo.Name, driven.ErrAlreadyExists)
		}
		return model.Repository{}, fmt.Errorf("add repository %s: %w", repo.Name, err)
	}

	repo.ID, err = result.LastInsertId()
	if err != nil {
		return model.Repository{}, fmt.Errorf("get repository id: %w", err)
	}

	return repo, nil
}

// GetByID retrieves a repository by primary key.
func (r *RepositoryRepo) GetByID(ctx context.Context, id int64) (*model.Repository, error) {
	const query = `SELECT ` + repositoryColumns + ` FROM repositories WHERE id = ?`

	repo, err := scanRepository(r.db.Reader.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get repository %d: %w", id, driven.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get repository %d: %w", id, err)
	}

	return repo, nil
}

// ListAll returns all repositories ordered by name.
func (r *RepositoryRepo) ListAll(ctx context.Context) ([]model.Repository, error) {
	const query = `SELECT ` + repositoryColumns + ` FROM repositories ORDER BY name`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list repositories: %w", err)
	}
	defer rows.Close()

	var repos []model.Repository
	for rows.Next() {
		repo, err := scanRepository(rows)
		if err != nil {
			return nil, fmt.Errorf("scan repository: %w", err)
		}
		repos = append(repos, *repo)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate repositories: %w", err)
	}

	return repos, nil
}

func scanRepository(s scanner) (*model.Repository, error) {
	var repo model.Repository
	var localSiteID sql.NullInt64
	var addedAt string

	err := s.Scan(&repo.ID, &repo.Name, &repo.Path, &repo.Tool, &repo.BugTracker,
		&repo.HostingRepo, &localSiteID, &addedAt)
	if err != nil {
		return nil, err
	}
	repo.LocalSiteID = idPtr(localSiteID)

	repo.AddedAt, err = parseTime(addedAt)
	if err != nil {
		return nil, fmt.Errorf("parse added_at: %w", err)
	}

	return &repo, nil
}
