package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/learnpath/internal/apperror"
	"github.com/sakif/learnpath/internal/model"
	"github.com/sakif/learnpath/internal/repository"
)

var (
	_ repository.SubmissionRepository = (*DB)(nil)
	_ repository.ProviderRepository   = (*DB)(nil)
)

// CreateSubmission stores a project submission. A user gets one submission
// per lesson; a second one fails with apperror.ErrConflict.
func (db *DB) CreateSubmission(ctx context.Context, s *model.ProjectSubmission) error {
	now := time.Now().UTC()
	s.ID = xid.New().String()
	s.CreatedAt = now
	s.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO project_submissions (id, user_id, lesson_id, repo_url, live_url, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.LessonID, s.RepoURL, s.LiveURL, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("project submission", s.LessonID)
		}
		if isForeignKeyViolation(err) {
			return apperror.NotFound("user", s.UserID)
		}
		return fmt.Errorf("sqlite: inserting submission (user=%s lesson=%s): %w", s.UserID, s.LessonID, err)
	}
	return nil
}

// ListSubmissions returns a user's submissions, newest first.
func (db *DB) ListSubmissions(ctx context.Context, userID string) ([]model.ProjectSubmission, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, lesson_id, repo_url, live_url, created_at, updated_at
		 FROM project_submissions WHERE user_id = ?
		 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing submissions of %s: %w", userID, err)
	}
	defer rows.Close()

	subs := []model.ProjectSubmission{}
	for rows.Next() {
		var s model.ProjectSubmission
		if err := rows.Scan(&s.ID, &s.UserID, &s.LessonID, &s.RepoURL, &s.LiveURL, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning submission: %w", err)
		}
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating submissions: %w", err)
	}
	return subs, nil
}

// LinkProvider links an external identity to a user. Linking an identity
// that already belongs to an account fails with apperror.ErrConflict, and
// linking to a missing user with apperror.ErrNotFound.
func (db *DB) LinkProvider(ctx context.Context, p *model.UserProvider) error {
	return linkProvider(ctx, db.conn, p)
}

// CreateUserWithProvider inserts a user and its first provider link in one
// transaction, so a failed link never leaves an account behind.
func (db *DB) CreateUserWithProvider(ctx context.Context, user *model.User, p *model.UserProvider) error {
	return db.WithinTx(ctx, func(tx *sql.Tx) error {
		if err := db.createUser(ctx, tx, user); err != nil {
			return err
		}
		p.UserID = user.ID
		return linkProvider(ctx, tx, p)
	})
}

func linkProvider(ctx context.Context, q querier, p *model.UserProvider) error {
	p.ID = xid.New().String()
	p.CreatedAt = time.Now().UTC()

	_, err := q.ExecContext(ctx,
		`INSERT INTO user_providers (id, user_id, provider, uid, created_at) VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.Provider, p.UID, p.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict(p.Provider+" identity", p.UID)
		}
		if isForeignKeyViolation(err) {
			return apperror.NotFound("user", p.UserID)
		}
		return fmt.Errorf("sqlite: linking %s identity to user %s: %w", p.Provider, p.UserID, err)
	}
	return nil
}

// FindUserIDByProvider returns the ID of the user linked to the given
// external identity, or apperror.ErrNotFound.
func (db *DB) FindUserIDByProvider(ctx context.Context, provider, uid string) (string, error) {
	var userID string
	err := db.conn.QueryRowContext(ctx,
		`SELECT user_id FROM user_providers WHERE provider = ? AND uid = ?`,
		provider, uid,
	).Scan(&userID)
	if err != nil {
		return "", notFoundOr(err, provider+" identity", uid, "looking up")
	}
	return userID, nil
}

// ListProviders returns every identity linked to a user.
func (db *DB) ListProviders(ctx context.Context, userID string) ([]model.UserProvider, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, provider, uid, created_at
		 FROM user_providers WHERE user_id = ? ORDER BY created_at ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing providers of %s: %w", userID, err)
	}
	defer rows.Close()

	providers := []model.UserProvider{}
	for rows.Next() {
		var p model.UserProvider
		if err := rows.Scan(&p.ID, &p.UserID, &p.Provider, &p.UID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning provider: %w", err)
		}
		providers = append(providers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating providers: %w", err)
	}
	return providers, nil
}
