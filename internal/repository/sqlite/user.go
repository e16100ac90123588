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

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, email, username, learning_goal, track_id, password_hash,
	provider, uid, avatar_url, created_at, updated_at`

// emailTaken is the error every write returns when the UNIQUE index on
// users.email rejects the row. The service layer checks first, so this
// only fires when two registrations race.
func emailTaken() error {
	return apperror.ValidationFailed("email", "email has already been taken")
}

// Create inserts a new user, generating its ID and timestamps.
func (db *DB) Create(ctx context.Context, user *model.User) error {
	return db.createUser(ctx, db.conn, user)
}

func (db *DB) createUser(ctx context.Context, q querier, user *model.User) error {
	now := time.Now().UTC()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := q.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Email,
		user.Username,
		user.LearningGoal,
		user.TrackID,
		user.PasswordHash,
		user.Provider,
		user.UID,
		user.AvatarURL,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return emailTaken()
		}
		return fmt.Errorf("sqlite: inserting user (email=%s): %w", user.Email, err)
	}

	return nil
}

// Update writes every mutable column of an existing user.
func (db *DB) Update(ctx context.Context, user *model.User) error {
	user.UpdatedAt = time.Now().UTC()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE users
		 SET email = ?, username = ?, learning_goal = ?, track_id = ?, password_hash = ?,
		     provider = ?, uid = ?, avatar_url = ?, updated_at = ?
		 WHERE id = ?`,
		user.Email,
		user.Username,
		user.LearningGoal,
		user.TrackID,
		user.PasswordHash,
		user.Provider,
		user.UID,
		user.AvatarURL,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return emailTaken()
		}
		return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("user", user.ID)
	}

	return nil
}

// Delete removes a user and everything the user owns.
//
// Dependents are deleted explicitly in the same transaction as the user
// row, on top of the ON DELETE CASCADE rules. Either every row goes or
// none does.
func (db *DB) Delete(ctx context.Context, id string) error {
	return db.WithinTx(ctx, func(tx *sql.Tx) error {
		dependents := []struct {
			table, column string
		}{
			{"lesson_completions", "student_id"},
			{"project_submissions", "user_id"},
			{"user_providers", "user_id"},
		}
		for _, d := range dependents {
			if _, err := tx.ExecContext(ctx,
				fmt.Sprintf(`DELETE FROM %s WHERE %s = ?`, d.table, d.column), id,
			); err != nil {
				return fmt.Errorf("sqlite: deleting %s of user %s: %w", d.table, id, err)
			}
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("sqlite: deleting user %s: %w", id, err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: checking rows affected: %w", err)
		}
		if rows == 0 {
			return apperror.NotFound("user", id)
		}
		return nil
	})
}

// GetUserByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)

	u, err := scanUser(row)
	if err != nil {
		return nil, notFoundOr(err, "user", id, "getting")
	}
	return u, nil
}

// GetUserByEmail looks a user up by (already normalised) email.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)

	u, err := scanUser(row)
	if err != nil {
		return nil, notFoundOr(err, "user", email, "getting")
	}
	return u, nil
}

// EmailTaken reports whether another user (any ID other than exceptID)
// already uses email. Pass an empty exceptID when creating.
func (db *DB) EmailTaken(ctx context.Context, email, exceptID string) (bool, error) {
	var taken bool
	err := db.conn.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE email = ? AND id <> ?)`,
		email, exceptID,
	).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking email uniqueness: %w", err)
	}
	return taken, nil
}

func scanUser(row *sql.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Username,
		&u.LearningGoal,
		&u.TrackID,
		&u.PasswordHash,
		&u.Provider,
		&u.UID,
		&u.AvatarURL,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
