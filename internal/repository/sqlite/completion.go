package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/sakif/learnpath/internal/apperror"
	"github.com/sakif/learnpath/internal/model"
	"github.com/sakif/learnpath/internal/repository"
)

var _ repository.CompletionRepository = (*DB)(nil)

// CreateCompletion records that a student completed a lesson.
//
// The ID comes from the AUTOINCREMENT column, so it grows with insertion
// order and never gets reused; ListCompletions relies on that to break
// timestamp ties. CreatedAt is filled in only when the caller left it zero.
// A student that does not exist (for example a deleted account whose token
// has not expired yet) is reported as apperror.ErrNotFound.
func (db *DB) CreateCompletion(ctx context.Context, c *model.LessonCompletion) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO lesson_completions (student_id, lesson_id, course_id, created_at)
		 VALUES (?, ?, ?, ?)`,
		c.StudentID,
		c.LessonID,
		c.CourseID,
		c.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("lesson completion", c.LessonID)
		}
		if isForeignKeyViolation(err) {
			return apperror.NotFound("user", c.StudentID)
		}
		return fmt.Errorf("sqlite: inserting completion (student=%s lesson=%s): %w",
			c.StudentID, c.LessonID, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading completion id: %w", err)
	}
	c.ID = id

	return nil
}

// DeleteCompletion removes the (student, lesson) completion.
// Returns apperror.ErrNotFound if there was nothing to remove.
func (db *DB) DeleteCompletion(ctx context.Context, studentID, lessonID string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM lesson_completions WHERE student_id = ? AND lesson_id = ?`,
		studentID, lessonID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting completion (student=%s lesson=%s): %w", studentID, lessonID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("lesson completion", lessonID)
	}
	return nil
}

// CompletionExists answers "has this student completed this lesson?"
// without loading the row.
func (db *DB) CompletionExists(ctx context.Context, studentID, lessonID string) (bool, error) {
	var exists bool
	err := db.conn.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM lesson_completions WHERE student_id = ? AND lesson_id = ?)`,
		studentID, lessonID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking completion existence: %w", err)
	}
	return exists, nil
}

// ListCompletions returns every completion of a student, oldest first.
// Rows sharing a created_at come back in insertion order.
func (db *DB) ListCompletions(ctx context.Context, studentID string) ([]model.LessonCompletion, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, student_id, lesson_id, course_id, created_at
		 FROM lesson_completions
		 WHERE student_id = ?
		 ORDER BY created_at ASC, id ASC`,
		studentID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing completions of %s: %w", studentID, err)
	}
	defer rows.Close()

	completions := []model.LessonCompletion{}
	for rows.Next() {
		var c model.LessonCompletion
		if err := rows.Scan(&c.ID, &c.StudentID, &c.LessonID, &c.CourseID, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning completion: %w", err)
		}
		completions = append(completions, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating completions: %w", err)
	}
	return completions, nil
}

// CompletedLessonIDs returns the IDs of the lessons a student completed in
// one course.
func (db *DB) CompletedLessonIDs(ctx context.Context, studentID, courseID string) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT lesson_id FROM lesson_completions WHERE student_id = ? AND course_id = ?`,
		studentID, courseID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing completed lessons (student=%s course=%s): %w", studentID, courseID, err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite: scanning lesson id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating lesson ids: %w", err)
	}
	return ids, nil
}
