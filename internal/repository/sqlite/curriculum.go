package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/learnpath/internal/model"
	"github.com/sakif/learnpath/internal/repository"
)

var (
	_ repository.TrackRepository  = (*DB)(nil)
	_ repository.LessonRepository = (*DB)(nil)
)

// CreateTrack inserts a track. The HTTP API treats the curriculum as
// read-only; content is loaded with the Upsert methods below.
func (db *DB) CreateTrack(ctx context.Context, t *model.Track) error {
	if t.ID == "" {
		t.ID = xid.New().String()
	}
	t.CreatedAt = time.Now().UTC()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO tracks (id, title, description, position, created_at) VALUES (?, ?, ?, ?, ?)`,
		t.ID, t.Title, t.Description, t.Position, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting track %q: %w", t.Title, err)
	}
	return nil
}

// CreateCourse inserts a course into an existing track.
func (db *DB) CreateCourse(ctx context.Context, c *model.Course) error {
	if c.ID == "" {
		c.ID = xid.New().String()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO courses (id, track_id, title, position) VALUES (?, ?, ?, ?)`,
		c.ID, c.TrackID, c.Title, c.Position,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting course %q: %w", c.Title, err)
	}
	return nil
}

// CreateLesson inserts a lesson into an existing course.
func (db *DB) CreateLesson(ctx context.Context, l *model.Lesson) error {
	if l.ID == "" {
		l.ID = xid.New().String()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO lessons (id, course_id, title, position, is_project) VALUES (?, ?, ?, ?, ?)`,
		l.ID, l.CourseID, l.Title, l.Position, l.IsProject,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting lesson %q: %w", l.Title, err)
	}
	return nil
}

// UpsertTrack inserts t, or updates the track with t.ID in place. The
// catalog seeder uses it so loading the same file twice is harmless.
func (db *DB) UpsertTrack(ctx context.Context, t *model.Track) error {
	if t.ID == "" {
		return fmt.Errorf("sqlite: upserting track %q: missing id", t.Title)
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO tracks (id, title, description, position, created_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		     title = excluded.title, description = excluded.description, position = excluded.position`,
		t.ID, t.Title, t.Description, t.Position, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: upserting track %s: %w", t.ID, err)
	}
	return nil
}

// UpsertCourse inserts c, or updates the course with c.ID in place.
func (db *DB) UpsertCourse(ctx context.Context, c *model.Course) error {
	if c.ID == "" {
		return fmt.Errorf("sqlite: upserting course %q: missing id", c.Title)
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO courses (id, track_id, title, position) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		     track_id = excluded.track_id, title = excluded.title, position = excluded.position`,
		c.ID, c.TrackID, c.Title, c.Position,
	)
	if err != nil {
		return fmt.Errorf("sqlite: upserting course %s: %w", c.ID, err)
	}
	return nil
}

// UpsertLesson inserts l, or updates the lesson with l.ID in place.
// Completions refer to lessons by ID, so they survive the update.
func (db *DB) UpsertLesson(ctx context.Context, l *model.Lesson) error {
	if l.ID == "" {
		return fmt.Errorf("sqlite: upserting lesson %q: missing id", l.Title)
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO lessons (id, course_id, title, position, is_project) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		     course_id = excluded.course_id, title = excluded.title,
		     position = excluded.position, is_project = excluded.is_project`,
		l.ID, l.CourseID, l.Title, l.Position, l.IsProject,
	)
	if err != nil {
		return fmt.Errorf("sqlite: upserting lesson %s: %w", l.ID, err)
	}
	return nil
}

// DeleteLesson removes a lesson from the catalog. Completions that point
// at it are left in place.
func (db *DB) DeleteLesson(ctx context.Context, id string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM lessons WHERE id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: deleting lesson %s: %w", id, err)
	}
	return nil
}

// ListTracks returns every track ordered by position.
func (db *DB) ListTracks(ctx context.Context) ([]model.Track, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, title, description, position, created_at
		 FROM tracks ORDER BY position ASC, title ASC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing tracks: %w", err)
	}
	defer rows.Close()

	tracks := []model.Track{}
	for rows.Next() {
		var t model.Track
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.Position, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning track: %w", err)
		}
		tracks = append(tracks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating tracks: %w", err)
	}
	return tracks, nil
}

// GetTrack returns one track or apperror.ErrNotFound.
func (db *DB) GetTrack(ctx context.Context, id string) (*model.Track, error) {
	var t model.Track
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, title, description, position, created_at FROM tracks WHERE id = ?`, id,
	).Scan(&t.ID, &t.Title, &t.Description, &t.Position, &t.CreatedAt)
	if err != nil {
		return nil, notFoundOr(err, "track", id, "getting")
	}
	return &t, nil
}

// GetCourse returns one course or apperror.ErrNotFound.
func (db *DB) GetCourse(ctx context.Context, id string) (*model.Course, error) {
	var c model.Course
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, track_id, title, position FROM courses WHERE id = ?`, id,
	).Scan(&c.ID, &c.TrackID, &c.Title, &c.Position)
	if err != nil {
		return nil, notFoundOr(err, "course", id, "getting")
	}
	return &c, nil
}

// ListCourses returns the courses of a track ordered by position.
func (db *DB) ListCourses(ctx context.Context, trackID string) ([]model.Course, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, track_id, title, position
		 FROM courses WHERE track_id = ? ORDER BY position ASC`, trackID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing courses of track %s: %w", trackID, err)
	}
	defer rows.Close()

	courses := []model.Course{}
	for rows.Next() {
		var c model.Course
		if err := rows.Scan(&c.ID, &c.TrackID, &c.Title, &c.Position); err != nil {
			return nil, fmt.Errorf("sqlite: scanning course: %w", err)
		}
		courses = append(courses, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating courses: %w", err)
	}
	return courses, nil
}

// GetLesson looks a lesson up by ID.
// Returns apperror.ErrNotFound if the lesson is not in the catalog.
func (db *DB) GetLesson(ctx context.Context, id string) (*model.Lesson, error) {
	var l model.Lesson
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, course_id, title, position, is_project FROM lessons WHERE id = ?`, id,
	).Scan(&l.ID, &l.CourseID, &l.Title, &l.Position, &l.IsProject)
	if err != nil {
		return nil, notFoundOr(err, "lesson", id, "getting")
	}
	return &l, nil
}

// ListLessons returns the lessons of a course ordered by position.
func (db *DB) ListLessons(ctx context.Context, courseID string) ([]model.Lesson, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, course_id, title, position, is_project
		 FROM lessons WHERE course_id = ? ORDER BY position ASC`, courseID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing lessons of course %s: %w", courseID, err)
	}
	defer rows.Close()

	lessons := []model.Lesson{}
	for rows.Next() {
		var l model.Lesson
		if err := rows.Scan(&l.ID, &l.CourseID, &l.Title, &l.Position, &l.IsProject); err != nil {
			return nil, fmt.Errorf("sqlite: scanning lesson: %w", err)
		}
		lessons = append(lessons, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating lessons: %w", err)
	}
	return lessons, nil
}
