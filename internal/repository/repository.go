// Package repository declares the persistence boundary.
//
// Services depend on these interfaces only; internal/repository/sqlite
// provides the production implementation and tests use in-memory fakes.
package repository

import (
	"context"

	"github.com/sakif/learnpath/internal/model"
)

// UserRepository stores user accounts.
//
// Create and Update must fail with an apperror.ErrValidation on the
// "email" field when the email is already taken by another account.
// Delete removes the user's completions, submissions and provider links
// in the same transaction as the user row.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id string) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	EmailTaken(ctx context.Context, email, exceptID string) (bool, error)
}

// TrackRepository reads the curriculum structure above lessons.
type TrackRepository interface {
	ListTracks(ctx context.Context) ([]model.Track, error)
	GetTrack(ctx context.Context, id string) (*model.Track, error)
	GetCourse(ctx context.Context, id string) (*model.Course, error)
	ListCourses(ctx context.Context, trackID string) ([]model.Course, error)
}

// LessonRepository is the lesson catalog.
type LessonRepository interface {
	GetLesson(ctx context.Context, id string) (*model.Lesson, error)
	ListLessons(ctx context.Context, courseID string) ([]model.Lesson, error)
}

// CompletionRepository stores lesson completions.
type CompletionRepository interface {
	// CreateCompletion inserts a completion and fills in ID and CreatedAt
	// (CreatedAt only when zero). Returns apperror.ErrConflict if the
	// student already completed the lesson.
	CreateCompletion(ctx context.Context, c *model.LessonCompletion) error
	DeleteCompletion(ctx context.Context, studentID, lessonID string) error
	CompletionExists(ctx context.Context, studentID, lessonID string) (bool, error)
	// ListCompletions returns the student's completions ordered by
	// creation time ascending, insertion order breaking ties.
	ListCompletions(ctx context.Context, studentID string) ([]model.LessonCompletion, error)
	CompletedLessonIDs(ctx context.Context, studentID, courseID string) ([]string, error)
}

// SubmissionRepository stores project submissions.
type SubmissionRepository interface {
	CreateSubmission(ctx context.Context, s *model.ProjectSubmission) error
	ListSubmissions(ctx context.Context, userID string) ([]model.ProjectSubmission, error)
}

// ProviderRepository stores links to external identity providers.
type ProviderRepository interface {
	LinkProvider(ctx context.Context, p *model.UserProvider) error
	// CreateUserWithProvider inserts user and links p to it atomically.
	CreateUserWithProvider(ctx context.Context, user *model.User, p *model.UserProvider) error
	FindUserIDByProvider(ctx context.Context, provider, uid string) (string, error)
	ListProviders(ctx context.Context, userID string) ([]model.UserProvider, error)
}
