package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/learnpath/internal/apperror"
	"github.com/sakif/learnpath/internal/model"
	"github.com/sakif/learnpath/internal/repository"
)

// CompletionService records and queries lesson completions.
type CompletionService struct {
	lessons     repository.LessonRepository
	completions repository.CompletionRepository
	logger      *slog.Logger
}

func NewCompletionService(
	lessons repository.LessonRepository,
	completions repository.CompletionRepository,
	logger *slog.Logger,
) *CompletionService {
	return &CompletionService{lessons: lessons, completions: completions, logger: logger}
}

// HasCompleted reports whether userID has completed lessonID.
func (s *CompletionService) HasCompleted(ctx context.Context, userID, lessonID string) (bool, error) {
	ok, err := s.completions.CompletionExists(ctx, userID, lessonID)
	if err != nil {
		return false, fmt.Errorf("service/completion: %w", err)
	}
	return ok, nil
}

// LatestCompletedLesson returns the lesson of the user's most recent
// completion. When two completions share a timestamp the one recorded
// last wins. It returns (nil, nil) when the user has completed nothing and
// an apperror.ErrNotFound when the lesson no longer exists.
func (s *CompletionService) LatestCompletedLesson(ctx context.Context, userID string) (*model.Lesson, error) {
	completions, err := s.completions.ListCompletions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/completion: listing completions: %w", err)
	}
	if len(completions) == 0 {
		return nil, nil
	}

	latest := completions[len(completions)-1]
	lesson, err := s.lessons.GetLesson(ctx, latest.LessonID)
	if err != nil {
		return nil, fmt.Errorf("service/completion: loading latest lesson: %w", err)
	}
	return lesson, nil
}

// Complete records that userID finished lessonID. Completing a lesson
// twice keeps the first record; created reports whether a new one was made.
func (s *CompletionService) Complete(ctx context.Context, userID, lessonID string) (created bool, err error) {
	lesson, err := s.lessons.GetLesson(ctx, lessonID)
	if err != nil {
		return false, fmt.Errorf("service/completion: %w", err)
	}

	c := &model.LessonCompletion{
		StudentID: userID,
		LessonID:  lesson.ID,
		CourseID:  lesson.CourseID,
	}
	if err := s.completions.CreateCompletion(ctx, c); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return false, nil
		}
		return false, fmt.Errorf("service/completion: %w", err)
	}

	s.logger.Info("lesson completed",
		slog.String("userID", userID),
		slog.String("lessonID", lessonID),
	)
	return true, nil
}

// Uncomplete removes a completion; apperror.ErrNotFound if there was none.
func (s *CompletionService) Uncomplete(ctx context.Context, userID, lessonID string) error {
	if err := s.completions.DeleteCompletion(ctx, userID, lessonID); err != nil {
		return fmt.Errorf("service/completion: %w", err)
	}
	return nil
}
