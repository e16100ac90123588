package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/sakif/learnpath/internal/apperror"
	"github.com/sakif/learnpath/internal/model"
	"github.com/sakif/learnpath/internal/repository"
)

// SubmissionService handles project submissions.
type SubmissionService struct {
	lessons     repository.LessonRepository
	submissions repository.SubmissionRepository
	logger      *slog.Logger
}

func NewSubmissionService(
	lessons repository.LessonRepository,
	submissions repository.SubmissionRepository,
	logger *slog.Logger,
) *SubmissionService {
	return &SubmissionService{lessons: lessons, submissions: submissions, logger: logger}
}

// Submit stores the learner's solution to a project lesson. repoURL is
// required and liveURL optional; both must be absolute http(s) URLs.
func (s *SubmissionService) Submit(ctx context.Context, userID, lessonID, repoURL, liveURL string) (*model.ProjectSubmission, error) {
	repoURL = strings.TrimSpace(repoURL)
	liveURL = strings.TrimSpace(liveURL)

	var errs []error
	if repoURL == "" {
		errs = append(errs, apperror.ValidationFailed("repoUrl", "repo url can't be blank"))
	} else if !isWebURL(repoURL) {
		errs = append(errs, apperror.ValidationFailed("repoUrl", "repo url is invalid"))
	}
	if liveURL != "" && !isWebURL(liveURL) {
		errs = append(errs, apperror.ValidationFailed("liveUrl", "live url is invalid"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	lesson, err := s.lessons.GetLesson(ctx, lessonID)
	if err != nil {
		return nil, fmt.Errorf("service/submission: %w", err)
	}
	if !lesson.IsProject {
		return nil, apperror.ValidationFailed("lessonId", "lesson is not a project")
	}

	sub := &model.ProjectSubmission{
		UserID:   userID,
		LessonID: lesson.ID,
		RepoURL:  repoURL,
		LiveURL:  liveURL,
	}
	if err := s.submissions.CreateSubmission(ctx, sub); err != nil {
		return nil, fmt.Errorf("service/submission: %w", err)
	}

	s.logger.Info("project submitted",
		slog.String("userID", userID),
		slog.String("lessonID", lesson.ID),
	)
	return sub, nil
}

// ListForUser returns the user's submissions, newest first.
func (s *SubmissionService) ListForUser(ctx context.Context, userID string) ([]model.ProjectSubmission, error) {
	subs, err := s.submissions.ListSubmissions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/submission: %w", err)
	}
	return subs, nil
}

func isWebURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
