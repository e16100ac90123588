package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/learnpath/internal/apperror"
	"github.com/sakif/learnpath/internal/model"
	"github.com/sakif/learnpath/internal/repository"
)

// ProgressService computes how far a learner has got through each course.
type ProgressService struct {
	catalog     repository.TrackRepository
	lessons     repository.LessonRepository
	completions repository.CompletionRepository
	logger      *slog.Logger
}

func NewProgressService(
	catalog repository.TrackRepository,
	lessons repository.LessonRepository,
	completions repository.CompletionRepository,
	logger *slog.Logger,
) *ProgressService {
	return &ProgressService{
		catalog:     catalog,
		lessons:     lessons,
		completions: completions,
		logger:      logger,
	}
}

// Session starts a progress session for one user. A session belongs to a
// single request: it memoises results without locking and never evicts,
// so it must not be shared between goroutines or kept past the request.
func (s *ProgressService) Session(userID string) *ProgressSession {
	return &ProgressSession{
		svc:    s,
		userID: userID,
		cache:  make(map[string]*model.CourseProgress),
	}
}

// ProgressSession memoises CourseProgress per course for one user.
type ProgressSession struct {
	svc    *ProgressService
	userID string
	cache  map[string]*model.CourseProgress
}

// ProgressFor returns the user's progress in course. The first call for a
// course computes it; later calls in the same session return the same
// pointer. Failed computations are not cached.
func (ps *ProgressSession) ProgressFor(ctx context.Context, course *model.Course) (*model.CourseProgress, error) {
	if course == nil {
		return nil, apperror.NotFound("course", "")
	}
	if p, ok := ps.cache[course.ID]; ok {
		return p, nil
	}

	p, err := ps.svc.compute(ctx, ps.userID, course.ID)
	if err != nil {
		return nil, err
	}
	ps.cache[course.ID] = p
	return p, nil
}

// TrackProgress returns the progress of every course in a track, in
// course order.
func (ps *ProgressSession) TrackProgress(ctx context.Context, trackID string) ([]*model.CourseProgress, error) {
	if _, err := ps.svc.catalog.GetTrack(ctx, trackID); err != nil {
		return nil, fmt.Errorf("service/progress: %w", err)
	}

	courses, err := ps.svc.catalog.ListCourses(ctx, trackID)
	if err != nil {
		return nil, fmt.Errorf("service/progress: listing courses of %s: %w", trackID, err)
	}

	out := make([]*model.CourseProgress, 0, len(courses))
	for i := range courses {
		p, err := ps.ProgressFor(ctx, &courses[i])
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *ProgressService) compute(ctx context.Context, userID, courseID string) (*model.CourseProgress, error) {
	lessons, err := s.lessons.ListLessons(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("service/progress: listing lessons of %s: %w", courseID, err)
	}
	doneIDs, err := s.completions.CompletedLessonIDs(ctx, userID, courseID)
	if err != nil {
		return nil, fmt.Errorf("service/progress: listing completions in %s: %w", courseID, err)
	}

	done := make(map[string]struct{}, len(doneIDs))
	for _, id := range doneIDs {
		done[id] = struct{}{}
	}

	p := &model.CourseProgress{CourseID: courseID, TotalLessons: len(lessons)}
	// Completions of lessons removed from the course are not counted.
	for _, l := range lessons {
		if _, ok := done[l.ID]; ok {
			p.CompletedLessons++
		} else if p.NextLessonID == "" {
			p.NextLessonID = l.ID
		}
	}
	if p.TotalLessons > 0 {
		p.Percentage = p.CompletedLessons * 100 / p.TotalLessons
	}

	s.logger.Debug("course progress computed",
		slog.String("userID", userID),
		slog.String("courseID", courseID),
		slog.Int("completed", p.CompletedLessons),
		slog.Int("total", p.TotalLessons),
	)
	return p, nil
}

// ListTracks returns the catalog's tracks in display order.
func (s *ProgressService) ListTracks(ctx context.Context) ([]model.Track, error) {
	tracks, err := s.catalog.ListTracks(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/progress: listing tracks: %w", err)
	}
	return tracks, nil
}

// GetCourse looks a course up by ID.
func (s *ProgressService) GetCourse(ctx context.Context, id string) (*model.Course, error) {
	course, err := s.catalog.GetCourse(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/progress: %w", err)
	}
	return course, nil
}
