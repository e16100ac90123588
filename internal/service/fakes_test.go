package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/sakif/learnpath/internal/apperror"
	"github.com/sakif/learnpath/internal/model"
)

// fakeStore is an in-memory implementation of every repository interface.
// It copies values in and out so tests cannot mutate stored state by
// accident.
type fakeStore struct {
	users       map[string]*model.User
	tracks      []model.Track
	courses     []model.Course
	lessons     []model.Lesson
	completions []model.LessonCompletion
	submissions []model.ProjectSubmission
	providers   []model.UserProvider

	nextID          int
	nextCompletion  int64
	listLessonCalls int

	// failNext makes the named method return this error once.
	failNext map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    make(map[string]*model.User),
		failNext: make(map[string]error),
	}
}

func (f *fakeStore) fail(method string) error {
	if err, ok := f.failNext[method]; ok {
		delete(f.failNext, method)
		return err
	}
	return nil
}

func (f *fakeStore) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

// --- users ---

func (f *fakeStore) Create(_ context.Context, u *model.User) error {
	if err := f.fail("Create"); err != nil {
		return err
	}
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return apperror.ValidationFailed("email", "email has already been taken")
		}
	}
	u.ID = f.id("user")
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	stored := *u
	f.users[u.ID] = &stored
	return nil
}

func (f *fakeStore) Update(_ context.Context, u *model.User) error {
	if _, ok := f.users[u.ID]; !ok {
		return apperror.NotFound("user", u.ID)
	}
	stored := *u
	f.users[u.ID] = &stored
	return nil
}

func (f *fakeStore) Delete(_ context.Context, id string) error {
	if err := f.fail("Delete"); err != nil {
		return err
	}
	if _, ok := f.users[id]; !ok {
		return apperror.NotFound("user", id)
	}
	delete(f.users, id)
	f.completions = filter(f.completions, func(c model.LessonCompletion) bool { return c.StudentID != id })
	f.submissions = filter(f.submissions, func(s model.ProjectSubmission) bool { return s.UserID != id })
	f.providers = filter(f.providers, func(p model.UserProvider) bool { return p.UserID != id })
	return nil
}

func (f *fakeStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	cp := *u
	return &cp, nil
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (f *fakeStore) EmailTaken(_ context.Context, email, exceptID string) (bool, error) {
	if err := f.fail("EmailTaken"); err != nil {
		return false, err
	}
	for _, u := range f.users {
		if u.Email == email && u.ID != exceptID {
			return true, nil
		}
	}
	return false, nil
}

// --- catalog ---

func (f *fakeStore) addTrack(title string) model.Track {
	t := model.Track{ID: f.id("track"), Title: title, Position: len(f.tracks) + 1}
	f.tracks = append(f.tracks, t)
	return t
}

func (f *fakeStore) addCourse(trackID string) model.Course {
	c := model.Course{ID: f.id("course"), TrackID: trackID, Position: len(f.courses) + 1}
	f.courses = append(f.courses, c)
	return c
}

func (f *fakeStore) addLesson(courseID string, position int, project bool) model.Lesson {
	l := model.Lesson{ID: f.id("lesson"), CourseID: courseID, Position: position, IsProject: project}
	f.lessons = append(f.lessons, l)
	return l
}

func (f *fakeStore) removeLesson(id string) {
	f.lessons = filter(f.lessons, func(l model.Lesson) bool { return l.ID != id })
}

func (f *fakeStore) ListTracks(context.Context) ([]model.Track, error) {
	return append([]model.Track{}, f.tracks...), nil
}

func (f *fakeStore) GetTrack(_ context.Context, id string) (*model.Track, error) {
	for _, t := range f.tracks {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, apperror.NotFound("track", id)
}

func (f *fakeStore) GetCourse(_ context.Context, id string) (*model.Course, error) {
	for _, c := range f.courses {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, apperror.NotFound("course", id)
}

func (f *fakeStore) ListCourses(_ context.Context, trackID string) ([]model.Course, error) {
	return filter(f.courses, func(c model.Course) bool { return c.TrackID == trackID }), nil
}

func (f *fakeStore) GetLesson(_ context.Context, id string) (*model.Lesson, error) {
	for _, l := range f.lessons {
		if l.ID == id {
			return &l, nil
		}
	}
	return nil, apperror.NotFound("lesson", id)
}

func (f *fakeStore) ListLessons(_ context.Context, courseID string) ([]model.Lesson, error) {
	f.listLessonCalls++
	if err := f.fail("ListLessons"); err != nil {
		return nil, err
	}
	out := filter(f.lessons, func(l model.Lesson) bool { return l.CourseID == courseID })
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

// --- completions ---

func (f *fakeStore) CreateCompletion(_ context.Context, c *model.LessonCompletion) error {
	for _, existing := range f.completions {
		if existing.StudentID == c.StudentID && existing.LessonID == c.LessonID {
			return apperror.Conflict("lesson completion", c.LessonID)
		}
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	f.nextCompletion++
	c.ID = f.nextCompletion
	f.completions = append(f.completions, *c)
	return nil
}

func (f *fakeStore) DeleteCompletion(_ context.Context, studentID, lessonID string) error {
	before := len(f.completions)
	f.completions = filter(f.completions, func(c model.LessonCompletion) bool {
		return c.StudentID != studentID || c.LessonID != lessonID
	})
	if len(f.completions) == before {
		return apperror.NotFound("lesson completion", lessonID)
	}
	return nil
}

func (f *fakeStore) CompletionExists(_ context.Context, studentID, lessonID string) (bool, error) {
	for _, c := range f.completions {
		if c.StudentID == studentID && c.LessonID == lessonID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) ListCompletions(_ context.Context, studentID string) ([]model.LessonCompletion, error) {
	out := filter(f.completions, func(c model.LessonCompletion) bool { return c.StudentID == studentID })
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (f *fakeStore) CompletedLessonIDs(_ context.Context, studentID, courseID string) ([]string, error) {
	var ids []string
	for _, c := range f.completions {
		if c.StudentID == studentID && c.CourseID == courseID {
			ids = append(ids, c.LessonID)
		}
	}
	return ids, nil
}

// --- submissions and providers ---

func (f *fakeStore) CreateSubmission(_ context.Context, s *model.ProjectSubmission) error {
	for _, existing := range f.submissions {
		if existing.UserID == s.UserID && existing.LessonID == s.LessonID {
			return apperror.Conflict("project submission", s.LessonID)
		}
	}
	s.ID = f.id("sub")
	f.submissions = append(f.submissions, *s)
	return nil
}

func (f *fakeStore) ListSubmissions(_ context.Context, userID string) ([]model.ProjectSubmission, error) {
	return filter(f.submissions, func(s model.ProjectSubmission) bool { return s.UserID == userID }), nil
}

func (f *fakeStore) LinkProvider(_ context.Context, p *model.UserProvider) error {
	if err := f.fail("LinkProvider"); err != nil {
		return err
	}
	if _, ok := f.users[p.UserID]; !ok {
		return apperror.NotFound("user", p.UserID)
	}
	for _, existing := range f.providers {
		if existing.Provider == p.Provider && existing.UID == p.UID {
			return apperror.Conflict(p.Provider+" identity", p.UID)
		}
	}
	p.ID = f.id("link")
	f.providers = append(f.providers, *p)
	return nil
}

func (f *fakeStore) CreateUserWithProvider(ctx context.Context, u *model.User, p *model.UserProvider) error {
	if err := f.Create(ctx, u); err != nil {
		return err
	}
	p.UserID = u.ID
	if err := f.LinkProvider(ctx, p); err != nil {
		delete(f.users, u.ID)
		return err
	}
	return nil
}

func (f *fakeStore) FindUserIDByProvider(_ context.Context, provider, uid string) (string, error) {
	for _, p := range f.providers {
		if p.Provider == provider && p.UID == uid {
			return p.UserID, nil
		}
	}
	return "", apperror.NotFound(provider+" identity", uid)
}

func (f *fakeStore) ListProviders(_ context.Context, userID string) ([]model.UserProvider, error) {
	return filter(f.providers, func(p model.UserProvider) bool { return p.UserID == userID }), nil
}

func filter[T any](in []T, keep func(T) bool) []T {
	out := make([]T, 0, len(in))
	for _, v := range in {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

// recordingNotifier remembers every user it was told about.
type recordingNotifier struct {
	created []string
	err     error
}

func (n *recordingNotifier) UserCreated(_ context.Context, u *model.User) error {
	n.created = append(n.created, u.ID)
	return n.err
}

var errBoom = errors.New("boom")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
