package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sakif/learnpath/internal/apperror"
	"github.com/sakif/learnpath/internal/model"
)

func TestUserCreate(t *testing.T) {
	db := newTestDB(t)
	cat := seedCatalog(t, db, 0)

	user := &model.User{
		Email:        "test@example.com",
		Username:     "testuser",
		LearningGoal: "ship a web app",
		TrackID:      cat.Track.ID,
	}

	if err := db.Create(context.Background(), user); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if user.ID == "" {
		t.Error("Create() did not set user.ID")
	}
	if user.CreatedAt.IsZero() {
		t.Error("Create() did not set user.CreatedAt")
	}
}

func TestUserCreate_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	cat := seedCatalog(t, db, 0)
	createTestUser(t, db, cat.Track.ID, "dup@example.com")

	duplicate := &model.User{Email: "dup@example.com", Username: "second", TrackID: cat.Track.ID}
	err := db.Create(context.Background(), duplicate)

	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("Create() error = %v, want ErrValidation", err)
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Field != "email" {
		t.Errorf("Create() error field = %v, want email", appErr)
	}
}

func TestUserGetByID(t *testing.T) {
	db := newTestDB(t)
	cat := seedCatalog(t, db, 0)
	created := createTestUser(t, db, cat.Track.ID, "find@example.com")

	found, err := db.GetUserByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if found.Email != "find@example.com" {
		t.Errorf("Email = %q, want %q", found.Email, "find@example.com")
	}
	if found.TrackID != cat.Track.ID {
		t.Errorf("TrackID = %q, want %q", found.TrackID, cat.Track.ID)
	}
}

func TestUserGetByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetUserByID(context.Background(), "nonexistent-id")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByID() error = %v, want ErrNotFound", err)
	}
}

func TestUserGetByEmail(t *testing.T) {
	db := newTestDB(t)
	cat := seedCatalog(t, db, 0)
	created := createTestUser(t, db, cat.Track.ID, "mail@example.com")

	found, err := db.GetUserByEmail(context.Background(), "mail@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail() error = %v", err)
	}
	if found.ID != created.ID {
		t.Errorf("ID = %q, want %q", found.ID, created.ID)
	}
}

func TestEmailTaken(t *testing.T) {
	db := newTestDB(t)
	cat := seedCatalog(t, db, 0)
	owner := createTestUser(t, db, cat.Track.ID, "taken@example.com")
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		exceptID string
		want     bool
	}{
		{name: "free email", email: "free@example.com", want: false},
		{name: "taken email on create", email: "taken@example.com", want: true},
		{name: "own email on update", email: "taken@example.com", exceptID: owner.ID, want: false},
		{name: "taken email on someone else's update", email: "taken@example.com", exceptID: "other", want: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.EmailTaken(ctx, tt.email, tt.exceptID)
			if err != nil {
				t.Fatalf("EmailTaken() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("EmailTaken() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUserUpdate(t *testing.T) {
	db := newTestDB(t)
	cat := seedCatalog(t, db, 0)
	user := createTestUser(t, db, cat.Track.ID, "old@example.com")
	originalCreatedAt := user.CreatedAt

	user.Email = "new@example.com"
	user.LearningGoal = "get hired"
	if err := db.Update(context.Background(), user); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	found, err := db.GetUserByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("GetUserByID() after Update: %v", err)
	}
	if found.Email != "new@example.com" {
		t.Errorf("Email = %q, want %q", found.Email, "new@example.com")
	}
	if found.LearningGoal != "get hired" {
		t.Errorf("LearningGoal = %q, want %q", found.LearningGoal, "get hired")
	}
	if !found.CreatedAt.Equal(originalCreatedAt) {
		t.Errorf("Update() changed CreatedAt: got %v, want %v", found.CreatedAt, originalCreatedAt)
	}
}

func TestUserUpdate_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.Update(context.Background(), &model.User{ID: "ghost", Email: "g@example.com"})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Update() error = %v, want ErrNotFound", err)
	}
}

func TestUserDelete_CascadesToDependents(t *testing.T) {
	db := newTestDB(t)
	cat := seedCatalog(t, db, 2)
	ctx := context.Background()

	user := createTestUser(t, db, cat.Track.ID, "leaving@example.com")
	other := createTestUser(t, db, cat.Track.ID, "staying@example.com")

	for _, u := range []*model.User{user, other} {
		if err := db.CreateCompletion(ctx, &model.LessonCompletion{
			StudentID: u.ID, LessonID: cat.Lessons[0].ID, CourseID: cat.Course.ID,
		}); err != nil {
			t.Fatalf("CreateCompletion: %v", err)
		}
	}
	if err := db.CreateSubmission(ctx, &model.ProjectSubmission{
		UserID: user.ID, LessonID: cat.Lessons[1].ID, RepoURL: "https://github.com/x/y",
	}); err != nil {
		t.Fatalf("CreateSubmission: %v", err)
	}
	if err := db.LinkProvider(ctx, &model.UserProvider{UserID: user.ID, Provider: "github", UID: "1"}); err != nil {
		t.Fatalf("LinkProvider: %v", err)
	}

	if err := db.Delete(ctx, user.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := db.GetUserByID(ctx, user.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("user still present after Delete: err = %v", err)
	}

	for table, column := range map[string]string{
		"lesson_completions":  "student_id",
		"project_submissions": "user_id",
		"user_providers":      "user_id",
	} {
		var n int
		if err := db.conn.QueryRow(
			`SELECT COUNT(*) FROM `+table+` WHERE `+column+` = ?`, user.ID,
		).Scan(&n); err != nil {
			t.Fatalf("counting %s: %v", table, err)
		}
		if n != 0 {
			t.Errorf("%s rows left for deleted user = %d, want 0", table, n)
		}
	}

	// The other learner's data is untouched.
	if ok, _ := db.CompletionExists(ctx, other.ID, cat.Lessons[0].ID); !ok {
		t.Error("Delete() removed another user's completion")
	}
}

func TestUserDelete_NotFound(t *testing.T) {
	db := newTestDB(t)

	if err := db.Delete(context.Background(), "ghost"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Delete() error = %v, want ErrNotFound", err)
	}
}

func TestUserTimestampsRoundTrip(t *testing.T) {
	db := newTestDB(t)
	cat := seedCatalog(t, db, 0)
	created := createTestUser(t, db, cat.Track.ID, "time@example.com")

	found, err := db.GetUserByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetUserByID(): %v", err)
	}
	if diff := found.CreatedAt.Sub(created.CreatedAt); diff > time.Millisecond || diff < -time.Millisecond {
		t.Errorf("CreatedAt drifted by %v", diff)
	}
}
