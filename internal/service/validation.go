package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/sakif/learnpath/internal/apperror"
	"github.com/sakif/learnpath/internal/auth"
	"github.com/sakif/learnpath/internal/model"
)

const (
	minUsernameLength     = 2
	maxUsernameLength     = 100
	maxLearningGoalLength = 1700
	minPasswordLength     = 6
)

// emailPattern accepts the HTML5 / RFC 5322 "valid email address" subset:
// a dot-atom local part, and a domain of labels up to 63 characters that
// neither start nor end with a hyphen.
var emailPattern = regexp.MustCompile(
	"^[a-zA-Z0-9.!#$%&'*+/=?^_`{|}~-]+" +
		`@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?` +
		`(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`,
)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validateUser checks every field of user and returns all failures joined
// with errors.Join, or nil. password is checked only when setPassword is
// true, which callers pass when a password is being set or is required.
func (s *UserService) validateUser(ctx context.Context, user *model.User, password string, setPassword bool) error {
	var errs []error

	if err := s.validateEmail(ctx, user); err != nil {
		if !errors.Is(err, apperror.ErrValidation) {
			return err
		}
		errs = append(errs, err)
	}

	switch n := utf8.RuneCountInString(user.Username); {
	case n < minUsernameLength:
		errs = append(errs, apperror.ValidationFailed("username",
			fmt.Sprintf("username is too short (minimum is %d characters)", minUsernameLength)))
	case n > maxUsernameLength:
		errs = append(errs, apperror.ValidationFailed("username",
			fmt.Sprintf("username is too long (maximum is %d characters)", maxUsernameLength)))
	}

	if utf8.RuneCountInString(user.LearningGoal) > maxLearningGoalLength {
		errs = append(errs, apperror.ValidationFailed("learningGoal",
			fmt.Sprintf("learning goal is too long (maximum is %d characters)", maxLearningGoalLength)))
	}

	if err := s.validateTrack(ctx, user.TrackID); err != nil {
		if !errors.Is(err, apperror.ErrValidation) {
			return err
		}
		errs = append(errs, err)
	}

	if setPassword {
		switch {
		case len(password) < minPasswordLength:
			errs = append(errs, apperror.ValidationFailed("password",
				fmt.Sprintf("password is too short (minimum is %d characters)", minPasswordLength)))
		case len(password) > auth.MaxPasswordBytes:
			errs = append(errs, apperror.ValidationFailed("password",
				fmt.Sprintf("password is too long (maximum is %d bytes)", auth.MaxPasswordBytes)))
		}
	}

	return errors.Join(errs...)
}

// validateEmail reports at most one failure for the email field.
func (s *UserService) validateEmail(ctx context.Context, user *model.User) error {
	if user.Email == "" {
		return apperror.ValidationFailed("email", "email can't be blank")
	}
	if !emailPattern.MatchString(user.Email) {
		return apperror.ValidationFailed("email", "email is invalid")
	}

	taken, err := s.users.EmailTaken(ctx, user.Email, user.ID)
	if err != nil {
		return fmt.Errorf("service/user: checking email: %w", err)
	}
	if taken {
		return apperror.ValidationFailed("email", "email has already been taken")
	}
	return nil
}

func (s *UserService) validateTrack(ctx context.Context, trackID string) error {
	if trackID == "" {
		return apperror.ValidationFailed("trackId", "track must exist")
	}
	if _, err := s.tracks.GetTrack(ctx, trackID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return apperror.ValidationFailed("trackId", "track must exist")
		}
		return fmt.Errorf("service/user: checking track: %w", err)
	}
	return nil
}
