// Package service holds the business rules. Handlers call services;
// services call repositories through the interfaces in internal/repository
// and never see HTTP.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/learnpath/internal/apperror"
	"github.com/sakif/learnpath/internal/auth"
	"github.com/sakif/learnpath/internal/model"
	"github.com/sakif/learnpath/internal/notify"
	"github.com/sakif/learnpath/internal/repository"
)

// ErrRegistrationRequired is returned by LoginWithProvider when the
// external identity is not linked to any account yet.
var ErrRegistrationRequired = errors.New("service/user: provider identity is not linked to an account")

// RegisterParams is the sign-up form.
type RegisterParams struct {
	Email        string
	Username     string
	Password     string
	LearningGoal string
	TrackID      string
}

// UpdateParams is a partial profile update; nil fields are left unchanged.
type UpdateParams struct {
	Email        *string
	Username     *string
	LearningGoal *string
	TrackID      *string
	Password     *string
}

// UserService manages learner accounts.
type UserService struct {
	users     repository.UserRepository
	tracks    repository.TrackRepository
	providers repository.ProviderRepository
	passwords *auth.PasswordService
	notifier  notify.Notifier
	logger    *slog.Logger
}

func NewUserService(
	users repository.UserRepository,
	tracks repository.TrackRepository,
	providers repository.ProviderRepository,
	passwords *auth.PasswordService,
	notifier notify.Notifier,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		users:     users,
		tracks:    tracks,
		providers: providers,
		passwords: passwords,
		notifier:  notifier,
		logger:    logger,
	}
}

// Register creates a password account.
func (s *UserService) Register(ctx context.Context, p RegisterParams) (*model.User, error) {
	return s.RegisterWithSession(ctx, p, nil)
}

// RegisterWithSession creates an account, attaching the provider identity
// held in the registration session when there is one.
//
// The provider's email only fills in a blank email; whatever the learner
// typed wins. Accounts created this way do not need a password, but one
// that is supplied is validated and stored.
func (s *UserService) RegisterWithSession(ctx context.Context, p RegisterParams, profile *auth.ProviderProfile) (*model.User, error) {
	user := &model.User{
		Email:        normalizeEmail(p.Email),
		Username:     strings.TrimSpace(p.Username),
		LearningGoal: strings.TrimSpace(p.LearningGoal),
		TrackID:      p.TrackID,
	}
	if profile != nil {
		if user.Email == "" {
			user.Email = normalizeEmail(profile.Email)
		}
		user.Provider = profile.Provider
		user.UID = profile.UID
		user.AvatarURL = profile.AvatarURL
	}

	setPassword := user.PasswordRequired() || p.Password != ""
	if err := s.validateUser(ctx, user, p.Password, setPassword); err != nil {
		return nil, err
	}

	if setPassword {
		hash, err := s.passwords.Hash(p.Password)
		if err != nil {
			return nil, fmt.Errorf("service/user: %w", err)
		}
		user.PasswordHash = hash
	}

	var err error
	if profile != nil {
		err = s.providers.CreateUserWithProvider(ctx, user, &model.UserProvider{
			Provider: profile.Provider,
			UID:      profile.UID,
		})
	} else {
		err = s.users.Create(ctx, user)
	}
	if err != nil {
		return nil, fmt.Errorf("service/user: creating user: %w", err)
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("provider", user.Provider),
	)

	// Registration has already succeeded; a failed notification only gets logged.
	if err := s.notifier.UserCreated(ctx, user); err != nil {
		s.logger.Warn("user created notification failed",
			slog.String("userID", user.ID),
			slog.String("error", err.Error()),
		)
	}

	return user, nil
}

// LoginWithProvider returns the account linked to profile, or
// ErrRegistrationRequired when there is none.
func (s *UserService) LoginWithProvider(ctx context.Context, profile *auth.ProviderProfile) (*model.User, error) {
	userID, err := s.providers.FindUserIDByProvider(ctx, profile.Provider, profile.UID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, ErrRegistrationRequired
		}
		return nil, fmt.Errorf("service/user: finding %s identity: %w", profile.Provider, err)
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/user: loading linked user: %w", err)
	}

	s.logger.Info("user authenticated via provider",
		slog.String("userID", user.ID),
		slog.String("provider", profile.Provider),
	)
	return user, nil
}

// LinkProvider attaches an external identity to an existing account, so
// the learner can later sign in with it. Linking an identity the account
// already has is a no-op; one that belongs to another account is a
// Conflict.
func (s *UserService) LinkProvider(ctx context.Context, userID string, profile *auth.ProviderProfile) error {
	owner, err := s.providers.FindUserIDByProvider(ctx, profile.Provider, profile.UID)
	switch {
	case err == nil && owner == userID:
		return nil
	case err == nil:
		return apperror.Conflict(profile.Provider+" identity", profile.UID)
	case !errors.Is(err, apperror.ErrNotFound):
		return fmt.Errorf("service/user: finding %s identity: %w", profile.Provider, err)
	}

	link := &model.UserProvider{UserID: userID, Provider: profile.Provider, UID: profile.UID}
	if err := s.providers.LinkProvider(ctx, link); err != nil {
		return fmt.Errorf("service/user: linking %s identity: %w", profile.Provider, err)
	}

	s.logger.Info("provider linked",
		slog.String("userID", userID),
		slog.String("provider", profile.Provider),
	)
	return nil
}

// ListProviders returns the identities linked to the account, oldest first.
func (s *UserService) ListProviders(ctx context.Context, userID string) ([]model.UserProvider, error) {
	links, err := s.providers.ListProviders(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/user: %w", err)
	}
	return links, nil
}

// Authenticate checks an email and password. Every failure is the same
// Unauthorized error so the response does not reveal which emails exist.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	invalid := apperror.Unauthorized("invalid email or password")

	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, invalid
		}
		return nil, fmt.Errorf("service/user: loading user: %w", err)
	}

	if user.PasswordHash == "" {
		return nil, invalid
	}
	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, invalid
		}
		return nil, fmt.Errorf("service/user: %w", err)
	}
	return user, nil
}

// UpdateProfile applies p to the user and saves it after validation.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, p UpdateParams) (*model.User, error) {
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if p.Email != nil {
		user.Email = normalizeEmail(*p.Email)
	}
	if p.Username != nil {
		user.Username = strings.TrimSpace(*p.Username)
	}
	if p.LearningGoal != nil {
		user.LearningGoal = strings.TrimSpace(*p.LearningGoal)
	}
	if p.TrackID != nil {
		user.TrackID = *p.TrackID
	}

	var password string
	if p.Password != nil {
		password = *p.Password
	}
	if err := s.validateUser(ctx, user, password, p.Password != nil); err != nil {
		return nil, err
	}

	if p.Password != nil {
		hash, err := s.passwords.Hash(password)
		if err != nil {
			return nil, fmt.Errorf("service/user: %w", err)
		}
		user.PasswordHash = hash
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("service/user: updating user %s: %w", userID, err)
	}
	return user, nil
}

// Delete removes the account with its completions, submissions and
// provider links. Nothing is removed unless everything is.
func (s *UserService) Delete(ctx context.Context, userID string) error {
	if err := s.users.Delete(ctx, userID); err != nil {
		return fmt.Errorf("service/user: deleting user %s: %w", userID, err)
	}
	s.logger.Info("user deleted", slog.String("userID", userID))
	return nil
}

func (s *UserService) GetByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.NotFound("user", id)
	}
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/user: fetching user %s: %w", id, err)
	}
	return user, nil
}
