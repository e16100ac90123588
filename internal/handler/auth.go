package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/xid"

	"github.com/sakif/learnpath/internal/auth"
	"github.com/sakif/learnpath/internal/model"
	"github.com/sakif/learnpath/internal/service"
)

// AuthHandler runs sign-up, sign-in and sign-out, for password accounts
// and for external identity providers.
type AuthHandler struct {
	providers     map[string]*auth.Provider
	users         *service.UserService
	tokens        *auth.TokenService
	secureCookies bool
	logger        *slog.Logger
}

func NewAuthHandler(
	providers []*auth.Provider,
	users *service.UserService,
	tokens *auth.TokenService,
	secureCookies bool,
	logger *slog.Logger,
) *AuthHandler {
	byName := make(map[string]*auth.Provider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}
	return &AuthHandler{
		providers:     byName,
		users:         users,
		tokens:        tokens,
		secureCookies: secureCookies,
		logger:        logger,
	}
}

// HandleProviderLogin redirects to the provider's consent page.
//
// HTTP: GET /auth/{provider}/login
//
// A random state is stored in a short-lived cookie and checked on the
// callback, which proves the callback belongs to a flow this server began.
func (h *AuthHandler) HandleProviderLogin(w http.ResponseWriter, r *http.Request) {
	provider, ok := h.provider(w, r)
	if !ok {
		return
	}

	state := xid.New().String()
	h.setCookie(w, auth.StateCookie, state, 10*time.Minute)

	http.Redirect(w, r, provider.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleProviderCallback completes the provider flow.
//
// HTTP: GET /auth/{provider}/callback?code=xxx&state=yyy
//
// When the request carries a valid access token the identity is linked
// to that account instead. Otherwise a linked identity signs straight in.
// An unknown one is parked in a
// signed registration-session cookie and the browser is sent to the
// sign-up page, where POST /auth/register picks it up.
func (h *AuthHandler) HandleProviderCallback(w http.ResponseWriter, r *http.Request) {
	provider, ok := h.provider(w, r)
	if !ok {
		return
	}

	stateCookie, err := r.Cookie(auth.StateCookie)
	if err != nil || stateCookie.Value == "" || r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("auth callback: state mismatch", slog.String("provider", provider.Name()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid_state", Message: "invalid OAuth state"})
		return
	}
	h.clearCookie(w, auth.StateCookie)

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: authorization denied",
			slog.String("provider", provider.Name()),
			slog.String("error", errParam),
		)
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid_request", Message: "missing OAuth code"})
		return
	}

	profile, err := provider.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: exchange failed",
			slog.String("provider", provider.Name()),
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusBadGateway, ErrorResponse{Error: "provider_error", Message: "authentication failed"})
		return
	}

	// A signed-in learner is adding a sign-in method to their account.
	if userID := currentUserID(r); userID != "" {
		if err := h.users.LinkProvider(r.Context(), userID, profile); err != nil {
			writeError(w, err)
			return
		}
		http.Redirect(w, r, "/?linked="+url.QueryEscape(provider.Name()), http.StatusSeeOther)
		return
	}

	user, err := h.users.LoginWithProvider(r.Context(), profile)
	if errors.Is(err, service.ErrRegistrationRequired) {
		session, err := h.tokens.GenerateSession(*profile)
		if err != nil {
			writeError(w, err)
			return
		}
		h.setCookie(w, auth.SessionCookie, session, auth.SessionTTL)
		http.Redirect(w, r, "/register?provider="+url.QueryEscape(provider.Name()), http.StatusSeeOther)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.signIn(w, user); err != nil {
		writeError(w, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandlePendingRegistration returns the provider identity waiting to be
// registered, so the sign-up form can be prefilled.
//
// HTTP: GET /auth/register
func (h *AuthHandler) HandlePendingRegistration(w http.ResponseWriter, r *http.Request) {
	profile := h.pendingProfile(r)
	if profile == nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "no pending registration"})
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

type registerRequest struct {
	Email        string `json:"email"`
	Username     string `json:"username"`
	Password     string `json:"password"`
	LearningGoal string `json:"learningGoal"`
	TrackID      string `json:"trackId"`
}

// HandleRegister creates an account and signs it in.
//
// HTTP: POST /auth/register
// REQUEST BODY: {"email", "username", "password", "learningGoal", "trackId"}
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	params := service.RegisterParams{
		Email:        req.Email,
		Username:     req.Username,
		Password:     req.Password,
		LearningGoal: req.LearningGoal,
		TrackID:      req.TrackID,
	}
	user, err := h.users.RegisterWithSession(r.Context(), params, h.pendingProfile(r))
	if err != nil {
		writeError(w, err)
		return
	}

	h.clearCookie(w, auth.SessionCookie)
	if err := h.signIn(w, user); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleLogin signs in with email and password.
//
// HTTP: POST /auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.signIn(w, user); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleLogout deletes the access cookie. Tokens are stateless, so the JWT
// itself stays valid until it expires.
//
// HTTP: POST /auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.clearCookie(w, auth.AccessCookie)
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (h *AuthHandler) provider(w http.ResponseWriter, r *http.Request) (*auth.Provider, bool) {
	name := chi.URLParam(r, "provider")
	p, ok := h.providers[name]
	if !ok {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "unknown provider " + name})
	}
	return p, ok
}

// pendingProfile returns the identity in the registration-session cookie,
// or nil when there is none or it has expired.
func (h *AuthHandler) pendingProfile(r *http.Request) *auth.ProviderProfile {
	c, err := r.Cookie(auth.SessionCookie)
	if err != nil {
		return nil
	}
	profile, err := h.tokens.ValidateSession(c.Value)
	if err != nil {
		h.logger.Debug("ignoring registration session", slog.String("error", err.Error()))
		return nil
	}
	return profile
}

func (h *AuthHandler) signIn(w http.ResponseWriter, user *model.User) error {
	token, err := h.tokens.Generate(user.ID)
	if err != nil {
		return err
	}
	h.setCookie(w, auth.AccessCookie, token, auth.AccessTTL)
	return nil
}

// setCookie sets an HttpOnly, SameSite=Lax cookie. Secure is on whenever
// the server is configured to run behind HTTPS.
func (h *AuthHandler) setCookie(w http.ResponseWriter, name, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearCookie(w http.ResponseWriter, name string) {
	clearCookie(w, name, h.secureCookies)
}

func clearCookie(w http.ResponseWriter, name string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
