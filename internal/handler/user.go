package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/learnpath/internal/apperror"
	"github.com/sakif/learnpath/internal/auth"
	"github.com/sakif/learnpath/internal/service"
)

// UserHandler serves the signed-in learner's own account under /api/me.
// Every route sits behind auth.RequireAuth.
type UserHandler struct {
	users         *service.UserService
	completions   *service.CompletionService
	submissions   *service.SubmissionService
	secureCookies bool
	logger        *slog.Logger
}

func NewUserHandler(
	users *service.UserService,
	completions *service.CompletionService,
	submissions *service.SubmissionService,
	secureCookies bool,
	logger *slog.Logger,
) *UserHandler {
	return &UserHandler{
		users:         users,
		completions:   completions,
		submissions:   submissions,
		secureCookies: secureCookies,
		logger:        logger,
	}
}

// HandleMe returns the current user's profile.
//
// HTTP: GET /api/me
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetByID(r.Context(), currentUserID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type updateMeRequest struct {
	Email        *string `json:"email"`
	Username     *string `json:"username"`
	LearningGoal *string `json:"learningGoal"`
	TrackID      *string `json:"trackId"`
	Password     *string `json:"password"`
}

// HandleUpdateMe applies a partial profile update. Omitted fields are
// left as they are.
//
// HTTP: PATCH /api/me
func (h *UserHandler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	var req updateMeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), currentUserID(r), service.UpdateParams{
		Email:        req.Email,
		Username:     req.Username,
		LearningGoal: req.LearningGoal,
		TrackID:      req.TrackID,
		Password:     req.Password,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleDeleteMe deletes the account with everything it owns and signs
// the browser out.
//
// HTTP: DELETE /api/me
func (h *UserHandler) HandleDeleteMe(w http.ResponseWriter, r *http.Request) {
	if err := h.users.Delete(r.Context(), currentUserID(r)); err != nil {
		writeError(w, err)
		return
	}
	clearCookie(w, auth.AccessCookie, h.secureCookies)
	w.WriteHeader(http.StatusNoContent)
}

// HandleLatestLesson returns the lesson the user completed most recently,
// as {"lesson": null} when they have not completed any.
//
// HTTP: GET /api/me/latest-lesson
func (h *UserHandler) HandleLatestLesson(w http.ResponseWriter, r *http.Request) {
	lesson, err := h.completions.LatestCompletedLesson(r.Context(), currentUserID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"lesson": lesson})
}

// HandleListSubmissions returns the user's project submissions.
//
// HTTP: GET /api/me/submissions
func (h *UserHandler) HandleListSubmissions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.submissions.ListForUser(r.Context(), currentUserID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, subs)
}

// HandleListProviders returns the external identities the user can sign
// in with.
//
// HTTP: GET /api/me/providers
func (h *UserHandler) HandleListProviders(w http.ResponseWriter, r *http.Request) {
	links, err := h.users.ListProviders(r.Context(), currentUserID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, links)
}

// currentUserID reads the ID RequireAuth put in the context. On a route
// without RequireAuth it returns "", which every service treats as an
// unknown user.
func currentUserID(r *http.Request) string {
	id, _ := auth.UserIDFromContext(r.Context())
	return id
}

// requireUser writes a 401 and returns false for anonymous requests.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
	}
	return id, ok
}
