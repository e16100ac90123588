package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/learnpath/internal/service"
)

// LessonHandler records completions and project submissions for a lesson.
type LessonHandler struct {
	completions *service.CompletionService
	submissions *service.SubmissionService
	logger      *slog.Logger
}

func NewLessonHandler(
	completions *service.CompletionService,
	submissions *service.SubmissionService,
	logger *slog.Logger,
) *LessonHandler {
	return &LessonHandler{completions: completions, submissions: submissions, logger: logger}
}

type completionResponse struct {
	LessonID  string `json:"lessonId"`
	Completed bool   `json:"completed"`
}

// HandleGetCompletion reports whether the user completed the lesson.
//
// HTTP: GET /api/lessons/{lessonID}/completion
func (h *LessonHandler) HandleGetCompletion(w http.ResponseWriter, r *http.Request) {
	lessonID := chi.URLParam(r, "lessonID")

	done, err := h.completions.HasCompleted(r.Context(), currentUserID(r), lessonID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, completionResponse{LessonID: lessonID, Completed: done})
}

// HandleComplete marks the lesson completed. PUT is idempotent: the first
// call answers 201, repeats answer 200 and keep the original record.
//
// HTTP: PUT /api/lessons/{lessonID}/completion
func (h *LessonHandler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	lessonID := chi.URLParam(r, "lessonID")

	created, err := h.completions.Complete(r.Context(), currentUserID(r), lessonID)
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, completionResponse{LessonID: lessonID, Completed: true})
}

// HandleUncomplete removes the completion.
//
// HTTP: DELETE /api/lessons/{lessonID}/completion
func (h *LessonHandler) HandleUncomplete(w http.ResponseWriter, r *http.Request) {
	if err := h.completions.Uncomplete(r.Context(), currentUserID(r), chi.URLParam(r, "lessonID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type submitRequest struct {
	RepoURL string `json:"repoUrl"`
	LiveURL string `json:"liveUrl"`
}

// HandleSubmit stores a project submission.
//
// HTTP: POST /api/lessons/{lessonID}/submissions
// REQUEST BODY: {"repoUrl": "https://github.com/...", "liveUrl": "https://..."}
func (h *LessonHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	sub, err := h.submissions.Submit(r.Context(), currentUserID(r), chi.URLParam(r, "lessonID"), req.RepoURL, req.LiveURL)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}
