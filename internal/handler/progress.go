package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/learnpath/internal/model"
	"github.com/sakif/learnpath/internal/service"
)

// ProgressHandler serves the catalog and per-course progress.
//
// Each request opens its own ProgressSession, so progress is computed at
// most once per course per request and nothing is cached across requests.
type ProgressHandler struct {
	progress *service.ProgressService
	logger   *slog.Logger
}

func NewProgressHandler(progress *service.ProgressService, logger *slog.Logger) *ProgressHandler {
	return &ProgressHandler{progress: progress, logger: logger}
}

type trackResponse struct {
	model.Track
	Progress []*model.CourseProgress `json:"progress,omitempty"`
}

// HandleListTracks lists the tracks. Signed-in users also get their
// progress in every course of each track.
//
// HTTP: GET /api/tracks
func (h *ProgressHandler) HandleListTracks(w http.ResponseWriter, r *http.Request) {
	tracks, err := h.progress.ListTracks(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	var session *service.ProgressSession
	if userID := currentUserID(r); userID != "" {
		session = h.progress.Session(userID)
	}

	out := make([]trackResponse, 0, len(tracks))
	for _, t := range tracks {
		resp := trackResponse{Track: t}
		if session != nil {
			if resp.Progress, err = session.TrackProgress(r.Context(), t.ID); err != nil {
				writeError(w, err)
				return
			}
		}
		out = append(out, resp)
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleTrackProgress returns progress for every course in a track.
//
// HTTP: GET /api/tracks/{trackID}/progress
func (h *ProgressHandler) HandleTrackProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	progress, err := h.progress.Session(userID).TrackProgress(r.Context(), chi.URLParam(r, "trackID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

// HandleCourseProgress returns progress in one course.
//
// HTTP: GET /api/courses/{courseID}/progress
func (h *ProgressHandler) HandleCourseProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	course, err := h.progress.GetCourse(r.Context(), chi.URLParam(r, "courseID"))
	if err != nil {
		writeError(w, err)
		return
	}

	progress, err := h.progress.Session(userID).ProgressFor(r.Context(), course)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		*model.CourseProgress
		Started   bool `json:"started"`
		Completed bool `json:"completed"`
	}{progress, progress.Started(), progress.Completed()})
}
