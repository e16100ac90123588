package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func echoUser(w http.ResponseWriter, r *http.Request) {
	id, ok := UserIDFromContext(r.Context())
	if !ok {
		id = "anonymous"
	}
	_, _ = w.Write([]byte(id))
}

func TestRequireAuth(t *testing.T) {
	ts := newTestTokenService(t)
	token, _ := ts.Generate("user-1")
	handler := RequireAuth(ts)(http.HandlerFunc(echoUser))

	tests := []struct {
		name       string
		cookie     *http.Cookie
		wantStatus int
		wantBody   string
	}{
		{name: "valid cookie", cookie: &http.Cookie{Name: AccessCookie, Value: token}, wantStatus: http.StatusOK, wantBody: "user-1"},
		{name: "no cookie", wantStatus: http.StatusUnauthorized},
		{name: "bad token", cookie: &http.Cookie{Name: AccessCookie, Value: "nope"}, wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestOptionalAuth_PassesAnonymousThrough(t *testing.T) {
	ts := newTestTokenService(t)
	handler := OptionalAuth(ts)(http.HandlerFunc(echoUser))

	req := httptest.NewRequest(http.MethodGet, "/api/tracks", nil)
	req.AddCookie(&http.Cookie{Name: AccessCookie, Value: "expired-or-garbage"})
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "anonymous", rec.Body.String())
}
