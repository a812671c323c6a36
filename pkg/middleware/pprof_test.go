package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

func TestIPAllowlist(t *testing.T) {
	l := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := IPAllowlist([]string{"10.0.0.0/8", "not-a-cidr", "::1/128"}, l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		remote string
		want   int
	}{
		{"10.1.2.3:5000", http.StatusOK},
		{"[::1]:5000", http.StatusOK},
		{"192.168.1.1:5000", http.StatusForbidden},
		{"garbage", http.StatusForbidden},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil)
		req.RemoteAddr = tt.remote
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, tt.want, rec.Code, tt.remote)
	}
}

func TestIPAllowlist_IgnoresForwardedFor(t *testing.T) {
	l := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := IPAllowlist([]string{"10.0.0.0/8"}, l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil)
	req.RemoteAddr = "203.0.113.1:80"
	req.Header.Set("X-Forwarded-For", "10.0.0.1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "FORBIDDEN")
}

func TestRegisterPprof(t *testing.T) {
	l := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := chi.NewRouter()
	RegisterPprof(r, []string{"192.0.2.0/24"}, l)

	req := httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil)
	req.RemoteAddr = "192.0.2.10:1000"
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	empty := chi.NewRouter()
	RegisterPprof(empty, nil, l)
	rec = httptest.NewRecorder()
	empty.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
