package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware_LabelsByRoutePattern(t *testing.T) {
	m := New("football_api")

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/teams/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, path := range []string{"/teams/1", "/teams/2"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, float64(2), testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "/teams/{id}", "404")))
}

func TestEventPublished(t *testing.T) {
	m := New("football_api")

	m.EventPublished("teams", "created", nil)
	m.EventPublished("teams", "created", errors.New("no responders"))

	assert.Equal(t, float64(1), testutil.ToFloat64(m.events.WithLabelValues("teams", "created", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.events.WithLabelValues("teams", "created", "error")))
}

func TestHandler_ExposesCollectors(t *testing.T) {
	m := New("football_api")
	m.EventPublished("players", "deleted", nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "football_api_events_published_total"))
	assert.True(t, strings.Contains(string(body), "go_goroutines"))
}
