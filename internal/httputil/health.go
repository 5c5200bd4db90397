package httputil

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/footballdb/football-api/pkg/types"
)

// HealthHandler reports process liveness.
func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		RespondJSON(w, http.StatusOK, types.Health{Status: "ok"})
	}
}

// ReadinessHandler reports 503 while check fails.
func ReadinessHandler(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := check(ctx); err != nil {
			log.Ctx(r.Context()).Warn().Err(err).Msg("readiness check failed")
			RespondJSON(w, http.StatusServiceUnavailable, types.Health{Status: "unavailable"})
			return
		}
		RespondJSON(w, http.StatusOK, types.Health{Status: "ready"})
	}
}

// VersionHandler reports build metadata.
func VersionHandler(version, commit, buildDate string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		RespondJSON(w, http.StatusOK, types.Version{
			Version:   version,
			Commit:    commit,
			BuildDate: buildDate,
		})
	}
}

// OpenAPIHandler serves the embedded OpenAPI document.
func OpenAPIHandler(spec []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if len(spec) == 0 {
			RespondError(w, http.StatusNotFound, "OpenAPI document is not available.")
			return
		}
		w.Header().Set("Content-Type", "application/yaml")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(spec)
	}
}
