// Package httputil holds the JSON response helpers and middleware shared by
// every football-api route.
package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/footballdb/football-api/pkg/types"
)

var (
	// ErrInvalidJSON is returned when a request body is not a JSON object.
	ErrInvalidJSON = errors.New("invalid JSON body")
	// ErrBodyTooLarge is returned when a request body exceeds BodyLimit.
	ErrBodyTooLarge = errors.New("request body too large")
)

// RespondJSON writes v as JSON with the given status.
func RespondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Int("status", status).Msg("failed to encode response")
	}
}

// RespondError writes the {"error": message} envelope.
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, types.Error{Error: message})
}

// DecodeObject reads the request body as a JSON object. Numbers are kept as
// json.Number so integer fields survive without float rounding. An empty body
// decodes to an empty object.
func DecodeObject(r *http.Request) (map[string]any, error) {
	payload := map[string]any{}
	if r.Body == nil {
		return payload, nil
	}

	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return nil, ErrBodyTooLarge
		case errors.Is(err, io.EOF):
			return map[string]any{}, nil
		default:
			return nil, ErrInvalidJSON
		}
	}
	if payload == nil {
		// The body was the literal null.
		payload = map[string]any{}
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, ErrBodyTooLarge
		}
		return nil, ErrInvalidJSON
	}
	return payload, nil
}
