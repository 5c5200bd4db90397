// Package client provides a typed HTTP client SDK for football-api.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/footballdb/football-api/pkg/types"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 3

	playersPath     = "/players"
	teamsPath       = "/teams"
	playerTeamsPath = "/player_teams"
)

var newBackOff = func() backoff.BackOff {
	return backoff.NewExponentialBackOff()
}

// Config holds football client configuration.
type Config struct {
	// BaseURL is the root URL of the API (for example: http://localhost:8080).
	BaseURL string
	// Token is sent verbatim in the Authorization header when set.
	Token string
	// Timeout is the per-request timeout. Defaults to 30s. Ignored when
	// HTTPClient is set.
	Timeout time.Duration
	// MaxRetries is the number of retries for transport errors and 5xx
	// responses on idempotent methods. Negative disables retries.
	MaxRetries int
	HTTPClient *http.Client
}

// Client is the typed HTTP SDK for the football API.
type Client struct {
	http    *http.Client
	baseURL string
	cfg     Config
}

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("football-api: %d %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 APIError.
func IsNotFound(err error) bool {
	return hasStatus(err, http.StatusNotFound)
}

// IsUnauthorized reports whether err is a 401 APIError.
func IsUnauthorized(err error) bool {
	return hasStatus(err, http.StatusUnauthorized)
}

// IsBadRequest reports whether err is a 400 APIError.
func IsBadRequest(err error) bool {
	return hasStatus(err, http.StatusBadRequest)
}

func hasStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

// New creates a new football client.
func New(cfg Config) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, fmt.Errorf("client: BaseURL is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("client: invalid BaseURL: %w", err)
	}
	cfg.BaseURL = strings.TrimRight(baseURL, "/")

	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		http:    httpClient,
		baseURL: cfg.BaseURL,
		cfg:     cfg,
	}, nil
}

// Players returns the /players collection.
func (c *Client) Players() *Resource[types.Player] {
	return &Resource[types.Player]{client: c, path: playersPath, name: "player"}
}

// Teams returns the /teams collection.
func (c *Client) Teams() *Resource[types.Team] {
	return &Resource[types.Team]{client: c, path: teamsPath, name: "team"}
}

// PlayerTeams returns the /player_teams collection.
func (c *Client) PlayerTeams() *Resource[types.PlayerTeam] {
	return &Resource[types.PlayerTeam]{client: c, path: playerTeamsPath, name: "player_team"}
}

// Health calls GET /health.
func (c *Client) Health(ctx context.Context) (*types.Health, error) {
	var result types.Health
	if err := c.do(ctx, http.MethodGet, "/health", nil, &result); err != nil {
		return nil, fmt.Errorf("checking health: %w", err)
	}
	return &result, nil
}

// Version calls GET /version.
func (c *Client) Version(ctx context.Context) (*types.Version, error) {
	var result types.Version
	if err := c.do(ctx, http.MethodGet, "/version", nil, &result); err != nil {
		return nil, fmt.Errorf("getting version: %w", err)
	}
	return &result, nil
}

// ListOptions configures list pagination. Zero values use the server defaults.
type ListOptions struct {
	Limit  int
	Offset int
}

// Resource is the CRUD surface of one collection.
type Resource[T any] struct {
	client *Client
	path   string
	name   string
}

// List returns one page of the collection.
func (r *Resource[T]) List(ctx context.Context, opts ListOptions) (*types.Page[T], error) {
	query := url.Values{}
	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		query.Set("offset", strconv.Itoa(opts.Offset))
	}
	path := r.path
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var result types.Page[T]
	if err := r.client.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, fmt.Errorf("listing %ss: %w", r.name, err)
	}
	return &result, nil
}

// Get returns one record by id.
func (r *Resource[T]) Get(ctx context.Context, id int64) (*T, error) {
	var result T
	if err := r.client.do(ctx, http.MethodGet, r.itemPath(id), nil, &result); err != nil {
		return nil, fmt.Errorf("getting %s %d: %w", r.name, id, err)
	}
	return &result, nil
}

// Create registers a record and returns its id.
func (r *Resource[T]) Create(ctx context.Context, record T) (int64, error) {
	header, err := r.client.doHeader(ctx, http.MethodPost, r.path, record, nil)
	if err != nil {
		return 0, fmt.Errorf("creating %s: %w", r.name, err)
	}
	id, err := locationID(header.Get("Location"))
	if err != nil {
		return 0, fmt.Errorf("creating %s: %w", r.name, err)
	}
	return id, nil
}

// locationID extracts the record id from a Location of the form /<r>?id=N.
func locationID(location string) (int64, error) {
	u, err := url.Parse(location)
	if err != nil {
		return 0, fmt.Errorf("parsing location %q: %w", location, err)
	}
	id, err := strconv.ParseInt(u.Query().Get("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("no record id in location %q", location)
	}
	return id, nil
}

// Replace overwrites every field of the record with the given id.
func (r *Resource[T]) Replace(ctx context.Context, id int64, record T) error {
	if err := r.client.do(ctx, http.MethodPut, r.itemPath(id), record, nil); err != nil {
		return fmt.Errorf("replacing %s %d: %w", r.name, id, err)
	}
	return nil
}

// Patch updates only the given fields of the record with the given id.
func (r *Resource[T]) Patch(ctx context.Context, id int64, fields map[string]any) error {
	if len(fields) == 0 {
		return fmt.Errorf("patching %s %d: at least one field is required", r.name, id)
	}
	if err := r.client.do(ctx, http.MethodPatch, r.itemPath(id), fields, nil); err != nil {
		return fmt.Errorf("patching %s %d: %w", r.name, id, err)
	}
	return nil
}

// Delete removes the record with the given id.
func (r *Resource[T]) Delete(ctx context.Context, id int64) error {
	if err := r.client.do(ctx, http.MethodDelete, r.itemPath(id), nil, nil); err != nil {
		return fmt.Errorf("deleting %s %d: %w", r.name, id, err)
	}
	return nil
}

func (r *Resource[T]) itemPath(id int64) string {
	return r.path + "/" + strconv.FormatInt(id, 10)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	_, err := c.doHeader(ctx, method, path, body, out)
	return err
}

// doHeader is do that also returns the headers of the successful response.
func (c *Client) doHeader(ctx context.Context, method, path string, body, out any) (http.Header, error) {
	var payload []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		payload = encoded
	}

	retryable := method == http.MethodGet || method == http.MethodPut || method == http.MethodDelete
	var header http.Header
	attempt := func() error {
		h, err := c.send(ctx, method, path, payload, out)
		if err == nil {
			header = h
			return nil
		}
		var apiErr *APIError
		if !retryable || ctx.Err() != nil || (errors.As(err, &apiErr) && apiErr.StatusCode < 500) {
			return backoff.Permanent(err)
		}
		return err
	}

	if c.cfg.MaxRetries < 0 {
		return c.send(ctx, method, path, payload, out)
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(newBackOff(), uint64(c.cfg.MaxRetries)), ctx)
	if err := backoff.Retry(attempt, policy); err != nil {
		return nil, err
	}
	return header, nil
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte, out any) (http.Header, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", c.cfg.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var envelope types.Error
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil && envelope.Error != "" {
			apiErr.Message = envelope.Error
		}
		return nil, apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.Header, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return resp.Header, nil
}
