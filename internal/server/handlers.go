package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/footballdb/football-api/internal/events"
	"github.com/footballdb/football-api/internal/httputil"
	"github.com/footballdb/football-api/internal/model"
	"github.com/footballdb/football-api/internal/pagination"
	"github.com/footballdb/football-api/internal/store"
	"github.com/footballdb/football-api/pkg/types"
)

const (
	msgFetchFailed  = "Error fetching data."
	msgCreateFailed = "Error registering record."
	msgUpdateFailed = "Error updating record."
	msgDeleteFailed = "Error deleting record."

	msgInvalidJSON  = "Invalid JSON body."
	msgBodyTooLarge = "Request body too large."
	msgIDMismatch   = "The id in the body does not match the id in the path."

	publishTimeout = 5 * time.Second
)

// resourceHandler serves the CRUD routes of one catalog resource.
type resourceHandler struct {
	server *Server
	res    model.Resource
	repo   store.Repository
}

func (h *resourceHandler) handleList(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if query.Has(model.IDField) {
		h.respondRecord(w, r, query.Get(model.IDField))
		return
	}

	cfg := h.server.cfg
	params := pagination.ParseParams(query, cfg.PageLimit, cfg.PageMaxLimit)
	records, total, err := h.repo.List(r.Context(), params.Limit, params.Offset)
	if err != nil {
		h.respondError(w, r, err, msgFetchFailed)
		return
	}

	window := pagination.Plan(total, params, pagination.Links(cfg.PublicURL, h.res.Path()))
	httputil.RespondJSON(w, http.StatusOK, types.Page[model.Record]{
		Count:    window.Total,
		Previous: window.Previous,
		Next:     window.Next,
		Result:   records,
	})
}

func (h *resourceHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	h.respondRecord(w, r, chi.URLParam(r, "id"))
}

func (h *resourceHandler) respondRecord(w http.ResponseWriter, r *http.Request, rawID string) {
	id, err := model.ParseID(h.res, rawID)
	if err != nil {
		h.respondError(w, r, err, msgFetchFailed)
		return
	}

	record, err := h.repo.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err, msgFetchFailed)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, record)
}

func (h *resourceHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	payload, ok := h.decode(w, r)
	if !ok {
		return
	}

	assignments, err := model.ValidateCreate(h.res, payload)
	if err != nil {
		h.respondError(w, r, err, msgCreateFailed)
		return
	}

	id, err := h.repo.Create(r.Context(), assignments)
	if err != nil {
		h.respondError(w, r, err, msgCreateFailed)
		return
	}

	w.Header().Set("Location", h.res.Path()+"?id="+strconv.FormatInt(id, 10))
	httputil.RespondJSON(w, http.StatusCreated, types.Message{Message: h.res.Messages.Created})
	h.publish(r, events.ActionCreated, id, assignments)
}

func (h *resourceHandler) handleReplace(w http.ResponseWriter, r *http.Request) {
	payload, ok := h.decode(w, r)
	if !ok {
		return
	}
	if err := h.applyPathID(r, payload); err != nil {
		h.respondError(w, r, err, msgUpdateFailed)
		return
	}

	id, assignments, err := model.ValidateReplace(h.res, payload)
	if err != nil {
		h.respondError(w, r, err, msgUpdateFailed)
		return
	}

	if err := h.repo.Replace(r.Context(), id, assignments); err != nil {
		h.respondError(w, r, err, msgUpdateFailed)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, types.Message{Success: true, Message: h.res.Messages.Updated})
	h.publish(r, events.ActionReplaced, id, assignments)
}

func (h *resourceHandler) handlePatch(w http.ResponseWriter, r *http.Request) {
	payload, ok := h.decode(w, r)
	if !ok {
		return
	}
	if err := h.applyPathID(r, payload); err != nil {
		h.respondError(w, r, err, msgUpdateFailed)
		return
	}

	update, err := model.ComposePatch(h.res, payload)
	if err != nil {
		h.respondError(w, r, err, msgUpdateFailed)
		return
	}

	if err := h.repo.Patch(r.Context(), update); err != nil {
		h.respondError(w, r, err, msgUpdateFailed)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, types.Message{Success: true, Message: h.res.Messages.Updated})
	h.publish(r, events.ActionPatched, update.ID, update.Assignments)
}

func (h *resourceHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	rawID := chi.URLParam(r, "id")
	if rawID == "" {
		rawID = r.URL.Query().Get(model.IDField)
	}

	id, err := model.ParseID(h.res, rawID)
	if err != nil {
		h.respondError(w, r, err, msgDeleteFailed)
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		h.respondError(w, r, err, msgDeleteFailed)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, types.Message{Success: true, Message: h.res.Messages.Deleted})
	h.publish(r, events.ActionDeleted, id, nil)
}

// decode reads the body as a JSON object and answers 400 or 413 itself when
// it cannot.
func (h *resourceHandler) decode(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	payload, err := httputil.DecodeObject(r)
	switch {
	case err == nil:
		return payload, true
	case errors.Is(err, httputil.ErrBodyTooLarge):
		httputil.RespondError(w, http.StatusRequestEntityTooLarge, msgBodyTooLarge)
	default:
		httputil.RespondError(w, http.StatusBadRequest, msgInvalidJSON)
	}
	return nil, false
}

// applyPathID fills the body id from the {id} path segment. A body id that
// disagrees with the path is rejected.
func (h *resourceHandler) applyPathID(r *http.Request, payload map[string]any) error {
	rawID := chi.URLParam(r, "id")
	if rawID == "" {
		return nil
	}
	pathID, err := model.ParseID(h.res, rawID)
	if err != nil {
		return err
	}

	if payload[model.IDField] == nil {
		payload[model.IDField] = pathID
		return nil
	}
	bodyID, err := model.ParseID(h.res, payload[model.IDField])
	if err != nil {
		return err
	}
	if bodyID != pathID {
		return model.NewValidationError(msgIDMismatch)
	}
	return nil
}

// respondError maps validation, not-found and store failures to 400, 404 and
// 500. Store failures are logged and answered with fallback.
func (h *resourceHandler) respondError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	if verr, ok := model.IsValidation(err); ok {
		httputil.RespondError(w, http.StatusBadRequest, verr.Message)
		return
	}
	if errors.Is(err, store.ErrNotFound) {
		httputil.RespondError(w, http.StatusNotFound, h.res.Messages.NotFound)
		return
	}

	log.Ctx(r.Context()).Error().
		Err(err).
		Str("resource", h.res.Name).
		Str("method", r.Method).
		Msg("store operation failed")
	httputil.RespondError(w, http.StatusInternalServerError, fallback)
}

// publish emits the change event of a committed write. The response has
// already been written, so a failure is only logged and counted.
func (h *resourceHandler) publish(r *http.Request, action events.Action, id int64, assignments []model.Assignment) {
	publisher := h.server.publisher
	if publisher == nil {
		return
	}

	change := events.Change{Resource: h.res.Name, Action: action, ID: id}
	if len(assignments) > 0 {
		change.Values = model.Values(assignments)
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), publishTimeout)
	defer cancel()

	err := publisher.Publish(ctx, change)
	if h.server.metrics != nil {
		h.server.metrics.EventPublished(h.res.Name, string(action), err)
	}
	if err != nil {
		log.Ctx(r.Context()).Warn().
			Err(err).
			Str("resource", h.res.Name).
			Str("action", string(action)).
			Int64("id", id).
			Msg("failed to publish change event")
	}
}
