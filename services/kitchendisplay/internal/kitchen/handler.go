package kitchen

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/appetiteclub/comandas/pkg/enums/dishstatus"
	"github.com/appetiteclub/comandas/services/kitchendisplay/internal/comanda"
	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const (
	MaxBodyBytes      = 1 << 20
	keepaliveInterval = 30 * time.Second
)

type Handler struct {
	engine      *Engine
	broadcaster *Broadcaster
	logger      aqm.Logger
	config      *aqm.Config
	tlm         *telemetry.HTTP
}

type UpdateDishStatusRequest struct {
	Status string `json:"status"`
}

type UpdateDishStatusResponse struct {
	Applied   bool   `json:"applied"`
	Action    string `json:"action"`
	Delivered bool   `json:"delivered"`
	Synced    bool   `json:"synced"`
	Error     string `json:"error,omitempty"`
}

func NewHandler(engine *Engine, broadcaster *Broadcaster, config *aqm.Config, logger aqm.Logger) *Handler {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &Handler{
		engine:      engine,
		broadcaster: broadcaster,
		logger:      logger,
		config:      config,
		tlm:         telemetry.NewHTTP(),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/comandas", func(r chi.Router) {
		r.Get("/", h.ListComandas)
		r.Get("/cache", h.GetLocalCache)
		r.Get("/report", h.GetReport)
		r.Get("/events", h.StreamComandas)
		r.Get("/{id}", h.GetComanda)
		r.Put("/{id}/platos/{dishID}/estado", h.UpdateDishStatus)
	})
}

func (h *Handler) log(r *http.Request) aqm.Logger {
	return h.logger.With("request_id", aqm.RequestIDFrom(r.Context()))
}

// ListComandas returns the active tickets, optionally narrowed by ?q= to
// tickets holding a dish whose name contains the query.
func (h *Handler) ListComandas(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListComandas")
	defer finish()

	tickets := h.engine.Tickets()
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		tickets = comanda.FilterByDishName(tickets, q)
	}

	aqm.Respond(w, http.StatusOK, map[string]interface{}{
		"comandas": tickets,
	}, nil)
}

func (h *Handler) GetComanda(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetComanda")
	defer finish()

	id := chi.URLParam(r, "id")
	ticket, err := h.engine.Ticket(id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			aqm.RespondError(w, http.StatusNotFound, "Comanda not found")
			return
		}
		h.log(r).Errorf("cannot get comanda: %v", err)
		aqm.RespondError(w, http.StatusInternalServerError, "Could not get comanda")
		return
	}

	aqm.Respond(w, http.StatusOK, ticket, nil)
}

// GetLocalCache returns what was last persisted, which may lag the
// in-memory state by one write.
func (h *Handler) GetLocalCache(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetLocalCache")
	defer finish()

	tickets, err := h.engine.LocalCache(r.Context())
	if err != nil {
		h.log(r).Errorf("cannot read local cache: %v", err)
		aqm.RespondError(w, http.StatusInternalServerError, "Could not read local cache")
		return
	}

	aqm.Respond(w, http.StatusOK, map[string]interface{}{
		"comandas": tickets,
	}, nil)
}

// GetReport summarizes the last snapshot, delivered tickets included.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetReport")
	defer finish()

	aqm.Respond(w, http.StatusOK, comanda.Summarize(h.engine.Snapshot()), nil)
}

func (h *Handler) UpdateDishStatus(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.UpdateDishStatus")
	defer finish()
	log := h.log(r)
	ctx := r.Context()

	ticketID := chi.URLParam(r, "id")
	dishID := chi.URLParam(r, "dishID")
	if ticketID == "" || dishID == "" {
		aqm.RespondError(w, http.StatusBadRequest, "Missing comanda or dish ID")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	var req UpdateDishStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		aqm.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	status := dishstatus.ByName(req.Status)
	if status == nil {
		aqm.RespondError(w, http.StatusBadRequest, fmt.Sprintf("Unknown dish status %q", req.Status))
		return
	}

	result, err := h.engine.ApplyDishEdit(ctx, ticketID, dishID, *status)
	if err != nil {
		log.Errorf("cannot apply dish edit: %v", err)
		aqm.RespondError(w, http.StatusInternalServerError, "Could not update dish status")
		return
	}

	resp := UpdateDishStatusResponse{
		Applied:   result.Applied(),
		Action:    result.Action.String(),
		Delivered: result.Delivered,
		Synced:    result.WriteBackErr == nil,
	}
	if result.WriteBackErr != nil {
		log.Info("dish edit kept locally, order service not updated", "ticket_id", ticketID, "dish_id", dishID, "error", result.WriteBackErr)
		resp.Error = result.WriteBackErr.Error()
	}

	aqm.Respond(w, http.StatusOK, resp, nil)
}

// StreamComandas pushes the canonical state as server-sent events. The
// current state is sent on connect.
func (h *Handler) StreamComandas(w http.ResponseWriter, r *http.Request) {
	if h.broadcaster == nil {
		aqm.RespondError(w, http.StatusServiceUnavailable, "Streaming not available")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		aqm.RespondError(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	subscriberID := uuid.NewString()
	updates := h.broadcaster.Subscribe(subscriberID)
	defer h.broadcaster.Unsubscribe(subscriberID)

	fmt.Fprintf(w, ": connected\n\n")
	fmt.Fprintf(w, "retry: %d\n\n", h.engine.Interval().Milliseconds())
	if err := writeSnapshotEvent(w, h.engine.Tickets()); err != nil {
		h.log(r).Error("cannot write comandas event", "error", err)
		return
	}
	flusher.Flush()

	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			fmt.Fprintf(w, ": keepalive\n\n")
			flusher.Flush()
		case tickets, ok := <-updates:
			if !ok {
				return
			}
			if err := writeSnapshotEvent(w, tickets); err != nil {
				h.log(r).Error("cannot write comandas event", "error", err)
				return
			}
			flusher.Flush()
		}
	}
}

func writeSnapshotEvent(w http.ResponseWriter, tickets []comanda.Ticket) error {
	if tickets == nil {
		tickets = []comanda.Ticket{}
	}
	data, err := json.Marshal(tickets)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", data)
	return err
}
