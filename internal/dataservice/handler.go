package dataservice

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/ThinhEm47/MixiPOS-Coffee-sub000/internal/common/httpx"
	"github.com/ThinhEm47/MixiPOS-Coffee-sub000/internal/common/logger"
)

// writeResult mirrors the wire contract the POS engine expects: every
// write answers {success, message?}, every read answers a bare array.
type writeResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type Handler struct {
	svc *Service
	lg  *logger.Logger
}

func NewHandler(svc *Service, lg *logger.Logger) *Handler {
	return &Handler{svc: svc, lg: lg}
}

func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/{entity}/{op}", h.dispatch)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func (h *Handler) dispatch(w http.ResponseWriter, r *http.Request) {
	entity := r.PathValue("entity")
	op := r.PathValue("op")

	if op == "getall" {
		list, err := h.svc.GetAll(r.Context(), entity)
		if err != nil {
			h.lg.Error("getall_failed", err, map[string]any{"entity": entity})
			h.writeError(w, entity, op, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(list)
		return
	}

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeJSON(w, http.StatusOK, writeResult{Success: false, Message: "unreadable body"})
		return
	}
	if err := h.svc.Write(r.Context(), entity, op, payload); err != nil {
		h.lg.Error("write_failed", err, map[string]any{"entity": entity, "op": op})
		h.writeError(w, entity, op, err)
		return
	}
	h.lg.Debug("write_applied", map[string]any{"entity": entity, "op": op})
	h.writeJSON(w, http.StatusOK, writeResult{Success: true})
}

// Failures are conveyed in-band as {success:false}; unknown routes still
// get a 404 so misconfigured clients fail loudly.
func (h *Handler) writeError(w http.ResponseWriter, entity, op string, err error) {
	status := http.StatusOK
	if errors.Is(err, ErrUnknownEntity) || errors.Is(err, ErrUnsupportedOp) {
		status = http.StatusNotFound
	}
	h.writeJSON(w, status, writeResult{Success: false, Message: err.Error()})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Run wires repository, service and handler and serves until ctx ends.
func Run(ctx context.Context, port int, conn *sql.DB) error {
	lg := logger.New("data-service")
	svc := NewService(NewStore(conn))
	h := NewHandler(svc, lg)

	srv := httpx.New(":"+strconv.Itoa(port), h.Routes())
	lg.Info("listening", map[string]any{"port": port})
	return srv.Run(ctx)
}
