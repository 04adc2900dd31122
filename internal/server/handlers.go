package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/kimaki/hranad/internal/hrana"
	"github.com/kimaki/hranad/internal/storage"
)

// handlers holds HTTP handler dependencies.
type handlers struct {
	db       *storage.DB
	registry *hrana.Registry
	logger   *slog.Logger
	version  string
	maxBody  int64
}

type healthResponse struct {
	Status  string `json:"status"`
	PID     int    `json:"pid"`
	Version string `json:"version,omitempty"`
}

// handleHealth answers GET /health. The pid field doubles as the eviction
// protocol's self-vs-other discriminator, so it must always be present.
func (h *handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", PID: os.Getpid(), Version: h.version})
}

// handleVersion answers GET /v2.
func (h *handlers) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": "hrana-v2"})
}

// handlePipeline answers POST /v2/pipeline: one HTTP request carrying an
// ordered batch of protocol requests sharing one baton. The body is buffered
// and parsed up front; requests are processed strictly in array order and
// results mirror that order 1:1.
func (h *handlers) handlePipeline(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		writeProtoError(w, "failed to read request body: "+err.Error())
		return
	}

	var req hrana.PipelineRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeProtoError(w, "malformed pipeline request: "+err.Error())
		return
	}

	var baton string
	if req.Baton != nil {
		baton = *req.Baton
	}
	// Take grants this request exclusive ownership of the stream's session
	// until it is re-registered under a fresh baton below.
	store := h.registry.Take(baton)

	ctx := r.Context()
	conn, err := h.db.Conn(ctx)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]*hrana.Error{
			"error": {Message: "database unavailable: " + err.Error(), Code: hrana.CodeInternalError},
		})
		return
	}
	defer func() { _ = conn.Close() }()

	closed := false
	results := make([]hrana.StreamResult, 0, len(req.Requests))
	for _, rq := range req.Requests {
		if rq.Type == "close" {
			closed = true
		}
		results = append(results, hrana.Process(ctx, conn, rq, store))
	}

	resp := hrana.PipelineResponse{Results: results}
	if !closed {
		next := h.registry.Put(store)
		resp.Baton = &next
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeProtoError reports a body-level protocol failure as 400.
func writeProtoError(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, map[string]*hrana.Error{
		"error": {Message: message, Code: hrana.CodeProtoError},
	})
}

// writeJSON writes a JSON response. The wire contract defines exact body
// shapes, so there is no response envelope.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
