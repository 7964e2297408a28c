package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/jwols/nws-extract/internal/db"
	"github.com/jwols/nws-extract/internal/extract"
	"go.uber.org/zap"
)

// ExtractHandler exposes the store contract over HTTP for the external
// ingestion and reporting collaborators.
type ExtractHandler struct {
	store  extract.Store
	logger *zap.Logger
}

func NewExtractHandler(store extract.Store, logger *zap.Logger) *ExtractHandler {
	return &ExtractHandler{
		store:  store,
		logger: logger.Named("extracts"),
	}
}

// RegisterRoutes registers the routes for this handler
func (h *ExtractHandler) RegisterRoutes(router *mux.Router, logger *zap.Logger) {
	router.HandleFunc("/v1/extracts", h.handleInsert).Methods("POST")
	router.HandleFunc("/v1/extracts", h.handleQueryByTimeRange).Methods("GET")
	router.HandleFunc("/v1/extracts/query", h.handleQueryByPayload).Methods("POST")
}

type insertRequest struct {
	RunTS     time.Time       `json:"run_ts_utc"`
	Location  string          `json:"location"`
	Lat       *float64        `json:"lat"`
	Lon       *float64        `json:"lon"`
	SourceURL *string         `json:"source_url"`
	Payload   json.RawMessage `json:"payload"`
}

func (h *ExtractHandler) handleInsert(w http.ResponseWriter, req *http.Request) {
	var body insertRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	id, err := h.store.Insert(req.Context(), db.Record{
		RunTS:     body.RunTS,
		Location:  body.Location,
		Lat:       body.Lat,
		Lon:       body.Lon,
		SourceURL: body.SourceURL,
		Payload:   body.Payload,
	})
	if err != nil {
		h.writeStoreError(w, err, "insert failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"id": id})
}

func (h *ExtractHandler) handleQueryByTimeRange(w http.ResponseWriter, req *http.Request) {
	start, err := time.Parse(time.RFC3339, req.URL.Query().Get("start"))
	if err != nil {
		http.Error(w, "Invalid or missing 'start' parameter (RFC3339)", http.StatusBadRequest)
		return
	}
	end, err := time.Parse(time.RFC3339, req.URL.Query().Get("end"))
	if err != nil {
		http.Error(w, "Invalid or missing 'end' parameter (RFC3339)", http.StatusBadRequest)
		return
	}

	records, err := h.store.QueryByTimeRange(req.Context(), start, end)
	if err != nil {
		h.writeStoreError(w, err, "time range query failed")
		return
	}
	h.writeRecords(w, records)
}

func (h *ExtractHandler) handleQueryByPayload(w http.ResponseWriter, req *http.Request) {
	body, err := io.ReadAll(io.LimitReader(req.Body, 1<<20))
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	if !json.Valid(body) {
		http.Error(w, "Containment predicate must be valid JSON", http.StatusBadRequest)
		return
	}

	records, err := h.store.QueryByPayload(req.Context(), body)
	if err != nil {
		h.writeStoreError(w, err, "payload query failed")
		return
	}
	h.writeRecords(w, records)
}

func (h *ExtractHandler) writeRecords(w http.ResponseWriter, records []db.Record) {
	if records == nil {
		records = []db.Record{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"count":   len(records),
		"records": records,
	})
}

func (h *ExtractHandler) writeStoreError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, db.ErrConstraintViolation):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, db.ErrConnectivity):
		h.logger.Error(msg, zap.Error(err))
		http.Error(w, "Storage unavailable", http.StatusServiceUnavailable)
	default:
		h.logger.Error(msg, zap.Error(err))
		http.Error(w, "Internal error", http.StatusInternalServerError)
	}
}
