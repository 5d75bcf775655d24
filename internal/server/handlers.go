package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"MarketPulse/internal/calendar"
	"MarketPulse/internal/model"
	"MarketPulse/internal/pipeline"
	"MarketPulse/internal/recorder"
	"MarketPulse/internal/store"
)

// Refresher runs one refresh.
type Refresher interface {
	Refresh(ctx context.Context, trigger string) (*pipeline.Report, error)
}

// Handler serves the stored artifacts and the update trigger.
type Handler struct {
	store     store.Store
	refresher Refresher
	recorder  recorder.Recorder
	log       zerolog.Logger
}

// NewHandler creates a Handler. rec may be nil.
func NewHandler(st store.Store, refresher Refresher, rec recorder.Recorder, log zerolog.Logger) *Handler {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Handler{
		store:     st,
		refresher: refresher,
		recorder:  rec,
		log:       log.With().Str("component", "api").Logger(),
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"service": "marketpulse",
	})
}

// MarketData returns the latest snapshot.
func (h *Handler) MarketData(w http.ResponseWriter, r *http.Request) {
	snap, err := h.store.LoadSnapshot()
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Market data not found. Run an update first.")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("load snapshot")
		writeError(w, http.StatusInternalServerError, "Failed to load market data")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// HistoricalData returns the history, optionally limited by from/to (YYYY-MM-DD, inclusive).
func (h *Handler) HistoricalData(w http.ResponseWriter, r *http.Request) {
	from, to := r.URL.Query().Get("from"), r.URL.Query().Get("to")
	for _, v := range []string{from, to} {
		if v == "" {
			continue
		}
		if _, err := calendar.ParseDay(v); err != nil {
			writeError(w, http.StatusBadRequest, "from/to must be YYYY-MM-DD")
			return
		}
	}

	points, err := h.store.LoadHistory()
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Historical data not found. Run an update first.")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("load history")
		writeError(w, http.StatusInternalServerError, "Failed to load historical data")
		return
	}
	writeJSON(w, http.StatusOK, filterRange(points, from, to))
}

// filterRange keeps points with from <= date <= to. Dates compare lexically.
func filterRange(points []model.HistoricalPoint, from, to string) []model.HistoricalPoint {
	out := make([]model.HistoricalPoint, 0, len(points))
	for _, p := range points {
		if from != "" && p.Date < from {
			continue
		}
		if to != "" && p.Date > to {
			continue
		}
		out = append(out, p)
	}
	return out
}

// UpdateData runs a refresh synchronously.
func (h *Handler) UpdateData(w http.ResponseWriter, r *http.Request) {
	report, err := h.refresher.Refresh(r.Context(), pipeline.TriggerAPI)
	switch {
	case errors.Is(err, pipeline.ErrRefreshInProgress):
		writeError(w, http.StatusConflict, "An update is already running")
		return
	case errors.Is(err, pipeline.ErrNoMarketData):
		writeError(w, http.StatusBadGateway, "No market data available from the provider")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "Failed to update data")
		return
	}

	failed := make(map[string]string, len(report.Failed))
	for k, e := range report.Failed {
		failed[k] = e.Error()
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"message":   "Data updated successfully",
		"runId":     report.Snapshot.RunID,
		"date":      report.Snapshot.Date,
		"sentiment": report.Snapshot.Sentiment,
		"points":    report.Points,
		"failed":    failed,
	})
}

// Runs lists recent refresh runs; ?limit= defaults to 20.
func (h *Handler) Runs(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}
	runs, err := h.recorder.RecentRuns(limit)
	if err != nil {
		h.log.Error().Err(err).Msg("list runs")
		writeError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}
	if runs == nil {
		runs = []recorder.RunRecord{}
	}
	writeJSON(w, http.StatusOK, runs)
}
