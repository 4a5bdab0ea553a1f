package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"traffic-predictor/internal/refdata"
	"traffic-predictor/internal/traffic"

	"github.com/rs/zerolog/log"
)

// Handler serves the traffic service's queries.
type Handler struct {
	svc *traffic.Service
	now func() time.Time
}

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Error     string `json:"error"`
	Available *bool  `json:"available,omitempty"`
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Health(h.now()))
}

func (h *Handler) ModelsInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.ModelsInfo())
}

// Predict24Hours handles GET /api/predict/24hours?day=&detector=
func (h *Handler) Predict24Hours(w http.ResponseWriter, r *http.Request) {
	now := h.now()

	day, err := intParam(r, "day", refdata.MondayFirst(now.Weekday()))
	if err != nil {
		writeError(w, err)
		return
	}

	out, err := h.svc.Forecast24h(day, r.URL.Query().Get("detector"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// PredictMap handles GET /api/predict/map?hour=&day=
func (h *Handler) PredictMap(w http.ResponseWriter, r *http.Request) {
	now := h.now()

	hour, err := intParam(r, "hour", now.Hour())
	if err != nil {
		writeError(w, err)
		return
	}
	day, err := intParam(r, "day", refdata.MondayFirst(now.Weekday()))
	if err != nil {
		writeError(w, err)
		return
	}

	out, err := h.svc.Snapshot(hour, day)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// Forecasts handles GET /api/prophet/predictions?hour=
func (h *Handler) Forecasts(w http.ResponseWriter, r *http.Request) {
	var hour *int
	if r.URL.Query().Get("hour") != "" {
		v, err := intParam(r, "hour", 0)
		if err != nil {
			writeError(w, err)
			return
		}
		hour = &v
	}

	out, err := h.svc.Forecasts(hour)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) ClusteringSummary(w http.ResponseWriter, _ *http.Request) {
	out, err := h.svc.ClusteringSummary()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) ClusteringModels(w http.ResponseWriter, _ *http.Request) {
	out, err := h.svc.ClusteringModels()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) Detectors(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Detectors())
}

// intParam reads an integer query parameter, returning def when it is absent.
func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", traffic.ErrInvalidQuery, name, raw)
	}
	return v, nil
}

// writeJSON encodes v before touching the response so an unencodable value
// becomes a 500 with a JSON error body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Int("status", status).Msg("failed to encode response")
		status = http.StatusInternalServerError
		body, _ = json.Marshal(ErrorResponse{Error: "failed to encode response"})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(body, '\n')); err != nil {
		log.Debug().Err(err).Msg("failed to write response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, traffic.ErrInvalidQuery):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, traffic.ErrDataUnavailable):
		available := false
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: err.Error(), Available: &available})
	default:
		log.Error().Err(err).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}
}
