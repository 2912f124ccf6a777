package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mpapenbr/f1-race-predictor/log"
	"github.com/mpapenbr/f1-race-predictor/pkg/grid"
	"github.com/mpapenbr/f1-race-predictor/pkg/model"
	"github.com/mpapenbr/f1-race-predictor/pkg/service"
	"github.com/mpapenbr/f1-race-predictor/pkg/session"
)

var errBadRequest = errors.New("bad request")

type errorResponse struct {
	Error string `json:"error"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, grid.ErrInvalidSlot),
		errors.Is(err, grid.ErrInvalidIndex),
		errors.Is(err, grid.ErrInvalidCollection),
		errors.Is(err, model.ErrUnknownWeather),
		errors.Is(err, service.ErrUnknownDriver),
		errors.Is(err, service.ErrNoCircuit):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrSessionNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Error("request failed", log.ErrorField(err))
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn("could not write response", log.ErrorField(err))
	}
}
