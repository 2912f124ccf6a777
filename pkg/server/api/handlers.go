package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/mpapenbr/f1-race-predictor/log"
	"github.com/mpapenbr/f1-race-predictor/pkg/model"
	"github.com/mpapenbr/f1-race-predictor/pkg/service"
)

const maxBodySize = 64 * 1024

type (
	slotRequest struct {
		Slot int `json:"slot"`
	}
	assignRequest struct {
		Slot        int    `json:"slot"`
		Driver      string `json:"driver"`
		Constructor string `json:"constructor"`
	}
	entryRequest struct {
		From  model.Collection `json:"from"`
		Index int              `json:"index"`
	}
	transferRequest struct {
		From  model.Collection `json:"from"`
		To    model.Collection `json:"to"`
		Index int              `json:"index"`
	}
	// noPredictions is sent while there is no prediction to show
	noPredictions struct {
		Success     bool                     `json:"success"`
		Predictions []model.PredictionRecord `json:"predictions"`
	}
)

func decodeBody(w http.ResponseWriter, r *http.Request, target any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err := dec.Decode(target); err != nil {
		return fmt.Errorf("%w: %w", errBadRequest, err)
	}
	return nil
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request, id string) {
	v, err := s.svc.View(r.Context(), id)
	s.respond(w, v, err)
}

func (s *Server) assign(w http.ResponseWriter, r *http.Request, id string) {
	var req assignRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	v, err := s.svc.Assign(r.Context(), id, req.Slot, req.Driver, req.Constructor)
	s.respond(w, v, err)
}

func (s *Server) moveToPitLane(w http.ResponseWriter, r *http.Request, id string) {
	var req slotRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	v, err := s.svc.MoveToPitLane(r.Context(), id, req.Slot)
	s.respond(w, v, err)
}

func (s *Server) moveToNotRacing(w http.ResponseWriter, r *http.Request, id string) {
	var req slotRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	v, err := s.svc.MoveToNotRacing(r.Context(), id, req.Slot)
	s.respond(w, v, err)
}

func (s *Server) moveToGrid(w http.ResponseWriter, r *http.Request, id string) {
	var req entryRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	v, err := s.svc.MoveToGrid(r.Context(), id, req.From, req.Index)
	s.respond(w, v, err)
}

func (s *Server) transfer(w http.ResponseWriter, r *http.Request, id string) {
	var req transferRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	v, err := s.svc.Transfer(r.Context(), id, req.From, req.To, req.Index)
	s.respond(w, v, err)
}

func (s *Server) remove(w http.ResponseWriter, r *http.Request, id string) {
	var req entryRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	v, err := s.svc.Remove(r.Context(), id, req.From, req.Index)
	s.respond(w, v, err)
}

func (s *Server) clearAll(w http.ResponseWriter, r *http.Request, id string) {
	v, err := s.svc.ClearAll(r.Context(), id)
	s.respond(w, v, err)
}

func (s *Server) available(w http.ResponseWriter, r *http.Request, id string) {
	slot, err := strconv.Atoi(r.PathValue("slot"))
	if err != nil {
		writeError(w, fmt.Errorf("%w: slot %q", errBadRequest, r.PathValue("slot")))
		return
	}
	entries, err := s.svc.AvailableFor(r.Context(), id, slot)
	s.respond(w, entries, err)
}

func (s *Server) selection(w http.ResponseWriter, r *http.Request, id string) {
	var req service.Selection
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	v, err := s.svc.Select(r.Context(), id, req)
	s.respond(w, v, err)
}

func (s *Server) predict(w http.ResponseWriter, r *http.Request, id string) {
	res, err := s.svc.Predict(r.Context(), id)
	if errors.Is(err, service.ErrNoPredictions) {
		s.log.Debug("no predictions", log.String("session_id", id), log.ErrorField(err))
		writeJSON(w, http.StatusOK, noPredictions{})
		return
	}
	s.respond(w, res, err)
}

func (s *Server) lastPrediction(w http.ResponseWriter, r *http.Request, id string) {
	if res := s.svc.LastPrediction(id); res != nil {
		writeJSON(w, http.StatusOK, res)
		return
	}
	writeJSON(w, http.StatusOK, noPredictions{})
}

func (s *Server) teams(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Teams(r.Context()))
}

func (s *Server) circuits(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Circuits(r.Context()))
}

func (s *Server) driverStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.DriverStats(r.Context()))
}

func (s *Server) constructorStandings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.ConstructorStandings(r.Context()))
}

func (s *Server) respond(w http.ResponseWriter, v any, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}
