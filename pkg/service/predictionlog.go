package service

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/mpapenbr/f1-race-predictor/log"
	"github.com/mpapenbr/f1-race-predictor/pkg/model"
	"github.com/mpapenbr/f1-race-predictor/pkg/repository/predictionlog"
	"github.com/mpapenbr/f1-race-predictor/pkg/session"
)

// logPrediction records a summary of res. Errors are logged only.
//
//nolint:whitespace // editor/linter issue
func (s *PredictorService) logPrediction(
	ctx context.Context, d *session.Data, res *model.PredictionResult,
) {
	if s.db == nil {
		return
	}
	entry := &predictionlog.Entry{
		Circuit:     d.Circuit,
		Weather:     string(d.Weather),
		Temperature: res.RaceInfo.Temperature,
		TrackTemp:   res.RaceInfo.TrackTemp,
		NumEntries:  len(res.Predictions),
	}
	if id, err := uuid.FromString(d.ID); err == nil {
		entry.SessionID = uuid.NullUUID{UUID: id, Valid: true}
	}
	if len(res.Predictions) > 0 {
		entry.WinnerPrediction = res.Predictions[0].Driver
		entry.WinnerProbability = res.Predictions[0].WinProbability
	}
	if err := predictionlog.Create(ctx, s.db, entry); err != nil {
		s.log.Warn("could not store prediction log", log.ErrorField(err))
	}
}
