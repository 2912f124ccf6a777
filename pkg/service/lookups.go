package service

import (
	"context"

	"github.com/mpapenbr/f1-race-predictor/log"
	"github.com/mpapenbr/f1-race-predictor/pkg/model"
)

// The lookups never fail. If the prediction server is not available an
// empty collection is returned.

func (s *PredictorService) Teams(ctx context.Context) model.Teams {
	ret, err := s.collab.Teams(ctx)
	if err != nil {
		s.lookupFailed("teams", err)
		return model.Teams{}
	}
	return ret
}

func (s *PredictorService) Circuits(ctx context.Context) []model.Circuit {
	ret, err := s.collab.Circuits(ctx)
	if err != nil {
		s.lookupFailed("circuits", err)
		return []model.Circuit{}
	}
	return ret
}

func (s *PredictorService) DriverStats(ctx context.Context) map[string]model.DriverStats {
	ret, err := s.collab.DriverStats(ctx)
	if err != nil {
		s.lookupFailed("driver-stats", err)
		return map[string]model.DriverStats{}
	}
	return ret
}

func (s *PredictorService) ConstructorStandings(ctx context.Context) []model.ConstructorStanding {
	ret, err := s.collab.ConstructorStandings(ctx)
	if err != nil {
		s.lookupFailed("constructor-standings", err)
		return []model.ConstructorStanding{}
	}
	return ret
}

func (s *PredictorService) lookupFailed(what string, err error) {
	s.log.Warn("lookup failed", log.String("lookup", what), log.ErrorField(err))
}
