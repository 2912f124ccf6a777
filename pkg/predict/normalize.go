package predict

import (
	"cmp"
	"slices"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mpapenbr/f1-race-predictor/pkg/model"
)

//nolint:gochecknoglobals // lookup table
var pointsTable = []int{25, 18, 15, 12, 10, 8, 6, 4, 2, 1}

// PointsFor returns the championship points for a finishing position
func PointsFor(position int) int {
	if position < 1 || position > len(pointsTable) {
		return 0
	}
	return pointsTable[position-1]
}

// Normalize replaces the win probabilities of the records with local scores
// normalized to 100, sorts them descending and assigns positions and points.
// Rounding drift of the total is not corrected.
// The input is not modified.
func Normalize(records []model.PredictionRecord, weather model.Weather) []model.PredictionRecord {
	if len(records) == 0 {
		return []model.PredictionRecord{}
	}
	scores := lo.Map(records, func(r model.PredictionRecord, _ int) decimal.Decimal {
		return decimal.NewFromFloat(RawScore(r.Driver, r.Constructor, r.Grid, weather))
	})
	total := decimal.Sum(scores[0], scores[1:]...)
	hundred := decimal.NewFromInt(100)

	ret := make([]model.PredictionRecord, len(records))
	for i := range records {
		ret[i] = records[i]
		ret[i].WinProbability = round2(scores[i].Mul(hundred).Div(total))
	}
	slices.SortStableFunc(ret, func(a, b model.PredictionRecord) int {
		return cmp.Compare(b.WinProbability, a.WinProbability)
	})
	for i := range ret {
		pos := i + 1
		ret[i].PredictedPosition = pos
		ret[i].PodiumChance = pos <= 3
		ret[i].PointsChance = pos <= 10
		ret[i].PointsEarned = PointsFor(pos)
	}
	return ret
}

// NormalizeResult applies Normalize to a successful server result.
// RaceInfo and tire strategies are passed through.
func NormalizeResult(res *model.PredictionResult, weather model.Weather) *model.PredictionResult {
	return &model.PredictionResult{
		Success:     res.Success,
		Predictions: Normalize(res.Predictions, weather),
		RaceInfo:    res.RaceInfo,
	}
}
