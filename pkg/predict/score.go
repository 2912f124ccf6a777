package predict

import (
	"math"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/mpapenbr/f1-race-predictor/pkg/model"
)

const (
	minScore = 0.1
	maxScore = 40.0
	// each grid position behind P1 costs 8% of the base score
	gridDecay = 0.08
)

//nolint:gochecknoglobals // lookup tables
var (
	constructorBaseRate = map[string]float64{
		"McLaren":         25,
		"Ferrari":         22,
		"Red Bull Racing": 20,
		"Mercedes":        18,
		"Aston Martin":    8,
		"Alpine":          4,
		"Williams":        2,
		"Haas":            1,
		"RB":              1.5,
		"Kick Sauber":     0.5,
	}

	driverSkill = map[string]float64{
		"Max Verstappen":    1.4,
		"Lewis Hamilton":    1.3,
		"Charles Leclerc":   1.25,
		"Lando Norris":      1.2,
		"George Russell":    1.15,
		"Fernando Alonso":   1.2,
		"Oscar Piastri":     1.1,
		"Carlos Sainz":      1.1,
		"Pierre Gasly":      1.0,
		"Alex Albon":        0.95,
		"Lance Stroll":      0.85,
		"Yuki Tsunoda":      0.9,
		"Nico Hülkenberg":   0.95,
		"Esteban Ocon":      0.9,
		"Kimi Antonelli":    0.8,
		"Oliver Bearman":    0.8,
		"Franco Colapinto":  0.7,
		"Gabriel Bortoleto": 0.7,
		"Isack Hadjar":      0.75,
		"Liam Lawson":       0.85,
	}

	wetWeatherExperts = []string{"Lewis Hamilton", "Max Verstappen", "Fernando Alonso"}
)

func BaseRate(constructor string) float64 {
	if v, ok := constructorBaseRate[constructor]; ok {
		return v
	}
	return 1
}

func Skill(driver string) float64 {
	if v, ok := driverSkill[driver]; ok {
		return v
	}
	return 1
}

func GridFactor(grid int) float64 {
	return math.Max(0, 1-float64(grid-1)*gridDecay)
}

func WeatherFactor(driver string, weather model.Weather) float64 {
	if weather != model.WeatherWet {
		return 1
	}
	if slices.Contains(wetWeatherExperts, driver) {
		return 1.3
	}
	return 0.9
}

// RawScore is the unnormalized win score, clamped to [0.1, 40] and
// rounded to 2 decimals.
func RawScore(driver, constructor string, grid int, weather model.Weather) float64 {
	v := BaseRate(constructor) * Skill(driver) * GridFactor(grid) *
		WeatherFactor(driver, weather)
	v = math.Min(maxScore, math.Max(minScore, v))
	return round2(decimal.NewFromFloat(v))
}

func round2(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
