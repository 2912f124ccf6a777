// Package basedata provides sample data of the 2025 season for tests
package basedata

import (
	"time"

	"github.com/samber/lo"

	"github.com/mpapenbr/f1-race-predictor/pkg/model"
)

// TestTime is the start of the Italian GP used as fixed clock
func TestTime() time.Time {
	t, _ := time.Parse(time.RFC3339, "2025-09-07T13:00:00Z")
	return t
}

// SampleEntries returns a complete field in starting order
func SampleEntries() []model.Entry {
	return []model.Entry{
		{Driver: "Max Verstappen", Constructor: "Red Bull Racing"},
		{Driver: "Lando Norris", Constructor: "McLaren"},
		{Driver: "Charles Leclerc", Constructor: "Ferrari"},
		{Driver: "Oscar Piastri", Constructor: "McLaren"},
		{Driver: "George Russell", Constructor: "Mercedes"},
		{Driver: "Lewis Hamilton", Constructor: "Ferrari"},
		{Driver: "Kimi Antonelli", Constructor: "Mercedes"},
		{Driver: "Yuki Tsunoda", Constructor: "Red Bull Racing"},
		{Driver: "Fernando Alonso", Constructor: "Aston Martin"},
		{Driver: "Lance Stroll", Constructor: "Aston Martin"},
		{Driver: "Pierre Gasly", Constructor: "Alpine"},
		{Driver: "Franco Colapinto", Constructor: "Alpine"},
		{Driver: "Carlos Sainz", Constructor: "Williams"},
		{Driver: "Esteban Ocon", Constructor: "Haas"},
		{Driver: "Oliver Bearman", Constructor: "Haas"},
		{Driver: "Isack Hadjar", Constructor: "RB"},
		{Driver: "Liam Lawson", Constructor: "RB"},
		{Driver: "Nico Hülkenberg", Constructor: "Kick Sauber"},
		{Driver: "Gabriel Bortoleto", Constructor: "Kick Sauber"},
		{Driver: "Alex Albon", Constructor: "Williams"},
	}
}

// SampleRaceEntries returns SampleEntries with grid positions 1..20
func SampleRaceEntries() []model.RaceEntry {
	return lo.Map(SampleEntries(), func(e model.Entry, i int) model.RaceEntry {
		return model.RaceEntry{Driver: e.Driver, Constructor: e.Constructor, Grid: i + 1}
	})
}

// SampleTeams builds the teams lookup from SampleEntries
func SampleTeams() model.Teams {
	ret := model.Teams{}
	for _, e := range SampleEntries() {
		t := ret[e.Constructor]
		t.Drivers = append(t.Drivers, e.Driver)
		ret[e.Constructor] = t
	}
	return ret
}

func SampleCircuits() []model.Circuit {
	return []model.Circuit{
		{Name: "Albert Park Circuit", Country: "Australia", Round: 1, Date: "2025-03-16"},
		{Name: "Shanghai International Circuit", Country: "China", Round: 2, Date: "2025-03-23"},
		{Name: "Suzuka Circuit", Country: "Japan", Round: 3, Date: "2025-04-06"},
		{Name: "Monza Circuit", Country: "Italy", Round: 16, Date: "2025-09-07"},
	}
}
