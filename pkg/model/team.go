package model

import (
	"slices"

	"github.com/samber/lo"
)

type Team struct {
	Drivers        []string `json:"drivers"`
	Car            string   `json:"car"`
	Principal      string   `json:"principal"`
	Engine         string   `json:"engine"`
	Founded        int      `json:"founded"`
	Championships  int      `json:"championships"`
	Base           string   `json:"base"`
	Color          string   `json:"color"`
	SecondaryColor string   `json:"secondaryColor,omitempty"`
}

// Teams maps the constructor name to its team data
type Teams map[string]Team

type Circuit struct {
	Name    string `json:"name"`
	Country string `json:"country"`
	Round   int    `json:"round"`
	Date    string `json:"date"`
}

type DriverStats struct {
	Wins          int    `json:"wins"`
	Podiums       int    `json:"podiums"`
	Poles         int    `json:"poles"`
	Championships int    `json:"championships"`
	Debut         int    `json:"debut"`
	Age           int    `json:"age"`
	Country       string `json:"country"`
	Image         string `json:"image"`
}

type ConstructorStanding struct {
	Position int    `json:"position"`
	Team     string `json:"team"`
	Points   int    `json:"points"`
	Wins     int    `json:"wins"`
}

// Roster is the ordered list of all selectable driver/constructor pairs
type Roster []Entry

// Roster flattens the team map ordered by constructor name.
// Drivers keep the order of the team's driver list.
func (t Teams) Roster() Roster {
	names := lo.Keys(t)
	slices.Sort(names)
	ret := Roster{}
	for _, name := range names {
		for _, d := range t[name].Drivers {
			ret = append(ret, Entry{Driver: d, Constructor: name})
		}
	}
	return ret
}

func (r Roster) ConstructorOf(driver string) (string, bool) {
	for _, e := range r {
		if e.Driver == driver {
			return e.Constructor, true
		}
	}
	return "", false
}
