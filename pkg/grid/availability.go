package grid

import (
	"github.com/samber/lo"

	"github.com/mpapenbr/f1-race-predictor/pkg/model"
)

// AvailableFor returns the roster minus all drivers assigned to a slot
// other than slot (1-based), to the pit lane or to the not-racing list.
// The roster order is kept.
func AvailableFor(st *State, roster model.Roster, slot int) []model.Entry {
	used := map[string]struct{}{}
	for i, e := range st.Slots {
		if i+1 != slot && !e.IsEmpty() {
			used[e.Driver] = struct{}{}
		}
	}
	for _, e := range st.PitLane {
		used[e.Driver] = struct{}{}
	}
	for _, e := range st.NotRacing {
		used[e.Driver] = struct{}{}
	}
	return lo.Filter(roster, func(e model.Entry, _ int) bool {
		_, taken := used[e.Driver]
		return !taken
	})
}
