package grid

import (
	"slices"

	"github.com/mpapenbr/f1-race-predictor/pkg/model"
)

// State is the persisted form of the grid assignment.
// Slots[0] holds grid position 1.
type State struct {
	Slots     [model.GridSize]model.Entry `json:"slots"`
	PitLane   []model.Entry               `json:"pitLane"`
	NotRacing []model.Entry               `json:"notRacing"`
}

func NewState() *State {
	return &State{
		PitLane:   []model.Entry{},
		NotRacing: []model.Entry{},
	}
}

// Clone returns a deep copy. A nil state clones to an empty one.
func (s *State) Clone() *State {
	if s == nil {
		return NewState()
	}
	ret := &State{
		Slots:     s.Slots,
		PitLane:   slices.Clone(s.PitLane),
		NotRacing: slices.Clone(s.NotRacing),
	}
	if ret.PitLane == nil {
		ret.PitLane = []model.Entry{}
	}
	if ret.NotRacing == nil {
		ret.NotRacing = []model.Entry{}
	}
	return ret
}

// GridSlots returns the slots with their 1-based index
func (s *State) GridSlots() []model.GridSlot {
	ret := make([]model.GridSlot, model.GridSize)
	for i := range s.Slots {
		ret[i] = model.GridSlot{Index: i + 1, Entry: s.Slots[i]}
	}
	return ret
}

// RaceEntries builds the request entries for the prediction server.
// Grid drivers start from their slot, pit lane drivers from PitLaneGrid.
// Drivers not racing are not part of the result.
func (s *State) RaceEntries() []model.RaceEntry {
	ret := []model.RaceEntry{}
	for i, e := range s.Slots {
		if e.IsEmpty() {
			continue
		}
		ret = append(ret, model.RaceEntry{
			Driver: e.Driver, Constructor: e.Constructor, Grid: i + 1,
		})
	}
	for _, e := range s.PitLane {
		if e.IsEmpty() {
			continue
		}
		ret = append(ret, model.RaceEntry{
			Driver: e.Driver, Constructor: e.Constructor, Grid: model.PitLaneGrid,
		})
	}
	return ret
}

// Assigned returns every driver that occupies a slot, the pit lane or
// the not-racing list.
func (s *State) Assigned() []string {
	ret := []string{}
	collect := func(e model.Entry) {
		if !e.IsEmpty() {
			ret = append(ret, e.Driver)
		}
	}
	for _, e := range s.Slots {
		collect(e)
	}
	for _, e := range s.PitLane {
		collect(e)
	}
	for _, e := range s.NotRacing {
		collect(e)
	}
	return ret
}

func (s *State) firstEmptySlot() (int, bool) {
	for i := range s.Slots {
		if s.Slots[i].IsEmpty() {
			return i, true
		}
	}
	return -1, false
}

// unassign removes driver from every collection
func (s *State) unassign(driver string) {
	for i := range s.Slots {
		if s.Slots[i].Driver == driver {
			s.Slots[i] = model.Entry{}
		}
	}
	match := func(e model.Entry) bool { return e.Driver == driver }
	s.PitLane = slices.DeleteFunc(s.PitLane, match)
	s.NotRacing = slices.DeleteFunc(s.NotRacing, match)
}
