package grid

import (
	"testing"

	"gotest.tools/v3/assert"

	"github.com/mpapenbr/f1-race-predictor/pkg/model"
)

func TestAvailableFor(t *testing.T) {
	roster := model.Roster{ver, nor, lec, alb}
	tests := []struct {
		name  string
		state *State
		slot  int
		want  []model.Entry
	}{
		{
			name:  "empty grid",
			state: NewState(),
			slot:  1,
			want:  []model.Entry{ver, nor, lec, alb},
		},
		{
			name:  "own slot stays selectable",
			state: stateWith(map[int]model.Entry{1: ver, 2: nor}, nil, nil),
			slot:  1,
			want:  []model.Entry{ver, lec, alb},
		},
		{
			name:  "pit lane and not racing are excluded",
			state: stateWith(nil, []model.Entry{lec}, []model.Entry{alb}),
			slot:  5,
			want:  []model.Entry{ver, nor},
		},
		{
			name: "everybody assigned",
			state: stateWith(map[int]model.Entry{1: ver, 2: nor},
				[]model.Entry{lec}, []model.Entry{alb}),
			slot: 3,
			want: []model.Entry{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AvailableFor(tt.state, roster, tt.slot)
			assert.DeepEqual(t, tt.want, got)
		})
	}
}

func TestStore_AvailableForInvalidSlot(t *testing.T) {
	s := NewStore()
	_, err := s.AvailableFor(model.Roster{ver}, 0)
	assert.ErrorIs(t, err, ErrInvalidSlot)
}
