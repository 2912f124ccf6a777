//nolint:funlen,errcheck // ok for tests
package grid

import (
	"context"
	"errors"
	"math/rand/v2"
	"runtime"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/mpapenbr/f1-race-predictor/pkg/model"
)

var (
	ver = model.Entry{Driver: "Max Verstappen", Constructor: "Red Bull Racing"}
	nor = model.Entry{Driver: "Lando Norris", Constructor: "McLaren"}
	lec = model.Entry{Driver: "Charles Leclerc", Constructor: "Ferrari"}
	alb = model.Entry{Driver: "Alex Albon", Constructor: "Williams"}
)

type memPersister struct {
	state *State
	saves int
	err   error
}

func (m *memPersister) Load(ctx context.Context) (*State, error) {
	if m.state == nil {
		return nil, nil
	}
	return m.state.Clone(), nil
}

func (m *memPersister) Save(ctx context.Context, state *State) error {
	m.saves++
	if m.err != nil {
		return m.err
	}
	m.state = state.Clone()
	return nil
}

func stateWith(slots map[int]model.Entry, pit, notRacing []model.Entry) *State {
	st := NewState()
	for k, v := range slots {
		st.Slots[k-1] = v
	}
	st.PitLane = append(st.PitLane, pit...)
	st.NotRacing = append(st.NotRacing, notRacing...)
	return st
}

func fullGrid() *State {
	st := NewState()
	for i := range st.Slots {
		st.Slots[i] = model.Entry{Driver: string(rune('A' + i)), Constructor: "X"}
	}
	return st
}

func TestStore_Operations(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name    string
		initial *State
		op      func(s *Store) error
		want    *State
		wantErr error
	}{
		{
			name:    "assign empty slot",
			initial: NewState(),
			op:      func(s *Store) error { return s.Assign(ctx, 1, ver.Driver, ver.Constructor) },
			want:    stateWith(map[int]model.Entry{1: ver}, nil, nil),
		},
		{
			name:    "assign moves driver from other slot",
			initial: stateWith(map[int]model.Entry{3: ver}, nil, nil),
			op:      func(s *Store) error { return s.Assign(ctx, 1, ver.Driver, ver.Constructor) },
			want:    stateWith(map[int]model.Entry{1: ver}, nil, nil),
		},
		{
			name:    "assign takes driver out of pit lane",
			initial: stateWith(nil, []model.Entry{nor, ver}, nil),
			op:      func(s *Store) error { return s.Assign(ctx, 2, ver.Driver, ver.Constructor) },
			want:    stateWith(map[int]model.Entry{2: ver}, []model.Entry{nor}, nil),
		},
		{
			name:    "assign empty driver clears slot",
			initial: stateWith(map[int]model.Entry{5: lec}, nil, nil),
			op:      func(s *Store) error { return s.Assign(ctx, 5, "", "") },
			want:    NewState(),
		},
		{
			name:    "assign invalid slot",
			initial: NewState(),
			op:      func(s *Store) error { return s.Assign(ctx, 21, ver.Driver, ver.Constructor) },
			want:    NewState(),
			wantErr: ErrInvalidSlot,
		},
		{
			name:    "move to pit lane",
			initial: stateWith(map[int]model.Entry{4: nor}, []model.Entry{lec}, nil),
			op:      func(s *Store) error { return s.MoveToPitLane(ctx, 4) },
			want:    stateWith(nil, []model.Entry{lec, nor}, nil),
		},
		{
			name:    "move empty slot to pit lane is a no-op",
			initial: NewState(),
			op:      func(s *Store) error { return s.MoveToPitLane(ctx, 4) },
			want:    NewState(),
		},
		{
			name:    "move to not racing",
			initial: stateWith(map[int]model.Entry{20: alb}, nil, nil),
			op:      func(s *Store) error { return s.MoveToNotRacing(ctx, 20) },
			want:    stateWith(nil, nil, []model.Entry{alb}),
		},
		{
			name:    "move to grid uses first empty slot",
			initial: stateWith(map[int]model.Entry{1: ver, 3: nor}, []model.Entry{lec}, nil),
			op: func(s *Store) error {
				return s.MoveToGrid(ctx, model.CollectionPitLane, 0)
			},
			want: stateWith(map[int]model.Entry{1: ver, 2: lec, 3: nor}, nil, nil),
		},
		{
			name:    "move to grid from not racing",
			initial: stateWith(nil, nil, []model.Entry{alb, lec}),
			op: func(s *Store) error {
				return s.MoveToGrid(ctx, model.CollectionNotRacing, 1)
			},
			want: stateWith(map[int]model.Entry{1: lec}, nil, []model.Entry{alb}),
		},
		{
			name:    "move to grid invalid index",
			initial: stateWith(nil, []model.Entry{lec}, nil),
			op: func(s *Store) error {
				return s.MoveToGrid(ctx, model.CollectionPitLane, 1)
			},
			want:    stateWith(nil, []model.Entry{lec}, nil),
			wantErr: ErrInvalidIndex,
		},
		{
			name:    "move to grid from grid is rejected",
			initial: stateWith(map[int]model.Entry{1: ver}, nil, nil),
			op: func(s *Store) error {
				return s.MoveToGrid(ctx, model.CollectionGrid, 0)
			},
			want:    stateWith(map[int]model.Entry{1: ver}, nil, nil),
			wantErr: ErrInvalidCollection,
		},
		{
			name:    "transfer not racing to pit lane",
			initial: stateWith(nil, []model.Entry{nor}, []model.Entry{alb}),
			op: func(s *Store) error {
				return s.MoveBetween(ctx, model.CollectionNotRacing, model.CollectionPitLane, 0)
			},
			want: stateWith(nil, []model.Entry{nor, alb}, []model.Entry{}),
		},
		{
			name:    "remove from pit lane",
			initial: stateWith(nil, []model.Entry{nor, alb}, nil),
			op: func(s *Store) error {
				return s.Remove(ctx, model.CollectionPitLane, 0)
			},
			want: stateWith(nil, []model.Entry{alb}, nil),
		},
		{
			name:    "remove from grid",
			initial: stateWith(map[int]model.Entry{7: nor}, nil, nil),
			op: func(s *Store) error {
				return s.Remove(ctx, model.CollectionGrid, 7)
			},
			want: NewState(),
		},
		{
			name:    "remove unknown collection",
			initial: NewState(),
			op: func(s *Store) error {
				return s.Remove(ctx, model.Collection("garage"), 0)
			},
			want:    NewState(),
			wantErr: ErrInvalidCollection,
		},
		{
			name:    "clear all",
			initial: stateWith(map[int]model.Entry{1: ver, 2: nor}, []model.Entry{lec}, []model.Entry{alb}),
			op:      func(s *Store) error { return s.ClearAll(ctx) },
			want:    NewState(),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore(WithState(tt.initial))
			err := tt.op(s)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			if diff := cmp.Diff(tt.want, s.Snapshot()); diff != "" {
				t.Errorf("state mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStore_MoveToGridWhenFull(t *testing.T) {
	initial := fullGrid()
	initial.PitLane = []model.Entry{ver}
	p := &memPersister{}
	s := NewStore(WithState(initial), WithPersister(p))

	err := s.MoveToGrid(context.Background(), model.CollectionPitLane, 0)

	assert.NoError(t, err)
	assert.Equal(t, initial, s.Snapshot())
}

func TestStore_Persistence(t *testing.T) {
	ctx := context.Background()
	p := &memPersister{}
	s := NewStore(WithPersister(p))

	assert.NoError(t, s.Assign(ctx, 1, ver.Driver, ver.Constructor))
	assert.NoError(t, s.MoveToPitLane(ctx, 1))
	assert.Error(t, s.MoveToPitLane(ctx, 0))
	assert.Equal(t, 2, p.saves, "rejected operations must not be saved")

	reloaded := NewStore(WithPersister(p))
	assert.NoError(t, reloaded.Load(ctx))
	assert.Equal(t, s.Snapshot(), reloaded.Snapshot())
}

func TestStore_PersistenceError(t *testing.T) {
	ctx := context.Background()
	p := &memPersister{err: errors.New("storage full")}
	s := NewStore(WithPersister(p))

	err := s.Assign(ctx, 1, ver.Driver, ver.Constructor)

	assert.Error(t, err)
	assert.Equal(t, ver, s.Snapshot().Slots[0])
}

// orderPersister records the number of filled slots of every saved state
type orderPersister struct {
	mu      sync.Mutex
	filled  []int
	current *State
}

func (o *orderPersister) Load(ctx context.Context) (*State, error) {
	return nil, nil
}

func (o *orderPersister) Save(ctx context.Context, state *State) error {
	runtime.Gosched()
	o.mu.Lock()
	defer o.mu.Unlock()
	o.filled = append(o.filled, len(state.Assigned()))
	o.current = state.Clone()
	return nil
}

func TestStore_ConcurrentMutationsPersistInOrder(t *testing.T) {
	ctx := context.Background()
	p := &orderPersister{}
	s := NewStore(WithPersister(p))

	var wg sync.WaitGroup
	for i := range model.GridSize {
		wg.Go(func() {
			e := fullGrid().Slots[i]
			assert.NoError(t, s.Assign(ctx, i+1, e.Driver, e.Constructor))
		})
	}
	wg.Wait()

	want := make([]int, model.GridSize)
	for i := range want {
		want[i] = i + 1
	}
	assert.Equal(t, want, p.filled, "every save sees one more driver than the one before")
	assert.Equal(t, s.Snapshot(), p.current, "last save is the final state")
}

func TestStore_LoadWithoutData(t *testing.T) {
	s := NewStore(WithPersister(&memPersister{}))
	assert.NoError(t, s.Load(context.Background()))
	assert.Equal(t, NewState(), s.Snapshot())
}

func TestStore_UniqueAssignment(t *testing.T) {
	ctx := context.Background()
	drivers := []model.Entry{ver, nor, lec, alb,
		{Driver: "Lewis Hamilton", Constructor: "Ferrari"},
		{Driver: "George Russell", Constructor: "Mercedes"},
	}
	collections := []model.Collection{
		model.CollectionGrid, model.CollectionPitLane, model.CollectionNotRacing,
	}
	//nolint:gosec // deterministic sequence is wanted
	r := rand.New(rand.NewPCG(42, 1024))
	s := NewStore()
	for range 5000 {
		switch r.IntN(6) {
		case 0:
			d := drivers[r.IntN(len(drivers))]
			s.Assign(ctx, r.IntN(22), d.Driver, d.Constructor)
		case 1:
			s.MoveToPitLane(ctx, r.IntN(21)+1)
		case 2:
			s.MoveToNotRacing(ctx, r.IntN(21)+1)
		case 3:
			s.MoveToGrid(ctx, collections[r.IntN(3)], r.IntN(4))
		case 4:
			s.MoveBetween(ctx, collections[r.IntN(3)], collections[r.IntN(3)], r.IntN(4))
		case 5:
			s.Remove(ctx, collections[r.IntN(3)], r.IntN(21))
		}
		assigned := s.Snapshot().Assigned()
		seen := map[string]bool{}
		for _, d := range assigned {
			if seen[d] {
				t.Fatalf("driver %s assigned more than once: %v", d, assigned)
			}
			seen[d] = true
		}
	}
}

func TestState_RaceEntries(t *testing.T) {
	st := stateWith(
		map[int]model.Entry{1: ver, 3: nor},
		[]model.Entry{lec},
		[]model.Entry{alb})
	want := []model.RaceEntry{
		{Driver: ver.Driver, Constructor: ver.Constructor, Grid: 1},
		{Driver: nor.Driver, Constructor: nor.Constructor, Grid: 3},
		{Driver: lec.Driver, Constructor: lec.Constructor, Grid: model.PitLaneGrid},
	}
	assert.Equal(t, want, st.RaceEntries())
}
