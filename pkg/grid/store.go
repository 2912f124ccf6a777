package grid

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/mpapenbr/f1-race-predictor/log"
	"github.com/mpapenbr/f1-race-predictor/pkg/model"
)

var (
	ErrInvalidSlot       = errors.New("invalid grid slot")
	ErrInvalidIndex      = errors.New("invalid entry index")
	ErrInvalidCollection = errors.New("invalid collection")
)

// Persister is the storage port of the store.
// Load returns a nil state if nothing was stored yet.
type Persister interface {
	Load(ctx context.Context) (*State, error)
	Save(ctx context.Context, state *State) error
}

type Option func(*Store)

func WithPersister(p Persister) Option {
	return func(s *Store) {
		s.persister = p
	}
}

func WithState(state *State) Option {
	return func(s *Store) {
		s.state = state.Clone()
	}
}

func WithLogger(l *log.Logger) Option {
	return func(s *Store) {
		s.log = l
	}
}

// Store holds the grid assignment and keeps every driver in at most
// one of grid, pit lane and not-racing.
type Store struct {
	mu        sync.Mutex
	state     *State
	persister Persister
	log       *log.Logger
}

func NewStore(opts ...Option) *Store {
	ret := &Store{
		state: NewState(),
		log:   log.Default().Named("grid.store"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Load replaces the current state with the persisted one.
// Without persister or stored data the state stays untouched.
func (s *Store) Load(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}
	state, err := s.persister.Load(ctx)
	if err != nil {
		return fmt.Errorf("load grid state: %w", err)
	}
	if state == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state.Clone()
	return nil
}

// Snapshot returns a copy of the current state
func (s *Store) Snapshot() *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Assign puts the driver into slot (1-based).
// An empty driver clears the slot. A driver assigned elsewhere is moved.
func (s *Store) Assign(ctx context.Context, slot int, driver, constructor string) error {
	return s.mutate(ctx, "assign", func(st *State) error {
		idx, err := slotIdx(slot)
		if err != nil {
			return err
		}
		if driver == "" {
			st.Slots[idx] = model.Entry{}
			return nil
		}
		st.unassign(driver)
		st.Slots[idx] = model.Entry{Driver: driver, Constructor: constructor}
		return nil
	})
}

func (s *Store) MoveToPitLane(ctx context.Context, slot int) error {
	return s.mutate(ctx, "moveToPitLane", func(st *State) error {
		return st.moveFromSlot(slot, &st.PitLane)
	})
}

func (s *Store) MoveToNotRacing(ctx context.Context, slot int) error {
	return s.mutate(ctx, "moveToNotRacing", func(st *State) error {
		return st.moveFromSlot(slot, &st.NotRacing)
	})
}

// MoveToGrid moves an entry of the pit lane or not-racing list into the
// first empty slot. Nothing changes if the grid is full.
func (s *Store) MoveToGrid(ctx context.Context, from model.Collection, index int) error {
	return s.mutate(ctx, "moveToGrid", func(st *State) error {
		list, err := st.auxList(from)
		if err != nil {
			return err
		}
		if index < 0 || index >= len(*list) {
			return ErrInvalidIndex
		}
		free, ok := st.firstEmptySlot()
		if !ok {
			s.log.Debug("no empty slot, keeping entry",
				log.String("from", string(from)), log.Int("index", index))
			return nil
		}
		st.Slots[free] = (*list)[index]
		*list = slices.Delete(*list, index, index+1)
		return nil
	})
}

// MoveBetween transfers an entry between pit lane and not-racing list
func (s *Store) MoveBetween(ctx context.Context, from, to model.Collection, index int) error {
	return s.mutate(ctx, "moveBetween", func(st *State) error {
		if from == to {
			return ErrInvalidCollection
		}
		src, err := st.auxList(from)
		if err != nil {
			return err
		}
		dst, err := st.auxList(to)
		if err != nil {
			return err
		}
		if index < 0 || index >= len(*src) {
			return ErrInvalidIndex
		}
		entry := (*src)[index]
		*src = slices.Delete(*src, index, index+1)
		*dst = append(*dst, entry)
		return nil
	})
}

// Remove drops an entry. For the grid the index is the 1-based slot.
func (s *Store) Remove(ctx context.Context, from model.Collection, index int) error {
	return s.mutate(ctx, "remove", func(st *State) error {
		if from == model.CollectionGrid {
			idx, err := slotIdx(index)
			if err != nil {
				return err
			}
			st.Slots[idx] = model.Entry{}
			return nil
		}
		list, err := st.auxList(from)
		if err != nil {
			return err
		}
		if index < 0 || index >= len(*list) {
			return ErrInvalidIndex
		}
		*list = slices.Delete(*list, index, index+1)
		return nil
	})
}

func (s *Store) ClearAll(ctx context.Context) error {
	return s.mutate(ctx, "clearAll", func(st *State) error {
		*st = *NewState()
		return nil
	})
}

// AvailableFor returns the roster entries selectable for slot
func (s *Store) AvailableFor(roster model.Roster, slot int) ([]model.Entry, error) {
	if _, err := slotIdx(slot); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return AvailableFor(s.state, roster, slot), nil
}

// mutate applies op on a working copy. The copy replaces the state only
// if op succeeds, then the state is handed to the persister. The lock is
// held across Save so persisted states follow the order of mutations.
func (s *Store) mutate(ctx context.Context, name string, op func(*State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.state.Clone()
	if err := op(work); err != nil {
		s.log.Debug("operation rejected", log.String("op", name), log.ErrorField(err))
		return err
	}
	s.state = work

	if s.persister == nil {
		return nil
	}
	if err := s.persister.Save(ctx, work.Clone()); err != nil {
		s.log.Error("could not persist grid state",
			log.String("op", name), log.ErrorField(err))
		return fmt.Errorf("save grid state: %w", err)
	}
	return nil
}

func (st *State) moveFromSlot(slot int, target *[]model.Entry) error {
	idx, err := slotIdx(slot)
	if err != nil {
		return err
	}
	if st.Slots[idx].IsEmpty() {
		return nil
	}
	*target = append(*target, st.Slots[idx])
	st.Slots[idx] = model.Entry{}
	return nil
}

func (st *State) auxList(c model.Collection) (*[]model.Entry, error) {
	switch c {
	case model.CollectionPitLane:
		return &st.PitLane, nil
	case model.CollectionNotRacing:
		return &st.NotRacing, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidCollection, c)
	}
}

func slotIdx(slot int) (int, error) {
	if slot < 1 || slot > model.GridSize {
		return -1, fmt.Errorf("%w: %d", ErrInvalidSlot, slot)
	}
	return slot - 1, nil
}
