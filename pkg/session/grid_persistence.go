package session

import (
	"context"
	"errors"

	"github.com/mpapenbr/f1-race-predictor/pkg/grid"
)

type gridPersistence struct {
	store Store
	id    string
}

// GridPersistence stores the grid part of session id in store
func GridPersistence(store Store, id string) grid.Persister {
	return &gridPersistence{store: store, id: id}
}

func (p *gridPersistence) Load(ctx context.Context) (*grid.State, error) {
	d, err := p.store.Get(ctx, p.id)
	if errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrSessionExpired) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return d.Grid, nil
}

// Save creates the session if it does not exist yet
func (p *gridPersistence) Save(ctx context.Context, state *grid.State) error {
	d, err := p.store.Get(ctx, p.id)
	switch {
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrSessionExpired):
		d = NewData()
		d.ID = p.id
	case err != nil:
		return err
	}
	d.Grid = state.Clone()
	return p.store.Save(ctx, d)
}
