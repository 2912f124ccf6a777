//nolint:errcheck // ok for tests
package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mpapenbr/f1-race-predictor/pkg/model"
	"github.com/mpapenbr/f1-race-predictor/pkg/session"
	"github.com/mpapenbr/f1-race-predictor/pkg/session/factory"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func newStore(t *testing.T, clock *fakeClock) *memorySessionStore {
	t.Helper()
	s, err := New([]session.Option{
		session.WithTimeout(10 * time.Minute),
		session.WithClock(clock.now),
	}, nil)
	assert.NoError(t, err)
	return s.(*memorySessionStore)
}

func TestMemoryStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2025, 7, 6, 14, 0, 0, 0, time.UTC)}
	s := newStore(t, clock)

	d := session.NewData()
	d.Circuit = "Silverstone Circuit"
	d.Grid.Slots[0] = model.Entry{Driver: "Lando Norris", Constructor: "McLaren"}
	assert.NoError(t, s.Save(ctx, d))

	got, err := s.Get(ctx, d.ID)
	assert.NoError(t, err)
	assert.Equal(t, "Silverstone Circuit", got.Circuit)
	assert.Equal(t, clock.t, got.LastAccessed)

	// returned data is a copy
	got.Grid.Slots[0] = model.Entry{}
	again, _ := s.Get(ctx, d.ID)
	assert.Equal(t, "Lando Norris", again.Grid.Slots[0].Driver)

	clock.t = clock.t.Add(11 * time.Minute)
	_, err = s.Get(ctx, d.ID)
	assert.ErrorIs(t, err, session.ErrSessionExpired)
	_, err = s.Get(ctx, d.ID)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestMemoryStore_DeleteAndCleanup(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2025, 7, 6, 14, 0, 0, 0, time.UTC)}
	s := newStore(t, clock)

	a, b := session.NewData(), session.NewData()
	s.Save(ctx, a)
	clock.t = clock.t.Add(5 * time.Minute)
	s.Save(ctx, b)

	assert.NoError(t, s.Delete(ctx, "unknown"))
	clock.t = clock.t.Add(6 * time.Minute)
	assert.Equal(t, 1, s.removeExpired())

	_, err := s.Get(ctx, b.ID)
	assert.NoError(t, err)
	assert.NoError(t, s.Delete(ctx, b.ID))
	_, err = s.Get(ctx, b.ID)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestMemoryStore_SaveInvalid(t *testing.T) {
	s := newStore(t, &fakeClock{t: time.Now()})
	assert.ErrorIs(t, s.Save(context.Background(), &session.Data{}), session.ErrInvalidSession)
}

func TestFactory(t *testing.T) {
	s, err := factory.New[session.Store, Option](SessionTypeMemory,
		[]session.Option{session.WithTimeout(time.Hour)}, nil)
	assert.NoError(t, err)
	assert.Equal(t, time.Hour, s.Timeout())

	_, err = factory.New[session.Store, Option]("unknown", nil, nil)
	assert.ErrorIs(t, err, factory.ErrSessionStoreTypeNotSupported)
}
