package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mpapenbr/f1-race-predictor/pkg/model"
	"github.com/mpapenbr/f1-race-predictor/pkg/session"
	"github.com/mpapenbr/f1-race-predictor/testsupport/basedata"
	"github.com/mpapenbr/f1-race-predictor/testsupport/testdb"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func TestPostgresStore(t *testing.T) {
	pool := testdb.InitTestDb()
	ctx := context.Background()
	clock := &fakeClock{t: basedata.TestTime()}
	s, err := New(
		[]session.Option{session.WithTimeout(time.Hour), session.WithClock(clock.now)},
		[]Option{WithPool(pool)})
	assert.NoError(t, err)
	store := s.(*pgSessionStore)

	_, err = store.Get(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)

	d := session.NewData()
	d.Circuit = "Circuit Zandvoort"
	d.Weather = model.WeatherMixed
	d.Grid.Slots[2] = model.Entry{Driver: "Oscar Piastri", Constructor: "McLaren"}
	d.Grid.NotRacing = append(d.Grid.NotRacing,
		model.Entry{Driver: "Lance Stroll", Constructor: "Aston Martin"})
	assert.NoError(t, store.Save(ctx, d))

	got, err := store.Get(ctx, d.ID)
	assert.NoError(t, err)
	assert.Equal(t, d.Grid, got.Grid)
	assert.Equal(t, "Circuit Zandvoort", got.Circuit)
	assert.Equal(t, model.WeatherMixed, got.Weather)

	clock.t = clock.t.Add(2 * time.Hour)
	n, err := store.RemoveExpired(ctx)
	assert.NoError(t, err)
	assert.GreaterOrEqual(t, n, 1)
	_, err = store.Get(ctx, d.ID)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestPostgresStore_ExpiredOnRead(t *testing.T) {
	pool := testdb.InitTestDb()
	ctx := context.Background()
	clock := &fakeClock{t: basedata.TestTime()}
	store, err := New(
		[]session.Option{session.WithTimeout(time.Minute), session.WithClock(clock.now)},
		[]Option{WithPool(pool)})
	assert.NoError(t, err)

	d := session.NewData()
	assert.NoError(t, store.Save(ctx, d))
	clock.t = clock.t.Add(2 * time.Minute)

	_, err = store.Get(ctx, d.ID)
	assert.ErrorIs(t, err, session.ErrSessionExpired)
	_, err = store.Get(ctx, d.ID)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
	assert.NoError(t, store.Delete(ctx, d.ID))
}
