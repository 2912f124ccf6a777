package nats

import (
	"context"
	"testing"
	"time"

	"gotest.tools/v3/assert"

	"github.com/mpapenbr/f1-race-predictor/pkg/model"
	"github.com/mpapenbr/f1-race-predictor/pkg/session"
	"github.com/mpapenbr/f1-race-predictor/pkg/session/factory"
	"github.com/mpapenbr/f1-race-predictor/testsupport/tcnats"
)

func TestNatsStore(t *testing.T) {
	ctx := context.Background()
	nc, cleanup, err := tcnats.SetupNats(ctx)
	assert.NilError(t, err)
	t.Cleanup(cleanup)

	store, err := factory.New[session.Store, Option](SessionTypeNats,
		[]session.Option{session.WithTimeout(time.Minute)},
		[]Option{WithNATS(nc), WithBucket("frp_sessions_test")})
	assert.NilError(t, err)
	assert.Equal(t, store.Timeout(), time.Minute)

	_, err = store.Get(ctx, "unknown")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)

	d := session.NewData()
	d.Weather = model.WeatherWet
	d.Grid.PitLane = append(d.Grid.PitLane,
		model.Entry{Driver: "Oliver Bearman", Constructor: "Haas"})
	assert.NilError(t, store.Save(ctx, d))

	got, err := store.Get(ctx, d.ID)
	assert.NilError(t, err)
	assert.Equal(t, got.Weather, model.WeatherWet)
	assert.DeepEqual(t, got.Grid.PitLane, d.Grid.PitLane)

	assert.NilError(t, store.Delete(ctx, d.ID))
	_, err = store.Get(ctx, d.ID)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
	assert.NilError(t, store.Delete(ctx, d.ID))
}

func TestNew_RequiresConnection(t *testing.T) {
	_, err := New(nil, nil)
	assert.ErrorContains(t, err, "nats connection")
}
