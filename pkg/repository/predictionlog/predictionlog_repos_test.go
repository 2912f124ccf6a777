//nolint:funlen // ok for this test code
package predictionlog

import (
	"context"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/assert"

	"github.com/mpapenbr/f1-race-predictor/testsupport/testdb"
)

func TestCreateAndLoadLatest(t *testing.T) {
	pool := testdb.InitTestDb()
	ctx := context.Background()
	base := time.Date(2025, 5, 25, 15, 0, 0, 0, time.UTC)

	entries := []*Entry{
		{
			LoggedAt: base, Circuit: "Circuit de Monaco", Weather: "Dry",
			Temperature: 24, TrackTemp: 38, NumEntries: 20,
			WinnerPrediction: "Charles Leclerc", WinnerProbability: 21.4,
		},
		{
			LoggedAt: base.Add(time.Hour), Circuit: "Circuit de Monaco", Weather: "Wet",
			Temperature: 18, TrackTemp: 22, NumEntries: 19,
			SessionID:        uuid.NullUUID{UUID: uuid.Must(uuid.NewV4()), Valid: true},
			WinnerPrediction: "Lewis Hamilton", WinnerProbability: 19.9,
		},
		{
			LoggedAt: base.Add(2 * time.Hour), Circuit: "Monza Circuit", Weather: "Dry",
			NumEntries: 20, WinnerPrediction: "Lando Norris", WinnerProbability: 23.1,
		},
	}
	for _, e := range entries {
		assert.NoError(t, Create(ctx, pool, e))
		assert.False(t, e.ID.IsNil())
	}

	got, err := LoadLatest(ctx, pool, 2)
	assert.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, "Lando Norris", got[0].WinnerPrediction)
	assert.Equal(t, "Lewis Hamilton", got[1].WinnerPrediction)
	assert.True(t, got[1].SessionID.Valid)
	assert.False(t, got[0].SessionID.Valid)

	counts, err := CountByCircuit(ctx, pool)
	assert.NoError(t, err)
	assert.Equal(t, map[string]int{"Circuit de Monaco": 2, "Monza Circuit": 1}, counts)
}
