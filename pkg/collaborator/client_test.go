//nolint:funlen,errcheck // ok for tests
package collaborator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	gta "gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"

	"github.com/mpapenbr/f1-race-predictor/pkg/model"
)

const teamsJSON = `{
  "McLaren": {"drivers": ["Lando Norris", "Oscar Piastri"], "car": "MCL39",
    "principal": "Andrea Stella", "engine": "Mercedes", "founded": 1963,
    "championships": 9, "base": "Woking", "color": "#FF8000", "secondaryColor": "#47C7FC"},
  "Ferrari": {"drivers": ["Charles Leclerc", "Lewis Hamilton"], "car": "SF-25",
    "principal": "Frederic Vasseur", "engine": "Ferrari", "founded": 1950,
    "championships": 16, "base": "Maranello", "color": "#DC0000"}
}`

const predictJSON = `{
  "success": true,
  "predictions": [
    {"driver": "Lando Norris", "constructor": "McLaren", "grid": 1,
     "predicted_position": 1, "podium_chance": true, "points_chance": true,
     "points_earned": 25, "win_probability": 42.1, "tire_strategy": "Medium-Hard"}
  ],
  "race_info": {"circuit": "Monza Circuit", "weather": "Dry", "temperature": 27.3,
    "track_temp": 40.1, "humidity": 48.0, "wind_speed": 2.5}
}`

func newTestServer(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/teams", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(teamsJSON))
	})
	mux.HandleFunc("GET /api/circuits", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"name":"Monza Circuit","country":"Italy","round":16,"date":"2025-09-07"}]`))
	})
	mux.HandleFunc("GET /api/driver-stats", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Lando Norris":{"wins":4,"podiums":26,"poles":8,"championships":0,` +
			`"debut":2019,"age":25,"country":"United Kingdom","image":"norris.png"}}`))
	})
	mux.HandleFunc("GET /api/constructor-standings", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal", http.StatusInternalServerError)
	})
	mux.HandleFunc("POST /api/predict", func(w http.ResponseWriter, r *http.Request) {
		var req model.PredictionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		if req.Circuit == "fail" {
			w.Write([]byte(`{"success": false, "predictions": [], "race_info": {}}`))
			return
		}
		w.Write([]byte(predictJSON))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Lookups(t *testing.T) {
	calls := &atomic.Int32{}
	srv := newTestServer(t, calls)
	c := New(WithBaseURL(srv.URL+"/"), WithHTTPClient(srv.Client()))
	ctx := context.Background()

	teams, err := c.Teams(ctx)
	gta.NilError(t, err)
	gta.Assert(t, cmp.Len(teams, 2))
	assert.Equal(t, []string{"Lando Norris", "Oscar Piastri"}, teams["McLaren"].Drivers)
	assert.Equal(t, "#47C7FC", teams["McLaren"].SecondaryColor)

	_, err = c.Teams(ctx)
	gta.NilError(t, err)
	assert.Equal(t, int32(1), calls.Load(), "teams are cached")

	c.InvalidateLookups(ctx)
	_, err = c.Teams(ctx)
	gta.NilError(t, err)
	assert.Equal(t, int32(2), calls.Load())

	circuits, err := c.Circuits(ctx)
	gta.NilError(t, err)
	assert.Equal(t, []model.Circuit{
		{Name: "Monza Circuit", Country: "Italy", Round: 16, Date: "2025-09-07"},
	}, circuits)

	stats, err := c.DriverStats(ctx)
	gta.NilError(t, err)
	assert.Equal(t, 2019, stats["Lando Norris"].Debut)

	_, err = c.ConstructorStandings(ctx)
	var statusErr *StatusError
	assert.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
}

func TestClient_Predict(t *testing.T) {
	srv := newTestServer(t, &atomic.Int32{})
	c := New(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))

	tests := []struct {
		name    string
		req     *model.PredictionRequest
		wantErr error
	}{
		{
			name: "success",
			req: &model.PredictionRequest{
				Circuit: "Monza Circuit",
				Weather: model.WeatherDry,
				Entries: []model.RaceEntry{
					{Driver: "Lando Norris", Constructor: "McLaren", Grid: 1},
				},
			},
		},
		{
			name:    "server reports failure",
			req:     &model.PredictionRequest{Circuit: "fail", Weather: model.WeatherDry},
			wantErr: ErrPredictionFailed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := c.Predict(context.Background(), tt.req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, res)
				return
			}
			gta.NilError(t, err)
			assert.Equal(t, "Medium-Hard", res.Predictions[0].TireStrategy)
			assert.Equal(t, 40.1, res.RaceInfo.TrackTemp)
		})
	}
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(WithBaseURL(url))
	_, err := c.Circuits(context.Background())
	assert.Error(t, err)
}
