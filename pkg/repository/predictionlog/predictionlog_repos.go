//nolint:whitespace // can't make both editor and linter happy
package predictionlog

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/mpapenbr/f1-race-predictor/pkg/repository"
)

type Entry struct {
	ID                uuid.UUID
	SessionID         uuid.NullUUID
	LoggedAt          time.Time
	Circuit           string
	Weather           string
	Temperature       float64
	TrackTemp         float64
	NumEntries        int
	WinnerPrediction  string
	WinnerProbability float64
}

// Create stores the entry. A missing ID is generated.
func Create(ctx context.Context, conn repository.Querier, e *Entry) error {
	if e.ID.IsNil() {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		e.ID = id
	}
	if e.LoggedAt.IsZero() {
		e.LoggedAt = time.Now()
	}
	_, err := conn.Exec(ctx, `
	insert into prediction_log (
		id, session_id, logged_at, circuit, weather, temperature, track_temp,
		num_entries, winner_prediction, winner_probability
	) values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`,
		e.ID, e.SessionID, e.LoggedAt, e.Circuit, e.Weather, e.Temperature,
		e.TrackTemp, e.NumEntries, e.WinnerPrediction, e.WinnerProbability,
	)
	return err
}

// LoadLatest returns the newest entries first, at most limit
func LoadLatest(ctx context.Context, conn repository.Querier, limit int) (
	[]*Entry, error,
) {
	rows, err := conn.Query(ctx, `
	select id, session_id, logged_at, circuit, weather, temperature, track_temp,
		num_entries, winner_prediction, winner_probability
	from prediction_log order by logged_at desc limit $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ret := []*Entry{}
	for rows.Next() {
		var item Entry
		if err := rows.Scan(
			&item.ID, &item.SessionID, &item.LoggedAt, &item.Circuit, &item.Weather,
			&item.Temperature, &item.TrackTemp, &item.NumEntries,
			&item.WinnerPrediction, &item.WinnerProbability,
		); err != nil {
			return nil, err
		}
		ret = append(ret, &item)
	}
	return ret, rows.Err()
}

// CountByCircuit returns the number of predictions per circuit
func CountByCircuit(ctx context.Context, conn repository.Querier) (
	map[string]int, error,
) {
	rows, err := conn.Query(ctx,
		"select circuit, count(*) from prediction_log group by circuit")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ret := map[string]int{}
	for rows.Next() {
		var circuit string
		var count int
		if err := rows.Scan(&circuit, &count); err != nil {
			return nil, err
		}
		ret[circuit] = count
	}
	return ret, rows.Err()
}
