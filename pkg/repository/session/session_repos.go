//nolint:whitespace // can't make both editor and linter happy
package session

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/mpapenbr/f1-race-predictor/pkg/repository"
)

// Row is the stored form of a grid session. State holds the grid as JSON.
type Row struct {
	ID           uuid.UUID
	State        []byte
	Circuit      string
	Weather      string
	LastAccessed time.Time
}

// Upsert creates or replaces the session row
func Upsert(ctx context.Context, conn repository.Querier, row *Row) error {
	_, err := conn.Exec(ctx, `
	insert into grid_session (id, state, circuit, weather, last_accessed)
	values ($1, $2, $3, $4, $5)
	on conflict (id) do update set
		state=excluded.state,
		circuit=excluded.circuit,
		weather=excluded.weather,
		last_accessed=excluded.last_accessed
	`,
		row.ID, row.State, row.Circuit, row.Weather, row.LastAccessed,
	)
	return err
}

// LoadByID returns pgx.ErrNoRows if there is no such session
func LoadByID(ctx context.Context, conn repository.Querier, id uuid.UUID) (
	*Row, error,
) {
	row := conn.QueryRow(ctx, `
	select id, state, circuit, weather, last_accessed
	from grid_session where id=$1
	`, id)
	var item Row
	if err := row.Scan(
		&item.ID, &item.State, &item.Circuit, &item.Weather, &item.LastAccessed,
	); err != nil {
		return nil, err
	}
	return &item, nil
}

// Touch updates last_accessed, returns number of rows affected
func Touch(ctx context.Context, conn repository.Querier, id uuid.UUID, t time.Time) (
	int, error,
) {
	cmdTag, err := conn.Exec(ctx,
		"update grid_session set last_accessed=$1 where id=$2", t, id)
	if err != nil {
		return 0, err
	}
	return int(cmdTag.RowsAffected()), nil
}

// DeleteByID deletes an entry from the database, returns number of rows deleted.
func DeleteByID(ctx context.Context, conn repository.Querier, id uuid.UUID) (int, error) {
	cmdTag, err := conn.Exec(ctx, "delete from grid_session where id=$1", id)
	if err != nil {
		return 0, err
	}
	return int(cmdTag.RowsAffected()), nil
}

// DeleteIdle removes sessions not accessed since before
func DeleteIdle(ctx context.Context, conn repository.Querier, before time.Time) (
	int, error,
) {
	cmdTag, err := conn.Exec(ctx,
		"delete from grid_session where last_accessed < $1", before)
	if err != nil {
		return 0, err
	}
	return int(cmdTag.RowsAffected()), nil
}
