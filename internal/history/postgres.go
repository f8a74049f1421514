package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrDuplicateRecord    = errors.New("game already archived")
	ErrUnexpectedDatabase = errors.New("unexpected database error")
)

// PostgresArchive keeps archived games in the game_history table.
type PostgresArchive struct {
	pool *pgxpool.Pool
}

func NewPostgresArchive(ctx context.Context, connString string) (*PostgresArchive, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}
	return &PostgresArchive{pool: pool}, nil
}

func (a *PostgresArchive) Close() {
	a.pool.Close()
}

func nullable(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func (a *PostgresArchive) Save(ctx context.Context, r Record) error {
	body, err := json.Marshal(r)
	if err != nil {
		return err
	}
	var winner *string
	if r.Winner != "" {
		winner = &r.Winner
	}
	_, err = a.pool.Exec(ctx,
		`INSERT INTO game_history(id, winner, players, record, start_time, end_time, premature)
		 VALUES($1, $2, $3, $4, $5, $6, $7)`,
		r.ID, winner, r.Players, body, nullable(r.StartTime), r.EndTime, r.Premature)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			// "23505" is the PostgreSQL error code for unique_violation
			if pgErr.Code == "23505" {
				return ErrDuplicateRecord
			}
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrUnexpectedDatabase, err)
	}
	return nil
}

func (a *PostgresArchive) List(ctx context.Context, c Criteria) ([]Record, error) {
	limit := c.Limit
	if limit <= 0 {
		limit = 50
	}
	var since, until *time.Time
	if !c.Since.IsZero() {
		since = &c.Since
	}
	if !c.Until.IsZero() {
		until = &c.Until
	}
	rows, err := a.pool.Query(ctx,
		`SELECT record FROM game_history
		 WHERE ($1 = '' OR $1 = ANY(players))
		   AND ($2 = '' OR winner = $2)
		   AND ($3::boolean IS NULL OR premature = $3)
		   AND ($4::timestamptz IS NULL OR start_time >= $4)
		   AND ($5::timestamptz IS NULL OR start_time <= $5)
		 ORDER BY end_time DESC
		 LIMIT $6`,
		c.Player, c.Winner, c.Premature, since, until, limit)
	if err != nil {
		return nil, mapQueryError(err)
	}
	bodies, err := pgx.CollectRows(rows, pgx.RowTo[[]byte])
	if err != nil {
		return nil, mapQueryError(err)
	}
	out := make([]Record, 0, len(bodies))
	for _, b := range bodies {
		var r Record
		if err := json.Unmarshal(b, &r); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnexpectedDatabase, err)
		}
		out = append(out, r)
	}
	return out, nil
}

func mapQueryError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrUnexpectedDatabase, err)
}
