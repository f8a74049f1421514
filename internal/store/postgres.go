package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

const notifyChannel = "documents"

type PostgresStore struct {
	pool *pgxpool.Pool
	// RetryDelay is the first reconnect delay of a broken watch; it doubles
	// up to a minute.
	RetryDelay time.Duration
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}
	return &PostgresStore{pool: pool, RetryDelay: time.Second}, nil
}

func (p *PostgresStore) Close() {
	p.pool.Close()
}

func (p *PostgresStore) Ping(ctx context.Context) error {
	return mapError(p.pool.Ping(ctx))
}

func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return ErrNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrUnexpectedDatabase, err)
	}
}

func (p *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	var body []byte
	err := p.pool.QueryRow(ctx, "SELECT body FROM documents WHERE key = $1", key).Scan(&body)
	if err != nil {
		return nil, mapError(err)
	}
	return body, nil
}

func (p *PostgresStore) Set(ctx context.Context, key string, body []byte) error {
	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO documents(key, body, updated_at) VALUES($1, $2, now())
			 ON CONFLICT (key) DO UPDATE SET body = EXCLUDED.body, updated_at = now()`,
			key, body)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, "SELECT pg_notify($1, $2)", notifyChannel, key)
		return err
	})
	return mapError(err)
}

func (p *PostgresStore) Delete(ctx context.Context, key string) error {
	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "DELETE FROM documents WHERE key = $1", key); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, "SELECT pg_notify($1, $2)", notifyChannel, key)
		return err
	})
	return mapError(err)
}

// Watch holds a dedicated LISTEN connection. When it breaks, fn receives the
// error and the watch reconnects with backoff, re-delivering the current
// value once it is back.
func (p *PostgresStore) Watch(ctx context.Context, key string, fn WatchFunc) (func(), error) {
	conn, err := p.listen(ctx)
	if err != nil {
		return nil, err
	}
	wctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.watchLoop(wctx, conn, key, fn)
	}()
	return func() {
		cancel()
		<-done
	}, nil
}

func (p *PostgresStore) listen(ctx context.Context) (*pgxpool.Conn, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		conn.Release()
		return nil, mapError(err)
	}
	return conn, nil
}

func (p *PostgresStore) deliver(ctx context.Context, key string, fn WatchFunc) {
	body, err := p.Get(ctx, key)
	if ctx.Err() != nil {
		return
	}
	fn(body, err)
}

func (p *PostgresStore) watchLoop(ctx context.Context, conn *pgxpool.Conn, key string, fn WatchFunc) {
	p.deliver(ctx, key, fn)
	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if ctx.Err() != nil {
			p.unlisten(conn)
			return
		}
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("document watch lost connection")
			fn(nil, mapError(err))
			conn.Hijack().Close(context.Background())
			conn = p.reconnect(ctx)
			if conn == nil {
				return
			}
			p.deliver(ctx, key, fn)
			continue
		}
		if n.Payload == key {
			p.deliver(ctx, key, fn)
		}
	}
}

func (p *PostgresStore) unlisten(conn *pgxpool.Conn) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := conn.Exec(ctx, "UNLISTEN "+notifyChannel); err != nil {
		conn.Hijack().Close(ctx)
		return
	}
	conn.Release()
}

func (p *PostgresStore) reconnect(ctx context.Context) *pgxpool.Conn {
	delay := p.RetryDelay
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
		conn, err := p.listen(ctx)
		if err == nil {
			log.Info().Msg("document watch reconnected")
			return conn
		}
		log.Warn().Err(err).Dur("retry_in", delay).Msg("document watch reconnect failed")
		if delay < time.Minute {
			delay *= 2
		}
	}
}
