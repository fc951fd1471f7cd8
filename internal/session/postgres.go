package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps sessions in the sessions table created by db.Migrate.
// Expired rows are removed lazily on access and in bulk by Evict.
type PostgresStore struct {
	pool *pgxpool.Pool
	ttl  time.Duration
}

func NewPostgresStore(pool *pgxpool.Pool, ttl time.Duration) *PostgresStore {
	return &PostgresStore{pool: pool, ttl: ttl}
}

func (p *PostgresStore) ttlSeconds() float64 {
	if p.ttl <= 0 {
		return 0
	}
	return p.ttl.Seconds()
}

func (p *PostgresStore) dropExpired(ctx context.Context, tx pgx.Tx, userID string) error {
	if p.ttl <= 0 {
		return nil
	}
	_, err := tx.Exec(ctx,
		`DELETE FROM sessions WHERE user_id = $1 AND last_active_at < now() - make_interval(secs => $2::float8)`,
		userID, p.ttlSeconds())
	return err
}

func (p *PostgresStore) IsFirstInteraction(ctx context.Context, userID string) (bool, error) {
	first := false
	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		if err := p.dropExpired(ctx, tx, userID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO sessions (user_id, last_active_at) VALUES ($1, now()) ON CONFLICT (user_id) DO NOTHING`,
			userID); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx,
			`UPDATE sessions SET first_interaction_seen = TRUE, last_active_at = now()
			 WHERE user_id = $1 AND first_interaction_seen = FALSE`, userID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 1 {
			first = true
			return nil
		}
		_, err = tx.Exec(ctx, `UPDATE sessions SET last_active_at = now() WHERE user_id = $1`, userID)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("first interaction check: %w", err)
	}
	return first, nil
}

func (p *PostgresStore) Get(ctx context.Context, userID string) (Session, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT user_id, first_interaction_seen, dispatched, state, last_active_at
		   FROM sessions
		  WHERE user_id = $1 AND ($2::float8 <= 0 OR last_active_at >= now() - make_interval(secs => $2::float8))`,
		userID, p.ttlSeconds())
	s, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("get session: %w", err)
	}
	return s, nil
}

func (p *PostgresStore) Save(ctx context.Context, s Session) error {
	var state any
	if len(s.State) > 0 {
		state = []byte(s.State)
	}
	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		if err := p.dropExpired(ctx, tx, s.UserID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO sessions (user_id, first_interaction_seen, state, last_active_at)
			 VALUES ($1, $2, $3, now())
			 ON CONFLICT (user_id) DO UPDATE
			    SET first_interaction_seen = sessions.first_interaction_seen OR EXCLUDED.first_interaction_seen,
			        state = EXCLUDED.state,
			        last_active_at = now()`,
			s.UserID, s.FirstInteractionSeen, state)
		return err
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (p *PostgresStore) ClaimDispatch(ctx context.Context, userID string) (bool, error) {
	won := false
	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		if err := p.dropExpired(ctx, tx, userID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO sessions (user_id, first_interaction_seen, last_active_at) VALUES ($1, TRUE, now())
			 ON CONFLICT (user_id) DO NOTHING`, userID); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx,
			`UPDATE sessions SET dispatched = TRUE, last_active_at = now()
			 WHERE user_id = $1 AND dispatched = FALSE`, userID)
		if err != nil {
			return err
		}
		won = tag.RowsAffected() == 1
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("claim dispatch: %w", err)
	}
	return won, nil
}

func (p *PostgresStore) ReleaseDispatch(ctx context.Context, userID string) error {
	if _, err := p.pool.Exec(ctx, `UPDATE sessions SET dispatched = FALSE WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("release dispatch: %w", err)
	}
	return nil
}

func (p *PostgresStore) Evict(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM sessions WHERE last_active_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("evict sessions: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (p *PostgresStore) Delete(ctx context.Context, userID string) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (p *PostgresStore) List(ctx context.Context) ([]Session, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT user_id, first_interaction_seen, dispatched, state, last_active_at
		   FROM sessions
		  WHERE $1::float8 <= 0 OR last_active_at >= now() - make_interval(secs => $1::float8)
		  ORDER BY last_active_at DESC`, p.ttlSeconds())
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	out := make([]Session, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanSession(row pgx.Row) (Session, error) {
	var (
		s     Session
		state []byte
	)
	if err := row.Scan(&s.UserID, &s.FirstInteractionSeen, &s.Dispatched, &state, &s.LastActiveAt); err != nil {
		return Session{}, err
	}
	if len(state) > 0 {
		s.State = state
	}
	return s, nil
}
