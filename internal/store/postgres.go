package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"wealthwars/internal/game"
)

const schemaSQL = `
CREATE SCHEMA IF NOT EXISTS game;

CREATE TABLE IF NOT EXISTS game.players (
	id         text PRIMARY KEY,
	username   text NOT NULL UNIQUE,
	state      jsonb NOT NULL,
	created_at timestamptz NOT NULL DEFAULT now(),
	updated_at timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS game.takeover_keys (
	attacker_id text NOT NULL REFERENCES game.players (id),
	key         text NOT NULL,
	created_at  timestamptz NOT NULL DEFAULT now(),
	PRIMARY KEY (attacker_id, key)
);
`

const maxTxAttempts = 8

// Postgres stores each player aggregate as one jsonb row.
type Postgres struct {
	db  *pgxpool.Pool
	log *slog.Logger
}

func NewPostgres(db *pgxpool.Pool, logger *slog.Logger) *Postgres {
	if logger == nil {
		logger = slog.Default()
	}
	return &Postgres{db: db, log: logger}
}

func (s *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schemaSQL)
	return err
}

func (s *Postgres) CreatePlayer(ctx context.Context, p game.Player) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	cmd, err := s.db.Exec(ctx, `
		INSERT INTO game.players (id, username, state)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING
	`, p.ID, p.Username, raw)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", game.ErrPlayerExists, p.ID)
	}
	return nil
}

func (s *Postgres) GetPlayer(ctx context.Context, id string) (game.Player, error) {
	var raw []byte
	err := s.db.QueryRow(ctx, `SELECT state FROM game.players WHERE id = $1`, id).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return game.Player{}, fmt.Errorf("%w: %s", game.ErrPlayerNotFound, id)
		}
		return game.Player{}, err
	}
	return decodePlayer(raw)
}

func (s *Postgres) ListPlayers(ctx context.Context) ([]game.Player, error) {
	rows, err := s.db.Query(ctx, `SELECT state FROM game.players ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []game.Player
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		p, err := decodePlayer(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Postgres) UpdatePlayer(ctx context.Context, id string, fn func(p *game.Player) error) (game.Player, error) {
	var out game.Player
	err := s.serializable(ctx, func(tx pgx.Tx) error {
		p, err := lockPlayer(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := fn(&p); err != nil {
			return err
		}
		if err := savePlayer(ctx, tx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	return out, err
}

func (s *Postgres) UpdatePlayers(ctx context.Context, aID, bID, key string, fn func(a, b *game.Player) error) (game.Player, game.Player, error) {
	if aID == bID {
		return game.Player{}, game.Player{}, game.ErrSelfTarget
	}
	var outA, outB game.Player
	err := s.serializable(ctx, func(tx pgx.Tx) error {
		if key != "" {
			if err := claimTakeoverKey(ctx, tx, aID, key); err != nil {
				return err
			}
		}
		// Lock in id order so concurrent attacks between the same pair
		// cannot deadlock.
		first, second := aID, bID
		if second < first {
			first, second = second, first
		}
		p1, err := lockPlayer(ctx, tx, first)
		if err != nil {
			return err
		}
		p2, err := lockPlayer(ctx, tx, second)
		if err != nil {
			return err
		}
		a, b := p1, p2
		if first != aID {
			a, b = p2, p1
		}
		if err := fn(&a, &b); err != nil {
			return err
		}
		if err := savePlayer(ctx, tx, a); err != nil {
			return err
		}
		if err := savePlayer(ctx, tx, b); err != nil {
			return err
		}
		outA, outB = a, b
		return nil
	})
	return outA, outB, err
}

// serializable runs fn in a serializable transaction, retrying with backoff
// on serialization failures.
func (s *Postgres) serializable(ctx context.Context, fn func(tx pgx.Tx) error) error {
	retryDelay := 75 * time.Millisecond
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
		if err != nil {
			return err
		}
		err = func() error {
			defer tx.Rollback(ctx)
			if err := fn(tx); err != nil {
				return err
			}
			return tx.Commit(ctx)
		}()
		if err == nil {
			return nil
		}
		if !isSerializationError(err) {
			return err
		}
		s.log.Warn("serialization conflict", "attempt", attempt+1)
		if attempt == maxTxAttempts-1 {
			return game.ErrTxConflict
		}
		if err := sleepWithContext(ctx, retryDelay); err != nil {
			return err
		}
		if retryDelay < 1200*time.Millisecond {
			retryDelay *= 2
		}
	}
	return game.ErrTxConflict
}

func lockPlayer(ctx context.Context, tx pgx.Tx, id string) (game.Player, error) {
	var raw []byte
	err := tx.QueryRow(ctx, `
		SELECT state
		FROM game.players
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return game.Player{}, fmt.Errorf("%w: %s", game.ErrPlayerNotFound, id)
		}
		return game.Player{}, err
	}
	return decodePlayer(raw)
}

func savePlayer(ctx context.Context, tx pgx.Tx, p game.Player) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		UPDATE game.players
		SET state = $1, updated_at = now()
		WHERE id = $2
	`, raw, p.ID)
	return err
}

func claimTakeoverKey(ctx context.Context, tx pgx.Tx, attackerID, key string) error {
	cmd, err := tx.Exec(ctx, `
		INSERT INTO game.takeover_keys (attacker_id, key, created_at)
		VALUES ($1, $2, now())
		ON CONFLICT (attacker_id, key) DO NOTHING
	`, attackerID, key)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return game.ErrDuplicateBid
	}
	return nil
}

func decodePlayer(raw []byte) (game.Player, error) {
	var p game.Player
	if err := json.Unmarshal(raw, &p); err != nil {
		return game.Player{}, fmt.Errorf("decode player: %w", err)
	}
	if p.ActiveEffects == nil {
		p.ActiveEffects = map[string]game.TimedEffect{}
	}
	return p, nil
}

func isSerializationError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "40001"
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
