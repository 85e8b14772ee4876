package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/saolsen/gameplay/game"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS matches (
		id         text PRIMARY KEY,
		game       text NOT NULL,
		players    jsonb NOT NULL,
		state      jsonb NOT NULL,
		status     jsonb NOT NULL,
		turns      integer NOT NULL DEFAULT 0,
		created_at timestamptz NOT NULL,
		updated_at timestamptz NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS matches_game_id_idx ON matches (game, id DESC)`,
	`CREATE TABLE IF NOT EXISTS turns (
		match_id   text NOT NULL REFERENCES matches (id) ON DELETE CASCADE,
		number     integer NOT NULL,
		player     integer NOT NULL,
		action     jsonb NOT NULL,
		state      jsonb NOT NULL,
		status     jsonb NOT NULL,
		agent_data jsonb,
		created_at timestamptz NOT NULL,
		PRIMARY KEY (match_id, number)
	)`,
}

// Postgres stores matches and turns in two tables. Appends lock the match
// row, so concurrent writers to one match serialize.
type Postgres struct {
	db *pgxpool.Pool
}

var _ Store = (*Postgres)(nil)

// NewPostgres connects to url and creates the tables if they are missing.
func NewPostgres(ctx context.Context, url string) (*Postgres, error) {
	db, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	s := &Postgres{db: db}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the schema. It is idempotent.
func (s *Postgres) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

const matchColumns = `id, game, players, state, status, turns, created_at, updated_at`

func scanMatch(row pgx.Row) (*Match, error) {
	var (
		m                      Match
		players, state, status []byte
	)
	if err := row.Scan(&m.ID, &m.Game, &players, &state, &status, &m.Turns, &m.CreatedAt, &m.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(players, &m.Players); err != nil {
		return nil, fmt.Errorf("decode players: %w", err)
	}
	if err := json.Unmarshal(status, &m.Status); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}
	m.State = state
	m.CreatedAt = m.CreatedAt.UTC()
	m.UpdatedAt = m.UpdatedAt.UTC()
	return &m, nil
}

func (s *Postgres) CreateMatch(ctx context.Context, m *Match) error {
	players, err := json.Marshal(m.Players)
	if err != nil {
		return err
	}
	status, err := json.Marshal(m.Status)
	if err != nil {
		return err
	}
	tag, err := s.db.Exec(ctx,
		`INSERT INTO matches (`+matchColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO NOTHING`,
		m.ID, string(m.Game), players, []byte(m.State), status, m.Turns, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}

// lockMatch reads the match row for update within tx.
func lockMatch(ctx context.Context, tx pgx.Tx, id string) (*Match, error) {
	return scanMatch(tx.QueryRow(ctx,
		`SELECT `+matchColumns+` FROM matches WHERE id = $1 FOR UPDATE`, id))
}

func (s *Postgres) AppendTurn(ctx context.Context, id string, t Turn) error {
	status, err := json.Marshal(t.Status)
	if err != nil {
		return err
	}
	var agentData []byte
	if len(t.AgentData) > 0 {
		agentData = t.AgentData
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	m, err := lockMatch(ctx, tx, id)
	if err != nil {
		return err
	}
	if err := checkTurn(m, t); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO turns (match_id, number, player, action, state, status, agent_data, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, t.Number, t.Player, []byte(t.Action), []byte(t.State), status, agentData, t.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert turn: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE matches SET state = $2, status = $3, turns = $4, updated_at = $5 WHERE id = $1`,
		id, []byte(t.State), status, t.Number, t.CreatedAt,
	); err != nil {
		return fmt.Errorf("update match: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *Postgres) FinishMatch(ctx context.Context, id string, status game.Status, at time.Time) error {
	data, err := json.Marshal(status)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	m, err := lockMatch(ctx, tx, id)
	if err != nil {
		return err
	}
	if m.Status.Over {
		return ErrConflict
	}
	if _, err := tx.Exec(ctx,
		`UPDATE matches SET status = $2, updated_at = $3 WHERE id = $1`, id, data, at,
	); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Postgres) GetMatch(ctx context.Context, id string) (*Match, error) {
	return scanMatch(s.db.QueryRow(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = $1`, id))
}

func (s *Postgres) ListTurns(ctx context.Context, id string) ([]Turn, error) {
	if _, err := s.GetMatch(ctx, id); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx,
		`SELECT number, player, action, state, status, agent_data, created_at
		 FROM turns
		 WHERE match_id = $1
		 ORDER BY number`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	turns := []Turn{}
	for rows.Next() {
		var (
			t                         Turn
			action, state, status, ad []byte
		)
		if err := rows.Scan(&t.Number, &t.Player, &action, &state, &status, &ad, &t.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(status, &t.Status); err != nil {
			return nil, fmt.Errorf("decode turn %d status: %w", t.Number, err)
		}
		t.Action, t.State, t.AgentData = action, state, ad
		t.CreatedAt = t.CreatedAt.UTC()
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

func (s *Postgres) ListMatches(ctx context.Context, opts ListOptions) ([]Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches`
	var args []any
	if opts.Game != "" {
		args = append(args, string(opts.Game))
		query += fmt.Sprintf(` WHERE game = $%d`, len(args))
	}
	query += ` ORDER BY id DESC`
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ms []Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		ms = append(ms, *m)
	}
	return ms, rows.Err()
}

func (s *Postgres) Close() error {
	s.db.Close()
	return nil
}
