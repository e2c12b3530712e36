package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/playperu/luckydraw/internal/luckydraw"
)

// dialect holds the SQL that differs between SQLite (libSQL) and Postgres.
// The state column is JSONB in both; argument order is fixed per statement:
//
//	insert, upsert: id, state, updated_at
//	cas:            state, updated_at, id, version
type dialect struct {
	name            string
	// lockState, when set, runs first in Modify to take the write lock
	// before the state is read.
	lockState       string
	selectState     string
	selectForUpdate string
	insert          string
	upsert          string
	cas             string
	insertSession   string
	selectSession   string
	deleteSession   string
	timestamp       func(time.Time) any
}

var sqliteDialect = dialect{
	name:            "sqlite",
	lockState:       `UPDATE lucky_draw_state SET version = version WHERE id = ?`,
	selectState:     `SELECT json(state), version FROM lucky_draw_state WHERE id = ?`,
	selectForUpdate: `SELECT json(state), version FROM lucky_draw_state WHERE id = ?`,
	insert: `INSERT INTO lucky_draw_state (id, state, version, updated_at) VALUES (?, jsonb(?), 1, ?)
		 ON CONFLICT(id) DO NOTHING`,
	upsert: `INSERT INTO lucky_draw_state (id, state, version, updated_at) VALUES (?, jsonb(?), 1, ?)
		 ON CONFLICT(id) DO UPDATE SET state = excluded.state, version = lucky_draw_state.version + 1, updated_at = excluded.updated_at`,
	cas:           `UPDATE lucky_draw_state SET state = jsonb(?), version = version + 1, updated_at = ? WHERE id = ? AND version = ?`,
	insertSession: `INSERT INTO auth_sessions (id, role, member, created_at) VALUES (?, ?, ?, ?)`,
	selectSession: `SELECT role, member FROM auth_sessions WHERE id = ?`,
	deleteSession: `DELETE FROM auth_sessions WHERE id = ?`,
	timestamp: func(t time.Time) any {
		return t.UTC().Format("2006-01-02T15:04:05.000Z")
	},
}

var postgresDialect = dialect{
	name:            "postgres",
	selectState:     `SELECT state::text, version FROM lucky_draw_state WHERE id = $1`,
	selectForUpdate: `SELECT state::text, version FROM lucky_draw_state WHERE id = $1 FOR UPDATE`,
	insert: `INSERT INTO lucky_draw_state (id, state, version, updated_at) VALUES ($1, $2::jsonb, 1, $3)
		 ON CONFLICT (id) DO NOTHING`,
	upsert: `INSERT INTO lucky_draw_state (id, state, version, updated_at) VALUES ($1, $2::jsonb, 1, $3)
		 ON CONFLICT (id) DO UPDATE SET state = excluded.state, version = lucky_draw_state.version + 1, updated_at = excluded.updated_at`,
	cas:           `UPDATE lucky_draw_state SET state = $1::jsonb, version = version + 1, updated_at = $2 WHERE id = $3 AND version = $4`,
	insertSession: `INSERT INTO auth_sessions (id, role, member, created_at) VALUES ($1, $2, $3, $4)`,
	selectSession: `SELECT role, member FROM auth_sessions WHERE id = $1`,
	deleteSession: `DELETE FROM auth_sessions WHERE id = $1`,
	timestamp:     func(t time.Time) any { return t.UTC() },
}

// DocStore implements Store on a SQL database, keeping the game state as a
// single JSONB document row guarded by a version counter.
type DocStore struct {
	db    *sql.DB
	d     dialect
	rules luckydraw.Rules
	now   func() time.Time
}

// NewSQLiteStore expects the sqlite migrations to have been applied to db.
func NewSQLiteStore(db *sql.DB, rules luckydraw.Rules) *DocStore {
	return &DocStore{db: db, d: sqliteDialect, rules: rules, now: time.Now}
}

// NewPostgresStore expects the postgres migrations to have been applied to db.
func NewPostgresStore(db *sql.DB, rules luckydraw.Rules) *DocStore {
	return &DocStore{db: db, d: postgresDialect, rules: rules, now: time.Now}
}

func (s *DocStore) Load(ctx context.Context) (luckydraw.GameState, error) {
	var data string
	err := s.db.QueryRowContext(ctx, s.d.selectState, stateID).Scan(&data, new(int64))
	if errors.Is(err, sql.ErrNoRows) {
		// First access: create the row, then re-read whichever insert won.
		if err := s.insertInitial(ctx); err != nil {
			return luckydraw.GameState{}, err
		}
		err = s.db.QueryRowContext(ctx, s.d.selectState, stateID).Scan(&data, new(int64))
	}
	if err != nil {
		return luckydraw.GameState{}, fmt.Errorf("loading state: %w", err)
	}
	return s.rules.Normalize([]byte(data)), nil
}

func (s *DocStore) insertInitial(ctx context.Context) error {
	data, err := json.Marshal(s.rules.Initial(s.now()))
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, s.d.insert, stateID, string(data), s.d.timestamp(s.now())); err != nil {
		return fmt.Errorf("creating state: %w", err)
	}
	return nil
}

func (s *DocStore) Save(ctx context.Context, state luckydraw.GameState) (luckydraw.GameState, error) {
	state = s.rules.Canonical(state)
	data, err := json.Marshal(state)
	if err != nil {
		return luckydraw.GameState{}, err
	}
	if _, err := s.db.ExecContext(ctx, s.d.upsert, stateID, string(data), s.d.timestamp(s.now())); err != nil {
		return luckydraw.GameState{}, fmt.Errorf("saving state: %w", err)
	}
	return state, nil
}

func (s *DocStore) Modify(ctx context.Context, fn func(*luckydraw.GameState) error) (luckydraw.GameState, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return luckydraw.GameState{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if s.d.lockState != "" {
		if _, err := tx.ExecContext(ctx, s.d.lockState, stateID); err != nil {
			return luckydraw.GameState{}, s.writeErr("locking state", err)
		}
	}

	var (
		data    string
		version int64
		state   luckydraw.GameState
	)
	err = tx.QueryRowContext(ctx, s.d.selectForUpdate, stateID).Scan(&data, &version)
	missing := errors.Is(err, sql.ErrNoRows)
	switch {
	case missing:
		state = s.rules.Initial(s.now())
	case err != nil:
		return luckydraw.GameState{}, fmt.Errorf("loading state: %w", err)
	default:
		state = s.rules.Normalize([]byte(data))
	}

	if err := fn(&state); err != nil {
		return luckydraw.GameState{}, err
	}
	state = s.rules.Canonical(state)

	out, err := json.Marshal(state)
	if err != nil {
		return luckydraw.GameState{}, err
	}

	var result sql.Result
	if missing {
		result, err = tx.ExecContext(ctx, s.d.insert, stateID, string(out), s.d.timestamp(s.now()))
	} else {
		result, err = tx.ExecContext(ctx, s.d.cas, string(out), s.d.timestamp(s.now()), stateID, version)
	}
	if err != nil {
		return luckydraw.GameState{}, s.writeErr("writing state", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return luckydraw.GameState{}, ErrVersionConflict
	}

	if err := tx.Commit(); err != nil {
		return luckydraw.GameState{}, s.writeErr("committing state", err)
	}
	return state, nil
}

// writeErr reports SQLite lock contention from another connection as a
// version conflict so the caller re-runs the transaction on fresh state.
func (s *DocStore) writeErr(op string, err error) error {
	if s.d.name == sqliteDialect.name && isBusy(err) {
		return fmt.Errorf("%s: %w: %v", op, ErrVersionConflict, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isBusy(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database is busy")
}

func (s *DocStore) CreateSession(ctx context.Context, role, member string) (string, error) {
	token := uuid.NewString()
	_, err := s.db.ExecContext(ctx, s.d.insertSession, token, role, member, s.d.timestamp(s.now()))
	if err != nil {
		return "", fmt.Errorf("creating session: %w", err)
	}
	return token, nil
}

func (s *DocStore) SessionFromToken(ctx context.Context, token string) (authSession, error) {
	var sess authSession
	err := s.db.QueryRowContext(ctx, s.d.selectSession, token).Scan(&sess.Role, &sess.Member)
	if errors.Is(err, sql.ErrNoRows) {
		return authSession{}, errNoSession
	}
	return sess, err
}

func (s *DocStore) DeleteSession(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, s.d.deleteSession, token)
	return err
}
