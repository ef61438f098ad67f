// Package postgres implements strix.SessionStore using PostgreSQL.
//
// Store accepts an externally-owned *pgxpool.Pool via constructor
// injection. The caller creates and closes the pool.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	strix "github.com/nevindra/strix"
)

// Store implements strix.SessionStore backed by PostgreSQL. Metadata and
// recommendations are stored as JSONB; timestamps as TIMESTAMPTZ.
type Store struct {
	pool *pgxpool.Pool
}

var _ strix.SessionStore = (*Store)(nil)

// New creates a Store using an existing pgxpool.Pool.
// The caller owns the pool and is responsible for closing it.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Init creates all required tables and indexes.
// Safe to call multiple times (all statements are idempotent).
func (s *Store) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			target TEXT NOT NULL,
			started_at TIMESTAMPTZ NOT NULL,
			completed_at TIMESTAMPTZ,
			metadata JSONB
		)`,

		`CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			name TEXT NOT NULL,
			description TEXT NOT NULL,
			status TEXT NOT NULL,
			progress DOUBLE PRECISION NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			started_at TIMESTAMPTZ,
			completed_at TIMESTAMPTZ,
			error TEXT NOT NULL DEFAULT '',
			metadata JSONB
		)`,
		`CREATE INDEX IF NOT EXISTS tasks_session_idx ON tasks(session_id)`,

		`CREATE TABLE IF NOT EXISTS assets (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			type TEXT NOT NULL,
			value TEXT NOT NULL,
			discovered_by TEXT NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL,
			score DOUBLE PRECISION NOT NULL,
			metadata JSONB
		)`,
		`CREATE INDEX IF NOT EXISTS assets_session_idx ON assets(session_id)`,

		`CREATE TABLE IF NOT EXISTS findings (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			severity TEXT NOT NULL,
			title TEXT NOT NULL,
			host TEXT NOT NULL,
			description TEXT NOT NULL,
			discovered_by TEXT NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL,
			evidence TEXT NOT NULL DEFAULT '',
			recommendations JSONB,
			metadata JSONB
		)`,
		`CREATE INDEX IF NOT EXISTS findings_session_idx ON findings(session_id)`,
	}

	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: init: %w", err)
		}
	}
	return nil
}

// SaveSession upserts the session row and rewrites all child rows in a
// single transaction.
func (s *Store) SaveSession(ctx context.Context, session *strix.ScanSession) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx,
		`INSERT INTO sessions (id, target, started_at, completed_at, metadata)
		 VALUES ($1, $2, $3, $4, $5::jsonb)
		 ON CONFLICT (id) DO UPDATE SET
		   target = EXCLUDED.target,
		   started_at = EXCLUDED.started_at,
		   completed_at = EXCLUDED.completed_at,
		   metadata = EXCLUDED.metadata`,
		session.ID, session.Target, session.StartedAt, session.CompletedAt, marshalMeta(session.Metadata))
	if err != nil {
		return fmt.Errorf("postgres: insert session: %w", err)
	}

	for seq, t := range session.Tasks {
		_, err = tx.Exec(ctx,
			`INSERT INTO tasks (id, session_id, seq, name, description, status, progress, created_at, started_at, completed_at, error, metadata)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12::jsonb)
			 ON CONFLICT (id) DO UPDATE SET
			   seq = EXCLUDED.seq,
			   status = EXCLUDED.status,
			   progress = EXCLUDED.progress,
			   started_at = EXCLUDED.started_at,
			   completed_at = EXCLUDED.completed_at,
			   error = EXCLUDED.error,
			   metadata = EXCLUDED.metadata`,
			t.ID, session.ID, seq, t.Name, t.Description, string(t.Status), t.Progress,
			t.CreatedAt, t.StartedAt, t.CompletedAt, t.Error, marshalMeta(t.Metadata))
		if err != nil {
			return fmt.Errorf("postgres: insert task: %w", err)
		}
	}

	for seq, a := range session.Assets {
		_, err = tx.Exec(ctx,
			`INSERT INTO assets (id, session_id, seq, type, value, discovered_by, timestamp, score, metadata)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb)
			 ON CONFLICT (id) DO UPDATE SET
			   seq = EXCLUDED.seq,
			   score = EXCLUDED.score,
			   metadata = EXCLUDED.metadata`,
			a.ID, session.ID, seq, a.Type, a.Value, a.DiscoveredBy, a.Timestamp, a.Score, marshalMeta(a.Metadata))
		if err != nil {
			return fmt.Errorf("postgres: insert asset: %w", err)
		}
	}

	for seq, f := range session.Findings {
		var recsJSON *string
		if len(f.Recommendations) > 0 {
			data, _ := json.Marshal(f.Recommendations)
			v := string(data)
			recsJSON = &v
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO findings (id, session_id, seq, severity, title, host, description, discovered_by, timestamp, evidence, recommendations, metadata)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11::jsonb, $12::jsonb)
			 ON CONFLICT (id) DO UPDATE SET
			   seq = EXCLUDED.seq,
			   evidence = EXCLUDED.evidence,
			   recommendations = EXCLUDED.recommendations,
			   metadata = EXCLUDED.metadata`,
			f.ID, session.ID, seq, string(f.Severity), f.Title, f.Host, f.Description,
			f.DiscoveredBy, f.Timestamp, f.Evidence, recsJSON, marshalMeta(f.Metadata))
		if err != nil {
			return fmt.Errorf("postgres: insert finding: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit tx: %w", err)
	}
	return nil
}

// GetSession reconstructs the full session graph, children in creation order.
func (s *Store) GetSession(ctx context.Context, id string) (*strix.ScanSession, error) {
	session := &strix.ScanSession{}
	var completedAt *time.Time
	var metaJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT id, target, started_at, completed_at, metadata FROM sessions WHERE id = $1`, id,
	).Scan(&session.ID, &session.Target, &session.StartedAt, &completedAt, &metaJSON)
	if err == pgx.ErrNoRows {
		return nil, &strix.ErrSessionNotFound{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get session: %w", err)
	}
	session.CompletedAt = completedAt
	if metaJSON != nil {
		_ = json.Unmarshal(metaJSON, &session.Metadata)
	}

	if session.Tasks, err = s.getTasks(ctx, id); err != nil {
		return nil, err
	}
	if session.Assets, err = s.getAssets(ctx, id); err != nil {
		return nil, err
	}
	if session.Findings, err = s.getFindings(ctx, id); err != nil {
		return nil, err
	}
	return session, nil
}

// ListSessions returns all sessions, most recently started first.
func (s *Store) ListSessions(ctx context.Context) ([]*strix.ScanSession, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id FROM sessions ORDER BY started_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("postgres: scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate sessions: %w", err)
	}

	var sessions []*strix.ScanSession
	for _, id := range ids {
		session, err := s.GetSession(ctx, id)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

// DeleteSession removes the session and all related rows.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, table := range []string{"tasks", "assets", "findings"} {
		if _, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE session_id = $1`, id); err != nil {
			return fmt.Errorf("postgres: delete session %s: %w", table, err)
		}
	}
	if _, err := tx.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("postgres: delete session: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *Store) getTasks(ctx context.Context, sessionID string) ([]*strix.Task, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, description, status, progress, created_at, started_at, completed_at, error, metadata
		 FROM tasks WHERE session_id = $1 ORDER BY seq`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("postgres: get tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*strix.Task
	for rows.Next() {
		t := &strix.Task{}
		var status string
		var metaJSON []byte
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &status, &t.Progress,
			&t.CreatedAt, &t.StartedAt, &t.CompletedAt, &t.Error, &metaJSON); err != nil {
			return nil, fmt.Errorf("postgres: scan task: %w", err)
		}
		t.Status = strix.TaskStatus(status)
		if metaJSON != nil {
			_ = json.Unmarshal(metaJSON, &t.Metadata)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *Store) getAssets(ctx context.Context, sessionID string) ([]*strix.Asset, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, type, value, discovered_by, timestamp, score, metadata
		 FROM assets WHERE session_id = $1 ORDER BY seq`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("postgres: get assets: %w", err)
	}
	defer rows.Close()

	var assets []*strix.Asset
	for rows.Next() {
		a := &strix.Asset{}
		var metaJSON []byte
		if err := rows.Scan(&a.ID, &a.Type, &a.Value, &a.DiscoveredBy, &a.Timestamp, &a.Score, &metaJSON); err != nil {
			return nil, fmt.Errorf("postgres: scan asset: %w", err)
		}
		if metaJSON != nil {
			_ = json.Unmarshal(metaJSON, &a.Metadata)
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

func (s *Store) getFindings(ctx context.Context, sessionID string) ([]*strix.Finding, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, severity, title, host, description, discovered_by, timestamp, evidence, recommendations, metadata
		 FROM findings WHERE session_id = $1 ORDER BY seq`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("postgres: get findings: %w", err)
	}
	defer rows.Close()

	var findings []*strix.Finding
	for rows.Next() {
		f := &strix.Finding{}
		var severity string
		var recsJSON, metaJSON []byte
		if err := rows.Scan(&f.ID, &severity, &f.Title, &f.Host, &f.Description,
			&f.DiscoveredBy, &f.Timestamp, &f.Evidence, &recsJSON, &metaJSON); err != nil {
			return nil, fmt.Errorf("postgres: scan finding: %w", err)
		}
		f.Severity = strix.Severity(severity)
		if recsJSON != nil {
			_ = json.Unmarshal(recsJSON, &f.Recommendations)
		}
		if metaJSON != nil {
			_ = json.Unmarshal(metaJSON, &f.Metadata)
		}
		findings = append(findings, f)
	}
	return findings, rows.Err()
}

// Close is a no-op. The caller owns the pool and manages its lifecycle.
func (s *Store) Close() error {
	return nil
}

func marshalMeta(m map[string]any) *string {
	if len(m) == 0 {
		return nil
	}
	data, _ := json.Marshal(m)
	v := string(data)
	return &v
}
