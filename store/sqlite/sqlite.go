// Package sqlite implements strix.SessionStore using pure-Go SQLite.
// Zero CGO required.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	strix "github.com/nevindra/strix"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// StoreOption configures a SQLite Store.
type StoreOption func(*Store)

// WithLogger sets a structured logger for the store.
// When set, the store emits debug logs for every operation including
// timing, row counts, and key parameters. If not set, no logs are emitted.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// Store implements strix.SessionStore backed by a local SQLite file.
// Metadata and recommendations are stored as JSON text; timestamps as
// RFC3339Nano text.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ strix.SessionStore = (*Store)(nil)

// nopLogger is a logger that discards all output.
var nopLogger = slog.New(slog.DiscardHandler)

// New creates a Store using a local SQLite file at dbPath.
// It opens a single shared connection pool with SetMaxOpenConns(1) so that
// all goroutines serialize through one connection, eliminating SQLITE_BUSY
// errors caused by concurrent writers opening independent connections.
func New(dbPath string, opts ...StoreOption) *Store {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		// sql.Open only fails when the driver is not registered; with the
		// blank import above that never happens.
		panic(fmt.Sprintf("sqlite: open driver: %v", err))
	}
	db.SetMaxOpenConns(1)
	s := &Store{db: db, logger: nopLogger}
	for _, o := range opts {
		o(s)
	}
	s.logger.Debug("sqlite: store opened", "path", dbPath)
	return s
}

// Init creates all required tables.
func (s *Store) Init(ctx context.Context) error {
	start := time.Now()
	s.logger.Debug("sqlite: init started")
	tables := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			target TEXT NOT NULL,
			started_at TEXT NOT NULL,
			completed_at TEXT,
			metadata TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			name TEXT NOT NULL,
			description TEXT NOT NULL,
			status TEXT NOT NULL,
			progress REAL NOT NULL,
			created_at TEXT NOT NULL,
			started_at TEXT,
			completed_at TEXT,
			error TEXT,
			metadata TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS assets (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			type TEXT NOT NULL,
			value TEXT NOT NULL,
			discovered_by TEXT NOT NULL,
			timestamp TEXT NOT NULL,
			score REAL NOT NULL,
			metadata TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS findings (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			severity TEXT NOT NULL,
			title TEXT NOT NULL,
			host TEXT NOT NULL,
			description TEXT NOT NULL,
			discovered_by TEXT NOT NULL,
			timestamp TEXT NOT NULL,
			evidence TEXT,
			recommendations TEXT,
			metadata TEXT
		)`,
	}

	for _, ddl := range tables {
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}

	// Indexes on frequently queried columns.
	_, _ = s.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_tasks_session ON tasks(session_id)`)
	_, _ = s.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_assets_session ON assets(session_id)`)
	_, _ = s.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_findings_session ON findings(session_id)`)

	s.logger.Info("sqlite: init completed", "duration", time.Since(start))
	return nil
}

// SaveSession upserts the session row and rewrites all child rows in a
// single transaction. The seq column preserves creation order across
// INSERT OR REPLACE, which does not keep rowid stable.
func (s *Store) SaveSession(ctx context.Context, session *strix.ScanSession) error {
	start := time.Now()
	s.logger.Debug("sqlite: save session", "id", session.ID, "target", session.Target,
		"tasks", len(session.Tasks), "assets", len(session.Assets), "findings", len(session.Findings))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO sessions (id, target, started_at, completed_at, metadata)
		 VALUES (?, ?, ?, ?, ?)`,
		session.ID, session.Target, formatTime(session.StartedAt),
		formatTimePtr(session.CompletedAt), marshalMeta(session.Metadata),
	)
	if err != nil {
		s.logger.Error("sqlite: save session failed", "id", session.ID, "error", err)
		return fmt.Errorf("insert session: %w", err)
	}

	for seq, t := range session.Tasks {
		_, err = tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO tasks (id, session_id, seq, name, description, status, progress, created_at, started_at, completed_at, error, metadata)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, session.ID, seq, t.Name, t.Description, string(t.Status), t.Progress,
			formatTime(t.CreatedAt), formatTimePtr(t.StartedAt), formatTimePtr(t.CompletedAt),
			t.Error, marshalMeta(t.Metadata),
		)
		if err != nil {
			s.logger.Error("sqlite: save task failed", "task_id", t.ID, "error", err)
			return fmt.Errorf("insert task: %w", err)
		}
	}

	for seq, a := range session.Assets {
		_, err = tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO assets (id, session_id, seq, type, value, discovered_by, timestamp, score, metadata)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			a.ID, session.ID, seq, a.Type, a.Value, a.DiscoveredBy,
			formatTime(a.Timestamp), a.Score, marshalMeta(a.Metadata),
		)
		if err != nil {
			s.logger.Error("sqlite: save asset failed", "asset_id", a.ID, "error", err)
			return fmt.Errorf("insert asset: %w", err)
		}
	}

	for seq, f := range session.Findings {
		var recsJSON *string
		if len(f.Recommendations) > 0 {
			data, _ := json.Marshal(f.Recommendations)
			v := string(data)
			recsJSON = &v
		}
		_, err = tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO findings (id, session_id, seq, severity, title, host, description, discovered_by, timestamp, evidence, recommendations, metadata)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			f.ID, session.ID, seq, string(f.Severity), f.Title, f.Host, f.Description,
			f.DiscoveredBy, formatTime(f.Timestamp), f.Evidence, recsJSON, marshalMeta(f.Metadata),
		)
		if err != nil {
			s.logger.Error("sqlite: save finding failed", "finding_id", f.ID, "error", err)
			return fmt.Errorf("insert finding: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("sqlite: save session commit failed", "id", session.ID, "error", err)
		return fmt.Errorf("commit tx: %w", err)
	}
	s.logger.Debug("sqlite: save session ok", "id", session.ID, "duration", time.Since(start))
	return nil
}

// GetSession reconstructs the full session graph, children in creation order.
func (s *Store) GetSession(ctx context.Context, id string) (*strix.ScanSession, error) {
	start := time.Now()
	s.logger.Debug("sqlite: get session", "id", id)

	session := &strix.ScanSession{}
	var startedAt string
	var completedAt, metaJSON sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, target, started_at, completed_at, metadata FROM sessions WHERE id = ?`, id,
	).Scan(&session.ID, &session.Target, &startedAt, &completedAt, &metaJSON)
	if err == sql.ErrNoRows {
		return nil, &strix.ErrSessionNotFound{ID: id}
	}
	if err != nil {
		s.logger.Error("sqlite: get session failed", "id", id, "error", err, "duration", time.Since(start))
		return nil, fmt.Errorf("get session: %w", err)
	}
	session.StartedAt = parseTime(startedAt)
	session.CompletedAt = parseTimePtr(completedAt)
	if metaJSON.Valid {
		_ = json.Unmarshal([]byte(metaJSON.String), &session.Metadata)
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

	s.logger.Debug("sqlite: get session ok", "id", id,
		"tasks", len(session.Tasks), "assets", len(session.Assets), "findings", len(session.Findings),
		"duration", time.Since(start))
	return session, nil
}

// ListSessions returns all sessions, most recently started first.
// Children are loaded for each session.
func (s *Store) ListSessions(ctx context.Context) ([]*strix.ScanSession, error) {
	start := time.Now()
	s.logger.Debug("sqlite: list sessions")

	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM sessions ORDER BY started_at DESC, id DESC`)
	if err != nil {
		s.logger.Error("sqlite: list sessions failed", "error", err)
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	var sessions []*strix.ScanSession
	for _, id := range ids {
		session, err := s.GetSession(ctx, id)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	s.logger.Debug("sqlite: list sessions ok", "count", len(sessions), "duration", time.Since(start))
	return sessions, nil
}

// DeleteSession removes the session and all related rows.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	start := time.Now()
	s.logger.Debug("sqlite: delete session", "id", id)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, table := range []string{"tasks", "assets", "findings"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE session_id = ?`, id); err != nil {
			return fmt.Errorf("delete session %s: %w", table, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if err := tx.Commit(); err != nil {
		s.logger.Error("sqlite: delete session commit failed", "id", id, "error", err)
		return err
	}
	s.logger.Debug("sqlite: delete session ok", "id", id, "duration", time.Since(start))
	return nil
}

func (s *Store) getTasks(ctx context.Context, sessionID string) ([]*strix.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, description, status, progress, created_at, started_at, completed_at, error, metadata
		 FROM tasks WHERE session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*strix.Task
	for rows.Next() {
		t := &strix.Task{}
		var status, createdAt string
		var startedAt, completedAt, errMsg, metaJSON sql.NullString
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &status, &t.Progress,
			&createdAt, &startedAt, &completedAt, &errMsg, &metaJSON); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		t.Status = strix.TaskStatus(status)
		t.CreatedAt = parseTime(createdAt)
		t.StartedAt = parseTimePtr(startedAt)
		t.CompletedAt = parseTimePtr(completedAt)
		if errMsg.Valid {
			t.Error = errMsg.String
		}
		if metaJSON.Valid {
			_ = json.Unmarshal([]byte(metaJSON.String), &t.Metadata)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *Store) getAssets(ctx context.Context, sessionID string) ([]*strix.Asset, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, type, value, discovered_by, timestamp, score, metadata
		 FROM assets WHERE session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get assets: %w", err)
	}
	defer rows.Close()

	var assets []*strix.Asset
	for rows.Next() {
		a := &strix.Asset{}
		var ts string
		var metaJSON sql.NullString
		if err := rows.Scan(&a.ID, &a.Type, &a.Value, &a.DiscoveredBy, &ts, &a.Score, &metaJSON); err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		a.Timestamp = parseTime(ts)
		if metaJSON.Valid {
			_ = json.Unmarshal([]byte(metaJSON.String), &a.Metadata)
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

func (s *Store) getFindings(ctx context.Context, sessionID string) ([]*strix.Finding, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, severity, title, host, description, discovered_by, timestamp, evidence, recommendations, metadata
		 FROM findings WHERE session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get findings: %w", err)
	}
	defer rows.Close()

	var findings []*strix.Finding
	for rows.Next() {
		f := &strix.Finding{}
		var severity, ts string
		var evidence, recsJSON, metaJSON sql.NullString
		if err := rows.Scan(&f.ID, &severity, &f.Title, &f.Host, &f.Description,
			&f.DiscoveredBy, &ts, &evidence, &recsJSON, &metaJSON); err != nil {
			return nil, fmt.Errorf("scan finding: %w", err)
		}
		f.Severity = strix.Severity(severity)
		f.Timestamp = parseTime(ts)
		if evidence.Valid {
			f.Evidence = evidence.String
		}
		if recsJSON.Valid {
			_ = json.Unmarshal([]byte(recsJSON.String), &f.Recommendations)
		}
		if metaJSON.Valid {
			_ = json.Unmarshal([]byte(metaJSON.String), &f.Metadata)
		}
		findings = append(findings, f)
	}
	return findings, rows.Err()
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	s.logger.Debug("sqlite: closing store")
	err := s.db.Close()
	if err != nil {
		s.logger.Error("sqlite: close failed", "error", err)
	}
	return err
}

func marshalMeta(m map[string]any) *string {
	if len(m) == 0 {
		return nil
	}
	data, _ := json.Marshal(m)
	v := string(data)
	return &v
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	v := formatTime(*t)
	return &v
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func parseTimePtr(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t := parseTime(s.String)
	return &t
}
