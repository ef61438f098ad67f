package strix

import "context"

// SessionStore persists scan sessions to a relational store. Saves are
// upserts by primary key so rewriting a session is idempotent; deletes
// cascade across the session's tasks, assets, and findings.
type SessionStore interface {
	// Init creates the schema. Safe to call repeatedly.
	Init(ctx context.Context) error
	// SaveSession upserts the session and all of its children.
	SaveSession(ctx context.Context, s *ScanSession) error
	// GetSession reconstructs the full session graph, preserving child
	// order. Returns *ErrSessionNotFound when the ID does not exist.
	GetSession(ctx context.Context, id string) (*ScanSession, error)
	// ListSessions returns all sessions, most recently started first.
	ListSessions(ctx context.Context) ([]*ScanSession, error)
	// DeleteSession removes the session and all related rows.
	DeleteSession(ctx context.Context, id string) error
}
