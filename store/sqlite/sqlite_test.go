package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	strix "github.com/nevindra/strix"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s := New(filepath.Join(t.TempDir(), "test.db"))
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testSession() *strix.ScanSession {
	session := strix.NewSession("example.com")

	t1 := strix.NewTask("subfinder", "Subdomain discovery", map[string]any{"target": "example.com"})
	t1.Status = strix.TaskCompleted
	t1.Progress = 100
	t2 := strix.NewTask("httpx", "HTTP probe", map[string]any{"target": "www.example.com"})
	t2.Status = strix.TaskFailed
	t2.Error = "binary not found"
	session.Tasks = []*strix.Task{t1, t2}

	a1 := strix.NewAsset("subdomain", "www.example.com", "subfinder")
	a1.Score = 10
	a2 := strix.NewAsset("subdomain", "admin.example.com", "subfinder")
	a2.Score = 60
	a3 := strix.NewAsset("ip", "93.184.216.34", "dnsx")
	a3.Metadata["hostname"] = "www.example.com"
	session.Assets = []*strix.Asset{a1, a2, a3}

	f := strix.NewFinding(strix.SeverityHigh, "Exposed Database Port: MySQL",
		"93.184.216.34", "MySQL port 3306 is reachable", "nmap")
	f.Recommendations = []string{"Restrict database access to trusted networks"}
	session.Findings = []*strix.Finding{f}

	return session
}

func TestInitIdempotent(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "init.db"))
	ctx := context.Background()
	if err := s.Init(ctx); err != nil {
		t.Fatalf("first Init: %v", err)
	}
	if err := s.Init(ctx); err != nil {
		t.Fatalf("second Init: %v", err)
	}
}

func TestSaveAndGetSession(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	session := testSession()
	if err := s.SaveSession(ctx, session); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	got, err := s.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.Target != "example.com" {
		t.Errorf("target: got %q", got.Target)
	}
	if !got.StartedAt.Equal(session.StartedAt) {
		t.Errorf("started_at: got %v, want %v", got.StartedAt, session.StartedAt)
	}
	if got.CompletedAt != nil {
		t.Errorf("completed_at: expected nil, got %v", got.CompletedAt)
	}

	if len(got.Tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(got.Tasks))
	}
	if got.Tasks[0].Name != "subfinder" || got.Tasks[1].Name != "httpx" {
		t.Error("tasks not in creation order")
	}
	if got.Tasks[1].Error != "binary not found" {
		t.Errorf("task error: got %q", got.Tasks[1].Error)
	}
	if got.Tasks[0].Metadata["target"] != "example.com" {
		t.Errorf("task metadata: got %v", got.Tasks[0].Metadata)
	}

	if len(got.Assets) != 3 {
		t.Fatalf("expected 3 assets, got %d", len(got.Assets))
	}
	if got.Assets[1].Value != "admin.example.com" || got.Assets[1].Score != 60 {
		t.Errorf("asset 1: got %+v", got.Assets[1])
	}
	if got.Assets[2].Metadata["hostname"] != "www.example.com" {
		t.Errorf("asset metadata: got %v", got.Assets[2].Metadata)
	}

	if len(got.Findings) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(got.Findings))
	}
	f := got.Findings[0]
	if f.Severity != strix.SeverityHigh {
		t.Errorf("severity: got %q", f.Severity)
	}
	if len(f.Recommendations) != 1 || f.Recommendations[0] != "Restrict database access to trusted networks" {
		t.Errorf("recommendations: got %v", f.Recommendations)
	}
}

func TestSaveSessionUpsert(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	session := testSession()
	if err := s.SaveSession(ctx, session); err != nil {
		t.Fatalf("first SaveSession: %v", err)
	}

	done := strix.Now()
	session.CompletedAt = &done
	session.Tasks[1].Status = strix.TaskCompleted
	session.Tasks[1].Error = ""
	session.Assets = append(session.Assets, strix.NewAsset("port", "93.184.216.34:443", "nmap"))
	if err := s.SaveSession(ctx, session); err != nil {
		t.Fatalf("second SaveSession: %v", err)
	}

	got, err := s.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.CompletedAt == nil || !got.CompletedAt.Equal(done) {
		t.Errorf("completed_at: got %v, want %v", got.CompletedAt, done)
	}
	if got.Tasks[1].Status != strix.TaskCompleted {
		t.Errorf("task status: got %q", got.Tasks[1].Status)
	}
	if len(got.Assets) != 4 {
		t.Fatalf("expected 4 assets after upsert, got %d", len(got.Assets))
	}
}

func TestGetSessionNotFound(t *testing.T) {
	s := testStore(t)

	_, err := s.GetSession(context.Background(), "no-such-id")
	var notFound *strix.ErrSessionNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if notFound.ID != "no-such-id" {
		t.Errorf("error ID: got %q", notFound.ID)
	}
}

func TestListSessions(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	first := strix.NewSession("first.com")
	second := strix.NewSession("second.com")
	second.StartedAt = first.StartedAt.Add(time.Millisecond)
	for _, sess := range []*strix.ScanSession{first, second} {
		if err := s.SaveSession(ctx, sess); err != nil {
			t.Fatalf("SaveSession: %v", err)
		}
	}

	got, err := s.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(got))
	}
	if got[0].Target != "second.com" || got[1].Target != "first.com" {
		t.Error("sessions not ordered most recent first")
	}
}

func TestDeleteSessionCascades(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	session := testSession()
	if err := s.SaveSession(ctx, session); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	if err := s.DeleteSession(ctx, session.ID); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}

	var notFound *strix.ErrSessionNotFound
	if _, err := s.GetSession(ctx, session.ID); !errors.As(err, &notFound) {
		t.Fatalf("expected ErrSessionNotFound after delete, got %v", err)
	}

	var n int
	for _, table := range []string{"tasks", "assets", "findings"} {
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
			t.Fatalf("count %s: %v", table, err)
		}
		if n != 0 {
			t.Errorf("%s: expected 0 rows after delete, got %d", table, n)
		}
	}
}
