package strix

import (
	"context"
	"sync"
	"testing"
	"time"
)

func testOrchestrator(t *testing.T, cfg ScanConfig, reg *ToolRegistry) (*Orchestrator, *Bus) {
	t.Helper()
	bus := NewBus()
	return NewOrchestrator(cfg, reg, bus, WithQuantum(10*time.Millisecond)), bus
}

func TestScanDomainFanOut(t *testing.T) {
	reg := NewToolRegistry()

	sub := shTool("subfinder", `printf 'www.example.com\n'`)
	sub.parse = parseLinesAs("subfinder", "subdomain")
	reg.Register(sub)

	dns := shTool("dnsx", `printf '1.2.3.4\n'`)
	dns.parse = parseLinesAs("dnsx", "ip")
	reg.Register(dns)

	reg.Register(shTool("httpx", "true"))
	reg.Register(shTool("nmap", "true"))

	orch, bus := testOrchestrator(t, ScanConfig{Target: "example.com", MaxParallel: 3}, reg)
	session := orch.Start(context.Background())

	if session.CompletedAt == nil {
		t.Fatal("session not completed")
	}
	if session.Tasks[0].Name != "subfinder" {
		t.Errorf("initial task: got %q, want subfinder", session.Tasks[0].Name)
	}

	// subfinder -> subdomain -> {dnsx, httpx}; dnsx -> ip -> nmap.
	if len(session.Tasks) != 4 {
		t.Fatalf("expected 4 tasks, got %d: %v", len(session.Tasks), taskNames(session))
	}
	for _, task := range session.Tasks {
		if task.Status != TaskCompleted {
			t.Errorf("task %s: status %s", task.Name, task.Status)
		}
	}
	if len(session.Assets) != 2 {
		t.Errorf("expected 2 assets, got %d", len(session.Assets))
	}

	if got := bus.History(EventScanStarted, 0); len(got) != 1 {
		t.Errorf("scan_started events: got %d", len(got))
	}
	done := bus.History(EventScanCompleted, 0)
	if len(done) != 1 {
		t.Fatalf("scan_completed events: got %d", len(done))
	}
	if done[0].Data["assets"] != 2 {
		t.Errorf("scan_completed assets: got %v", done[0].Data["assets"])
	}
}

func TestScanIPTargetStartsWithNmap(t *testing.T) {
	reg := NewToolRegistry()
	reg.Register(shTool("nmap", "true"))

	orch, _ := testOrchestrator(t, ScanConfig{Target: "192.0.2.7"}, reg)
	session := orch.Start(context.Background())

	if session.Tasks[0].Name != "nmap" {
		t.Errorf("initial task for IP: got %q, want nmap", session.Tasks[0].Name)
	}
}

func TestScanURLTargetStartsWithHTTPX(t *testing.T) {
	reg := NewToolRegistry()
	reg.Register(shTool("httpx", "true"))

	orch, _ := testOrchestrator(t, ScanConfig{Target: "https://example.com/login"}, reg)
	session := orch.Start(context.Background())

	if session.Tasks[0].Name != "httpx" {
		t.Errorf("initial task for URL: got %q, want httpx", session.Tasks[0].Name)
	}
}

func TestScanDeduplicatesAssets(t *testing.T) {
	reg := NewToolRegistry()
	sub := shTool("subfinder", `for i in 1 2 3 4 5 6 7 8 9 10; do printf 'dup.example.com\n'; done`)
	parse := parseLinesAs("subfinder", "subdomain")
	sub.parse = parse
	sub.partial = parse
	reg.Register(sub)

	orch, bus := testOrchestrator(t, ScanConfig{Target: "example.com"}, reg)

	var mu sync.Mutex
	discovered := 0
	bus.Subscribe(EventAssetDiscovered, func(Event) {
		mu.Lock()
		discovered++
		mu.Unlock()
	})

	session := orch.Start(context.Background())

	if len(session.Assets) != 1 {
		t.Errorf("expected 1 deduplicated asset, got %d", len(session.Assets))
	}
	mu.Lock()
	defer mu.Unlock()
	if discovered != 1 {
		t.Errorf("expected exactly 1 asset_discovered event, got %d", discovered)
	}
}

func TestScanPassiveModeDoesNotChain(t *testing.T) {
	reg := NewToolRegistry()
	sub := shTool("subfinder", `printf 'www.example.com\n'`)
	sub.parse = parseLinesAs("subfinder", "subdomain")
	reg.Register(sub)
	reg.Register(shTool("dnsx", "true"))
	reg.Register(shTool("httpx", "true"))

	orch, _ := testOrchestrator(t, ScanConfig{Target: "example.com", Mode: ModePassive}, reg)
	session := orch.Start(context.Background())

	if len(session.Tasks) != 1 {
		t.Errorf("passive mode chained tasks: %v", taskNames(session))
	}
	if len(session.Assets) != 1 {
		t.Errorf("expected the discovered asset to be kept, got %d", len(session.Assets))
	}
}

func TestScanSurvivesMissingTool(t *testing.T) {
	reg := NewToolRegistry()
	reg.Register(&stubAdapter{
		cfg:  ToolConfig{Name: "subfinder", Binary: "strix-test-no-such-binary"},
		argv: []string{"strix-test-no-such-binary"},
	})

	orch, bus := testOrchestrator(t, ScanConfig{Target: "example.com"}, reg)
	session := orch.Start(context.Background())

	if session.CompletedAt == nil {
		t.Fatal("scan did not complete")
	}
	if session.Tasks[0].Status != TaskFailed {
		t.Errorf("task status: got %s, want failed", session.Tasks[0].Status)
	}
	if got := bus.History(EventTaskFailed, 0); len(got) != 1 {
		t.Errorf("task_failed events: got %d", len(got))
	}
	if got := bus.History(EventScanCompleted, 0); len(got) != 1 {
		t.Errorf("scan_completed events: got %d", len(got))
	}
}

func TestScanStopLeavesQueuedTasksPending(t *testing.T) {
	reg := NewToolRegistry()
	sub := shTool("subfinder", `printf 'www.example.com\n'; sleep 0.3`)
	parse := parseLinesAs("subfinder", "subdomain")
	sub.parse = parse
	sub.partial = parse
	reg.Register(sub)
	reg.Register(shTool("dnsx", "true"))
	reg.Register(shTool("httpx", "true"))

	orch, bus := testOrchestrator(t, ScanConfig{Target: "example.com", MaxParallel: 1}, reg)
	// Stop as soon as the first asset lands, before chained tasks dispatch.
	bus.Subscribe(EventAssetDiscovered, func(Event) { orch.Stop() })

	session := orch.Start(context.Background())

	if session.CompletedAt == nil {
		t.Fatal("scan did not complete after stop")
	}
	if orch.Plan().PendingCount() != 2 {
		t.Errorf("expected 2 chained tasks left pending, got %d", orch.Plan().PendingCount())
	}
}

func TestPauseResumeEvents(t *testing.T) {
	reg := NewToolRegistry()
	orch, bus := testOrchestrator(t, ScanConfig{Target: "example.com"}, reg)

	orch.Pause()
	orch.Pause() // idempotent, must not publish twice
	orch.Resume()
	orch.Resume()

	if got := bus.History(EventScanPaused, 0); len(got) != 1 {
		t.Errorf("scan_paused events: got %d", len(got))
	}
	if got := bus.History(EventScanResumed, 0); len(got) != 1 {
		t.Errorf("scan_resumed events: got %d", len(got))
	}
}

func TestScanCancelledContext(t *testing.T) {
	reg := NewToolRegistry()
	reg.Register(shTool("subfinder", "sleep 30"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	orch, _ := testOrchestrator(t, ScanConfig{Target: "example.com"}, reg)
	start := time.Now()
	session := orch.Start(ctx)
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("cancelled scan took %v", elapsed)
	}
	if session.CompletedAt == nil {
		t.Error("session end not stamped")
	}
	if session.Tasks[0].Status != TaskPending {
		t.Errorf("undispatched task status: got %s", session.Tasks[0].Status)
	}
}

func taskNames(s *ScanSession) []string {
	names := make([]string, len(s.Tasks))
	for i, task := range s.Tasks {
		names[i] = task.Name
	}
	return names
}
