package strix

import (
	"context"
	"strings"
	"testing"
	"time"
)

// stubAdapter runs an arbitrary shell command behind the Adapter contract.
type stubAdapter struct {
	cfg     ToolConfig
	argv    []string
	parse   func(string) ToolResult
	partial func(string) ToolResult
}

func (s *stubAdapter) Config() ToolConfig { return s.cfg }

func (s *stubAdapter) BuildCommand(string, Options) []string { return s.argv }

func (s *stubAdapter) ParseOutput(out string) ToolResult {
	if s.parse != nil {
		return s.parse(out)
	}
	return ToolResult{ToolName: s.cfg.Name, Success: true, RawOutput: out}
}

func (s *stubAdapter) ParsePartial(out string) ToolResult {
	if s.partial != nil {
		return s.partial(out)
	}
	return ToolResult{ToolName: s.cfg.Name}
}

// parseLinesAs builds a parser that turns each non-empty stdout line into
// one asset of the given type.
func parseLinesAs(tool, assetType string) func(string) ToolResult {
	return func(out string) ToolResult {
		var assets []*Asset
		for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
			if line != "" {
				assets = append(assets, NewAsset(assetType, line, tool))
			}
		}
		return ToolResult{ToolName: tool, Success: true, Assets: assets, RawOutput: out}
	}
}

func shTool(name, script string) *stubAdapter {
	return &stubAdapter{
		cfg:  ToolConfig{Name: name, Binary: "sh"},
		argv: []string{"sh", "-c", script},
	}
}

func collect(ch <-chan ToolResult) []ToolResult {
	var out []ToolResult
	for r := range ch {
		out = append(out, r)
	}
	return out
}

func TestExecuteMissingBinary(t *testing.T) {
	tool := &stubAdapter{
		cfg:  ToolConfig{Name: "ghost", Binary: "strix-test-no-such-binary"},
		argv: []string{"strix-test-no-such-binary"},
	}

	results := collect(Execute(context.Background(), tool, "example.com", Options{}))
	if len(results) != 1 {
		t.Fatalf("expected exactly 1 result, got %d", len(results))
	}
	r := results[0]
	if r.Success || !r.Fatal {
		t.Errorf("expected fatal failure, got %+v", r)
	}
	if !strings.Contains(r.Error, "not found") {
		t.Errorf("error: got %q", r.Error)
	}
}

func TestExecuteStreamsPartialsThenFinal(t *testing.T) {
	tool := shTool("lister", `printf 'a.example.com\nb.example.com\n'`)
	parse := parseLinesAs("lister", "subdomain")
	tool.parse = parse
	tool.partial = parse

	results := collect(Execute(context.Background(), tool, "example.com", Options{}))
	if len(results) < 2 {
		t.Fatalf("expected partials plus final, got %d results", len(results))
	}

	final := results[len(results)-1]
	if !final.Success {
		t.Fatalf("final result not successful: %+v", final)
	}
	if len(final.Assets) != 2 {
		t.Errorf("final assets: got %d, want 2", len(final.Assets))
	}
	// Partials see a growing prefix, so the first carries fewer assets than
	// the final.
	if len(results[0].Assets) >= len(final.Assets)+1 {
		t.Errorf("first partial larger than final: %d assets", len(results[0].Assets))
	}
}

func TestExecuteReadGapTimeout(t *testing.T) {
	tool := shTool("sleeper", "sleep 30")
	tool.cfg.Timeout = 1

	start := time.Now()
	results := collect(Execute(context.Background(), tool, "example.com", Options{}))
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("timeout not enforced, took %v", elapsed)
	}

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	r := results[0]
	if r.Success || !r.Fatal {
		t.Errorf("expected fatal timeout, got %+v", r)
	}
	if !strings.Contains(r.Error, "timeout after 1s") {
		t.Errorf("error: got %q", r.Error)
	}
}

func TestExecuteOptsTimeoutOverridesConfig(t *testing.T) {
	tool := shTool("sleeper", "sleep 30")
	tool.cfg.Timeout = 600

	start := time.Now()
	results := collect(Execute(context.Background(), tool, "example.com", Options{Timeout: 1}))
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("override not applied, took %v", elapsed)
	}
	if len(results) != 1 || !results[0].Fatal {
		t.Fatalf("expected fatal timeout, got %v", results)
	}
}

func TestExecuteNonZeroExitSurfacesStderr(t *testing.T) {
	tool := shTool("failer", `echo 'connection refused' >&2; exit 3`)
	tool.parse = func(out string) ToolResult {
		return ToolResult{ToolName: "failer"}
	}

	results := collect(Execute(context.Background(), tool, "example.com", Options{}))
	final := results[len(results)-1]
	if final.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(final.Error, "connection refused") {
		t.Errorf("expected stderr in error, got %q", final.Error)
	}
	if final.Fatal {
		t.Error("parser-level failure must not be fatal")
	}
}

func TestExecuteNonZeroExitWithSuccessfulParse(t *testing.T) {
	// Some tools exit non-zero after printing usable output.
	tool := shTool("flaky", `printf 'c.example.com\n'; exit 1`)
	tool.parse = parseLinesAs("flaky", "subdomain")

	results := collect(Execute(context.Background(), tool, "example.com", Options{}))
	final := results[len(results)-1]
	if !final.Success || len(final.Assets) != 1 {
		t.Errorf("expected successful parse to win over exit code, got %+v", final)
	}
}

func TestExecuteCancellation(t *testing.T) {
	tool := shTool("sleeper", "sleep 30")
	tool.cfg.Timeout = 600

	ctx, cancel := context.WithCancel(context.Background())
	ch := Execute(ctx, tool, "example.com", Options{})
	time.Sleep(100 * time.Millisecond)
	cancel()

	start := time.Now()
	results := collect(ch)
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("cancellation did not kill the process, took %v", elapsed)
	}
	if len(results) != 0 {
		t.Errorf("expected no results after cancellation, got %v", results)
	}
}
