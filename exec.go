package strix

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// maxLineBytes caps a single stdout line fed to the scanner. Tools like
// wpscan emit whole-document JSON on one line, so the cap is generous.
const maxLineBytes = 16 * 1024 * 1024

// Execute runs the adapter's tool against target and streams parsed results.
// The returned channel yields zero or more partial results followed by one
// final result, then closes. The sequence is finite and not restartable.
//
// Contract:
//   - If the binary is not on PATH, exactly one fatal failure result is
//     yielded.
//   - Stdout is read line by line; after each line the accumulated output is
//     fed to ParsePartial, and successful partials carrying at least one
//     asset or finding are yielded. Partials are not deduplicated here; that
//     is the orchestrator's job.
//   - A read gap longer than the configured timeout kills the process and
//     yields one fatal timeout result.
//   - On clean stdout close the process exit is awaited and ParseOutput of
//     the full stdout is yielded. A non-zero exit combined with a failed
//     final parse surfaces the captured stderr as the error.
//   - Cancelling ctx kills the process, awaits its exit, and yields nothing
//     further. The child process is released on every exit path.
func Execute(ctx context.Context, a Adapter, target string, opts Options) <-chan ToolResult {
	ch := make(chan ToolResult, 8)
	go func() {
		defer close(ch)
		run(ctx, a, target, opts, ch)
	}()
	return ch
}

func run(ctx context.Context, a Adapter, target string, opts Options, ch chan<- ToolResult) {
	cfg := a.Config()

	if !IsAvailable(a) {
		emit(ctx, ch, ToolResult{
			ToolName: cfg.Name,
			Error:    fmt.Sprintf("binary %q not found", cfg.Binary),
			Fatal:    true,
		})
		return
	}

	timeout := cfg.Timeout
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}
	if timeout <= 0 {
		timeout = 300
	}
	gap := time.Duration(timeout) * time.Second

	argv := a.BuildCommand(target, opts)
	cmd := exec.Command(argv[0], argv[1:]...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		emit(ctx, ch, ToolResult{ToolName: cfg.Name, Error: "stdout pipe: " + err.Error(), Fatal: true})
		return
	}
	if err := cmd.Start(); err != nil {
		emit(ctx, ch, ToolResult{ToolName: cfg.Name, Error: "start: " + err.Error(), Fatal: true})
		return
	}

	// The reader goroutine owns stdout; it closes lines at EOF or on read
	// error (including the error caused by killing the process).
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(stdout)
		sc.Buffer(make([]byte, 64*1024), maxLineBytes)
		for sc.Scan() {
			lines <- sc.Text() + "\n"
		}
	}()

	kill := func() {
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		for range lines {
			// Drain so the reader goroutine can exit.
		}
		_ = cmd.Wait()
	}

	var out strings.Builder
readLoop:
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				break readLoop
			}
			out.WriteString(line)
			partial := a.ParsePartial(out.String())
			if partial.Success && (len(partial.Assets) > 0 || len(partial.Findings) > 0) {
				if !emit(ctx, ch, partial) {
					kill()
					return
				}
			}
		case <-time.After(gap):
			kill()
			emit(ctx, ch, ToolResult{
				ToolName: cfg.Name,
				Error:    (&ErrToolTimeout{Tool: cfg.Name, Seconds: timeout}).Error(),
				Fatal:    true,
			})
			return
		case <-ctx.Done():
			kill()
			return
		}
	}

	werr := cmd.Wait()

	final := a.ParseOutput(out.String())
	if final.ToolName == "" {
		final.ToolName = cfg.Name
	}
	if werr != nil && !final.Success {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = werr.Error()
		}
		final.Error = msg
	}
	emit(ctx, ch, final)
}

// emit sends a result unless the context is done. Returns false when the
// consumer is gone.
func emit(ctx context.Context, ch chan<- ToolResult, r ToolResult) bool {
	select {
	case ch <- r:
		return true
	case <-ctx.Done():
		return false
	}
}
