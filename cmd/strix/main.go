// Command strix runs reconnaissance scans from the terminal.
//
// Usage:
//
//	strix scan <target> [-mode auto|interactive|passive] [-stealth] [-parallel N]
//	strix sessions [-delete <id>]
//	strix report <session-id> [-format markdown|html|json] [-o file]
//	strix tools
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	strix "github.com/nevindra/strix"
	"github.com/nevindra/strix/adapters"
	"github.com/nevindra/strix/internal/config"
	"github.com/nevindra/strix/observer"
	"github.com/nevindra/strix/reports"
	"github.com/nevindra/strix/store/postgres"
	"github.com/nevindra/strix/store/sqlite"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	cfg := config.Load(os.Getenv("STRIX_CONFIG"))

	var err error
	switch os.Args[1] {
	case "scan":
		err = runScan(cfg, logger, os.Args[2:])
	case "sessions":
		err = runSessions(cfg, logger, os.Args[2:])
	case "report":
		err = runReport(cfg, logger, os.Args[2:])
	case "tools":
		err = runTools()
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: strix <scan|sessions|report|tools> [flags]")
}

// openStore selects the session store from config: postgres when a URL is
// configured, sqlite otherwise.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (strix.SessionStore, func(), error) {
	if cfg.Database.Driver == "postgres" {
		pool, err := pgxpool.New(ctx, cfg.Database.PostgresURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		store := postgres.New(pool)
		if err := store.Init(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store, pool.Close, nil
	}

	store := sqlite.New(cfg.Database.Path, sqlite.WithLogger(logger))
	if err := store.Init(ctx); err != nil {
		return nil, nil, err
	}
	return store, func() { store.Close() }, nil
}

func runScan(cfg config.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	mode := fs.String("mode", "auto", "scan mode: auto, interactive, or passive")
	stealth := fs.Bool("stealth", cfg.General.Stealth, "use slower, quieter tool profiles")
	passive := fs.Bool("passive", cfg.General.PassiveOnly, "passive data sources only")
	parallel := fs.Int("parallel", cfg.General.MaxParallel, "max concurrent tools")
	fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("scan: expected exactly one target")
	}
	target := fs.Arg(0)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	bus := strix.NewBus(strix.WithBusLogger(logger))
	bus.Subscribe(strix.EventAssetDiscovered, func(e strix.Event) {
		logger.Info("asset", "type", e.Data["type"], "value", e.Data["value"], "score", e.Data["score"])
	})
	bus.Subscribe(strix.EventFindingDiscovered, func(e strix.Event) {
		logger.Info("finding", "severity", e.Data["severity"], "title", e.Data["title"])
	})
	bus.Subscribe(strix.EventTaskFailed, func(e strix.Event) {
		logger.Warn("task failed", "tool", e.Data["tool"], "error", e.Data["error"])
	})

	if cfg.Observer.Enabled {
		inst, shutdown, err := observer.Init(ctx)
		if err != nil {
			return fmt.Errorf("observer init: %w", err)
		}
		defer shutdown(context.Background()) //nolint:errcheck
		detach := observer.Attach(bus, inst)
		defer detach()
	}

	orch := strix.NewOrchestrator(strix.ScanConfig{
		Target:      target,
		Mode:        strix.ScanMode(*mode),
		Scope:       cfg.Scope.Include,
		Exclude:     cfg.Scope.Exclude,
		MaxParallel: *parallel,
		PassiveOnly: *passive,
		Stealth:     *stealth,
		Timeout:     cfg.General.Timeout,
	}, adapters.DefaultRegistry(), bus, strix.WithLogger(logger))

	go func() {
		<-ctx.Done()
		logger.Info("interrupt received, stopping after in-flight tasks")
		orch.Stop()
	}()

	logger.Info("scan started", "target", target, "mode", *mode)
	session := orch.Start(ctx)

	if ctx.Err() != nil {
		// Interrupted scans are not persisted; the session stayed in memory.
		logger.Warn("scan interrupted, session not saved", "session_id", session.ID)
		return nil
	}

	if err := store.SaveSession(context.Background(), session); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	logger.Info("scan completed", "session_id", session.ID,
		"tasks", len(session.Tasks), "assets", len(session.Assets), "findings", len(session.Findings),
		"critical", session.CriticalCount(), "high", session.HighCount())

	if cfg.Reporting.AutoSave {
		return writeReport(session, reports.Format(cfg.Reporting.Format), cfg.Reporting.OutputDir, logger)
	}
	return nil
}

func runSessions(cfg config.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("sessions", flag.ExitOnError)
	del := fs.String("delete", "", "delete the session with this ID")
	fs.Parse(args)

	ctx := context.Background()
	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	if *del != "" {
		if err := store.DeleteSession(ctx, *del); err != nil {
			return err
		}
		fmt.Println("deleted", *del)
		return nil
	}

	sessions, err := store.ListSessions(ctx)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("no sessions")
		return nil
	}
	for _, s := range sessions {
		status := "running"
		if s.CompletedAt != nil {
			status = "completed"
		}
		fmt.Printf("%s  %-30s  %s  assets=%d findings=%d\n",
			s.ID, s.Target, status, len(s.Assets), len(s.Findings))
	}
	return nil
}

func runReport(cfg config.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	format := fs.String("format", cfg.Reporting.Format, "output format: markdown, html, or json")
	out := fs.String("o", "", "output file (default: stdout)")
	fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("report: expected exactly one session ID")
	}

	ctx := context.Background()
	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	session, err := store.GetSession(ctx, fs.Arg(0))
	if err != nil {
		return err
	}

	data, err := reports.Generate(session, reports.Format(*format))
	if err != nil {
		return err
	}
	if *out == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(*out, data, 0o644)
}

func runTools() error {
	registry := adapters.DefaultRegistry()
	for _, a := range registry.All() {
		cfg := a.Config()
		status := "missing"
		if strix.IsAvailable(a) {
			status = "ok"
		}
		fmt.Printf("%-12s %-13s %-7s %s\n", cfg.Name, cfg.Category, status, cfg.Description)
	}
	return nil
}

func writeReport(session *strix.ScanSession, format reports.Format, dir string, logger *slog.Logger) error {
	data, err := reports.Generate(session, format)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	ext := map[reports.Format]string{
		reports.FormatMarkdown: "md",
		reports.FormatHTML:     "html",
		reports.FormatJSON:     "json",
	}[format]
	path := filepath.Join(dir, session.ID+"."+ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	logger.Info("report written", "path", path)
	return nil
}
