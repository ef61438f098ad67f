package strix

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// ScanMode controls task chaining. Auto chains follow-up tasks from the
// rules engine; interactive and passive do not (interactive is reserved for
// future approval hooks).
type ScanMode string

const (
	ModeAuto        ScanMode = "auto"
	ModeInteractive ScanMode = "interactive"
	ModePassive     ScanMode = "passive"
)

// ScanConfig configures a scan.
type ScanConfig struct {
	Target      string
	Mode        ScanMode
	Scope       []string
	Exclude     []string
	MaxParallel int // concurrency cap; < 1 defaults to 3
	PassiveOnly bool
	Stealth     bool
	Timeout     int // per-adapter timeout override, seconds
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithLogger sets a structured logger.
func WithLogger(l *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) { o.logger = l }
}

// WithRules replaces the default rules engine.
func WithRules(e *RulesEngine) OrchestratorOption {
	return func(o *Orchestrator) { o.rules = e }
}

// WithScoring replaces the default scoring engine.
func WithScoring(e *ScoringEngine) OrchestratorOption {
	return func(o *Orchestrator) { o.scoring = e }
}

// WithQuantum overrides the scheduler wait quantum (default 1s). Shorter
// quanta make tests fast; production keeps the default.
func WithQuantum(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if d > 0 {
			o.quantum = d
		}
	}
}

// Orchestrator is the scan control loop: it draws tasks from the plan,
// enforces the parallelism cap, drives adapters, ingests streamed results,
// deduplicates and scores assets, chains follow-up tasks, and publishes
// progress on the event bus.
//
// Dispatch runs per-task goroutines; all mutations of the session, plan, and
// dedup set are serialized through mu.
type Orchestrator struct {
	cfg      ScanConfig
	registry *ToolRegistry
	bus      *Bus
	rules    *RulesEngine
	scoring  *ScoringEngine
	logger   *slog.Logger
	quantum  time.Duration

	mu      sync.Mutex
	session *ScanSession
	plan    *Plan
	seen    map[string]struct{}

	paused   atomic.Bool
	stopped  atomic.Bool
	inflight atomic.Int64 // dispatched tasks not yet settled into a bucket
	wg       sync.WaitGroup
}

const source = "orchestrator"

// NewOrchestrator creates an orchestrator for one scan session.
func NewOrchestrator(cfg ScanConfig, registry *ToolRegistry, bus *Bus, opts ...OrchestratorOption) *Orchestrator {
	if cfg.MaxParallel < 1 {
		cfg.MaxParallel = 3
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeAuto
	}
	o := &Orchestrator{
		cfg:      cfg,
		registry: registry,
		bus:      bus,
		rules:    NewRulesEngine(),
		scoring:  NewScoringEngine(),
		logger:   slog.New(slog.DiscardHandler),
		quantum:  time.Second,
		session:  NewSession(cfg.Target),
		plan:     NewPlan(),
		seen:     map[string]struct{}{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Session returns the scan session. Callers must treat it as a snapshot;
// it is only stable after the scan completes.
func (o *Orchestrator) Session() *ScanSession { return o.session }

// Plan returns the task queue for inspection.
func (o *Orchestrator) Plan() *Plan { return o.plan }

// Pause suspends dispatching. In-flight tasks keep running.
func (o *Orchestrator) Pause() {
	if !o.paused.Swap(true) {
		o.bus.Publish(NewEvent(EventScanPaused, source, map[string]any{"session_id": o.session.ID}))
	}
}

// Resume reverses Pause.
func (o *Orchestrator) Resume() {
	if o.paused.Swap(false) {
		o.bus.Publish(NewEvent(EventScanResumed, source, map[string]any{"session_id": o.session.ID}))
	}
}

// Stop prevents further dispatches. Running tasks continue to completion.
func (o *Orchestrator) Stop() { o.stopped.Store(true) }

// Start runs the scan to completion and returns the finished session.
// Per-task failures never abort the scan; a panic escaping the control loop
// is published as an error-level log_message and the session is completed
// with its current state.
func (o *Orchestrator) Start(ctx context.Context) *ScanSession {
	o.bus.Publish(NewEvent(EventScanStarted, source, map[string]any{
		"target":     o.cfg.Target,
		"session_id": o.session.ID,
	}))

	initial := o.initialTask()
	o.mu.Lock()
	o.plan.AddTask(initial, false)
	o.session.Tasks = append(o.session.Tasks, initial)
	o.mu.Unlock()

	o.runLoop(ctx)
	o.wg.Wait()

	o.mu.Lock()
	now := Now()
	o.session.CompletedAt = &now
	assets, findings := len(o.session.Assets), len(o.session.Findings)
	o.mu.Unlock()

	o.bus.Publish(NewEvent(EventScanCompleted, source, map[string]any{
		"session_id": o.session.ID,
		"assets":     assets,
		"findings":   findings,
	}))
	return o.session
}

// initialTask derives the first task from the target shape: URLs go to
// httpx, IPv4 addresses to nmap, everything else is assumed a domain and
// goes to subfinder.
func (o *Orchestrator) initialTask() *Task {
	target := o.cfg.Target
	var name, description string
	switch {
	case isURL(target):
		name = "httpx"
		description = "Probe HTTP service: " + target
	case isIPv4(target):
		name = "nmap"
		description = "Port scan: " + target
	default:
		name = "subfinder"
		description = "Find subdomains for: " + target
	}
	return NewTask(name, description, map[string]any{"target": target})
}

func (o *Orchestrator) runLoop(ctx context.Context) {
	defer func() {
		if p := recover(); p != nil {
			o.logger.Error("orchestration loop panic", "panic", p)
			o.bus.Publish(NewEvent(EventLogMessage, source, map[string]any{
				"level":   "error",
				"message": fmt.Sprintf("orchestration error: %v", p),
			}))
		}
	}()

	for !o.stopped.Load() {
		if ctx.Err() != nil {
			return
		}
		if o.paused.Load() {
			o.wait(ctx)
			continue
		}

		o.mu.Lock()
		capped := o.plan.RunningCount() >= o.cfg.MaxParallel
		var task *Task
		if !capped {
			task = o.plan.NextTask()
		}
		o.mu.Unlock()

		if capped {
			o.wait(ctx)
			continue
		}
		if task == nil {
			// inflight covers the window between pop and bucket placement
			// so the loop cannot exit while a task is still settling.
			if o.inflight.Load() == 0 {
				return
			}
			o.wait(ctx)
			continue
		}

		o.inflight.Add(1)
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			defer o.inflight.Add(-1)
			o.executeTask(ctx, task)
		}()
	}
}

func (o *Orchestrator) wait(ctx context.Context) {
	select {
	case <-time.After(o.quantum):
	case <-ctx.Done():
	}
}

func (o *Orchestrator) executeTask(ctx context.Context, task *Task) {
	defer func() {
		if p := recover(); p != nil {
			o.logger.Error("task panic", "task", task.Name, "panic", p)
			o.failTask(task, fmt.Sprintf("panic: %v", p))
		}
	}()

	tool, ok := o.registry.Get(task.Name)
	if !ok {
		o.failTask(task, "tool not found: "+task.Name)
		return
	}
	if !IsAvailable(tool) {
		o.failTask(task, "tool not available: "+task.Name)
		return
	}

	o.mu.Lock()
	o.plan.MarkRunning(task)
	o.mu.Unlock()
	o.bus.Publish(NewEvent(EventTaskStarted, source, map[string]any{
		"task_id": task.ID,
		"tool":    task.Name,
	}))

	target := o.cfg.Target
	if t, ok := task.Metadata["target"].(string); ok && t != "" {
		target = t
	}
	opts := Options{
		Timeout:     o.cfg.Timeout,
		Stealth:     o.cfg.Stealth,
		PassiveOnly: o.cfg.PassiveOnly,
		Scope:       o.cfg.Scope,
		Exclude:     o.cfg.Exclude,
	}

	var last ToolResult
	ingested := false
	for result := range Execute(ctx, tool, target, opts) {
		last = result
		if !result.Success {
			continue
		}
		for _, asset := range result.Assets {
			o.ingestAsset(asset)
		}
		for _, finding := range result.Findings {
			o.ingestFinding(finding)
		}
		ingested = true

		progress := 50.0
		if p, ok := result.Metadata["progress"].(float64); ok {
			progress = p
		}
		if progress > task.Progress {
			task.Progress = progress
		}
		o.bus.Publish(NewEvent(EventTaskProgress, source, map[string]any{
			"task_id":  task.ID,
			"progress": task.Progress,
		}))
	}

	// A fatal runner failure (missing binary, timeout, spawn error) fails
	// the task even when partial results landed. A parser-level failure
	// only fails the task when nothing was ingested; otherwise the task
	// completed with partial data.
	if !last.Success && (last.Fatal || !ingested) {
		errMsg := last.Error
		if errMsg == "" {
			errMsg = "no results"
		}
		o.failTask(task, errMsg)
		return
	}

	o.mu.Lock()
	o.plan.MarkCompleted(task)
	o.mu.Unlock()
	data := map[string]any{
		"task_id": task.ID,
		"tool":    task.Name,
	}
	if task.StartedAt != nil && task.CompletedAt != nil {
		data["duration_ms"] = float64(task.CompletedAt.Sub(*task.StartedAt).Milliseconds())
	}
	o.bus.Publish(NewEvent(EventTaskCompleted, source, data))
}

func (o *Orchestrator) failTask(task *Task, errMsg string) {
	o.mu.Lock()
	o.plan.MarkFailed(task, errMsg)
	o.mu.Unlock()
	o.logger.Warn("task failed", "task", task.Name, "error", errMsg)
	o.bus.Publish(NewEvent(EventTaskFailed, source, map[string]any{
		"task_id": task.ID,
		"tool":    task.Name,
		"error":   errMsg,
	}))
}

// ingestAsset deduplicates, scores, and appends an asset, then chains
// follow-up tasks in auto mode. Duplicates are dropped silently: exactly one
// asset_discovered event is ever published per (type, value) pair.
func (o *Orchestrator) ingestAsset(asset *Asset) {
	o.mu.Lock()
	key := asset.Key()
	if _, dup := o.seen[key]; dup {
		o.mu.Unlock()
		return
	}
	o.seen[key] = struct{}{}
	asset.Score = o.scoring.ScoreAsset(asset)
	o.session.Assets = append(o.session.Assets, asset)

	var chained []*Task
	if o.cfg.Mode == ModeAuto {
		for _, next := range o.rules.NextTools(asset) {
			tool, ok := o.registry.Get(next.Tool)
			if !ok || !IsAvailable(tool) {
				continue
			}
			child := NewTask(next.Tool, next.Reason+": "+asset.Value, map[string]any{
				"target":   asset.Value,
				"asset_id": asset.ID,
			})
			o.plan.AddTask(child, next.Priority > 8)
			o.session.Tasks = append(o.session.Tasks, child)
			chained = append(chained, child)
		}
	}
	o.mu.Unlock()

	o.bus.Publish(NewEvent(EventAssetDiscovered, source, map[string]any{
		"asset_id": asset.ID,
		"type":     asset.Type,
		"value":    asset.Value,
		"score":    asset.Score,
	}))
	for _, child := range chained {
		o.logger.Debug("chained task", "tool", child.Name, "target", asset.Value)
	}
}

// ingestFinding appends a finding unconditionally; no dedup at ingestion.
func (o *Orchestrator) ingestFinding(finding *Finding) {
	o.mu.Lock()
	o.session.Findings = append(o.session.Findings, finding)
	o.mu.Unlock()

	o.bus.Publish(NewEvent(EventFindingDiscovered, source, map[string]any{
		"finding_id": finding.ID,
		"severity":   string(finding.Severity),
		"title":      finding.Title,
		"host":       finding.Host,
	}))
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func isIPv4(s string) bool {
	ip := net.ParseIP(s)
	return ip != nil && ip.To4() != nil && strings.Count(s, ".") == 3
}
