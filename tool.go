package strix

import (
	"os/exec"
	"sync"
)

// ToolCategory groups adapters by the kind of reconnaissance they perform.
type ToolCategory string

const (
	CategoryDNS           ToolCategory = "dns"
	CategorySubdomain     ToolCategory = "subdomain"
	CategoryPortScan      ToolCategory = "port_scan"
	CategoryWebProbe      ToolCategory = "web_probe"
	CategoryVulnerability ToolCategory = "vulnerability"
	CategoryOSINT         ToolCategory = "osint"
	CategoryTechnology    ToolCategory = "technology"
	CategoryFuzzing       ToolCategory = "fuzzing"
)

// ToolConfig is the immutable descriptor for a tool adapter.
type ToolConfig struct {
	Name         string
	Binary       string
	Category     ToolCategory
	Description  string
	Timeout      int // seconds between successive stdout reads; 0 = 300
	RequiresRoot bool
	Produces     []string // asset types the tool emits
	Consumes     []string // asset types the tool accepts as input
}

// ToolResult is one parsed result from a tool execution, partial or final.
type ToolResult struct {
	ToolName  string         `json:"tool_name"`
	Success   bool           `json:"success"`
	Assets    []*Asset       `json:"assets,omitempty"`
	Findings  []*Finding     `json:"findings,omitempty"`
	RawOutput string         `json:"raw_output,omitempty"`
	Error     string         `json:"error,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	// Fatal marks runner-level failures (missing binary, spawn error, read
	// timeout) that must fail the task even when partial results were
	// already ingested. Parser-level failures leave it false.
	Fatal bool `json:"-"`
}

// Options carries per-execution settings from the scan configuration down to
// adapters. Scope and Exclude are declared but not enforced by the core.
type Options struct {
	Timeout     int // overrides ToolConfig.Timeout when > 0
	Stealth     bool
	PassiveOnly bool
	Scope       []string
	Exclude     []string
	ExtraArgs   []string
}

// Adapter wraps one external program behind a pure parsing contract.
// Execution itself is handled by Execute, which streams results from the
// running process through these methods.
type Adapter interface {
	// Config returns the immutable tool descriptor.
	Config() ToolConfig
	// BuildCommand returns the argv to run. Deterministic; a pure function
	// of its inputs.
	BuildCommand(target string, opts Options) []string
	// ParseOutput parses the full completed stdout.
	ParseOutput(output string) ToolResult
	// ParsePartial parses a growing prefix of stdout, best effort. Adapters
	// whose tool emits newline-delimited records override this; the default
	// returns an empty non-success marker.
	ParsePartial(output string) ToolResult
}

// IsAvailable reports whether the adapter's binary resolves on PATH.
func IsAvailable(a Adapter) bool {
	_, err := exec.LookPath(a.Config().Binary)
	return err == nil
}

// ToolRegistry is a name-indexed adapter collection. Registration is
// additive; registering a duplicate name replaces the earlier adapter.
type ToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]Adapter
	order []string
}

// NewToolRegistry creates an empty registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: map[string]Adapter{}}
}

// Register adds an adapter, replacing any previous adapter of the same name.
func (r *ToolRegistry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := a.Config().Name
	if _, exists := r.tools[name]; !exists {
		r.order = append(r.order, name)
	}
	r.tools[name] = a
}

// Get returns the adapter registered under name.
func (r *ToolRegistry) Get(name string) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.tools[name]
	return a, ok
}

// ByCategory returns all adapters in a category, in registration order.
func (r *ToolRegistry) ByCategory(c ToolCategory) []Adapter {
	return r.filter(func(a Adapter) bool { return a.Config().Category == c })
}

// Available returns all adapters whose binary resolves on PATH.
func (r *ToolRegistry) Available() []Adapter {
	return r.filter(IsAvailable)
}

// ForAssetType returns adapters that consume the given asset type.
func (r *ToolRegistry) ForAssetType(assetType string) []Adapter {
	return r.filter(func(a Adapter) bool {
		return contains(a.Config().Consumes, assetType)
	})
}

// Producers returns adapters that produce the given asset type.
func (r *ToolRegistry) Producers(assetType string) []Adapter {
	return r.filter(func(a Adapter) bool {
		return contains(a.Config().Produces, assetType)
	})
}

// All returns every registered adapter, in registration order.
func (r *ToolRegistry) All() []Adapter {
	return r.filter(func(Adapter) bool { return true })
}

func (r *ToolRegistry) filter(keep func(Adapter) bool) []Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Adapter
	for _, name := range r.order {
		if a := r.tools[name]; keep(a) {
			out = append(out, a)
		}
	}
	return out
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
