package strix

import "time"

// --- Domain types (database records) ---

// TaskStatus is the lifecycle state of a Task.
// Valid transitions: pending → running → {completed | failed};
// pending → skipped. No other transitions.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
	TaskSkipped   TaskStatus = "skipped"
)

// Terminal reports whether the status is a terminal state.
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed || s == TaskSkipped
}

// Severity classifies a Finding.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// Task is a unit of work naming a tool and a target. Metadata carries at
// minimum "target" and, for chained tasks, the "asset_id" of the parent.
type Task struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Status      TaskStatus     `json:"status"`
	Progress    float64        `json:"progress"`
	CreatedAt   time.Time      `json:"created_at"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Error       string         `json:"error,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// NewTask creates a pending Task with a fresh ID.
func NewTask(name, description string, metadata map[string]any) *Task {
	if metadata == nil {
		metadata = map[string]any{}
	}
	return &Task{
		ID:          NewID(),
		Name:        name,
		Description: description,
		Status:      TaskPending,
		CreatedAt:   Now(),
		Metadata:    metadata,
	}
}

// Asset is a discovered observable. Type is an open string set; canonical
// values include "domain", "subdomain", "ip", "port", "http_service",
// "dns_record", "nameserver", "technology", "waf", and "whois_info".
type Asset struct {
	ID           string         `json:"id"`
	Type         string         `json:"type"`
	Value        string         `json:"value"`
	DiscoveredBy string         `json:"discovered_by"`
	Timestamp    time.Time      `json:"timestamp"`
	Score        float64        `json:"score"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// NewAsset creates an Asset with a fresh ID and the current timestamp.
func NewAsset(assetType, value, discoveredBy string) *Asset {
	return &Asset{
		ID:           NewID(),
		Type:         assetType,
		Value:        value,
		DiscoveredBy: discoveredBy,
		Timestamp:    Now(),
		Metadata:     map[string]any{},
	}
}

// Key returns the (type, value) dedup key for the asset.
func (a *Asset) Key() string {
	return a.Type + ":" + a.Value
}

// Finding is a security-relevant observation with a severity.
type Finding struct {
	ID              string         `json:"id"`
	Severity        Severity       `json:"severity"`
	Title           string         `json:"title"`
	Host            string         `json:"host"`
	Description     string         `json:"description"`
	DiscoveredBy    string         `json:"discovered_by"`
	Timestamp       time.Time      `json:"timestamp"`
	Evidence        string         `json:"evidence,omitempty"`
	Recommendations []string       `json:"recommendations,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// NewFinding creates a Finding with a fresh ID and the current timestamp.
func NewFinding(severity Severity, title, host, description, discoveredBy string) *Finding {
	return &Finding{
		ID:           NewID(),
		Severity:     severity,
		Title:        title,
		Host:         host,
		Description:  description,
		DiscoveredBy: discoveredBy,
		Timestamp:    Now(),
		Metadata:     map[string]any{},
	}
}

// ScanSession is the root aggregate: a complete scan from target input to
// terminal state, with all tasks, assets, and findings in creation order.
type ScanSession struct {
	ID          string         `json:"id"`
	Target      string         `json:"target"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Tasks       []*Task        `json:"tasks"`
	Assets      []*Asset       `json:"assets"`
	Findings    []*Finding     `json:"findings"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// NewSession creates a ScanSession for the given target.
func NewSession(target string) *ScanSession {
	return &ScanSession{
		ID:        NewID(),
		Target:    target,
		StartedAt: Now(),
		Metadata:  map[string]any{},
	}
}

// CriticalCount returns the number of critical findings.
func (s *ScanSession) CriticalCount() int {
	return s.countSeverity(SeverityCritical)
}

// HighCount returns the number of high-severity findings.
func (s *ScanSession) HighCount() int {
	return s.countSeverity(SeverityHigh)
}

func (s *ScanSession) countSeverity(sev Severity) int {
	n := 0
	for _, f := range s.Findings {
		if f.Severity == sev {
			n++
		}
	}
	return n
}
