package strix

import (
	"fmt"
	"strings"
)

// AssetRule adds a score modifier to assets matching its condition.
type AssetRule struct {
	Name      string
	Condition func(*Asset) bool
	Modifier  float64
	Reason    string
}

// FindingRule adds a score modifier to findings matching its condition.
type FindingRule struct {
	Name      string
	Condition func(*Finding) bool
	Modifier  float64
	Reason    string
}

// ScoringEngine scores assets and findings through two rule lists. Scoring
// is deterministic and idempotent: the same rules applied to the same input
// always yield the same score.
type ScoringEngine struct {
	assetRules   []AssetRule
	findingRules []FindingRule
}

const assetBaseScore = 10.0

// NewScoringEngine creates an engine with the default heuristics.
func NewScoringEngine() *ScoringEngine {
	valueContains := func(needles ...string) func(*Asset) bool {
		return func(a *Asset) bool {
			v := strings.ToLower(a.Value)
			for _, n := range needles {
				if strings.Contains(v, n) {
					return true
				}
			}
			return false
		}
	}

	e := &ScoringEngine{
		assetRules: []AssetRule{
			{Name: "admin_panel", Condition: valueContains("admin", "login", "portal", "dashboard"), Modifier: 50.0, Reason: "Admin panel detected"},
			{Name: "dev_environment", Condition: valueContains("dev", "staging", "test", "debug"), Modifier: 30.0, Reason: "Development environment"},
			{Name: "database_port", Condition: func(a *Asset) bool {
				if a.Type != "port" {
					return false
				}
				port := fmt.Sprint(a.Metadata["port"])
				for _, p := range []string{"3306", "5432", "27017", "6379", "1433"} {
					if strings.Contains(port, p) {
						return true
					}
				}
				return false
			}, Modifier: 40.0, Reason: "Database port exposed"},
			{Name: "sensitive_file", Condition: valueContains(".git", ".env", "config", "backup", ".sql", ".db"), Modifier: 35.0, Reason: "Sensitive file detected"},
			{Name: "api_endpoint", Condition: valueContains("/api/", "/v1/", "/v2/", "graphql"), Modifier: 25.0, Reason: "API endpoint"},
		},
	}

	severityScores := []struct {
		sev   Severity
		score float64
	}{
		{SeverityCritical, 100.0},
		{SeverityHigh, 75.0},
		{SeverityMedium, 50.0},
		{SeverityLow, 25.0},
		{SeverityInfo, 10.0},
	}
	for _, s := range severityScores {
		sev := s.sev
		e.findingRules = append(e.findingRules, FindingRule{
			Name:      "severity_" + string(sev),
			Condition: func(f *Finding) bool { return f.Severity == sev },
			Modifier:  s.score,
			Reason:    string(sev) + " severity",
		})
	}
	return e
}

// ScoreAsset returns the asset's priority score: base 10 plus the modifier
// of every matching rule, clamped to 100.
func (e *ScoringEngine) ScoreAsset(a *Asset) float64 {
	total := assetBaseScore
	for _, r := range e.assetRules {
		if r.Condition(a) {
			total += r.Modifier
		}
	}
	return clampScore(total)
}

// ScoreFinding returns the sum of all matching modifiers, clamped to 100.
func (e *ScoringEngine) ScoreFinding(f *Finding) float64 {
	total := 0.0
	for _, r := range e.findingRules {
		if r.Condition(f) {
			total += r.Modifier
		}
	}
	return clampScore(total)
}

// AddAssetRule appends a custom asset scoring rule.
func (e *ScoringEngine) AddAssetRule(r AssetRule) {
	e.assetRules = append(e.assetRules, r)
}

// AddFindingRule appends a custom finding scoring rule.
func (e *ScoringEngine) AddFindingRule(r FindingRule) {
	e.findingRules = append(e.findingRules, r)
}

func clampScore(s float64) float64 {
	if s > 100.0 {
		return 100.0
	}
	return s
}
