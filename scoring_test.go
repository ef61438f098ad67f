package strix

import "testing"

func TestScoreAssetBase(t *testing.T) {
	e := NewScoringEngine()
	if got := e.ScoreAsset(NewAsset("subdomain", "www.example.com", "subfinder")); got != 10.0 {
		t.Errorf("base score: got %v, want 10", got)
	}
}

func TestScoreAssetModifiers(t *testing.T) {
	e := NewScoringEngine()

	tests := []struct {
		value string
		want  float64
	}{
		{"admin.example.com", 60.0},   // base + admin
		{"staging.example.com", 40.0}, // base + dev
		{"api.example.com/v1/users", 35.0},
		{"backup.example.com", 45.0}, // sensitive_file ("backup")
	}
	for _, tt := range tests {
		a := NewAsset("subdomain", tt.value, "subfinder")
		if got := e.ScoreAsset(a); got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestScoreAssetClamped(t *testing.T) {
	e := NewScoringEngine()
	// admin + dev + sensitive + api stack past 100.
	a := NewAsset("http_service", "https://admin-dev.example.com/.git/config/api/v1/", "httpx")
	if got := e.ScoreAsset(a); got != 100.0 {
		t.Errorf("expected clamp at 100, got %v", got)
	}
}

func TestScoreAssetDatabasePort(t *testing.T) {
	e := NewScoringEngine()

	a := NewAsset("port", "1.2.3.4:5432", "nmap")
	a.Metadata["port"] = "5432"
	if got := e.ScoreAsset(a); got != 50.0 {
		t.Errorf("database port: got %v, want 50", got)
	}

	web := NewAsset("port", "1.2.3.4:443", "nmap")
	web.Metadata["port"] = "443"
	if got := e.ScoreAsset(web); got != 10.0 {
		t.Errorf("web port: got %v, want 10", got)
	}
}

func TestScoreFindingSeverities(t *testing.T) {
	e := NewScoringEngine()
	tests := []struct {
		sev  Severity
		want float64
	}{
		{SeverityCritical, 100.0},
		{SeverityHigh, 75.0},
		{SeverityMedium, 50.0},
		{SeverityLow, 25.0},
		{SeverityInfo, 10.0},
	}
	for _, tt := range tests {
		f := NewFinding(tt.sev, "t", "h", "d", "nuclei")
		if got := e.ScoreFinding(f); got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.sev, got, tt.want)
		}
	}
}

func TestAddAssetRule(t *testing.T) {
	e := NewScoringEngine()
	e.AddAssetRule(AssetRule{
		Name:      "internal",
		Condition: func(a *Asset) bool { return a.Type == "ip" },
		Modifier:  15.0,
	})
	if got := e.ScoreAsset(NewAsset("ip", "10.0.0.1", "dnsx")); got != 25.0 {
		t.Errorf("custom rule: got %v, want 25", got)
	}
}

func TestScoringIdempotent(t *testing.T) {
	e := NewScoringEngine()
	a := NewAsset("subdomain", "admin.example.com", "subfinder")
	first := e.ScoreAsset(a)
	a.Score = first
	if second := e.ScoreAsset(a); second != first {
		t.Errorf("rescoring changed the result: %v then %v", first, second)
	}
}
