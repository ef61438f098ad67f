package reports

import (
	"encoding/json"
	"strings"
	"testing"

	strix "github.com/nevindra/strix"
)

func reportSession() *strix.ScanSession {
	session := strix.NewSession("example.com")

	a := strix.NewAsset("subdomain", "admin.example.com", "subfinder")
	a.Score = 60
	session.Assets = []*strix.Asset{a}

	crit := strix.NewFinding(strix.SeverityCritical, "SQL Injection", "admin.example.com",
		"Parameter id is injectable", "nuclei")
	crit.Evidence = `{"template-id":"sqli"}`
	crit.Recommendations = []string{"Use parameterized queries"}
	info := strix.NewFinding(strix.SeverityInfo, "WAF Detected: Cloudflare", "",
		"Target is protected by a web application firewall", "wafw00f")
	session.Findings = []*strix.Finding{info, crit}

	return session
}

func TestMarkdownGroupsBySeverity(t *testing.T) {
	md := Markdown(reportSession())

	if !strings.Contains(md, "# Reconnaissance Report: example.com") {
		t.Error("missing title")
	}
	if !strings.Contains(md, "### Critical (1)") {
		t.Error("missing critical section")
	}
	if !strings.Contains(md, "### Info (1)") {
		t.Error("missing info section")
	}
	// Critical renders before Info regardless of discovery order.
	if strings.Index(md, "### Critical") > strings.Index(md, "### Info") {
		t.Error("severity sections out of order")
	}
	if !strings.Contains(md, "| subdomain | admin.example.com | 60 | subfinder |") {
		t.Error("missing asset table row")
	}
	if !strings.Contains(md, "- Use parameterized queries") {
		t.Error("missing recommendation")
	}
}

func TestMarkdownEmptySession(t *testing.T) {
	md := Markdown(strix.NewSession("empty.com"))
	if !strings.Contains(md, "No findings.") || !strings.Contains(md, "No assets discovered.") {
		t.Error("expected empty-section placeholders")
	}
}

func TestHTML(t *testing.T) {
	out, err := HTML(reportSession())
	if err != nil {
		t.Fatalf("HTML: %v", err)
	}
	html := string(out)
	if !strings.Contains(html, "<!DOCTYPE html>") {
		t.Error("missing doctype")
	}
	if !strings.Contains(html, "<h1") || !strings.Contains(html, "Reconnaissance Report: example.com") {
		t.Error("markdown not rendered into html")
	}
}

func TestGenerateJSON(t *testing.T) {
	session := reportSession()
	out, err := Generate(session, FormatJSON)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	var decoded strix.ScanSession
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if decoded.Target != "example.com" || len(decoded.Findings) != 2 {
		t.Errorf("round trip: got %+v", decoded)
	}
}

func TestGenerateUnknownFormat(t *testing.T) {
	if _, err := Generate(reportSession(), Format("pdf")); err == nil {
		t.Fatal("expected error for unknown format")
	}
}
