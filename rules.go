package strix

import "sort"

// ChainRule maps an asset shape to a follow-up tool invocation.
type ChainRule struct {
	Name       string
	Condition  func(*Asset) bool
	TargetTool string
	Reason     string
	Priority   int
}

// NextTool is one chained invocation returned by the rules engine.
type NextTool struct {
	Tool     string
	Reason   string
	Priority int
}

// RulesEngine holds an ordered list of chain rules. Rules are evaluated in
// declaration order and results are sorted by priority descending, ties
// keeping declaration order.
type RulesEngine struct {
	rules []ChainRule
}

// NewRulesEngine creates an engine preloaded with the default chain:
// domain → {dnsrecon, whois, subfinder, amass}; subdomain → {dnsx, httpx};
// ip → {nmap, rustscan}; http_service → {whatweb, wafw00f, nuclei};
// WordPress http_service → wpscan.
func NewRulesEngine() *RulesEngine {
	isType := func(t string) func(*Asset) bool {
		return func(a *Asset) bool { return a.Type == t }
	}
	return &RulesEngine{rules: []ChainRule{
		{Name: "domain_to_dns", Condition: isType("domain"), TargetTool: "dnsrecon", Reason: "Enumerate DNS records", Priority: 10},
		{Name: "domain_to_whois", Condition: isType("domain"), TargetTool: "whois", Reason: "Get WHOIS information", Priority: 9},
		{Name: "domain_to_subfinder", Condition: isType("domain"), TargetTool: "subfinder", Reason: "Find subdomains", Priority: 10},
		{Name: "domain_to_amass", Condition: isType("domain"), TargetTool: "amass", Reason: "Deep subdomain enumeration", Priority: 8},
		{Name: "subdomain_to_dnsx", Condition: isType("subdomain"), TargetTool: "dnsx", Reason: "Resolve subdomain IPs", Priority: 9},
		{Name: "subdomain_to_httpx", Condition: isType("subdomain"), TargetTool: "httpx", Reason: "Probe for HTTP services", Priority: 8},
		{Name: "http_to_whatweb", Condition: isType("http_service"), TargetTool: "whatweb", Reason: "Identify web technologies", Priority: 7},
		{Name: "http_to_wafw00f", Condition: isType("http_service"), TargetTool: "wafw00f", Reason: "Detect WAF", Priority: 6},
		{Name: "http_to_nuclei", Condition: isType("http_service"), TargetTool: "nuclei", Reason: "Scan for vulnerabilities", Priority: 7},
		{Name: "wordpress_to_wpscan", Condition: func(a *Asset) bool {
			return a.Type == "http_service" && a.Metadata["technology"] == "WordPress"
		}, TargetTool: "wpscan", Reason: "Scan WordPress site", Priority: 8},
		{Name: "ip_to_nmap", Condition: isType("ip"), TargetTool: "nmap", Reason: "Scan for open ports", Priority: 9},
		{Name: "ip_to_rustscan", Condition: isType("ip"), TargetTool: "rustscan", Reason: "Fast port scan", Priority: 8},
	}}
}

// NewRulesEngineWith creates an engine with only the given rules.
func NewRulesEngineWith(rules []ChainRule) *RulesEngine {
	return &RulesEngine{rules: rules}
}

// AddRule appends a custom chaining rule.
func (e *RulesEngine) AddRule(r ChainRule) {
	e.rules = append(e.rules, r)
}

// NextTools returns the chained invocations for an asset, highest priority
// first.
func (e *RulesEngine) NextTools(a *Asset) []NextTool {
	var matches []NextTool
	for _, r := range e.rules {
		if r.Condition(a) {
			matches = append(matches, NextTool{Tool: r.TargetTool, Reason: r.Reason, Priority: r.Priority})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Priority > matches[j].Priority
	})
	return matches
}
