package adapters

import strix "github.com/nevindra/strix"

// DefaultRegistry returns a registry with every built-in adapter, in
// dependency order: OSINT and DNS first, then discovery, scanning, probing,
// and vulnerability assessment.
func DefaultRegistry() *strix.ToolRegistry {
	r := strix.NewToolRegistry()
	r.Register(NewWhois())
	r.Register(NewDnsrecon())
	r.Register(NewDnsx())
	r.Register(NewSubfinder())
	r.Register(NewAmass())
	r.Register(NewAssetfinder())
	r.Register(NewNmap())
	r.Register(NewMasscan())
	r.Register(NewRustscan())
	r.Register(NewHttpx())
	r.Register(NewWhatweb())
	r.Register(NewWafw00f())
	r.Register(NewNuclei())
	r.Register(NewNikto())
	r.Register(NewWpscan())
	return r
}
