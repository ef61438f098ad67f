package adapters

import (
	"encoding/xml"
	"fmt"
	"strings"

	strix "github.com/nevindra/strix"
)

// Nmap wraps the nmap port scanner. Output is the -oX XML document, so
// partial parsing stays at the base non-success default.
type Nmap struct{ base }

func NewNmap() *Nmap {
	return &Nmap{base{strix.ToolConfig{
		Name:        "nmap",
		Binary:      "nmap",
		Category:    strix.CategoryPortScan,
		Description: "Network port scanner",
		Timeout:     600,
		Produces:    []string{"port"},
		Consumes:    []string{"ip", "domain", "subdomain"},
	}}}
}

func (a *Nmap) BuildCommand(target string, opts strix.Options) []string {
	argv := []string{"nmap", "-sV", "-T4", "--top-ports", "1000", "-oX", "-", target}
	if opts.Stealth {
		argv = []string{"nmap", "-sS", "-T2", "--top-ports", "100", "-oX", "-", target}
	}
	return append(argv, opts.ExtraArgs...)
}

var insecureServices = map[string]string{
	"telnet": "Telnet transmits credentials in cleartext",
	"ftp":    "FTP transmits credentials in cleartext",
	"rlogin": "rlogin is an obsolete cleartext protocol",
	"rsh":    "rsh is an obsolete cleartext protocol",
}

var databasePorts = map[string]string{
	"3306":  "MySQL",
	"5432":  "PostgreSQL",
	"27017": "MongoDB",
	"6379":  "Redis",
	"1433":  "MSSQL",
}

func (a *Nmap) ParseOutput(output string) strix.ToolResult {
	var doc struct {
		Hosts []struct {
			Addresses []struct {
				Addr string `xml:"addr,attr"`
				Type string `xml:"addrtype,attr"`
			} `xml:"address"`
			Ports struct {
				Ports []struct {
					Protocol string `xml:"protocol,attr"`
					PortID   string `xml:"portid,attr"`
					State    struct {
						State string `xml:"state,attr"`
					} `xml:"state"`
					Service struct {
						Name    string `xml:"name,attr"`
						Product string `xml:"product,attr"`
						Version string `xml:"version,attr"`
					} `xml:"service"`
				} `xml:"port"`
			} `xml:"ports"`
		} `xml:"host"`
	}
	if err := xml.Unmarshal([]byte(output), &doc); err != nil {
		return strix.ToolResult{ToolName: "nmap", Error: "xml parse: " + err.Error(), RawOutput: output}
	}

	var assets []*strix.Asset
	var findings []*strix.Finding

	for _, host := range doc.Hosts {
		addr := ""
		for _, a := range host.Addresses {
			if a.Type == "ipv4" || a.Type == "ipv6" {
				addr = a.Addr
				break
			}
		}
		if addr == "" {
			continue
		}

		for _, port := range host.Ports.Ports {
			if port.State.State != "open" {
				continue
			}
			asset := strix.NewAsset("port", addr+":"+port.PortID, "nmap")
			asset.Metadata = map[string]any{
				"port":     port.PortID,
				"protocol": port.Protocol,
				"service":  port.Service.Name,
				"product":  port.Service.Product,
				"version":  port.Service.Version,
			}
			assets = append(assets, asset)

			service := strings.ToLower(port.Service.Name)
			if reason, ok := insecureServices[service]; ok {
				f := strix.NewFinding(strix.SeverityMedium,
					"Insecure Service: "+port.Service.Name,
					addr,
					reason,
					"nmap")
				f.Evidence = fmt.Sprintf("Port %s/%s running %s", port.PortID, port.Protocol, port.Service.Name)
				findings = append(findings, f)
			}
			if db, ok := databasePorts[port.PortID]; ok {
				f := strix.NewFinding(strix.SeverityHigh,
					"Exposed Database Port: "+db,
					addr,
					fmt.Sprintf("%s port %s is reachable from the scanning host", db, port.PortID),
					"nmap")
				f.Evidence = fmt.Sprintf("Port %s open, service %s", port.PortID, port.Service.Name)
				f.Recommendations = []string{
					"Restrict database access to trusted networks",
					"Verify authentication is required",
				}
				findings = append(findings, f)
			}
		}
	}

	return strix.ToolResult{ToolName: "nmap", Success: true, Assets: assets, Findings: findings, RawOutput: output}
}
