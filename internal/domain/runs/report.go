package runs

import "encoding/json"

// Finding is one issue record inside a scan report. Reports are produced by
// an external tool, so unknown fields are kept verbatim and round-trip
// through the API unchanged.
type Finding map[string]any

func (f Finding) Severity() string {
	s, _ := f["severity"].(string)
	return s
}

func (f Finding) OwaspID() string {
	s, _ := f["owasp_id"].(string)
	return s
}

func (f Finding) Location() string {
	s, _ := f["location"].(string)
	return s
}

func (f Finding) SetLocation(loc string) {
	f["location"] = loc
}

// Node is one graph node; it carries at least an id.
type Node map[string]any

func (n Node) ID() string {
	s, _ := n["id"].(string)
	return s
}

// Edge connects a source node id to a target node id.
type Edge map[string]any

func (e Edge) Source() string {
	s, _ := e["source"].(string)
	return s
}

func (e Edge) Target() string {
	s, _ := e["target"].(string)
	return s
}

// Graph is the inventory call graph. Read-only for this server.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Report is the JSON artifact written once by a completed run.
// Scan reports carry findings plus scanned-path and error metadata,
// inventory reports carry a graph.
type Report struct {
	Findings    []Finding       `json:"findings,omitempty"`
	ScannedPath string          `json:"scanned_path,omitempty"`
	Errors      json.RawMessage `json:"errors,omitempty"`
	Graph       *Graph          `json:"graph,omitempty"`
}
