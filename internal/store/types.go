package store

// SessionKind distinguishes clone requests from inline requests.
type SessionKind string

const (
	SessionClone  SessionKind = "clone"
	SessionInline SessionKind = "inline"
)

// Session is one journaled clone or inline request.
type Session struct {
	ID   string      `json:"id"`
	Seq  int64       `json:"seq"`
	Kind SessionKind `json:"kind"`

	// Source names where the graphs came from (a specs directory).
	Source string `json:"source"`

	// Roots names the requested graphs. For inline sessions it is
	// [source, target].
	Roots []string `json:"roots"`

	CloneConstants bool `json:"clone_constants"`
	Total          bool `json:"total"`
	RemapSource    bool `json:"remap_source"`

	// Fingerprint is ir.Fingerprint of the first root before cloning.
	Fingerprint string `json:"fingerprint"`
	IRVersion   string `json:"ir_version"`

	Graphs []Mapping `json:"graphs"`
	Nodes  []Mapping `json:"nodes"`
}

// Mapping is one recorded translation. IDs are module-local, so a journal
// only describes the process run that wrote it; Name carries the debug name
// of the original for readers.
type Mapping struct {
	From uint32 `json:"from"`
	To   uint32 `json:"to"`
	Name string `json:"name,omitempty"`
}
