package harness

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: true if every assertion held.
	Pass bool `json:"pass"`

	// Listing is ir.Print of the request's outcome: the copies of the clone
	// roots, or the inline target with the spliced body as its output.
	Listing string `json:"listing"`

	// SessionID identifies the journaled session.
	SessionID string `json:"session_id"`

	// GraphsCloned and NodesCloned count the entities the request created.
	// The journal also records inline seeds, so it can hold more mappings.
	GraphsCloned int `json:"graphs_cloned"`
	NodesCloned  int `json:"nodes_cloned"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
