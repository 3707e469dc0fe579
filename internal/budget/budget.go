// Package budget partitions a fixed model context window into role
// allocations. Pure arithmetic, no I/O.
package budget

// Config describes the window and its fixed reservations in tokens.
type Config struct {
	TotalWindow    int `json:"total_window"`
	SystemTokens   int `json:"system_tokens"`
	HistoryTokens  int `json:"history_tokens"`
	ResponseTokens int `json:"response_tokens"`
}

// Allocation is the resolved budget for one request.
type Allocation struct {
	Config
	// DocumentBudget is the ceiling available to document content:
	// TotalWindow minus the fixed reservations, clamped to >= 0.
	DocumentBudget int `json:"document_allocation"`
	// Granted is min(requested, DocumentBudget).
	Granted int `json:"granted"`
	// Truncated reports Granted < requested.
	Truncated bool `json:"truncated"`
	// UtilizationPct is round(100*Granted/max(requested,1)).
	UtilizationPct int `json:"utilization_pct"`
}

// DocumentBudget returns the token ceiling for the document role.
func (c Config) DocumentBudget() int {
	d := c.TotalWindow - c.SystemTokens - c.HistoryTokens - c.ResponseTokens
	if d < 0 {
		d = 0
	}
	return d
}

// Allocate resolves the budget for a request wanting `requested` document
// tokens. Invariant: System + History + Response + DocumentBudget ==
// TotalWindow whenever the reservations fit the window.
func Allocate(c Config, requested int) Allocation {
	if requested < 0 {
		requested = 0
	}
	docBudget := c.DocumentBudget()
	granted := requested
	if granted > docBudget {
		granted = docBudget
	}
	denom := requested
	if denom < 1 {
		denom = 1
	}
	return Allocation{
		Config:         c,
		DocumentBudget: docBudget,
		Granted:        granted,
		Truncated:      granted < requested,
		UtilizationPct: (100*granted + denom/2) / denom,
	}
}
