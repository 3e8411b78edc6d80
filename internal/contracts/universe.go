package contracts

// Universe is the identifier list handed from S1 to the orchestrator
// ⭐ SSOT: S1 → scan universe handoff
type Universe struct {
	Source     string            `json:"source"`
	Symbols    []string          `json:"symbols"`
	Excluded   map[string]string `json:"excluded"`              // raw identifier: reason
	TotalCount int               `json:"total_count,omitempty"` // identifiers read before filtering
}

// Contains checks if a symbol is in the universe
func (u *Universe) Contains(symbol string) bool {
	for _, s := range u.Symbols {
		if s == symbol {
			return true
		}
	}
	return false
}

// IsExcluded checks if an identifier was excluded and why
func (u *Universe) IsExcluded(raw string) (bool, string) {
	reason, exists := u.Excluded[raw]
	return exists, reason
}

// Count returns the number of scan-ready symbols
func (u *Universe) Count() int {
	return len(u.Symbols)
}
