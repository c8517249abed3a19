package types

// Event is the structured notification emitted alongside every ledger
// mutation. Attributes carry the identities and before/after values audit
// subscribers need to reconstruct the change.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}
