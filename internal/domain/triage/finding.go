package triage

// Confidence signals how well a finding is backed by knowledge entries.
type Confidence string

const (
	// ConfidenceHigh marks a recommendation grounded in retrieved
	// knowledge entries.
	ConfidenceHigh Confidence = "high"
	// ConfidenceLow marks a generic recommendation produced without any
	// matching knowledge entries.
	ConfidenceLow Confidence = "low"
)

// KnowledgeEntry is one candidate solution from the external knowledge
// store. The store owns these records; the core only reads them.
type KnowledgeEntry struct {
	Issue    string `json:"issue"`
	Category string `json:"category"`
	Solution string `json:"solution"`
	Severity string `json:"severity"`
}

// Finding is one specialist's structured output for a query. Exactly one
// per domain the specialist was asked to handle; immutable once returned
// and only ever aggregated by reference.
type Finding struct {
	QueryID        string           `json:"query_id"`
	Domain         string           `json:"domain"`
	Recommendation string           `json:"recommendation"`
	Confidence     Confidence       `json:"confidence"`
	Resolved       bool             `json:"resolved"`
	Entries        []KnowledgeEntry `json:"entries,omitempty"`
}
