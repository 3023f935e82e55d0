package triage

// SynthesizedAnswer is the terminal artifact of a cycle: one per query,
// always produced, even when every specialist failed.
type SynthesizedAnswer struct {
	QueryID   string   `json:"query_id"`
	Text      string   `json:"text"`
	Domains   []string `json:"domains"`
	Escalated bool     `json:"escalated"`
}
