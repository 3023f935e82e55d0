package triage

import (
	"fmt"
	"sort"
)

// DomainScore is one entry of a classification: a domain name from the
// closed configured set and its relevance weight in [0,1].
type DomainScore struct {
	Domain string  `json:"domain"`
	Weight float64 `json:"weight"`
}

// Classification is the ordered set of domains judged relevant to a
// query. It is produced once per query and never persisted. An empty
// classification is valid and routes the cycle to escalation.
type Classification struct {
	QueryID string        `json:"query_id"`
	Scores  []DomainScore `json:"scores"`
}

// NewClassification validates raw scores against the closed domain set,
// drops entries below minRelevance, and orders the result by descending
// weight. Equal weights keep the declaration order of known (the
// configured domain order), which makes the result deterministic.
// Unknown domain names are dropped and reported; out-of-range weights
// are an error in the backend's output and reported the same way.
func NewClassification(queryID string, raw []DomainScore, known []string, minRelevance float64) (Classification, []DomainScore) {
	rank := make(map[string]int, len(known))
	for i, name := range known {
		rank[name] = i
	}

	var dropped []DomainScore
	seen := make(map[string]bool, len(raw))
	scores := make([]DomainScore, 0, len(raw))
	for _, s := range raw {
		if _, ok := rank[s.Domain]; !ok || s.Weight < 0 || s.Weight > 1 || seen[s.Domain] {
			dropped = append(dropped, s)
			continue
		}
		seen[s.Domain] = true
		if s.Weight < minRelevance {
			continue
		}
		scores = append(scores, s)
	}

	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Weight != scores[j].Weight {
			return scores[i].Weight > scores[j].Weight
		}
		return rank[scores[i].Domain] < rank[scores[j].Domain]
	})

	return Classification{QueryID: queryID, Scores: scores}, dropped
}

// Empty reports whether no domain cleared the relevance threshold.
func (c Classification) Empty() bool {
	return len(c.Scores) == 0
}

// Domains returns the selected domain names in ranked order.
func (c Classification) Domains() []string {
	names := make([]string, len(c.Scores))
	for i, s := range c.Scores {
		names[i] = s.Domain
	}
	return names
}

// Weight returns the relevance weight of the given domain, or 0 when the
// domain was not selected.
func (c Classification) Weight(domain string) float64 {
	for _, s := range c.Scores {
		if s.Domain == domain {
			return s.Weight
		}
	}
	return 0
}

// String renders the classification for logging.
func (c Classification) String() string {
	return fmt.Sprintf("%v", c.Scores)
}
