package service

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/avollmer/deskmux/internal/domain/triage"
)

// escalationText is the fixed answer when no specialist could help.
const escalationText = "We could not resolve your request automatically. " +
	"Please contact the IT Support Service Hotline for personal assistance."

// Synthesizer merges specialist findings into the final answer. It is
// fully deterministic: no model call, the same findings and
// classification always produce the same text.
type Synthesizer struct{}

// NewSynthesizer creates a Synthesizer.
func NewSynthesizer() *Synthesizer { return &Synthesizer{} }

// Synthesize builds the final answer for a query. Findings are ordered by
// the classification's domain ranking; findings for domains missing from
// the classification sort last in input order. Escalation fires when
// there are no findings or none of them is resolved.
func (s *Synthesizer) Synthesize(q triage.Query, c triage.Classification, findings []*triage.Finding) triage.SynthesizedAnswer {
	resolved := make([]*triage.Finding, 0, len(findings))
	for _, f := range findings {
		if f != nil && f.Resolved {
			resolved = append(resolved, f)
		}
	}

	if len(resolved) == 0 {
		slog.Info("query escalated", "query_id", q.ID, "findings", len(findings))
		return triage.SynthesizedAnswer{
			QueryID:   q.ID,
			Text:      escalationText,
			Escalated: true,
		}
	}

	ordered := orderByClassification(resolved, c)

	var b strings.Builder
	domains := make([]string, 0, len(ordered))
	seen := make(map[string]bool)
	for _, f := range ordered {
		var lines []string
		for _, line := range strings.Split(f.Recommendation, "\n") {
			norm := normalizeLine(line)
			if norm == "" || seen[norm] {
				continue
			}
			seen[norm] = true
			lines = append(lines, strings.TrimRight(line, " \t"))
		}
		if len(lines) == 0 {
			// Everything this domain recommended was already said by a
			// higher-ranked one; no heading for an empty section.
			continue
		}

		domains = append(domains, f.Domain)
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s:\n", title(f.Domain))
		for _, line := range lines {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	return triage.SynthesizedAnswer{
		QueryID: q.ID,
		Text:    strings.TrimRight(b.String(), "\n"),
		Domains: domains,
	}
}

// orderByClassification sorts findings by the classification's ranking
// without mutating the input.
func orderByClassification(findings []*triage.Finding, c triage.Classification) []*triage.Finding {
	rank := make(map[string]int, len(c.Scores))
	for i, sc := range c.Scores {
		rank[sc.Domain] = i
	}

	ordered := make([]*triage.Finding, len(findings))
	copy(ordered, findings)
	sort.SliceStable(ordered, func(i, j int) bool {
		ri, iok := rank[ordered[i].Domain]
		rj, jok := rank[ordered[j].Domain]
		if iok != jok {
			return iok
		}
		return iok && ri < rj
	})
	return ordered
}

// normalizeLine is the dedup key: lowercase, whitespace collapsed.
func normalizeLine(line string) string {
	return strings.Join(strings.Fields(strings.ToLower(line)), " ")
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
