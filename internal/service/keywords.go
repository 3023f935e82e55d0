package service

import (
	"strings"

	"github.com/avollmer/deskmux/internal/config"
	"github.com/avollmer/deskmux/internal/domain/triage"
)

// builtinKeywords are per-domain signal words for the default domain
// set, used when the routing backend is unavailable. Domains outside
// this table fall back to the words of their competence description.
var builtinKeywords = map[string][]string{
	"windows": {
		"windows", "system", "boot", "update", "registry", "startup",
		"blue screen", "bsod", "login", "driver",
	},
	"office": {
		"office", "word", "excel", "powerpoint", "outlook", "teams",
		"sharepoint", "onenote", "macro", "vba", "formatting",
		"activation", "spreadsheet", "email",
	},
	"hardware": {
		"hardware", "printer", "monitor", "memory", "disk", "cpu", "gpu",
		"keyboard", "mouse", "battery", "fan", "performance", "slow",
		"overheating",
	},
}

// stopWords are ignored when deriving keywords from a domain description.
var stopWords = map[string]bool{
	"and": true, "the": true, "for": true, "with": true, "issues": true,
	"problems": true, "related": true,
}

// keywordClassifier is the deterministic routing fallback: it scores each
// configured domain by keyword hits in the query text. No network, no
// model; the same query always yields the same classification.
type keywordClassifier struct {
	keywords map[string][]string
	order    []string
}

func newKeywordClassifier(domains []config.Domain) *keywordClassifier {
	kc := &keywordClassifier{
		keywords: make(map[string][]string, len(domains)),
		order:    make([]string, 0, len(domains)),
	}
	for _, d := range domains {
		kc.order = append(kc.order, d.Name)
		if kw, ok := builtinKeywords[d.Name]; ok {
			kc.keywords[d.Name] = kw
			continue
		}
		kc.keywords[d.Name] = descriptionKeywords(d.Description)
	}
	return kc
}

// classify returns a raw score per domain with at least one keyword hit.
// Weights saturate at 1.0; a single hit scores above the default
// relevance threshold so the fallback still routes somewhere.
func (kc *keywordClassifier) classify(text string) []triage.DomainScore {
	lower := strings.ToLower(text)

	var scores []triage.DomainScore
	for _, name := range kc.order {
		hits := 0
		for _, kw := range kc.keywords[name] {
			if strings.Contains(lower, kw) {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		weight := 0.4 + 0.2*float64(hits)
		if weight > 1 {
			weight = 1
		}
		scores = append(scores, triage.DomainScore{Domain: name, Weight: weight})
	}
	return scores
}

func descriptionKeywords(description string) []string {
	fields := strings.Fields(strings.ToLower(description))
	kws := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ",.;:")
		if len(f) < 3 || stopWords[f] {
			continue
		}
		kws = append(kws, f)
	}
	return kws
}
