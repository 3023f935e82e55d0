package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/avollmer/deskmux/internal/config"
	"github.com/avollmer/deskmux/internal/domain"
	"github.com/avollmer/deskmux/internal/domain/triage"
	"github.com/avollmer/deskmux/internal/port/knowledge"
)

type fakeSearcher struct {
	entries      []triage.KnowledgeEntry
	err          error
	gotPartition string
	gotLimit     int
}

func (f *fakeSearcher) Search(_ context.Context, partition, _ string, limit int) ([]triage.KnowledgeEntry, error) {
	f.gotPartition = partition
	f.gotLimit = limit
	return f.entries, f.err
}

func (f *fakeSearcher) Health(context.Context) (knowledge.Status, error) {
	return knowledge.Status{Healthy: true}, nil
}

var hardwareDomain = config.Domain{
	Name:        "hardware",
	Address:     "http://localhost:8004",
	Description: "Computer hardware, peripheral devices and performance problems",
	Model:       "gpt-4o",
}

func TestHandleWithKnowledgeEntries(t *testing.T) {
	ks := &fakeSearcher{entries: []triage.KnowledgeEntry{
		{Issue: "Printer offline", Category: "printer", Solution: "Restart the print spooler", Severity: "low"},
		{Issue: "Printer driver outdated", Category: "printer", Solution: "Reinstall the driver", Severity: "medium"},
	}}
	fc := &fakeCompleter{out: "1. Restart the print spooler.\n2. Reinstall the driver."}
	s := NewSpecialistService(hardwareDomain, ks, fc, 5)

	f, err := s.Handle(context.Background(), testQuery(t, "my printer is offline"))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if ks.gotPartition != "hardware" || ks.gotLimit != 5 {
		t.Errorf("search partition/limit = %q/%d, want hardware/5", ks.gotPartition, ks.gotLimit)
	}
	if fc.gotModel != "gpt-4o" {
		t.Errorf("model = %q, want gpt-4o", fc.gotModel)
	}
	if f.Domain != "hardware" || !f.Resolved || f.Confidence != triage.ConfidenceHigh {
		t.Errorf("finding = %+v, want resolved high-confidence hardware finding", f)
	}
	if len(f.Entries) != 2 {
		t.Errorf("entries = %d, want 2", len(f.Entries))
	}
	if !strings.Contains(fc.gotPrompt, "Restart the print spooler") {
		t.Errorf("prompt missing knowledge excerpt:\n%s", fc.gotPrompt)
	}
}

func TestHandleNoEntriesIsLowConfidence(t *testing.T) {
	fc := &fakeCompleter{out: "Try reseating the cable."}
	s := NewSpecialistService(hardwareDomain, &fakeSearcher{}, fc, 5)

	f, err := s.Handle(context.Background(), testQuery(t, "obscure dongle flickers"))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if f.Confidence != triage.ConfidenceLow || !f.Resolved {
		t.Fatalf("finding = %+v, want resolved low-confidence finding", f)
	}
	if !strings.Contains(fc.gotPrompt, "No matching knowledge base entries") {
		t.Errorf("prompt should state the knowledge base had no match:\n%s", fc.gotPrompt)
	}
}

func TestHandleKnowledgeFailureDegrades(t *testing.T) {
	ks := &fakeSearcher{err: errors.New("knowledge service down")}
	fc := &fakeCompleter{out: "General advice: check the cable."}
	s := NewSpecialistService(hardwareDomain, ks, fc, 5)

	f, err := s.Handle(context.Background(), testQuery(t, "monitor stays black"))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if f.Confidence != triage.ConfidenceLow || len(f.Entries) != 0 {
		t.Fatalf("finding = %+v, want low confidence without entries", f)
	}
}

func TestHandleCompletionFailure(t *testing.T) {
	fc := &fakeCompleter{err: errors.New("502 bad gateway")}
	s := NewSpecialistService(hardwareDomain, &fakeSearcher{}, fc, 5)

	f, err := s.Handle(context.Background(), testQuery(t, "fan is loud"))
	if !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("err = %v, want ErrUpstreamUnavailable", err)
	}
	if f != nil {
		t.Fatalf("finding = %+v, want nil", f)
	}
}

func TestHandleEmptyCompletionIsUnresolved(t *testing.T) {
	fc := &fakeCompleter{out: "   \n"}
	s := NewSpecialistService(hardwareDomain, &fakeSearcher{}, fc, 5)

	f, err := s.Handle(context.Background(), testQuery(t, "fan is loud"))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if f.Resolved {
		t.Fatalf("finding = %+v, want unresolved", f)
	}
}

func TestHandleQuotesAtMostThreeEntries(t *testing.T) {
	entries := make([]triage.KnowledgeEntry, 5)
	for i := range entries {
		entries[i] = triage.KnowledgeEntry{
			Issue:    "Issue",
			Category: "cat",
			Solution: "Solution",
			Severity: "low",
		}
	}
	entries[3].Issue = "Fourth entry stays out of the prompt"

	fc := &fakeCompleter{out: "Steps."}
	s := NewSpecialistService(hardwareDomain, &fakeSearcher{entries: entries}, fc, 5)

	f, err := s.Handle(context.Background(), testQuery(t, "disk is full"))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if strings.Contains(fc.gotPrompt, "Fourth entry") {
		t.Errorf("prompt quotes more than three entries:\n%s", fc.gotPrompt)
	}
	if len(f.Entries) != 5 {
		t.Errorf("entries = %d, want all 5 on the finding", len(f.Entries))
	}
}
