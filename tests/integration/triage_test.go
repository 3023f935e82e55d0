//go:build integration

package integration_test

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/avollmer/deskmux/internal/domain/triage"
)

func postQuery(t *testing.T, query string) (*http.Response, triage.SynthesizedAnswer) {
	t.Helper()
	resp, err := http.Post(supervisorServer.URL+"/process", "application/json",
		strings.NewReader(`{"query": "`+query+`"}`))
	if err != nil {
		t.Fatalf("POST /process: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var a triage.SynthesizedAnswer
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&a); err != nil {
			t.Fatalf("decode answer: %v", err)
		}
	}
	return resp, a
}

func TestTriageCycleEndToEnd(t *testing.T) {
	resp, a := postQuery(t, "my printer is offline")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if a.Escalated {
		t.Fatalf("answer = %+v, want synthesized", a)
	}
	if len(a.Domains) != 1 || a.Domains[0] != "hardware" {
		t.Fatalf("domains = %v, want [hardware]", a.Domains)
	}
	if !strings.Contains(a.Text, "Restart the print spooler.") {
		t.Fatalf("answer missing knowledge-grounded step:\n%s", a.Text)
	}
	if !strings.HasPrefix(a.Text, "Hardware:") {
		t.Fatalf("answer missing domain heading:\n%s", a.Text)
	}
}

func TestTriageEscalatesOutOfScopeQuery(t *testing.T) {
	resp, a := postQuery(t, "how do I book a meeting room")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if !a.Escalated {
		t.Fatalf("answer = %+v, want escalation", a)
	}
	if !strings.Contains(a.Text, "IT Support Service Hotline") {
		t.Fatalf("escalation text missing hotline:\n%s", a.Text)
	}
}

func TestTriageRejectsBlankQuery(t *testing.T) {
	resp, _ := postQuery(t, "   ")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}
