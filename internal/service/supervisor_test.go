package service

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	otelx "github.com/avollmer/deskmux/internal/adapter/otel"
	"github.com/avollmer/deskmux/internal/config"
	"github.com/avollmer/deskmux/internal/domain"
	"github.com/avollmer/deskmux/internal/domain/triage"
	"github.com/avollmer/deskmux/internal/port/specialist"
)

type fakeSpecialist struct {
	domain         string
	recommendation string
	err            error
	delay          time.Duration
	calls          atomic.Int32
}

func (f *fakeSpecialist) Process(ctx context.Context, q triage.Query) (*triage.Finding, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &triage.Finding{
		QueryID:        q.ID,
		Domain:         f.domain,
		Recommendation: f.recommendation,
		Confidence:     triage.ConfidenceHigh,
		Resolved:       true,
	}, nil
}

func (f *fakeSpecialist) Health(context.Context) error { return nil }

func newTestSupervisor(t *testing.T, routerOut string, registry specialist.Registry, totalTimeout time.Duration) *SupervisorService {
	t.Helper()
	metrics, err := otelx.NewMetrics()
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	router := NewRouterService(&fakeCompleter{out: routerOut}, "o3-mini", config.Defaults().Domains, 0.3)
	return NewSupervisorService(router, registry, NewSynthesizer(), nil, metrics, totalTimeout)
}

func TestProcessQueryHappyPath(t *testing.T) {
	windows := &fakeSpecialist{domain: "windows", recommendation: "Run Windows Update."}
	office := &fakeSpecialist{domain: "office", recommendation: "Repair the Office installation."}
	s := newTestSupervisor(t,
		`[{"domain": "windows", "weight": 0.9}, {"domain": "office", "weight": 0.6}]`,
		specialist.Registry{"windows": windows, "office": office},
		time.Second,
	)

	a, err := s.ProcessQuery(context.Background(), "Word crashes after the Windows update")
	if err != nil {
		t.Fatalf("ProcessQuery: %v", err)
	}
	if a.Escalated {
		t.Fatalf("answer = %+v, want synthesized", a)
	}
	if len(a.Domains) != 2 || a.Domains[0] != "windows" || a.Domains[1] != "office" {
		t.Fatalf("domains = %v, want [windows office]", a.Domains)
	}
	if windows.calls.Load() != 1 || office.calls.Load() != 1 {
		t.Errorf("calls = %d/%d, want 1/1", windows.calls.Load(), office.calls.Load())
	}
	if !strings.Contains(a.Text, "Run Windows Update.") || !strings.Contains(a.Text, "Repair the Office installation.") {
		t.Fatalf("answer missing recommendations:\n%s", a.Text)
	}
}

func TestProcessQueryOrdersAnswerByWeight(t *testing.T) {
	office := &fakeSpecialist{domain: "office", recommendation: "Repair Office."}
	hardware := &fakeSpecialist{domain: "hardware", recommendation: "Check the printer cable."}
	s := newTestSupervisor(t,
		`[{"domain": "office", "weight": 0.8}, {"domain": "hardware", "weight": 0.4}]`,
		specialist.Registry{"office": office, "hardware": hardware},
		time.Second,
	)

	a, err := s.ProcessQuery(context.Background(), "Word will not print")
	if err != nil {
		t.Fatalf("ProcessQuery: %v", err)
	}
	if len(a.Domains) != 2 || a.Domains[0] != "office" || a.Domains[1] != "hardware" {
		t.Fatalf("domains = %v, want [office hardware]", a.Domains)
	}
	oi := strings.Index(a.Text, "Office:")
	hi := strings.Index(a.Text, "Hardware:")
	if oi < 0 || hi < 0 || oi > hi {
		t.Fatalf("sections out of weight order:\n%s", a.Text)
	}
}

func TestProcessQueryBlankRejected(t *testing.T) {
	s := newTestSupervisor(t, `[]`, specialist.Registry{}, time.Second)

	_, err := s.ProcessQuery(context.Background(), "  \n ")
	if !errors.Is(err, domain.ErrInvalidQuery) {
		t.Fatalf("err = %v, want ErrInvalidQuery", err)
	}
}

func TestProcessQueryEmptyClassificationEscalates(t *testing.T) {
	windows := &fakeSpecialist{domain: "windows", recommendation: "irrelevant"}
	s := newTestSupervisor(t, `[]`,
		specialist.Registry{"windows": windows}, time.Second)

	a, err := s.ProcessQuery(context.Background(), "how do I book a meeting room")
	if err != nil {
		t.Fatalf("ProcessQuery: %v", err)
	}
	if !a.Escalated {
		t.Fatalf("answer = %+v, want escalation", a)
	}
	if windows.calls.Load() != 0 {
		t.Errorf("specialist called %d times on empty classification", windows.calls.Load())
	}
}

func TestProcessQuerySurvivesSpecialistFailure(t *testing.T) {
	windows := &fakeSpecialist{domain: "windows", err: errors.New("connection refused")}
	office := &fakeSpecialist{domain: "office", recommendation: "Reset the Outlook profile."}
	s := newTestSupervisor(t,
		`[{"domain": "windows", "weight": 0.8}, {"domain": "office", "weight": 0.7}]`,
		specialist.Registry{"windows": windows, "office": office},
		time.Second,
	)

	a, err := s.ProcessQuery(context.Background(), "Outlook broke after the update")
	if err != nil {
		t.Fatalf("ProcessQuery: %v", err)
	}
	if a.Escalated {
		t.Fatalf("answer = %+v, want synthesized from surviving specialist", a)
	}
	if len(a.Domains) != 1 || a.Domains[0] != "office" {
		t.Fatalf("domains = %v, want [office]", a.Domains)
	}
}

func TestProcessQueryAllSpecialistsFailEscalates(t *testing.T) {
	windows := &fakeSpecialist{domain: "windows", err: errors.New("down")}
	s := newTestSupervisor(t,
		`[{"domain": "windows", "weight": 0.9}]`,
		specialist.Registry{"windows": windows},
		time.Second,
	)

	a, err := s.ProcessQuery(context.Background(), "blue screen on boot")
	if err != nil {
		t.Fatalf("ProcessQuery: %v", err)
	}
	if !a.Escalated {
		t.Fatalf("answer = %+v, want escalation", a)
	}
}

func TestProcessQueryAllTimeoutsEscalate(t *testing.T) {
	slow := &fakeSpecialist{domain: "windows", recommendation: "too late", delay: 500 * time.Millisecond}
	s := newTestSupervisor(t,
		`[{"domain": "windows", "weight": 0.9}]`,
		specialist.Registry{"windows": slow},
		50*time.Millisecond,
	)

	a, err := s.ProcessQuery(context.Background(), "blue screen on boot")
	if err != nil {
		t.Fatalf("ProcessQuery: %v", err)
	}
	if !a.Escalated {
		t.Fatalf("answer = %+v, want escalation", a)
	}
	if !strings.Contains(a.Text, "IT Support Service Hotline") {
		t.Fatalf("escalation text missing hotline:\n%s", a.Text)
	}
}

func TestProcessQueryAbandonsSlowSpecialist(t *testing.T) {
	fast := &fakeSpecialist{domain: "office", recommendation: "Clear the cache."}
	slow := &fakeSpecialist{domain: "windows", recommendation: "too late", delay: 500 * time.Millisecond}
	s := newTestSupervisor(t,
		`[{"domain": "windows", "weight": 0.9}, {"domain": "office", "weight": 0.8}]`,
		specialist.Registry{"windows": slow, "office": fast},
		50*time.Millisecond,
	)

	start := time.Now()
	a, err := s.ProcessQuery(context.Background(), "windows and office acting up")
	if err != nil {
		t.Fatalf("ProcessQuery: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 300*time.Millisecond {
		t.Fatalf("cycle took %v, want bounded by the dispatch deadline", elapsed)
	}
	if a.Escalated {
		t.Fatalf("answer = %+v, want synthesized from fast specialist", a)
	}
	if len(a.Domains) != 1 || a.Domains[0] != "office" {
		t.Fatalf("domains = %v, want [office]", a.Domains)
	}
}
