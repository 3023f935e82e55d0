package http

import (
	"context"
	"net/http"
	"time"

	"github.com/avollmer/deskmux/internal/config"
	"github.com/avollmer/deskmux/internal/domain/triage"
	"github.com/avollmer/deskmux/internal/port/knowledge"
	"github.com/avollmer/deskmux/internal/port/llm"
	"github.com/avollmer/deskmux/internal/port/specialist"
	"github.com/avollmer/deskmux/internal/service"
)

const maxQueryLength = 2000
const maxRequestBodySize = 1 << 20 // 1 MB

// healthProbeTimeout bounds each upstream liveness probe so a hung
// upstream cannot stall the health endpoint.
const healthProbeTimeout = 2 * time.Second

// SupervisorHandlers serves the supervisor surface: query intake, the
// progress stream and the domain listing.
type SupervisorHandlers struct {
	svc       *service.SupervisorService
	registry  specialist.Registry
	completer llm.Completer
	domains   []config.Domain
}

// NewSupervisorHandlers creates the supervisor's handler set.
func NewSupervisorHandlers(svc *service.SupervisorService, registry specialist.Registry, completer llm.Completer, domains []config.Domain) *SupervisorHandlers {
	return &SupervisorHandlers{
		svc:       svc,
		registry:  registry,
		completer: completer,
		domains:   domains,
	}
}

type queryRequest struct {
	Query string `json:"query"`
}

// HandleQuery runs one triage cycle for the posted query text.
func (h *SupervisorHandlers) HandleQuery(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[queryRequest](w, r, maxRequestBodySize)
	if !ok {
		return
	}
	if len(req.Query) > maxQueryLength {
		writeError(w, http.StatusBadRequest, "query too long")
		return
	}

	answer, err := h.svc.ProcessQuery(r.Context(), req.Query)
	if err != nil {
		writeDomainError(w, err, "query processing failed")
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

type domainInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ListDomains returns the closed domain set for the front end.
func (h *SupervisorHandlers) ListDomains(w http.ResponseWriter, _ *http.Request) {
	infos := make([]domainInfo, len(h.domains))
	for i, d := range h.domains {
		infos[i] = domainInfo{Name: d.Name, Description: d.Description}
	}
	writeJSON(w, http.StatusOK, map[string]any{"domains": infos})
}

type healthResponse struct {
	Status    string            `json:"status"`
	Upstreams map[string]string `json:"upstreams,omitempty"`
}

// Health reports process liveness plus the reachability of every
// registered specialist and the inference backend. An unreachable
// upstream degrades the status but the process itself stays 200.
func (h *SupervisorHandlers) Health(w http.ResponseWriter, r *http.Request) {
	upstreams := make(map[string]string, len(h.registry)+1)
	status := "healthy"

	for name, client := range h.registry {
		upstreams["specialist:"+name] = probe(r.Context(), client.Health)
	}
	upstreams["llm"] = probe(r.Context(), h.completer.Health)

	for _, s := range upstreams {
		if s != "healthy" {
			status = "degraded"
			break
		}
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: status, Upstreams: upstreams})
}

func probe(ctx context.Context, check func(context.Context) error) string {
	ctx, cancel := context.WithTimeout(ctx, healthProbeTimeout)
	defer cancel()
	if err := check(ctx); err != nil {
		return "unreachable"
	}
	return "healthy"
}

// SpecialistHandlers serves one specialist's surface.
type SpecialistHandlers struct {
	svc       *service.SpecialistService
	searcher  knowledge.Searcher
	completer llm.Completer
}

// NewSpecialistHandlers creates the specialist's handler set.
func NewSpecialistHandlers(svc *service.SpecialistService, searcher knowledge.Searcher, completer llm.Completer) *SpecialistHandlers {
	return &SpecialistHandlers{svc: svc, searcher: searcher, completer: completer}
}

type processRequest struct {
	Query triage.Query `json:"query"`
}

// HandleProcess produces the finding for a supervisor-dispatched query.
func (h *SpecialistHandlers) HandleProcess(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[processRequest](w, r, maxRequestBodySize)
	if !ok {
		return
	}
	if req.Query.ID == "" || req.Query.Text == "" {
		writeError(w, http.StatusBadRequest, "query id and text are required")
		return
	}

	f, err := h.svc.Handle(r.Context(), req.Query)
	if err != nil {
		writeDomainError(w, err, "query processing failed")
		return
	}
	writeJSON(w, http.StatusOK, f)
}

type specialistHealthResponse struct {
	Status         string            `json:"status"`
	Domain         string            `json:"domain"`
	KnowledgeBases []string          `json:"knowledge_bases,omitempty"`
	Upstreams      map[string]string `json:"upstreams,omitempty"`
}

// Health reports liveness plus knowledge store and inference backend
// reachability; loaded knowledge partitions are included when available.
func (h *SpecialistHandlers) Health(w http.ResponseWriter, r *http.Request) {
	resp := specialistHealthResponse{
		Status:    "healthy",
		Domain:    h.svc.Domain(),
		Upstreams: make(map[string]string, 2),
	}

	ctx, cancel := context.WithTimeout(r.Context(), healthProbeTimeout)
	defer cancel()
	if st, err := h.searcher.Health(ctx); err != nil {
		resp.Upstreams["knowledge"] = "unreachable"
	} else {
		resp.Upstreams["knowledge"] = "healthy"
		resp.KnowledgeBases = st.Partitions
	}
	resp.Upstreams["llm"] = probe(r.Context(), h.completer.Health)

	for _, s := range resp.Upstreams {
		if s != "healthy" {
			resp.Status = "degraded"
			break
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
