// DeskMux runs IT support triage as one supervisor process plus one
// specialist process per configured domain. The role flag selects which
// of the two a process plays; all processes share one configuration.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/avollmer/deskmux/internal/adapter/agent"
	dmhttp "github.com/avollmer/deskmux/internal/adapter/http"
	"github.com/avollmer/deskmux/internal/adapter/knowledge"
	"github.com/avollmer/deskmux/internal/adapter/llm"
	otelx "github.com/avollmer/deskmux/internal/adapter/otel"
	"github.com/avollmer/deskmux/internal/adapter/ristretto"
	"github.com/avollmer/deskmux/internal/adapter/ws"
	"github.com/avollmer/deskmux/internal/config"
	"github.com/avollmer/deskmux/internal/logger"
	"github.com/avollmer/deskmux/internal/middleware"
	"github.com/avollmer/deskmux/internal/port/specialist"
	"github.com/avollmer/deskmux/internal/resilience"
	"github.com/avollmer/deskmux/internal/secrets"
	"github.com/avollmer/deskmux/internal/service"
)

// llmKeyEnv is the environment variable holding the inference backend
// API key. The vault prefers it over the key stored in YAML and
// re-reads it on SIGHUP.
const llmKeyEnv = "DESKMUX_LLM_API_KEY"

func main() {
	role := flag.String("role", "supervisor", "process role: supervisor or specialist")
	domainName := flag.String("domain", "", "domain served by a specialist process")
	configPath := flag.String("config", config.DefaultConfigFile, "path to the YAML config file")
	flag.Parse()

	cfg, err := config.LoadFrom(*configPath)
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logger.New(cfg.Logging))

	if err := run(cfg, *role, *domainName); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, role, domainName string) error {
	ctx := context.Background()

	serviceName := "deskmux-" + role
	if role == "specialist" {
		serviceName += "-" + domainName
	}
	shutdownTelemetry, err := otelx.Init(ctx, cfg.Telemetry, serviceName)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(shutdownCtx)
	}()

	switch role {
	case "supervisor":
		return runSupervisor(cfg)
	case "specialist":
		dom, ok := cfg.DomainByName(domainName)
		if !ok {
			return fmt.Errorf("unknown domain %q, configured: %v", domainName, cfg.DomainNames())
		}
		return runSpecialist(cfg, dom)
	default:
		return fmt.Errorf("unknown role %q, want supervisor or specialist", role)
	}
}

func runSupervisor(cfg *config.Config) error {
	metrics, err := otelx.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	llmClient, err := newLLMClient(cfg)
	if err != nil {
		return err
	}

	// Each specialist gets its own policy so one failing domain trips
	// only its own breaker.
	registry := make(specialist.Registry, len(cfg.Domains))
	for _, d := range cfg.Domains {
		registry[d.Name] = agent.NewClient(d.Name, d.Address, newPolicy(cfg))
	}

	hub := ws.NewHub()
	router := service.NewRouterService(llmClient, cfg.LLM.RoutingModel, cfg.Domains, cfg.Router.MinRelevance)
	supervisor := service.NewSupervisorService(router, registry, service.NewSynthesizer(), hub, metrics, cfg.Router.TotalTimeout)
	handlers := dmhttp.NewSupervisorHandlers(supervisor, registry, llmClient, cfg.Domains)

	limiter := middleware.NewRateLimiter(10, 20)
	stopCleanup := limiter.StartCleanup(time.Minute, 10*time.Minute)
	defer stopCleanup()

	r := newRouter(cfg, "supervisor")
	r.Use(limiter.Handler)
	dmhttp.MountSupervisorRoutes(r, handlers, hub)

	slog.Info("supervisor configured",
		"domains", cfg.DomainNames(),
		"routing_model", cfg.LLM.RoutingModel)
	return serve(":"+cfg.Server.Port, r)
}

func runSpecialist(cfg *config.Config, dom config.Domain) error {
	metrics, err := otelx.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	resultCache, err := ristretto.New(cfg.Cache.MaxSizeMB)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer resultCache.Close()

	knowledgePolicy := resilience.NewPolicy(cfg.Knowledge.Timeout, cfg.Transport.MaxRetries, cfg.Transport.RetryBase,
		resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))
	searcher := knowledge.NewClient(cfg.Knowledge.URL, knowledgePolicy, resultCache, cfg.Cache.TTL, metrics)
	llmClient, err := newLLMClient(cfg)
	if err != nil {
		return err
	}

	svc := service.NewSpecialistService(dom, searcher, llmClient, cfg.Knowledge.TopK)
	handlers := dmhttp.NewSpecialistHandlers(svc, searcher, llmClient)

	port, err := addressPort(dom.Address)
	if err != nil {
		return fmt.Errorf("domain %s: %w", dom.Name, err)
	}

	r := newRouter(cfg, "specialist")
	dmhttp.MountSpecialistRoutes(r, handlers)

	slog.Info("specialist configured",
		"domain", dom.Name, "model", dom.Model, "knowledge_url", cfg.Knowledge.URL)
	return serve(":"+port, r)
}

func newRouter(cfg *config.Config, role string) chi.Router {
	r := chi.NewRouter()
	r.Use(dmhttp.CORS(cfg.Server.CORSOrigin))
	// RequestID runs before Logger so the access log sees the ID.
	r.Use(middleware.RequestID)
	r.Use(dmhttp.Logger)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(otelx.HTTPMiddleware("deskmux-" + role))
	return r
}

// addressPort extracts the listen port from a domain's configured
// address, so a specialist and the supervisor agree on it.
func addressPort(address string) (string, error) {
	u, err := url.Parse(address)
	if err != nil {
		return "", fmt.Errorf("parse address %q: %w", address, err)
	}
	if u.Port() == "" {
		return "", fmt.Errorf("address %q has no port", address)
	}
	return u.Port(), nil
}

func serve(addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newLLMClient builds the inference backend client with its API key
// served from a vault: the environment wins over YAML, and SIGHUP
// re-reads the environment so a rotated key needs no restart.
func newLLMClient(cfg *config.Config) (*llm.Client, error) {
	vault, err := secrets.NewVault(secrets.EnvLoader(llmKeyEnv))
	if err != nil {
		return nil, fmt.Errorf("secrets: %w", err)
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	go func() {
		for range hup {
			if err := vault.Reload(); err != nil {
				slog.Error("secret reload failed", "error", err)
				continue
			}
			slog.Info("secrets reloaded")
		}
	}()

	key := func() string {
		if v := vault.Get(llmKeyEnv); v != "" {
			return v
		}
		return cfg.LLM.APIKey
	}
	return llm.NewClientWithKey(cfg.LLM.URL, key, newPolicy(cfg)), nil
}

func newPolicy(cfg *config.Config) *resilience.Policy {
	return resilience.NewPolicy(cfg.Transport.Timeout, cfg.Transport.MaxRetries, cfg.Transport.RetryBase,
		resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))
}
