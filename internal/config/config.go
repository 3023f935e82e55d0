// Package config provides hierarchical configuration loading for DeskMux.
// Precedence: defaults < YAML file < environment variables.
package config

import "time"

// Config holds all runtime configuration for a DeskMux process.
// The same file configures both the supervisor and the specialist roles;
// a specialist only reads the sections relevant to it.
type Config struct {
	Server    Server    `yaml:"server"`
	Knowledge Knowledge `yaml:"knowledge"`
	LLM       LLM       `yaml:"llm"`
	Router    Router    `yaml:"router"`
	Transport Transport `yaml:"transport"`
	Breaker   Breaker   `yaml:"breaker"`
	Cache     Cache     `yaml:"cache"`
	Logging   Logging   `yaml:"logging"`
	Telemetry Telemetry `yaml:"telemetry"`
	Domains   []Domain  `yaml:"domains"`
}

// Server holds HTTP server configuration.
type Server struct {
	Port       string `yaml:"port"`
	CORSOrigin string `yaml:"cors_origin"`
}

// Knowledge holds knowledge lookup service configuration.
type Knowledge struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
	TopK    int           `yaml:"top_k"`
}

// LLM holds inference backend configuration. RoutingModel is the model
// used for query classification; each domain carries its own model for
// recommendation generation.
type LLM struct {
	URL          string `yaml:"url"`
	APIKey       string `yaml:"api_key"`
	RoutingModel string `yaml:"routing_model"`
}

// Router holds classification and cycle-level configuration.
type Router struct {
	MinRelevance float64       `yaml:"min_relevance"`
	TotalTimeout time.Duration `yaml:"total_timeout"`
}

// Transport holds the shared timeout/retry policy applied to every
// supervisor->specialist and specialist->upstream call.
type Transport struct {
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
	RetryBase  time.Duration `yaml:"retry_base"`
}

// Breaker holds circuit breaker configuration.
type Breaker struct {
	MaxFailures int           `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Cache holds the in-process knowledge result cache configuration.
type Cache struct {
	MaxSizeMB int64         `yaml:"max_size_mb"`
	TTL       time.Duration `yaml:"ttl"`
}

// Logging holds structured logging configuration.
type Logging struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
}

// Telemetry holds OpenTelemetry export configuration.
type Telemetry struct {
	Enabled      bool   `yaml:"enabled"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
}

// Domain describes one entry of the closed specialist set: its name,
// where its process listens, the competence description fed to the
// routing prompt, and the inference model its specialist uses.
type Domain struct {
	Name        string `yaml:"name"`
	Address     string `yaml:"address"`
	Description string `yaml:"description"`
	Model       string `yaml:"model"`
}

// Defaults returns a Config with sensible default values for local
// development: the supervisor on 8001, specialists on 8002-8004 and the
// knowledge service on 8005.
func Defaults() Config {
	return Config{
		Server: Server{
			Port:       "8001",
			CORSOrigin: "http://localhost:8501",
		},
		Knowledge: Knowledge{
			URL:     "http://localhost:8005",
			Timeout: 10 * time.Second,
			TopK:    5,
		},
		LLM: LLM{
			URL:          "http://localhost:4000",
			RoutingModel: "o3-mini",
		},
		Router: Router{
			MinRelevance: 0.3,
			TotalTimeout: 60 * time.Second,
		},
		Transport: Transport{
			Timeout:    30 * time.Second,
			MaxRetries: 2,
			RetryBase:  250 * time.Millisecond,
		},
		Breaker: Breaker{
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		},
		Cache: Cache{
			MaxSizeMB: 16,
			TTL:       5 * time.Minute,
		},
		Logging: Logging{
			Level:   "info",
			Service: "deskmux",
		},
		Telemetry: Telemetry{
			Enabled:      false,
			OTLPEndpoint: "localhost:4317",
		},
		Domains: []Domain{
			{
				Name:        "windows",
				Address:     "http://localhost:8002",
				Description: "Windows 11 operating system issues, updates, boot and system errors",
				Model:       "gpt-4o",
			},
			{
				Name:        "office",
				Address:     "http://localhost:8003",
				Description: "Microsoft Office applications, Office 365 and productivity tools",
				Model:       "gpt-4o",
			},
			{
				Name:        "hardware",
				Address:     "http://localhost:8004",
				Description: "Computer hardware, peripheral devices and performance problems",
				Model:       "gpt-4o",
			},
		},
	}
}

// DomainNames returns the names of the configured domains in declaration
// order. Declaration order is the tie-break for equal routing weights.
func (c *Config) DomainNames() []string {
	names := make([]string, len(c.Domains))
	for i, d := range c.Domains {
		names[i] = d.Name
	}
	return names
}

// DomainByName returns the configured domain with the given name, or
// false when the name is not part of the closed set.
func (c *Config) DomainByName(name string) (Domain, bool) {
	for _, d := range c.Domains {
		if d.Name == name {
			return d, true
		}
	}
	return Domain{}, false
}
