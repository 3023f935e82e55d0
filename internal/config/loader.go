package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "deskmux.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// The YAML file is optional; a missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	// A domains list in the file replaces the default set entirely;
	// merging the two would reorder the closed set.
	var probe struct {
		Domains []Domain `yaml:"domains"`
	}
	if err := yaml.Unmarshal(data, &probe); err == nil && len(probe.Domains) > 0 {
		cfg.Domains = nil
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "DESKMUX_PORT")
	setString(&cfg.Server.CORSOrigin, "DESKMUX_CORS_ORIGIN")
	setString(&cfg.Knowledge.URL, "DESKMUX_KNOWLEDGE_URL")
	setDuration(&cfg.Knowledge.Timeout, "DESKMUX_KNOWLEDGE_TIMEOUT")
	setInt(&cfg.Knowledge.TopK, "DESKMUX_KNOWLEDGE_TOP_K")
	setString(&cfg.LLM.URL, "DESKMUX_LLM_URL")
	setString(&cfg.LLM.APIKey, "DESKMUX_LLM_API_KEY")
	setString(&cfg.LLM.RoutingModel, "DESKMUX_LLM_ROUTING_MODEL")
	setFloat64(&cfg.Router.MinRelevance, "DESKMUX_ROUTER_MIN_RELEVANCE")
	setDuration(&cfg.Router.TotalTimeout, "DESKMUX_ROUTER_TOTAL_TIMEOUT")
	setDuration(&cfg.Transport.Timeout, "DESKMUX_TRANSPORT_TIMEOUT")
	setInt(&cfg.Transport.MaxRetries, "DESKMUX_TRANSPORT_MAX_RETRIES")
	setDuration(&cfg.Transport.RetryBase, "DESKMUX_TRANSPORT_RETRY_BASE")
	setInt(&cfg.Breaker.MaxFailures, "DESKMUX_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "DESKMUX_BREAKER_TIMEOUT")
	setInt64(&cfg.Cache.MaxSizeMB, "DESKMUX_CACHE_SIZE_MB")
	setDuration(&cfg.Cache.TTL, "DESKMUX_CACHE_TTL")
	setString(&cfg.Logging.Level, "DESKMUX_LOG_LEVEL")
	setString(&cfg.Logging.Service, "DESKMUX_LOG_SERVICE")
	setBool(&cfg.Telemetry.Enabled, "DESKMUX_OTEL_ENABLED")
	setString(&cfg.Telemetry.OTLPEndpoint, "DESKMUX_OTEL_ENDPOINT")
}

// validate checks that required fields are set and the domain set is
// well-formed. The domain set is closed: it must be non-empty, names
// must be unique and every entry needs an address and a model.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Knowledge.URL == "" {
		return errors.New("knowledge.url is required")
	}
	if cfg.LLM.URL == "" {
		return errors.New("llm.url is required")
	}
	if cfg.LLM.RoutingModel == "" {
		return errors.New("llm.routing_model is required")
	}
	if cfg.Knowledge.TopK < 1 {
		return errors.New("knowledge.top_k must be >= 1")
	}
	if cfg.Router.MinRelevance < 0 || cfg.Router.MinRelevance > 1 {
		return errors.New("router.min_relevance must be in [0,1]")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Transport.MaxRetries < 0 {
		return errors.New("transport.max_retries must be >= 0")
	}
	if len(cfg.Domains) == 0 {
		return errors.New("at least one domain is required")
	}
	seen := make(map[string]bool, len(cfg.Domains))
	for _, d := range cfg.Domains {
		if d.Name == "" {
			return errors.New("domain name is required")
		}
		if seen[d.Name] {
			return fmt.Errorf("duplicate domain %q", d.Name)
		}
		seen[d.Name] = true
		if d.Address == "" {
			return fmt.Errorf("domain %q: address is required", d.Name)
		}
		if d.Model == "" {
			return fmt.Errorf("domain %q: model is required", d.Name)
		}
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
