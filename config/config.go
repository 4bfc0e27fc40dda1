// Package config loads the hybrid memory engine's demo configuration.
//
// Precedence: built-in defaults, then an optional YAML file, then HM_*
// environment variables. Malformed overrides keep the previous value rather
// than failing the load.
package config

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Config holds every construction-time knob the engine consumes.
type Config struct {
	// KEpi is the number of episodic events to retrieve.
	KEpi int `yaml:"k_epi"`

	// KSem is the number of semantic items to retrieve.
	KSem int `yaml:"k_sem"`

	// TokenBudget caps the merged context's estimated token cost.
	TokenBudget int `yaml:"token_budget"`

	// EpisodicTTLDays is the default retention for unmapped categories.
	EpisodicTTLDays int `yaml:"episodic_ttl_days"`

	// EpisodicCapacity bounds the event log.
	EpisodicCapacity int `yaml:"episodic_capacity"`

	// RerankerEnabled turns on the lexical rerank pass.
	RerankerEnabled bool `yaml:"reranker_enabled"`

	// PIIScrubAtIngest redacts emails from document text before storage.
	PIIScrubAtIngest bool `yaml:"pii_scrub_at_ingest"`

	// EpiFilters are equality/tag filters applied to the episodic window.
	EpiFilters map[string]any `yaml:"epi_filters"`

	// SemFilters are metadata filters for semantic search.
	SemFilters map[string]any `yaml:"sem_filters"`

	// TracePath is the JSONL trace sink.
	TracePath string `yaml:"trace_path"`
}

// Default returns the demo defaults.
func Default() Config {
	return Config{
		KEpi:             4,
		KSem:             3,
		TokenBudget:      1600,
		EpisodicTTLDays:  30,
		EpisodicCapacity: 2000,
		RerankerEnabled:  false,
		PIIScrubAtIngest: true,
		SemFilters:       map[string]any{"tags": []any{"policy"}, "pii": false},
		TracePath:        "out/traces.jsonl",
	}
}

// Load builds a Config from defaults, an optional YAML file, and HM_*
// environment overrides, in that order. A missing file is not an error;
// an unreadable or malformed one is.
func Load(path string, logger *zap.Logger) (Config, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			logger.Debug("config file absent, using defaults", zap.String("path", path))
		case err != nil:
			return Config{}, err
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, err
			}
		}
	}

	cfg.applyEnv(logger)
	return cfg, nil
}

// applyEnv overlays HM_* environment variables onto the config.
func (c *Config) applyEnv(logger *zap.Logger) {
	c.KEpi = envInt("HM_K_EPI", c.KEpi, logger)
	c.KSem = envInt("HM_K_SEM", c.KSem, logger)
	c.TokenBudget = envInt("HM_TOKEN_BUDGET", c.TokenBudget, logger)
	c.EpisodicTTLDays = envInt("HM_EPISODIC_TTL_DAYS", c.EpisodicTTLDays, logger)
	c.EpisodicCapacity = envInt("HM_EPISODIC_CAPACITY", c.EpisodicCapacity, logger)
	c.RerankerEnabled = envBool("HM_RERANKER_ENABLED", c.RerankerEnabled)
	c.PIIScrubAtIngest = envBool("HM_PII_SCRUB", c.PIIScrubAtIngest)
	c.EpiFilters = envJSON("HM_EPI_FILTERS_JSON", c.EpiFilters, logger)
	c.SemFilters = envJSON("HM_SEM_FILTERS_JSON", c.SemFilters, logger)
	if v := os.Getenv("HM_TRACE_PATH"); v != "" {
		c.TracePath = v
	}
}

func envInt(name string, fallback int, logger *zap.Logger) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		logger.Warn("ignoring malformed integer override",
			zap.String("var", name),
			zap.String("value", raw))
		return fallback
	}
	return n
}

func envBool(name string, fallback bool) bool {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func envJSON(name string, fallback map[string]any, logger *zap.Logger) map[string]any {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		logger.Warn("ignoring malformed JSON override",
			zap.String("var", name),
			zap.Error(err))
		return fallback
	}
	return obj
}
