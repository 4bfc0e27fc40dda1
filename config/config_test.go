package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithoutFileOrEnv(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.KEpi)
	assert.Equal(t, 3, cfg.KSem)
	assert.Equal(t, 1600, cfg.TokenBudget)
	assert.Equal(t, 30, cfg.EpisodicTTLDays)
	assert.Equal(t, 2000, cfg.EpisodicCapacity)
	assert.False(t, cfg.RerankerEnabled)
	assert.True(t, cfg.PIIScrubAtIngest)
	assert.Equal(t, "out/traces.jsonl", cfg.TracePath)
	assert.Equal(t, map[string]any{"tags": []any{"policy"}, "pii": false}, cfg.SemFilters)
}

func TestLoad_MissingFileIsNotAnError(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	require.NoError(t, err)
	assert.Equal(t, Default().KEpi, cfg.KEpi)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
k_epi: 7
token_budget: 800
reranker_enabled: true
sem_filters:
  tags: [runbook]
trace_path: /tmp/t.jsonl
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.KEpi)
	assert.Equal(t, 3, cfg.KSem, "untouched keys keep defaults")
	assert.Equal(t, 800, cfg.TokenBudget)
	assert.True(t, cfg.RerankerEnabled)
	assert.Equal(t, "/tmp/t.jsonl", cfg.TracePath)
	assert.Equal(t, map[string]any{"tags": []any{"runbook"}}, cfg.SemFilters)
}

func TestLoad_MalformedYAMLFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("k_epi: [not an int"), 0o644))

	_, err := Load(path, nil)
	assert.Error(t, err)
}

func TestLoad_EnvOverridesEverything(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("k_epi: 7"), 0o644))

	t.Setenv("HM_K_EPI", "9")
	t.Setenv("HM_TOKEN_BUDGET", "512")
	t.Setenv("HM_RERANKER_ENABLED", "true")
	t.Setenv("HM_PII_SCRUB", "off")
	t.Setenv("HM_SEM_FILTERS_JSON", `{"tags":["runbook"],"pii":false}`)
	t.Setenv("HM_TRACE_PATH", "out/other.jsonl")

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, 9, cfg.KEpi, "env wins over file")
	assert.Equal(t, 512, cfg.TokenBudget)
	assert.True(t, cfg.RerankerEnabled)
	assert.False(t, cfg.PIIScrubAtIngest)
	assert.Equal(t, map[string]any{"tags": []any{"runbook"}, "pii": false}, cfg.SemFilters)
	assert.Equal(t, "out/other.jsonl", cfg.TracePath)
}

func TestLoad_MalformedEnvKeepsPreviousValue(t *testing.T) {
	t.Setenv("HM_K_EPI", "not-a-number")
	t.Setenv("HM_SEM_FILTERS_JSON", "{broken")

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, Default().KEpi, cfg.KEpi)
	assert.Equal(t, Default().SemFilters, cfg.SemFilters)
}
