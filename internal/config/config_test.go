package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l3aro/go-cegar/pkg/cegar"
)

// isolate points HOME and the working directory at empty temp dirs and
// clears CEGAR_* variables.
func isolate(t *testing.T) (home, project string) {
	t.Helper()
	home, project = t.TempDir(), t.TempDir()
	t.Setenv("HOME", home)
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(project))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	for _, name := range []string{
		"CEGAR_DOMAIN", "CEGAR_REFINEMENT", "CEGAR_SEARCH", "CEGAR_PRED_SPLIT", "CEGAR_PRED_ABSTRACTION", "CEGAR_FIRST_CEX",
		"CEGAR_MAX_ITERATIONS", "CEGAR_TIMEOUT", "CEGAR_INT_WIDTH", "CEGAR_SOLVER_TIMEOUT", "CEGAR_MAX_ENUM",
		"CEGAR_CACHE_SIZE", "CEGAR_CACHE_DIR", "CEGAR_WARM_START", "CEGAR_LOG_LEVEL", "CEGAR_JSON_LOGS",
	} {
		t.Setenv(name, "")
	}
	return home, project
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name     string
		got      any
		expected any
	}{
		{"Domain", cfg.Domain, DomainExpl},
		{"Refinement", cfg.Refinement, RefinementSeqItp},
		{"Search", cfg.Search, "bfs"},
		{"PredSplit", cfg.PredSplit, "whole"},
		{"PredAbstraction", cfg.PredAbstraction, "cartesian"},
		{"MaxIterations", cfg.MaxIterations, 100},
		{"IntWidth", cfg.IntWidth, 16},
		{"CacheSize", cfg.CacheSize, 10000},
		{"WarmStart", cfg.WarmStart, false},
		{"LogLevel", cfg.LogLevel, "info"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.got)
		})
	}
	require.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		errContains string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"pred with newton", func(c *Config) { c.Domain, c.Refinement = DomainPred, RefinementNewtonWPLV }, ""},
		{"prod with unsat core", func(c *Config) { c.Domain, c.Refinement = DomainProd, RefinementUnsatCore }, ""},
		{"unknown domain", func(c *Config) { c.Domain = "zone" }, "domain must be one of"},
		{"unknown refinement", func(c *Config) { c.Refinement = "bw-bin-itp" }, "refinement must be one of"},
		{"pred with unsat core", func(c *Config) { c.Domain, c.Refinement = DomainPred, RefinementUnsatCore }, "cannot refine"},
		{"search", func(c *Config) { c.Search = "random" }, "search"},
		{"split", func(c *Config) { c.PredSplit = "halves" }, "pred_split"},
		{"abstraction", func(c *Config) { c.PredAbstraction = "exact" }, "pred_abstraction"},
		{"log level", func(c *Config) { c.LogLevel = "chatty" }, "log_level"},
		{"iterations", func(c *Config) { c.MaxIterations = -1 }, "max_iterations"},
		{"timeout", func(c *Config) { c.SolverTimeout = -time.Second }, "timeouts"},
		{"width too small", func(c *Config) { c.IntWidth = 1 }, "int_width"},
		{"width too large", func(c *Config) { c.IntWidth = 64 }, "int_width"},
		{"max enum", func(c *Config) { c.MaxEnum = -2 }, "max_enum"},
		{"cache size", func(c *Config) { c.CacheSize = -2 }, "cache_size"},
		{"warm start without dir", func(c *Config) { c.WarmStart, c.CacheDir = true, "" }, "cache_dir"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errContains == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, cegar.ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestNeedsStmts(t *testing.T) {
	for _, r := range Refinements {
		want := r != RefinementSeqItp && r != RefinementUnsatCore
		assert.Equal(t, want, r.NeedsStmts(), r)
	}
}

func TestLoadPriority(t *testing.T) {
	home, project := isolate(t)
	write(t, filepath.Join(home, ".cegar", "config.yaml"), "domain: pred\nmax_iterations: 7\nint_width: 12\n")
	write(t, filepath.Join(project, ".cegar", "config.yaml"), "max_iterations: 9\ntimeout: 30s\n")
	t.Setenv("CEGAR_INT_WIDTH", "20")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DomainPred, cfg.Domain, "global file")
	assert.Equal(t, 9, cfg.MaxIterations, "project file overrides global")
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 20, cfg.IntWidth, "environment overrides files")
	assert.Equal(t, RefinementSeqItp, cfg.Refinement, "default")
}

func TestLoadWithoutFiles(t *testing.T) {
	isolate(t)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DomainExpl, cfg.Domain)
}

func TestEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("CEGAR_DOMAIN", "prod")
	t.Setenv("CEGAR_REFINEMENT", "newton-it-sp")
	t.Setenv("CEGAR_SEARCH", "dfs")
	t.Setenv("CEGAR_PRED_SPLIT", "atoms")
	t.Setenv("CEGAR_PRED_ABSTRACTION", "boolean")
	t.Setenv("CEGAR_FIRST_CEX", "true")
	t.Setenv("CEGAR_MAX_ITERATIONS", "3")
	t.Setenv("CEGAR_TIMEOUT", "1m")
	t.Setenv("CEGAR_SOLVER_TIMEOUT", "250ms")
	t.Setenv("CEGAR_MAX_ENUM", "64")
	t.Setenv("CEGAR_CACHE_SIZE", "0")
	t.Setenv("CEGAR_CACHE_DIR", "/tmp/precs")
	t.Setenv("CEGAR_WARM_START", "yes")
	t.Setenv("CEGAR_LOG_LEVEL", "debug")
	t.Setenv("CEGAR_JSON_LOGS", "1")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, &Config{
		Domain:          DomainProd,
		Refinement:      RefinementNewtonITSP,
		Search:          "dfs",
		PredSplit:       "atoms",
		PredAbstraction: "boolean",
		FirstCex:        true,
		MaxIterations:   3,
		Timeout:         time.Minute,
		IntWidth:        16,
		SolverTimeout:   250 * time.Millisecond,
		MaxEnum:         64,
		CacheSize:       0,
		CacheDir:        "/tmp/precs",
		WarmStart:       true,
		LogLevel:        "debug",
		JSONLogs:        true,
	}, cfg)
}

func TestEnvOverridesMalformed(t *testing.T) {
	tests := map[string]string{
		"CEGAR_MAX_ITERATIONS": "many",
		"CEGAR_TIMEOUT":        "soon",
		"CEGAR_INT_WIDTH":      "1.5",
	}
	for name, value := range tests {
		t.Run(name, func(t *testing.T) {
			isolate(t)
			t.Setenv(name, value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), name)
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	isolate(t)
	dir := t.TempDir()

	path := filepath.Join(dir, "run.yaml")
	write(t, path, "domain: pred\nrefinement: ucb\npred_split: conjuncts\n")
	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, DomainPred, cfg.Domain)
	assert.Equal(t, RefinementUCB, cfg.Refinement)
	assert.Equal(t, "conjuncts", cfg.PredSplit)

	_, err = LoadFromFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	write(t, bad, "domain: [expl\n")
	_, err = LoadFromFile(bad)
	assert.ErrorContains(t, err, "failed to parse")

	invalidPath := filepath.Join(dir, "invalid.yaml")
	write(t, invalidPath, "domain: zone\n")
	_, err = LoadFromFile(invalidPath)
	assert.ErrorIs(t, err, cegar.ErrInvalidConfig)
}

func TestSaveRoundTrip(t *testing.T) {
	isolate(t)
	cfg := DefaultConfig()
	cfg.Domain = DomainProd
	cfg.Timeout = 90 * time.Second
	cfg.WarmStart = true

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, cfg.Save(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
