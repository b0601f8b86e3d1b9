package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/l3aro/go-cegar/internal/log"
	"github.com/l3aro/go-cegar/pkg/analysis/pred"
	"github.com/l3aro/go-cegar/pkg/arg"
	"github.com/l3aro/go-cegar/pkg/cegar"
	"github.com/l3aro/go-cegar/pkg/refinement"
	"github.com/l3aro/go-cegar/pkg/solver/bitblast"
)

// Domain is the abstract domain of a run.
type Domain string

const (
	DomainExpl Domain = "expl"
	DomainPred Domain = "pred"
	DomainProd Domain = "prod"
)

// Domains lists the supported domains.
var Domains = []Domain{DomainExpl, DomainPred, DomainProd}

// Refinement names a trace checker and the way its refutations are turned
// into precisions.
type Refinement string

const (
	RefinementSeqItp     Refinement = "seq-itp"
	RefinementUnsatCore  Refinement = "unsat-core"
	RefinementNewtonSP   Refinement = "newton-sp"
	RefinementNewtonWP   Refinement = "newton-wp"
	RefinementNewtonSPLV Refinement = "newton-sp-lv"
	RefinementNewtonWPLV Refinement = "newton-wp-lv"
	RefinementNewtonITSP Refinement = "newton-it-sp"
	RefinementUCB        Refinement = "ucb"
)

// Refinements lists the supported refinements.
var Refinements = []Refinement{
	RefinementSeqItp, RefinementUnsatCore,
	RefinementNewtonSP, RefinementNewtonWP, RefinementNewtonSPLV, RefinementNewtonWPLV, RefinementNewtonITSP,
	RefinementUCB,
}

// NeedsStmts reports whether the refinement works on statements, so that
// it only applies to models whose actions carry them.
func (r Refinement) NeedsStmts() bool {
	return r != RefinementSeqItp && r != RefinementUnsatCore
}

// Config holds all configuration for a verification run
type Config struct {
	Domain          Domain     `yaml:"domain" env:"CEGAR_DOMAIN"`
	Refinement      Refinement `yaml:"refinement" env:"CEGAR_REFINEMENT"`
	Search          string     `yaml:"search" env:"CEGAR_SEARCH"`
	PredSplit       string     `yaml:"pred_split" env:"CEGAR_PRED_SPLIT"`
	PredAbstraction string     `yaml:"pred_abstraction" env:"CEGAR_PRED_ABSTRACTION"`

	// FirstCex ends each abstraction at the first target node instead of
	// exploring the whole ARG.
	FirstCex bool `yaml:"first_cex" env:"CEGAR_FIRST_CEX"`

	// Budgets. Zero means unbounded.
	MaxIterations int           `yaml:"max_iterations" env:"CEGAR_MAX_ITERATIONS"`
	Timeout       time.Duration `yaml:"timeout" env:"CEGAR_TIMEOUT"`

	// Solver settings
	IntWidth      int           `yaml:"int_width" env:"CEGAR_INT_WIDTH"`
	SolverTimeout time.Duration `yaml:"solver_timeout" env:"CEGAR_SOLVER_TIMEOUT"`

	// MaxEnum bounds the successors an explicit transfer function
	// enumerates before it gives up on a variable. Zero means unbounded.
	MaxEnum int `yaml:"max_enum" env:"CEGAR_MAX_ENUM"`

	// CacheSize bounds the memoised transfer results; zero disables the cache.
	CacheSize int `yaml:"cache_size" env:"CEGAR_CACHE_SIZE"`

	// Learned precisions are stored under CacheDir and reused when WarmStart is set.
	CacheDir  string `yaml:"cache_dir" env:"CEGAR_CACHE_DIR"`
	WarmStart bool   `yaml:"warm_start" env:"CEGAR_WARM_START"`

	// Logging
	LogLevel string `yaml:"log_level" env:"CEGAR_LOG_LEVEL"`
	JSONLogs bool   `yaml:"json_logs" env:"CEGAR_JSON_LOGS"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Domain:          DomainExpl,
		Refinement:      RefinementSeqItp,
		Search:          arg.BFS.String(),
		PredSplit:       refinement.SplitWhole.String(),
		PredAbstraction: pred.Cartesian.String(),
		FirstCex:        false,
		MaxIterations:   100,
		Timeout:         0,
		IntWidth:        bitblast.DefaultWidth,
		SolverTimeout:   0,
		MaxEnum:         0,
		CacheSize:       10000,
		CacheDir:        defaultCacheDir(),
		WarmStart:       false,
		LogLevel:        "info",
		JSONLogs:        false,
	}
}

func defaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".cegar", "precs")
	}
	return filepath.Join(home, ".cegar", "precs")
}

// GlobalConfigFilePath returns the global config file path (~/.cegar/config.yaml)
func GlobalConfigFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".cegar", "config.yaml")
	}
	return filepath.Join(home, ".cegar", "config.yaml")
}

// ProjectConfigFilePath returns the project-level config file path (./.cegar/config.yaml)
func ProjectConfigFilePath() string {
	return filepath.Join(".cegar", "config.yaml")
}

// Load reads configuration with the following priority (highest to lowest):
// 1. Environment variables
// 2. Project-level config (./.cegar/config.yaml)
// 3. Global config (~/.cegar/config.yaml)
// 4. Defaults
func Load() (*Config, error) {
	return load(GlobalConfigFilePath(), ProjectConfigFilePath())
}

func load(paths ...string) (*Config, error) {
	cfg := DefaultConfig()
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile reads configuration from a specific YAML file path
func LoadFromFile(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return load(path)
}

// Save writes the configuration to the specified YAML file path.
// It creates parent directories if they don't exist.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides applies CEGAR_* environment variables to the config.
// Malformed numbers, durations and booleans are errors.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("CEGAR_DOMAIN"); v != "" {
		cfg.Domain = Domain(v)
	}
	if v := os.Getenv("CEGAR_REFINEMENT"); v != "" {
		cfg.Refinement = Refinement(v)
	}
	if v := os.Getenv("CEGAR_SEARCH"); v != "" {
		cfg.Search = v
	}
	if v := os.Getenv("CEGAR_PRED_SPLIT"); v != "" {
		cfg.PredSplit = v
	}
	if v := os.Getenv("CEGAR_PRED_ABSTRACTION"); v != "" {
		cfg.PredAbstraction = v
	}
	if v := os.Getenv("CEGAR_CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}
	if v := os.Getenv("CEGAR_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	ints := map[string]*int{
		"CEGAR_MAX_ITERATIONS": &cfg.MaxIterations,
		"CEGAR_INT_WIDTH":      &cfg.IntWidth,
		"CEGAR_MAX_ENUM":       &cfg.MaxEnum,
		"CEGAR_CACHE_SIZE":     &cfg.CacheSize,
	}
	for name, dst := range ints {
		if v := os.Getenv(name); v != "" {
			i, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			*dst = i
		}
	}

	durations := map[string]*time.Duration{
		"CEGAR_TIMEOUT":        &cfg.Timeout,
		"CEGAR_SOLVER_TIMEOUT": &cfg.SolverTimeout,
	}
	for name, dst := range durations {
		if v := os.Getenv(name); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			*dst = d
		}
	}

	bools := map[string]*bool{
		"CEGAR_FIRST_CEX":  &cfg.FirstCex,
		"CEGAR_WARM_START": &cfg.WarmStart,
		"CEGAR_JSON_LOGS":  &cfg.JSONLogs,
	}
	for name, dst := range bools {
		if v := os.Getenv(name); v != "" {
			*dst = parseBool(v)
		}
	}
	return nil
}

func parseBool(v string) bool {
	switch strings.ToLower(v) {
	case "true", "1", "yes", "on":
		return true
	}
	return false
}

// Validate checks that every option names a supported component and that
// the numeric settings are in range. Errors wrap cegar.ErrInvalidConfig.
func (c *Config) Validate() error {
	if !slices.Contains(Domains, c.Domain) {
		return invalid("domain must be one of %s, got %q", join(Domains), c.Domain)
	}
	if !slices.Contains(Refinements, c.Refinement) {
		return invalid("refinement must be one of %s, got %q", join(Refinements), c.Refinement)
	}
	if c.Refinement == RefinementUnsatCore && c.Domain == DomainPred {
		return invalid("refinement %s yields variables and cannot refine the %s domain", c.Refinement, c.Domain)
	}
	if _, err := arg.ParseSearch(c.Search); err != nil {
		return invalid("search: %v", err)
	}
	if _, err := refinement.ParseSplit(c.PredSplit); err != nil {
		return invalid("pred_split: %v", err)
	}
	if _, err := pred.ParseAbstraction(c.PredAbstraction); err != nil {
		return invalid("pred_abstraction: %v", err)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return invalid("log_level: %v", err)
	}

	if c.MaxIterations < 0 {
		return invalid("max_iterations must be non-negative")
	}
	if c.Timeout < 0 || c.SolverTimeout < 0 {
		return invalid("timeouts must be non-negative")
	}
	if c.IntWidth < 2 || c.IntWidth > 63 {
		return invalid("int_width must be between 2 and 63, got %d", c.IntWidth)
	}
	if c.MaxEnum < 0 {
		return invalid("max_enum must be non-negative")
	}
	if c.CacheSize < 0 {
		return invalid("cache_size must be non-negative")
	}
	if c.WarmStart && c.CacheDir == "" {
		return invalid("warm_start needs a cache_dir")
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", cegar.ErrInvalidConfig, fmt.Sprintf(format, args...))
}

func join[T ~string](xs []T) string {
	s := make([]string, len(xs))
	for i, x := range xs {
		s[i] = string(x)
	}
	return strings.Join(s, ", ")
}
