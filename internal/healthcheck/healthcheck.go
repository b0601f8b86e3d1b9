package healthcheck

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/l3aro/go-cegar/internal/config"
	"github.com/l3aro/go-cegar/pkg/expr"
	"github.com/l3aro/go-cegar/pkg/solver"
	"github.com/l3aro/go-cegar/pkg/solver/bitblast"
)

// ComponentStatus represents the health of one component a run depends on.
type ComponentStatus struct {
	Name   string
	Detail string
	Status string // "ready", "disabled" or "error"
	Error  string
}

// HealthCheckResult contains the full health check output for display.
type HealthCheckResult struct {
	SavedPath      string
	SavedScope     string // "global" or "project"
	EffectivePath  string
	EffectiveScope string // "global" or "project"
	Config         ComponentStatus
	Solver         ComponentStatus
	Store          ComponentStatus
}

// OK reports whether no component is in error.
func (r *HealthCheckResult) OK() bool {
	for _, c := range []ComponentStatus{r.Config, r.Solver, r.Store} {
		if c.Status == "error" {
			return false
		}
	}
	return true
}

// Check performs a health check against the given config.
// savedPath is where the user saved config (may be empty outside init).
// effectivePath is the config file actually in use (considering priority).
func Check(cfg *config.Config, savedPath string, effectivePath string) (*HealthCheckResult, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	result := &HealthCheckResult{
		SavedPath:      savedPath,
		SavedScope:     scopeFromPath(savedPath),
		EffectivePath:  effectivePath,
		EffectiveScope: scopeFromPath(effectivePath),
	}

	result.Config = checkConfig(cfg)
	result.Solver = checkSolver(cfg)
	result.Store = checkStore(cfg)
	return result, nil
}

// scopeFromPath determines "global" or "project" scope from a config file path.
// Returns empty string if path is empty.
func scopeFromPath(path string) string {
	if path == "" {
		return ""
	}

	home, err := os.UserHomeDir()
	if err == nil {
		globalDir := filepath.Join(home, ".cegar")
		if strings.HasPrefix(path, globalDir) {
			return "global"
		}
	}

	return "project"
}

func checkConfig(cfg *config.Config) ComponentStatus {
	status := ComponentStatus{
		Name:   "config",
		Detail: fmt.Sprintf("domain=%s refinement=%s search=%s", cfg.Domain, cfg.Refinement, cfg.Search),
		Status: "ready",
	}
	if err := cfg.Validate(); err != nil {
		status.Status = "error"
		status.Error = err.Error()
	}
	return status
}

// checkSolver decides two small queries at the configured width: x + 1 > x
// is satisfiable (x = 0) and x == x + 1 is not.
func checkSolver(cfg *config.Config) ComponentStatus {
	status := ComponentStatus{
		Name:   "solver",
		Detail: fmt.Sprintf("bitblast width=%d", cfg.IntWidth),
	}
	s := bitblast.New(bitblast.Options{Width: cfg.IntWidth, Timeout: cfg.SolverTimeout})
	x := expr.Ref(expr.NewVar("x", expr.IntType))
	next := expr.Add(x, expr.Int(1))

	queries := []struct {
		e    expr.Expr
		want solver.Status
	}{
		{expr.And(expr.Gt(next, x), expr.Eq(x, expr.Int(0))), solver.Sat},
		{expr.Eq(x, next), solver.Unsat},
	}
	for _, q := range queries {
		got, err := solver.CheckExpr(s, q.e)
		if err != nil {
			status.Status = "error"
			status.Error = err.Error()
			return status
		}
		if got != q.want {
			status.Status = "error"
			status.Error = fmt.Sprintf("%s: got %s, want %s", q.e, got, q.want)
			return status
		}
	}
	status.Status = "ready"
	return status
}

// checkStore makes sure learned precisions can be written.
func checkStore(cfg *config.Config) ComponentStatus {
	status := ComponentStatus{Name: "precision store", Detail: cfg.CacheDir}
	if !cfg.WarmStart {
		status.Status = "disabled"
		return status
	}
	if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
		status.Status = "error"
		status.Error = err.Error()
		return status
	}
	f, err := os.CreateTemp(cfg.CacheDir, ".probe-*")
	if err != nil {
		status.Status = "error"
		status.Error = err.Error()
		return status
	}
	f.Close()
	os.Remove(f.Name())
	status.Status = "ready"
	return status
}
