package commands

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/l3aro/go-cegar/internal/config"
	"github.com/l3aro/go-cegar/internal/healthcheck"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize cegar configuration interactively",
	Long: `Guides you through choosing the default abstract domain, refinement and
budgets, then saves them globally (~/.cegar/config.yaml) or for the current
project (./.cegar/config.yaml) and checks that the solver works.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInit(cmd.OutOrStdout())
	},
}

// initAnswers holds the values collected by the init form.
type initAnswers struct {
	Domain          string
	Refinement      string
	Search          string
	PredSplit       string
	PredAbstraction string
	MaxIterations   string
	IntWidth        string
	WarmStart       bool
	Scope           string
}

func defaultAnswers() initAnswers {
	cfg := config.DefaultConfig()
	return initAnswers{
		Domain:          string(cfg.Domain),
		Refinement:      string(cfg.Refinement),
		Search:          cfg.Search,
		PredSplit:       cfg.PredSplit,
		PredAbstraction: cfg.PredAbstraction,
		MaxIterations:   strconv.Itoa(cfg.MaxIterations),
		IntWidth:        strconv.Itoa(cfg.IntWidth),
		WarmStart:       cfg.WarmStart,
		Scope:           "project",
	}
}

func options[T ~string](values []T) []huh.Option[string] {
	out := make([]huh.Option[string], len(values))
	for i, v := range values {
		out[i] = huh.NewOption(string(v), string(v))
	}
	return out
}

func validateInt(lo, hi int) func(string) error {
	return func(s string) error {
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("not a number")
		}
		if n < lo || n > hi {
			return fmt.Errorf("must be between %d and %d", lo, hi)
		}
		return nil
	}
}

func runInit(w io.Writer) error {
	a := defaultAnswers()

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Abstract domain").
				Description("expl tracks variable values, pred tracks predicates, prod does both").
				Options(options(config.Domains)...).
				Value(&a.Domain),
			huh.NewSelect[string]().
				Title("Refinement").
				Description("newton-* and ucb need statements and only apply to cfa models").
				Options(options(config.Refinements)...).
				Value(&a.Refinement),
			huh.NewSelect[string]().
				Title("Search order").
				Options(options([]string{"bfs", "dfs", "target-first"})...).
				Value(&a.Search),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Predicate split").
				Description("How interpolants become predicates").
				Options(options([]string{"whole", "conjuncts", "atoms"})...).
				Value(&a.PredSplit),
			huh.NewSelect[string]().
				Title("Predicate abstraction").
				Options(options([]string{"cartesian", "boolean"})...).
				Value(&a.PredAbstraction),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Iteration budget (0 for unbounded)").
				Validate(validateInt(0, 1<<20)).
				Value(&a.MaxIterations),
			huh.NewInput().
				Title("Integer bit width").
				Validate(validateInt(2, 63)).
				Value(&a.IntWidth),
			huh.NewConfirm().
				Title("Reuse learned precisions between runs?").
				Value(&a.WarmStart),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Save Configuration").
				Options(
					huh.NewOption("Project (./.cegar/config.yaml)", "project"),
					huh.NewOption("Global (~/.cegar/config.yaml)", "global"),
				).
				Value(&a.Scope),
		),
	)
	if err := form.Run(); err != nil {
		if err == huh.ErrUserAborted {
			fmt.Fprintln(w, "Cancelled.")
			return nil
		}
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	cfg, err := a.config()
	if err != nil {
		return err
	}
	configPath := config.ProjectConfigFilePath()
	if a.Scope == "global" {
		configPath = config.GlobalConfigFilePath()
	}

	fmt.Fprintln(w, "\n=== Configuration Preview ===")
	fmt.Fprintf(w, "Config path: %s\n", configPath)
	fmt.Fprintf(w, "Domain: %s\n", cfg.Domain)
	fmt.Fprintf(w, "Refinement: %s\n", cfg.Refinement)
	fmt.Fprintf(w, "Search: %s\n", cfg.Search)
	fmt.Fprintf(w, "Predicates: split %s, %s abstraction\n", cfg.PredSplit, cfg.PredAbstraction)
	fmt.Fprintf(w, "Budget: %d iterations, %d-bit integers\n", cfg.MaxIterations, cfg.IntWidth)
	fmt.Fprintf(w, "Warm start: %v\n", cfg.WarmStart)
	fmt.Fprintln(w, "================================")

	if err := cfg.Save(configPath); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Fprintf(w, "Configuration saved to: %s\n", configPath)

	fmt.Fprintln(w, "\n=== Running Health Check ===")
	result, err := healthcheck.Check(cfg, configPath, configPath)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	printHealth(w, result)
	return nil
}

// config converts the answers into a validated configuration.
func (a initAnswers) config() (*config.Config, error) {
	cfg := config.DefaultConfig()
	cfg.Domain = config.Domain(a.Domain)
	cfg.Refinement = config.Refinement(a.Refinement)
	cfg.Search = a.Search
	cfg.PredSplit = a.PredSplit
	cfg.PredAbstraction = a.PredAbstraction
	cfg.WarmStart = a.WarmStart

	var err error
	if cfg.MaxIterations, err = strconv.Atoi(a.MaxIterations); err != nil {
		return nil, fmt.Errorf("iteration budget: %w", err)
	}
	if cfg.IntWidth, err = strconv.Atoi(a.IntWidth); err != nil {
		return nil, fmt.Errorf("integer width: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func printHealth(w io.Writer, r *healthcheck.HealthCheckResult) {
	switch {
	case r.SavedPath != "":
		fmt.Fprintf(w, "\nConfig Scope: %s\n", r.SavedScope)
		fmt.Fprintf(w, "Config Path: %s\n", r.SavedPath)
	case r.EffectivePath != "":
		fmt.Fprintf(w, "\nConfig Scope: %s\n", r.EffectiveScope)
		fmt.Fprintf(w, "Config Path: %s\n", r.EffectivePath)
	default:
		fmt.Fprintln(w, "\nConfig: defaults (no config file)")
	}
	for _, c := range []healthcheck.ComponentStatus{r.Config, r.Solver, r.Store} {
		fmt.Fprintf(w, "\n%s: %s\n", c.Name, c.Status)
		if c.Detail != "" {
			fmt.Fprintf(w, "  %s\n", c.Detail)
		}
		if c.Error != "" {
			fmt.Fprintf(w, "  Error: %s\n", c.Error)
		}
	}
}
