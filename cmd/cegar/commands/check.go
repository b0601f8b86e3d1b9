package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-cegar/internal/config"
	"github.com/l3aro/go-cegar/internal/engine"
	"github.com/l3aro/go-cegar/internal/log"
	"github.com/l3aro/go-cegar/internal/model"
	"github.com/l3aro/go-cegar/internal/scanner"
	"github.com/l3aro/go-cegar/pkg/cegar"
)

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <model.yaml|dir>",
		Short: "Verify a model or a directory of models",
		Long: `Runs abstraction refinement on a model until the error states are proven
unreachable (SAFE), a real counterexample is found (UNSAFE), or a budget
runs out.

Given a directory, every model file below it is checked in turn. Files
are recognised by their kind field and .cegarignore files exclude paths
with gitignore-style patterns.

Flags override the configuration files (~/.cegar/config.yaml, then
./.cegar/config.yaml) and CEGAR_* environment variables.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, args[0])
		},
	}

	f := cmd.Flags()
	f.String("domain", "", "Abstract domain: expl, pred or prod")
	f.String("refinement", "", "Refinement: seq-itp, unsat-core, newton-sp, newton-wp, newton-sp-lv, newton-wp-lv, newton-it-sp or ucb")
	f.String("search", "", "Search order: bfs, dfs or target-first")
	f.String("pred-split", "", "Predicate split: whole, conjuncts or atoms")
	f.String("pred-abstraction", "", "Predicate abstraction: cartesian or boolean")
	f.Bool("first-cex", false, "Stop each abstraction at the first target")
	f.StringSlice("track", nil, "Variables tracked from the start (expl, prod)")
	f.StringArray("pred", nil, "Predicate tracked from the start, repeatable (pred, prod)")
	f.Int("max-iterations", 0, "Iteration budget, 0 for unbounded")
	f.Duration("timeout", 0, "Time budget, 0 for unbounded")
	f.Int("int-width", 0, "Bit width of integers")
	f.String("dot", "", "Write the final ARG in Graphviz format to this file")
	f.BoolP("json", "j", false, "Output as JSON")
	f.Bool("warm-start", false, "Reuse and store learned precisions")
	f.String("config", "", "Config file path")
	f.String("log-level", "", "Log level: debug, info, warn or error")
	return cmd
}

// loadConfig reads the configuration and applies the flags that were set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	f := cmd.Flags()
	path, _ := f.GetString("config")

	var cfg *config.Config
	var err error
	if path != "" {
		cfg, err = config.LoadFromFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	strs := map[string]*string{
		"search":           &cfg.Search,
		"pred-split":       &cfg.PredSplit,
		"pred-abstraction": &cfg.PredAbstraction,
		"log-level":        &cfg.LogLevel,
	}
	for name, dst := range strs {
		if f.Changed(name) {
			*dst, _ = f.GetString(name)
		}
	}
	if f.Changed("domain") {
		v, _ := f.GetString("domain")
		cfg.Domain = config.Domain(v)
	}
	if f.Changed("refinement") {
		v, _ := f.GetString("refinement")
		cfg.Refinement = config.Refinement(v)
	}
	if f.Changed("max-iterations") {
		cfg.MaxIterations, _ = f.GetInt("max-iterations")
	}
	if f.Changed("int-width") {
		cfg.IntWidth, _ = f.GetInt("int-width")
	}
	if f.Changed("timeout") {
		cfg.Timeout, _ = f.GetDuration("timeout")
	}
	if f.Changed("first-cex") {
		cfg.FirstCex, _ = f.GetBool("first-cex")
	}
	if f.Changed("warm-start") {
		cfg.WarmStart, _ = f.GetBool("warm-start")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runCheck(cmd *cobra.Command, path string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	f := cmd.Flags()
	jsonOutput, _ := f.GetBool("json")
	dotPath, _ := f.GetString("dot")
	track, _ := f.GetStringSlice("track")
	preds, _ := f.GetStringArray("pred")

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() && dotPath != "" {
		return fmt.Errorf("--dot needs a single model, %s is a directory", path)
	}

	level, _ := log.ParseLevel(cfg.LogLevel)
	stderr := cmd.ErrOrStderr()

	// On a terminal the spinner reports progress in place of info logs.
	var spinner *log.ProgressSpinner
	if !jsonOutput && !cfg.JSONLogs && log.IsTerminal(stderr) {
		spinner = log.NewProgressSpinner(stderr, "checking " + path)
		if level == log.InfoLevel {
			level = log.WarnLevel
		}
		spinner.Start()
		defer spinner.Stop()
	}

	c := &checker{
		cfg:     cfg,
		logger:  log.New(log.LoggerConfig{Level: level, JSONOutput: cfg.JSONLogs, Output: stderr}),
		spinner: spinner,
		opts:    engine.Options{Track: track, Preds: preds},
	}
	if info.IsDir() {
		return c.checkDir(cmd, path, jsonOutput)
	}

	res, err := c.checkFile(cmd.Context(), path)
	if spinner != nil {
		spinner.Stop()
	}
	if err != nil {
		if cegar.IsInconclusive(err) {
			printUnknown(cmd.OutOrStdout(), jsonOutput, err)
		}
		return err
	}

	if dotPath != "" {
		if err := writeDot(dotPath, res); err != nil {
			return err
		}
		c.logger.Debug("wrote ARG", "path", dotPath)
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	printResult(cmd.OutOrStdout(), path, res)
	return nil
}

// checker runs the configured engine on one model at a time.
type checker struct {
	cfg     *config.Config
	logger  log.Logger
	spinner *log.ProgressSpinner
	opts    engine.Options
}

func (c *checker) checkFile(ctx context.Context, path string) (*engine.Result, error) {
	m, err := model.Load(path)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("model loaded", "path", path, "kind", m.Kind, "vars", len(m.Vars), "hash", m.Hash)

	opts := c.opts
	opts.Logger = c.logger
	if c.spinner != nil {
		opts.Progress = func(info cegar.IterationInfo) {
			c.spinner.Message(fmt.Sprintf("%s: iteration %d: %s, %d nodes", path, info.Iteration, info.Status, info.ARG.Nodes))
		}
	}
	run, err := engine.Build(c.cfg, m, opts)
	if err != nil {
		return nil, err
	}
	return run.Check(ctx)
}

// report is the outcome for one model of a directory check.
type report struct {
	Path    string         `json:"path"`
	Verdict string         `json:"verdict"`
	Error   string         `json:"error,omitempty"`
	Result  *engine.Result `json:"result,omitempty"`
}

// checkDir checks every model below dir in turn. Inconclusive models are
// reported as unknown; any other failure makes the command fail after all
// models ran.
func (c *checker) checkDir(cmd *cobra.Command, dir string, jsonOutput bool) error {
	files, err := scanner.Scan(dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no models found in %s", dir)
	}
	c.logger.Info("checking models", "dir", dir, "count", len(files))

	reports := make([]report, 0, len(files))
	failed := 0
	for _, file := range files {
		if err := cmd.Context().Err(); err != nil {
			return err
		}
		r := report{Path: file.Path}
		res, err := c.checkFile(cmd.Context(), file.FullPath)
		switch {
		case err == nil:
			r.Verdict, r.Result = res.Verdict, res
		case cegar.IsInconclusive(err):
			r.Verdict, r.Error = "unknown", err.Error()
		default:
			r.Verdict, r.Error = "error", err.Error()
			failed++
			c.logger.Error("model failed", "path", file.Path, "error", err)
		}
		reports = append(reports, r)
	}
	if c.spinner != nil {
		c.spinner.Stop()
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(reports); err != nil {
			return err
		}
	} else {
		printReports(cmd.OutOrStdout(), reports)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d models failed", failed, len(files))
	}
	return nil
}

func printReports(w io.Writer, reports []report) {
	width := 0
	for _, r := range reports {
		width = max(width, len(r.Path))
	}
	counts := make(map[string]int)
	for _, r := range reports {
		counts[r.Verdict]++
		detail := r.Error
		if r.Result != nil {
			detail = fmt.Sprintf("%d iterations, %s", r.Result.Stats.Iterations, r.Result.ARG)
		}
		fmt.Fprintf(w, "%-*s  %-7s  %s\n", width, r.Path, strings.ToUpper(r.Verdict), detail)
	}
	fmt.Fprintf(w, "\n%d models: %d safe, %d unsafe, %d unknown, %d errors\n",
		len(reports), counts["safe"], counts["unsafe"], counts["unknown"], counts["error"])
}

func writeDot(path string, res *engine.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := res.WriteDot(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

func printUnknown(w io.Writer, jsonOutput bool, err error) {
	reason := err.Error()
	var unwrapped error = err
	for errors.Unwrap(unwrapped) != nil {
		unwrapped = errors.Unwrap(unwrapped)
	}
	if jsonOutput {
		data, _ := json.MarshalIndent(map[string]any{"safe": nil, "verdict": "unknown", "reason": reason}, "", "  ")
		fmt.Fprintln(w, string(data))
		return
	}
	fmt.Fprintf(w, "Verdict:     UNKNOWN (%s)\n", unwrapped)
}

func printResult(w io.Writer, path string, res *engine.Result) {
	fmt.Fprintf(w, "Model:       %s\n", path)
	fmt.Fprintf(w, "Verdict:     %s\n", strings.ToUpper(res.Verdict))
	fmt.Fprintf(w, "Iterations:  %d\n", res.Stats.Iterations)
	fmt.Fprintf(w, "Time:        abstraction %s, refinement %s\n", res.Stats.AbstractionTime, res.Stats.RefinementTime)
	fmt.Fprintf(w, "ARG:         %s\n", res.ARG)
	fmt.Fprintf(w, "Precision:   %s\n", res.Prec)
	if res.Cache.Hits+res.Cache.Misses > 0 {
		fmt.Fprintf(w, "Cache:       %d entries, hit rate %.0f%%\n", res.Cache.Length, 100*res.Cache.HitRate())
	}
	if res.Safe {
		return
	}

	fmt.Fprintln(w, "\nCounterexample:")
	for i, step := range res.Cex {
		fmt.Fprintf(w, "  %3d  %s\n", i, formatValues(step.Values))
		if step.Action != "" {
			fmt.Fprintf(w, "       %s\n", step.Action)
		}
	}
}

func formatValues(vals map[string]string) string {
	names := make([]string, 0, len(vals))
	for name := range vals {
		names = append(names, name)
	}
	slices.Sort(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + "=" + vals[name]
	}
	return strings.Join(parts, " ")
}
