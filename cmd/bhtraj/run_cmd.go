package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/banshee-data/bhtraj/internal/chart"
	"github.com/banshee-data/bhtraj/internal/config"
	"github.com/banshee-data/bhtraj/internal/db"
	"github.com/banshee-data/bhtraj/internal/monitoring"
	"github.com/banshee-data/bhtraj/internal/oracle"
	"github.com/banshee-data/bhtraj/internal/runner"
)

// systemPlaceholder in an engine command line is replaced by the label.
const systemPlaceholder = "{system}"

func runFlags(fs *flag.FlagSet) (*config.RunConfig, *string) {
	flags := &config.RunConfig{
		System:        fs.String("system", config.DefaultSystem, "system label, e.g. lj75, blj100, blj30"),
		Steps:         fs.Int("niter", config.DefaultSteps, "number of basin-hopping iterations per run"),
		Runs:          fs.Int("runs", config.DefaultRuns, "number of independent runs"),
		Parallel:      fs.Int("parallel", config.DefaultParallel, "maximum runs in flight"),
		DBPath:        fs.String("db", config.DefaultDBPath, "trajectory store path (:memory: for a throwaway store)"),
		Engine:        fs.String("engine", "", "optimizer command line; "+systemPlaceholder+" is replaced by the label"),
		ProgressEvery: fs.Int("progress", config.DefaultProgressEvery, "log progress every N steps (0 disables)"),
		Plot:          fs.String("plot", "", "write an overlay chart of the label to this file afterwards"),
		Timeout:       fs.String("timeout", "", "stop runs after their current step once this duration passes, e.g. 2h"),
	}
	configPath := fs.String("config", "", "JSON run config; flags given explicitly override it")
	return flags, configPath
}

func cmdRun(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("run", stderr)
	flags, configPath := runFlags(fs)
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}

	cfg := &config.RunConfig{}
	if *configPath != "" {
		loaded, err := config.LoadRunConfig(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	cfg.Override(flags, set)
	if err := cfg.Validate(); err != nil {
		return usageError{err}
	}
	if cfg.GetEngine() == "" {
		return usagef("no optimizer engine: pass -engine or set \"engine\" in the config")
	}

	label := cfg.GetSystem()
	name, engineArgs, err := oracle.SplitCommand(strings.ReplaceAll(cfg.GetEngine(), systemPlaceholder, label))
	if err != nil {
		return usageError{err}
	}

	if d := cfg.GetTimeout(); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	store, err := db.NewDB(cfg.GetDBPath())
	if err != nil {
		return err
	}
	defer store.Close()

	monitoring.Logf("running %d x %d steps of %s (parallel %d) into %s",
		cfg.GetRuns(), cfg.GetSteps(), label, cfg.GetParallel(), cfg.GetDBPath())

	_, err = runner.RunBatch(ctx, store, runner.BatchOptions{
		Label:         label,
		Runs:          cfg.GetRuns(),
		Steps:         cfg.GetSteps(),
		Parallel:      cfg.GetParallel(),
		ProgressEvery: cfg.GetProgressEvery(),
		NewOracle: func(ctx context.Context, _ int) (runner.Oracle, error) {
			return oracle.StartProcess(ctx, name, engineArgs...)
		},
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout, "minimum energies found")
	if err := printRuns(stdout, store, label); err != nil {
		return err
	}

	if path := cfg.GetPlot(); path != "" {
		records, err := store.Query(label)
		if err != nil {
			return err
		}
		if err := chart.Save(path, label, records); err != nil {
			return fmt.Errorf("plot: %w", err)
		}
		fmt.Fprintf(stdout, "wrote %s\n", path)
	}
	return nil
}
