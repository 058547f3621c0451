package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/banshee-data/bhtraj/internal/aggregate"
	"github.com/banshee-data/bhtraj/internal/chart"
	"github.com/banshee-data/bhtraj/internal/config"
	"github.com/banshee-data/bhtraj/internal/db"
	"github.com/banshee-data/bhtraj/internal/oracle"
	"github.com/banshee-data/bhtraj/internal/runner"
	"github.com/banshee-data/bhtraj/internal/version"
)

// cmdImport stores recorded trajectories. Each file is replayed through the
// run controller so imported runs get the same checks as live ones.
func cmdImport(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("import", stderr)
	system := fs.String("system", config.DefaultSystem, "label to store the runs under")
	dbPath := fs.String("db", config.DefaultDBPath, "trajectory store path")
	files, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return usagef("no CSV files given")
	}

	store, err := db.NewDB(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	c := &runner.Controller{}
	for _, path := range files {
		accepted, best, err := readTrajectoryFile(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		replay, err := oracle.NewReplay(accepted, best)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		rec, err := c.RunAndRecord(ctx, store, *system, replay, replay.Len())
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		fmt.Fprintf(stdout, "%s: stored %s (%d steps, final best %g)\n", path, rec.ID, rec.Length, rec.FinalBestEnergy)
	}
	return nil
}

func readTrajectoryFile(path string) (accepted, best []float64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	return oracle.ReadCSV(f)
}

func cmdList(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("list", stderr)
	system := fs.String("system", "", "label to list; all labels when empty")
	dbPath := fs.String("db", config.DefaultDBPath, "trajectory store path")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}

	store, err := db.NewDB(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if *system == "" {
		labels, err := store.Labels()
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "LABEL\tRUNS\tBEST")
		for _, l := range labels {
			fmt.Fprintf(tw, "%s\t%d\t%g\n", l.Label, l.Runs, l.BestFinalEnergy)
		}
		return tw.Flush()
	}

	if err := printRuns(stdout, store, *system); err != nil {
		return err
	}
	records, err := store.Query(*system)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}
	s, err := aggregate.Compute(records)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "runs=%d min=%g mean=%g stddev=%g median=%g hits=%d best=%s\n",
		s.Runs, s.MinFinal, s.MeanFinal, s.StdDevFinal, s.MedianFinal, s.HitsOfMinimum, s.BestRunID)
	return nil
}

// printRuns writes "length final_best_energy" for every run of label.
func printRuns(w io.Writer, q aggregate.Querier, label string) error {
	records, err := aggregate.New(q).Records(label)
	if err != nil {
		return err
	}
	for _, row := range aggregate.Summarize(records) {
		fmt.Fprintf(w, "%d %g\n", row.Length, row.FinalBestEnergy)
	}
	return nil
}

func cmdPlot(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("plot", stderr)
	system := fs.String("system", config.DefaultSystem, "label to plot")
	dbPath := fs.String("db", config.DefaultDBPath, "trajectory store path")
	out := fs.String("o", "", "output file; the extension picks the format (default <label>_trajectories.png)")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}
	if *out == "" {
		*out = chart.FileName(*system, "png")
	}

	store, err := db.NewDB(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.Query(*system)
	if err != nil {
		return err
	}
	if err := chart.Save(*out, *system, records); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %d runs of %s to %s\n", len(records), *system, *out)
	return nil
}

func cmdMigrate(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("migrate", stderr)
	dbPath := fs.String("db", config.DefaultDBPath, "trajectory store path")
	fs.Usage = func() { db.PrintMigrateHelp(stderr) }
	actions, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	return db.RunMigrateCommand(actions, *dbPath, stdout)
}

func cmdVersion(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fmt.Fprintf(stdout, "bhtraj %s\n", version.String())
	return nil
}
