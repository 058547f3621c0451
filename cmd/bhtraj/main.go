// Command bhtraj drives basin-hopping runs through an external optimizer,
// stores every run's energy trajectories and compares runs by label.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
)

const usage = `Usage: bhtraj <command> [flags]

Commands:
  run       Run basin hopping through an engine and store the trajectories
  import    Store trajectories recorded as CSV (accepted[,best] per row)
  list      Print the stored runs for a label, or all labels
  plot      Write an overlay chart (.png, .svg, .pdf or .html)
  serve     Serve the read API over HTTP and gRPC
  migrate   Manage the store schema (up, down, status, force N)
  version   Print build information

Run 'bhtraj <command> -h' for the flags of a command.`

type command func(ctx context.Context, args []string, stdout, stderr io.Writer) error

var commands = map[string]command{
	"run":     cmdRun,
	"import":  cmdImport,
	"list":    cmdList,
	"plot":    cmdPlot,
	"serve":   cmdServe,
	"migrate": cmdMigrate,
	"version": cmdVersion,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run dispatches args to a subcommand and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, usage)
		return 2
	}
	name := args[0]
	if name == "-h" || name == "--help" || name == "help" {
		fmt.Fprintln(stdout, usage)
		return 0
	}
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(stderr, "bhtraj: unknown command %q\n\n%s\n", name, usage)
		return 2
	}

	if err := cmd(ctx, args[1:], stdout, stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		var uerr usageError
		if errors.As(err, &uerr) {
			fmt.Fprintf(stderr, "bhtraj %s: %v\n", name, err)
			return 2
		}
		log.SetOutput(stderr)
		log.Printf("bhtraj %s: %v", name, err)
		return 1
	}
	return 0
}

// usageError marks errors caused by bad flags or arguments.
type usageError struct{ error }

func usagef(format string, v ...interface{}) error {
	return usageError{fmt.Errorf(format, v...)}
}

// parseArgs parses flags that may appear before, between or after the
// positional arguments, which it returns in order.
func parseArgs(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				return nil, err
			}
			return nil, usageError{err}
		}
		args = fs.Args()
		if len(args) == 0 {
			return positional, nil
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("bhtraj "+name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}
