package oracle

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/banshee-data/bhtraj/internal/monitoring"
)

// ProcessOracle runs an engine as a child process and drives it over its
// stdin and stdout. Lines the engine writes to stderr are logged.
type ProcessOracle struct {
	*LineOracle

	cmd   *exec.Cmd
	stdin io.WriteCloser

	closeOnce sync.Once
	closeErr  error
	stderrWg  sync.WaitGroup
}

// SplitCommand splits an engine command line such as "python bh_engine.py
// --system lj75" into a program name and arguments.
func SplitCommand(command string) (string, []string, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return "", nil, errors.New("empty engine command")
	}
	return fields[0], fields[1:], nil
}

// StartProcess starts name with args. Cancelling ctx does not signal the
// engine: callers stop between steps and Close ends the process, so a step
// in flight always completes.
func StartProcess(ctx context.Context, name string, args ...string) (*ProcessOracle, error) {
	cmd := exec.CommandContext(context.WithoutCancel(ctx), name, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("engine stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("engine stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("engine stderr: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start engine %s: %w", name, err)
	}

	p := &ProcessOracle{
		LineOracle: NewLineOracle(stdout, stdin),
		cmd:        cmd,
		stdin:      stdin,
	}
	p.stderrWg.Add(1)
	go p.logStderr(stderr)

	monitoring.Logf("started engine %s (pid %d)", name, cmd.Process.Pid)
	return p, nil
}

func (p *ProcessOracle) logStderr(r io.Reader) {
	defer p.stderrWg.Done()
	scan := bufio.NewScanner(r)
	for scan.Scan() {
		monitoring.Logf("engine[%d]: %s", p.cmd.Process.Pid, scan.Text())
	}
}

// Close asks the engine to quit, closes its stdin and waits for it to exit.
// It is safe to call more than once.
func (p *ProcessOracle) Close() error {
	p.closeOnce.Do(func() {
		if err := p.SendCommand(CmdQuit); err != nil {
			monitoring.Logf("engine quit: %v", err)
		}
		_ = p.stdin.Close()
		// stderr must be drained before Wait closes the pipe
		p.stderrWg.Wait()
		p.closeErr = p.cmd.Wait()
	})
	return p.closeErr
}
