// Package oracle adapts external basin-hopping engines to the runner's
// stepping oracle interface. The optimizer itself always lives outside this
// module; these adapters only speak to it.
package oracle

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
)

var (
	// ErrWriteFailed is returned when a command cannot be sent to the engine.
	ErrWriteFailed = errors.New("failed to write to engine")
	// ErrEngine is returned when the engine answers a command with an error line.
	ErrEngine = errors.New("engine reported an error")
	// ErrProtocol is returned for replies that are not a single energy value.
	ErrProtocol = errors.New("malformed engine reply")
)

// Engine commands. Every command gets exactly one reply line.
const (
	CmdStep = "step"
	CmdBest = "best"
	CmdQuit = "quit"
)

// LineOracle talks to an engine over a newline-delimited text protocol:
//
//	> step
//	< -397.4920
//	> best
//	< -397.4920
//
// A reply beginning with "error" reports an engine failure. Commands are
// serialised, so a LineOracle may be shared by goroutines, but the engine
// state it drives still belongs to one run.
type LineOracle struct {
	w io.Writer
	r *bufio.Reader

	commandMu sync.Mutex
}

// NewLineOracle returns an oracle reading replies from r and writing
// commands to w.
func NewLineOracle(r io.Reader, w io.Writer) *LineOracle {
	return &LineOracle{w: w, r: bufio.NewReader(r)}
}

// Step asks the engine for one basin-hopping step and returns the energy of
// the state it accepted.
func (o *LineOracle) Step() (float64, error) {
	return o.request(CmdStep)
}

// CurrentBestEnergy asks the engine for the lowest energy it has found.
func (o *LineOracle) CurrentBestEnergy() (float64, error) {
	return o.request(CmdBest)
}

// SendCommand writes a raw command line without waiting for a reply.
func (o *LineOracle) SendCommand(command string) error {
	o.commandMu.Lock()
	defer o.commandMu.Unlock()
	return o.send(command)
}

func (o *LineOracle) send(command string) error {
	if !strings.HasSuffix(command, "\n") {
		command += "\n"
	}
	if _, err := io.WriteString(o.w, command); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	return nil
}

func (o *LineOracle) request(command string) (float64, error) {
	o.commandMu.Lock()
	defer o.commandMu.Unlock()

	if err := o.send(command); err != nil {
		return 0, err
	}

	line, err := o.r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return 0, fmt.Errorf("read reply to %q: %w", command, err)
	}
	return parseReply(line)
}

func parseReply(line string) (float64, error) {
	line = strings.TrimSpace(line)
	if msg, ok := strings.CutPrefix(line, "error"); ok {
		msg = strings.TrimLeft(msg, ": ")
		if msg == "" {
			return 0, ErrEngine
		}
		return 0, fmt.Errorf("%w: %s", ErrEngine, msg)
	}
	v, err := strconv.ParseFloat(line, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrProtocol, line)
	}
	return v, nil
}
