package gcode

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/fsandov/klipper-gotify/pkg/logs"
	"go.uber.org/zap"
)

type command struct {
	handler Handler
	desc    string
}

// commandRecorder is implemented by sinks that keep a history of issued commands.
type commandRecorder interface {
	RecordCommand(line string)
}

// Dispatcher is a minimal stand-in for the host's G-code dispatcher. Scripts
// run one at a time, in the order they were submitted.
type Dispatcher struct {
	runMu    sync.Mutex
	mu       sync.RWMutex
	commands map[string]command
	sink     ReportingSink
	logger   *logs.Logger
}

func NewDispatcher(sink ReportingSink, logger *logs.Logger) *Dispatcher {
	if logger == nil {
		logger = logs.GetLogger()
	}
	d := &Dispatcher{
		commands: make(map[string]command),
		sink:     sink,
		logger:   logger,
	}
	_ = d.RegisterCommand("HELP", d.cmdHelp, "Report the list of available extended G-Code commands")
	return d
}

func (d *Dispatcher) RegisterCommand(name string, handler Handler, desc string) error {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" {
		return fmt.Errorf("command name is required")
	}
	if handler == nil {
		return fmt.Errorf("command %s: handler is required", name)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.commands[name]; exists {
		return fmt.Errorf("gcode command %s already registered", name)
	}
	d.commands[name] = command{handler: handler, desc: desc}
	return nil
}

// Commands returns registered command names mapped to their help text.
func (d *Dispatcher) Commands() map[string]string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]string, len(d.commands))
	for name, c := range d.commands {
		out[name] = c.desc
	}
	return out
}

// Run executes script line by line and stops at the first failing command.
// The failure is reported on the sink's error channel and returned.
func (d *Dispatcher) Run(ctx context.Context, script string) error {
	d.runMu.Lock()
	defer d.runMu.Unlock()

	for _, line := range strings.Split(script, "\n") {
		if err := d.runLine(ctx, line); err != nil {
			d.sink.RespondError(err.Error())
			return err
		}
	}
	return nil
}

func (d *Dispatcher) runLine(ctx context.Context, line string) error {
	cmd, err := ParseLine(line)
	if err != nil {
		return &Error{Kind: KindCommand, Msg: err.Error(), Err: err}
	}
	if cmd == nil {
		return nil
	}
	if rec, ok := d.sink.(commandRecorder); ok {
		rec.RecordCommand(cmd.Raw)
	}

	d.mu.RLock()
	c, ok := d.commands[cmd.Name]
	d.mu.RUnlock()
	if !ok {
		return &Error{Kind: KindCommand, Msg: fmt.Sprintf("Unknown command:\"%s\"", cmd.Name)}
	}

	d.logger.Debug(ctx, "running gcode command", zap.String("command", cmd.Name))
	if err := c.handler(ctx, cmd.Params); err != nil {
		d.logger.Warn(ctx, "gcode command failed", zap.String("command", cmd.Name), zap.Error(err))
		return err
	}
	return nil
}

func (d *Dispatcher) cmdHelp(_ context.Context, _ Params) error {
	cmds := d.Commands()
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := []string{"Available extended commands:"}
	for _, name := range names {
		lines = append(lines, fmt.Sprintf("%-10s: %s", name, cmds[name]))
	}
	d.sink.RespondInfo(strings.Join(lines, "\n"))
	return nil
}
