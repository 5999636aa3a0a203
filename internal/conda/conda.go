// Package conda inventories and provisions conda environments by driving
// the conda binary through the command runner.
package conda

import (
	"context"
	"time"

	"condash/internal/runner"
)

const (
	// DefaultPython is the interpreter version requested when a creation
	// request does not name one.
	DefaultPython = "3.11"

	// ListTimeout bounds environment listing invocations.
	ListTimeout = 30 * time.Second

	// ProbeTimeout bounds one interpreter health probe.
	ProbeTimeout = 8 * time.Second

	// CreateTimeout bounds environment creation, which resolves and
	// downloads packages.
	CreateTimeout = 10 * time.Minute

	// probeConcurrency bounds how many health probes run at once.
	probeConcurrency = 4
)

// autoAcceptTOS is overlaid on every invocation so fresh installations
// never stall on an interactive terms-of-service prompt.
var autoAcceptTOS = map[string]string{"CONDA_PLUGINS_AUTO_ACCEPT_TOS": "yes"}

// Client drives one conda installation.
type Client struct {
	// Bin is the conda executable, either an absolute path or a name
	// resolved through PATH.
	Bin string

	// Runner executes the invocations.
	Runner runner.Runner
}

// New returns a Client for the given conda binary.
func New(bin string, r runner.Runner) *Client {
	return &Client{Bin: bin, Runner: r}
}

// command runs one conda subcommand with the TOS auto-accept overlay.
func (c *Client) command(ctx context.Context, timeout time.Duration, args ...string) runner.Result {
	spec := runner.Spec{
		Args:    append([]string{c.Bin}, args...),
		Timeout: timeout,
		Env:     autoAcceptTOS,
	}
	return c.Runner.Run(ctx, spec)
}
