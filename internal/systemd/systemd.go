// Package systemd queries and controls configured units through the
// systemctl binary, in either the system-wide or the per-user manager
// instance.
package systemd

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	"condash/internal/models"
	"condash/internal/runner"
)

const (
	// StatusTimeout bounds one is-active query.
	StatusTimeout = 15 * time.Second

	// ActionTimeout bounds one start/stop/restart invocation.
	ActionTimeout = 30 * time.Second
)

var (
	// ErrInvalidScope rejects scopes other than system and user.
	ErrInvalidScope = errors.New("invalid scope")

	// ErrInvalidAction rejects verbs other than start, stop and restart.
	ErrInvalidAction = errors.New("invalid action")
)

// Client drives systemctl and journalctl for the configured units.
type Client struct {
	// SystemctlPath is the systemctl executable.
	SystemctlPath string

	// JournalctlPath is the journalctl executable used for log streaming.
	JournalctlPath string

	// Runner executes the bounded invocations.
	Runner runner.Runner
}

// New returns a Client using the standard binary names.
func New(r runner.Runner) *Client {
	return &Client{
		SystemctlPath:  "systemctl",
		JournalctlPath: "journalctl",
		Runner:         r,
	}
}

// Available reports whether systemctl is present on this host.
func Available() bool {
	_, err := exec.LookPath("systemctl")
	return err == nil
}

// command runs one systemctl subcommand, adding --user for user scope.
func (c *Client) command(ctx context.Context, scope models.Scope, timeout time.Duration, args ...string) runner.Result {
	argv := []string{c.SystemctlPath}
	if scope == models.ScopeUser {
		argv = append(argv, "--user")
	}
	argv = append(argv, args...)
	return c.Runner.Run(ctx, runner.Spec{Args: argv, Timeout: timeout})
}

// Status queries the unit's active state. On query failure the status
// falls back to whatever the tool printed, or "unknown" when it printed
// nothing, so a broken unit still renders.
func (c *Client) Status(ctx context.Context, spec models.ServiceSpec) models.ServiceStatus {
	res := c.command(ctx, spec.Scope, StatusTimeout, "is-active", spec.Name)
	status := res.Stdout
	if !res.OK() && status == "" {
		status = res.Stderr
		if status == "" {
			status = models.StatusUnknown
		}
	}
	return models.ServiceStatus{Scope: spec.Scope, Name: spec.Name, Status: status}
}

// StatusAll queries every spec in order. The result always has one entry
// per spec, in the same order.
func (c *Client) StatusAll(ctx context.Context, specs []models.ServiceSpec) []models.ServiceStatus {
	statuses := make([]models.ServiceStatus, 0, len(specs))
	for _, spec := range specs {
		statuses = append(statuses, c.Status(ctx, spec))
	}
	return statuses
}

// ActionOutcome reports an applied action together with a follow-up
// status snapshot taken immediately afterwards.
type ActionOutcome struct {
	OK     bool                 `json:"ok"`
	Code   int                  `json:"returncode"`
	Stdout string               `json:"stdout"`
	Stderr string               `json:"stderr"`
	Status models.ServiceStatus `json:"status"`
}

// Apply runs one control verb against a unit and then re-queries its
// status. Scope and action are validated; everything the tool reports,
// including failure, comes back through the outcome.
func (c *Client) Apply(ctx context.Context, scope models.Scope, name string, action models.Action) (ActionOutcome, error) {
	if !scope.Valid() {
		return ActionOutcome{}, ErrInvalidScope
	}
	if !action.Valid() {
		return ActionOutcome{}, ErrInvalidAction
	}

	res := c.command(ctx, scope, ActionTimeout, string(action), name)
	status := c.Status(ctx, models.ServiceSpec{Scope: scope, Name: name})
	return ActionOutcome{
		OK:     res.OK(),
		Code:   res.Code,
		Stdout: runner.Tail(res.Stdout, runner.TailLimit),
		Stderr: runner.Tail(res.Stderr, runner.TailLimit),
		Status: status,
	}, nil
}

// ParseServices parses the comma-separated services configuration value.
// Each item is "scope:name" or a bare unit name, which defaults to user
// scope. Empty items are skipped, whitespace is trimmed.
func ParseServices(raw string) []models.ServiceSpec {
	var specs []models.ServiceSpec
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		scope, name := models.ScopeUser, item
		if before, after, found := strings.Cut(item, ":"); found {
			if s := strings.TrimSpace(before); s != "" {
				scope = models.Scope(s)
			}
			name = strings.TrimSpace(after)
		}
		specs = append(specs, models.ServiceSpec{Scope: scope, Name: name})
	}
	return specs
}

// FormatServices renders specs back into the configuration form parsed
// by ParseServices.
func FormatServices(specs []models.ServiceSpec) string {
	items := make([]string, len(specs))
	for i, spec := range specs {
		items[i] = spec.String()
	}
	return strings.Join(items, ",")
}
