// Package runner executes external commands with bounded runtimes and
// captured output. Failures are reported through the exit code rather
// than an error value so callers can treat every invocation uniformly.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// ExitTimeout is the synthetic exit code reported when a command is
	// killed because its deadline expired.
	ExitTimeout = 124

	// ExitNotFound is the synthetic exit code reported when a command
	// could not be located or launched at all.
	ExitNotFound = 127

	// DefaultTimeout applies when a Spec does not set one.
	DefaultTimeout = 20 * time.Second

	// DefaultWaitDelay bounds how long Wait blocks on pipe copying after
	// the process has been killed. Without it a grandchild holding the
	// inherited pipes can stall a timed-out invocation indefinitely.
	DefaultWaitDelay = 2 * time.Second

	// TailLimit is the maximum number of trailing output characters
	// returned to API callers for long-running tool invocations.
	TailLimit = 4000
)

// Result is the outcome of one command invocation. Stdout and Stderr are
// whitespace-trimmed captures of the full output.
type Result struct {
	Code   int    `json:"returncode"`
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
}

// OK reports whether the command exited successfully.
func (r Result) OK() bool {
	return r.Code == 0
}

// Spec describes a single invocation as an argument vector. No shell is
// involved, so arguments never need quoting.
type Spec struct {
	// Args is the argument vector. Args[0] is the executable.
	Args []string

	// Timeout bounds the invocation. Zero means DefaultTimeout.
	Timeout time.Duration

	// Env entries overlay the inherited process environment. Keys set
	// here win over inherited values of the same name.
	Env map[string]string
}

// Runner executes external commands. Implementations never return an
// error: every failure mode is folded into the Result exit code.
type Runner interface {
	Run(ctx context.Context, spec Spec) Result
}

// Exec is the host-process Runner backed by os/exec.
type Exec struct {
	// WaitDelay bounds post-kill output collection. Zero means
	// DefaultWaitDelay.
	WaitDelay time.Duration

	// Observe, when set, is called once per invocation with the argument
	// vector and the resolved exit code.
	Observe func(args []string, code int)
}

// New returns an Exec runner with default settings.
func New() *Exec {
	return &Exec{}
}

// Run executes the spec and reports its outcome. A deadline expiry maps
// to ExitTimeout with any partial output retained, and a launch failure
// maps to ExitNotFound with the failure text on stderr.
func (e *Exec) Run(ctx context.Context, spec Spec) Result {
	res := e.run(ctx, spec)
	if e.Observe != nil {
		e.Observe(spec.Args, res.Code)
	}
	return res
}

func (e *Exec) run(ctx context.Context, spec Spec) Result {
	if len(spec.Args) == 0 {
		return Result{Code: ExitNotFound, Stderr: "empty command"}
	}

	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, spec.Args[0], spec.Args[1:]...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if len(spec.Env) > 0 {
		cmd.Env = overlayEnv(spec.Env)
	}

	delay := e.WaitDelay
	if delay <= 0 {
		delay = DefaultWaitDelay
	}
	cmd.WaitDelay = delay

	err := cmd.Run()

	res := Result{
		Stdout: strings.TrimSpace(stdout.String()),
		Stderr: strings.TrimSpace(stderr.String()),
	}

	switch {
	case err == nil:
		res.Code = 0
	case runCtx.Err() != nil:
		res.Code = ExitTimeout
		if res.Stderr == "" {
			if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
				res.Stderr = fmt.Sprintf("command timed out after %s", timeout)
			} else {
				res.Stderr = "command canceled"
			}
		}
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.Code = exitErr.ExitCode()
		} else {
			// Lookup, permission, and other pre-exec failures.
			res.Code = ExitNotFound
			if res.Stderr == "" {
				res.Stderr = err.Error()
			}
		}
	}
	return res
}

// overlayEnv appends the overlay entries after the inherited environment
// in sorted key order. Later entries win for duplicate keys.
func overlayEnv(overlay map[string]string) []string {
	keys := make([]string, 0, len(overlay))
	for k := range overlay {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := os.Environ()
	for _, k := range keys {
		env = append(env, k+"="+overlay[k])
	}
	return env
}

// Tail returns at most n trailing characters of s, aligned to a rune
// boundary so truncation never splits a multi-byte character.
func Tail(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	i := len(s) - n
	for i < len(s) && !utf8.RuneStart(s[i]) {
		i++
	}
	return s[i:]
}
