package conda

import (
	"context"
	"errors"
	"strings"

	"condash/internal/runner"
)

// ErrInvalidName rejects environment names that are empty or contain
// separator characters.
var ErrInvalidName = errors.New("invalid environment name")

// nameUnsafe are the characters an environment name must not contain.
const nameUnsafe = " /\\:"

// CreateResult reports a provisioning attempt with bounded output tails
// for diagnostics.
type CreateResult struct {
	OK     bool   `json:"ok"`
	Code   int    `json:"returncode"`
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
}

// CreateEnv provisions a new environment with the given interpreter
// version and optional extra packages. An empty python selects
// DefaultPython. The only error is ErrInvalidName; tool failures are
// reported through the result.
func (c *Client) CreateEnv(ctx context.Context, name, python string, packages []string) (CreateResult, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.ContainsAny(name, nameUnsafe) {
		return CreateResult{}, ErrInvalidName
	}
	python = strings.TrimSpace(python)
	if python == "" {
		python = DefaultPython
	}

	args := []string{"create", "-n", name, "python=" + python, "-y"}
	for _, pkg := range packages {
		pkg = strings.TrimSpace(pkg)
		if pkg != "" {
			args = append(args, pkg)
		}
	}

	res := c.command(ctx, CreateTimeout, args...)
	return CreateResult{
		OK:     res.OK(),
		Code:   res.Code,
		Stdout: runner.Tail(res.Stdout, runner.TailLimit),
		Stderr: runner.Tail(res.Stderr, runner.TailLimit),
	}, nil
}
