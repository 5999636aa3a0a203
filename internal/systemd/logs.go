package systemd

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strconv"

	"condash/internal/models"
)

// DefaultLogLines is how much journal history a stream starts with.
const DefaultLogLines = 100

// StreamLogs follows the unit's journal, sending one line per channel
// message. The channel closes when the context ends or journalctl exits.
// Streaming bypasses the bounded runner because it has no deadline and
// its output is consumed incrementally.
func (c *Client) StreamLogs(ctx context.Context, spec models.ServiceSpec, lines int) (<-chan string, error) {
	if lines <= 0 {
		lines = DefaultLogLines
	}

	args := []string{"-f", "-n", strconv.Itoa(lines)}
	if spec.Scope == models.ScopeUser {
		args = append(args, "--user-unit", spec.Name)
	} else {
		args = append(args, "-u", spec.Name)
	}

	cmd := exec.CommandContext(ctx, c.JournalctlPath, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start journalctl: %w", err)
	}

	ch := make(chan string, 100)
	go func() {
		defer close(ch)
		defer cmd.Wait()

		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			select {
			case <-ctx.Done():
				return
			case ch <- scanner.Text():
			}
		}
	}()

	return ch, nil
}
