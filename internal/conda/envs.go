package conda

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"condash/internal/models"
)

// ListEnvs inventories all environments and probes each one's interpreter.
// It degrades rather than fails: a broken installation yields an empty
// slice, and structured listing falls back to text parsing.
func (c *Client) ListEnvs(ctx context.Context) []models.EnvRecord {
	records := c.listStructured(ctx)
	if len(records) == 0 {
		records = c.listText(ctx)
	}
	c.probeAll(ctx, records)
	return records
}

// listStructured parses `conda env list --json`, deriving names from the
// returned prefixes.
func (c *Client) listStructured(ctx context.Context) []models.EnvRecord {
	res := c.command(ctx, ListTimeout, "env", "list", "--json")
	if !res.OK() {
		return nil
	}
	var payload struct {
		Envs []string `json:"envs"`
	}
	if err := json.Unmarshal([]byte(res.Stdout), &payload); err != nil {
		return nil
	}
	records := make([]models.EnvRecord, 0, len(payload.Envs))
	for _, prefix := range payload.Envs {
		records = append(records, models.EnvRecord{
			Name:   nameFromPrefix(prefix),
			Prefix: prefix,
		})
	}
	return records
}

// listText parses the human-readable `conda env list` table.
func (c *Client) listText(ctx context.Context) []models.EnvRecord {
	res := c.command(ctx, ListTimeout, "env", "list")
	if !res.OK() {
		return nil
	}
	return parseTextListing(res.Stdout)
}

// parseTextListing extracts records from the text table: the first field
// is the name and the last field the prefix, with comment rows skipped.
// The active-environment asterisk lands between them and falls away.
func parseTextListing(out string) []models.EnvRecord {
	var records []models.EnvRecord
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		records = append(records, models.EnvRecord{
			Name:   fields[0],
			Prefix: fields[len(fields)-1],
		})
	}
	return records
}

// nameFromPrefix derives an environment name from its filesystem prefix.
// Named environments live under an "envs" directory; the installation
// root itself is the base environment.
func nameFromPrefix(prefix string) string {
	trimmed := strings.TrimRight(prefix, "/")
	if trimmed == "" {
		return "base"
	}
	parts := strings.Split(trimmed, "/")
	for i, part := range parts {
		if part == "envs" {
			if i+1 < len(parts) {
				return parts[i+1]
			}
			break
		}
	}
	if strings.HasSuffix(trimmed, "miniconda3") || strings.HasSuffix(trimmed, "anaconda3") {
		return "base"
	}
	return parts[len(parts)-1]
}

// probeAll fills in Healthy for every record, running at most
// probeConcurrency probes in parallel. Record order is preserved.
func (c *Client) probeAll(ctx context.Context, records []models.EnvRecord) {
	if len(records) == 0 {
		return
	}
	sem := make(chan struct{}, probeConcurrency)
	var wg sync.WaitGroup
	for i := range records {
		wg.Add(1)
		go func(rec *models.EnvRecord) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-sem }()
			rec.Healthy = c.probe(ctx, rec.Name)
		}(&records[i])
	}
	wg.Wait()
}

// probe reports whether the environment's interpreter answers a version
// query with a Python banner.
func (c *Client) probe(ctx context.Context, name string) bool {
	res := c.command(ctx, ProbeTimeout, "run", "-n", name, "python", "-V")
	return res.OK() && strings.HasPrefix(res.Stdout, "Python")
}
