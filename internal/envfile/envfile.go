// Package envfile reads and rewrites dotenv-style configuration files in
// place, preserving comments, blank lines, and declaration order. Writes
// go through a same-directory temp file and rename so a crash never
// leaves a partially written file behind.
package envfile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/google/renameio/v2"
)

// Placeholder is shown instead of secret values in masked snapshots. A
// placeholder echoed back on a write is treated as "leave unchanged".
const Placeholder = "••••••••"

// fileMode is the permission set for freshly written config files.
const fileMode = 0o600

// maskedKeys are key names (compared case-insensitively) whose values are
// hidden in masked snapshots.
var maskedKeys = NewKeySet(
	"ACTION_TOKEN",
	"SECRET_KEY",
	"PASSWORD",
	"TOKEN",
	"API_KEY",
	"AUTH_TOKEN",
)

// truthy is the set of lowercase strings accepted as boolean true.
var truthy = NewKeySet("1", "true", "yes", "on")

// KeySet is a set of configuration key names.
type KeySet map[string]struct{}

// NewKeySet builds a set from the given names.
func NewKeySet(names ...string) KeySet {
	s := make(KeySet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Has reports whether name is in the set.
func (s KeySet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// IsTruthy reports whether v spells boolean true ("1", "true", "yes" or
// "on", case-insensitively). Everything else is false.
func IsTruthy(v string) bool {
	return truthy.Has(strings.ToLower(strings.TrimSpace(v)))
}

// Applied reports the outcome of a write operation.
type Applied struct {
	// Keys lists, in request order, the keys that were written.
	Keys []string

	// RestartRequired is set when a restart-sensitive key changed value.
	RestartRequired bool
}

// Store edits one dotenv-style file. The zero value is not usable; fill
// in at least Path.
type Store struct {
	// Path is the live config file.
	Path string

	// ExamplePath seeds Path on first write when the live file does not
	// exist yet. Empty disables seeding.
	ExamplePath string

	// Editable is the whitelist of keys Apply may touch. Updates for
	// other keys are ignored.
	Editable KeySet

	// Secrets are keys whose empty or placeholder values are skipped on
	// write so a masked read echoed back never erases a stored secret.
	Secrets KeySet

	// RestartKeys flag updates that only take effect after a process
	// restart.
	RestartKeys KeySet

	// BoolKeys are normalized to the canonical strings "true"/"false"
	// before writing.
	BoolKeys KeySet

	// Lookup resolves the prior value of a key that is absent from the
	// file, typically from the process startup environment. May be nil.
	Lookup func(key string) string
}

// Read parses the live file into a key/value map. Blank lines, comment
// lines, and lines without "=" are skipped; keys and values are trimmed;
// quoted values are unwrapped; the last occurrence of a duplicated key
// wins. A missing file reads as empty.
func (s *Store) Read() (map[string]string, error) {
	values := make(map[string]string)
	lines, err := readLines(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return values, nil
		}
		return nil, err
	}
	for _, line := range lines {
		key, value, ok := parseLine(line)
		if !ok {
			continue
		}
		values[key] = value
	}
	return values, nil
}

// Snapshot returns the file contents for display. With mask set, values
// of well-known secret keys are replaced by Placeholder.
func (s *Store) Snapshot(mask bool) (map[string]string, error) {
	values, err := s.Read()
	if err != nil {
		return nil, err
	}
	if mask {
		for k := range values {
			if maskedKeys.Has(strings.ToUpper(k)) {
				values[k] = Placeholder
			}
		}
	}
	return values, nil
}

// Apply rewrites the file with the given updates, in request order. Keys
// outside the whitelist are ignored, secret keys keep their stored value
// when the update is empty or the masked placeholder, and existing lines
// are replaced in place so comments and ordering survive. When nothing
// was applied the file is left untouched, except that a missing file is
// seeded from ExamplePath when one exists.
func (s *Store) Apply(updates Updates) (Applied, error) {
	current, err := s.Read()
	if err != nil {
		return Applied{}, err
	}

	lines, err := s.rawLines()
	if err != nil {
		return Applied{}, err
	}
	index := indexKeys(lines)

	applied := make([]string, 0, len(updates))
	restart := false
	for _, u := range updates {
		key := u.Key
		if !s.Editable.Has(key) {
			continue
		}
		value := u.Value
		if s.BoolKeys.Has(key) {
			value = normalizeBool(value)
		}
		if s.Secrets.Has(key) && (value == "" || value == Placeholder) {
			continue
		}
		if s.RestartKeys.Has(key) && value != s.priorValue(current, key) {
			restart = true
		}

		line := key + "=" + quoteIfNeeded(value)
		if i, ok := index[key]; ok {
			lines[i] = line
		} else {
			index[key] = len(lines)
			lines = append(lines, line)
		}
		applied = append(applied, key)
	}

	if len(applied) == 0 {
		return s.seedIfMissing()
	}

	if err := writeLines(s.Path, lines); err != nil {
		return Applied{}, fmt.Errorf("write %s: %w", s.Path, err)
	}
	return Applied{Keys: applied, RestartRequired: restart}, nil
}

// priorValue resolves the value a restart-sensitive key currently has:
// the stored file value if present, otherwise the startup environment.
func (s *Store) priorValue(current map[string]string, key string) string {
	if v, ok := current[key]; ok {
		return v
	}
	if s.Lookup != nil {
		return s.Lookup(key)
	}
	return ""
}

// seedIfMissing copies the example template over a missing live file. It
// reports the template's keys as applied; an existing live file or a
// missing template is a no-op.
func (s *Store) seedIfMissing() (Applied, error) {
	none := Applied{Keys: []string{}}
	if s.ExamplePath == "" {
		return none, nil
	}
	if _, err := os.Stat(s.Path); err == nil || !errors.Is(err, fs.ErrNotExist) {
		return none, err
	}
	lines, err := readLines(s.ExamplePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return none, nil
		}
		return none, err
	}
	if err := writeLines(s.Path, lines); err != nil {
		return none, fmt.Errorf("seed %s: %w", s.Path, err)
	}

	seeded := make([]string, 0, len(lines))
	seen := make(map[string]struct{})
	for _, line := range lines {
		key, _, ok := parseLine(line)
		if !ok {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		seeded = append(seeded, key)
	}
	return Applied{Keys: seeded}, nil
}

// rawLines loads the verbatim line sequence that Apply edits: the live
// file if present, else the example template, else nothing.
func (s *Store) rawLines() ([]string, error) {
	lines, err := readLines(s.Path)
	if err == nil {
		return lines, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	if s.ExamplePath == "" {
		return nil, nil
	}
	lines, err = readLines(s.ExamplePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return lines, nil
}

// readLines splits the file into lines without their terminators. A
// single trailing newline does not produce an empty final line.
func readLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	lines := strings.Split(text, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines, nil
}

// writeLines atomically replaces path with the joined lines and a
// normalized trailing newline.
func writeLines(path string, lines []string) error {
	data := strings.Join(lines, "\n") + "\n"
	return renameio.WriteFile(path, []byte(data), fileMode)
}

// indexKeys maps each key to the index of its last defining line, using
// the same recognition rules as the read path.
func indexKeys(lines []string) map[string]int {
	index := make(map[string]int)
	for i, line := range lines {
		if key, _, ok := parseLine(line); ok {
			index[key] = i
		}
	}
	return index
}

// parseLine extracts a key/value pair from one line. Blank lines,
// comments, lines without "=", and lines with an empty key are not
// entries.
func parseLine(line string) (key, value string, ok bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return "", "", false
	}
	rawKey, rawValue, found := strings.Cut(trimmed, "=")
	if !found {
		return "", "", false
	}
	key = strings.TrimSpace(rawKey)
	if key == "" {
		return "", "", false
	}
	return key, unquote(strings.TrimSpace(rawValue)), true
}

// unquote unwraps a double-quoted value, reversing the escapes produced
// by quoteIfNeeded. Unquoted values pass through untouched.
func unquote(v string) string {
	if len(v) < 2 || v[0] != '"' || v[len(v)-1] != '"' {
		return v
	}
	inner := v[1 : len(v)-1]
	var b strings.Builder
	b.Grow(len(inner))
	for i := 0; i < len(inner); i++ {
		if inner[i] == '\\' && i+1 < len(inner) {
			i++
		}
		b.WriteByte(inner[i])
	}
	return b.String()
}

// quoteIfNeeded wraps a value in double quotes, escaping backslashes and
// quotes, unless it is empty or made entirely of unquoted-safe bytes.
func quoteIfNeeded(v string) string {
	if v == "" || isSafeValue(v) {
		return v
	}
	var b strings.Builder
	b.Grow(len(v) + 2)
	b.WriteByte('"')
	for i := 0; i < len(v); i++ {
		if v[i] == '\\' || v[i] == '"' {
			b.WriteByte('\\')
		}
		b.WriteByte(v[i])
	}
	b.WriteByte('"')
	return b.String()
}

// isSafeValue reports whether every byte is in the charset that reads
// back identically without quoting.
func isSafeValue(v string) bool {
	for i := 0; i < len(v); i++ {
		c := v[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '_' || c == '.' || c == '-' || c == '/' || c == ':':
		default:
			return false
		}
	}
	return true
}

// normalizeBool maps any truthy spelling to "true" and all else to
// "false".
func normalizeBool(v string) string {
	if IsTruthy(v) {
		return "true"
	}
	return "false"
}
