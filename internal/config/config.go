// Package config loads runtime settings from the process environment
// merged over the project's .env file. Process values win, so operators
// can override a stored setting for one run without editing the file.
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"condash/internal/envfile"
)

const (
	// DefaultBindHost keeps the panel loopback-only unless configured
	// otherwise.
	DefaultBindHost = "127.0.0.1"

	// DefaultPort is the HTTP listen port.
	DefaultPort = 8080

	// EnvFileName and ExampleFileName are resolved inside the base
	// directory.
	EnvFileName     = ".env"
	ExampleFileName = ".env.example"

	// DirEnv overrides the base directory when no flag is given.
	DirEnv = "CONDASH_DIR"
)

// Key policy shared by Load and the env file store.
var (
	// EditableKeys is the whitelist of keys the API may rewrite.
	EditableKeys = envfile.NewKeySet(
		"BIND_HOST",
		"PORT",
		"SERVICES",
		"MASK_SECRETS",
		"ACTION_TOKEN",
		"SECRET_KEY",
		"MINICONDA_CONDA",
	)

	// SecretKeys never accept a masked or empty echo-back.
	SecretKeys = envfile.NewKeySet("ACTION_TOKEN", "SECRET_KEY")

	// RestartKeys only take effect after a process restart.
	RestartKeys = envfile.NewKeySet("BIND_HOST", "PORT")

	// BoolKeys are normalized to "true"/"false" on write.
	BoolKeys = envfile.NewKeySet("MASK_SECRETS")
)

// Config carries the settings resolved once at startup.
type Config struct {
	// BaseDir is the directory holding .env and the frontend-visible
	// project files.
	BaseDir string

	// BindHost and Port form the HTTP listen address.
	BindHost string
	Port     int

	// MaskSecrets controls whether env file reads hide secret values.
	MaskSecrets bool

	// ActionToken, when non-empty, must accompany mutating requests.
	ActionToken string

	// ServicesRaw is the unparsed services configuration value.
	ServicesRaw string

	// CondaBin is the resolved conda executable.
	CondaBin string

	fileEnv map[string]string
}

// Load resolves the configuration for the given base directory. An empty
// baseDir falls back to the DirEnv variable, then the working directory.
func Load(baseDir string) (*Config, error) {
	if baseDir == "" {
		baseDir = os.Getenv(DirEnv)
	}
	if baseDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve working directory: %w", err)
		}
		baseDir = wd
	}
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve base directory: %w", err)
	}

	cfg := &Config{BaseDir: abs}
	fileEnv, err := (&envfile.Store{Path: cfg.EnvPath()}).Read()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", cfg.EnvPath(), err)
	}
	cfg.fileEnv = fileEnv

	cfg.BindHost = cfg.value("BIND_HOST", DefaultBindHost)

	portRaw := strings.TrimSpace(cfg.value("PORT", strconv.Itoa(DefaultPort)))
	port, err := strconv.Atoi(portRaw)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT value %q", portRaw)
	}
	cfg.Port = port

	cfg.MaskSecrets = envfile.IsTruthy(cfg.value("MASK_SECRETS", "true"))
	cfg.ActionToken = cfg.value("ACTION_TOKEN", "")
	cfg.ServicesRaw = cfg.value("SERVICES", "")
	cfg.CondaBin = resolveCondaBin(cfg.value("MINICONDA_CONDA", ""))
	return cfg, nil
}

// value resolves key from the process environment first, then the .env
// snapshot, then the fallback.
func (c *Config) value(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	if v, ok := c.fileEnv[key]; ok {
		return v
	}
	return fallback
}

// Lookup exposes the merged startup environment. The env file store uses
// it to resolve prior values of keys absent from the file.
func (c *Config) Lookup(key string) string {
	return c.value(key, "")
}

// EnvPath is the live config file location.
func (c *Config) EnvPath() string {
	return filepath.Join(c.BaseDir, EnvFileName)
}

// ExamplePath is the template used to seed a missing config file.
func (c *Config) ExamplePath() string {
	return filepath.Join(c.BaseDir, ExampleFileName)
}

// Addr is the HTTP listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.BindHost, strconv.Itoa(c.Port))
}

// Store builds the env file store wired with this configuration's paths
// and key policy.
func (c *Config) Store() *envfile.Store {
	return &envfile.Store{
		Path:        c.EnvPath(),
		ExamplePath: c.ExamplePath(),
		Editable:    EditableKeys,
		Secrets:     SecretKeys,
		RestartKeys: RestartKeys,
		BoolKeys:    BoolKeys,
		Lookup:      c.Lookup,
	}
}

// resolveCondaBin picks the conda executable. The configured path wins
// when it points at a regular file, with ~/miniconda3/bin/conda as the
// default location; anything else falls back to PATH resolution.
func resolveCondaBin(configured string) string {
	path := configured
	if path == "" {
		path = "~/miniconda3/bin/conda"
	}
	path = expandHome(path)
	if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
		return path
	}
	return "conda"
}

// expandHome resolves a leading ~ against the current user's home.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
