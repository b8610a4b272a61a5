// Package config holds the run configuration: the jit-list file location
// and the environment variable names the external command understands.
//
// Everything here is an explicit value threaded through the run. There are
// no hidden well-known constants consulted at invocation time, which keeps
// the reduction testable against in-memory fakes and throwaway temp dirs.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Defaults match the instrumentation contract of the targeted runtime.
const (
	DefaultJitlistPath = "jitlist.txt"
	DefaultListEnvVar  = "PYTHONJITLISTFILE"
	DefaultDebugEnvVar = "PYTHONJITDEBUG"
)

// Config describes one bisection run.
type Config struct {
	// JitlistPath is the candidate file overwritten before every oracle
	// invocation and left holding the final minimized set.
	JitlistPath string `yaml:"jitlist"`

	// ListEnvVar points the external command at JitlistPath.
	ListEnvVar string `yaml:"list_env"`

	// DebugEnvVar switches the command into diagnostic mode for the one
	// extraction run. Mutually exclusive with ListEnvVar.
	DebugEnvVar string `yaml:"debug_env"`

	// TrialLogPath, when non-empty, receives the canonical trial log after
	// the run. Observational only.
	TrialLogPath string `yaml:"trial_log"`
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		JitlistPath: DefaultJitlistPath,
		ListEnvVar:  DefaultListEnvVar,
		DebugEnvVar: DefaultDebugEnvVar,
	}
}

// Load reads a YAML config file and overlays it on the defaults. Unknown
// keys are rejected so typos fail loudly instead of silently using stock
// values.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := Default()
	dec := yaml.NewDecoder(strings.NewReader(string(b)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects configurations that cannot drive a run.
func (c Config) Validate() error {
	if strings.TrimSpace(c.JitlistPath) == "" {
		return fmt.Errorf("jitlist path must not be empty")
	}
	if strings.TrimSpace(c.ListEnvVar) == "" {
		return fmt.Errorf("list env var name must not be empty")
	}
	if strings.TrimSpace(c.DebugEnvVar) == "" {
		return fmt.Errorf("debug env var name must not be empty")
	}
	if c.ListEnvVar == c.DebugEnvVar {
		return fmt.Errorf("list env var and debug env var must differ (both %q)", c.ListEnvVar)
	}
	return nil
}
