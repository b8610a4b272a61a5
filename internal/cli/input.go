// Package cli canonicalizes invocations, drives the bisection pipeline, and
// maps every outcome to a semantic exit code.
package cli

import (
	"errors"
	"fmt"

	"jitbisect/internal/config"
	"jitbisect/internal/extract"
)

const (
	ExitSuccess = 0
	// ExitSetupError covers violated run preconditions: the command does
	// not fail with everything enabled, fails with nothing enabled, does
	// not fail under diagnostics, or compiles nothing at all.
	ExitSetupError        = 1
	ExitInvalidInvocation = 2
	ExitConfigError       = 3
	ExitInternalError     = 4
)

// Invocation is the fully canonicalized, deterministic description of a run.
//
// Command is the opaque external command argv: everything after the tool's
// own flags, executed repeatedly and never interpreted.
type Invocation struct {
	Command []string
	Config  config.Config
	Verbose bool
	Quiet   bool
}

// Options carries the raw flag values before canonicalization.
type Options struct {
	ConfigPath   string
	JitlistPath  string
	TrialLogPath string
	Verbose      bool
	Quiet        bool
}

type InvocationError struct {
	ExitCode int
	Message  string
}

func (e *InvocationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func invalidInvocationf(format string, args ...any) error {
	return &InvocationError{ExitCode: ExitInvalidInvocation, Message: fmt.Sprintf(format, args...)}
}

// SetupError reports a violated run precondition. Setup errors are fatal
// and detected before the reduction starts, so the expensive search is
// never attempted on a doomed input.
type SetupError struct {
	Message string
}

func (e *SetupError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func setupErrorf(format string, args ...any) error {
	return &SetupError{Message: fmt.Sprintf(format, args...)}
}

// NewInvocation builds a canonical Invocation from the external command and
// the flag values. Configuration precedence: defaults, then the config
// file, then explicit flags.
func NewInvocation(command []string, opts Options) (Invocation, error) {
	if len(command) == 0 {
		return Invocation{}, invalidInvocationf("no command given: pass the failing command after the flags")
	}
	if command[0] == "" {
		return Invocation{}, invalidInvocationf("command must not start with an empty argument")
	}

	cfg := config.Default()
	if opts.ConfigPath != "" {
		loaded, err := config.Load(opts.ConfigPath)
		if err != nil {
			return Invocation{}, &InvocationError{ExitCode: ExitConfigError, Message: err.Error()}
		}
		cfg = loaded
	}
	if opts.JitlistPath != "" {
		cfg.JitlistPath = opts.JitlistPath
	}
	if opts.TrialLogPath != "" {
		cfg.TrialLogPath = opts.TrialLogPath
	}
	if err := cfg.Validate(); err != nil {
		return Invocation{}, &InvocationError{ExitCode: ExitConfigError, Message: err.Error()}
	}

	if opts.Verbose && opts.Quiet {
		return Invocation{}, invalidInvocationf("--verbose and --quiet are mutually exclusive")
	}

	return Invocation{
		Command: append([]string(nil), command...),
		Config:  cfg,
		Verbose: opts.Verbose,
		Quiet:   opts.Quiet,
	}, nil
}

// ExitCodeFor maps an error from the pipeline (or from invocation parsing)
// to the tool's semantic exit code.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var invErr *InvocationError
	if errors.As(err, &invErr) && invErr != nil {
		if invErr.ExitCode != 0 {
			return invErr.ExitCode
		}
		return ExitInvalidInvocation
	}
	var setupErr *SetupError
	if errors.As(err, &setupErr) {
		return ExitSetupError
	}
	if errors.Is(err, extract.ErrDiagnosticRunSucceeded) || errors.Is(err, extract.ErrNoCandidates) {
		return ExitSetupError
	}
	return ExitInternalError
}
