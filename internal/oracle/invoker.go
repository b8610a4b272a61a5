// Package oracle runs the external command with a given candidate subset
// enabled and maps its exit status to a pass/fail verdict.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"

	"jitbisect/internal/bisect"
	"jitbisect/internal/jitlist"
)

// CommandOracle implements bisect.Oracle by invoking an external command.
//
// Before each invocation it overwrites the jit-list file with exactly the
// requested subset and points the command at it through ListEnvVar. Exit
// status zero maps to Pass, any non-zero status (including death by signal)
// maps to Fail. A crash and an explicit failure exit are deliberately not
// distinguished; that conflation is the oracle's full contract.
//
// No retries and no internal timeout: a single invocation's result is ground
// truth, and a hang in the command hangs the bisection unless the caller
// cancels the context.
type CommandOracle struct {
	// Command is the external command argv. Required, non-empty.
	Command []string

	// JitlistPath is where each subset is persisted before running. Required.
	JitlistPath string

	// ListEnvVar names the environment variable that carries JitlistPath to
	// the command. Required.
	ListEnvVar string

	// DebugEnvVar names the diagnostic-mode variable. It is mutually
	// exclusive with ListEnvVar and is stripped from the inherited
	// environment on every oracle invocation.
	DebugEnvVar string
}

// NewCommandOracle returns an oracle for the given command argv.
func NewCommandOracle(command []string, jitlistPath, listEnvVar, debugEnvVar string) *CommandOracle {
	return &CommandOracle{
		Command:     command,
		JitlistPath: jitlistPath,
		ListEnvVar:  listEnvVar,
		DebugEnvVar: debugEnvVar,
	}
}

// Invoke persists subset, runs the command, and reports its verdict.
//
// Stdout and stderr are discarded: only the exit status matters here. The
// error return is reserved for infrastructure faults (the list could not be
// written, the process could not be started).
func (o *CommandOracle) Invoke(ctx context.Context, subset bisect.CandidateSet) (bisect.Verdict, error) {
	if err := o.validate(); err != nil {
		return bisect.Pass, err
	}
	if err := jitlist.Write(o.JitlistPath, subset); err != nil {
		return bisect.Pass, fmt.Errorf("persisting candidate subset: %w", err)
	}

	cmd := exec.CommandContext(ctx, o.Command[0], o.Command[1:]...)
	cmd.Env = overlayEnv(os.Environ(), o.ListEnvVar, o.JitlistPath, o.DebugEnvVar)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard

	exitCode, err := runAndWait(ctx, cmd)
	if err != nil {
		return bisect.Pass, err
	}
	if exitCode == 0 {
		return bisect.Pass, nil
	}
	return bisect.Fail, nil
}

func (o *CommandOracle) validate() error {
	if o == nil {
		return errors.New("nil oracle")
	}
	if len(o.Command) == 0 {
		return errors.New("command is empty")
	}
	if strings.TrimSpace(o.JitlistPath) == "" {
		return errors.New("jit-list path is empty")
	}
	if strings.TrimSpace(o.ListEnvVar) == "" {
		return errors.New("jit-list env var name is empty")
	}
	return nil
}

// runAndWait starts cmd and blocks until it exits, killing the whole
// process group if the context is cancelled mid-run. It returns the exit
// code for commands that ran, and an error for commands that never started.
func runAndWait(ctx context.Context, cmd *exec.Cmd) (int, error) {
	// Set process group so cancellation kills the entire process tree.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start command: %w", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	var err error
	select {
	case <-ctx.Done():
		if cmd.Process != nil {
			_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		}
		<-done // wait for the process to actually exit
		return 0, fmt.Errorf("invocation cancelled: %w", ctx.Err())
	case err = <-done:
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// Covers both explicit non-zero exits and death by signal
			// (ExitCode is -1 for signals, still non-zero).
			return exitErr.ExitCode(), nil
		}
		return 0, fmt.Errorf("failed to execute command: %w", err)
	}
	return 0, nil
}

// overlayEnv returns base with key=value appended, after removing any
// inherited definitions of key and of strip. The jit-list variable and the
// diagnostic variable are mutually exclusive, so each run mode scrubs the
// other one.
func overlayEnv(base []string, key, value, strip string) []string {
	out := make([]string, 0, len(base)+1)
	for _, kv := range base {
		name, _, _ := strings.Cut(kv, "=")
		if name == key || (strip != "" && name == strip) {
			continue
		}
		out = append(out, kv)
	}
	return append(out, key+"="+value)
}
