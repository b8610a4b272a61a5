// Package extract harvests the initial candidate universe from one
// diagnostic run of the external command.
package extract

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"jitbisect/internal/bisect"
)

// compiledFuncPattern matches the diagnostic line the instrumented runtime
// emits when it compiles a function: an identifier token followed by an
// address-like token at end of line. This is a brittle text contract and
// must stay byte-compatible with the instrumentation format.
var compiledFuncPattern = regexp.MustCompile(` -- Compiling ([^ ]+) @ 0x[0-9a-f]+$`)

// Fatal setup conditions. Both mean there is nothing to bisect and the run
// must abort before any reduction is attempted.
var (
	// ErrDiagnosticRunSucceeded reports that the command exited zero with
	// full instrumentation enabled, so it does not fail in the first place.
	ErrDiagnosticRunSucceeded = errors.New("command succeeded during jit-list generation")

	// ErrNoCandidates reports that the diagnostic output named no compiled
	// functions at all.
	ErrNoCandidates = errors.New("no compiled functions found")
)

// Extractor produces the candidate universe: the full, deterministically
// ordered set of item identifiers the command compiles under diagnostics.
type Extractor struct {
	// Command is the external command argv. Required, non-empty.
	Command []string

	// DebugEnvVar names the variable that switches the command into
	// diagnostic mode. Required.
	DebugEnvVar string

	// ListEnvVar names the jit-list variable; it is stripped from the
	// inherited environment so the diagnostic run sees no stale list.
	ListEnvVar string

	// Log receives progress messages. Optional.
	Log *zap.Logger
}

// Extract runs the command once in diagnostic mode and parses its stderr.
//
// Identifiers are deduplicated and sorted lexicographically so the universe
// is unaffected by the order functions happen to be compiled in; later
// reduction steps are then reproducible across runs of the same inputs.
// Lines that do not match the diagnostic pattern are silently skipped.
func (x *Extractor) Extract(ctx context.Context) (bisect.CandidateSet, error) {
	if err := x.validate(); err != nil {
		return nil, err
	}
	x.log().Info("generating initial jit-list")

	cmd := exec.CommandContext(ctx, x.Command[0], x.Command[1:]...)
	cmd.Env = diagnosticEnv(os.Environ(), x.DebugEnvVar, x.ListEnvVar)
	cmd.Stdout = io.Discard

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	exitCode, err := runAndWait(ctx, cmd)
	if err != nil {
		return nil, err
	}
	if exitCode == 0 {
		return nil, ErrDiagnosticRunSucceeded
	}

	ids := scanCompiledFuncs(stderr.Bytes())
	if len(ids) == 0 {
		return nil, ErrNoCandidates
	}

	universe := bisect.NewCandidateSet(ids)
	x.log().Info("initial jit-list generated", zap.Int("candidates", len(universe)))
	return universe, nil
}

func (x *Extractor) validate() error {
	if x == nil {
		return errors.New("nil extractor")
	}
	if len(x.Command) == 0 {
		return errors.New("command is empty")
	}
	if strings.TrimSpace(x.DebugEnvVar) == "" {
		return errors.New("diagnostic env var name is empty")
	}
	return nil
}

func (x *Extractor) log() *zap.Logger {
	if x == nil || x.Log == nil {
		return zap.NewNop()
	}
	return x.Log
}

// scanCompiledFuncs extracts every identifier named by a matching diagnostic
// line. Duplicates are kept here; NewCandidateSet deduplicates and sorts.
func scanCompiledFuncs(output []byte) []string {
	var ids []string
	sc := bufio.NewScanner(bytes.NewReader(output))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		m := compiledFuncPattern.FindStringSubmatch(sc.Text())
		if m == nil {
			continue
		}
		ids = append(ids, m[1])
	}
	return ids
}

// diagnosticEnv returns base with debugVar=1 appended, after removing any
// inherited definitions of debugVar and of the jit-list variable. The two
// variables are mutually exclusive.
func diagnosticEnv(base []string, debugVar, listVar string) []string {
	out := make([]string, 0, len(base)+1)
	for _, kv := range base {
		name, _, _ := strings.Cut(kv, "=")
		if name == debugVar || (listVar != "" && name == listVar) {
			continue
		}
		out = append(out, kv)
	}
	return append(out, debugVar+"=1")
}

// runAndWait blocks until cmd exits, killing the process group on context
// cancellation. Exit codes are returned for commands that ran; errors only
// for commands that never started.
func runAndWait(ctx context.Context, cmd *exec.Cmd) (int, error) {
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
		<-done
		return 0, fmt.Errorf("diagnostic run cancelled: %w", ctx.Err())
	case err = <-done:
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return 0, fmt.Errorf("failed to execute command: %w", err)
	}
	return 0, nil
}
