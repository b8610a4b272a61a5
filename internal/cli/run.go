package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"jitbisect/internal/bisect"
	"jitbisect/internal/extract"
	"jitbisect/internal/jitlist"
	"jitbisect/internal/oracle"
	"jitbisect/internal/trial"
)

// Result is the outcome of one pipeline run.
type Result struct {
	ExitCode int

	// Minimal is the final minimized candidate set, nil on abort.
	Minimal bisect.CandidateSet
}

// Execute runs the full pipeline for a canonical invocation:
//
//  1. extract the candidate universe from one diagnostic run;
//  2. verify the boundary preconditions (full set fails, empty set passes);
//  3. reduce;
//  4. persist the minimized set to the jit-list file and report it.
//
// All fatal conditions surface before the reduction starts. The final
// report line goes to out; diagnostics and progress go through logger.
func Execute(ctx context.Context, inv Invocation, logger *zap.Logger, out io.Writer) (Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := inv.Config

	extractor := &extract.Extractor{
		Command:     inv.Command,
		DebugEnvVar: cfg.DebugEnvVar,
		ListEnvVar:  cfg.ListEnvVar,
		Log:         logger,
	}
	universe, err := extractor.Extract(ctx)
	if err != nil {
		return Result{ExitCode: ExitCodeFor(err)}, err
	}

	judge := oracle.NewCommandOracle(inv.Command, cfg.JitlistPath, cfg.ListEnvVar, cfg.DebugEnvVar)
	recorder := trial.NewRecorder()

	logger.Info("verifying jit-list", zap.Int("candidates", len(universe)))
	v, err := verifiedInvoke(ctx, judge, recorder, universe)
	if err != nil {
		return Result{ExitCode: ExitInternalError}, err
	}
	if v == bisect.Pass {
		err := setupErrorf("command succeeded with full jit-list")
		return Result{ExitCode: ExitSetupError}, err
	}
	v, err = verifiedInvoke(ctx, judge, recorder, nil)
	if err != nil {
		return Result{ExitCode: ExitInternalError}, err
	}
	if v == bisect.Fail {
		err := setupErrorf("command failed with empty jit-list")
		return Result{ExitCode: ExitSetupError}, err
	}

	engine := &bisect.Engine{Oracle: judge, Log: logger, Sink: recorder}
	minimal, err := engine.Reduce(ctx, nil, universe)
	if err != nil {
		return Result{ExitCode: ExitInternalError}, err
	}

	if err := jitlist.Write(cfg.JitlistPath, minimal); err != nil {
		return Result{ExitCode: ExitInternalError}, fmt.Errorf("persisting final jit-list: %w", err)
	}

	if cfg.TrialLogPath != "" {
		if err := writeTrialLog(cfg.TrialLogPath, recorder, len(universe)); err != nil {
			// The log is observational only; a write failure must not turn a
			// finished bisection into a failed run.
			logger.Warn("trial log not written", zap.Error(err))
		}
	}

	green := color.New(color.FgGreen).SprintFunc()
	fmt.Fprintf(out, "%s bisect finished with %d functions in %s\n", green("✓"), len(minimal), cfg.JitlistPath)
	return Result{ExitCode: ExitSuccess, Minimal: minimal}, nil
}

// verifiedInvoke runs a driver-level precondition check through the oracle,
// recording it as a depth-0 trial like any other invocation.
func verifiedInvoke(ctx context.Context, judge bisect.Oracle, sink trial.Sink, subset bisect.CandidateSet) (bisect.Verdict, error) {
	v, err := judge.Invoke(ctx, subset)
	if err != nil {
		return v, err
	}
	trial.SafeRecord(sink, trial.Event{Candidates: len(subset), Verdict: v.String()})
	return v, nil
}

func writeTrialLog(path string, recorder *trial.Recorder, universe int) error {
	runID, err := trial.NewRunID()
	if err != nil {
		return err
	}
	log := recorder.Log(runID, universe)
	return log.WriteFile(path)
}
