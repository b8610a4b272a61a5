package bisect

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"jitbisect/internal/trial"
)

// Verdict is the outcome of one oracle invocation. It is the expected output
// domain of every call and drives control flow; it is never an error.
type Verdict int

const (
	Pass Verdict = iota
	Fail
)

func (v Verdict) String() string {
	if v == Fail {
		return trial.VerdictFail
	}
	return trial.VerdictPass
}

// Oracle judges a candidate subset by running the external command with
// exactly that subset enabled.
//
// Invoke must be deterministic for a fixed command and fixed subset; the
// engine trusts each result exactly once and never retries. The error return
// is reserved for infrastructure faults (the command could not be started,
// the subset could not be persisted) and aborts the reduction.
type Oracle interface {
	Invoke(ctx context.Context, subset CandidateSet) (Verdict, error)
}

// OracleFunc adapts a function to the Oracle interface.
type OracleFunc func(ctx context.Context, subset CandidateSet) (Verdict, error)

func (f OracleFunc) Invoke(ctx context.Context, subset CandidateSet) (Verdict, error) {
	return f(ctx, subset)
}

// Engine reduces a candidate set to a small subset that still reproduces the
// failure. It is a heuristic minimizer in the delta-debugging family, shaped
// to a coarse two-way split: the result is a best-effort reduction, not a
// guaranteed 1-minimal set.
//
// Strictly single-threaded: exactly one oracle invocation is in flight at
// any time, and each call fully blocks the engine.
type Engine struct {
	// Oracle is the only source of truth. Required.
	Oracle Oracle

	// Log receives informational progress messages (candidate counts,
	// recursion branch markers). Optional; nil silences progress output.
	Log *zap.Logger

	// Sink receives one trial event per oracle invocation. Optional.
	Sink trial.Sink
}

// Reduce returns a subsequence of remaining such that fixed ∪ result still
// fails, assuming the caller established that fixed ∪ remaining fails.
//
// The caller verifies the top-level preconditions once (full set fails,
// empty set passes); every step below re-establishes the entry invariant by
// construction: a half is only adopted as the new remaining after the oracle
// confirms the union with fixed still fails.
func (e *Engine) Reduce(ctx context.Context, fixed, remaining CandidateSet) (CandidateSet, error) {
	if e == nil || e.Oracle == nil {
		return nil, errors.New("engine requires an oracle")
	}
	return e.reduce(ctx, fixed, remaining, 0, "")
}

// reduce is the iterative loop with the two-sided recursive fallback.
//
// branch accumulates one "<" or ">" marker per recursion level, mirroring
// which sub-reduction is running: "<" reduces the right half with the left
// held fixed, ">" reduces the left half with the already-reduced right held
// fixed. That order matters: reducing both halves independently against the
// original other half would not guarantee the final union still fails.
func (e *Engine) reduce(ctx context.Context, fixed, remaining CandidateSet, depth int, branch string) (CandidateSet, error) {
	e.log().Debug("reduction step",
		zap.Int("fixed", len(fixed)),
		zap.Int("remaining", len(remaining)),
		zap.Int("depth", depth),
		zap.String("branch", branch))

	for len(remaining) > 1 {
		e.log().Info("bisecting",
			zap.Int("candidates", len(fixed)+len(remaining)),
			zap.Int("depth", depth),
			zap.String("branch", branch))

		left, right := remaining.Split()

		v, err := e.invoke(ctx, fixed, left, depth, branch)
		if err != nil {
			return nil, err
		}
		if v == Fail {
			// The left half alone explains the failure; drop the right.
			remaining = left
			continue
		}

		v, err = e.invoke(ctx, fixed, right, depth, branch)
		if err != nil {
			return nil, err
		}
		if v == Fail {
			remaining = right
			continue
		}

		// Neither half alone reproduces the failure: it needs items from
		// both. Hold each half fixed in turn and reduce the other. The left
		// pass must run against the reduced right, not the original one.
		newRight, err := e.reduce(ctx, fixed.Concat(left), right, depth+1, branch+"<")
		if err != nil {
			return nil, err
		}
		newLeft, err := e.reduce(ctx, fixed.Concat(newRight), left, depth+1, branch+">")
		if err != nil {
			return nil, err
		}
		return newLeft.Concat(newRight), nil
	}

	return remaining, nil
}

func (e *Engine) invoke(ctx context.Context, fixed, subset CandidateSet, depth int, branch string) (Verdict, error) {
	v, err := e.Oracle.Invoke(ctx, fixed.Concat(subset))
	if err != nil {
		return v, fmt.Errorf("oracle invocation: %w", err)
	}
	trial.SafeRecord(e.Sink, trial.Event{
		Depth:      depth,
		Branch:     branch,
		Fixed:      len(fixed),
		Candidates: len(subset),
		Verdict:    v.String(),
	})
	return v, nil
}

func (e *Engine) log() *zap.Logger {
	if e == nil || e.Log == nil {
		return zap.NewNop()
	}
	return e.Log
}
