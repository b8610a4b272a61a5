// Package bisect implements the reduction engine that shrinks a set of
// enabled items to a minimal subset still reproducing a failure.
//
// It is intentionally split into:
//   - Immutable candidate model (Item, CandidateSet): a deterministically
//     ordered universe that is only ever re-sliced and concatenated, never
//     mutated in place
//   - The Engine: an iterative halving loop with a two-sided recursive
//     fallback for failures that need items from both halves of a split
//
// The engine's only source of truth is the Oracle, a black-box pass/fail
// judge. Verdicts drive control flow; the error return of Oracle.Invoke is
// reserved for infrastructure faults and aborts the reduction.
package bisect
