// Package trial records the oracle invocations made during a bisection run.
//
// The trial log is observational only and must never affect reduction
// behavior. Its canonical JSON form is deterministic for a deterministic
// oracle: no timestamps, no durations, no runtime-dependent values beyond
// the random run ID in the log header.
package trial

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
)

// Verdict values recorded in events. These strings are part of the log's
// canonical bytes; do not rename.
const (
	VerdictPass = "pass"
	VerdictFail = "fail"
)

// Event is one oracle invocation.
//
// Seq is assigned by the Recorder in invocation order, starting at 1.
// Depth and Branch describe where in the reduction the invocation happened:
// depth 0 covers the top-level loop and the driver's precondition checks,
// and Branch accumulates one "<" (reduce right, left held fixed) or ">"
// (reduce left, reduced right held fixed) marker per recursion level.
type Event struct {
	Seq        int    `json:"seq"`
	Depth      int    `json:"depth"`
	Branch     string `json:"branch,omitempty"`
	Fixed      int    `json:"fixed"`
	Candidates int    `json:"candidates"`
	Verdict    string `json:"verdict"`
}

// Sink is the minimal interface the engine depends on.
//
// Record must be inert: it must not panic and must not return errors. The
// caller must assume Record may be a no-op.
type Sink interface {
	Record(event Event)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) Record(Event) {}

// SafeRecord records an event and guarantees inertness even if the sink is
// buggy. It intentionally swallows panics.
func SafeRecord(s Sink, event Event) {
	if s == nil {
		return
	}
	defer func() {
		_ = recover()
	}()
	s.Record(event)
}

// Recorder is an in-memory collector that assigns sequence numbers in
// invocation order. The engine is strictly sequential, so the mutex-free
// implementation below relies on single-threaded use; Record still never
// panics.
type Recorder struct {
	events []Event
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Record(event Event) {
	if r == nil {
		return
	}
	defer func() {
		_ = recover()
	}()
	event.Seq = len(r.events) + 1
	r.events = append(r.events, event)
}

// Snapshot returns a point-in-time copy of all recorded events.
func (r *Recorder) Snapshot() []Event {
	if r == nil {
		return nil
	}
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Log builds a Log from the currently recorded events. The returned value
// is independent from the recorder (events are copied).
func (r *Recorder) Log(runID string, universe int) Log {
	return Log{RunID: runID, Universe: universe, Events: r.Snapshot()}
}

// Log is the full record of one run's trials.
type Log struct {
	RunID    string  `json:"runId"`
	Universe int     `json:"universe"`
	Events   []Event `json:"events"`
}

// NewRunID returns a random 128-bit hex run identifier. Run IDs are
// operational labels only; they carry no deterministic meaning.
func NewRunID() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}

// Validate checks basic invariants and returns a descriptive error.
func (l *Log) Validate() error {
	if l == nil {
		return errors.New("trial log is nil")
	}
	if l.RunID == "" {
		return errors.New("runId is required")
	}
	if l.Universe < 0 {
		return errors.New("universe must be non-negative")
	}
	for i, e := range l.Events {
		if e.Seq != i+1 {
			return fmt.Errorf("event %d: seq %d out of order", i, e.Seq)
		}
		if e.Verdict != VerdictPass && e.Verdict != VerdictFail {
			return fmt.Errorf("event %d: unknown verdict %q", i, e.Verdict)
		}
		if e.Depth < 0 || e.Fixed < 0 || e.Candidates < 0 {
			return fmt.Errorf("event %d: negative count", i)
		}
	}
	return nil
}

// CanonicalJSON serializes the log with fixed field order and a trailing
// newline. Byte-for-byte stability is required for a fixed run ID and event
// sequence.
func (l *Log) CanonicalJSON() ([]byte, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(l); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
