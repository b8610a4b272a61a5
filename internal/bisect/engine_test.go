package bisect

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jitbisect/internal/trial"
)

// fakeOracle judges subsets with a predicate and records every invocation.
// It is deterministic by construction.
type fakeOracle struct {
	failsWhen func(subset CandidateSet) bool
	calls     []CandidateSet
}

func (f *fakeOracle) Invoke(_ context.Context, subset CandidateSet) (Verdict, error) {
	f.calls = append(f.calls, subset.Concat(nil))
	if f.failsWhen(subset) {
		return Fail, nil
	}
	return Pass, nil
}

func contains(subset CandidateSet, item Item) bool {
	for _, it := range subset {
		if it == item {
			return true
		}
	}
	return false
}

func universe(n int) CandidateSet {
	set := make(CandidateSet, n)
	for i := range set {
		set[i] = Item(fmt.Sprintf("mod.f%02d", i))
	}
	return set
}

// isSubsequence reports whether sub is an order-preserving subsequence of
// full.
func isSubsequence(sub, full CandidateSet) bool {
	i := 0
	for _, it := range full {
		if i < len(sub) && sub[i] == it {
			i++
		}
	}
	return i == len(sub)
}

func reduce(t *testing.T, oracle Oracle, fixed, remaining CandidateSet) CandidateSet {
	t.Helper()
	engine := &Engine{Oracle: oracle}
	got, err := engine.Reduce(context.Background(), fixed, remaining)
	require.NoError(t, err)
	return got
}

// TestReduce_SingleCulprit: one item is sufficient to cause the failure
// alone, so the engine must return exactly that singleton. Odd sizes
// exercise the uneven split rule; every culprit position is tried.
func TestReduce_SingleCulprit(t *testing.T) {
	for _, size := range []int{1, 2, 5, 17} {
		full := universe(size)
		for _, culprit := range full {
			oracle := &fakeOracle{failsWhen: func(s CandidateSet) bool {
				return contains(s, culprit)
			}}
			got := reduce(t, oracle, nil, full)
			assert.Equal(t, CandidateSet{culprit}, got, "size %d culprit %s", size, culprit)
		}
	}
}

// TestReduce_RequiresAll: removing any single item makes the command pass,
// so nothing can be discarded and the whole universe comes back unchanged.
func TestReduce_RequiresAll(t *testing.T) {
	for _, size := range []int{1, 2, 4, 7} {
		full := universe(size)
		oracle := &fakeOracle{failsWhen: func(s CandidateSet) bool {
			for _, it := range full {
				if !contains(s, it) {
					return false
				}
			}
			return true
		}}
		got := reduce(t, oracle, nil, full)
		assert.Equal(t, full, got, "size %d", size)
	}
}

// TestReduce_CooperatingHalves: the failure needs one item from each half
// of the first split, which defeats plain halving and forces the two-sided
// recursion.
func TestReduce_CooperatingHalves(t *testing.T) {
	full := CandidateSet{"a", "b", "c", "d"}
	oracle := &fakeOracle{failsWhen: func(s CandidateSet) bool {
		return contains(s, "a") && contains(s, "d")
	}}
	got := reduce(t, oracle, nil, full)
	assert.Equal(t, CandidateSet{"a", "d"}, got, "a must stay before d")
}

func TestReduce_BaseCases(t *testing.T) {
	oracle := &fakeOracle{failsWhen: func(CandidateSet) bool { return true }}

	got := reduce(t, oracle, nil, nil)
	assert.Empty(t, got)
	assert.Empty(t, oracle.calls, "nothing to reduce, nothing to invoke")

	got = reduce(t, oracle, CandidateSet{"fixed"}, CandidateSet{"only"})
	assert.Equal(t, CandidateSet{"only"}, got)
	assert.Empty(t, oracle.calls)
}

// TestReduce_ResultStillFails re-verifies the engine's contract across
// assorted oracles: the result is an order-preserving subsequence of the
// input and still fails together with the fixed prefix.
func TestReduce_ResultStillFails(t *testing.T) {
	full := universe(12)
	predicates := map[string]func(CandidateSet) bool{
		"single": func(s CandidateSet) bool { return contains(s, "mod.f07") },
		"pair": func(s CandidateSet) bool {
			return contains(s, "mod.f01") && contains(s, "mod.f10")
		},
		"triple spread": func(s CandidateSet) bool {
			return contains(s, "mod.f00") && contains(s, "mod.f05") && contains(s, "mod.f11")
		},
		"any of two": func(s CandidateSet) bool {
			return contains(s, "mod.f03") || contains(s, "mod.f04")
		},
	}
	for name, failsWhen := range predicates {
		oracle := &fakeOracle{failsWhen: failsWhen}
		got := reduce(t, oracle, nil, full)

		assert.True(t, isSubsequence(got, full), "%s: result must be a subsequence", name)
		assert.True(t, failsWhen(got), "%s: result must still fail", name)
	}
}

// TestReduce_EveryTrialIncludesFixedPrefix: each invocation made on behalf
// of a recursive step must enable the fixed items alongside the probed
// subset, and only items from the universe may ever appear.
func TestReduce_EveryTrialIncludesFixedPrefix(t *testing.T) {
	full := universe(8)
	fixed := CandidateSet{"pinned.x", "pinned.y"}
	oracle := &fakeOracle{failsWhen: func(s CandidateSet) bool {
		return contains(s, "mod.f02") && contains(s, "mod.f06")
	}}

	got := reduce(t, oracle, fixed, full)
	assert.Equal(t, CandidateSet{"mod.f02", "mod.f06"}, got)

	allowed := fixed.Concat(full)
	for i, call := range oracle.calls {
		require.True(t, len(call) >= len(fixed), "call %d shorter than fixed prefix", i)
		assert.Equal(t, fixed, call[:len(fixed)], "call %d must start with the fixed prefix", i)
		for _, it := range call {
			assert.True(t, contains(allowed, it), "call %d enabled %q from outside the universe", i, it)
		}
	}
}

// TestReduce_Idempotent: the same oracle and the same universe produce the
// same result and the same trial sequence on every run.
func TestReduce_Idempotent(t *testing.T) {
	full := universe(17)
	failsWhen := func(s CandidateSet) bool {
		return contains(s, "mod.f03") && contains(s, "mod.f13")
	}

	first := &fakeOracle{failsWhen: failsWhen}
	second := &fakeOracle{failsWhen: failsWhen}

	got1 := reduce(t, first, nil, full)
	got2 := reduce(t, second, nil, full)

	assert.Equal(t, got1, got2)
	assert.Equal(t, first.calls, second.calls, "trial sequences must be identical")
}

func TestReduce_OracleErrorAborts(t *testing.T) {
	boom := errors.New("exec format error")
	engine := &Engine{Oracle: OracleFunc(func(context.Context, CandidateSet) (Verdict, error) {
		return Pass, boom
	})}

	_, err := engine.Reduce(context.Background(), nil, universe(4))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestReduce_RequiresOracle(t *testing.T) {
	var engine *Engine
	_, err := engine.Reduce(context.Background(), nil, universe(2))
	assert.Error(t, err)

	_, err = (&Engine{}).Reduce(context.Background(), nil, universe(2))
	assert.Error(t, err)
}

// TestReduce_RecordsTrials: every oracle invocation shows up in the sink,
// in order, and the cooperating-halves path tags its recursion branches.
func TestReduce_RecordsTrials(t *testing.T) {
	full := CandidateSet{"a", "b", "c", "d"}
	oracle := &fakeOracle{failsWhen: func(s CandidateSet) bool {
		return contains(s, "a") && contains(s, "d")
	}}

	recorder := trial.NewRecorder()
	engine := &Engine{Oracle: oracle, Sink: recorder}
	_, err := engine.Reduce(context.Background(), nil, full)
	require.NoError(t, err)

	events := recorder.Snapshot()
	require.Len(t, events, len(oracle.calls))

	sawDescent := false
	for i, e := range events {
		assert.Equal(t, i+1, e.Seq)
		assert.Contains(t, []string{trial.VerdictPass, trial.VerdictFail}, e.Verdict)
		if e.Depth > 0 {
			sawDescent = true
			assert.Len(t, strings.TrimLeft(e.Branch, "<>"), 0)
			assert.Len(t, e.Branch, e.Depth)
		}
	}
	assert.True(t, sawDescent, "cooperating halves must descend at least one level")
}
