package bisect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCandidateSet_DeduplicatesAndSorts(t *testing.T) {
	set := NewCandidateSet([]string{"mod.c", "mod.a", "mod.c", "mod.b", "mod.a"})
	assert.Equal(t, CandidateSet{"mod.a", "mod.b", "mod.c"}, set)
}

func TestNewCandidateSet_Empty(t *testing.T) {
	assert.Len(t, NewCandidateSet(nil), 0)
}

// TestSplit_SecondHalfGetsRemainder verifies the split rule: the point is a
// pure function of length, and odd lengths put the extra element on the
// right.
func TestSplit_SecondHalfGetsRemainder(t *testing.T) {
	tests := []struct {
		size      int
		wantLeft  int
		wantRight int
	}{
		{size: 0, wantLeft: 0, wantRight: 0},
		{size: 1, wantLeft: 0, wantRight: 1},
		{size: 2, wantLeft: 1, wantRight: 1},
		{size: 5, wantLeft: 2, wantRight: 3},
		{size: 7, wantLeft: 3, wantRight: 4},
		{size: 8, wantLeft: 4, wantRight: 4},
	}
	for _, tt := range tests {
		set := make(CandidateSet, tt.size)
		for i := range set {
			set[i] = Item(rune('a' + i))
		}
		left, right := set.Split()
		assert.Len(t, left, tt.wantLeft, "size %d", tt.size)
		assert.Len(t, right, tt.wantRight, "size %d", tt.size)
		assert.Equal(t, set, left.Concat(right), "size %d: halves must cover the set in order", tt.size)
	}
}

func TestConcat_PreservesOrderAndDoesNotAlias(t *testing.T) {
	left := CandidateSet{"a", "b"}
	right := CandidateSet{"c"}

	out := left.Concat(right)
	require.Equal(t, CandidateSet{"a", "b", "c"}, out)

	// Appending through the result must never write into the inputs.
	out[0] = "x"
	assert.Equal(t, CandidateSet{"a", "b"}, left)
	assert.Equal(t, CandidateSet{"c"}, right)
}

func TestConcat_EmptySides(t *testing.T) {
	set := CandidateSet{"a"}
	assert.Equal(t, set, CandidateSet(nil).Concat(set))
	assert.Equal(t, set, set.Concat(nil))
}
