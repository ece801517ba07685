package puzzle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// firstDistractor returns the coordinate of some non-path cell.
func firstDistractor(t *testing.T, l *Layout) Coord {
	t.Helper()
	for r := range l.Size() {
		for c := range l.Size() {
			if cell, _ := l.At(Coord{Row: r, Col: c}); !cell.IsTarget {
				return Coord{Row: r, Col: c}
			}
		}
	}
	t.Fatal("no distractor cell")
	return Coord{}
}

func TestValidatorFullPlayThrough(t *testing.T) {
	l, err := newTestGenerator(11).Generate("人之初性本善")
	require.NoError(t, err)
	v := NewValidator(l)
	assert.Equal(t, PathState{Accepted: 1}, v.State())
	assert.Equal(t, l.Start(), v.Tail())

	path := l.Path()
	for k := 1; k < len(path)-1; k++ {
		out, st := v.Tap(path[k])
		assert.Equal(t, Accepted, out, "index %d", k)
		assert.Equal(t, k+1, st.Accepted)
	}
	out, st := v.Tap(path[len(path)-1])
	assert.Equal(t, Completed, out)
	assert.Equal(t, 6, st.Accepted)
	assert.True(t, v.Done())

	_, ok := v.Next()
	assert.False(t, ok)

	// Nothing left to accept.
	out, st = v.Tap(path[len(path)-1])
	assert.Equal(t, Rejected, out)
	assert.Equal(t, 6, st.Accepted)
}

func TestValidatorRejectsDistractorWithoutMutation(t *testing.T) {
	l, err := newTestGenerator(12).Generate("人之初性本善")
	require.NoError(t, err)
	v := NewValidator(l)

	d := firstDistractor(t, l)
	for range 3 {
		out, st := v.Tap(d)
		assert.Equal(t, Rejected, out)
		assert.Equal(t, PathState{Accepted: 1}, st)
	}
}

func TestValidatorRejectsWrongIndex(t *testing.T) {
	l, err := newTestGenerator(13).Generate("天地玄黃宇宙")
	require.NoError(t, err)
	v := NewValidator(l)
	path := l.Path()

	// Start cell again, and a cell further along the path.
	out, _ := v.Tap(path[0])
	assert.Equal(t, Rejected, out)
	out, _ = v.Tap(path[2])
	assert.Equal(t, Rejected, out)
	out, _ = v.Tap(Coord{Row: -1, Col: 0})
	assert.Equal(t, Rejected, out)
	out, _ = v.Tap(Coord{Row: 0, Col: DefaultSize})
	assert.Equal(t, Rejected, out)
	assert.Equal(t, 1, v.State().Accepted)

	out, _ = v.Tap(path[1])
	assert.Equal(t, Accepted, out)
	out, _ = v.Tap(path[1])
	assert.Equal(t, Rejected, out, "accepted index cannot be tapped twice")
}

func TestValidatorRejectsNonAdjacentNextIndex(t *testing.T) {
	// Index 2 sits two rows below index 1; such a layout never comes out of
	// the generator but the rule must still hold.
	pad := func() rune { return '之' }
	l := build(8, []rune("人之初性"), []Coord{{3, 3}, {3, 4}, {5, 4}, {5, 5}}, pad)
	v := NewValidator(l)

	out, _ := v.Tap(Coord{Row: 3, Col: 4})
	require.Equal(t, Accepted, out)

	out, st := v.Tap(Coord{Row: 5, Col: 4})
	assert.Equal(t, Rejected, out)
	assert.Equal(t, 2, st.Accepted)
}

func TestValidatorPrefixInvariant(t *testing.T) {
	l, err := newTestGenerator(21).Generate("學而時習之不亦說乎")
	require.NoError(t, err)
	v := NewValidator(l)

	// Sweep the whole grid repeatedly; only the path order can advance.
	for range l.Len() {
		for r := range l.Size() {
			for c := range l.Size() {
				v.Tap(Coord{Row: r, Col: c})
				for i, idx := range v.State().Indices() {
					require.Equal(t, i, idx)
				}
			}
		}
	}
	assert.True(t, v.Done())
}

func TestValidatorHint(t *testing.T) {
	l, err := newTestGenerator(5).Generate("春眠不覺曉")
	require.NoError(t, err)
	v := NewValidator(l)

	next, ok := v.Next()
	require.True(t, ok)
	assert.Equal(t, l.Path()[1], next)
	out, _ := v.Tap(next)
	assert.Equal(t, Accepted, out)
	assert.Equal(t, next, v.Tail())
}

func TestValidatorSingleCharacter(t *testing.T) {
	l, err := newTestGenerator(1).Generate("人")
	require.NoError(t, err)
	v := NewValidator(l)
	assert.True(t, v.Done())
	out, _ := v.Tap(l.Start())
	assert.Equal(t, Rejected, out)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "rejected", Rejected.String())
	assert.Equal(t, "accepted", Accepted.String())
	assert.Equal(t, "completed", Completed.String())
}
