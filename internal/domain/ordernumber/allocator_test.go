package ordernumber

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsSequential(t *testing.T) {
	tests := []struct {
		n    int
		want bool
	}{
		{n: 123456, want: true},
		{n: 234567, want: true},
		{n: 345678, want: true},
		{n: 456789, want: true},
		{n: 987654, want: true},
		{n: 876543, want: true},
		{n: 765432, want: true},
		{n: 654321, want: true},
		{n: 543210, want: true},
		{n: 123457, want: false},
		{n: 111111, want: false},
		{n: 135792, want: false},
		{n: 100000, want: false},
		{n: 121212, want: false},
		{n: 7, want: false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IsSequential(tt.n), "IsSequential(%d)", tt.n)
	}
}

// fixedRand replays values in order, then keeps returning the last one.
func fixedRand(values ...int) func(int) int {
	i := 0
	return func(int) int {
		v := values[i]
		if i < len(values)-1 {
			i++
		}
		return v
	}
}

func TestAllocate_RandomPhase(t *testing.T) {
	// 123456 is sequential, 500000 is taken, 500001 is free.
	a := New(WithRand(fixedRand(123456-Min, 500000-Min, 500001-Min)))

	n, err := a.Allocate(NewSet([]int{500000}))
	require.NoError(t, err)
	assert.Equal(t, 500001, n)
}

func TestAllocate_FallbackSweep(t *testing.T) {
	// The random source keeps proposing a taken number, so the sweep runs.
	a := New(
		WithRand(fixedRand(0)),
		WithBudget(3),
	)

	n, err := a.Allocate(NewSet([]int{100000, 100001}))
	require.NoError(t, err)
	assert.Equal(t, 100002, n)
}

func TestAllocate_SweepSkipsSequential(t *testing.T) {
	a := New(WithBudget(0))

	existing := Set{}
	for n := Min; n < 123456; n++ {
		existing[n] = struct{}{}
	}

	n, err := a.Allocate(existing)
	require.NoError(t, err)
	assert.Equal(t, 123457, n)
}

func TestAllocate_Exhausted(t *testing.T) {
	existing := make(Set, Max-Min+1)
	for n := Min; n <= Max; n++ {
		if n == 987654 {
			// Sequential numbers are never issued, so leaving one out still
			// exhausts the space.
			continue
		}
		existing[n] = struct{}{}
	}

	a := New(WithBudget(10))
	_, err := a.Allocate(existing)
	require.ErrorIs(t, err, ErrExhausted)
}

func TestAllocate_ManyUnique(t *testing.T) {
	a := New()
	existing := Set{}

	for range 2000 {
		n, err := a.Allocate(existing)
		require.NoError(t, err)
		require.GreaterOrEqual(t, n, Min)
		require.LessOrEqual(t, n, Max)
		require.False(t, existing.Has(n))
		require.False(t, IsSequential(n))
		existing[n] = struct{}{}
	}
}
