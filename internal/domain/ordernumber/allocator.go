// Package ordernumber allocates the public six-digit order numbers.
package ordernumber

import (
	"math/rand/v2"

	"github.com/go-faster/errors"
)

const (
	Min = 100000
	Max = 999999

	// DefaultBudget is how many random draws are tried before the
	// deterministic sweep.
	DefaultBudget = 10000
)

// ErrExhausted is returned when every candidate number is taken or sequential.
var ErrExhausted = errors.New("order number space exhausted")

// Set is the collection of numbers already issued.
type Set map[int]struct{}

// NewSet builds a Set from a slice of numbers.
func NewSet(numbers []int) Set {
	s := make(Set, len(numbers))
	for _, n := range numbers {
		s[n] = struct{}{}
	}
	return s
}

// Has reports whether n is in the set.
func (s Set) Has(n int) bool {
	_, ok := s[n]
	return ok
}

// Allocator picks unused, non-sequential order numbers. The zero value is not
// usable; call New.
type Allocator struct {
	intN   func(n int) int
	budget int
}

// Option configures an Allocator.
type Option func(*Allocator)

// WithRand sets the source of random candidates. f must return a value in
// [0, n).
func WithRand(f func(n int) int) Option {
	return func(a *Allocator) { a.intN = f }
}

// WithBudget sets the number of random draws before the sweep. Zero skips the
// random phase entirely.
func WithBudget(n int) Option {
	return func(a *Allocator) { a.budget = n }
}

// New creates an Allocator backed by the global random source.
func New(opts ...Option) *Allocator {
	a := &Allocator{
		intN:   rand.IntN,
		budget: DefaultBudget,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Allocate returns a number in [Min, Max] that is not in existing and is not
// sequential. It has no side effects; the caller is responsible for
// persisting the number and retrying on a uniqueness conflict.
func (a *Allocator) Allocate(existing Set) (int, error) {
	for range a.budget {
		n := Min + a.intN(Max-Min+1)
		if acceptable(n, existing) {
			return n, nil
		}
	}

	for n := Min; n <= Max; n++ {
		if acceptable(n, existing) {
			return n, nil
		}
	}

	return 0, ErrExhausted
}

func acceptable(n int, existing Set) bool {
	return !existing.Has(n) && !IsSequential(n)
}

// IsSequential reports whether the decimal digits of n go strictly up or
// strictly down by one at every step, like 123456 or 654321. Numbers with
// fewer than two digits are not sequential.
func IsSequential(n int) bool {
	if n < 0 {
		n = -n
	}
	if n < 10 {
		return false
	}

	var digits [20]int
	count := 0
	for ; n > 0; n /= 10 {
		digits[count] = n % 10
		count++
	}

	// digits are least significant first, so an ascending number has
	// step +1 here.
	step := digits[0] - digits[1]
	if step != 1 && step != -1 {
		return false
	}
	for i := 1; i < count-1; i++ {
		if digits[i]-digits[i+1] != step {
			return false
		}
	}
	return true
}
