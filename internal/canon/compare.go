package canon

import "cmp"

// Chain evaluates three-way comparisons in priority order and keeps the first
// non-zero result. The zero value is ready to use.
//
//	return canon.Chain{}.
//		Strings(a.id, b.id).
//		TrueFirst(a.explicit, b.explicit).
//		Then(func() int { return compareTags(a.tags, b.tags) }).
//		Result()
type Chain struct {
	result int
}

// Strings compares a and b in natural byte order. The empty string, which
// stands in for an absent value, therefore sorts first.
func (c Chain) Strings(a, b string) Chain {
	if c.result != 0 {
		return c
	}
	return Chain{result: cmp.Compare(a, b)}
}

// TrueFirst orders true before false.
func (c Chain) TrueFirst(a, b bool) Chain {
	if c.result != 0 || a == b {
		return c
	}
	if a {
		return Chain{result: -1}
	}
	return Chain{result: 1}
}

// Float64s compares a and b treating every NaN as equal to every other NaN
// and less than any number.
func (c Chain) Float64s(a, b float64) Chain {
	if c.result != 0 {
		return c
	}
	return Chain{result: cmp.Compare(a, b)}
}

// Then runs fn only when every earlier comparison tied.
func (c Chain) Then(fn func() int) Chain {
	if c.result != 0 {
		return c
	}
	return Chain{result: sign(fn())}
}

// Result returns -1, 0 or 1.
func (c Chain) Result() int {
	return c.result
}

// Lexicographic compares two sequences element by element; a proper prefix
// sorts before the longer sequence.
func Lexicographic[T any](a, b []T, compare func(T, T) int) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := compare(a[i], b[i]); c != 0 {
			return sign(c)
		}
	}
	return cmp.Compare(len(a), len(b))
}

// NullsFirst compares optional values, ordering nil before any present value.
func NullsFirst[T any](a, b *T, compare func(*T, *T) int) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return sign(compare(a, b))
}

func sign(c int) int {
	switch {
	case c < 0:
		return -1
	case c > 0:
		return 1
	}
	return 0
}
