// Package cmp defines the total order used to arrange keys inside an
// SSTable, plus the two key-shortening helpers the table builder uses to
// keep index entries small.
package cmp

import "bytes"

// Ordering mirrors the three-way result of a comparison.
type Ordering int

const (
	Less Ordering = -1
	Equal Ordering = 0
	Greater Ordering = 1
)

// Comparator imposes a total order on keys. Implementations must be
// deterministic and consistent with themselves across calls: cmp.cmp(a,b)
// and cmp.cmp(b,a) must agree, and the shortening helpers must never
// produce a result that violates the order they are asked to preserve.
type Comparator interface {
	// Cmp returns Less, Equal or Greater for a compared to b.
	Cmp(a, b []byte) Ordering

	// FindShortestSeparator returns some S with a <= S < b (strict when
	// a < b), suitable for use as an index-block separator key. It may
	// return a itself when no shorter representative exists.
	FindShortestSeparator(a, b []byte) []byte

	// FindShortSuccessor returns some S > a, as short as possible. Used
	// as the index separator for the last block in a table.
	FindShortSuccessor(a []byte) []byte

	// Name identifies the comparator. Recorded in table metadata but not
	// enforced across reopens.
	Name() string
}

// BytewiseComparator is the default Comparator: plain lexicographic order
// over the raw key bytes.
type BytewiseComparator struct{}

// Default is the package-level BytewiseComparator instance.
var Default = BytewiseComparator{}

func (BytewiseComparator) Name() string { return "leveldb.BytewiseComparator" }

func (BytewiseComparator) Cmp(a, b []byte) Ordering {
	switch bytes.Compare(a, b) {
	case -1:
		return Less
	case 1:
		return Greater
	default:
		return Equal
	}
}

// FindShortestSeparator walks the common prefix of a and b. At the first
// differing byte, if a[i] can be incremented without reaching or passing
// b[i], the truncated-and-incremented prefix is returned — it sorts
// strictly after a and strictly before b. If a == b, a is returned
// unchanged. Otherwise (including the case where one string is a prefix
// of the other) a single trailing 0x00 is appended to a.
//
// The increment test must only ever inspect the single differing byte: an
// older, narrower reading of this rule kept scanning subsequent bytes for
// a place to increment, which can return a separator that is not < b when
// the early bytes differ only by one. Stopping at the first difference is
// what keeps the "a <= S < b" guarantee intact.
func (c BytewiseComparator) FindShortestSeparator(a, b []byte) []byte {
	if bytes.Equal(a, b) {
		return a
	}

	min := len(a)
	if len(b) < min {
		min = len(b)
	}

	diffAt := 0
	for diffAt < min && a[diffAt] == b[diffAt] {
		diffAt++
	}

	if diffAt < min && a[diffAt] < 0xff && a[diffAt]+1 < b[diffAt] {
		sep := append([]byte(nil), a[:diffAt+1]...)
		sep[diffAt]++
		return sep
	}

	return append(append([]byte(nil), a...), 0x00)
}

// FindShortSuccessor returns the shortest string greater than a: the
// prefix up to and including the first byte that isn't 0xff, incremented,
// or a with a trailing 0xff appended if a consists entirely of 0xff bytes
// (or is empty).
func (c BytewiseComparator) FindShortSuccessor(a []byte) []byte {
	for i := 0; i < len(a); i++ {
		if a[i] != 0xff {
			succ := append([]byte(nil), a[:i+1]...)
			succ[i]++
			return succ
		}
	}
	return append(append([]byte(nil), a...), 0xff)
}
