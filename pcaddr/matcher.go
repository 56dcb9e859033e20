// Package pcaddr decides whether a number printed by firmware is a program
// counter of one of the loaded images and turns such addresses into source
// locations.
package pcaddr

import (
	"sort"
)

// Range is a half-open address interval [Start, Start+Length).
type Range struct {
	Start  uint64
	Length uint64
}

// End returns the first address past the range.
func (r Range) End() uint64 {
	return r.Start + r.Length
}

// Contains reports whether addr lies inside the range.
func (r Range) Contains(addr uint64) bool {
	return addr >= r.Start && addr-r.Start < r.Length
}

// Matcher answers whether an address falls inside an executable section.
// The zero value and a nil *Matcher match nothing. Ranges never change after
// NewMatcher returns, so a Matcher can be shared between goroutines.
type Matcher struct {
	ranges []Range // sorted by Start, non-overlapping
}

// NewMatcher builds a Matcher from ranges in any order. Empty ranges are
// dropped and overlapping or adjacent ranges are merged.
func NewMatcher(ranges []Range) *Matcher {
	rs := make([]Range, 0, len(ranges))
	for _, r := range ranges {
		if r.Length > 0 {
			rs = append(rs, r)
		}
	}
	sort.Slice(rs, func(i, j int) bool {
		return rs[i].Start < rs[j].Start
	})

	merged := rs[:0]
	for _, r := range rs {
		if n := len(merged); n > 0 && r.Start <= merged[n-1].End() {
			last := &merged[n-1]
			if r.End() > last.End() {
				last.Length = r.End() - last.Start
			}
			continue
		}
		merged = append(merged, r)
	}
	return &Matcher{ranges: merged}
}

// IsExecutableAddress reports whether addr lies in any executable range.
func (m *Matcher) IsExecutableAddress(addr uint64) bool {
	if m == nil || len(m.ranges) == 0 {
		return false
	}
	i := sort.Search(len(m.ranges), func(i int) bool {
		return addr < m.ranges[i].Start
	})
	if i == 0 {
		return false
	}
	return m.ranges[i-1].Contains(addr)
}

// Ranges returns a copy of the merged ranges.
func (m *Matcher) Ranges() []Range {
	if m == nil {
		return nil
	}
	return append([]Range(nil), m.ranges...)
}

// Empty reports whether the matcher can never match.
func (m *Matcher) Empty() bool {
	return m == nil || len(m.ranges) == 0
}
