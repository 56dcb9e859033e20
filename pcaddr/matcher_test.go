package pcaddr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMatcher_IsExecutableAddress(t *testing.T) {
	m := NewMatcher([]Range{
		{Start: 0x400d0020, Length: 0x10000},
		{Start: 0x40080000, Length: 0x400},
	})

	tests := []struct {
		name string
		addr uint64
		want bool
	}{
		{"below everything", 0x3ffb0000, false},
		{"first byte of iram", 0x40080000, true},
		{"last byte of iram", 0x400803ff, true},
		{"end is exclusive", 0x40080400, false},
		{"between ranges", 0x400c0000, false},
		{"inside flash text", 0x400d1234, true},
		{"past last range", 0x400e0020, false},
		{"max uint64", ^uint64(0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, m.IsExecutableAddress(tt.addr))
		})
	}
}

func TestMatcher_MergesOverlaps(t *testing.T) {
	m := NewMatcher([]Range{
		{Start: 0x2000, Length: 0x1000},
		{Start: 0x1000, Length: 0x1800},
		{Start: 0x5000, Length: 0},
		{Start: 0x2800, Length: 0x100},
		{Start: 0x3000, Length: 0x10},
	})
	require.Equal(t, []Range{{Start: 0x1000, Length: 0x2010}}, m.Ranges())
	require.True(t, m.IsExecutableAddress(0x2fff))
	require.True(t, m.IsExecutableAddress(0x300f))
	require.False(t, m.IsExecutableAddress(0x3010))
	require.False(t, m.IsExecutableAddress(0x5000))
}

func TestMatcher_Empty(t *testing.T) {
	var nilMatcher *Matcher
	require.False(t, nilMatcher.IsExecutableAddress(0))
	require.True(t, nilMatcher.Empty())
	require.Nil(t, nilMatcher.Ranges())

	m := NewMatcher(nil)
	require.True(t, m.Empty())
	require.False(t, m.IsExecutableAddress(0x400d1234))

	var zero Matcher
	require.False(t, zero.IsExecutableAddress(1))
}

func TestMatcher_DoesNotAliasInput(t *testing.T) {
	in := []Range{{Start: 0x100, Length: 0x10}}
	m := NewMatcher(in)
	in[0].Start = 0x900
	require.True(t, m.IsExecutableAddress(0x105))
}

func TestRange_Contains(t *testing.T) {
	r := Range{Start: 0x400d1000, Length: 0x1000}
	require.Equal(t, uint64(0x400d2000), r.End())
	require.True(t, r.Contains(0x400d1000))
	require.True(t, r.Contains(0x400d1fff))
	require.False(t, r.Contains(0x400d2000))
	require.False(t, r.Contains(0x400d0fff))
}
