package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2026, 10, 19, 12, 34, 56, 0, time.UTC)

func fixedClock() time.Time { return fixedTime }

const ts = "2026-10-19 12:34:56 "

func formatAll(f *formatter, stamp bool, chunks ...string) string {
	var out []byte
	for _, c := range chunks {
		out = append(out, f.format([]byte(c), stamp)...)
	}
	return string(out)
}

func TestFormatter_Timestamps(t *testing.T) {
	tests := []struct {
		name      string
		chunks    []string
		want      string
		lineStart bool
	}{
		{
			name:      "single line",
			chunks:    []string{"hello\n"},
			want:      ts + "hello\n",
			lineStart: true,
		},
		{
			name:      "line split over two chunks",
			chunks:    []string{"abc", "def\n"},
			want:      ts + "abcdef\n",
			lineStart: true,
		},
		{
			name:      "multi line chunk",
			chunks:    []string{"a\nb\nc\n"},
			want:      ts + "a\n" + ts + "b\n" + ts + "c\n",
			lineStart: true,
		},
		{
			name:   "unterminated last line",
			chunks: []string{"a\nb"},
			want:   ts + "a\n" + ts + "b",
		},
		{
			name:      "newline in its own chunk",
			chunks:    []string{"a", "\n", "b", "\n"},
			want:      ts + "a\n" + ts + "b\n",
			lineStart: true,
		},
		{
			name:      "empty lines",
			chunks:    []string{"\n\n"},
			want:      ts + "\n" + ts + "\n",
			lineStart: true,
		},
		{
			name:      "empty chunks are ignored",
			chunks:    []string{"", "x\n", ""},
			want:      ts + "x\n",
			lineStart: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFormatter(DefaultTimestampFormat, fixedClock)
			require.Equal(t, tt.want, formatAll(&f, true, tt.chunks...))
			require.Equal(t, tt.lineStart, f.atLineStart)
		})
	}
}

func TestFormatter_ChunkBoundaryInvariance(t *testing.T) {
	input := "I (31) boot: ESP-IDF v5.1\nI (35) boot: compile time\n\nabc\r\nlast line without newline"

	whole := newFormatter(DefaultTimestampFormat, fixedClock)
	want := formatAll(&whole, true, input)

	for i := 0; i <= len(input); i++ {
		for j := i; j <= len(input); j++ {
			f := newFormatter(DefaultTimestampFormat, fixedClock)
			got := formatAll(&f, true, input[:i], input[i:j], input[j:])
			require.Equal(t, want, got, "split at %d and %d", i, j)
			require.Equal(t, whole.atLineStart, f.atLineStart)
		}
	}

	bytewise := newFormatter(DefaultTimestampFormat, fixedClock)
	var chunks []string
	for i := range input {
		chunks = append(chunks, input[i:i+1])
	}
	require.Equal(t, want, formatAll(&bytewise, true, chunks...))
}

func TestFormatter_PassthroughTracksLineStart(t *testing.T) {
	f := newFormatter(DefaultTimestampFormat, fixedClock)
	require.True(t, f.atLineStart)

	require.Equal(t, "abc", string(f.format([]byte("abc"), false)))
	require.False(t, f.atLineStart)

	// empty input never toggles state
	require.Empty(t, f.format(nil, false))
	require.False(t, f.atLineStart)

	require.Equal(t, "def\n", string(f.format([]byte("def\n"), false)))
	require.True(t, f.atLineStart)

	require.Empty(t, f.format([]byte{}, true))
	require.True(t, f.atLineStart)

	// switching timestamps on mid-stream stamps the next line only
	require.Equal(t, ts+"ghi\n", string(f.format([]byte("ghi\n"), true)))
}

func TestFormatter_CustomLayout(t *testing.T) {
	f := newFormatter("15:04:05.000", fixedClock)
	require.Equal(t, "12:34:56.000 x\n", formatAll(&f, true, "x\n"))
}

func TestFormatter_DoesNotModifyInput(t *testing.T) {
	f := newFormatter(DefaultTimestampFormat, fixedClock)
	in := []byte("a\nb\n")
	f.format(in, true)
	require.Equal(t, "a\nb\n", string(in))
}
