package monitor

import (
	"bytes"
	"time"
)

var newline = []byte{'\n'}

// formatter inserts timestamps at the start of every logical line of a
// stream that arrives in arbitrary chunks.
type formatter struct {
	atLineStart bool
	layout      string
	now         func() time.Time
}

func newFormatter(layout string, now func() time.Time) formatter {
	return formatter{atLineStart: true, layout: layout, now: now}
}

// format returns the bytes to emit for chunk. With stamp false the chunk is
// returned as is and only the line-start state is tracked.
func (f *formatter) format(chunk []byte, stamp bool) []byte {
	if len(chunk) == 0 {
		return chunk
	}
	if !stamp {
		f.atLineStart = bytes.HasSuffix(chunk, newline)
		return chunk
	}

	prefix := append([]byte(f.now().Format(f.layout)), ' ')

	s := make([]byte, 0, len(prefix)+len(chunk))
	if f.atLineStart {
		s = append(s, prefix...)
	}
	s = append(s, chunk...)

	// A trailing newline gets its timestamp from the next chunk.
	f.atLineStart = bytes.HasSuffix(s, newline)
	if f.atLineStart {
		s = s[:len(s)-1]
	}
	s = bytes.ReplaceAll(s, newline, append([]byte{'\n'}, prefix...))
	if f.atLineStart {
		s = append(s, '\n')
	}
	return s
}
