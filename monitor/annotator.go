package monitor

import (
	"strconv"

	"github.com/grafana/regexp"

	"github.com/luhtfiimanal/go-serial-monitor/pcaddr"
)

// addressRE matches the program counters printed in panic dumps and backtraces.
var addressRE = regexp.MustCompile(`(?i)0x[0-9a-f]{8}`)

const addressTokenLen = len("0x") + 8

// Annotation is a resolved address, printed as its own line after the text
// that contained it.
type Annotation struct {
	Address uint64
	Text    string
	ROM     bool
}

// annotator finds addresses in the device output. A token cut in half by a
// chunk boundary is held back until the next chunk completes it.
type annotator struct {
	enabled  bool
	images   []*pcaddr.Image // searched in order, application first
	resolver pcaddr.Resolver
	pending  []byte
}

// process returns the part of chunk that can be displayed now and the
// annotations for every resolved address in it.
func (a *annotator) process(chunk []byte) ([]byte, []Annotation) {
	line := chunk
	if len(a.pending) > 0 {
		line = append(a.pending, chunk...)
		a.pending = nil
	}
	if !a.enabled || len(a.images) == 0 {
		return line, nil
	}

	matches := addressRE.FindAllIndex(line, -1)
	lastEnd := 0
	if len(matches) > 0 {
		lastEnd = matches[len(matches)-1][1]
	}
	if start := partialTokenStart(line, lastEnd); start >= 0 {
		a.pending = append([]byte(nil), line[start:]...)
		line = line[:start]
	}

	var notes []Annotation
	for _, m := range matches {
		token := string(line[m[0]:m[1]])
		if note, ok := a.resolve(token); ok {
			notes = append(notes, note)
		}
	}
	return line, notes
}

func (a *annotator) resolve(token string) (Annotation, bool) {
	addr, err := strconv.ParseUint(token[2:], 16, 64)
	if err != nil {
		return Annotation{}, false
	}
	for _, img := range a.images {
		if !img.Contains(addr) {
			continue
		}
		if desc, ok := a.resolver.Resolve(token, img); ok {
			return Annotation{Address: addr, Text: desc, ROM: img.ROM}, true
		}
	}
	return Annotation{}, false
}

// flush hands back the held-back bytes at the end of a session.
func (a *annotator) flush() []byte {
	p := a.pending
	a.pending = nil
	return p
}

// partialTokenStart returns the index of the longest suffix of b, starting at
// or after from, that could still grow into an address token, or -1.
func partialTokenStart(b []byte, from int) int {
	start := len(b) - (addressTokenLen - 1)
	if start < from {
		start = from
	}
	for i := start; i < len(b); i++ {
		if isTokenPrefix(b[i:]) {
			return i
		}
	}
	return -1
}

func isTokenPrefix(p []byte) bool {
	if len(p) == 0 || len(p) >= addressTokenLen || p[0] != '0' {
		return false
	}
	if len(p) == 1 {
		return true
	}
	if p[1] != 'x' && p[1] != 'X' {
		return false
	}
	for _, c := range p[2:] {
		if !isHexDigit(c) {
			return false
		}
	}
	return true
}

func isHexDigit(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}
