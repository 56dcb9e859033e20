package monitor

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// notifier prints out-of-band messages about the session itself, such as a
// log file being opened. They never reach the log file.
type notifier struct {
	w    io.Writer
	warn *color.Color
	err  *color.Color
}

func newNotifier(w io.Writer, colored bool) *notifier {
	n := &notifier{
		w:    w,
		warn: color.New(color.FgYellow),
		err:  color.New(color.FgRed),
	}
	if colored {
		n.warn.EnableColor()
		n.err.EnableColor()
	} else {
		n.warn.DisableColor()
		n.err.DisableColor()
	}
	return n
}

func (n *notifier) info(format string, args ...any) {
	n.print(n.warn, format, args...)
}

func (n *notifier) error(format string, args ...any) {
	n.print(n.err, format, args...)
}

// print writes the message colored as a whole. Color.Fprint omits the reset
// sequence whenever color.NoColor is set globally.
func (n *notifier) print(c *color.Color, format string, args ...any) {
	io.WriteString(n.w, c.Sprint("\n"+fmt.Sprintf(format, args...)+"\n"))
}
