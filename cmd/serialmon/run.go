package main

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"golang.org/x/term"

	serial "github.com/luhtfiimanal/go-serial-monitor"
	"github.com/luhtfiimanal/go-serial-monitor/monitor"
)

// crlfWriter restores the carriage returns a raw mode terminal no longer adds.
type crlfWriter struct {
	w io.Writer
}

func (c crlfWriter) Write(p []byte) (int, error) {
	if _, err := c.w.Write(bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))); err != nil {
		return 0, err
	}
	return len(p), nil
}

// session ties the serial port, the output logger and the console keys together.
type session struct {
	port   io.Writer
	mon    *monitor.Logger
	menu   keyMenu
	help   io.Writer
	logger log.Logger
}

// handleKey applies one key typed on the console. It returns false when the
// user asked to exit.
func (s *session) handleKey(b byte) bool {
	switch s.menu.feed(b) {
	case actionExit:
		return false
	case actionSend:
		if _, err := s.port.Write([]byte{b}); err != nil {
			level.Warn(s.logger).Log("msg", "write to device failed", "err", err)
		}
	case actionToggleLogging:
		s.mon.ToggleLogging()
	case actionToggleTimestamps:
		s.mon.ToggleTimestamps()
	case actionToggleOutput:
		s.mon.ToggleOutput()
	case actionHelp:
		fmt.Fprint(s.help, helpText)
	}
	return true
}

func run(cfg appConfig, logger log.Logger) error {
	port, err := serial.Open(cfg.Port)
	if err != nil {
		return fmt.Errorf("open port: %w", err)
	}

	var (
		console io.Writer = os.Stdout
		notices io.Writer = os.Stderr
	)
	stdin := int(os.Stdin.Fd())
	if term.IsTerminal(stdin) {
		state, err := term.MakeRaw(stdin)
		if err != nil {
			port.Close()
			return fmt.Errorf("set terminal raw mode: %w", err)
		}
		defer term.Restore(stdin, state)
		console = crlfWriter{os.Stdout}
		notices = crlfWriter{os.Stderr}
	}

	mon := monitor.New(cfg.Monitor,
		monitor.WithConsole(console),
		monitor.WithNotices(notices),
		monitor.WithLogger(logger),
		monitor.WithColor(cfg.colorEnabled()),
	)
	defer func() {
		// stop the reader before the log file goes away
		if err := port.Close(); err != nil {
			level.Warn(logger).Log("msg", "close port", "err", err)
		}
		if err := mon.Close(); err != nil {
			level.Warn(logger).Log("msg", "close monitor", "err", err)
		}
	}()

	fmt.Fprintf(notices, "--- serialmon on %s %d ---\n--- Quit: Ctrl+] | Menu: Ctrl+T | Help: Ctrl+T followed by Ctrl+H ---\n",
		cfg.Port.Device, cfg.Port.BaudRate)

	readErr := make(chan error, 1)
	go port.ReadChunksLoop(mon.Process, func(err error) { readErr <- err })

	keys := make(chan []byte)
	go readKeys(os.Stdin, keys)

	s := &session{port: port, mon: mon, help: notices, logger: logger}
	for {
		select {
		case err := <-readErr:
			return fmt.Errorf("read %s: %w", cfg.Port.Device, err)
		case typed, ok := <-keys:
			if !ok {
				return nil
			}
			for _, b := range typed {
				if !s.handleKey(b) {
					return nil
				}
			}
		}
	}
}

// readKeys forwards console input until it fails, then closes out.
func readKeys(r io.Reader, out chan<- []byte) {
	defer close(out)
	buf := make([]byte, 64)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			out <- append([]byte(nil), buf[:n]...)
		}
		if err != nil {
			return
		}
	}
}
