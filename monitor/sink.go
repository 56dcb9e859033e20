package monitor

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/spf13/afero"
)

const logFileTimeLayout = "20060102150405"

// maxLogFileSuffix bounds the search for a free log file name within one second.
const maxLogFileSuffix = 100

// sink sends formatted output to the console and to the open log file.
type sink struct {
	fs      afero.Fs
	console io.Writer
	notes   *notifier
	logger  log.Logger
	now     func() time.Time

	outputEnabled bool
	file          afero.File
	fileName      string
	written       uint64
}

// write forwards p to the console when display is enabled and to the log
// file when one is open. warn selects the high-visibility console channel.
func (s *sink) write(p []byte, warn bool) {
	if s.outputEnabled {
		var err error
		if warn {
			_, err = io.WriteString(s.console, s.notes.warn.Sprint(string(p)))
		} else {
			_, err = s.console.Write(p)
		}
		if err != nil {
			level.Debug(s.logger).Log("msg", "console write failed", "err", err)
		}
	}
	if s.file != nil {
		n, err := s.file.Write(p)
		s.written += uint64(n)
		if err != nil {
			s.notes.error("Cannot write to file: %v", err)
			// subsequent writes would most likely fail the same way
			s.disableLogging()
		}
	}
}

// logFileName builds the name of a new log file. n > 0 disambiguates files
// created within the same second.
func logFileName(base, image string, t time.Time, n int) string {
	stamp := t.Format(logFileTimeLayout)
	if n > 0 {
		stamp = fmt.Sprintf("%s_%d", stamp, n)
	}
	if base != "" {
		return fmt.Sprintf("%s.%s.log", base, stamp)
	}
	name := strings.TrimSuffix(filepath.Base(image), filepath.Ext(image))
	if image == "" || name == "" || name == "." {
		name = "monitor"
	}
	return fmt.Sprintf("log.%s.%s.txt", name, stamp)
}

// enableLogging opens a new log file unless one is already open. Failures
// are reported as notices and leave logging disabled.
func (s *sink) enableLogging(base, image string) (string, error) {
	if s.file != nil {
		return s.fileName, nil
	}
	t := s.now()
	var (
		name string
		f    afero.File
		err  error
	)
	for n := 0; n < maxLogFileSuffix; n++ {
		name = logFileName(base, image, t, n)
		f, err = s.fs.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if !errors.Is(err, os.ErrExist) {
			break
		}
	}
	if err != nil {
		s.notes.error("Log file %s cannot be created: %v", name, err)
		return "", fmt.Errorf("create log file %s: %w", name, err)
	}
	s.file = f
	s.fileName = name
	s.written = 0
	s.notes.info("Logging is enabled into file %s", name)
	return name, nil
}

// disableLogging closes the open log file, if any, and returns its name.
func (s *sink) disableLogging() (string, error) {
	if s.file == nil {
		return "", nil
	}
	name := s.fileName
	err := s.file.Close()
	s.file = nil
	s.fileName = ""
	if err != nil {
		s.notes.error("Log file %s cannot be closed: %v", name, err)
		return name, fmt.Errorf("close log file %s: %w", name, err)
	}
	s.notes.info("Logging is disabled and file %s has been closed (%s written)", name, humanize.Bytes(s.written))
	return name, nil
}

func (s *sink) toggleOutput() bool {
	s.outputEnabled = !s.outputEnabled
	s.notes.info("Toggle output display: %v, Type Ctrl-T Ctrl-Y to show/disable output again.", s.outputEnabled)
	return s.outputEnabled
}
