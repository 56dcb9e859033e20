// Package monitor turns the raw output of an embedded device into console
// output. A Logger optionally prefixes lines with timestamps, mirrors the
// output into a log file and decodes program counters printed by the firmware
// into source locations.
package monitor

import (
	"bytes"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/go-kit/log"
	"github.com/spf13/afero"

	"github.com/luhtfiimanal/go-serial-monitor/pcaddr"
)

// Logger is the output side of a monitor session. It is safe for concurrent
// use: the serial reader calls Process while a key handler toggles features.
type Logger struct {
	mu         sync.Mutex
	cfg        Config
	timestamps bool
	closed     bool

	formatter formatter
	annotator annotator
	sink      sink

	// annotations wait here until the line that contained them is complete
	held []Annotation
}

type options struct {
	console  io.Writer
	notices  io.Writer
	resolver pcaddr.Resolver
	images   []*pcaddr.Image
	fs       afero.Fs
	now      func() time.Time
	logger   log.Logger
	colored  bool
}

// Option configures the collaborators of a Logger.
type Option func(*options)

// WithConsole sets where device output is displayed. Defaults to os.Stdout.
func WithConsole(w io.Writer) Option {
	return func(o *options) { o.console = w }
}

// WithNotices sets where session notices are printed. Defaults to os.Stderr.
func WithNotices(w io.Writer) Option {
	return func(o *options) { o.notices = w }
}

// WithResolver replaces the addr2line based resolver.
func WithResolver(r pcaddr.Resolver) Option {
	return func(o *options) { o.resolver = r }
}

// WithImages uses already loaded images, searched in the given order,
// instead of loading Config.ElfFile and Config.RomElfFile.
func WithImages(images ...*pcaddr.Image) Option {
	return func(o *options) { o.images = images }
}

// WithFs sets the filesystem log files are created on.
func WithFs(fs afero.Fs) Option {
	return func(o *options) { o.fs = fs }
}

// WithClock sets the time source for timestamps and log file names.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLogger sets the diagnostics logger.
func WithLogger(l log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithColor forces colored notices and annotations on or off.
func WithColor(enabled bool) Option {
	return func(o *options) { o.colored = enabled }
}

// New creates a Logger. Images are loaded once here; a broken image only
// disables address decoding for that image. If cfg.LogFile is set, logging
// starts right away.
func New(cfg Config, opts ...Option) *Logger {
	cfg = cfg.withDefaults()
	o := options{
		console: os.Stdout,
		notices: os.Stderr,
		fs:      afero.NewOsFs(),
		now:     time.Now,
		logger:  log.NewNopLogger(),
		colored: !color.NoColor,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.resolver == nil {
		o.resolver = &pcaddr.Addr2Line{ToolchainPrefix: cfg.ToolchainPrefix, Logger: o.logger}
	}

	notes := newNotifier(o.notices, o.colored)
	l := &Logger{
		cfg:        cfg,
		timestamps: cfg.Timestamps,
		formatter:  newFormatter(cfg.TimestampFormat, o.now),
		sink: sink{
			fs:            o.fs,
			console:       o.console,
			notes:         notes,
			logger:        o.logger,
			now:           o.now,
			outputEnabled: true,
		},
	}

	if cfg.DecodeAddresses {
		images := o.images
		if images == nil {
			images = append(images, pcaddr.LoadImage(o.logger, cfg.ElfFile, false))
			if cfg.RomElfFile != "" {
				images = append(images, pcaddr.LoadImage(o.logger, cfg.RomElfFile, true))
			}
		}
		l.annotator = annotator{enabled: true, images: images, resolver: o.resolver}
	}

	if cfg.LogFile != "" {
		l.sink.enableLogging(cfg.LogFile, cfg.ElfFile)
	}
	return l
}

// Process handles one chunk read from the device: it is displayed and logged,
// and every address in it that resolves is printed on a line of its own right
// after the device line that contained it. The result does not depend on how
// the stream was split into chunks.
func (l *Logger) Process(chunk []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// A partial token never spans a newline, so the annotator holds nothing
	// back once a segment ending in one has been processed.
	for _, seg := range bytes.SplitAfter(chunk, newline) {
		display, notes := l.annotator.process(seg)
		l.print(display, false)
		l.held = append(l.held, notes...)
		if bytes.HasSuffix(seg, newline) {
			l.printAnnotations()
		}
	}
}

func (l *Logger) printAnnotations() {
	if len(l.held) == 0 {
		return
	}
	if !l.formatter.atLineStart {
		l.print(newline, false)
	}
	for _, n := range l.held {
		l.print([]byte(n.Text+"\n"), true)
	}
	l.held = nil
}

// Print emits text that did not come from the device through the same
// timestamping and logging path as device output.
func (l *Logger) Print(p []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.print(p, false)
}

func (l *Logger) print(p []byte, warn bool) {
	stamp := l.timestamps && (l.sink.outputEnabled || l.sink.file != nil)
	out := l.formatter.format(p, stamp)
	if len(out) == 0 {
		return
	}
	l.sink.write(out, warn)
}

// StartLogging opens a new log file unless one is already open. The error
// is also reported as a notice; the session continues without logging.
func (l *Logger) StartLogging() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err := l.sink.enableLogging(l.cfg.LogFile, l.cfg.ElfFile)
	return err
}

// StopLogging closes the log file, if one is open.
func (l *Logger) StopLogging() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sink.disableLogging()
}

// ToggleLogging stops logging if a log file is open and starts a new one otherwise.
func (l *Logger) ToggleLogging() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sink.file != nil {
		l.sink.disableLogging()
		return
	}
	l.sink.enableLogging(l.cfg.LogFile, l.cfg.ElfFile)
}

// ToggleTimestamps flips timestamping and returns the new state.
func (l *Logger) ToggleTimestamps() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.timestamps = !l.timestamps
	return l.timestamps
}

// SetTimestamps turns timestamping on or off.
func (l *Logger) SetTimestamps(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.timestamps = enabled
}

// ToggleOutput flips console display and returns the new state. Logging
// is not affected.
func (l *Logger) ToggleOutput() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sink.toggleOutput()
}

// OutputEnabled reports whether device output is displayed.
func (l *Logger) OutputEnabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sink.outputEnabled
}

// TimestampsEnabled reports whether lines are prefixed with a timestamp.
func (l *Logger) TimestampsEnabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.timestamps
}

// LoggingEnabled reports whether a log file is open.
func (l *Logger) LoggingEnabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sink.file != nil
}

// LogFileName returns the name of the open log file or "".
func (l *Logger) LogFileName() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sink.fileName
}

// AtLineStart reports whether the next byte printed starts a new line.
func (l *Logger) AtLineStart() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.formatter.atLineStart
}

// Close prints bytes and annotations still held back by address detection
// and closes the log file. Calling Close more than once is a no-op.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	l.print(l.annotator.flush(), false)
	l.printAnnotations()
	_, err := l.sink.disableLogging()
	return err
}
