package serial

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"syscall"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sys/unix"
)

// ErrClosed is returned by the blocking read calls once Close has been called.
var ErrClosed = errors.New("serialreader closed")

// DefaultReadSize is the chunk buffer size used when Config.ReadSize is zero.
const DefaultReadSize = 4096

// SerialReader provides low-latency, killable access to a Linux serial port.
// Data can be consumed either as raw chunks (for a console monitor) or as
// delimiter-terminated lines. It is safe for concurrent use by multiple goroutines.
type SerialReader struct {
	fd        int
	file      *os.File
	done      chan struct{}
	closeOnce sync.Once
	writeMu   sync.Mutex
	config    Config
	pipeR     int // self-pipe read fd
	pipeW     int // self-pipe write fd
}

// Config holds configuration parameters for opening a serial port.
type Config struct {
	Device    string `yaml:"device"`
	BaudRate  int    `yaml:"baud_rate"`
	Delimiter string `yaml:"delimiter"` // line mode only, default "\r\n"
	ReadSize  int    `yaml:"read_size"` // chunk buffer size, default DefaultReadSize
}

func (c Config) withDefaults() Config {
	if c.Delimiter == "" {
		c.Delimiter = "\r\n"
	}
	if c.ReadSize <= 0 {
		c.ReadSize = DefaultReadSize
	}
	return c
}

// Open opens a serial port using the provided Config and returns a SerialReader.
// The port is configured for raw, low-latency, non-buffered operation.
func Open(cfg Config) (*SerialReader, error) {
	cfg = cfg.withDefaults()
	baud, err := baudToUnix(cfg.BaudRate)
	if err != nil {
		return nil, err
	}

	fd, err := syscall.Open(cfg.Device, syscall.O_RDWR|syscall.O_NOCTTY|syscall.O_NONBLOCK, 0666)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Device, err)
	}

	if err := configureRaw(fd, baud); err != nil {
		syscall.Close(fd)
		return nil, err
	}

	// Turn back into blocking mode now that config is done
	if err := syscall.SetNonblock(fd, false); err != nil {
		syscall.Close(fd)
		return nil, fmt.Errorf("set blocking: %w", err)
	}

	// Create self-pipe for killability
	pipeFds := make([]int, 2)
	if err := unix.Pipe(pipeFds); err != nil {
		syscall.Close(fd)
		return nil, fmt.Errorf("pipe: %w", err)
	}

	return &SerialReader{
		fd:     fd,
		file:   os.NewFile(uintptr(fd), cfg.Device),
		done:   make(chan struct{}),
		config: cfg,
		pipeR:  pipeFds[0],
		pipeW:  pipeFds[1],
	}, nil
}

func configureRaw(fd int, baud uint32) error {
	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return fmt.Errorf("get termios: %w", err)
	}

	// Raw mode
	termios.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	termios.Oflag &^= unix.OPOST
	termios.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	termios.Cflag &^= unix.CSIZE | unix.PARENB
	termios.Cflag |= unix.CS8

	termios.Cflag &^= unix.CBAUD
	termios.Cflag |= baud

	// VMIN=1, VTIME=0: a read returns as soon as one byte is available
	termios.Cc[unix.VMIN] = 1
	termios.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, termios); err != nil {
		return fmt.Errorf("set termios: %w", err)
	}
	return nil
}

// Config returns the effective configuration, defaults applied.
func (s *SerialReader) Config() Config {
	return s.config
}

// Write sends raw bytes to the device. It implements io.Writer so key
// presses can be forwarded from a console.
func (s *SerialReader) Write(p []byte) (int, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.file.Write(p)
}

// WriteLine writes a line (with specified newline) to the serial port.
func (s *SerialReader) WriteLine(line string, newline string) error {
	_, err := s.Write([]byte(line + newline))
	return err
}

// waitReadable blocks until the port has data or the reader is closed.
// It returns ErrClosed once Close has been called.
func (s *SerialReader) waitReadable() error {
	for {
		pfd := []unix.PollFd{
			{Fd: int32(s.fd), Events: unix.POLLIN},
			{Fd: int32(s.pipeR), Events: unix.POLLIN},
		}
		_, err := unix.Poll(pfd, -1)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return err
		}
		select {
		case <-s.done:
			return ErrClosed
		default:
		}
		if pfd[1].Revents&unix.POLLIN != 0 {
			// Drain pipe
			var b [1]byte
			unix.Read(s.pipeR, b[:])
			return ErrClosed
		}
		if pfd[0].Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR|unix.POLLNVAL) != 0 {
			return nil
		}
	}
}

// ReadChunk blocks until some bytes are available and returns them as they
// arrived, with no regard for line boundaries.
func (s *SerialReader) ReadChunk(buf []byte) (int, error) {
	if err := s.waitReadable(); err != nil {
		return 0, err
	}
	return s.file.Read(buf)
}

// ReadChunksLoop continuously reads raw chunks from the serial port and invokes
// onChunk for each of them. The slice passed to onChunk is only valid for the
// duration of the call. If a read error occurs, onError is called and the loop
// exits; Close makes the loop return without calling onError.
func (s *SerialReader) ReadChunksLoop(onChunk func([]byte), onError func(error)) {
	buf := make([]byte, s.config.ReadSize)
	for {
		n, err := s.ReadChunk(buf)
		if errors.Is(err, ErrClosed) {
			return
		}
		if err != nil {
			onError(err)
			return
		}
		if n > 0 {
			onChunk(buf[:n])
		}
	}
}

// ReadLine reads a single line from the serial port, blocking until a full line is
// received or an error occurs. The delimiter is specified in Config.
func (s *SerialReader) ReadLine() (string, error) {
	buf := make([]byte, s.config.ReadSize)
	line := ""
	for {
		n, err := s.ReadChunk(buf)
		if err != nil {
			return "", err
		}
		line += string(buf[:n])
		if idx := strings.Index(line, s.config.Delimiter); idx >= 0 {
			return line[:idx], nil
		}
	}
}

// ReadLinesLoop continuously reads lines from the serial port and invokes onLine for each complete line.
// If an error occurs, onError is called and the loop exits.
func (s *SerialReader) ReadLinesLoop(onLine func(string), onError func(error)) {
	line := ""
	s.ReadChunksLoop(func(chunk []byte) {
		line += string(chunk)
		for {
			idx := strings.Index(line, s.config.Delimiter)
			if idx < 0 {
				break
			}
			onLine(line[:idx])
			line = line[idx+len(s.config.Delimiter):]
		}
	}, onError)
}

// Close closes the serial port and unblocks any pending read calls.
// Safe to call multiple times; subsequent calls are no-ops.
func (s *SerialReader) Close() error {
	var result error
	s.closeOnce.Do(func() {
		close(s.done)
		// Wake up poll using self-pipe
		if _, err := unix.Write(s.pipeW, []byte{1}); err != nil {
			result = multierror.Append(result, fmt.Errorf("wake reader: %w", err))
		}
		if err := s.file.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close %s: %w", s.config.Device, err))
		}
		if err := unix.Close(s.pipeR); err != nil {
			result = multierror.Append(result, fmt.Errorf("close pipe: %w", err))
		}
		if err := unix.Close(s.pipeW); err != nil {
			result = multierror.Append(result, fmt.Errorf("close pipe: %w", err))
		}
	})
	return result
}

func baudToUnix(baud int) (uint32, error) {
	switch baud {
	case 0, 115200:
		return unix.B115200, nil
	case 9600:
		return unix.B9600, nil
	case 19200:
		return unix.B19200, nil
	case 38400:
		return unix.B38400, nil
	case 57600:
		return unix.B57600, nil
	case 230400:
		return unix.B230400, nil
	case 460800:
		return unix.B460800, nil
	case 921600:
		return unix.B921600, nil
	default:
		return 0, fmt.Errorf("unsupported baud rate %d", baud)
	}
}
