package pcaddr

import (
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// Resolver turns an address that matched an image into a human readable
// location. ok is false when nothing useful is known about the address.
type Resolver interface {
	Resolve(addr string, image *Image) (desc string, ok bool)
}

// ResolverFunc adapts an ordinary function to the Resolver interface.
type ResolverFunc func(addr string, image *Image) (string, bool)

// Resolve calls f(addr, image).
func (f ResolverFunc) Resolve(addr string, image *Image) (string, bool) {
	return f(addr, image)
}

// DefaultToolchainPrefix is the cross toolchain used when none is configured.
const DefaultToolchainPrefix = "xtensa-esp32-elf-"

const defaultResolveTimeout = 5 * time.Second

// Addr2Line resolves addresses by running the toolchain's addr2line once per address.
type Addr2Line struct {
	ToolchainPrefix string
	Timeout         time.Duration
	Logger          log.Logger
}

// Resolve implements Resolver. Any failure of the tool counts as a miss.
func (a *Addr2Line) Resolve(addr string, image *Image) (string, bool) {
	timeout := a.Timeout
	if timeout <= 0 {
		timeout = defaultResolveTimeout
	}
	logger := a.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	tool := a.ToolchainPrefix + "addr2line"
	out, err := exec.CommandContext(ctx, tool, "-pfiaC", "-e", image.Path, addr).Output()
	if err != nil {
		level.Debug(logger).Log("msg", "addr2line failed", "tool", tool, "addr", addr, "image", image.Path, "err", err)
		return "", false
	}
	return parseAddr2Line(string(out), image.ROM)
}

func parseAddr2Line(out string, rom bool) (string, bool) {
	if strings.Contains(out, "?? ??:0") {
		return "", false
	}
	desc := strings.TrimRight(out, "\r\n")
	if strings.TrimSpace(desc) == "" {
		return "", false
	}
	if rom {
		desc = strings.ReplaceAll(desc, "at ??:?", "in ROM")
	}
	return desc, true
}
