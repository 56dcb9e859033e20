package monitor

import (
	"github.com/luhtfiimanal/go-serial-monitor/pcaddr"
)

// DefaultTimestampFormat is the time layout used when Config.TimestampFormat is empty.
const DefaultTimestampFormat = "2006-01-02 15:04:05"

// Config holds the session settings of a Logger. The zero value prints the
// device output unchanged with no log file and no address decoding.
type Config struct {
	// ElfFile is the application image. It also names generic log files.
	ElfFile string `yaml:"elf_file"`
	// RomElfFile is an optional ROM image searched after the application image.
	RomElfFile      string `yaml:"rom_elf_file"`
	ToolchainPrefix string `yaml:"toolchain_prefix"`
	DecodeAddresses bool   `yaml:"decode_addresses"`

	Timestamps      bool   `yaml:"timestamps"`
	TimestampFormat string `yaml:"timestamp_format"` // Go time layout

	// LogFile is the base name of log files. When set, logging starts
	// immediately and files are named <LogFile>.<YYYYMMDDHHMMSS>.log.
	LogFile string `yaml:"log_file"`
}

func (c Config) withDefaults() Config {
	if c.TimestampFormat == "" {
		c.TimestampFormat = DefaultTimestampFormat
	}
	if c.ToolchainPrefix == "" {
		c.ToolchainPrefix = pcaddr.DefaultToolchainPrefix
	}
	return c
}
