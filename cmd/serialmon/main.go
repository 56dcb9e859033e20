package main

import (
	"fmt"
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/spf13/cobra"
)

var (
	configPath      string
	device          string
	baudRate        int
	elfFile         string
	romElfFile      string
	toolchainPrefix string
	decodeAddresses bool
	timestamps      bool
	timestampFormat string
	logFile         string
	noColor         bool
	verbose         bool
)

var rootCmd = &cobra.Command{
	Use:   "serialmon",
	Short: "Serial console monitor for embedded firmware",
	Long: `serialmon shows the console output of a device attached to a serial port.

It can prefix every line with a timestamp, mirror the output into a log file
and decode program counters found in panic dumps and backtraces into source
locations using the application ELF file (and optionally a ROM ELF file).

Press Ctrl+T Ctrl+H while running to list the key bindings.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := buildConfig(cmd)
		if err != nil {
			return err
		}
		return run(cfg, newLogger(verbose))
	},
}

// buildConfig merges defaults, the optional config file and explicit flags.
func buildConfig(cmd *cobra.Command) (appConfig, error) {
	cfg := defaultConfig()
	if configPath != "" {
		var err error
		if cfg, err = loadConfig(configPath, cfg); err != nil {
			return cfg, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Port.Device = device
	}
	if flags.Changed("baud") {
		cfg.Port.BaudRate = baudRate
	}
	if flags.Changed("elf") {
		cfg.Monitor.ElfFile = elfFile
	}
	if flags.Changed("rom-elf") {
		cfg.Monitor.RomElfFile = romElfFile
	}
	if flags.Changed("toolchain-prefix") {
		cfg.Monitor.ToolchainPrefix = toolchainPrefix
	}
	if flags.Changed("decode-addresses") {
		cfg.Monitor.DecodeAddresses = decodeAddresses
	}
	if flags.Changed("timestamps") {
		cfg.Monitor.Timestamps = timestamps
	}
	if flags.Changed("timestamp-format") {
		cfg.Monitor.TimestampFormat = timestampFormat
	}
	if flags.Changed("log-file") {
		cfg.Monitor.LogFile = logFile
	}
	if flags.Changed("no-color") {
		cfg.NoColor = noColor
	}

	if cfg.Monitor.DecodeAddresses && cfg.Monitor.ElfFile == "" {
		// nothing to decode against
		cfg.Monitor.DecodeAddresses = false
	}
	return cfg, nil
}

func newLogger(verbose bool) log.Logger {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)
	if verbose {
		return level.NewFilter(logger, level.AllowDebug())
	}
	return level.NewFilter(logger, level.AllowWarn())
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVarP(&configPath, "config", "c", "", "YAML file with port and monitor settings")
	flags.StringVarP(&device, "port", "p", "/dev/ttyUSB0", "Serial port device")
	flags.IntVarP(&baudRate, "baud", "b", 115200, "Baud rate")
	flags.StringVarP(&elfFile, "elf", "e", "", "Application ELF file used to decode addresses and name log files")
	flags.StringVar(&romElfFile, "rom-elf", "", "ROM ELF file searched when an address is not in the application")
	flags.StringVarP(&toolchainPrefix, "toolchain-prefix", "t", "xtensa-esp32-elf-", "Prefix of the toolchain's addr2line")
	flags.BoolVar(&decodeAddresses, "decode-addresses", true, "Decode program counters printed by the firmware")
	flags.BoolVar(&timestamps, "timestamps", false, "Prefix every line with a timestamp")
	flags.StringVar(&timestampFormat, "timestamp-format", "2006-01-02 15:04:05", "Go time layout of the timestamps")
	flags.StringVarP(&logFile, "log-file", "l", "", "Start logging at startup into <log-file>.<time>.log")
	flags.BoolVar(&noColor, "no-color", false, "Do not color notices and decoded addresses")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Print debug diagnostics to stderr")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
