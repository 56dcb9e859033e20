// Package serial provides a minimal, Linux-only serial port reader designed for
// console monitors attached to embedded devices.
//
// Firmware logs arrive in arbitrarily sized bursts that rarely line up with line
// boundaries, so the reader offers two consumption modes:
//
//   - ReadChunksLoop delivers raw bytes as soon as the kernel has them. This is
//     what a console monitor feeds into its output pipeline.
//   - ReadLinesLoop / ReadLine split the stream on a custom delimiter
//     (default: \r\n) for request/response style tools.
//
// Features:
//   - Raw syscall-based serial I/O on Linux, no buffering delays
//   - Baud rates from 9600 up to 921600
//   - Self-pipe mechanism for killability: Close unblocks every pending read
//   - PTY-based tests for reliability
//
// This package does **not** support Windows.
//
// Example usage:
//
//	reader, err := serial.Open(serial.Config{
//	    Device:   "/dev/ttyUSB0",
//	    BaudRate: 115200,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer reader.Close()
//
//	mon := monitor.New(monitor.Config{ElfFile: "build/app.elf", DecodeAddresses: true})
//	defer mon.Close()
//
//	go reader.ReadChunksLoop(mon.Process, func(err error) {
//	    log.Println("Read error:", err)
//	})
//
// The monitor package holds the output side: timestamps, log files and
// program counter decoding. The pcaddr package maps addresses to firmware images.
package serial
