package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	serial "github.com/luhtfiimanal/go-serial-monitor"
	"github.com/luhtfiimanal/go-serial-monitor/monitor"
)

// appConfig is the layout of the --config file. Flags given on the command
// line override the values read from it.
type appConfig struct {
	Port    serial.Config  `yaml:"port"`
	Monitor monitor.Config `yaml:"monitor"`
	NoColor bool           `yaml:"no_color"`
}

func defaultConfig() appConfig {
	return appConfig{
		Port: serial.Config{
			Device:   "/dev/ttyUSB0",
			BaudRate: 115200,
		},
		Monitor: monitor.Config{
			DecodeAddresses: true,
			TimestampFormat: monitor.DefaultTimestampFormat,
		},
	}
}

// loadConfig overlays the YAML file at path onto cfg.
func loadConfig(path string, cfg appConfig) (appConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	// an empty file overrides nothing
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// colorEnabled reports whether notices and decoded addresses are colored.
// The NO_COLOR convention wins over the configuration.
func (c appConfig) colorEnabled() bool {
	return !c.NoColor && os.Getenv("NO_COLOR") == ""
}
