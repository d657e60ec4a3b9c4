package config

import (
	"time"

	"github.com/NotCoffee418/uniden_interface/pkg/uniden"
)

type ScannerConfig struct {
	SerialDevice  string `toml:"serial_device"`
	Baudrate      uint   `toml:"baudrate"`
	ReadTimeoutMs uint   `toml:"read_timeout_ms"`
	// Channels kept in memory after a CIN read.
	ChannelCacheSize int `toml:"channel_cache_size"`
	// Retry commands rejected with NG once inside program mode.
	AutoProgramMode bool   `toml:"auto_program_mode"`
	ListenAddress   string `toml:"listen_address"`
	ListenPort      int    `toml:"listen_port"`
	// trace, debug, info, warn or error
	LogLevel string `toml:"log_level"`
	// Empty logs to the console only.
	LogFile        string `toml:"log_file"`
	ArchiveEnabled bool   `toml:"archive_enabled"`
}

func (c *ScannerConfig) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutMs) * time.Millisecond
}

func (c *ScannerConfig) ScannerOptions() uniden.Options {
	return uniden.Options{
		AutoProgramMode:  c.AutoProgramMode,
		ChannelCacheSize: c.ChannelCacheSize,
	}
}
