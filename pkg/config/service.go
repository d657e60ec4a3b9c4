package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/NotCoffee418/uniden_interface/pkg/pathing"
	"github.com/NotCoffee418/uniden_interface/pkg/uniden"
)

var ActiveScannerConfig *ScannerConfig

func DefaultScannerConfig() *ScannerConfig {
	return &ScannerConfig{
		SerialDevice:     "/dev/ttyACM0",
		Baudrate:         460800,
		ReadTimeoutMs:    100,
		ChannelCacheSize: uniden.DefaultChannelCacheSize,
		AutoProgramMode:  false,
		ListenAddress:    "127.0.0.1",
		ListenPort:       9040,
		LogLevel:         "info",
		LogFile:          "",
		ArchiveEnabled:   false,
	}
}

// LoadScannerConfig loads scanner.toml from the config directory.
func LoadScannerConfig() error {
	return LoadScannerConfigFrom(pathing.GetScannerConfigPath())
}

// LoadScannerConfigFrom loads the config at configPath, writing the defaults there first if it does not exist.
// Keys missing from an existing file keep their default value.
func LoadScannerConfigFrom(configPath string) error {
	// Create default if not exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultScannerConfig()
		if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
			return err
		}
		cfgFile, err := os.Create(configPath)
		if err != nil {
			return err
		}
		defer cfgFile.Close()
		if err := toml.NewEncoder(cfgFile).Encode(cfg); err != nil {
			return fmt.Errorf("write default config: %w", err)
		}
		ActiveScannerConfig = cfg
		return nil
	}

	// Load existing config
	config := DefaultScannerConfig()
	if _, err := toml.DecodeFile(configPath, config); err != nil {
		return fmt.Errorf("decode %s: %w", configPath, err)
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", configPath, err)
	}
	ActiveScannerConfig = config
	return nil
}

func (c *ScannerConfig) Validate() error {
	if c.SerialDevice == "" {
		return fmt.Errorf("serial_device is empty")
	}
	if c.Baudrate == 0 {
		return fmt.Errorf("baudrate must be positive")
	}
	if c.ChannelCacheSize < 0 {
		return fmt.Errorf("channel_cache_size must not be negative")
	}
	if c.ListenPort < 0 || c.ListenPort > 65535 {
		return fmt.Errorf("listen_port %d out of range", c.ListenPort)
	}
	return nil
}
