package pathing

import (
	"os"
	"path/filepath"
)

const (
	EnvConfigDir = "UNIDEN_CONFIG_DIR"
	EnvDataDir   = "UNIDEN_DATA_DIR"
)

// EnsureDirs creates the config and data directories if they do not exist yet.
func EnsureDirs() error {
	dirs := []string{
		GetConfigDir(),
		GetDataDir(),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}

func GetChannelDbPath() string {
	return filepath.Join(GetDataDir(), "uniden-channels.db")
}

func GetScannerConfigPath() string {
	return filepath.Join(GetConfigDir(), "scanner.toml")
}

func GetDataDir() string {
	if dir := os.Getenv(EnvDataDir); dir != "" {
		return dir
	}
	return "/var/lib/uniden_interface"
}

func GetConfigDir() string {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		return dir
	}
	return "/etc/uniden_interface"
}
