package config

import (
	"os"
	"path/filepath"
)

const (
	// EnvConfigPath names an explicit config file and bypasses the search.
	EnvConfigPath = "SNAPPY_CONFIG"
	// ConfigFileName is the working-directory config name.
	ConfigFileName = "snappy.yaml"
	// ConfigDirName is the directory used under XDG config homes and /etc.
	ConfigDirName = "snappy"
)

// FindConfigPath locates the config file: $SNAPPY_CONFIG, then ./snappy.yaml,
// then config.yaml under the candidate config directories. Returns the empty
// string when nothing exists anywhere.
func FindConfigPath() string {
	if path := os.Getenv(EnvConfigPath); path != "" && fileExists(path) {
		return path
	}
	if fileExists(ConfigFileName) {
		if abs, err := filepath.Abs(ConfigFileName); err == nil {
			return abs
		}
		return ConfigFileName
	}
	for _, dir := range configDirs() {
		path := filepath.Join(dir, "config.yaml")
		if fileExists(path) {
			return path
		}
	}
	return ""
}

// configDirs lists candidate config directories, most specific first:
// $XDG_CONFIG_HOME/snappy, ~/.config/snappy, /etc/snappy.
func configDirs() []string {
	var dirs []string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		dirs = append(dirs, filepath.Join(xdg, ConfigDirName))
	}
	if home := os.Getenv("HOME"); home != "" {
		dirs = append(dirs, filepath.Join(home, ".config", ConfigDirName))
	}
	return append(dirs, filepath.Join("/etc", ConfigDirName))
}

// DefaultConfigPath is where a freshly written config file should go. The
// user's config home when one can be determined, the working directory
// otherwise.
func DefaultConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, ConfigDirName, "config.yaml")
	}
	if home := os.Getenv("HOME"); home != "" {
		return filepath.Join(home, ".config", ConfigDirName, "config.yaml")
	}
	return ConfigFileName
}

// EnsureConfigDir creates the directory holding configPath.
func EnsureConfigDir(configPath string) error {
	return os.MkdirAll(filepath.Dir(configPath), 0755)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
