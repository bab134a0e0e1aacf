package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - DUPDRIVE_CONFIG_PATH: config file location (default: ~/.config/dupdrive.toml)
//   - DUPDRIVE_HOME: base directory for dupdrive data (default: ~/.local/share/dupdrive)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
		"output_dir":  filepath.Join(baseDir, "output"),
	}, nil
}

// getConfigPath returns the config file path, checking DUPDRIVE_CONFIG_PATH first,
// then falling back to the default ~/.config/dupdrive.toml.
func getConfigPath() (string, error) {
	if path := os.Getenv("DUPDRIVE_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "dupdrive.toml"), nil
}

// getBaseDir returns the base directory for dupdrive data, checking DUPDRIVE_HOME first,
// then falling back to the XDG default ~/.local/share/dupdrive.
func getBaseDir() (string, error) {
	if path := os.Getenv("DUPDRIVE_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "dupdrive"), nil
}
