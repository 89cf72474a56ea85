package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - CASELINE_CONFIG: config file location (default: ~/.config/caseline/caseline.toml)
//   - CASELINE_HOME: base directory for caseline data (default: ~/.local/share/caseline)
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
	}, nil
}

// getConfigPath returns the config file path, checking the CASELINE_CONFIG env
// var first, then falling back to the default ~/.config/caseline/caseline.toml.
func getConfigPath() (string, error) {
	if path := os.Getenv("CASELINE_CONFIG"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "caseline", "caseline.toml"), nil
}

// getBaseDir returns the base directory for caseline data, checking the
// CASELINE_HOME env var first, then falling back to the XDG default
// ~/.local/share/caseline.
func getBaseDir() (string, error) {
	if path := os.Getenv("CASELINE_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "caseline"), nil
}
