package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
)

// SupportedFormats lists the config file formats we support
var SupportedFormats = []string{"yaml", "toml", "json"}

// GenerateConfig writes a default configuration file for the app into dir, or
// into the user config directory when dir is empty.
func GenerateConfig(appName, format, dir string) (string, error) {
	if !isValidFormat(format) {
		return "", fmt.Errorf("unsupported format %q, supported: %v", format, SupportedFormats)
	}

	var defaultCfg interface{}
	switch appName {
	case AppLauncher:
		defaultCfg = DefaultLauncherConfig()
	case AppLauncherd:
		defaultCfg = DefaultLauncherdConfig()
	default:
		return "", fmt.Errorf("unknown app: %s", appName)
	}

	if dir == "" {
		var err error
		if dir, err = UserConfigDir(appName); err != nil {
			return "", err
		}
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	configPath := filepath.Join(dir, fmt.Sprintf("config.%s", format))
	if _, err := os.Stat(configPath); err == nil {
		return configPath, fmt.Errorf("config file already exists: %s", configPath)
	}

	v := NewViperFromConfig(defaultCfg)
	v.SetConfigType(format)

	if err := v.WriteConfigAs(configPath); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}

	return configPath, nil
}

// GenerateConfigIfNotExists creates a default config file if one doesn't exist
// Returns the path to the config file (existing or newly created) and whether it was created
func GenerateConfigIfNotExists(appName, format string) (string, bool, error) {
	configDir, err := UserConfigDir(appName)
	if err != nil {
		return "", false, err
	}

	for _, ext := range SupportedFormats {
		path := filepath.Join(configDir, fmt.Sprintf("config.%s", ext))
		if _, err := os.Stat(path); err == nil {
			return path, false, nil
		}
	}

	path, err := GenerateConfig(appName, format, configDir)
	if err != nil {
		return "", false, err
	}

	return path, true, nil
}

func isValidFormat(format string) bool {
	return slices.Contains(SupportedFormats, format)
}
