package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"sonora/types"
)

// LoadSettings reads the user's settings file; a missing file yields empty settings.
func LoadSettings(path string) (*types.Settings, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &types.Settings{LibraryDirs: []string{}}, nil
	}
	if err != nil {
		return nil, err
	}

	var settings types.Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, err
	}
	if settings.LibraryDirs == nil {
		settings.LibraryDirs = []string{}
	}
	return &settings, nil
}

// SaveSettings writes the settings file
func SaveSettings(path string, settings *types.Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
