// Package config manages persistent user preferences for the sampler
// CLI. Settings are stored as JSON at
// os.UserConfigDir()/hwsampler/config.json.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"hwsampler/internal/types"
)

// AppConfig holds persistent device hints and default session
// settings, separate from the per-session, per-export tunables in
// internal/sessionconfig (those are meant to be edited per multisample
// run; this file is meant to be set once per machine).
type AppConfig struct {
	MIDIDeviceHint  string `json:"midi_device_hint"`
	AudioDeviceHint string `json:"audio_device_hint"`
	LastOutputDir   string `json:"last_output_dir"`

	Capture   types.CaptureConfig   `json:"capture"`
	Detection types.DetectionConfig `json:"detection"`
	Loop      types.LoopConfig      `json:"loop"`
	Export    types.ExportConfig    `json:"export"`
}

// Default returns an AppConfig with every nested config at its
// package default.
func Default() AppConfig {
	return AppConfig{
		LastOutputDir: "./samples",
		Capture:       types.DefaultCaptureConfig(),
		Detection:     types.DefaultDetectionConfig(),
		Loop:          types.DefaultLoopConfig(),
		Export:        types.DefaultExportConfig(),
	}
}

// Path returns the absolute path to the config file.
func Path() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "hwsampler", "config.json"), nil
}

// Load reads the config file and returns it. If the file is missing or
// unreadable, the default config is returned, never an error.
func Load() AppConfig {
	path, err := Path()
	if err != nil {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Default()
	}
	cfg := Default()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Default()
	}
	return cfg
}

// Save writes cfg to disk, creating the directory if needed.
func Save(cfg AppConfig) error {
	path, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
