package main

import "hwsampler/internal/config"

// Re-export types and functions from the config sub-package so callers
// in package main can refer to them without an extra import alias.

// AppConfig holds persistent device hints and default session settings.
type AppConfig = config.AppConfig

// LoadConfig loads the config from disk, returning defaults on any error.
func LoadConfig() AppConfig { return config.Load() }

// SaveConfig persists cfg to disk.
func SaveConfig(cfg AppConfig) error { return config.Save(cfg) }
