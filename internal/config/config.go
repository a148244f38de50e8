/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the
// user scope. Environment variables are treated as read-only overrides at
// runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.

type ConvertConfig struct {
	// GroupKey is the property name read from foreign regions to rebuild
	// ROI membership. Empty means the library default.
	GroupKey string `yaml:"group_key"`
	// EllipseSegments is the number of segments used when an ellipse is
	// approximated by a polygon. Zero means the library default.
	EllipseSegments int `yaml:"ellipse_segments"`
}

type StoreConfig struct {
	// SQLitePath is the path of the embedded annotation cache database.
	SQLitePath string `yaml:"sqlite_path"`
	// PostgresDSN selects the Postgres-backed store when non-empty.
	PostgresDSN string `yaml:"postgres_dsn"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	Convert       ConvertConfig `yaml:"convert"`
	Store         StoreConfig   `yaml:"store"`
	Logging       LoggingConfig `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Convert:       ConvertConfig{GroupKey: "", EllipseSegments: 0},
		Store:         StoreConfig{SQLitePath: "", PostgresDSN: ""},
		Logging:       LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvGroupKey        = "ROIB_GROUP_KEY"
	EnvEllipseSegments = "ROIB_ELLIPSE_SEGMENTS"
	EnvSQLitePath      = "ROIB_SQLITE_PATH"
	EnvPostgresDSN     = "ROIB_PG_DSN"
	EnvLogLevel        = "ROIB_LOG_LEVEL"
	EnvLogFormat       = "ROIB_LOG_FORMAT"
	EnvLogSource       = "ROIB_LOG_SOURCE"
	EnvLogFile         = "ROIB_LOG_FILE"
)

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "roibridge")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "roibridge")
	default: // linux and others
		base = filepath.Join(os.Getenv("HOME"), ".config", "roibridge")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults, and merges
// environment overrides.
func Load() (AppConfig, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err == nil {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// Save writes the user config YAML.
func Save(cfg AppConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if strings.TrimSpace(src.Convert.GroupKey) != "" {
		dst.Convert.GroupKey = strings.TrimSpace(src.Convert.GroupKey)
	}
	if src.Convert.EllipseSegments > 0 {
		dst.Convert.EllipseSegments = src.Convert.EllipseSegments
	}
	if strings.TrimSpace(src.Store.SQLitePath) != "" {
		dst.Store.SQLitePath = strings.TrimSpace(src.Store.SQLitePath)
	}
	if strings.TrimSpace(src.Store.PostgresDSN) != "" {
		dst.Store.PostgresDSN = strings.TrimSpace(src.Store.PostgresDSN)
	}
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvGroupKey)); v != "" {
		cfg.Convert.GroupKey = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvEllipseSegments)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Convert.EllipseSegments = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvSQLitePath)); v != "" {
		cfg.Store.SQLitePath = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvPostgresDSN)); v != "" {
		cfg.Store.PostgresDSN = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		lv := strings.ToLower(v)
		cfg.Logging.Source = lv == "1" || lv == "true" || lv == "on" || lv == "yes"
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

// EnvOverrideFor returns the env var name if the field is overridden by
// environment variables.
func EnvOverrideFor(key string) (string, bool) {
	switch key {
	case "convert.group_key":
		if os.Getenv(EnvGroupKey) != "" {
			return EnvGroupKey, true
		}
	case "convert.ellipse_segments":
		if os.Getenv(EnvEllipseSegments) != "" {
			return EnvEllipseSegments, true
		}
	case "store.sqlite_path":
		if os.Getenv(EnvSQLitePath) != "" {
			return EnvSQLitePath, true
		}
	case "store.postgres_dsn":
		if os.Getenv(EnvPostgresDSN) != "" {
			return EnvPostgresDSN, true
		}
	case "logging.level":
		if os.Getenv(EnvLogLevel) != "" {
			return EnvLogLevel, true
		}
	case "logging.format":
		if os.Getenv(EnvLogFormat) != "" {
			return EnvLogFormat, true
		}
	case "logging.source":
		if os.Getenv(EnvLogSource) != "" {
			return EnvLogSource, true
		}
	case "logging.file":
		if os.Getenv(EnvLogFile) != "" {
			return EnvLogFile, true
		}
	}
	return "", false
}
