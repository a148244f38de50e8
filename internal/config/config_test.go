/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import "testing"

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if cfg.ConfigVersion != 1 {
		t.Fatalf("unexpected config version: %d", cfg.ConfigVersion)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "console" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
}

func TestMergeInto(t *testing.T) {
	dst := Defaults()
	src := AppConfig{
		ConfigVersion: 2,
		Convert:       ConvertConfig{GroupKey: "  Batch  ", EllipseSegments: 128},
		Store:         StoreConfig{SQLitePath: "/tmp/rois.sqlite"},
		Logging:       LoggingConfig{Level: "DEBUG", File: " /tmp/roib.log "},
	}
	mergeInto(&dst, &src)
	if dst.ConfigVersion != 2 {
		t.Fatalf("config version not merged: %d", dst.ConfigVersion)
	}
	if dst.Convert.GroupKey != "Batch" {
		t.Fatalf("group key not trimmed/merged: %q", dst.Convert.GroupKey)
	}
	if dst.Convert.EllipseSegments != 128 {
		t.Fatalf("ellipse segments not merged: %d", dst.Convert.EllipseSegments)
	}
	if dst.Store.SQLitePath != "/tmp/rois.sqlite" {
		t.Fatalf("sqlite path not merged: %q", dst.Store.SQLitePath)
	}
	if dst.Logging.Level != "debug" {
		t.Fatalf("logging level not lowered: %q", dst.Logging.Level)
	}
	if dst.Logging.File != "/tmp/roib.log" {
		t.Fatalf("logging file not trimmed: %q", dst.Logging.File)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvGroupKey, "Fig")
	t.Setenv(EnvEllipseSegments, "32")
	t.Setenv(EnvPostgresDSN, "postgres://localhost/rois")
	t.Setenv(EnvLogLevel, "WARN")
	t.Setenv(EnvLogSource, "yes")

	cfg := Defaults()
	applyEnvOverrides(&cfg)
	if cfg.Convert.GroupKey != "Fig" {
		t.Fatalf("group key override missing: %q", cfg.Convert.GroupKey)
	}
	if cfg.Convert.EllipseSegments != 32 {
		t.Fatalf("ellipse segments override missing: %d", cfg.Convert.EllipseSegments)
	}
	if cfg.Store.PostgresDSN != "postgres://localhost/rois" {
		t.Fatalf("pg dsn override missing: %q", cfg.Store.PostgresDSN)
	}
	if cfg.Logging.Level != "warn" || !cfg.Logging.Source {
		t.Fatalf("logging overrides missing: %+v", cfg.Logging)
	}

	if name, ok := EnvOverrideFor("convert.group_key"); !ok || name != EnvGroupKey {
		t.Fatalf("EnvOverrideFor group key: %q %v", name, ok)
	}
	if _, ok := EnvOverrideFor("logging.file"); ok {
		t.Fatalf("logging.file should not report an override")
	}
}

func TestEnvOverrideBadInt(t *testing.T) {
	t.Setenv(EnvEllipseSegments, "not-a-number")
	cfg := Defaults()
	applyEnvOverrides(&cfg)
	if cfg.Convert.EllipseSegments != 0 {
		t.Fatalf("bad int should be ignored: %d", cfg.Convert.EllipseSegments)
	}
}
