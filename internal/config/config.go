// Copyright 2024 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config defines the mount daemon's configuration and how it is
// bound to CLI flags and environment variables.
package config

import (
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the fully resolved set of knobs the mount command needs. Values
// come from, in increasing priority: defaults, a config file, then
// environment variables and flags.
type Config struct {
	// DatabaseURL is the relational store's connection string (DATABASE_URL).
	DatabaseURL string `mapstructure:"database-url"`

	// FilesPath is the blob pool root (FILES_PATH).
	FilesPath string `mapstructure:"files-path"`

	// LogFilter is the RUST_LOG-equivalent level filter.
	LogFilter logFilter `mapstructure:"log-filter"`

	// MountPoint is the single positional argument: where to mount.
	MountPoint string `mapstructure:"mount-point"`

	// Uid and Gid are reported on every inode; see SPEC_FULL.md's resolution
	// of the permissions open question.
	Uid uint32 `mapstructure:"uid"`
	Gid uint32 `mapstructure:"gid"`
}

// BindFlags registers the mount command's flags and wires each to its viper
// key, following the teacher's one-flag-at-a-time binding style.
func BindFlags(flagSet *pflag.FlagSet) error {
	flagSet.String("database-url", "", "Relational store connection string (overrides DATABASE_URL).")
	if err := viper.BindPFlag("database-url", flagSet.Lookup("database-url")); err != nil {
		return err
	}

	flagSet.String("files-path", "", "Blob pool root directory (overrides FILES_PATH).")
	if err := viper.BindPFlag("files-path", flagSet.Lookup("files-path")); err != nil {
		return err
	}

	flagSet.String("log-filter", "info", "Log level filter: trace, debug, info, warn, or error.")
	if err := viper.BindPFlag("log-filter", flagSet.Lookup("log-filter")); err != nil {
		return err
	}

	flagSet.Uint32("uid", 1000, "Uid reported on every inode.")
	if err := viper.BindPFlag("uid", flagSet.Lookup("uid")); err != nil {
		return err
	}

	flagSet.Uint32("gid", 1000, "Gid reported on every inode.")
	if err := viper.BindPFlag("gid", flagSet.Lookup("gid")); err != nil {
		return err
	}

	return nil
}

// Load binds DATABASE_URL/FILES_PATH/RUST_LOG-equivalent environment
// variables and unmarshals viper's resolved state into a Config.
func Load() (*Config, error) {
	_ = viper.BindEnv("database-url", "DATABASE_URL")
	_ = viper.BindEnv("files-path", "FILES_PATH")
	_ = viper.BindEnv("log-filter", "COMICFS_LOG")

	var cfg Config
	if err := viper.Unmarshal(&cfg, viper.DecodeHook(decodeHook())); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("config: DATABASE_URL is required")
	}
	if cfg.FilesPath == "" {
		return nil, fmt.Errorf("config: FILES_PATH is required")
	}

	return &cfg, nil
}
