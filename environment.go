// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package admin

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

const (
	// ConfigFileName is read from the config directory when loading config.
	ConfigFileName = "admin.yml"

	// EnvPrefix marks environment variables that feed settings.
	EnvPrefix = "LUXADMIN_"
)

// envKeys maps well-known variables whose keys contain underscores. Other
// LUXADMIN_ variables are lower-cased with "__" read as ".".
var envKeys = map[string]string{
	"LUXADMIN_ADDRESSES":         SettingAddresses,
	"LUXADMIN_CLIENT_ID":         SettingClientID,
	"LUXADMIN_SHUTDOWN_TIMEOUT":  SettingShutdownTimeout,
	"LUXADMIN_POOL_SIZE":         SettingPoolSize,
	"LUXADMIN_QUEUE_SIZE":        SettingQueueSize,
	"LUXADMIN_TRANSPORT":         SettingTransportType,
	"LUXADMIN_TRANSPORT_TIMEOUT": SettingTransportTimeout,
	"LUXADMIN_MAX_RETRIES":       SettingTransportRetries,
	"LUXADMIN_HOME":              SettingPathHome,
	"LUXADMIN_CONF":              SettingPathConf,
}

// Environment records where settings were prepared from.
type Environment struct {
	HomeDir    string
	ConfigDir  string
	ConfigFile string // empty when no file was loaded
}

// PrepareSettings merges, lowest precedence first, the config file, the
// environment and explicit. The file and environment are only consulted when
// loadConfig is true. client.id is filled with a random UUID when missing.
func PrepareSettings(explicit Settings, loadConfig bool) (Settings, Environment, error) {
	var fromEnv Settings
	if loadConfig {
		fromEnv = envSettings(os.Environ())
	}

	// Paths may come from the environment but not from the file they locate.
	home := explicit.String(SettingPathHome, fromEnv.String(SettingPathHome, ""))
	if home == "" {
		wd, err := os.Getwd()
		if err != nil {
			return Settings{}, Environment{}, &ConfigurationError{Source: "environment", Key: SettingPathHome, Err: err}
		}
		home = wd
	}
	conf := explicit.String(SettingPathConf, fromEnv.String(SettingPathConf, filepath.Join(home, "config")))
	env := Environment{HomeDir: home, ConfigDir: conf}

	b := NewSettingsBuilder()
	if loadConfig {
		path := filepath.Join(conf, ConfigFileName)
		fromFile, err := fileSettings(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Settings{}, Environment{}, &ConfigurationError{Source: path, Err: err}
		default:
			env.ConfigFile = path
			b.PutAll(fromFile)
		}
		b.PutAll(fromEnv)
	}
	b.PutAll(explicit).
		Put(SettingPathHome, home).
		Put(SettingPathConf, conf).
		PutIfAbsent(SettingClientID, uuid.NewString())

	return b.Build(), env, nil
}

func fileSettings(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, err
	}
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Settings{}, fmt.Errorf("parse yaml: %w", err)
	}
	b := NewSettingsBuilder()
	flatten(b, "", doc)
	return b.Build(), nil
}

// flatten writes nested maps as dotted keys. Lists become comma separated.
func flatten(b *SettingsBuilder, prefix string, v any) {
	switch v := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			flatten(b, joinKey(prefix, k), v[k])
		}
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, fmt.Sprint(item))
		}
		b.Put(prefix, parts)
	case nil:
		b.Put(prefix, "")
	default:
		b.Put(prefix, v)
	}
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func envSettings(environ []string) Settings {
	b := NewSettingsBuilder()
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, EnvPrefix) {
			continue
		}
		if key, ok := envKeys[name]; ok {
			b.Put(key, value)
			continue
		}
		rest := strings.TrimPrefix(name, EnvPrefix)
		if rest == "" {
			continue
		}
		b.Put(strings.ToLower(strings.ReplaceAll(rest, "__", ".")), value)
	}
	return b.Build()
}
