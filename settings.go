// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package admin

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Setting keys read by the client.
const (
	SettingNetworkServer    = "network.server"
	SettingNodeClient       = "node.client"
	SettingClientID         = "client.id"
	SettingAddresses        = "client.addresses"
	SettingShutdownTimeout  = "client.shutdown_timeout"
	SettingPoolSize         = "threadpool.size"
	SettingQueueSize        = "threadpool.queue_size"
	SettingTransportType    = "transport.type"
	SettingTransportTimeout = "transport.timeout"
	SettingTransportRetries = "transport.max_retries"
	SettingPathHome         = "path.home"
	SettingPathConf         = "path.conf"
)

// DefaultShutdownTimeout bounds how long Close waits for in-flight work.
const DefaultShutdownTimeout = 10 * time.Second

// Settings is an immutable set of string key/value pairs. The zero value is
// empty and ready to use.
type Settings struct {
	m map[string]string
}

// EmptySettings has no keys.
var EmptySettings = Settings{}

// SettingsFrom copies m into a Settings.
func SettingsFrom(m map[string]string) Settings {
	return NewSettingsBuilder().PutMap(m).Build()
}

// Get returns the raw value for key.
func (s Settings) Get(key string) (string, bool) {
	v, ok := s.m[key]
	return v, ok
}

// String returns the value for key, or def when unset.
func (s Settings) String(key, def string) string {
	if v, ok := s.m[key]; ok {
		return v
	}
	return def
}

// Bool parses key as a boolean.
func (s Settings) Bool(key string, def bool) (bool, error) {
	v, ok := s.m[key]
	if !ok || v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("setting %s: %w", key, err)
	}
	return b, nil
}

// Int parses key as a base-10 integer.
func (s Settings) Int(key string, def int) (int, error) {
	v, ok := s.m[key]
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def, fmt.Errorf("setting %s: %w", key, err)
	}
	return n, nil
}

// Duration parses key with time.ParseDuration.
func (s Settings) Duration(key string, def time.Duration) (time.Duration, error) {
	v, ok := s.m[key]
	if !ok || v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return def, fmt.Errorf("setting %s: %w", key, err)
	}
	return d, nil
}

// List splits a comma separated value, dropping blanks.
func (s Settings) List(key string) []string {
	var out []string
	for _, part := range strings.Split(s.m[key], ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ByPrefix returns the settings whose key starts with prefix, with the
// prefix removed.
func (s Settings) ByPrefix(prefix string) Settings {
	b := NewSettingsBuilder()
	for k, v := range s.m {
		if rest, ok := strings.CutPrefix(k, prefix); ok && rest != "" {
			b.Put(rest, v)
		}
	}
	return b.Build()
}

// Keys returns every key in sorted order.
func (s Settings) Keys() []string {
	keys := make([]string, 0, len(s.m))
	for k := range s.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of keys.
func (s Settings) Len() int { return len(s.m) }

// AsMap returns a copy of the underlying map.
func (s Settings) AsMap() map[string]string {
	out := make(map[string]string, len(s.m))
	for k, v := range s.m {
		out[k] = v
	}
	return out
}

// SettingsBuilder assembles Settings. Later writes win.
type SettingsBuilder struct {
	m map[string]string
}

// NewSettingsBuilder returns an empty builder.
func NewSettingsBuilder() *SettingsBuilder {
	return &SettingsBuilder{m: make(map[string]string)}
}

// Put stores value under key. Slices are joined with commas; everything else
// is formatted with fmt.
func (b *SettingsBuilder) Put(key string, value any) *SettingsBuilder {
	switch v := value.(type) {
	case string:
		b.m[key] = v
	case []string:
		b.m[key] = strings.Join(v, ",")
	case time.Duration:
		b.m[key] = v.String()
	default:
		b.m[key] = fmt.Sprint(v)
	}
	return b
}

// PutMap stores every entry of m.
func (b *SettingsBuilder) PutMap(m map[string]string) *SettingsBuilder {
	for k, v := range m {
		b.m[k] = v
	}
	return b
}

// PutAll stores every entry of s.
func (b *SettingsBuilder) PutAll(s Settings) *SettingsBuilder {
	return b.PutMap(s.m)
}

// PutIfAbsent stores value only when key is unset.
func (b *SettingsBuilder) PutIfAbsent(key string, value any) *SettingsBuilder {
	if _, ok := b.m[key]; !ok {
		b.Put(key, value)
	}
	return b
}

// Remove deletes key.
func (b *SettingsBuilder) Remove(key string) *SettingsBuilder {
	delete(b.m, key)
	return b
}

// Build returns the accumulated settings. The builder may be reused.
func (b *SettingsBuilder) Build() Settings {
	m := make(map[string]string, len(b.m))
	for k, v := range b.m {
		m[k] = v
	}
	return Settings{m: m}
}
