/*
Copyright 2023 The MLTune Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package tuneconfig implements the trial configuration document: a nested
// mapping loaded from a file and overlaid with CLI overrides and rewriter
// mutations before every trial run. Keys are framework-defined; no schema is
// enforced beyond what the wrapped framework validates.
package tuneconfig

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/mltune/mltune-core/pkg/util/general"
)

const keySeparator = "."

// Config is a mutable nested configuration mapping. It is created once per
// trial invocation, mutated in place through several override stages and
// discarded after the trial's training run completes. Not safe for
// concurrent use; each process hosts exactly one trial at a time.
type Config struct {
	// Filename is the file the config was loaded from, empty for synthetic
	// configs
	Filename string

	data map[string]interface{}
}

// New returns an empty config.
func New() *Config {
	return &Config{data: map[string]interface{}{}}
}

// FromBytes parses a YAML document into a config.
func FromBytes(raw []byte) (*Config, error) {
	data := map[string]interface{}{}
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	return &Config{data: data}, nil
}

// FromFile loads a YAML config file.
func FromFile(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config file %s", path)
	}
	cfg, err := FromBytes(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "parse config file %s", path)
	}
	cfg.Filename = path
	return cfg, nil
}

// Data exposes the underlying mapping for consumers that serialize the
// whole document.
func (c *Config) Data() map[string]interface{} {
	return c.data
}

// Get resolves a dotted key, reporting whether it exists.
func (c *Config) Get(key string) (interface{}, bool) {
	cur := interface{}(c.data)
	for _, part := range strings.Split(key, keySeparator) {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Has reports whether the dotted key resolves to a non-nil value.
func (c *Config) Has(key string) bool {
	v, ok := c.Get(key)
	return ok && v != nil
}

// GetString returns the value at key as a string, or def when absent or of
// another type.
func (c *Config) GetString(key, def string) string {
	if v, ok := c.Get(key); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Set stores value under a dotted key, creating intermediate mappings.
// Intermediate values of a non-mapping type are overwritten; override
// stages always win over what the file declared.
func (c *Config) Set(key string, value interface{}) {
	parts := strings.Split(key, keySeparator)
	cur := c.data
	for _, part := range parts[:len(parts)-1] {
		next, ok := cur[part].(map[string]interface{})
		if !ok {
			next = map[string]interface{}{}
			cur[part] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = value
}

// Delete removes a dotted key if present.
func (c *Config) Delete(key string) {
	parts := strings.Split(key, keySeparator)
	cur := c.data
	for _, part := range parts[:len(parts)-1] {
		next, ok := cur[part].(map[string]interface{})
		if !ok {
			return
		}
		cur = next
	}
	delete(cur, parts[len(parts)-1])
}

// MergeFromDict overlays dotted-key overrides onto the config in place.
func (c *Config) MergeFromDict(overrides map[string]interface{}) {
	for key, value := range overrides {
		c.Set(key, value)
	}
}

// Sub returns the nested mapping at key, or nil when absent.
func (c *Config) Sub(key string) map[string]interface{} {
	v, ok := c.Get(key)
	if !ok {
		return nil
	}
	m, _ := v.(map[string]interface{})
	return m
}

// Bytes serializes the config as YAML.
func (c *Config) Bytes() ([]byte, error) {
	raw, err := yaml.Marshal(c.data)
	if err != nil {
		return nil, errors.Wrap(err, "marshal config")
	}
	return raw, nil
}

// PrettyText renders the config for logs and trial metadata.
func (c *Config) PrettyText() string {
	raw, err := c.Bytes()
	if err != nil {
		return ""
	}
	return string(raw)
}

// Dump persists an immutable copy of the resolved config to path.
func (c *Config) Dump(path string) error {
	raw, err := c.Bytes()
	if err != nil {
		return err
	}
	return general.DumpFileString(path, string(raw))
}
