// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FILENAME is the name of the configuration file searched for by FindAndLoad.
const FILENAME = "karuta.toml"

// DEFAULT_BACKEND is the backend executable used when none is configured.
const DEFAULT_BACKEND = "iroha"

// DEFAULT_MAX_INLINE_DEPTH bounds the depth of nested method inlining.
const DEFAULT_MAX_INLINE_DEPTH = 32

// Config represents a karuta.toml configuration.
type Config struct {
	Backend Backend `toml:"backend"`
	Output  Output  `toml:"output"`
	Synth   Synth   `toml:"synth"`
	// Dir is the directory containing the configuration file (set at load time).
	Dir string `toml:"-"`
}

// Backend configures the external synthesis backend.
type Backend struct {
	// Path of the backend executable.
	Path string `toml:"path"`
	// Directories searched by the backend for imported modules.
	SearchDirs []string `toml:"search-dirs"`
}

// Output configures where generated files go.
type Output struct {
	Dir string `toml:"dir"`
	// Marker printed before the name of each generated file, for tools
	// scraping the output.
	Marker string `toml:"marker"`
}

// Synth configures the synthesizer.
type Synth struct {
	MaxInlineDepth uint `toml:"max-inline-depth"`
}

// Default returns the configuration used when no karuta.toml exists.
func Default() *Config {
	var c Config
	//
	c.applyDefaults()
	//
	return &c
}

// Load parses a karuta.toml file from the given directory.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FILENAME)
	data, err := os.ReadFile(path)
	//
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	//
	return Parse(dir, data)
}

// LoadFile parses a configuration file at an explicit path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	//
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	//
	return Parse(filepath.Dir(path), data)
}

// Parse decodes configuration text, resolving relative paths against a given
// directory.
func Parse(dir string, data []byte) (*Config, error) {
	var c Config
	//
	meta, err := toml.Decode(string(data), &c)
	//
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", filepath.Join(dir, FILENAME), err)
	} else if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown key %s in %s", undecoded[0], filepath.Join(dir, FILENAME))
	}
	//
	if c.Dir, err = filepath.Abs(dir); err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	//
	c.applyDefaults()
	//
	return &c, nil
}

// FindAndLoad walks up from startDir to find a karuta.toml file, then loads
// and returns it.  Returns the default configuration if none is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	//
	if err != nil {
		return nil, err
	}
	//
	for {
		path := filepath.Join(dir, FILENAME)
		//
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}
		//
		parent := filepath.Dir(dir)
		// Reached root
		if parent == dir {
			return Default(), nil
		}
		//
		dir = parent
	}
}

// SearchDirPaths returns the backend search directories, with relative entries
// resolved against the configuration directory.
func (c *Config) SearchDirPaths() []string {
	var paths []string
	//
	for _, d := range c.Backend.SearchDirs {
		paths = append(paths, c.resolve(d))
	}
	//
	return paths
}

// OutputPath returns the path of a generated file with the given name.
func (c *Config) OutputPath(name string) string {
	if filepath.IsAbs(name) || c.Output.Dir == "" {
		return name
	}
	//
	return filepath.Join(c.resolve(c.Output.Dir), name)
}

func (c *Config) resolve(path string) string {
	if filepath.IsAbs(path) || c.Dir == "" {
		return path
	}
	//
	return filepath.Join(c.Dir, path)
}

func (c *Config) applyDefaults() {
	if c.Backend.Path == "" {
		c.Backend.Path = DEFAULT_BACKEND
	}
	//
	if c.Synth.MaxInlineDepth == 0 {
		c.Synth.MaxInlineDepth = DEFAULT_MAX_INLINE_DEPTH
	}
}
