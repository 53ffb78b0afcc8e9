// Copyright The Draconis Authors. All Rights Reserved.
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

// Package plugin defines the contracts a draconis plugin implements,
// whether loaded dynamically (via the Go plugin package) or registered
// statically at init time.
package plugin

// Type distinguishes the two capability sets a plugin may implement.
type Type int

const (
	InfoProvider Type = iota
	OutputFormat
)

func (t Type) String() string {
	if t == OutputFormat {
		return "OutputFormat"
	}
	return "InfoProvider"
}

// Dependencies declares the host resources a plugin needs, so the manager
// can decide whether to honor sandboxing or fail fast.
type Dependencies struct {
	RequiresNetwork    bool
	RequiresFilesystem bool
	RequiresAdmin      bool
	RequiresCaching    bool
}

// Metadata describes a plugin for discovery and dedup purposes.
type Metadata struct {
	Name         string
	Version      string
	Author       string
	Description  string
	Type         Type
	Dependencies Dependencies
}

// Context carries the per-process filesystem paths a plugin may use.
type Context struct {
	ConfigDir string
	CacheDir  string
	DataDir   string
}

// Lifecycle is implemented by every plugin regardless of capability set.
type Lifecycle interface {
	GetMetadata() *Metadata
	// Initialize must be idempotent for a given instance.
	Initialize(ctx Context, cache *Cache) error
	Shutdown()
	IsReady() bool
}

// InfoProvider is a value-producing plugin.
type InfoProvider interface {
	Lifecycle

	GetProviderID() string
	CollectData(cache *Cache) error
	ToJSON() (string, error)
	GetFields() map[string]string
	GetDisplayValue() (string, error)
	GetDisplayIcon() string
	GetDisplayLabel() string
	GetLastError() (string, bool)
	IsEnabled() bool
}

// OutputFormat is a rendering plugin.
type OutputFormat interface {
	Lifecycle

	FormatOutput(formatName string, coreData, pluginData map[string]string) (string, error)
	GetFormatNames() []string
	GetFileExtension(formatName string) string
}
