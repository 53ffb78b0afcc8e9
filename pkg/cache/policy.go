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

// Package cache implements the two-tier (in-memory + on-disk) TTL-bounded
// cache that fronts every expensive host probe.
package cache

import "time"

// Location selects where a cache entry may additionally live on disk.
type Location int

const (
	// InMemory never writes to disk.
	InMemory Location = iota
	// TempDirectory stores under the system temp directory; entries survive
	// within a session but are expected to be wiped across reboots.
	TempDirectory
	// Persistent stores under a per-user cache directory.
	Persistent
)

// Policy controls where and how long a cached value lives.
type Policy struct {
	Location Location
	// TTL is the entry lifetime. Zero means never-expire.
	TTL time.Duration
}

// DefaultPolicy is Persistent with a one day TTL, matching the library
// default when no override is supplied.
var DefaultPolicy = Policy{Location: Persistent, TTL: 24 * time.Hour}

// NeverExpire is a convenience policy for hardware-stable facts (CPU model,
// OS identity, and the like) that never need re-fetching within a process.
var NeverExpire = Policy{Location: Persistent, TTL: 0}

// Short is the policy used for values that should be refreshed often but
// still survive a short-lived process burst (disks, network interfaces,
// package counts).
var Short = Policy{Location: TempDirectory, TTL: 30 * time.Second}

// Session is used for values cached for the lifetime of a login session
// (displays, the user's shell) but expected to change across reboots.
var Session = Policy{Location: TempDirectory, TTL: 12 * time.Hour}
