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

package cache

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/draconis-go/draconis/internal/errs"
	"github.com/draconis-go/draconis/internal/log"
	"github.com/draconis-go/draconis/internal/wire"
)

var logger = log.NewLogger("cache")

type memEntry struct {
	raw     []byte
	expires time.Time
}

func (e memEntry) expired() bool {
	return !e.expires.IsZero() && !time.Now().Before(e.expires)
}

// Manager is the two-tier cache fronting expensive probes. The zero value
// is not usable; construct one with New.
type Manager struct {
	mu      sync.Mutex
	mem     map[string]memEntry
	policy  Policy
	bypass  atomic.Bool
	persist string
	temp    string
}

// New constructs a Manager rooted at the platform's default persistent and
// temp directories.
func New() (*Manager, error) {
	persist, err := PersistentDir()
	if err != nil {
		return nil, errs.Wrap(errs.IoError, err, "resolving persistent cache directory")
	}
	return &Manager{
		mem:     map[string]memEntry{},
		policy:  DefaultPolicy,
		persist: persist,
		temp:    TempDir(),
	}, nil
}

// SetGlobalBypass toggles whether GetOrSet calls skip the cache entirely.
func (m *Manager) SetGlobalBypass(on bool) {
	m.bypass.Store(on)
}

// SetGlobalPolicy replaces the default policy used when GetOrSet is called
// with a nil override.
func (m *Manager) SetGlobalPolicy(p Policy) {
	m.mu.Lock()
	m.policy = p
	m.mu.Unlock()
}

func (m *Manager) dirFor(loc Location) string {
	switch loc {
	case TempDirectory:
		return m.temp
	case Persistent:
		return m.persist
	default:
		return ""
	}
}

// GetOrSet returns the cached value for key if present and non-expired,
// otherwise calls fetch, caches its result per policy (or the manager's
// default policy when policy is nil), and returns it.
//
// The lock is held only for the memory/disk lookup and for inserting the
// fetched result, never across the fetch call itself: a fetcher for one
// key (e.g. the system disk) may itself call GetOrSet for a different key
// on the same Manager (e.g. the disk list), and holding the lock across
// fetch would deadlock that reentrant call against the same
// non-reentrant mutex.
func GetOrSet[T any](m *Manager, key string, policy *Policy, fetch func() (T, error)) (T, error) {
	var zero T

	if m.bypass.Load() {
		return fetch()
	}

	m.mu.Lock()
	if entry, ok := m.mem[key]; ok && !entry.expired() {
		var v T
		if _, err := wire.Decode(entry.raw, &v); err == nil {
			m.mu.Unlock()
			return v, nil
		}
		logger.Debug("dropping corrupted in-memory entry for %q", key)
		delete(m.mem, key)
	}

	p := m.policy
	if policy != nil {
		p = *policy
	}
	dir := m.dirFor(p.Location)
	m.mu.Unlock()

	if dir != "" {
		if v, raw, expires, ok := readDisk[T](dir, key); ok {
			m.mu.Lock()
			m.mem[key] = memEntry{raw: raw, expires: expires}
			m.mu.Unlock()
			return v, nil
		}
	}

	v, err := fetch()
	if err != nil {
		return zero, err
	}

	var expires time.Time
	if p.TTL > 0 {
		expires = time.Now().Add(p.TTL)
	}

	raw, encErr := wire.Encode(v, expires)
	if encErr != nil {
		logger.Warn("failed to encode cache entry for %q: %v", key, encErr)
		return v, nil
	}

	m.mu.Lock()
	// Double-checked insert: another goroutine may have populated key
	// while fetch ran unlocked. Prefer whatever is already cached so
	// concurrent fetchers converge on one winner.
	if entry, ok := m.mem[key]; ok && !entry.expired() {
		var existing T
		if _, decErr := wire.Decode(entry.raw, &existing); decErr == nil {
			m.mu.Unlock()
			return existing, nil
		}
	}
	m.mem[key] = memEntry{raw: raw, expires: expires}
	m.mu.Unlock()

	if dir != "" {
		if err := writeDisk(dir, key, raw); err != nil {
			logger.Debug("failed to write cache entry for %q to disk: %v", key, err)
		}
	}

	return v, nil
}

func readDisk[T any](dir, key string) (v T, raw []byte, expires time.Time, ok bool) {
	path := filepath.Join(dir, key)
	data, err := os.ReadFile(path)
	if err != nil {
		return v, nil, time.Time{}, false
	}
	expires, err = wire.Decode(data, &v)
	if err != nil {
		logger.Debug("dropping corrupted on-disk entry %q: %v", path, err)
		return v, nil, time.Time{}, false
	}
	if !expires.IsZero() && !time.Now().Before(expires) {
		return v, nil, time.Time{}, false
	}
	return v, data, expires, true
}

func writeDisk(dir, key string, raw []byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errs.Wrap(errs.IoError, err, "creating cache directory %s", dir)
	}
	path := filepath.Join(dir, key)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return errs.Wrap(errs.IoError, err, "writing cache entry %s", path)
	}
	return nil
}

// Invalidate removes key from memory and from both on-disk locations. It is
// not an error for the key to be absent.
func (m *Manager) Invalidate(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.mem, key)
	_ = os.Remove(filepath.Join(m.temp, key))
	_ = os.Remove(filepath.Join(m.persist, key))
}

// InvalidateAll clears memory and removes every file under the persistent
// cache directory, plus every temp-directory file whose basename is a key
// currently known in memory. It returns the number of files removed.
func (m *Manager) InvalidateAll(logRemovals bool) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	knownTempKeys := make(map[string]bool, len(m.mem))
	for key := range m.mem {
		knownTempKeys[key] = true
	}
	m.mem = map[string]memEntry{}

	if entries, err := os.ReadDir(m.persist); err == nil {
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			path := filepath.Join(m.persist, e.Name())
			if err := os.Remove(path); err == nil {
				removed++
				if logRemovals {
					logger.Debug("removed persistent cache file %s", path)
				}
			}
		}
	}

	if entries, err := os.ReadDir(m.temp); err == nil {
		for _, e := range entries {
			if e.IsDir() || !knownTempKeys[e.Name()] {
				continue
			}
			path := filepath.Join(m.temp, e.Name())
			if err := os.Remove(path); err == nil {
				removed++
				if logRemovals {
					logger.Debug("removed temp cache file %s", path)
				}
			}
		}
	}

	return removed
}
