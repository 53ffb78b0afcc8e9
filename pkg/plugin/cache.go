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

package plugin

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/draconis-go/draconis/internal/log"
	"github.com/draconis-go/draconis/internal/wire"
)

var logger = log.NewLogger("plugin-cache")

type cacheEntry struct {
	raw     []byte
	expires time.Time
}

// Cache is the simplified, single-location cache handed to each plugin
// instance. Unlike the core cache manager, it has no policy enum: every
// entry lives in one directory, and a plugin must not reach into the core
// cache manager directly.
type Cache struct {
	mu  sync.Mutex
	dir string
	mem map[string]cacheEntry
}

// NewCache constructs a plugin cache rooted at dir.
func NewCache(dir string) *Cache {
	return &Cache{dir: dir, mem: map[string]cacheEntry{}}
}

// Get returns the decoded cached value for key, reporting whether a
// non-expired entry was found.
func Get[T any](c *Cache, key string) (T, bool) {
	var zero T

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.mem[key]; ok {
		if !e.expires.IsZero() && !time.Now().Before(e.expires) {
			delete(c.mem, key)
		} else {
			var v T
			if _, err := wire.Decode(e.raw, &v); err == nil {
				return v, true
			}
		}
	}

	path := filepath.Join(c.dir, key)
	raw, err := os.ReadFile(path)
	if err != nil {
		return zero, false
	}
	var v T
	expires, err := wire.Decode(raw, &v)
	if err != nil {
		logger.Debug("dropping corrupted plugin cache entry %q: %v", path, err)
		return zero, false
	}
	if !expires.IsZero() && !time.Now().Before(expires) {
		return zero, false
	}
	c.mem[key] = cacheEntry{raw: raw, expires: expires}
	return v, true
}

// Set writes value to memory and disk under key. ttl == 0 means the entry
// never expires.
func Set[T any](c *Cache, key string, value T, ttl time.Duration) error {
	var expires time.Time
	if ttl > 0 {
		expires = time.Now().Add(ttl)
	}

	raw, err := wire.Encode(value, expires)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.mem[key] = cacheEntry{raw: raw, expires: expires}
	c.mu.Unlock()

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.dir, key), raw, 0o644)
}

// Invalidate removes key from memory and disk.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.mem, key)
	c.mu.Unlock()
	_ = os.Remove(filepath.Join(c.dir, key))
}
