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
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCacheSetGet(t *testing.T) {
	c := NewCache(t.TempDir())
	require.NoError(t, Set(c, "k", "weather-ok", 0))

	v, ok := Get[string](c, "k")
	require.True(t, ok)
	require.Equal(t, "weather-ok", v)
}

func TestCacheExpiry(t *testing.T) {
	c := NewCache(t.TempDir())
	require.NoError(t, Set(c, "k", 42, time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	_, ok := Get[int](c, "k")
	require.False(t, ok)
}

func TestCacheInvalidate(t *testing.T) {
	c := NewCache(t.TempDir())
	require.NoError(t, Set(c, "k", "v", 0))
	c.Invalidate("k")

	_, ok := Get[string](c, "k")
	require.False(t, ok)
}

func TestCacheSurvivesMemoryEviction(t *testing.T) {
	dir := t.TempDir()
	c1 := NewCache(dir)
	require.NoError(t, Set(c1, "k", "persisted", 0))

	c2 := NewCache(dir)
	v, ok := Get[string](c2, "k")
	require.True(t, ok)
	require.Equal(t, "persisted", v)
}
