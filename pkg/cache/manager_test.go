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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	dir := t.TempDir()
	return &Manager{
		mem:     map[string]memEntry{},
		policy:  DefaultPolicy,
		persist: dir + "/persist",
		temp:    dir + "/temp",
	}
}

func TestGetOrSetCallsFetchOnce(t *testing.T) {
	m := newTestManager(t)
	calls := 0
	fetch := func() (string, error) {
		calls++
		return "cpu-model-x", nil
	}

	for i := 0; i < 5; i++ {
		v, err := GetOrSet(m, "cpu_model", &NeverExpire, fetch)
		require.NoError(t, err)
		require.Equal(t, "cpu-model-x", v)
	}
	require.Equal(t, 1, calls)
}

func TestGetOrSetPropagatesFetchError(t *testing.T) {
	m := newTestManager(t)
	wantErr := errors.New("probe failed")
	_, err := GetOrSet(m, "k", &NeverExpire, func() (int, error) { return 0, wantErr })
	require.ErrorIs(t, err, wantErr)

	// A failed fetch must not be cached.
	calls := 0
	_, err = GetOrSet(m, "k", &NeverExpire, func() (int, error) {
		calls++
		return 7, nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, calls)
}

func TestInvalidateForcesRefetch(t *testing.T) {
	m := newTestManager(t)
	calls := 0
	fetch := func() (int, error) {
		calls++
		return calls, nil
	}

	v1, _ := GetOrSet(m, "k", &NeverExpire, fetch)
	require.Equal(t, 1, v1)

	m.Invalidate("k")

	v2, _ := GetOrSet(m, "k", &NeverExpire, fetch)
	require.Equal(t, 2, v2)
}

func TestGlobalBypassSkipsCache(t *testing.T) {
	m := newTestManager(t)
	m.SetGlobalBypass(true)

	calls := 0
	fetch := func() (int, error) {
		calls++
		return calls, nil
	}
	v1, _ := GetOrSet(m, "k", &NeverExpire, fetch)
	v2, _ := GetOrSet(m, "k", &NeverExpire, fetch)
	require.Equal(t, 1, v1)
	require.Equal(t, 2, v2)
	require.Equal(t, 2, calls)
}

func TestInvalidateAllClearsMemoryAndDisk(t *testing.T) {
	m := newTestManager(t)
	_, _ = GetOrSet(m, "a", &Policy{Location: Persistent}, func() (int, error) { return 1, nil })
	_, _ = GetOrSet(m, "b", &Policy{Location: TempDirectory}, func() (int, error) { return 2, nil })

	removed := m.InvalidateAll(false)
	require.GreaterOrEqual(t, removed, 2)

	calls := 0
	_, _ = GetOrSet(m, "a", &Policy{Location: Persistent}, func() (int, error) { calls++; return 3, nil })
	require.Equal(t, 1, calls)
}

func TestEntryExpiry(t *testing.T) {
	m := newTestManager(t)
	calls := 0
	fetch := func() (int, error) {
		calls++
		return calls, nil
	}

	shortTTL := Policy{Location: InMemory, TTL: time.Millisecond}
	v1, _ := GetOrSet(m, "k", &shortTTL, fetch)
	require.Equal(t, 1, v1)

	time.Sleep(5 * time.Millisecond)

	v2, _ := GetOrSet(m, "k", &shortTTL, fetch)
	require.Equal(t, 2, v2)
}
