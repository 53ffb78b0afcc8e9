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

package packages

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draconis-go/draconis/internal/errs"
	"github.com/draconis-go/draconis/pkg/cache"
)

func newTestCache(t *testing.T) *cache.Manager {
	t.Helper()
	c, err := cache.New()
	require.NoError(t, err)
	c.SetGlobalBypass(true)
	return c
}

func TestGetCountFromDirectoryNoFilter(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}

	c := newTestCache(t)
	count, err := GetCountFromDirectory(c, "test", dir, "", false)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)
}

func TestGetCountFromDirectoryWithFilter(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "foo.list"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bar.list"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "baz.md5sums"), nil, 0o644))

	c := newTestCache(t)
	count, err := GetCountFromDirectory(c, "test", dir, ".list", false)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)
}

func TestGetCountFromDirectorySubtractOne(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"ALPM_DB_VERSION", "pkg-1.0", "pkg-2.0"} {
		require.NoError(t, os.Mkdir(filepath.Join(dir, name), 0o755))
	}

	c := newTestCache(t)
	count, err := GetCountFromDirectory(c, "pacman", dir, "", true)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)
}

func TestGetCountFromDirectoryMissing(t *testing.T) {
	c := newTestCache(t)
	_, err := GetCountFromDirectory(c, "missing", filepath.Join(t.TempDir(), "nope"), "", false)
	require.Error(t, err)
	assert.Equal(t, errs.NotFound, errs.KindOf(err))
}

const testPlist = `<?xml version="1.0" encoding="UTF-8"?>
<plist version="1.0">
<dict>
	<key>_XBPS_ALTERNATIVES_</key>
	<dict>
		<key>state</key>
		<string>installed</string>
	</dict>
	<key>pkg-a</key>
	<dict>
		<key>state</key>
		<string>installed</string>
	</dict>
	<key>pkg-b</key>
	<dict>
		<key>state</key>
		<string>broken</string>
	</dict>
	<key>pkg-c</key>
	<dict>
		<key>state</key>
		<string>installed</string>
	</dict>
</dict>
</plist>`

func TestCountInstalledPlistEntries(t *testing.T) {
	count, err := countInstalledPlistEntries([]byte(testPlist))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)
}

func TestGetCountFromPlist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pkgdb.plist")
	require.NoError(t, os.WriteFile(path, []byte(testPlist), 0o644))

	c := newTestCache(t)
	count, err := GetCountFromPlist(c, "xbps", path)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)
}

func TestGetCountFromPlistEmptyIsNotFound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.plist")
	require.NoError(t, os.WriteFile(path, []byte(`<?xml version="1.0"?><plist version="1.0"><dict></dict></plist>`), 0o644))

	c := newTestCache(t)
	_, err := GetCountFromPlist(c, "xbps", path)
	require.Error(t, err)
	assert.Equal(t, errs.NotFound, errs.KindOf(err))
}

func TestCountCargoMissingDirectory(t *testing.T) {
	t.Setenv("CARGO_HOME", filepath.Join(t.TempDir(), "does-not-exist"))
	c := newTestCache(t)
	_, err := CountCargo(c)
	require.Error(t, err)
	assert.Equal(t, errs.NotFound, errs.KindOf(err))
}

func TestCountCargoResolvesFromCargoHome(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(home, "bin"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(home, "bin", "rustc"), nil, 0o755))
	t.Setenv("CARGO_HOME", home)

	c := newTestCache(t)
	count, err := CountCargo(c)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestManagerHas(t *testing.T) {
	mask := Cargo | Rpm
	assert.True(t, mask.Has(Cargo))
	assert.True(t, mask.Has(Rpm))
	assert.False(t, mask.Has(Pacman))
}

func TestGetTotalCountNoManagersEnabled(t *testing.T) {
	c := newTestCache(t)
	_, err := GetTotalCount(c, 0)
	require.Error(t, err)
	assert.Equal(t, errs.UnavailableFeature, errs.KindOf(err))
}
