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

//go:build linux

package packages

import (
	"bufio"
	"os"
	"strings"

	"github.com/draconis-go/draconis/internal/errs"
	"github.com/draconis-go/draconis/pkg/cache"
)

func platformManagers() []managerEntry {
	return []managerEntry{
		{"apk", Apk, CountApk},
		{"dpkg", Dpkg, CountDpkg},
		{"moss", Moss, CountMoss},
		{"pacman", Pacman, CountPacman},
		{"rpm", Rpm, CountRpm},
		{"xbps", Xbps, CountXbps},
		{"nix", Nix, CountNix},
		{"cargo", Cargo, CountCargo},
	}
}

// CountApk counts package stanzas in APK's installed-package database.
// apk-tools keeps one text file for the whole database rather than a
// file per package, so this counts "P:" (package name) lines rather
// than using the directory-counting primitive.
func CountApk(c *cache.Manager) (uint64, error) {
	return cache.GetOrSet(c, cacheKeyPrefix+"apk", &cache.Short, func() (uint64, error) {
		const path = "/lib/apk/db/installed"
		f, err := os.Open(path)
		if err != nil {
			return 0, errs.Wrap(errs.NotFound, err, "opening %s", path)
		}
		defer f.Close()

		var count uint64
		sc := bufio.NewScanner(f)
		for sc.Scan() {
			if strings.HasPrefix(sc.Text(), "P:") {
				count++
			}
		}
		if err := sc.Err(); err != nil {
			return 0, errs.Wrap(errs.IoError, err, "reading %s", path)
		}
		return count, nil
	})
}

// CountDpkg counts the per-package .list files Debian's package database
// writes to /var/lib/dpkg/info.
func CountDpkg(c *cache.Manager) (uint64, error) {
	return GetCountFromDirectory(c, "dpkg", "/var/lib/dpkg/info", ".list", false)
}

// CountMoss counts per-package metadata directories in AerynOS's local
// installation database.
func CountMoss(c *cache.Manager) (uint64, error) {
	return GetCountFromDirectory(c, "moss", "/var/lib/moss/db/installation", "", false)
}

// CountPacman counts Arch Linux's per-package directories, subtracting
// one for the ALPM_DB_VERSION sidecar file pacman keeps alongside them.
func CountPacman(c *cache.Manager) (uint64, error) {
	return GetCountFromDirectory(c, "pacman", "/var/lib/pacman/local", "", true)
}

// CountRpm queries RPM's SQLite-backed database, used by Fedora, RHEL and
// derivatives since RPM 4.16.
func CountRpm(c *cache.Manager) (uint64, error) {
	return GetCountFromDb(c, "rpm", "/var/lib/rpm/rpmdb.sqlite", "SELECT COUNT(*) FROM Packages")
}

// CountXbps counts installed-state entries in Void Linux's package
// database plist.
func CountXbps(c *cache.Manager) (uint64, error) {
	return GetCountFromPlist(c, "xbps", "/var/db/xbps/pkgdb-0.38.plist")
}
