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

//go:build freebsd || dragonfly || netbsd

package packages

import (
	"runtime"

	"github.com/draconis-go/draconis/pkg/cache"
)

func platformManagers() []managerEntry {
	switch runtime.GOOS {
	case "freebsd", "dragonfly":
		return []managerEntry{
			{"pkgng", PkgNg, GetPkgNgCount},
			{"nix", Nix, CountNix},
			{"cargo", Cargo, CountCargo},
		}
	default: // netbsd
		return []managerEntry{
			{"pkgsrc", PkgSrc, GetPkgSrcCount},
			{"nix", Nix, CountNix},
			{"cargo", Cargo, CountCargo},
		}
	}
}

// GetPkgNgCount queries pkg(8)'s SQLite-backed local database, used by
// FreeBSD and DragonFly BSD.
func GetPkgNgCount(c *cache.Manager) (uint64, error) {
	return GetCountFromDb(c, "pkgng", "/var/db/pkg/local.sqlite", "SELECT COUNT(*) FROM packages")
}

// GetPkgSrcCount counts package receipt directories under pkgsrc's local
// database, used by NetBSD.
func GetPkgSrcCount(c *cache.Manager) (uint64, error) {
	return GetCountFromDirectory(c, "pkgsrc", "/var/db/pkg", "", false)
}
