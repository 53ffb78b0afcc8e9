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

//go:build windows

package packages

import (
	"os"
	"path/filepath"

	"golang.org/x/sys/windows/registry"

	"github.com/draconis-go/draconis/internal/errs"
	"github.com/draconis-go/draconis/pkg/cache"
)

func platformManagers() []managerEntry {
	return []managerEntry{
		{"winget", Winget, CountWinGet},
		{"chocolatey", Chocolatey, CountChocolatey},
		{"scoop", Scoop, CountScoop},
		{"nix", Nix, CountNix},
		{"cargo", Cargo, CountCargo},
	}
}

const wingetPackagesKey = `SOFTWARE\Microsoft\Windows\CurrentVersion\AppModel\PackageRepository\Packages`

// CountWinGet counts subkeys under the AppModel packages registry key,
// one per installed package (MSIX-packaged apps, including those winget
// installs).
func CountWinGet(c *cache.Manager) (uint64, error) {
	return cache.GetOrSet(c, cacheKeyPrefix+"winget", &cache.Short, func() (uint64, error) {
		key, err := registry.OpenKey(registry.LOCAL_MACHINE, wingetPackagesKey, registry.ENUMERATE_SUB_KEYS)
		if err != nil {
			return 0, errs.Wrap(errs.NotFound, err, "opening AppModel packages key")
		}
		defer key.Close()

		names, err := key.ReadSubKeyNames(-1)
		if err != nil {
			return 0, errs.Wrap(errs.IoError, err, "enumerating AppModel packages subkeys")
		}
		return uint64(len(names)), nil
	})
}

// CountChocolatey counts package directories under Chocolatey's lib
// folder, resolved from %ChocolateyInstall% or the default install path.
func CountChocolatey(c *cache.Manager) (uint64, error) {
	root := os.Getenv("ChocolateyInstall")
	if root == "" {
		root = `C:\ProgramData\chocolatey`
	}
	return GetCountFromDirectory(c, "chocolatey", filepath.Join(root, "lib"), "", false)
}

// CountScoop counts app directories under Scoop's apps folder, resolved
// from %SCOOP% or the default ~/scoop location.
func CountScoop(c *cache.Manager) (uint64, error) {
	root := os.Getenv("SCOOP")
	if root == "" {
		root = filepath.Join(canonicalHomeDir(), "scoop")
	}
	return GetCountFromDirectory(c, "scoop", filepath.Join(root, "apps"), "", false)
}
