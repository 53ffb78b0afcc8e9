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

//go:build darwin

package packages

import (
	"os"
	"runtime"

	"github.com/draconis-go/draconis/pkg/cache"
)

func platformManagers() []managerEntry {
	return []managerEntry{
		{"homebrew", Homebrew, GetHomebrewCount},
		{"macports", Macports, GetMacPortsCount},
		{"nix", Nix, CountNix},
		{"cargo", Cargo, CountCargo},
	}
}

func homebrewCellarPath() string {
	if runtime.GOARCH == "arm64" {
		return "/opt/homebrew/Cellar"
	}
	return "/usr/local/Cellar"
}

// GetHomebrewCount counts formula directories under Homebrew's Cellar,
// choosing the Apple Silicon or Intel default prefix by GOARCH.
func GetHomebrewCount(c *cache.Manager) (uint64, error) {
	path := homebrewCellarPath()
	if _, err := os.Stat(path); err != nil && path != "/usr/local/Cellar" {
		path = "/usr/local/Cellar"
	}
	return GetCountFromDirectory(c, "homebrew", path, "", false)
}

// GetMacPortsCount counts port receipt directories under MacPorts' local
// database.
func GetMacPortsCount(c *cache.Manager) (uint64, error) {
	return GetCountFromDirectory(c, "macports", "/opt/local/var/macports/software", "", false)
}
