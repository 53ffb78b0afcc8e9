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

//go:build haiku

package packages

import "github.com/draconis-go/draconis/pkg/cache"

func platformManagers() []managerEntry {
	return []managerEntry{
		{"haikupkg", HaikuPkg, GetHaikuCount},
		{"nix", Nix, CountNix},
		{"cargo", Cargo, CountCargo},
	}
}

// GetHaikuCount counts .hpkg package files under Haiku's system package
// directory.
func GetHaikuCount(c *cache.Manager) (uint64, error) {
	return GetCountFromDirectory(c, "haikupkg", "/boot/system/packages", ".hpkg", false)
}
