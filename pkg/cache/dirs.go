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
	"runtime"
)

const appDirName = "draconis++"

// PersistentDir returns the per-user cache directory: $XDG_CACHE_HOME/draconis++
// or ~/.cache/draconis++ on Linux/BSD, ~/Library/Caches/draconis++ on macOS,
// %LOCALAPPDATA%\draconis++\cache on Windows.
func PersistentDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		base := os.Getenv("LOCALAPPDATA")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			base = filepath.Join(home, "AppData", "Local")
		}
		return filepath.Join(base, appDirName, "cache"), nil
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Caches", appDirName), nil
	default:
		if base := os.Getenv("XDG_CACHE_HOME"); base != "" {
			return filepath.Join(base, appDirName), nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".cache", appDirName), nil
	}
}

// TempDir returns the system temp directory scoped to this library.
func TempDir() string {
	return filepath.Join(os.TempDir(), appDirName)
}

// PluginCacheDir returns the scoped cache directory the plugin manager
// hands to a named plugin: <cache home>/draconis++/plugins/<name>.
func PluginCacheDir(pluginName string) (string, error) {
	base, err := PersistentDir()
	if err != nil {
		return "", err
	}
	// On Windows PersistentDir ends in draconis++\cache; elsewhere it is the
	// draconis++ directory itself.
	if runtime.GOOS == "windows" {
		base = filepath.Dir(base)
	}
	return filepath.Join(base, "plugins", pluginName), nil
}
