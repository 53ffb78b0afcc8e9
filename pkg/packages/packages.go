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

// Package packages counts installed packages across the package managers
// present on a host. Each manager is represented as a bit in a Manager
// mask; only the managers relevant to the running platform do anything
// when queried, but the full mask is defined on every platform so callers
// can build it without build tags of their own.
package packages

import (
	"database/sql"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	_ "github.com/mattn/go-sqlite3"

	"github.com/draconis-go/draconis/internal/errs"
	"github.com/draconis-go/draconis/internal/log"
	"github.com/draconis-go/draconis/pkg/cache"
)

var logger = log.NewLogger("packages")

// Manager is a bitmask over the known package managers. Which bits are
// meaningful depends on the host platform; asking for a count from a
// manager the platform build doesn't implement yields zero contribution,
// not an error.
type Manager uint16

const (
	Cargo Manager = 1 << iota
	Nix
	Apk
	Dpkg
	Moss
	Pacman
	Rpm
	Xbps
	Homebrew
	Macports
	Winget
	Chocolatey
	Scoop
	PkgNg
	PkgSrc
	HaikuPkg
)

// AllKnown enables every manager bit regardless of platform relevance.
const AllKnown Manager = Cargo | Nix | Apk | Dpkg | Moss | Pacman | Rpm | Xbps |
	Homebrew | Macports | Winget | Chocolatey | Scoop | PkgNg | PkgSrc | HaikuPkg

func (m Manager) Has(flag Manager) bool { return m&flag != 0 }

const cacheKeyPrefix = "pkg_count_"

// countFn is a manager-specific counting function, given the cache manager
// to read through.
type countFn func(c *cache.Manager) (uint64, error)

type managerEntry struct {
	name  string
	flag  Manager
	count countFn
}

// GetTotalCount sums the package count from every manager enabled in mask
// that this platform build implements. Errors of kind NotFound,
// ApiUnavailable or NotSupported are demoted to debug logs since they
// represent an absent manager, not a failure; other errors are logged at
// error level but do not abort the aggregation. UnavailableFeature is
// returned only if no manager produced a count at all.
func GetTotalCount(c *cache.Manager, mask Manager) (uint64, error) {
	var total uint64
	var failures *multierror.Error
	oneSucceeded := false

	for _, entry := range platformManagers() {
		if !mask.Has(entry.flag) {
			continue
		}
		n, err := entry.count(c)
		if err != nil {
			logManagerError(entry.name, err)
			failures = multierror.Append(failures, fmt.Errorf("%s: %w", entry.name, err))
			continue
		}
		total += n
		oneSucceeded = true
	}

	if !oneSucceeded {
		return 0, errs.Wrap(errs.UnavailableFeature, failures.ErrorOrNil(), "no package managers found or none reported counts")
	}
	return total, nil
}

// GetIndividualCounts mirrors GetTotalCount but preserves a per-manager
// breakdown keyed by manager name.
func GetIndividualCounts(c *cache.Manager, mask Manager) (map[string]uint64, error) {
	counts := map[string]uint64{}
	var failures *multierror.Error

	for _, entry := range platformManagers() {
		if !mask.Has(entry.flag) {
			continue
		}
		n, err := entry.count(c)
		if err != nil {
			logManagerError(entry.name, err)
			failures = multierror.Append(failures, fmt.Errorf("%s: %w", entry.name, err))
			continue
		}
		counts[entry.name] = n
	}

	if len(counts) == 0 {
		return nil, errs.Wrap(errs.UnavailableFeature, failures.ErrorOrNil(), "no package managers found or none reported counts")
	}
	return counts, nil
}

func logManagerError(name string, err error) {
	switch errs.KindOf(err) {
	case errs.NotFound, errs.ApiUnavailable, errs.NotSupported:
		logger.Debug("package manager %s unavailable: %v", name, err)
	default:
		logger.Error("counting packages for %s: %v", name, err)
	}
}

// GetCountFromDb opens dbPath read-only via database/sql and executes
// countQuery, which must return a single integer column.
func GetCountFromDb(c *cache.Manager, id, dbPath, countQuery string) (uint64, error) {
	return cache.GetOrSet(c, cacheKeyPrefix+id, &cache.Short, func() (uint64, error) {
		if _, err := os.Stat(dbPath); err != nil {
			return 0, errs.Wrap(errs.NotFound, err, "%s database not found at %s", id, dbPath)
		}

		db, err := sql.Open("sqlite3", "file:"+dbPath+"?mode=ro&immutable=1")
		if err != nil {
			return 0, errs.Wrap(errs.ApiUnavailable, err, "opening %s database", id)
		}
		defer db.Close()

		row := db.QueryRow(countQuery)
		var count int64
		if err := row.Scan(&count); err != nil {
			return 0, errs.Wrap(errs.ParseError, err, "no rows returned by %s count query", id)
		}
		if count < 0 {
			return 0, errs.New(errs.CorruptedData, "negative count returned by %s count query", id)
		}
		return uint64(count), nil
	})
}

// GetCountFromDirectory enumerates dir's entries. With a non-empty
// extensionFilter, only regular files whose extension matches are
// counted; otherwise every entry counts. subtractOne accounts for
// directories that carry a metadata sidecar entry alongside one entry
// per package.
func GetCountFromDirectory(c *cache.Manager, id, dir, extensionFilter string, subtractOne bool) (uint64, error) {
	return cache.GetOrSet(c, cacheKeyPrefix+id, &cache.Short, func() (uint64, error) {
		return countDirectoryNoCache(id, dir, extensionFilter, subtractOne)
	})
}

func countDirectoryNoCache(id, dir, extensionFilter string, subtractOne bool) (uint64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, errs.Wrap(errs.NotFound, err, "%s path is not a directory: %s", id, dir)
		}
		return 0, errs.Wrap(errs.ResourceExhausted, err, "reading %s directory %s", id, dir)
	}

	var count uint64
	for _, e := range entries {
		if extensionFilter != "" {
			info, err := e.Info()
			if err != nil || !info.Mode().IsRegular() {
				continue
			}
			if filepath.Ext(e.Name()) == extensionFilter {
				count++
			}
			continue
		}
		count++
	}

	if subtractOne && count > 0 {
		count--
	}
	return count, nil
}

// GetCountFromPlist walks a property-list file's top-level <dict>,
// counting every sibling <dict> whose <key>state</key> is immediately
// followed by <string>installed</string>. The top-level key
// "_XBPS_ALTERNATIVES_" is skipped since it names an alternatives group
// rather than a package entry.
func GetCountFromPlist(c *cache.Manager, id, plistPath string) (uint64, error) {
	return cache.GetOrSet(c, cacheKeyPrefix+id, &cache.Short, func() (uint64, error) {
		raw, err := os.ReadFile(plistPath)
		if err != nil {
			return 0, errs.Wrap(errs.NotFound, err, "reading plist %s", plistPath)
		}
		count, err := countInstalledPlistEntries(raw)
		if err != nil {
			return 0, err
		}
		if count == 0 {
			return 0, errs.New(errs.NotFound, "no installed packages found in plist %s", plistPath)
		}
		return count, nil
	})
}

// plistNode is a minimal, order-preserving XML tree. howett.net/plist
// decodes property lists into Go maps, which discards the positional
// key/value adjacency this traversal depends on, so this primitive walks
// the raw XML directly instead.
type plistNode struct {
	XMLName xml.Name
	Content string      `xml:",chardata"`
	Nodes   []plistNode `xml:",any"`
}

func countInstalledPlistEntries(raw []byte) (uint64, error) {
	var root plistNode
	if err := xml.Unmarshal(raw, &root); err != nil {
		return 0, errs.Wrap(errs.ParseError, err, "malformed plist XML")
	}

	var topDict *plistNode
	for i := range root.Nodes {
		if root.Nodes[i].XMLName.Local == "dict" {
			topDict = &root.Nodes[i]
			break
		}
	}
	if topDict == nil {
		return 0, errs.New(errs.CorruptedData, "no <dict> element found in plist")
	}

	var count uint64
	nodes := topDict.Nodes
	for i := 0; i < len(nodes); i++ {
		if nodes[i].XMLName.Local != "key" {
			continue
		}
		if strings.TrimSpace(nodes[i].Content) == "_XBPS_ALTERNATIVES_" {
			continue
		}
		if i+1 < len(nodes) && nodes[i+1].XMLName.Local == "dict" && dictMarksInstalled(nodes[i+1]) {
			count++
		}
	}
	return count, nil
}

func dictMarksInstalled(dict plistNode) bool {
	nodes := dict.Nodes
	for i := 0; i < len(nodes); i++ {
		if nodes[i].XMLName.Local != "key" || strings.TrimSpace(nodes[i].Content) != "state" {
			continue
		}
		if i+1 < len(nodes) && nodes[i+1].XMLName.Local == "string" && strings.TrimSpace(nodes[i+1].Content) == "installed" {
			return true
		}
	}
	return false
}

// canonicalHomeDir resolves $HOME (or $USERPROFILE on Windows) without
// pulling in os/user, matching the lightweight env-var resolution the
// rest of the probe layer uses.
func canonicalHomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	return os.Getenv("USERPROFILE")
}

func firstExisting(paths ...string) (string, bool) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			return p, true
		}
	}
	return "", false
}

// CountCargo counts binaries in Cargo's bin directory, resolved from
// CARGO_HOME or the default ~/.cargo location. Available on every
// platform since Cargo installs identically everywhere.
func CountCargo(c *cache.Manager) (uint64, error) {
	var cargoPath string
	if home := os.Getenv("CARGO_HOME"); home != "" {
		cargoPath = filepath.Join(home, "bin")
	} else if home := canonicalHomeDir(); home != "" {
		cargoPath = filepath.Join(home, ".cargo", "bin")
	}
	if cargoPath == "" {
		return 0, errs.New(errs.ConfigurationError, "could not determine cargo directory")
	}
	if _, err := os.Stat(cargoPath); err != nil {
		return 0, errs.Wrap(errs.NotFound, err, "cargo directory not found at %s", cargoPath)
	}
	return GetCountFromDirectory(c, "cargo", cargoPath, "", false)
}

// CountNix counts signed store paths via Nix's SQLite database, available
// on Linux and macOS.
func CountNix(c *cache.Manager) (uint64, error) {
	return GetCountFromDb(c, "nix", "/nix/var/nix/db/db.sqlite", "SELECT COUNT(path) FROM ValidPaths WHERE sigs IS NOT NULL")
}
