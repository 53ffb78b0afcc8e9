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

// Package pluginmanager implements discovery, dynamic loading, lifecycle
// management and log-level propagation for draconis plugins, plus a path
// through the static registry for precompiled deployments.
package pluginmanager

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/draconis-go/draconis/internal/errs"
	"github.com/draconis-go/draconis/internal/log"
	"github.com/draconis-go/draconis/pkg/cache"
	"github.com/draconis-go/draconis/pkg/plugin"
	"github.com/draconis-go/draconis/pkg/staticplugin"
)

var logger = log.NewLogger("pluginmanager")

// hostLogLevel is passed by address to dynamically loaded plugins that
// export SetPluginLogLevel, so they can mirror the host's verbosity
// without either side needing to agree on a shared type beyond int32. The
// address must stay valid and be the thing every plugin was handed, so
// this is a plain package-level int32 updated through sync/atomic rather
// than an atomic.Int32 value, whose internal field isn't addressable from
// outside the package.
var hostLogLevel int32

// SetHostLogLevel updates the level value shared with already-loaded and
// future dynamic plugins that export SetPluginLogLevel.
func SetHostLogLevel(level log.Level) {
	atomic.StoreInt32(&hostLogLevel, int32(level))
}

// LoadedPlugin tracks one resident plugin instance.
type LoadedPlugin struct {
	Instance      plugin.Lifecycle
	Handle        any // *plugin.Plugin for dynamic loads, nil for static
	Path          string
	Metadata      plugin.Metadata
	IsInitialized bool
}

// Config configures Initialize.
type Config struct {
	// ExtraSearchPaths are prepended to the platform defaults.
	ExtraSearchPaths []string
	// AutoLoad names plugins to load immediately during Initialize.
	AutoLoad []string
	// UseStaticRegistry enables the static-registry lookup path in
	// LoadPlugin, for precompiled-config builds.
	UseStaticRegistry bool
}

// Manager owns plugin discovery and the set of resident plugin instances.
type Manager struct {
	mu sync.RWMutex

	searchPaths []string
	discovered  map[string]string // name -> path
	loaded      map[string]*LoadedPlugin

	infoProviders map[string]plugin.InfoProvider // keyed by provider id
	outputFormats map[string]map[string]plugin.OutputFormat // keyed by format name

	useStaticRegistry bool
	initialized       bool
}

var (
	instance     *Manager
	instanceOnce sync.Once
)

// Instance returns the process-wide Manager singleton.
func Instance() *Manager {
	instanceOnce.Do(func() {
		instance = newManager()
	})
	return instance
}

func newManager() *Manager {
	return &Manager{
		discovered:    map[string]string{},
		loaded:        map[string]*LoadedPlugin{},
		infoProviders: map[string]plugin.InfoProvider{},
		outputFormats: map[string]map[string]plugin.OutputFormat{},
	}
}

// defaultSearchPaths returns the platform-specific plugin search paths,
// merged in priority order.
func defaultSearchPaths() []string {
	cwd, _ := os.Getwd()
	switch runtime.GOOS {
	case "windows":
		local := os.Getenv("LOCALAPPDATA")
		roaming := os.Getenv("APPDATA")
		home := os.Getenv("USERPROFILE")
		paths := []string{}
		if local != "" {
			paths = append(paths, filepath.Join(local, "draconis++", "plugins"))
		}
		if roaming != "" {
			paths = append(paths, filepath.Join(roaming, "draconis++", "plugins"))
		}
		if home != "" {
			paths = append(paths, filepath.Join(home, ".config", "draconis++", "plugins"))
		}
		return append(paths, filepath.Join(cwd, "plugins"))
	default:
		home, _ := os.UserHomeDir()
		paths := []string{
			"/usr/local/lib/draconis++/plugins",
			"/usr/lib/draconis++/plugins",
		}
		if home != "" {
			paths = append(paths, filepath.Join(home, ".local", "lib", "draconis++", "plugins"))
		}
		return append(paths, filepath.Join(cwd, "plugins"))
	}
}

func pluginExtension() string {
	switch runtime.GOOS {
	case "windows":
		return ".dll"
	case "darwin":
		return ".dylib"
	default:
		return ".so"
	}
}

// Initialize is idempotent: it adds default search paths, scans for
// plugins, and auto-loads the names listed in cfg. Failures in individual
// auto-loads are logged, never abort initialization.
func (m *Manager) Initialize(cfg Config) error {
	m.mu.Lock()
	if m.initialized {
		m.mu.Unlock()
		return nil
	}
	m.searchPaths = append(append([]string{}, cfg.ExtraSearchPaths...), defaultSearchPaths()...)
	m.useStaticRegistry = cfg.UseStaticRegistry
	m.initialized = true
	m.mu.Unlock()

	m.ScanForPlugins()

	for _, name := range cfg.AutoLoad {
		if err := m.LoadPlugin(name); err != nil {
			logger.Warn("auto-load of plugin %q failed: %v", name, err)
		}
	}
	return nil
}

// ScanForPlugins populates the discovered name->path map from the union of
// search paths. A name found in an earlier path wins over later ones.
func (m *Manager) ScanForPlugins() {
	ext := pluginExtension()

	found := map[string]string{}
	m.mu.RLock()
	paths := append([]string{}, m.searchPaths...)
	m.mu.RUnlock()

	for _, dir := range paths {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() || filepath.Ext(e.Name()) != ext {
				continue
			}
			name := e.Name()[:len(e.Name())-len(ext)]
			if _, exists := found[name]; !exists {
				found[name] = filepath.Join(dir, e.Name())
			}
		}
	}

	m.mu.Lock()
	m.discovered = found
	m.mu.Unlock()
}

// IsPluginLoaded reports whether name currently has a resident instance.
func (m *Manager) IsPluginLoaded(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.loaded[name]
	return ok
}

// GetLoadedPlugin returns the resident instance registered under name.
func (m *Manager) GetLoadedPlugin(name string) (*LoadedPlugin, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	lp, ok := m.loaded[name]
	return lp, ok
}

// LoadPlugin loads name into the manager, preferring the static registry
// when enabled, falling back to dynamic loading of the discovered path.
func (m *Manager) LoadPlugin(name string) error {
	m.mu.Lock()
	if _, ok := m.loaded[name]; ok {
		m.mu.Unlock()
		return nil
	}
	useStatic := m.useStaticRegistry
	path, discoveredOK := m.discovered[name]
	m.mu.Unlock()

	var (
		inst   plugin.Lifecycle
		handle any
		static bool
	)

	switch {
	case useStatic && staticplugin.IsStaticPlugin(name):
		var err error
		inst, err = staticplugin.CreateStaticPlugin(name)
		if err != nil {
			return err
		}
		static = true
	case discoveredOK:
		var err error
		inst, handle, err = loadDynamic(path)
		if err != nil {
			return err
		}
	default:
		return errs.New(errs.NotFound, "plugin %q was not discovered and has no static registration", name)
	}

	return m.finishLoad(name, path, inst, handle, static)
}

// LoadPluginFromPath dynamically loads the shared library at path and
// registers it under name, bypassing ScanForPlugins discovery.
func (m *Manager) LoadPluginFromPath(name, path string) error {
	m.mu.Lock()
	if _, ok := m.loaded[name]; ok {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	inst, handle, err := loadDynamic(path)
	if err != nil {
		return err
	}
	return m.finishLoad(name, path, inst, handle, false)
}

// finishLoad runs provider-id and format-name dedup, plugin initialization and typed-cache
// registration shared by LoadPlugin and LoadPluginFromPath.
func (m *Manager) finishLoad(name, path string, inst plugin.Lifecycle, handle any, static bool) error {
	meta := inst.GetMetadata()

	if !static {
		if meta.Type == plugin.InfoProvider {
			m.mu.RLock()
			_, collide := m.infoProviders[providerIDOf(inst)]
			m.mu.RUnlock()
			if collide {
				logger.Debug("skipping dynamic plugin %q: provider id %q already served by a loaded plugin", name, providerIDOf(inst))
				unloadHandle(handle)
				return nil
			}
		}
		if of, ok := inst.(plugin.OutputFormat); ok {
			m.mu.RLock()
			for _, format := range of.GetFormatNames() {
				if len(m.outputFormats[format]) > 0 {
					m.mu.RUnlock()
					logger.Debug("skipping dynamic plugin %q: format %q already served by a loaded plugin", name, format)
					unloadHandle(handle)
					return nil
				}
			}
			m.mu.RUnlock()
		}
	}

	ctxDir, err := cache.PluginCacheDir(name)
	if err != nil {
		unloadHandle(handle)
		return errs.Wrap(errs.IoError, err, "resolving cache dir for plugin %q", name)
	}
	configDir, dataDir := siblingDirs(ctxDir)
	pctx := plugin.Context{ConfigDir: configDir, CacheDir: ctxDir, DataDir: dataDir}
	pcache := plugin.NewCache(ctxDir)

	if err := inst.Initialize(pctx, pcache); err != nil {
		unloadHandle(handle)
		return errs.Wrap(errs.InternalError, err, "initializing plugin %q", name)
	}

	lp := &LoadedPlugin{Instance: inst, Handle: handle, Path: path, Metadata: *meta, IsInitialized: true}

	m.mu.Lock()
	m.loaded[name] = lp
	switch p := inst.(type) {
	case plugin.InfoProvider:
		m.infoProviders[p.GetProviderID()] = p
	case plugin.OutputFormat:
		for _, format := range p.GetFormatNames() {
			if m.outputFormats[format] == nil {
				m.outputFormats[format] = map[string]plugin.OutputFormat{}
			}
			m.outputFormats[format][name] = p
		}
	}
	m.mu.Unlock()

	logger.Info("loaded plugin %q (%s)", name, meta.Type)
	return nil
}

// UnloadPlugin shuts down and removes name from every typed cache.
func (m *Manager) UnloadPlugin(name string) error {
	m.mu.Lock()
	lp, ok := m.loaded[name]
	if !ok {
		m.mu.Unlock()
		return errs.New(errs.NotFound, "plugin %q is not loaded", name)
	}
	delete(m.loaded, name)
	if p, ok := lp.Instance.(plugin.InfoProvider); ok {
		delete(m.infoProviders, p.GetProviderID())
	}
	if p, ok := lp.Instance.(plugin.OutputFormat); ok {
		for _, format := range p.GetFormatNames() {
			delete(m.outputFormats[format], name)
		}
	}
	m.mu.Unlock()

	lp.Instance.Shutdown()

	if lp.Handle == nil {
		return staticplugin.DestroyStaticPlugin(name, lp.Instance)
	}
	return unloadHandle(lp.Handle)
}

// GetInfoProviderByName searches the info-provider cache by provider id.
func (m *Manager) GetInfoProviderByName(providerID string) (plugin.InfoProvider, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.infoProviders[providerID]
	return p, ok
}

// ListLoadedPlugins returns an alphabetised snapshot of loaded plugin names.
func (m *Manager) ListLoadedPlugins() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.loaded))
	for name := range m.loaded {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListDiscoveredPlugins returns an alphabetised snapshot of discovered
// plugin names.
func (m *Manager) ListDiscoveredPlugins() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.discovered))
	for name := range m.discovered {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Shutdown unloads every resident plugin. It is called by the singleton's
// owner at process teardown.
func (m *Manager) Shutdown() {
	for _, name := range m.ListLoadedPlugins() {
		if err := m.UnloadPlugin(name); err != nil {
			logger.Warn("error unloading plugin %q during shutdown: %v", name, err)
		}
	}
}

func providerIDOf(inst plugin.Lifecycle) string {
	if p, ok := inst.(plugin.InfoProvider); ok {
		return p.GetProviderID()
	}
	return ""
}

func siblingDirs(cacheDir string) (configDir, dataDir string) {
	root := filepath.Dir(filepath.Dir(cacheDir))
	name := filepath.Base(cacheDir)
	return filepath.Join(root, "config", name), filepath.Join(root, "data", name)
}

func unloadHandle(handle any) error {
	if handle == nil {
		return nil
	}
	destroyer, ok := handle.(interface{ Destroy() error })
	if !ok {
		return nil
	}
	return destroyer.Destroy()
}
