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

// Package staticplugin holds the name -> {create, destroy} table used by
// plugins compiled directly into the host binary, for deployments that
// cannot rely on dynamic loading (e.g. statically linked or sandboxed
// builds).
package staticplugin

import (
	"sort"
	"sync"

	"github.com/draconis-go/draconis/internal/errs"
	"github.com/draconis-go/draconis/internal/log"
	"github.com/draconis-go/draconis/pkg/plugin"
)

var logger = log.NewLogger("staticplugin")

// Factory constructs a plugin instance. Destroy releases one previously
// returned by Factory.
type Factory func() plugin.Lifecycle
type Destroy func(plugin.Lifecycle)

type registration struct {
	factory Factory
	destroy Destroy
}

var (
	mu          sync.RWMutex
	table       = map[string]registration{}
	registerFns []func()
	initOnce    sync.Once
	initCount   int
)

// Register adds a factory/destroy pair under name, called by each plugin's
// generated DracRegisterPlugin_<Name> entry point.
func Register(name string, factory Factory, destroy Destroy) {
	mu.Lock()
	defer mu.Unlock()
	table[name] = registration{factory: factory, destroy: destroy}
}

// AddRegisterFunc queues a registration function to be invoked exactly
// once by InitStaticPlugins. Each statically linked plugin package calls
// this from its own init().
func AddRegisterFunc(fn func()) {
	mu.Lock()
	registerFns = append(registerFns, fn)
	mu.Unlock()
}

// InitStaticPlugins runs every queued registration function exactly once
// (subsequent calls are no-ops) and returns the number of plugins
// registered as a result.
func InitStaticPlugins() int {
	initOnce.Do(func() {
		mu.RLock()
		fns := append([]func(){}, registerFns...)
		mu.RUnlock()

		before := len(table)
		for _, fn := range fns {
			fn()
		}
		mu.RLock()
		initCount = len(table) - before
		mu.RUnlock()
		logger.Info("registered %d static plugins", initCount)
	})
	return initCount
}

// IsStaticPlugin reports whether name is registered.
func IsStaticPlugin(name string) bool {
	mu.RLock()
	defer mu.RUnlock()
	_, ok := table[name]
	return ok
}

// CreateStaticPlugin constructs a registered plugin by name.
func CreateStaticPlugin(name string) (plugin.Lifecycle, error) {
	mu.RLock()
	reg, ok := table[name]
	mu.RUnlock()
	if !ok {
		return nil, errs.New(errs.NotFound, "no static plugin registered as %q", name)
	}
	return reg.factory(), nil
}

// DestroyStaticPlugin releases a plugin previously constructed by
// CreateStaticPlugin.
func DestroyStaticPlugin(name string, instance plugin.Lifecycle) error {
	mu.RLock()
	reg, ok := table[name]
	mu.RUnlock()
	if !ok {
		return errs.New(errs.NotFound, "no static plugin registered as %q", name)
	}
	if reg.destroy != nil {
		reg.destroy(instance)
	}
	return nil
}

// Names returns the alphabetised list of registered plugin names.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// reset clears global registry state; used only by tests.
func reset() {
	mu.Lock()
	table = map[string]registration{}
	registerFns = nil
	initOnce = sync.Once{}
	initCount = 0
	mu.Unlock()
}

// resetForTest exposes reset to the package's own test files only; kept as
// a thin wrapper so the zero-value sync.Once reassignment stays in one
// place.
var resetForTest = reset
