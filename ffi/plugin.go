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

package ffi

/*
#include <stdlib.h>
#include "draconis.h"
*/
import "C"

import (
	"github.com/draconis-go/draconis/internal/errs"
	"github.com/draconis-go/draconis/pkg/cache"
	"github.com/draconis-go/draconis/pkg/plugin"
	"github.com/draconis-go/draconis/pkg/pluginmanager"
)

// pluginHandle pairs the name a plugin was registered under with its live
// instance, so later calls don't need to re-resolve through the manager's
// name-keyed maps.
type pluginHandle struct {
	name string
	inst plugin.Lifecycle
}

func lookupPlugin(handle C.DracPlugin) (*pluginHandle, error) {
	v, ok := pluginArena.get(uint64(handle))
	if !ok {
		return nil, errs.New(errs.InvalidArgument, "unknown plugin handle")
	}
	ph, ok := v.(*pluginHandle)
	if !ok {
		return nil, errs.New(errs.InvalidArgument, "handle does not refer to a plugin")
	}
	return ph, nil
}

// DracLoadPlugin discovers and loads name through the process-wide plugin
// manager, writing a handle to out on success.
//
//export DracLoadPlugin
func DracLoadPlugin(cacheHandle C.DracCacheManager, name *C.char, out *C.DracPlugin) C.DracErrorCode {
	if _, err := lookupCache(cacheHandle); err != nil {
		return C.DracErrorCode(errorCode(err))
	}
	if name == nil || out == nil {
		return C.DracErrorCode(invalidArgument)
	}
	goName := C.GoString(name)

	m := pluginmanager.Instance()
	if err := m.LoadPlugin(goName); err != nil {
		return C.DracErrorCode(errorCode(err))
	}
	return C.DracErrorCode(registerLoadedPlugin(m, goName, out))
}

// DracLoadPluginFromPath loads the shared library at path directly,
// bypassing discovery, and registers it under name. A live cache manager
// handle is still required: it is the host's proof that the runtime has
// been set up before any plugin code can run.
//
//export DracLoadPluginFromPath
func DracLoadPluginFromPath(cacheHandle C.DracCacheManager, name, path *C.char, out *C.DracPlugin) C.DracErrorCode {
	if _, err := lookupCache(cacheHandle); err != nil {
		return C.DracErrorCode(errorCode(err))
	}
	if name == nil || path == nil || out == nil {
		return C.DracErrorCode(invalidArgument)
	}
	goName := C.GoString(name)

	m := pluginmanager.Instance()
	if err := m.LoadPluginFromPath(goName, C.GoString(path)); err != nil {
		return C.DracErrorCode(errorCode(err))
	}
	return C.DracErrorCode(registerLoadedPlugin(m, goName, out))
}

func registerLoadedPlugin(m *pluginmanager.Manager, name string, out *C.DracPlugin) int32 {
	var inst plugin.Lifecycle
	if lp, ok := m.GetLoadedPlugin(name); ok {
		inst = lp.Instance
	}
	*out = C.DracPlugin(pluginArena.put(&pluginHandle{name: name, inst: inst}))
	return success
}

// DracUnloadPlugin shuts the plugin down, removes it from the manager, and
// releases handle. handle is invalid afterward.
//
//export DracUnloadPlugin
func DracUnloadPlugin(handle C.DracPlugin) C.DracErrorCode {
	ph, err := lookupPlugin(handle)
	if err != nil {
		return C.DracErrorCode(errorCode(err))
	}
	pluginArena.remove(uint64(handle))
	if err := pluginmanager.Instance().UnloadPlugin(ph.name); err != nil {
		return C.DracErrorCode(errorCode(err))
	}
	return C.DracErrorCode(success)
}

// DracIsPluginLoaded reports whether handle still refers to a resident
// plugin.
//
//export DracIsPluginLoaded
func DracIsPluginLoaded(handle C.DracPlugin) C.int {
	ph, err := lookupPlugin(handle)
	if err != nil {
		return 0
	}
	if pluginmanager.Instance().IsPluginLoaded(ph.name) {
		return 1
	}
	return 0
}

func stringListOut(values []string, out *C.DracStringList) {
	n := len(values)
	if n == 0 {
		out.items, out.count = nil, 0
		return
	}
	arr, count := cStringArray(values)
	out.items = arr
	out.count = count
}

// DracListLoadedPlugins writes an alphabetised snapshot of loaded plugin
// names to out. The caller must release it with DracFreeStringList.
//
//export DracListLoadedPlugins
func DracListLoadedPlugins(out *C.DracStringList) C.DracErrorCode {
	if out == nil {
		return C.DracErrorCode(invalidArgument)
	}
	stringListOut(pluginmanager.Instance().ListLoadedPlugins(), out)
	return C.DracErrorCode(success)
}

// DracListDiscoveredPlugins writes an alphabetised snapshot of discovered
// plugin names to out. The caller must release it with DracFreeStringList.
//
//export DracListDiscoveredPlugins
func DracListDiscoveredPlugins(out *C.DracStringList) C.DracErrorCode {
	if out == nil {
		return C.DracErrorCode(invalidArgument)
	}
	stringListOut(pluginmanager.Instance().ListDiscoveredPlugins(), out)
	return C.DracErrorCode(success)
}

// DracFreeStringList releases a list returned by DracListLoadedPlugins or
// DracListDiscoveredPlugins.
//
//export DracFreeStringList
func DracFreeStringList(list *C.DracStringList) {
	if list == nil || list.items == nil {
		return
	}
	freeCStringArray(list.items, list.count)
	list.items, list.count = nil, 0
}

// DracPluginCollectData asks the info-provider plugin behind handle to
// refresh its backing data.
//
//export DracPluginCollectData
func DracPluginCollectData(handle C.DracPlugin, cacheHandle C.DracCacheManager) C.DracErrorCode {
	ph, err := lookupPlugin(handle)
	if err != nil {
		return C.DracErrorCode(errorCode(err))
	}
	provider, ok := ph.inst.(plugin.InfoProvider)
	if !ok {
		return C.DracErrorCode(int32(errs.NotSupported))
	}
	_, cacheErr := lookupCache(cacheHandle)
	if cacheErr != nil {
		return C.DracErrorCode(errorCode(cacheErr))
	}
	// CollectData takes the plugin's own scoped cache, not the host's; the
	// cache handle here only validates the caller passed a live manager.
	pc, err := pluginCacheFor(ph.name)
	if err != nil {
		return C.DracErrorCode(errorCode(err))
	}
	if err := provider.CollectData(pc); err != nil {
		return C.DracErrorCode(errorCode(err))
	}
	return C.DracErrorCode(success)
}

func pluginCacheFor(name string) (*plugin.Cache, error) {
	dir, err := cache.PluginCacheDir(name)
	if err != nil {
		return nil, errs.Wrap(errs.IoError, err, "resolving cache dir for plugin %q", name)
	}
	return plugin.NewCache(dir), nil
}

// DracPluginToJSON writes the info-provider plugin's collected data as
// JSON to out.
//
//export DracPluginToJSON
func DracPluginToJSON(handle C.DracPlugin, out **C.char) C.DracErrorCode {
	ph, err := lookupPlugin(handle)
	if err != nil {
		return C.DracErrorCode(errorCode(err))
	}
	provider, ok := ph.inst.(plugin.InfoProvider)
	if !ok {
		return C.DracErrorCode(int32(errs.NotSupported))
	}
	v, err := provider.ToJSON()
	if err != nil {
		return C.DracErrorCode(errorCode(err))
	}
	cStringOut(v, out)
	return C.DracErrorCode(success)
}

// DracPluginGetDisplayValue writes the info-provider plugin's formatted
// display string to out.
//
//export DracPluginGetDisplayValue
func DracPluginGetDisplayValue(handle C.DracPlugin, out **C.char) C.DracErrorCode {
	ph, err := lookupPlugin(handle)
	if err != nil {
		return C.DracErrorCode(errorCode(err))
	}
	provider, ok := ph.inst.(plugin.InfoProvider)
	if !ok {
		return C.DracErrorCode(int32(errs.NotSupported))
	}
	v, err := provider.GetDisplayValue()
	if err != nil {
		return C.DracErrorCode(errorCode(err))
	}
	cStringOut(v, out)
	return C.DracErrorCode(success)
}
