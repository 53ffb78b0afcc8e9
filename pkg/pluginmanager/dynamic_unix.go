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

//go:build !windows

package pluginmanager

import (
	"plugin"

	"github.com/draconis-go/draconis/internal/errs"
	draconisplugin "github.com/draconis-go/draconis/pkg/plugin"
)

// loadDynamic opens a shared object built with -buildmode=plugin, resolves
// CreatePlugin, and optionally SetPluginLogLevel for the version-agnostic
// log-level propagation protocol.
func loadDynamic(path string) (draconisplugin.Lifecycle, any, error) {
	lib, err := plugin.Open(path)
	if err != nil {
		return nil, nil, errs.Wrap(errs.ApiUnavailable, err, "loading plugin library %s", path)
	}

	createSym, err := lib.Lookup("CreatePlugin")
	if err != nil {
		return nil, nil, errs.Wrap(errs.ApiUnavailable, err, "plugin %s does not export CreatePlugin", path)
	}
	create, ok := createSym.(func() draconisplugin.Lifecycle)
	if !ok {
		return nil, nil, errs.New(errs.ApiUnavailable, "plugin %s's CreatePlugin has an incompatible signature", path)
	}

	if levelSym, err := lib.Lookup("SetPluginLogLevel"); err == nil {
		if setLevel, ok := levelSym.(func(*int32)); ok {
			setLevel(&hostLogLevel)
		}
	}

	return create(), lib, nil
}
