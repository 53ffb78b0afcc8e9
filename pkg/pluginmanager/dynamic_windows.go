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

package pluginmanager

import (
	"github.com/draconis-go/draconis/internal/errs"
	draconisplugin "github.com/draconis-go/draconis/pkg/plugin"
)

// loadDynamic is not supported on Windows: the standard library's plugin
// package only targets ELF/Mach-O hosts. Windows deployments must register
// plugins through the static registry instead.
func loadDynamic(path string) (draconisplugin.Lifecycle, any, error) {
	return nil, nil, errs.New(errs.NotSupported, "dynamic plugin loading is not available on windows; register %s statically", path)
}
