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

package probe

import "path/filepath"

// posixShellNames maps a shell executable's basename to a friendly display
// name, shared by the Linux, BSD and macOS probes.
var posixShellNames = map[string]string{
	"bash": "Bash",
	"zsh":  "Zsh",
	"ksh":  "KornShell",
	"fish": "Fish",
	"tcsh": "TCsh",
	"csh":  "Csh",
	"sh":   "sh",
	"nu":   "Nushell",
}

func friendlyShellName(path string) string {
	base := filepath.Base(path)
	if name, ok := posixShellNames[base]; ok {
		return name
	}
	return base
}

// gpuVendorNames is the fallback vendor-only table used when a richer PCI
// ID database is unavailable.
var gpuVendorNames = map[uint16]string{
	0x1002: "AMD",
	0x10de: "NVIDIA",
	0x8086: "Intel",
}
