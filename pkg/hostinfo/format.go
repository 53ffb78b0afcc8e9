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

package hostinfo

import (
	"fmt"
	"time"
)

var byteUnits = []string{"B", "KiB", "MiB", "GiB", "TiB", "PiB"}

// FormatBytes renders n using binary (1024-based) unit suffixes, e.g.
// "1.5 GiB". Carried over from the original renderer's byte-unit table,
// dropped from the distilled spec but still needed by DiskInfo/ResourceUsage
// consumers.
func FormatBytes(n uint64) string {
	f := float64(n)
	unit := 0
	for f >= 1024 && unit < len(byteUnits)-1 {
		f /= 1024
		unit++
	}
	if unit == 0 {
		return fmt.Sprintf("%d %s", n, byteUnits[unit])
	}
	return fmt.Sprintf("%.1f %s", f, byteUnits[unit])
}

// FormatDuration renders d as a compact "1d 2h 3m 4s" style string, omitting
// leading zero components.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return "0s"
	}

	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute
	seconds := d / time.Second

	out := ""
	if days > 0 {
		out += fmt.Sprintf("%dd ", days)
	}
	if hours > 0 || out != "" {
		out += fmt.Sprintf("%dh ", hours)
	}
	if minutes > 0 || out != "" {
		out += fmt.Sprintf("%dm ", minutes)
	}
	out += fmt.Sprintf("%ds", seconds)
	return out
}
