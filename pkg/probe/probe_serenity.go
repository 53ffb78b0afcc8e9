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

// SerenityOS is not a GOOS the upstream toolchain recognizes; this file
// only participates in a build carrying a custom "serenity" build tag
// from a patched toolchain, and is otherwise dead code by construction.
//go:build serenity

package probe

import (
	"encoding/json"
	"fmt"
	"os"
	"os/user"
	"time"

	"github.com/draconis-go/draconis/internal/errs"
	"github.com/draconis-go/draconis/pkg/hostinfo"
)

func platformName() string { return "serenity" }

type memstat struct {
	PhysicalPages     uint64 `json:"physical_pages"`
	PhysicalPagesUsed uint64 `json:"physical_pages_used"`
	PageSize          uint64 `json:"page_size"`
}

func platformMemInfo() (hostinfo.ResourceUsage, error) {
	raw, err := os.ReadFile("/sys/kernel/memstat")
	if err != nil {
		return hostinfo.ResourceUsage{}, errs.Wrap(errs.IoError, err, "reading /sys/kernel/memstat")
	}
	var m memstat
	if err := json.Unmarshal(raw, &m); err != nil {
		return hostinfo.ResourceUsage{}, errs.Wrap(errs.ParseError, err, "parsing /sys/kernel/memstat")
	}
	pageSize := m.PageSize
	if pageSize == 0 {
		pageSize = 4096
	}
	return hostinfo.ResourceUsage{
		Used:  m.PhysicalPagesUsed * pageSize,
		Total: m.PhysicalPages * pageSize,
	}, nil
}

func platformOSInfo() (hostinfo.OSInfo, error) {
	release, err := os.ReadFile("/sys/kernel/uname_release")
	version := "unknown"
	if err == nil {
		version = string(release)
	}
	return hostinfo.OSInfo{
		Name:         "SerenityOS",
		Version:      version,
		Codename:     "serenity",
		Architecture: "x86_64",
	}, nil
}

func platformDesktopEnvironment() (string, error) {
	return "SerenityOS Desktop", nil
}

func platformWindowManager() (string, error) {
	return "WindowManager", nil
}

func platformShell() (string, error) {
	if shell := os.Getenv("SHELL"); shell != "" {
		return friendlyShellName(shell), nil
	}
	if _, err := user.Current(); err != nil {
		return "", errs.Wrap(errs.NotFound, err, "getpwuid lookup")
	}
	return "Shell", nil
}

func platformHost() (string, error) {
	name, err := os.Hostname()
	if err != nil {
		return "Unknown", nil
	}
	return name, nil
}

func platformCPUModel() (string, error) {
	return "", errs.New(errs.UnavailableFeature, "CPUID brand string reporting is not wired for this build")
}

func platformCPUCores() (hostinfo.CPUCores, error) {
	return hostinfo.CPUCores{}, errs.New(errs.UnavailableFeature, "/proc/cpuinfo topology parsing is not wired for this build")
}

func platformGPUModel() (string, error) {
	return "", errs.New(errs.UnavailableFeature, "gfx device enumeration is not wired for this build")
}

func platformKernelVersion() (string, error) {
	release, err := os.ReadFile("/sys/kernel/uname_release")
	if err != nil {
		return "", errs.Wrap(errs.IoError, err, "reading /sys/kernel/uname_release")
	}
	return string(release), nil
}

func platformDiskUsage(_ string) (hostinfo.ResourceUsage, error) {
	return hostinfo.ResourceUsage{}, errs.New(errs.UnavailableFeature, "statvfs is not wired for this build")
}

func platformDisks() ([]hostinfo.DiskInfo, error) {
	return nil, errs.New(errs.UnavailableFeature, "/proc/df parsing is not wired for this build")
}

func platformOutputs() ([]hostinfo.DisplayInfo, error) {
	return nil, errs.New(errs.UnavailableFeature, "WindowServer display enumeration is not wired for this build")
}

func platformNetworkInterfaces() ([]hostinfo.NetworkInterface, error) {
	return nil, errs.New(errs.UnavailableFeature, "/proc/net/adapters parsing is not wired for this build")
}

func platformDefaultRouteInterface() (string, bool) {
	return "", false
}

func platformBattery() (hostinfo.Battery, error) {
	return hostinfo.Battery{}, errs.New(errs.UnavailableFeature, "power state reporting is not wired for this build")
}

func platformUptime() (time.Duration, error) {
	raw, err := os.ReadFile("/proc/uptime")
	if err != nil {
		return 0, errs.Wrap(errs.IoError, err, "reading /proc/uptime")
	}
	var seconds float64
	if _, err := fmt.Sscanf(string(raw), "%f", &seconds); err != nil {
		return 0, errs.Wrap(errs.ParseError, err, "parsing /proc/uptime")
	}
	return time.Duration(seconds * float64(time.Second)), nil
}
