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

//go:build haiku

package probe

import (
	"os"
	"runtime"
	"time"

	"golang.org/x/sys/unix"

	"github.com/draconis-go/draconis/internal/errs"
	"github.com/draconis-go/draconis/pkg/hostinfo"
)

func platformName() string { return "haiku" }

func platformMemInfo() (hostinfo.ResourceUsage, error) {
	var si unix.Sysinfo_t
	if err := unix.Sysinfo(&si); err != nil {
		return hostinfo.ResourceUsage{}, errs.Wrap(errs.IoError, err, "get_system_info")
	}
	total := uint64(si.Totalram) * uint64(si.Unit)
	used := (uint64(si.Totalram) - uint64(si.Freeram)) * uint64(si.Unit)
	return hostinfo.ResourceUsage{Used: used, Total: total}, nil
}

func platformOSInfo() (hostinfo.OSInfo, error) {
	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		return hostinfo.OSInfo{}, errs.Wrap(errs.IoError, err, "uname")
	}
	release := cString(u.Release[:])
	return hostinfo.OSInfo{
		Name:         "Haiku",
		Version:      release,
		Codename:     "haiku",
		Architecture: runtime.GOARCH,
	}, nil
}

func platformDesktopEnvironment() (string, error) {
	return "Haiku Desktop Environment", nil
}

func platformWindowManager() (string, error) {
	return "app_server", nil
}

func platformShell() (string, error) {
	shell := os.Getenv("SHELL")
	if shell == "" {
		return "", errs.New(errs.NotFound, "$SHELL is not set")
	}
	return friendlyShellName(shell), nil
}

func platformHost() (string, error) {
	name, err := os.Hostname()
	if err != nil {
		return "Unknown", nil
	}
	return name, nil
}

func platformCPUModel() (string, error) {
	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		return "", errs.Wrap(errs.IoError, err, "uname")
	}
	if machine := cString(u.Machine[:]); machine != "" {
		return machine, nil
	}
	return "", errs.New(errs.NotFound, "uname did not report a machine string")
}

func platformCPUCores() (hostinfo.CPUCores, error) {
	logical := runtime.NumCPU()
	if logical <= 0 {
		return hostinfo.CPUCores{}, errs.New(errs.InternalError, "runtime.NumCPU reported zero")
	}
	// get_system_info exposes a cpu_count the kernel presents as a flat
	// count; Haiku does not expose physical/logical SMT topology through
	// a syscall this module calls, so both counts are reported equal.
	return hostinfo.CPUCores{Physical: uint32(logical), Logical: uint32(logical)}, nil
}

func platformGPUModel() (string, error) {
	return "", errs.New(errs.UnavailableFeature, "accelerant GPU query requires the app_server protocol")
}

func platformKernelVersion() (string, error) {
	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		return "", errs.Wrap(errs.IoError, err, "uname")
	}
	return cString(u.Release[:]), nil
}

func platformDiskUsage(mountPoint string) (hostinfo.ResourceUsage, error) {
	if mountPoint == "" {
		mountPoint = "/boot"
	}
	var st unix.Statfs_t
	if err := unix.Statfs(mountPoint, &st); err != nil {
		return hostinfo.ResourceUsage{}, errs.Wrap(errs.IoError, err, "statfs %s", mountPoint)
	}
	blockSize := uint64(st.Bsize)
	total := st.Blocks * blockSize
	free := st.Bfree * blockSize
	return hostinfo.ResourceUsage{Used: total - free, Total: total}, nil
}

func platformDisks() ([]hostinfo.DiskInfo, error) {
	usage, err := platformDiskUsage("/boot")
	if err != nil {
		return nil, err
	}
	return []hostinfo.DiskInfo{{
		Device:     "/dev/disk/boot",
		MountPoint: "/boot",
		FsType:     "bfs",
		Usage:      usage,
		IsSystem:   true,
	}}, nil
}

func platformOutputs() ([]hostinfo.DisplayInfo, error) {
	return nil, errs.New(errs.UnavailableFeature, "display enumeration requires the app_server protocol")
}

func platformNetworkInterfaces() ([]hostinfo.NetworkInterface, error) {
	return nil, errs.New(errs.UnavailableFeature, "network interface enumeration requires a Haiku-specific socket ioctl")
}

func platformDefaultRouteInterface() (string, bool) {
	return "", false
}

func platformBattery() (hostinfo.Battery, error) {
	return hostinfo.Battery{}, errs.New(errs.UnavailableFeature, "power_management query requires a Haiku-specific driver ioctl")
}

func platformUptime() (time.Duration, error) {
	var si unix.Sysinfo_t
	if err := unix.Sysinfo(&si); err != nil {
		return 0, errs.Wrap(errs.IoError, err, "get_system_info uptime")
	}
	return time.Duration(si.Uptime) * time.Second, nil
}
