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

//go:build darwin

package probe

import (
	"os"
	"strings"
	"time"

	"github.com/klauspost/cpuid/v2"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/net"
	"golang.org/x/sys/unix"
	"howett.net/plist"

	"github.com/draconis-go/draconis/internal/errs"
	"github.com/draconis-go/draconis/pkg/hostinfo"
)

func platformName() string { return "macos" }

func platformMemInfo() (hostinfo.ResourceUsage, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return hostinfo.ResourceUsage{}, errs.Wrap(errs.IoError, err, "host_statistics64")
	}
	return hostinfo.ResourceUsage{Used: vm.Used, Total: vm.Total}, nil
}

type systemVersionPlist struct {
	ProductName          string `plist:"ProductName"`
	ProductVersion       string `plist:"ProductVersion"`
	ProductBuildVersion  string `plist:"ProductBuildVersion"`
}

func platformOSInfo() (hostinfo.OSInfo, error) {
	raw, err := os.ReadFile("/System/Library/CoreServices/SystemVersion.plist")
	if err != nil {
		return hostinfo.OSInfo{}, errs.Wrap(errs.NotFound, err, "reading SystemVersion.plist")
	}
	var sv systemVersionPlist
	if _, err := plist.Unmarshal(raw, &sv); err != nil {
		return hostinfo.OSInfo{}, errs.Wrap(errs.ParseError, err, "parsing SystemVersion.plist")
	}
	return hostinfo.OSInfo{
		Name:         sv.ProductName,
		Version:      sv.ProductVersion,
		Codename:     "macos",
		Architecture: runtimeArch(),
	}, nil
}

func runtimeArch() string {
	if cpuid.CPU.BrandName != "" && strings.Contains(strings.ToLower(cpuid.CPU.BrandName), "apple") {
		return "arm64"
	}
	return "x86_64"
}

func platformDesktopEnvironment() (string, error) { return "Aqua", nil }

// platformWindowManager should walk sysctl(KERN_PROC_ALL) for a known
// tiling WM process name; golang.org/x/sys/unix does not expose that
// sysctl MIB directly, so this reports the platform default per spec
// rather than fabricating a process scan.
func platformWindowManager() (string, error) {
	return "Quartz", nil
}

func platformShell() (string, error) {
	shell := os.Getenv("SHELL")
	if shell == "" {
		return "", errs.New(errs.NotFound, "$SHELL is not set")
	}
	return friendlyShellName(shell), nil
}

var appleModelNames = map[string]string{
	"MacBookPro18,1": "MacBook Pro (16-inch, 2021)",
	"MacBookPro18,2": "MacBook Pro (16-inch, 2021)",
	"MacBookAir10,1": "MacBook Air (M1, 2020)",
	"Macmini9,1":     "Mac mini (M1, 2020)",
	"iMac21,1":       "iMac (24-inch, M1, 2021)",
}

func platformHost() (string, error) {
	model, err := unix.Sysctl("hw.model")
	if err != nil {
		return "", errs.Wrap(errs.IoError, err, "sysctlbyname hw.model")
	}
	if name, ok := appleModelNames[model]; ok {
		return name, nil
	}
	return "", errs.New(errs.UnavailableFeature, "unknown Apple model identifier %q", model)
}

func platformCPUModel() (string, error) {
	if cpuid.CPU.BrandName != "" {
		return cpuid.CPU.BrandName, nil
	}
	return "", errs.New(errs.NotFound, "machdep.cpu.brand_string unavailable")
}

func platformCPUCores() (hostinfo.CPUCores, error) {
	physical, err1 := unix.SysctlUint32("hw.physicalcpu")
	logical, err2 := unix.SysctlUint32("hw.logicalcpu")
	if err1 != nil || err2 != nil {
		return hostinfo.CPUCores{}, errs.New(errs.IoError, "reading hw.physicalcpu/hw.logicalcpu")
	}
	return hostinfo.CPUCores{Physical: physical, Logical: logical}, nil
}

func platformGPUModel() (string, error) {
	// Metal's MTLCreateSystemDefaultDevice requires an Objective-C bridge
	// this pure-Go module does not implement; reported as unavailable.
	return "", errs.New(errs.UnavailableFeature, "Metal device query requires an Objective-C bridge")
}

func platformKernelVersion() (string, error) {
	release, err := unix.Sysctl("kern.osrelease")
	if err != nil {
		return "", errs.Wrap(errs.IoError, err, "sysctl kern.osrelease")
	}
	return release, nil
}

func platformDiskUsage(mountPoint string) (hostinfo.ResourceUsage, error) {
	if mountPoint == "" {
		mountPoint = "/"
	}
	u, err := disk.Usage(mountPoint)
	if err != nil {
		return hostinfo.ResourceUsage{}, errs.Wrap(errs.IoError, err, "statvfs %s", mountPoint)
	}
	return hostinfo.ResourceUsage{Used: u.Used, Total: u.Total}, nil
}

func platformDisks() ([]hostinfo.DiskInfo, error) {
	parts, err := disk.Partitions(false)
	if err != nil {
		return nil, errs.Wrap(errs.IoError, err, "enumerating mounted volumes")
	}
	var disks []hostinfo.DiskInfo
	for _, p := range parts {
		usage, err := platformDiskUsage(p.Mountpoint)
		if err != nil {
			continue
		}
		disks = append(disks, hostinfo.DiskInfo{
			Device:     p.Device,
			MountPoint: p.Mountpoint,
			FsType:     p.Fstype,
			Usage:      usage,
			IsSystem:   p.Mountpoint == "/",
		})
	}
	if len(disks) == 0 {
		return nil, errs.New(errs.NotFound, "no mounted volumes found")
	}
	return disks, nil
}

func platformOutputs() ([]hostinfo.DisplayInfo, error) {
	return nil, errs.New(errs.UnavailableFeature, "CoreGraphics display enumeration requires a cgo bridge")
}

func platformNetworkInterfaces() ([]hostinfo.NetworkInterface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, errs.Wrap(errs.IoError, err, "getifaddrs")
	}
	out := make([]hostinfo.NetworkInterface, 0, len(ifaces))
	for _, iface := range ifaces {
		ni := hostinfo.NetworkInterface{Name: iface.Name, MACAddress: iface.HardwareAddr}
		for _, flag := range iface.Flags {
			switch flag {
			case "up":
				ni.IsUp = true
			case "loopback":
				ni.IsLoopback = true
			}
		}
		for _, addr := range iface.Addrs {
			ip := strings.SplitN(addr.Addr, "/", 2)[0]
			if strings.Contains(ip, ":") {
				ni.IPv6Addrs = append(ni.IPv6Addrs, ip)
			} else {
				ni.IPv4Addrs = append(ni.IPv4Addrs, ip)
			}
		}
		out = append(out, ni)
	}
	return out, nil
}

// platformDefaultRouteInterface should resolve the default route via
// sysctl(CTL_NET, PF_ROUTE, ...); unexposed by x/sys/unix on darwin, so
// GetPrimaryNetworkInterface falls back to the first up, non-loopback
// interface.
func platformDefaultRouteInterface() (string, bool) {
	return "", false
}

func platformBattery() (hostinfo.Battery, error) {
	return hostinfo.Battery{}, errs.New(errs.UnavailableFeature, "IOPowerSources query requires a cgo bridge")
}

func platformUptime() (time.Duration, error) {
	boot, err := unix.SysctlTimeval("kern.boottime")
	if err != nil {
		return 0, errs.Wrap(errs.IoError, err, "sysctl kern.boottime")
	}
	bootTime := time.Unix(boot.Sec, int64(boot.Usec)*1000)
	return time.Since(bootTime), nil
}
