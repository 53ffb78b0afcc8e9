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

//go:build freebsd || netbsd || dragonfly

package probe

import (
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/klauspost/cpuid/v2"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/net"
	"golang.org/x/sys/unix"

	"github.com/draconis-go/draconis/internal/errs"
	"github.com/draconis-go/draconis/pkg/hostinfo"
)

func platformName() string { return runtime.GOOS }

func platformMemInfo() (hostinfo.ResourceUsage, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return hostinfo.ResourceUsage{}, errs.Wrap(errs.IoError, err, "sysctl hw.physmem/vm.stats")
	}
	return hostinfo.ResourceUsage{Used: vm.Used, Total: vm.Total}, nil
}

func platformOSInfo() (hostinfo.OSInfo, error) {
	release, err := unix.Sysctl("kern.osrelease")
	if err != nil {
		return hostinfo.OSInfo{}, errs.Wrap(errs.IoError, err, "sysctl kern.osrelease")
	}
	ostype, err := unix.Sysctl("kern.ostype")
	if err != nil {
		ostype = runtime.GOOS
	}
	return hostinfo.OSInfo{
		Name:         ostype,
		Version:      release,
		Codename:     strings.ToLower(ostype),
		Architecture: runtime.GOARCH,
	}, nil
}

func platformDesktopEnvironment() (string, error) {
	if v := os.Getenv("XDG_CURRENT_DESKTOP"); v != "" {
		if i := strings.IndexByte(v, ':'); i >= 0 {
			v = v[:i]
		}
		return v, nil
	}
	return "", errs.New(errs.NotFound, "no desktop environment indicator set")
}

func platformWindowManager() (string, error) {
	if os.Getenv("WAYLAND_DISPLAY") != "" || os.Getenv("DISPLAY") != "" {
		return "", errs.New(errs.UnavailableFeature, "window manager identification requires a protocol round trip")
	}
	return "", errs.New(errs.NotSupported, "no graphical session detected")
}

func platformShell() (string, error) {
	shell := os.Getenv("SHELL")
	if shell == "" {
		return "", errs.New(errs.NotFound, "$SHELL is not set")
	}
	return friendlyShellName(shell), nil
}

func platformHost() (string, error) {
	for _, name := range []string{"hw.vendor", "hw.product"} {
		if v, err := unix.Sysctl(name); err == nil && v != "" {
			return v, nil
		}
	}
	return "Unknown", nil
}

func platformCPUModel() (string, error) {
	if cpuid.CPU.BrandName != "" {
		return cpuid.CPU.BrandName, nil
	}
	if v, err := unix.Sysctl("hw.model"); err == nil {
		return v, nil
	}
	return "", errs.New(errs.NotFound, "CPUID brand string and hw.model both unavailable")
}

func platformCPUCores() (hostinfo.CPUCores, error) {
	logical, err := unix.SysctlUint32("hw.ncpu")
	if err != nil || logical == 0 {
		return hostinfo.CPUCores{}, errs.New(errs.IoError, "reading hw.ncpu")
	}
	physical := uint32(cpuid.CPU.PhysicalCores)
	if physical == 0 || physical > logical {
		physical = logical
	}
	return hostinfo.CPUCores{Physical: physical, Logical: logical}, nil
}

func platformGPUModel() (string, error) {
	// BSD exposes PCI device info via pciconf(8), not a stable sysctl MIB
	// that golang.org/x/sys/unix wraps; left unavailable rather than
	// shelling out to a CLI tool at probe time.
	return "", errs.New(errs.UnavailableFeature, "PCI device enumeration requires pciconf")
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
		return hostinfo.ResourceUsage{}, errs.Wrap(errs.IoError, err, "statfs %s", mountPoint)
	}
	return hostinfo.ResourceUsage{Used: u.Used, Total: u.Total}, nil
}

func platformDisks() ([]hostinfo.DiskInfo, error) {
	parts, err := disk.Partitions(false)
	if err != nil {
		return nil, errs.Wrap(errs.IoError, err, "enumerating mounted filesystems")
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
		return nil, errs.New(errs.NotFound, "no mounted filesystems found")
	}
	return disks, nil
}

func platformOutputs() ([]hostinfo.DisplayInfo, error) {
	return nil, errs.New(errs.UnavailableFeature, "display enumeration requires a Wayland or X11 round trip")
}

func platformNetworkInterfaces() ([]hostinfo.NetworkInterface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, errs.Wrap(errs.IoError, err, "enumerating network interfaces")
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

func platformDefaultRouteInterface() (string, bool) {
	// Resolving this needs a PF_ROUTE socket read, which golang.org/x/sys/unix
	// does not parse for BSD; GetPrimaryNetworkInterface falls back to the
	// first up, non-loopback interface.
	return "", false
}

func platformBattery() (hostinfo.Battery, error) {
	lifePercent, err := unix.SysctlUint32("hw.acpi.battery.life")
	if err != nil {
		return hostinfo.Battery{}, errs.Wrap(errs.NotFound, err, "sysctl hw.acpi.battery.life")
	}
	state, _ := unix.SysctlUint32("hw.acpi.battery.state")
	status := hostinfo.BatteryUnknown
	switch state {
	case 0:
		status = hostinfo.BatteryFull
	case 1:
		status = hostinfo.BatteryDischarging
	case 2:
		status = hostinfo.BatteryCharging
	}
	return hostinfo.Battery{Percentage: hostinfo.BatteryPercent(int(lifePercent)), Status: status}, nil
}

func platformUptime() (time.Duration, error) {
	boot, err := unix.SysctlTimeval("kern.boottime")
	if err != nil {
		return 0, errs.Wrap(errs.IoError, err, "sysctl kern.boottime")
	}
	bootTime := time.Unix(int64(boot.Sec), int64(boot.Usec)*1000)
	return time.Since(bootTime), nil
}
