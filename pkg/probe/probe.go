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

// Package probe implements the uniform probe surface over host state. Each
// operation selects a cache key of the form "<platform>_<probe>" and
// routes to a platform-specific acquisition function chosen at compile
// time by build tag.
package probe

import (
	"fmt"
	"time"

	"github.com/draconis-go/draconis/internal/errs"
	"github.com/draconis-go/draconis/internal/log"
	"github.com/draconis-go/draconis/pkg/cache"
	"github.com/draconis-go/draconis/pkg/hostinfo"
)

var logger = log.NewLogger("probe")

func key(probe string) string {
	return fmt.Sprintf("%s_%s", platformName(), probe)
}

// GetMemInfo is never cached: memory usage changes continuously.
func GetMemInfo() (hostinfo.ResourceUsage, error) {
	return platformMemInfo()
}

// GetOperatingSystem returns OS identity, cached as hardware-stable.
func GetOperatingSystem(c *cache.Manager) (hostinfo.OSInfo, error) {
	return cache.GetOrSet(c, key("os_info"), &cache.NeverExpire, platformOSInfo)
}

// GetDesktopEnvironment returns the active desktop environment name.
func GetDesktopEnvironment(c *cache.Manager) (string, error) {
	return cache.GetOrSet(c, key("desktop_environment"), &cache.NeverExpire, platformDesktopEnvironment)
}

// GetWindowManager returns the active window manager name.
func GetWindowManager(c *cache.Manager) (string, error) {
	return cache.GetOrSet(c, key("wm"), &cache.NeverExpire, platformWindowManager)
}

// GetShell returns the user's interactive shell, a session-scoped fact.
func GetShell(c *cache.Manager) (string, error) {
	return cache.GetOrSet(c, key("shell"), &cache.Session, platformShell)
}

// GetHost returns a human-readable host/model string.
func GetHost(c *cache.Manager) (string, error) {
	return cache.GetOrSet(c, key("host"), &cache.NeverExpire, platformHost)
}

// GetCPUModel returns the CPU brand string.
func GetCPUModel(c *cache.Manager) (string, error) {
	return cache.GetOrSet(c, key("cpu_model"), &cache.NeverExpire, platformCPUModel)
}

// GetCPUCores returns physical/logical core counts.
func GetCPUCores(c *cache.Manager) (hostinfo.CPUCores, error) {
	return cache.GetOrSet(c, key("cpu_cores"), &cache.NeverExpire, func() (hostinfo.CPUCores, error) {
		cores, err := platformCPUCores()
		if err != nil {
			return cores, err
		}
		if cores.Physical == 0 || cores.Logical == 0 {
			return cores, errs.New(errs.InternalError, "reported zero cores (physical=%d logical=%d)", cores.Physical, cores.Logical)
		}
		if cores.Physical > cores.Logical {
			return cores, errs.New(errs.InternalError, "physical cores (%d) exceed logical (%d)", cores.Physical, cores.Logical)
		}
		return cores, nil
	})
}

// GetGPUModel returns the primary GPU's model name.
func GetGPUModel(c *cache.Manager) (string, error) {
	return cache.GetOrSet(c, key("gpu_model"), &cache.NeverExpire, platformGPUModel)
}

// GetKernelVersion returns the OS kernel release string.
func GetKernelVersion(c *cache.Manager) (string, error) {
	return cache.GetOrSet(c, key("kernel_version"), &cache.NeverExpire, platformKernelVersion)
}

// GetDiskUsage is never cached: disk usage changes continuously.
func GetDiskUsage(mountPoint string) (hostinfo.ResourceUsage, error) {
	return platformDiskUsage(mountPoint)
}

// GetDisks returns every mounted filesystem, short-TTL cached.
func GetDisks(c *cache.Manager) ([]hostinfo.DiskInfo, error) {
	return cache.GetOrSet(c, key("disks"), &cache.Short, platformDisks)
}

// GetSystemDisk returns the disk hosting the root/boot volume. Exactly one
// disk in GetDisks is marked IsSystem; this is an error if zero or more
// than one is.
func GetSystemDisk(c *cache.Manager) (hostinfo.DiskInfo, error) {
	return cache.GetOrSet(c, key("system_disk"), &cache.Short, func() (hostinfo.DiskInfo, error) {
		disks, err := GetDisks(c)
		if err != nil {
			return hostinfo.DiskInfo{}, err
		}
		var found *hostinfo.DiskInfo
		for i := range disks {
			if disks[i].IsSystem {
				if found != nil {
					return hostinfo.DiskInfo{}, errs.New(errs.InternalError, "more than one disk reported as system drive")
				}
				found = &disks[i]
			}
		}
		if found == nil {
			return hostinfo.DiskInfo{}, errs.New(errs.NotFound, "no system drive identified")
		}
		return *found, nil
	})
}

// GetOutputs returns every connected display, session-scoped cached.
func GetOutputs(c *cache.Manager) ([]hostinfo.DisplayInfo, error) {
	return cache.GetOrSet(c, key("outputs"), &cache.Session, func() ([]hostinfo.DisplayInfo, error) {
		outputs, err := platformOutputs()
		if err != nil {
			return nil, err
		}
		promotePrimary(outputs)
		return outputs, nil
	})
}

// promotePrimary ensures exactly one display is marked primary, promoting
// the first-enumerated output when the platform marked none.
func promotePrimary(outputs []hostinfo.DisplayInfo) {
	if len(outputs) == 0 {
		return
	}
	for _, o := range outputs {
		if o.IsPrimary {
			return
		}
	}
	outputs[0].IsPrimary = true
}

// GetPrimaryOutput returns the display marked primary by GetOutputs.
func GetPrimaryOutput(c *cache.Manager) (hostinfo.DisplayInfo, error) {
	return cache.GetOrSet(c, key("primary_output"), &cache.Session, func() (hostinfo.DisplayInfo, error) {
		outputs, err := GetOutputs(c)
		if err != nil {
			return hostinfo.DisplayInfo{}, err
		}
		for _, o := range outputs {
			if o.IsPrimary {
				return o, nil
			}
		}
		return hostinfo.DisplayInfo{}, errs.New(errs.NotFound, "no display output found")
	})
}

// GetNetworkInterfaces returns every network interface, short-TTL cached.
func GetNetworkInterfaces(c *cache.Manager) ([]hostinfo.NetworkInterface, error) {
	return cache.GetOrSet(c, key("network_interfaces"), &cache.Short, platformNetworkInterfaces)
}

// GetPrimaryNetworkInterface returns the interface carrying the default
// route, falling back to the first non-loopback up interface.
func GetPrimaryNetworkInterface(c *cache.Manager) (hostinfo.NetworkInterface, error) {
	return cache.GetOrSet(c, key("primary_network_interface"), &cache.Short, func() (hostinfo.NetworkInterface, error) {
		ifaces, err := GetNetworkInterfaces(c)
		if err != nil {
			return hostinfo.NetworkInterface{}, err
		}
		if name, ok := platformDefaultRouteInterface(); ok {
			for _, iface := range ifaces {
				if iface.Name == name {
					return iface, nil
				}
			}
		}
		for _, iface := range ifaces {
			if iface.IsUp && !iface.IsLoopback {
				return iface, nil
			}
		}
		return hostinfo.NetworkInterface{}, errs.New(errs.NotFound, "no usable network interface found")
	})
}

// GetBatteryInfo is never cached: charge state changes continuously.
func GetBatteryInfo() (hostinfo.Battery, error) {
	return platformBattery()
}

// GetUptime is never cached and takes no cache handle.
func GetUptime() (time.Duration, error) {
	return platformUptime()
}
