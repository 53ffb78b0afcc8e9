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

//go:build linux

package probe

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/cpuid/v2"
	"github.com/shirou/gopsutil/v4/net"
	"golang.org/x/sys/unix"

	"github.com/draconis-go/draconis/internal/errs"
	"github.com/draconis-go/draconis/pkg/hostinfo"
)

func platformName() string { return "linux" }

func platformMemInfo() (hostinfo.ResourceUsage, error) {
	var si unix.Sysinfo_t
	if err := unix.Sysinfo(&si); err != nil {
		return hostinfo.ResourceUsage{}, errs.Wrap(errs.IoError, err, "sysinfo")
	}
	unitSize := uint64(si.Unit)
	if unitSize == 0 {
		unitSize = 1
	}
	total := uint64(si.Totalram) * unitSize
	used := (uint64(si.Totalram) - uint64(si.Freeram) - uint64(si.Bufferram)) * unitSize
	return hostinfo.ResourceUsage{Used: used, Total: total}, nil
}

func platformOSInfo() (hostinfo.OSInfo, error) {
	fields, err := parseOSRelease("/etc/os-release")
	if err != nil {
		return hostinfo.OSInfo{}, err
	}

	name := fields["PRETTY_NAME"]
	if name == "" {
		name = fields["NAME"]
	}
	id := strings.ToLower(fields["ID"])
	version := fields["VERSION_ID"]
	if version == "" {
		version = fields["VERSION"]
	}

	if id == "" {
		return hostinfo.OSInfo{}, errs.New(errs.ParseError, "no ID field in /etc/os-release")
	}

	return hostinfo.OSInfo{Name: name, Version: version, Codename: id, Architecture: unameMachine()}, nil
}

func unameMachine() string {
	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		return ""
	}
	return cString(u.Machine[:])
}

func cString(b []byte) string {
	n := strings.IndexByte(string(b), 0)
	if n < 0 {
		n = len(b)
	}
	return string(b[:n])
}

func parseOSRelease(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsPermission(err) {
			return nil, errs.Wrap(errs.PermissionDenied, err, "reading %s", path)
		}
		return nil, errs.Wrap(errs.NotFound, err, "reading %s", path)
	}
	defer f.Close()

	fields := map[string]string{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		fields[k] = unquoteShellValue(v)
	}
	return fields, sc.Err()
}

func unquoteShellValue(v string) string {
	v = strings.TrimSpace(v)
	if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') && v[len(v)-1] == v[0] {
		v = v[1 : len(v)-1]
	}
	return v
}

func platformDesktopEnvironment() (string, error) {
	if v := os.Getenv("XDG_CURRENT_DESKTOP"); v != "" {
		if i := strings.IndexByte(v, ':'); i >= 0 {
			v = v[:i]
		}
		return v, nil
	}
	if v := os.Getenv("DESKTOP_SESSION"); v != "" {
		return v, nil
	}
	return "", errs.New(errs.NotFound, "no desktop environment indicator set")
}

func platformWindowManager() (string, error) {
	if os.Getenv("WAYLAND_DISPLAY") != "" {
		if wm, err := waylandCompositorName(); err == nil {
			return wm, nil
		}
	}
	if os.Getenv("DISPLAY") != "" {
		if wm, err := x11WindowManagerName(); err == nil {
			return wm, nil
		}
	}
	return "", errs.New(errs.NotSupported, "no graphical session detected")
}

// waylandCompositorName is intentionally conservative: resolving the
// compositor's identity requires binding wl_registry and matching globals
// against a running process, a protocol round trip this probe layer does
// not implement; it is a documented gap rather than a fabricated value.
// x11WindowManagerName (x11_linux.go) covers the X11 session case.
func waylandCompositorName() (string, error) {
	return "", errs.New(errs.UnavailableFeature, "wayland compositor identification requires a protocol round trip")
}

func platformShell() (string, error) {
	shell := os.Getenv("SHELL")
	if shell == "" {
		return "", errs.New(errs.NotFound, "$SHELL is not set")
	}
	return friendlyShellName(shell), nil
}

func platformHost() (string, error) {
	for _, path := range []string{"/sys/class/dmi/id/product_family", "/sys/class/dmi/id/product_name"} {
		if v, err := readSysfsString(path); err == nil && v != "" {
			return v, nil
		} else if errs.Is(err, errs.PermissionDenied) {
			return "", err
		}
	}
	return "Unknown", nil
}

func readSysfsString(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsPermission(err) {
			return "", errs.Wrap(errs.PermissionDenied, err, "reading %s", path)
		}
		return "", errs.Wrap(errs.NotFound, err, "reading %s", path)
	}
	return strings.TrimSpace(string(raw)), nil
}

func platformCPUModel() (string, error) {
	if cpuid.CPU.BrandName != "" {
		return cpuid.CPU.BrandName, nil
	}
	return "", errs.New(errs.NotFound, "CPUID brand string unavailable")
}

func platformCPUCores() (hostinfo.CPUCores, error) {
	logical := cpuid.CPU.LogicalCores
	physical := cpuid.CPU.PhysicalCores
	if logical <= 0 {
		return hostinfo.CPUCores{}, errs.New(errs.InternalError, "CPUID reported no logical cores")
	}
	if physical <= 0 || physical > logical {
		physical = logical
	}
	return hostinfo.CPUCores{Physical: uint32(physical), Logical: uint32(logical)}, nil
}

var pciIDPaths = []string{"/usr/share/hwdata/pci.ids", "/usr/share/misc/pci.ids"}

func platformGPUModel() (string, error) {
	devicesDir := "/sys/bus/pci/devices"
	entries, err := os.ReadDir(devicesDir)
	if err != nil {
		return "", errs.Wrap(errs.NotFound, err, "reading %s", devicesDir)
	}

	for _, e := range entries {
		dir := filepath.Join(devicesDir, e.Name())
		class, err := readSysfsString(filepath.Join(dir, "class"))
		if err != nil || !strings.HasPrefix(strings.TrimPrefix(class, "0x"), "03") {
			continue
		}
		vendor, _ := readSysfsString(filepath.Join(dir, "vendor"))
		device, _ := readSysfsString(filepath.Join(dir, "device"))
		vendorID := parseHexID(vendor)
		deviceID := parseHexID(device)

		if name, err := lookupPCIDevice(vendorID, deviceID); err == nil {
			return name, nil
		}
		if name, ok := gpuVendorNames[vendorID]; ok {
			return name, nil
		}
	}
	return "", errs.New(errs.NotFound, "no display-class PCI device found")
}

func parseHexID(s string) uint16 {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	v, _ := strconv.ParseUint(s, 16, 16)
	return uint16(v)
}

// lookupPCIDevice consults a well-known pci.ids database on disk. No copy
// is embedded in the module; see platformGPUModel's vendor-only fallback.
func lookupPCIDevice(vendorID, deviceID uint16) (string, error) {
	for _, path := range pciIDPaths {
		if name, err := scanPCIIDs(path, vendorID, deviceID); err == nil {
			return name, nil
		}
	}
	return "", errs.New(errs.NotFound, "no pci.ids database found")
}

func scanPCIIDs(path string, vendorID, deviceID uint16) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errs.Wrap(errs.NotFound, err, "opening %s", path)
	}
	defer f.Close()

	wantVendor := fmt.Sprintf("%04x", vendorID)
	wantDevice := fmt.Sprintf("%04x", deviceID)

	sc := bufio.NewScanner(f)
	inVendor := false
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, "#") || line == "" {
			continue
		}
		if line[0] != '\t' {
			inVendor = strings.HasPrefix(line, wantVendor)
			continue
		}
		if inVendor && line[0] == '\t' && (len(line) < 2 || line[1] != '\t') {
			entry := strings.TrimSpace(line)
			if strings.HasPrefix(entry, wantDevice) {
				name := strings.TrimSpace(strings.TrimPrefix(entry, wantDevice))
				return cleanGPUName(name), nil
			}
		}
	}
	return "", errs.New(errs.NotFound, "device %s:%s not found in %s", wantVendor, wantDevice, path)
}

func cleanGPUName(name string) string {
	name = strings.ReplaceAll(name, "[AMD/ATI]", "AMD")
	if i := strings.Index(name, "["); i >= 0 {
		if j := strings.Index(name[i:], "]"); j >= 0 {
			return strings.TrimSpace(name[i+1 : i+j])
		}
	}
	return name
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
		mountPoint = "/"
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
	f, err := os.Open("/proc/mounts")
	if err != nil {
		return nil, errs.Wrap(errs.IoError, err, "reading /proc/mounts")
	}
	defer f.Close()

	var disks []hostinfo.DiskInfo
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 3 {
			continue
		}
		device, mount, fstype := fields[0], fields[1], fields[2]
		if !strings.HasPrefix(device, "/dev/") {
			continue
		}
		usage, err := platformDiskUsage(mount)
		if err != nil {
			continue
		}
		disks = append(disks, hostinfo.DiskInfo{
			Device:     device,
			MountPoint: mount,
			FsType:     fstype,
			DriveType:  linuxDriveType(device, fstype),
			Usage:      usage,
			IsSystem:   mount == "/",
		})
	}
	if len(disks) == 0 {
		return nil, errs.New(errs.NotFound, "no disks found in /proc/mounts")
	}
	return disks, sc.Err()
}

var networkFsTypes = map[string]bool{
	"nfs": true, "nfs4": true, "cifs": true, "smb": true, "smb3": true, "9p": true, "afs": true,
}

// linuxDriveType classifies device by the sysfs "removable" attribute of
// its backing block device, falling back to "Network" for network
// filesystem types and "Unknown" when the block device cannot be resolved.
func linuxDriveType(device, fstype string) string {
	if networkFsTypes[strings.ToLower(fstype)] {
		return "Network"
	}
	block := blockDeviceName(device)
	if block == "" {
		return "Unknown"
	}
	removable, err := readSysfsString(filepath.Join("/sys/class/block", block, "removable"))
	if err != nil {
		return "Unknown"
	}
	if removable == "1" {
		return "Removable"
	}
	return "Fixed"
}

// blockDeviceName maps a /dev entry such as /dev/sda1, /dev/nvme0n1p2, or
// /dev/mmcblk0p1 to the backing whole-disk name (sda, nvme0n1, mmcblk0)
// that sysfs publishes attributes under.
func blockDeviceName(device string) string {
	name := strings.TrimPrefix(device, "/dev/")
	if name == device {
		return ""
	}
	switch {
	case strings.HasPrefix(name, "nvme"), strings.HasPrefix(name, "mmcblk"):
		if i := strings.IndexByte(name, 'p'); i > 0 {
			if _, err := strconv.Atoi(name[i+1:]); err == nil {
				return name[:i]
			}
		}
		return name
	default:
		end := len(name)
		for end > 0 && name[end-1] >= '0' && name[end-1] <= '9' {
			end--
		}
		if end == 0 {
			return name
		}
		return name[:end]
	}
}

func platformOutputs() ([]hostinfo.DisplayInfo, error) {
	displays, err := x11Displays()
	if err != nil {
		return nil, err
	}
	if len(displays) == 0 {
		return nil, errs.New(errs.NotFound, "no display outputs reported by RANDR")
	}
	return displays, nil
}

func platformNetworkInterfaces() ([]hostinfo.NetworkInterface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, errs.Wrap(errs.IoError, err, "enumerating network interfaces")
	}

	out := make([]hostinfo.NetworkInterface, 0, len(ifaces))
	for _, iface := range ifaces {
		ni := hostinfo.NetworkInterface{
			Name:       iface.Name,
			MACAddress: iface.HardwareAddr,
		}
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
	f, err := os.Open("/proc/net/route")
	if err != nil {
		return "", false
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Scan() // header
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 2 {
			continue
		}
		if fields[1] == "00000000" {
			return fields[0], true
		}
	}
	return "", false
}

func platformBattery() (hostinfo.Battery, error) {
	const root = "/sys/class/power_supply"
	entries, err := os.ReadDir(root)
	if err != nil {
		return hostinfo.Battery{}, errs.Wrap(errs.NotFound, err, "reading %s", root)
	}

	for _, e := range entries {
		dir := filepath.Join(root, e.Name())
		kind, err := readSysfsString(filepath.Join(dir, "type"))
		if err != nil || kind != "Battery" {
			continue
		}

		capacityStr, err := readSysfsString(filepath.Join(dir, "capacity"))
		if err != nil {
			continue
		}
		capacity, err := strconv.Atoi(capacityStr)
		if err != nil {
			continue
		}
		statusStr, _ := readSysfsString(filepath.Join(dir, "status"))

		status := hostinfo.BatteryUnknown
		switch {
		case (strings.EqualFold(statusStr, "Charging") || strings.EqualFold(statusStr, "Not charging")) && capacity == 100:
			status = hostinfo.BatteryFull
		case strings.EqualFold(statusStr, "Charging"):
			status = hostinfo.BatteryCharging
		case strings.EqualFold(statusStr, "Discharging"), strings.EqualFold(statusStr, "Not charging"):
			status = hostinfo.BatteryDischarging
		}

		var timeRemaining *time.Duration
		var minutesFile string
		switch status {
		case hostinfo.BatteryCharging:
			minutesFile = "time_to_full_now"
		case hostinfo.BatteryDischarging:
			minutesFile = "time_to_empty_now"
		}
		if minutesFile != "" {
			if raw, err := readSysfsString(filepath.Join(dir, minutesFile)); err == nil {
				if minutes, err := strconv.Atoi(raw); err == nil && minutes > 0 {
					d := time.Duration(minutes) * time.Minute
					timeRemaining = &d
				}
			}
		}

		return hostinfo.Battery{
			Percentage:    hostinfo.BatteryPercent(capacity),
			Status:        status,
			TimeRemaining: timeRemaining,
		}, nil
	}
	return hostinfo.Battery{Status: hostinfo.BatteryNotPresent}, errs.New(errs.NotFound, "no battery power supply found")
}

func platformUptime() (time.Duration, error) {
	var si unix.Sysinfo_t
	if err := unix.Sysinfo(&si); err != nil {
		return 0, errs.Wrap(errs.IoError, err, "sysinfo")
	}
	return time.Duration(si.Uptime) * time.Second, nil
}
