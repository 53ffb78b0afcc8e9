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

package ffi

/*
#include <stdlib.h>
#include "draconis.h"
*/
import "C"

import (
	"unsafe"

	"github.com/draconis-go/draconis/pkg/hostinfo"
	"github.com/draconis-go/draconis/pkg/probe"
)

// DracGetOperatingSystem writes the host's OS identity into out. The
// caller must release it with DracFreeOSInfo.
//
//export DracGetOperatingSystem
func DracGetOperatingSystem(handle C.DracCacheManager, out *C.DracOSInfo) C.DracErrorCode {
	c, err := lookupCache(handle)
	if err != nil {
		return C.DracErrorCode(errorCode(err))
	}
	if out == nil {
		return C.DracErrorCode(invalidArgument)
	}
	info, err := probe.GetOperatingSystem(c)
	if err != nil {
		return C.DracErrorCode(errorCode(err))
	}
	fillOSInfo(out, info)
	return C.DracErrorCode(success)
}

func fillOSInfo(dst *C.DracOSInfo, src hostinfo.OSInfo) {
	dst.name = C.CString(src.Name)
	dst.version = C.CString(src.Version)
	dst.codename = C.CString(src.Codename)
	dst.architecture = C.CString(src.Architecture)
}

// DracFreeOSInfo releases the strings owned by a DracOSInfo filled by
// DracGetOperatingSystem, then nulls the pointers.
//
//export DracFreeOSInfo
func DracFreeOSInfo(info *C.DracOSInfo) {
	if info == nil {
		return
	}
	C.free(unsafe.Pointer(info.name))
	C.free(unsafe.Pointer(info.version))
	C.free(unsafe.Pointer(info.codename))
	C.free(unsafe.Pointer(info.architecture))
	info.name, info.version, info.codename, info.architecture = nil, nil, nil, nil
}

// DracGetHost writes a human-readable host/model string to out.
//
//export DracGetHost
func DracGetHost(handle C.DracCacheManager, out **C.char) C.DracErrorCode {
	c, err := lookupCache(handle)
	if err != nil {
		return C.DracErrorCode(errorCode(err))
	}
	v, err := probe.GetHost(c)
	if err != nil {
		return C.DracErrorCode(errorCode(err))
	}
	cStringOut(v, out)
	return C.DracErrorCode(success)
}

// DracGetCPUModel writes the CPU brand string to out.
//
//export DracGetCPUModel
func DracGetCPUModel(handle C.DracCacheManager, out **C.char) C.DracErrorCode {
	c, err := lookupCache(handle)
	if err != nil {
		return C.DracErrorCode(errorCode(err))
	}
	v, err := probe.GetCPUModel(c)
	if err != nil {
		return C.DracErrorCode(errorCode(err))
	}
	cStringOut(v, out)
	return C.DracErrorCode(success)
}

// DracGetCPUCores writes physical/logical core counts to out.
//
//export DracGetCPUCores
func DracGetCPUCores(handle C.DracCacheManager, out *C.DracCPUCores) C.DracErrorCode {
	c, err := lookupCache(handle)
	if err != nil {
		return C.DracErrorCode(errorCode(err))
	}
	if out == nil {
		return C.DracErrorCode(invalidArgument)
	}
	cores, err := probe.GetCPUCores(c)
	if err != nil {
		return C.DracErrorCode(errorCode(err))
	}
	out.physical = C.uint32_t(cores.Physical)
	out.logical = C.uint32_t(cores.Logical)
	return C.DracErrorCode(success)
}

// DracGetGPUModel writes the primary GPU's model name to out.
//
//export DracGetGPUModel
func DracGetGPUModel(handle C.DracCacheManager, out **C.char) C.DracErrorCode {
	c, err := lookupCache(handle)
	if err != nil {
		return C.DracErrorCode(errorCode(err))
	}
	v, err := probe.GetGPUModel(c)
	if err != nil {
		return C.DracErrorCode(errorCode(err))
	}
	cStringOut(v, out)
	return C.DracErrorCode(success)
}

// DracGetKernelVersion writes the OS kernel release string to out.
//
//export DracGetKernelVersion
func DracGetKernelVersion(handle C.DracCacheManager, out **C.char) C.DracErrorCode {
	c, err := lookupCache(handle)
	if err != nil {
		return C.DracErrorCode(errorCode(err))
	}
	v, err := probe.GetKernelVersion(c)
	if err != nil {
		return C.DracErrorCode(errorCode(err))
	}
	cStringOut(v, out)
	return C.DracErrorCode(success)
}

// DracGetMemInfo writes live used/total memory figures to out, uncached.
//
//export DracGetMemInfo
func DracGetMemInfo(out *C.DracResourceUsage) C.DracErrorCode {
	if out == nil {
		return C.DracErrorCode(invalidArgument)
	}
	usage, err := probe.GetMemInfo()
	if err != nil {
		return C.DracErrorCode(errorCode(err))
	}
	out.used = C.uint64_t(usage.Used)
	out.total = C.uint64_t(usage.Total)
	return C.DracErrorCode(success)
}

// DracGetDiskUsage writes live used/total disk figures for mountPoint
// (or the root/system drive if empty) to out, uncached.
//
//export DracGetDiskUsage
func DracGetDiskUsage(mountPoint *C.char, out *C.DracResourceUsage) C.DracErrorCode {
	if out == nil {
		return C.DracErrorCode(invalidArgument)
	}
	var mp string
	if mountPoint != nil {
		mp = C.GoString(mountPoint)
	}
	usage, err := probe.GetDiskUsage(mp)
	if err != nil {
		return C.DracErrorCode(errorCode(err))
	}
	out.used = C.uint64_t(usage.Used)
	out.total = C.uint64_t(usage.Total)
	return C.DracErrorCode(success)
}

func fillDiskInfo(dst *C.DracDiskInfo, src hostinfo.DiskInfo) {
	dst.device = C.CString(src.Device)
	dst.mount_point = C.CString(src.MountPoint)
	dst.fs_type = C.CString(src.FsType)
	dst.drive_type = C.CString(src.DriveType)
	dst.usage.used = C.uint64_t(src.Usage.Used)
	dst.usage.total = C.uint64_t(src.Usage.Total)
	dst.is_system = boolToCInt(src.IsSystem)
}

func freeDiskInfo(d *C.DracDiskInfo) {
	C.free(unsafe.Pointer(d.device))
	C.free(unsafe.Pointer(d.mount_point))
	C.free(unsafe.Pointer(d.fs_type))
	C.free(unsafe.Pointer(d.drive_type))
}

// DracGetSystemDisk writes the disk hosting the root/boot volume to out.
//
//export DracGetSystemDisk
func DracGetSystemDisk(handle C.DracCacheManager, out *C.DracDiskInfo) C.DracErrorCode {
	c, err := lookupCache(handle)
	if err != nil {
		return C.DracErrorCode(errorCode(err))
	}
	if out == nil {
		return C.DracErrorCode(invalidArgument)
	}
	disk, err := probe.GetSystemDisk(c)
	if err != nil {
		return C.DracErrorCode(errorCode(err))
	}
	fillDiskInfo(out, disk)
	return C.DracErrorCode(success)
}

// DracFreeDiskInfo releases the strings owned by a DracDiskInfo.
//
//export DracFreeDiskInfo
func DracFreeDiskInfo(d *C.DracDiskInfo) {
	if d == nil {
		return
	}
	freeDiskInfo(d)
	d.device, d.mount_point, d.fs_type, d.drive_type = nil, nil, nil, nil
}

// DracGetDisks writes every mounted filesystem to out. The caller must
// release it with DracFreeDiskInfoList.
//
//export DracGetDisks
func DracGetDisks(handle C.DracCacheManager, out *C.DracDiskInfoList) C.DracErrorCode {
	c, err := lookupCache(handle)
	if err != nil {
		return C.DracErrorCode(errorCode(err))
	}
	if out == nil {
		return C.DracErrorCode(invalidArgument)
	}
	disks, err := probe.GetDisks(c)
	if err != nil {
		return C.DracErrorCode(errorCode(err))
	}

	n := len(disks)
	arr := (*C.DracDiskInfo)(C.malloc(C.size_t(n) * C.size_t(unsafe.Sizeof(C.DracDiskInfo{}))))
	slice := unsafe.Slice(arr, n)
	for i, d := range disks {
		fillDiskInfo(&slice[i], d)
	}
	out.items = arr
	out.count = C.size_t(n)
	return C.DracErrorCode(success)
}

// DracFreeDiskInfoList releases a list returned by DracGetDisks, including
// every inner string.
//
//export DracFreeDiskInfoList
func DracFreeDiskInfoList(list *C.DracDiskInfoList) {
	if list == nil || list.items == nil {
		return
	}
	slice := unsafe.Slice(list.items, int(list.count))
	for i := range slice {
		freeDiskInfo(&slice[i])
	}
	C.free(unsafe.Pointer(list.items))
	list.items, list.count = nil, 0
}

func cStringArray(values []string) (**C.char, C.size_t) {
	n := len(values)
	if n == 0 {
		return nil, 0
	}
	arr := (**C.char)(C.malloc(C.size_t(n) * C.size_t(unsafe.Sizeof((*C.char)(nil)))))
	slice := unsafe.Slice(arr, n)
	for i, v := range values {
		slice[i] = C.CString(v)
	}
	return arr, C.size_t(n)
}

func freeCStringArray(arr **C.char, count C.size_t) {
	if arr == nil {
		return
	}
	slice := unsafe.Slice(arr, int(count))
	for _, s := range slice {
		C.free(unsafe.Pointer(s))
	}
	C.free(unsafe.Pointer(arr))
}

func fillNetworkInterface(dst *C.DracNetworkInterface, src hostinfo.NetworkInterface) {
	dst.name = C.CString(src.Name)
	dst.is_up = boolToCInt(src.IsUp)
	dst.is_loopback = boolToCInt(src.IsLoopback)
	dst.mac_address = C.CString(src.MACAddress)
	dst.ipv4_addrs, dst.ipv4_count = cStringArray(src.IPv4Addrs)
	dst.ipv6_addrs, dst.ipv6_count = cStringArray(src.IPv6Addrs)
}

func freeNetworkInterface(n *C.DracNetworkInterface) {
	C.free(unsafe.Pointer(n.name))
	C.free(unsafe.Pointer(n.mac_address))
	freeCStringArray(n.ipv4_addrs, n.ipv4_count)
	freeCStringArray(n.ipv6_addrs, n.ipv6_count)
}

// DracGetNetworkInterfaces writes every network interface to out.
//
//export DracGetNetworkInterfaces
func DracGetNetworkInterfaces(handle C.DracCacheManager, out *C.DracNetworkInterfaceList) C.DracErrorCode {
	c, err := lookupCache(handle)
	if err != nil {
		return C.DracErrorCode(errorCode(err))
	}
	if out == nil {
		return C.DracErrorCode(invalidArgument)
	}
	ifaces, err := probe.GetNetworkInterfaces(c)
	if err != nil {
		return C.DracErrorCode(errorCode(err))
	}

	n := len(ifaces)
	arr := (*C.DracNetworkInterface)(C.malloc(C.size_t(n) * C.size_t(unsafe.Sizeof(C.DracNetworkInterface{}))))
	slice := unsafe.Slice(arr, n)
	for i, iface := range ifaces {
		fillNetworkInterface(&slice[i], iface)
	}
	out.items = arr
	out.count = C.size_t(n)
	return C.DracErrorCode(success)
}

// DracFreeNetworkInterfaceList releases a list returned by
// DracGetNetworkInterfaces, including every inner string and array.
//
//export DracFreeNetworkInterfaceList
func DracFreeNetworkInterfaceList(list *C.DracNetworkInterfaceList) {
	if list == nil || list.items == nil {
		return
	}
	slice := unsafe.Slice(list.items, int(list.count))
	for i := range slice {
		freeNetworkInterface(&slice[i])
	}
	C.free(unsafe.Pointer(list.items))
	list.items, list.count = nil, 0
}

func fillDisplayInfo(dst *C.DracDisplayInfo, src hostinfo.DisplayInfo) {
	dst.id = C.uint64_t(src.ID)
	dst.name = C.CString(src.Name)
	dst.width = C.uint32_t(src.Width)
	dst.height = C.uint32_t(src.Height)
	dst.refresh_hz = C.double(src.RefreshHz)
	dst.is_primary = boolToCInt(src.IsPrimary)
	dst.scale_factor = C.double(src.ScaleFactor)
	dst.hdr_supported = boolToCInt(src.HDRSupported)
}

// DracGetOutputs writes every connected display to out.
//
//export DracGetOutputs
func DracGetOutputs(handle C.DracCacheManager, out *C.DracDisplayInfoList) C.DracErrorCode {
	c, err := lookupCache(handle)
	if err != nil {
		return C.DracErrorCode(errorCode(err))
	}
	if out == nil {
		return C.DracErrorCode(invalidArgument)
	}
	outputs, err := probe.GetOutputs(c)
	if err != nil {
		return C.DracErrorCode(errorCode(err))
	}

	n := len(outputs)
	arr := (*C.DracDisplayInfo)(C.malloc(C.size_t(n) * C.size_t(unsafe.Sizeof(C.DracDisplayInfo{}))))
	slice := unsafe.Slice(arr, n)
	for i, o := range outputs {
		fillDisplayInfo(&slice[i], o)
	}
	out.items = arr
	out.count = C.size_t(n)
	return C.DracErrorCode(success)
}

// DracFreeDisplayInfoList releases a list returned by DracGetOutputs.
//
//export DracFreeDisplayInfoList
func DracFreeDisplayInfoList(list *C.DracDisplayInfoList) {
	if list == nil || list.items == nil {
		return
	}
	slice := unsafe.Slice(list.items, int(list.count))
	for i := range slice {
		C.free(unsafe.Pointer(slice[i].name))
	}
	C.free(unsafe.Pointer(list.items))
	list.items, list.count = nil, 0
}

// DracGetBatteryInfo writes live battery state to out, uncached.
//
//export DracGetBatteryInfo
func DracGetBatteryInfo(out *C.DracBattery) C.DracErrorCode {
	if out == nil {
		return C.DracErrorCode(invalidArgument)
	}
	b, err := probe.GetBatteryInfo()
	if err != nil {
		return C.DracErrorCode(errorCode(err))
	}
	if b.Percentage != nil {
		out.has_percentage = 1
		out.percentage = C.uint8_t(*b.Percentage)
	} else {
		out.has_percentage = 0
		out.percentage = 0
	}
	out.status = C.int(b.Status)
	if b.TimeRemaining != nil {
		out.has_time_remaining = 1
		out.time_remaining_seconds = C.uint64_t(b.TimeRemaining.Seconds())
	} else {
		out.has_time_remaining = 0
		out.time_remaining_seconds = 0
	}
	return C.DracErrorCode(success)
}

// DracGetUptimeSeconds writes the host's uptime in whole seconds to out.
//
//export DracGetUptimeSeconds
func DracGetUptimeSeconds(out *C.uint64_t) C.DracErrorCode {
	if out == nil {
		return C.DracErrorCode(invalidArgument)
	}
	d, err := probe.GetUptime()
	if err != nil {
		return C.DracErrorCode(errorCode(err))
	}
	*out = C.uint64_t(d.Seconds())
	return C.DracErrorCode(success)
}

// DracGetShell writes the user's interactive shell name to out.
//
//export DracGetShell
func DracGetShell(handle C.DracCacheManager, out **C.char) C.DracErrorCode {
	c, err := lookupCache(handle)
	if err != nil {
		return C.DracErrorCode(errorCode(err))
	}
	v, err := probe.GetShell(c)
	if err != nil {
		return C.DracErrorCode(errorCode(err))
	}
	cStringOut(v, out)
	return C.DracErrorCode(success)
}

// DracGetDesktopEnvironment writes the active desktop environment name to
// out.
//
//export DracGetDesktopEnvironment
func DracGetDesktopEnvironment(handle C.DracCacheManager, out **C.char) C.DracErrorCode {
	c, err := lookupCache(handle)
	if err != nil {
		return C.DracErrorCode(errorCode(err))
	}
	v, err := probe.GetDesktopEnvironment(c)
	if err != nil {
		return C.DracErrorCode(errorCode(err))
	}
	cStringOut(v, out)
	return C.DracErrorCode(success)
}

// DracGetWindowManager writes the active window manager name to out.
//
//export DracGetWindowManager
func DracGetWindowManager(handle C.DracCacheManager, out **C.char) C.DracErrorCode {
	c, err := lookupCache(handle)
	if err != nil {
		return C.DracErrorCode(errorCode(err))
	}
	v, err := probe.GetWindowManager(c)
	if err != nil {
		return C.DracErrorCode(errorCode(err))
	}
	cStringOut(v, out)
	return C.DracErrorCode(success)
}

// DracGetPrimaryOutput writes the display marked primary to out.
//
//export DracGetPrimaryOutput
func DracGetPrimaryOutput(handle C.DracCacheManager, out *C.DracDisplayInfo) C.DracErrorCode {
	c, err := lookupCache(handle)
	if err != nil {
		return C.DracErrorCode(errorCode(err))
	}
	if out == nil {
		return C.DracErrorCode(invalidArgument)
	}
	o, err := probe.GetPrimaryOutput(c)
	if err != nil {
		return C.DracErrorCode(errorCode(err))
	}
	fillDisplayInfo(out, o)
	return C.DracErrorCode(success)
}

// DracFreeDisplayInfo releases the string owned by a single DracDisplayInfo.
//
//export DracFreeDisplayInfo
func DracFreeDisplayInfo(d *C.DracDisplayInfo) {
	if d == nil {
		return
	}
	C.free(unsafe.Pointer(d.name))
	d.name = nil
}

// DracGetPrimaryNetworkInterface writes the interface carrying the
// default route (or the first usable up interface) to out.
//
//export DracGetPrimaryNetworkInterface
func DracGetPrimaryNetworkInterface(handle C.DracCacheManager, out *C.DracNetworkInterface) C.DracErrorCode {
	c, err := lookupCache(handle)
	if err != nil {
		return C.DracErrorCode(errorCode(err))
	}
	if out == nil {
		return C.DracErrorCode(invalidArgument)
	}
	iface, err := probe.GetPrimaryNetworkInterface(c)
	if err != nil {
		return C.DracErrorCode(errorCode(err))
	}
	fillNetworkInterface(out, iface)
	return C.DracErrorCode(success)
}

// DracFreeNetworkInterface releases the strings and arrays owned by a
// single DracNetworkInterface.
//
//export DracFreeNetworkInterface
func DracFreeNetworkInterface(n *C.DracNetworkInterface) {
	if n == nil {
		return
	}
	freeNetworkInterface(n)
	n.name, n.mac_address = nil, nil
	n.ipv4_addrs, n.ipv6_addrs = nil, nil
	n.ipv4_count, n.ipv6_count = 0, 0
}

func boolToCInt(b bool) C.int {
	if b {
		return 1
	}
	return 0
}
