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
	"sort"
	"unsafe"

	"github.com/draconis-go/draconis/pkg/packages"
)

// DracGetTotalPackageCount sums installed packages across every manager
// enabled in mask that this platform build implements.
//
//export DracGetTotalPackageCount
func DracGetTotalPackageCount(handle C.DracCacheManager, mask C.uint16_t, out *C.uint64_t) C.DracErrorCode {
	c, err := lookupCache(handle)
	if err != nil {
		return C.DracErrorCode(errorCode(err))
	}
	if out == nil {
		return C.DracErrorCode(invalidArgument)
	}
	total, err := packages.GetTotalCount(c, packages.Manager(mask))
	if err != nil {
		return C.DracErrorCode(errorCode(err))
	}
	*out = C.uint64_t(total)
	return C.DracErrorCode(success)
}

// DracGetIndividualPackageCounts writes a per-manager breakdown to out,
// sorted by manager name. The caller must release it with
// DracFreePackageCountList.
//
//export DracGetIndividualPackageCounts
func DracGetIndividualPackageCounts(handle C.DracCacheManager, mask C.uint16_t, out *C.DracPackageCountList) C.DracErrorCode {
	c, err := lookupCache(handle)
	if err != nil {
		return C.DracErrorCode(errorCode(err))
	}
	if out == nil {
		return C.DracErrorCode(invalidArgument)
	}
	counts, err := packages.GetIndividualCounts(c, packages.Manager(mask))
	if err != nil {
		return C.DracErrorCode(errorCode(err))
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	n := len(names)
	arr := (*C.DracPackageCount)(C.malloc(C.size_t(n) * C.size_t(unsafe.Sizeof(C.DracPackageCount{}))))
	slice := unsafe.Slice(arr, n)
	for i, name := range names {
		slice[i].name = C.CString(name)
		slice[i].count = C.uint64_t(counts[name])
	}
	out.items = arr
	out.count = C.size_t(n)
	return C.DracErrorCode(success)
}

// DracFreePackageCountList releases a list returned by
// DracGetIndividualPackageCounts.
//
//export DracFreePackageCountList
func DracFreePackageCountList(list *C.DracPackageCountList) {
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
