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
#include "draconis.h"
*/
import "C"

import (
	"github.com/draconis-go/draconis/internal/errs"
	"github.com/draconis-go/draconis/pkg/cache"
)

// DracCreateCacheManager allocates a cache manager rooted at the
// platform's default persistent and temp directories and writes its
// handle to out.
//
//export DracCreateCacheManager
func DracCreateCacheManager(out *C.DracCacheManager) C.DracErrorCode {
	if out == nil {
		return C.DracErrorCode(invalidArgument)
	}
	c, err := cache.New()
	if err != nil {
		return C.DracErrorCode(errorCode(err))
	}
	*out = C.DracCacheManager(cacheArena.put(c))
	return C.DracErrorCode(success)
}

// DracDestroyCacheManager releases a handle created by
// DracCreateCacheManager. It is not an error to pass an unknown handle.
//
//export DracDestroyCacheManager
func DracDestroyCacheManager(handle C.DracCacheManager) {
	cacheArena.remove(uint64(handle))
}

func lookupCache(handle C.DracCacheManager) (*cache.Manager, error) {
	v, ok := cacheArena.get(uint64(handle))
	if !ok {
		return nil, errs.New(errs.InvalidArgument, "unknown cache manager handle")
	}
	c, ok := v.(*cache.Manager)
	if !ok {
		return nil, errs.New(errs.InvalidArgument, "handle does not refer to a cache manager")
	}
	return c, nil
}

// DracCacheSetGlobalBypass toggles whether the cache skips storage
// entirely for this handle.
//
//export DracCacheSetGlobalBypass
func DracCacheSetGlobalBypass(handle C.DracCacheManager, bypass C.int) C.DracErrorCode {
	c, err := lookupCache(handle)
	if err != nil {
		return C.DracErrorCode(errorCode(err))
	}
	c.SetGlobalBypass(bypass != 0)
	return C.DracErrorCode(success)
}

// DracCacheInvalidate removes a single key from a cache manager.
//
//export DracCacheInvalidate
func DracCacheInvalidate(handle C.DracCacheManager, key *C.char) C.DracErrorCode {
	c, err := lookupCache(handle)
	if err != nil {
		return C.DracErrorCode(errorCode(err))
	}
	if key == nil {
		return C.DracErrorCode(invalidArgument)
	}
	c.Invalidate(C.GoString(key))
	return C.DracErrorCode(success)
}

// DracCacheInvalidateAll clears every entry the cache manager owns and
// writes the number of files removed to outCount.
//
//export DracCacheInvalidateAll
func DracCacheInvalidateAll(handle C.DracCacheManager, outCount *C.uint64_t) C.DracErrorCode {
	c, err := lookupCache(handle)
	if err != nil {
		return C.DracErrorCode(errorCode(err))
	}
	n := c.InvalidateAll(false)
	if outCount != nil {
		*outCount = C.uint64_t(n)
	}
	return C.DracErrorCode(success)
}
