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
*/
import "C"
import "unsafe"

// DracFreeString releases a string previously returned through a char**
// out-parameter. Passing nil is a no-op.
//
//export DracFreeString
func DracFreeString(s *C.char) {
	if s != nil {
		C.free(unsafe.Pointer(s))
	}
}

func cStringOut(s string, out **C.char) {
	if out != nil {
		*out = C.CString(s)
	}
}
