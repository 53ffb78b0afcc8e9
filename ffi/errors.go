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

import "github.com/draconis-go/draconis/internal/errs"

const success = 255

// errorCode reduces err to its DracErrorCode value, discarding the
// message and cause; callers needing diagnostics log on the Go side
// before crossing the boundary. A nil err reduces to success.
func errorCode(err error) int32 {
	if err == nil {
		return success
	}
	return int32(errs.KindOf(err))
}

const invalidArgument = int32(errs.InvalidArgument)
