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

package errs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCarriesKind(t *testing.T) {
	err := New(NotFound, "battery %d missing", 0)
	assert.Equal(t, NotFound, KindOf(err))
	assert.Contains(t, err.Error(), "NotFound")
	assert.Contains(t, err.Error(), "battery 0 missing")
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("permission denied")
	err := Wrap(PermissionDenied, cause, "reading %s", "/proc/meminfo")

	require.ErrorIs(t, err, cause)
	assert.Equal(t, PermissionDenied, KindOf(err))
}

func TestKindOfDefaultsToOther(t *testing.T) {
	assert.Equal(t, Other, KindOf(errors.New("plain")))
}

func TestIs(t *testing.T) {
	err := New(Timeout, "probe timed out")
	assert.True(t, Is(err, Timeout))
	assert.False(t, Is(err, IoError))
}
