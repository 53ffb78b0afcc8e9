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

package wire

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	type payload struct {
		Name  string
		Count int
	}

	in := payload{Name: "cpu-model", Count: 8}
	expires := time.Now().Add(time.Minute).Truncate(time.Second)

	raw, err := Encode(in, expires)
	require.NoError(t, err)

	var out payload
	gotExpires, err := Decode(raw, &out)
	require.NoError(t, err)

	require.Equal(t, in, out)
	require.True(t, expires.Equal(gotExpires))
}

func TestDecodeCorrupted(t *testing.T) {
	var out struct{ X int }
	_, err := Decode([]byte("not cbor"), &out)
	require.Error(t, err)
}
