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

package hostinfo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatBytes(t *testing.T) {
	cases := []struct {
		in   uint64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{1 << 30, "1.0 GiB"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, FormatBytes(c.in))
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{0, "0s"},
		{45 * time.Second, "45s"},
		{90 * time.Minute, "1h 30m 0s"},
		{25 * time.Hour, "1d 1h 0m 0s"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, FormatDuration(c.in))
	}
}

func TestResourceUsagePercent(t *testing.T) {
	r := ResourceUsage{Used: 50, Total: 200}
	assert.Equal(t, 25.0, r.Percent())

	empty := ResourceUsage{}
	assert.Equal(t, 0.0, empty.Percent())
}
