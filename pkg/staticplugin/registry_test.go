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

package staticplugin

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/draconis-go/draconis/pkg/plugin"
)

type fakePlugin struct {
	meta      plugin.Metadata
	destroyed bool
}

func (f *fakePlugin) GetMetadata() *plugin.Metadata          { return &f.meta }
func (f *fakePlugin) Initialize(plugin.Context, *plugin.Cache) error { return nil }
func (f *fakePlugin) Shutdown()                              {}
func (f *fakePlugin) IsReady() bool                           { return true }

func TestInitStaticPluginsRunsOnce(t *testing.T) {
	resetForTest()
	calls := 0
	AddRegisterFunc(func() {
		calls++
		Register("weather", func() plugin.Lifecycle {
			return &fakePlugin{meta: plugin.Metadata{Name: "weather"}}
		}, nil)
	})

	n1 := InitStaticPlugins()
	n2 := InitStaticPlugins()

	require.Equal(t, 1, n1)
	require.Equal(t, 1, n2)
	require.Equal(t, 1, calls)
}

func TestCreateAndDestroyStaticPlugin(t *testing.T) {
	resetForTest()
	destroyed := false
	Register("weather", func() plugin.Lifecycle {
		return &fakePlugin{meta: plugin.Metadata{Name: "weather"}}
	}, func(plugin.Lifecycle) { destroyed = true })

	require.True(t, IsStaticPlugin("weather"))
	require.False(t, IsStaticPlugin("nope"))

	inst, err := CreateStaticPlugin("weather")
	require.NoError(t, err)
	require.NotNil(t, inst)

	require.NoError(t, DestroyStaticPlugin("weather", inst))
	require.True(t, destroyed)

	_, err = CreateStaticPlugin("nope")
	require.Error(t, err)
}

func TestNamesAreAlphabetised(t *testing.T) {
	resetForTest()
	Register("zeta", func() plugin.Lifecycle { return &fakePlugin{} }, nil)
	Register("alpha", func() plugin.Lifecycle { return &fakePlugin{} }, nil)

	require.Equal(t, []string{"alpha", "zeta"}, Names())
}
