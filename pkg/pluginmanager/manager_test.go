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

package pluginmanager

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/draconis-go/draconis/pkg/plugin"
	"github.com/draconis-go/draconis/pkg/staticplugin"
)

type fakeInfoProvider struct {
	meta       plugin.Metadata
	providerID string
	ready      bool
	shutdowns  int
}

func (f *fakeInfoProvider) GetMetadata() *plugin.Metadata { return &f.meta }
func (f *fakeInfoProvider) Initialize(plugin.Context, *plugin.Cache) error {
	f.ready = true
	return nil
}
func (f *fakeInfoProvider) Shutdown()    { f.shutdowns++; f.ready = false }
func (f *fakeInfoProvider) IsReady() bool { return f.ready }

func (f *fakeInfoProvider) GetProviderID() string                 { return f.providerID }
func (f *fakeInfoProvider) CollectData(*plugin.Cache) error        { return nil }
func (f *fakeInfoProvider) ToJSON() (string, error)                { return "{}", nil }
func (f *fakeInfoProvider) GetFields() map[string]string           { return nil }
func (f *fakeInfoProvider) GetDisplayValue() (string, error)       { return "", nil }
func (f *fakeInfoProvider) GetDisplayIcon() string                 { return "" }
func (f *fakeInfoProvider) GetDisplayLabel() string                { return "" }
func (f *fakeInfoProvider) GetLastError() (string, bool)           { return "", false }
func (f *fakeInfoProvider) IsEnabled() bool                        { return true }

func freshManager() *Manager {
	return newManager()
}

func registerFakeStatic(t *testing.T, name string) *fakeInfoProvider {
	t.Helper()
	inst := &fakeInfoProvider{
		meta:       plugin.Metadata{Name: name, Type: plugin.InfoProvider},
		providerID: name,
	}
	staticplugin.Register(name, func() plugin.Lifecycle { return inst }, func(plugin.Lifecycle) {})
	return inst
}

func TestLoadPluginTwiceProducesOneInstance(t *testing.T) {
	registerFakeStatic(t, "weather")
	m := freshManager()
	m.useStaticRegistry = true

	require.NoError(t, m.LoadPlugin("weather"))
	require.NoError(t, m.LoadPlugin("weather"))

	require.Equal(t, []string{"weather"}, m.ListLoadedPlugins())
}

func TestUnloadPluginShutsDownAndRemoves(t *testing.T) {
	inst := registerFakeStatic(t, "unload-me")
	m := freshManager()
	m.useStaticRegistry = true

	require.NoError(t, m.LoadPlugin("unload-me"))
	require.True(t, m.IsPluginLoaded("unload-me"))

	require.NoError(t, m.UnloadPlugin("unload-me"))
	require.False(t, m.IsPluginLoaded("unload-me"))
	require.Equal(t, 1, inst.shutdowns)
}

func TestGetInfoProviderByName(t *testing.T) {
	registerFakeStatic(t, "cpu-extra")
	m := freshManager()
	m.useStaticRegistry = true
	require.NoError(t, m.LoadPlugin("cpu-extra"))

	p, ok := m.GetInfoProviderByName("cpu-extra")
	require.True(t, ok)
	require.Equal(t, "cpu-extra", p.GetProviderID())

	_, ok = m.GetInfoProviderByName("does-not-exist")
	require.False(t, ok)
}

func TestLoadUnknownPluginFails(t *testing.T) {
	m := freshManager()
	err := m.LoadPlugin("nonexistent")
	require.Error(t, err)
}
