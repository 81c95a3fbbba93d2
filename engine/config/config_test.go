package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, "gl", c.Backend)
	assert.Equal(t, 1000, c.MaxTexturedQuads)
	assert.Equal(t, [4]float32{1, 1, 1, 1}, *c.ClearColor)
	assert.Equal(t, time.Second, c.Profiler.Interval)
	assert.Equal(t, 60.0, c.TickRate)
	assert.False(t, c.Headless)
}

func TestParseHeadlessWebGPU(t *testing.T) {
	c, err := Parse([]byte(`
backend: webgpu
headless: true
wgpu:
  force_fallback_adapter: true
window:
  vsync: true
`))
	require.NoError(t, err)
	assert.True(t, c.Headless)
	assert.True(t, c.WGPU.ForceFallbackAdapter)
	assert.True(t, c.Window.VSync)
}

func TestParseFillsMissingKeys(t *testing.T) {
	c, err := Parse([]byte(`
backend: soft
max_textured_quads: 64
clear_color: [0, 0, 0, 1]
window:
  title: sandbox
  width: 320
  height: 240
profiler:
  enabled: true
  interval: 250ms
soft:
  workers: 2
`))
	require.NoError(t, err)

	assert.Equal(t, "soft", c.Backend)
	assert.Equal(t, 64, c.MaxTexturedQuads)
	assert.Equal(t, 1000, c.MaxDebugRects)
	assert.Equal(t, "sandbox", c.Window.Title)
	assert.Equal(t, 320, c.Window.Width)
	assert.Equal(t, 200, c.Window.MinHeight)
	assert.Equal(t, [4]float32{0, 0, 0, 1}, *c.ClearColor)
	assert.True(t, c.Profiler.Enabled)
	assert.Equal(t, 250*time.Millisecond, c.Profiler.Interval)
	assert.Equal(t, 2, c.Soft.Workers)
	assert.Equal(t, "info", c.Log.Level)
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown backend", "backend: vulkan"},
		{"negative capacity", "max_textured_quads: -1"},
		{"clear color range", "clear_color: [2, 0, 0, 1]"},
		{"log level", "log: {level: loud}"},
		{"window bounds", "window: {min_width: 900, max_width: 800}"},
		{"negative workers", "soft: {workers: -3}"},
		{"headless gl", "headless: true"},
		{"negative tick rate", "tick_rate: -5"},
		{"malformed", "backend: [gl"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadOrDefault(t *testing.T) {
	dir := t.TempDir()

	c, err := LoadOrDefault(filepath.Join(dir, Filename))
	require.NoError(t, err)
	assert.Equal(t, Default().Backend, c.Backend)

	path := filepath.Join(dir, Filename)
	require.NoError(t, os.WriteFile(path, []byte("backend: wgpu\n"), 0o644))
	c, err = LoadOrDefault(path)
	require.NoError(t, err)
	assert.Equal(t, "wgpu", c.Backend)

	require.NoError(t, os.WriteFile(path, []byte("backend: nope\n"), 0o644))
	_, err = LoadOrDefault(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
