// Package config loads the engine configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Carmen-Shannon/oxy-frame/engine/log"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer"
	"gopkg.in/yaml.v3"
)

// Filename is the config file the engine looks for next to the executable.
const Filename = "oxy-frame.yml"

// Config is the full engine configuration.
type Config struct {
	Backend          string         `yaml:"backend"`
	MaxTexturedQuads int            `yaml:"max_textured_quads"`
	MaxDebugRects    int            `yaml:"max_debug_rects"`
	TickRate         float64        `yaml:"tick_rate"`
	Headless         bool           `yaml:"headless"`
	Window           WindowConfig   `yaml:"window"`
	ClearColor       *[4]float32    `yaml:"clear_color"` // pointer to distinguish unset from black
	Log              LogConfig      `yaml:"log"`
	Profiler         ProfilerConfig `yaml:"profiler"`
	Soft             SoftConfig     `yaml:"soft"`
	WGPU             WGPUConfig     `yaml:"wgpu"`
}

type WindowConfig struct {
	Title     string `yaml:"title"`
	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`
	MinWidth  int    `yaml:"min_width"`
	MinHeight int    `yaml:"min_height"`
	MaxWidth  int    `yaml:"max_width"`
	MaxHeight int    `yaml:"max_height"`
	VSync     bool   `yaml:"vsync"`
}

type LogConfig struct {
	Level   string `yaml:"level"`
	Dir     string `yaml:"dir"`
	Console bool   `yaml:"console"`
}

type ProfilerConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

// SoftConfig configures the software device.
type SoftConfig struct {
	// Workers is the rasterizer pool size. Zero uses one worker per CPU.
	Workers int `yaml:"workers"`
}

type WGPUConfig struct {
	ForceFallbackAdapter bool `yaml:"force_fallback_adapter"`
}

// Default returns the configuration used when no file is present.
//
// Returns:
//   - Config: the defaults
func Default() Config {
	var c Config
	c.fillDefaults()
	return c
}

// Load reads and validates a config file. Missing keys take their default value.
//
// Parameters:
//   - path: the YAML file
//
// Returns:
//   - Config: the configuration
//   - error: error if the file cannot be read, parsed or fails validation
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(data)
}

// LoadOrDefault loads path when it exists and falls back to Default otherwise.
//
// Parameters:
//   - path: the YAML file
//
// Returns:
//   - Config: the configuration
//   - error: error if the file exists but cannot be loaded
func LoadOrDefault(path string) (Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return Load(path)
}

// Parse decodes and validates YAML config data.
//
// Parameters:
//   - data: the YAML document
//
// Returns:
//   - Config: the configuration
//   - error: error if the data cannot be parsed or fails validation
func Parse(data []byte) (Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	c.fillDefaults()
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) fillDefaults() {
	if c.Backend == "" {
		c.Backend = renderer.BackendTypeGL.String()
	}
	if c.MaxTexturedQuads == 0 {
		c.MaxTexturedQuads = 1000
	}
	if c.MaxDebugRects == 0 {
		c.MaxDebugRects = 1000
	}
	if c.TickRate == 0 {
		c.TickRate = 60
	}
	if c.Window.Title == "" {
		c.Window.Title = "oxy-frame"
	}
	if c.Window.Width == 0 {
		c.Window.Width = 1280
	}
	if c.Window.Height == 0 {
		c.Window.Height = 720
	}
	if c.Window.MinWidth == 0 {
		c.Window.MinWidth = 320
	}
	if c.Window.MinHeight == 0 {
		c.Window.MinHeight = 200
	}
	if c.Window.MaxWidth == 0 {
		c.Window.MaxWidth = 3840
	}
	if c.Window.MaxHeight == 0 {
		c.Window.MaxHeight = 2160
	}
	if c.ClearColor == nil {
		c.ClearColor = &[4]float32{1, 1, 1, 1}
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Dir == "" {
		c.Log.Dir = "logs"
	}
	if c.Profiler.Interval == 0 {
		c.Profiler.Interval = time.Second
	}
}

// Validate reports the first invalid setting.
//
// Returns:
//   - error: nil if the configuration is usable
func (c *Config) Validate() error {
	backend, err := renderer.ParseBackendType(c.Backend)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Headless && backend.NeedsWindowContext() {
		return fmt.Errorf("config: backend %s cannot run headless", backend)
	}
	if c.TickRate < 0 {
		return fmt.Errorf("config: tick_rate must not be negative, got %g", c.TickRate)
	}
	if c.MaxTexturedQuads < 0 {
		return fmt.Errorf("config: max_textured_quads must not be negative, got %d", c.MaxTexturedQuads)
	}
	if c.MaxDebugRects < 0 {
		return fmt.Errorf("config: max_debug_rects must not be negative, got %d", c.MaxDebugRects)
	}
	w := c.Window
	if w.Width <= 0 || w.Height <= 0 {
		return fmt.Errorf("config: window size must be positive, got %dx%d", w.Width, w.Height)
	}
	if w.MinWidth > w.MaxWidth || w.MinHeight > w.MaxHeight {
		return fmt.Errorf("config: window min size %dx%d exceeds max size %dx%d", w.MinWidth, w.MinHeight, w.MaxWidth, w.MaxHeight)
	}
	if c.ClearColor != nil {
		for i, v := range c.ClearColor {
			if v < 0 || v > 1 {
				return fmt.Errorf("config: clear_color[%d] must be in [0, 1], got %g", i, v)
			}
		}
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Profiler.Interval < 0 {
		return fmt.Errorf("config: profiler interval must not be negative, got %s", c.Profiler.Interval)
	}
	if c.Soft.Workers < 0 {
		return fmt.Errorf("config: soft.workers must not be negative, got %d", c.Soft.Workers)
	}
	return nil
}
