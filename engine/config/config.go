package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/emberglow/ember/engine/renderer/metadata"
)

type ApplicationConfig struct {
	Name     string `toml:"name"`
	Width    uint32 `toml:"width"`
	Height   uint32 `toml:"height"`
	LogLevel string `toml:"log_level"`
}

type RendererConfig struct {
	// Enables the Khronos validation layer and the debug messenger.
	Validation bool `toml:"validation"`
	// Prefer a discrete GPU during device selection.
	DiscreteGPU bool `toml:"discrete_gpu"`
}

type TextureConfig struct {
	/** @brief The maximum number of textures that can be loaded at once. */
	MaxTextureCount uint32 `toml:"max_texture_count"`
	DefaultFilter   string `toml:"default_filter"` // "linear" or "nearest"
	DefaultRepeat   string `toml:"default_repeat"` // "repeat", "mirrored", "clamp_edge", "clamp_border"
	Anisotropy      bool   `toml:"anisotropy"`
}

type AssetsConfig struct {
	// Directory watched for texture source changes. Empty disables the watcher.
	WatchDir string `toml:"watch_dir"`
}

type Config struct {
	Application ApplicationConfig `toml:"application"`
	Renderer    RendererConfig    `toml:"renderer"`
	Textures    TextureConfig     `toml:"textures"`
	Assets      AssetsConfig      `toml:"assets"`
}

func Default() *Config {
	return &Config{
		Application: ApplicationConfig{
			Name:     "Ember",
			Width:    1280,
			Height:   720,
			LogLevel: "info",
		},
		Renderer: RendererConfig{
			Validation:  true,
			DiscreteGPU: true,
		},
		Textures: TextureConfig{
			MaxTextureCount: 65536,
			DefaultFilter:   "linear",
			DefaultRepeat:   "repeat",
			Anisotropy:      true,
		},
	}
}

// Load reads a TOML file over the defaults. A missing file is not an
// error; the defaults are returned as-is.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if cfg.Textures.MaxTextureCount == 0 {
		return nil, fmt.Errorf("textures.max_texture_count must be > 0")
	}
	return cfg, nil
}

// DefaultSamplerConfig resolves the configured filter/repeat names into a
// sampler config, falling back to linear/repeat for unknown names.
func (c *Config) DefaultSamplerConfig() metadata.SamplerConfig {
	sc := metadata.DefaultSamplerConfig()
	sc.Anisotropy = c.Textures.Anisotropy

	if c.Textures.DefaultFilter == "nearest" {
		sc.FilterMinify = metadata.TextureFilterModeNearest
		sc.FilterMagnify = metadata.TextureFilterModeNearest
		sc.MipmapMode = metadata.TextureMipmapModeNearest
	}

	var repeat metadata.TextureRepeat
	switch c.Textures.DefaultRepeat {
	case "mirrored":
		repeat = metadata.TextureRepeatMirroredRepeat
	case "clamp_edge":
		repeat = metadata.TextureRepeatClampToEdge
	case "clamp_border":
		repeat = metadata.TextureRepeatClampToBorder
	default:
		repeat = metadata.TextureRepeatRepeat
	}
	sc.RepeatU = repeat
	sc.RepeatV = repeat
	sc.RepeatW = repeat
	return sc
}
