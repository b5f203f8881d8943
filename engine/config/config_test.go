package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/emberglow/ember/engine/renderer/metadata"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Application.Name != "Ember" || cfg.Textures.MaxTextureCount == 0 {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ember.toml")
	body := `
[application]
name = "demo"
width = 640
height = 480
log_level = "debug"

[textures]
max_texture_count = 128
default_filter = "nearest"
default_repeat = "clamp_edge"
anisotropy = false
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Application.Name != "demo" || cfg.Application.Width != 640 {
		t.Fatalf("application section not applied: %+v", cfg.Application)
	}
	if cfg.Textures.MaxTextureCount != 128 {
		t.Fatalf("MaxTextureCount = %d, want 128", cfg.Textures.MaxTextureCount)
	}
	// Untouched sections keep defaults.
	if !cfg.Renderer.Validation {
		t.Fatalf("renderer defaults lost: %+v", cfg.Renderer)
	}

	sc := cfg.DefaultSamplerConfig()
	if sc.FilterMinify != metadata.TextureFilterModeNearest {
		t.Fatalf("FilterMinify = %v, want nearest", sc.FilterMinify)
	}
	if sc.RepeatU != metadata.TextureRepeatClampToEdge {
		t.Fatalf("RepeatU = %v, want clamp_edge", sc.RepeatU)
	}
	if sc.Anisotropy {
		t.Fatal("Anisotropy should be disabled")
	}
}

func TestLoadRejectsZeroTextureCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ember.toml")
	if err := os.WriteFile(path, []byte("[textures]\nmax_texture_count = 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for zero max_texture_count")
	}
}
