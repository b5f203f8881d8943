package systems

import (
	"github.com/emberglow/ember/engine/config"
	"github.com/emberglow/ember/engine/core"
	"github.com/emberglow/ember/engine/renderer"
	"github.com/emberglow/ember/engine/renderer/metadata"
)

// RendererSystem fronts the renderer backend for the other systems and keeps
// the resource metrics in step with what the backend actually did.
type RendererSystem struct {
	backend renderer.Backend
}

func NewRendererSystem(backend renderer.Backend) (*RendererSystem, error) {
	return &RendererSystem{
		backend: backend,
	}, nil
}

func (r *RendererSystem) Initialize(cfg *config.Config) error {
	return r.backend.Initialize(cfg)
}

func (r *RendererSystem) Shutdown() error {
	return r.backend.Shutdown()
}

// WaitIdle blocks until the device has drained all submitted work. Callers
// use it before destroying resources that in-flight commands may reference.
func (r *RendererSystem) WaitIdle() error {
	return r.backend.WaitIdle()
}

func (r *RendererSystem) TextureCreate(texture *metadata.Texture) error {
	if err := r.backend.TextureCreate(texture); err != nil {
		return err
	}
	core.MetricsTextureCreated()
	return nil
}

func (r *RendererSystem) TextureDestroy(texture *metadata.Texture) error {
	if err := r.backend.TextureDestroy(texture); err != nil {
		return err
	}
	core.MetricsTextureDestroyed()
	return nil
}

func (r *RendererSystem) TextureResize(texture *metadata.Texture, width, height uint32) error {
	return r.backend.TextureResize(texture, width, height)
}

func (r *RendererSystem) TextureWriteData(texture *metadata.Texture, pixels []uint8) error {
	return r.backend.TextureWriteData(texture, pixels)
}

func (r *RendererSystem) TextureTransitionLayout(texture *metadata.Texture, oldLayout, newLayout metadata.TextureLayout) error {
	if err := r.backend.TextureTransitionLayout(texture, oldLayout, newLayout); err != nil {
		return err
	}
	core.MetricsLayoutTransition()
	return nil
}

func (r *RendererSystem) TextureCopyRegion(dst, src *metadata.Texture, srcRegion, dstRegion metadata.Region) error {
	return r.backend.TextureCopyRegion(dst, src, srcRegion, dstRegion)
}

func (r *RendererSystem) SamplerCreate(cfg metadata.SamplerConfig) (*metadata.Sampler, error) {
	return r.backend.SamplerCreate(cfg)
}

func (r *RendererSystem) SamplerDestroy(sampler *metadata.Sampler) {
	r.backend.SamplerDestroy(sampler)
}
