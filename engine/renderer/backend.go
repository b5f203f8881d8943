package renderer

import (
	"github.com/emberglow/ember/engine/config"
	"github.com/emberglow/ember/engine/renderer/metadata"
)

// Backend is the GPU primitive surface the texture system records against.
// Commands issued here are ordered by recording call order; nothing blocks
// on GPU execution except WaitIdle.
type Backend interface {
	Initialize(cfg *config.Config) error
	Shutdown() error
	// WaitIdle blocks until the device has drained all submitted work. The
	// frame-flip orchestrator calls this before textures are deleted.
	WaitIdle() error

	// TextureCreate allocates the image, backing memory and view for the
	// record and leaves the image in the transfer-writable layout.
	TextureCreate(texture *metadata.Texture) error
	TextureDestroy(texture *metadata.Texture) error
	// TextureResize recreates the image at new dimensions. Contents are
	// dropped and the image returns to the transfer-writable layout.
	TextureResize(texture *metadata.Texture, width, height uint32) error
	// TextureWriteData uploads tightly packed pixels covering the whole
	// image through a staging buffer. Requires the transfer-writable layout.
	TextureWriteData(texture *metadata.Texture, pixels []uint8) error
	// TextureTransitionLayout records a barrier moving the image between
	// the transfer-writable and shader-readable layouts.
	TextureTransitionLayout(texture *metadata.Texture, oldLayout, newLayout metadata.TextureLayout) error
	// TextureCopyRegion records a region copy from src into dst. Both
	// regions must already be clipped; dst must be transfer-writable.
	TextureCopyRegion(dst, src *metadata.Texture, srcRegion, dstRegion metadata.Region) error

	SamplerCreate(cfg metadata.SamplerConfig) (*metadata.Sampler, error)
	SamplerDestroy(sampler *metadata.Sampler)
}
