package systems

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/emberglow/ember/engine/assets"
	"github.com/emberglow/ember/engine/containers"
	"github.com/emberglow/ember/engine/core"
	"github.com/emberglow/ember/engine/renderer/metadata"
)

type TextureSystemConfig struct {
	/** @brief The maximum number of textures that can be loaded at once. */
	MaxTextureCount uint32
	/** @brief The sampler config applied when a caller does not name one. */
	DefaultSamplerConfig metadata.SamplerConfig
}

// TextureSystem owns every managed texture: handle issue and recycling, the
// registry of live records, the sampler cache and each record's layout state.
// Apart from handle generation, which is internally locked, all calls must
// come from the render thread.
type TextureSystem struct {
	config *TextureSystemConfig

	handles    *containers.HandlePool[uint32]
	registered map[uint32]*metadata.Texture
	samplers   map[metadata.SamplerConfig]*metadata.Sampler

	// Maps a watched asset path to the handle its pixels feed.
	assetBindings map[string]uint32

	defaultTexture *metadata.Texture

	assetManager *assets.AssetManager
	renderer     *RendererSystem
}

func NewTextureSystem(config *TextureSystemConfig, am *assets.AssetManager, r *RendererSystem) (*TextureSystem, error) {
	if config.MaxTextureCount == 0 {
		err := fmt.Errorf("func NewTextureSystem - config.MaxTextureCount must be > 0")
		core.LogFatal(err.Error())
		return nil, err
	}

	return &TextureSystem{
		config:        config,
		handles:       containers.NewHandlePool[uint32](),
		registered:    make(map[uint32]*metadata.Texture),
		samplers:      make(map[metadata.SamplerConfig]*metadata.Sampler),
		assetBindings: make(map[string]uint32),
		assetManager:  am,
		renderer:      r,
	}, nil
}

// Initialize creates the default fallback texture. Requires the renderer
// system to be initialized already.
func (ts *TextureSystem) Initialize() error {
	handle := ts.GenerateTextureID()
	if err := ts.CreateTexture(handle, defaultTextureDimension, defaultTextureDimension,
		metadata.TextureFormatR8G8B8A8Unorm, ts.config.DefaultSamplerConfig); err != nil {
		return err
	}
	if err := ts.WriteTexturePixels(handle, defaultTexturePixels()); err != nil {
		return err
	}

	ts.defaultTexture = ts.registered[handle]
	ts.defaultTexture.Name = metadata.DEFAULT_TEXTURE_NAME
	return nil
}

func (ts *TextureSystem) Shutdown() error {
	// The caller is responsible for a device idle-wait before teardown.
	for handle, t := range ts.registered {
		if err := ts.renderer.TextureDestroy(t); err != nil {
			return err
		}
		delete(ts.registered, handle)
	}
	for cfg, sampler := range ts.samplers {
		ts.renderer.SamplerDestroy(sampler)
		delete(ts.samplers, cfg)
	}
	ts.defaultTexture = nil
	ts.assetBindings = make(map[string]uint32)
	ts.handles.Reset()
	return nil
}

/**
 * @brief Issues a new texture handle. The lowest previously recycled handle
 * is reused first; otherwise the next never-used integer starting at 0.
 * Safe to call off the render thread.
 */
func (ts *TextureSystem) GenerateTextureID() uint32 {
	return ts.handles.Allocate()
}

/**
 * @brief Allocates the GPU image for handle and registers the record. The
 * handle must have been issued by GenerateTextureID and must not be live.
 * The record starts in the transfer-writable layout.
 */
func (ts *TextureSystem) CreateTexture(handle uint32, width, height uint32, format metadata.TextureFormat, samplerConfig metadata.SamplerConfig) error {
	if _, exists := ts.registered[handle]; exists {
		return fmt.Errorf("texture handle %d is already live: %w", handle, core.ErrInvalidHandle)
	}
	if uint32(len(ts.registered)) >= ts.config.MaxTextureCount {
		return fmt.Errorf("texture system is full (%d textures): %w", ts.config.MaxTextureCount, core.ErrResourceExhaustion)
	}

	sampler, err := ts.getOrCreateSampler(samplerConfig)
	if err != nil {
		return err
	}

	texture := &metadata.Texture{
		ID:         handle,
		Width:      width,
		Height:     height,
		Format:     format,
		Layout:     metadata.TextureLayoutTransferDst,
		Generation: 0,
		Name:       fmt.Sprintf("texture_%d", handle),
		Sampler:    sampler,
	}

	if err := ts.renderer.TextureCreate(texture); err != nil {
		return err
	}

	ts.registered[handle] = texture
	return nil
}

/**
 * @brief Replaces the sampler the record is bound to, resolving through the
 * cache. The image is untouched. A no-op when the handle has no record.
 */
func (ts *TextureSystem) ApplySamplerInfoToTexture(handle uint32, samplerConfig metadata.SamplerConfig) error {
	texture, exists := ts.registered[handle]
	if !exists {
		core.LogWarn("ApplySamplerInfoToTexture called for absent handle %d, ignoring", handle)
		return nil
	}

	sampler, err := ts.getOrCreateSampler(samplerConfig)
	if err != nil {
		return err
	}
	texture.Sampler = sampler
	return nil
}

/** @brief Returns the record for handle, or nil when not live. Never errors. */
func (ts *TextureSystem) GetTexture(handle uint32) *metadata.Texture {
	return ts.registered[handle]
}

/** @brief Returns the fallback checkerboard texture. */
func (ts *TextureSystem) GetDefaultTexture() *metadata.Texture {
	return ts.defaultTexture
}

/**
 * @brief Destroys the record's GPU resources, drops it from the registry and
 * recycles the handle. Deleting an absent handle is a no-op. The shared
 * sampler stays in the cache.
 */
func (ts *TextureSystem) DeleteTexture(handle uint32) error {
	texture, exists := ts.registered[handle]
	if !exists {
		return nil
	}

	if err := ts.renderer.TextureDestroy(texture); err != nil {
		return err
	}

	delete(ts.registered, handle)
	ts.handles.Recycle(handle)

	for path, h := range ts.assetBindings {
		if h == handle {
			delete(ts.assetBindings, path)
		}
	}
	return nil
}

/**
 * @brief Moves the record into the shader-readable layout if it is not there
 * already. Idempotent: a prepared record records no second barrier. Absent
 * handles are an error.
 */
func (ts *TextureSystem) PrepareTexture(handle uint32) error {
	texture, exists := ts.registered[handle]
	if !exists {
		return fmt.Errorf("prepare on absent texture handle %d: %w", handle, core.ErrInvalidHandle)
	}
	if texture.Layout == metadata.TextureLayoutShaderReadOnly {
		return nil
	}

	if err := ts.renderer.TextureTransitionLayout(texture,
		metadata.TextureLayoutTransferDst, metadata.TextureLayoutShaderReadOnly); err != nil {
		return err
	}
	texture.Layout = metadata.TextureLayoutShaderReadOnly
	return nil
}

// unprepareTexture returns a shader-readable record to the transfer-writable
// layout. No-op when already writable.
func (ts *TextureSystem) unprepareTexture(texture *metadata.Texture) error {
	if texture.Layout == metadata.TextureLayoutTransferDst {
		return nil
	}
	if err := ts.renderer.TextureTransitionLayout(texture,
		metadata.TextureLayoutShaderReadOnly, metadata.TextureLayoutTransferDst); err != nil {
		return err
	}
	texture.Layout = metadata.TextureLayoutTransferDst
	return nil
}

/**
 * @brief Copies a region of src into the record for handle. The destination
 * is returned to the transfer-writable layout first when needed, and is left
 * there afterwards; callers must PrepareTexture again before sampling. Nil
 * regions mean the full image on that side, with the destination extent
 * driving the copy.
 */
func (ts *TextureSystem) DrawToExistingTexture(handle uint32, src *metadata.Texture, srcRegion, dstRegion *metadata.Region) error {
	texture, exists := ts.registered[handle]
	if !exists {
		return fmt.Errorf("draw to absent texture handle %d: %w", handle, core.ErrInvalidHandle)
	}
	if src == nil {
		return fmt.Errorf("draw to texture %d with nil source", handle)
	}

	sr := metadata.FullRegion(src.Width, src.Height)
	if srcRegion != nil {
		sr = *srcRegion
	}
	dr := metadata.FullRegion(src.Width, src.Height)
	if dstRegion != nil {
		dr = *dstRegion
	}

	if err := ts.unprepareTexture(texture); err != nil {
		return err
	}
	return ts.renderer.TextureCopyRegion(texture, src, sr, dr)
}

/**
 * @brief Uploads tightly packed pixels covering the whole image. The record
 * is returned to the transfer-writable layout first when needed and stays
 * there. Bumps the record's generation.
 */
func (ts *TextureSystem) WriteTexturePixels(handle uint32, pixels []uint8) error {
	texture, exists := ts.registered[handle]
	if !exists {
		return fmt.Errorf("pixel write to absent texture handle %d: %w", handle, core.ErrInvalidHandle)
	}

	if err := ts.unprepareTexture(texture); err != nil {
		return err
	}
	if err := ts.renderer.TextureWriteData(texture, pixels); err != nil {
		return err
	}
	texture.Generation++
	return nil
}

/**
 * @brief Allocates a handle and creates an anonymous writeable texture in
 * one call. The record gets a unique generated name.
 */
func (ts *TextureSystem) AcquireWriteableTexture(width, height uint32, format metadata.TextureFormat, samplerConfig metadata.SamplerConfig) (*metadata.Texture, error) {
	handle := ts.GenerateTextureID()
	if err := ts.CreateTexture(handle, width, height, format, samplerConfig); err != nil {
		ts.handles.Recycle(handle)
		return nil, err
	}

	texture := ts.registered[handle]
	texture.Name = fmt.Sprintf("writeable_%s", uuid.New().String())
	texture.Flags |= metadata.TextureFlagBits(metadata.TextureFlagIsWriteable)
	return texture, nil
}

/**
 * @brief Recreates the image for handle at new dimensions. Contents are
 * dropped, the handle and sampler binding survive and the layout state
 * resets to transfer-writable.
 */
func (ts *TextureSystem) ResizeTexture(handle uint32, width, height uint32) error {
	texture, exists := ts.registered[handle]
	if !exists {
		return fmt.Errorf("resize of absent texture handle %d: %w", handle, core.ErrInvalidHandle)
	}
	if width == 0 || height == 0 {
		return fmt.Errorf("resize of texture %d to zero extent %dx%d", handle, width, height)
	}
	if texture.Width == width && texture.Height == height {
		return nil
	}

	if err := ts.renderer.TextureResize(texture, width, height); err != nil {
		return err
	}
	texture.Layout = metadata.TextureLayoutTransferDst
	texture.Generation++
	return nil
}

// getOrCreateSampler resolves a config through the cache. One GPU sampler
// exists per distinct config; creation failure propagates to the caller.
func (ts *TextureSystem) getOrCreateSampler(samplerConfig metadata.SamplerConfig) (*metadata.Sampler, error) {
	if sampler, ok := ts.samplers[samplerConfig]; ok {
		core.MetricsSamplerLookup(true)
		return sampler, nil
	}
	core.MetricsSamplerLookup(false)

	sampler, err := ts.renderer.SamplerCreate(samplerConfig)
	if err != nil {
		return nil, err
	}
	ts.samplers[samplerConfig] = sampler
	return sampler, nil
}

/**
 * @brief Loads the image at path, creates a texture for it and binds the
 * path so later file changes re-upload through ReloadFromPath.
 */
func (ts *TextureSystem) CreateTextureFromFile(path string, samplerConfig metadata.SamplerConfig) (uint32, error) {
	if ts.assetManager == nil {
		return metadata.InvalidID, fmt.Errorf("texture system has no asset manager")
	}

	resource, err := ts.assetManager.LoadAsset(path, &metadata.ImageResourceParams{FlipY: false})
	if err != nil {
		return metadata.InvalidID, err
	}
	defer ts.assetManager.UnloadAsset(resource)

	pixelData, ok := resource.Data.(*metadata.PixelData)
	if !ok {
		return metadata.InvalidID, fmt.Errorf("asset %s did not decode to pixel data", path)
	}

	handle := ts.GenerateTextureID()
	if err := ts.CreateTexture(handle, pixelData.Width, pixelData.Height,
		metadata.TextureFormatR8G8B8A8Unorm, samplerConfig); err != nil {
		ts.handles.Recycle(handle)
		return metadata.InvalidID, err
	}
	if err := ts.WriteTexturePixels(handle, pixelData.Pixels); err != nil {
		ts.DeleteTexture(handle)
		return metadata.InvalidID, err
	}

	ts.registered[handle].Name = path
	ts.assetBindings[path] = handle
	return handle, nil
}

/**
 * @brief Re-uploads a changed asset file into the texture bound to it,
 * resizing when the decoded dimensions moved. Unknown paths are ignored so
 * the watcher can fire for files the system never loaded.
 */
func (ts *TextureSystem) ReloadFromPath(path string) error {
	handle, bound := ts.assetBindings[path]
	if !bound {
		return nil
	}
	texture, exists := ts.registered[handle]
	if !exists {
		delete(ts.assetBindings, path)
		return nil
	}

	resource, err := ts.assetManager.LoadAsset(path, &metadata.ImageResourceParams{FlipY: false})
	if err != nil {
		return err
	}
	defer ts.assetManager.UnloadAsset(resource)

	pixelData, ok := resource.Data.(*metadata.PixelData)
	if !ok {
		return fmt.Errorf("asset %s did not decode to pixel data", path)
	}

	if texture.Width != pixelData.Width || texture.Height != pixelData.Height {
		if err := ts.ResizeTexture(handle, pixelData.Width, pixelData.Height); err != nil {
			return err
		}
	}
	if err := ts.WriteTexturePixels(handle, pixelData.Pixels); err != nil {
		return err
	}

	core.LogInfo("reloaded texture %d from %s (generation %d)", handle, path, texture.Generation)
	return nil
}

/**
 * @brief Parses a bitmap font descriptor and uploads each atlas page as its
 * own texture. Returns the font data and the page handles, in page order.
 */
func (ts *TextureSystem) LoadBitmapFont(path string, samplerConfig metadata.SamplerConfig) (*metadata.BitmapFontData, []uint32, error) {
	if ts.assetManager == nil {
		return nil, nil, fmt.Errorf("texture system has no asset manager")
	}

	resource, err := ts.assetManager.LoadAsset(path, nil)
	if err != nil {
		return nil, nil, err
	}
	fontData, ok := resource.Data.(*metadata.BitmapFontData)
	if !ok {
		return nil, nil, fmt.Errorf("asset %s did not parse as a bitmap font", path)
	}

	handles := make([]uint32, 0, len(fontData.PageFiles))
	for _, pageFile := range fontData.PageFiles {
		handle, err := ts.CreateTextureFromFile(pageFile, samplerConfig)
		if err != nil {
			for _, h := range handles {
				ts.DeleteTexture(h)
			}
			return nil, nil, fmt.Errorf("failed to upload font page %s: %w", pageFile, err)
		}
		handles = append(handles, handle)
	}
	return fontData, handles, nil
}

const defaultTextureDimension uint32 = 256

// defaultTexturePixels builds the blue/white checkerboard used when an asset
// is missing.
func defaultTexturePixels() []uint8 {
	const dim = defaultTextureDimension
	const channels = 4
	const cell = 8

	pixels := make([]uint8, dim*dim*channels)
	for row := uint32(0); row < dim; row++ {
		for col := uint32(0); col < dim; col++ {
			index := (row*dim + col) * channels
			if ((row/cell)+(col/cell))%2 == 0 {
				pixels[index+0] = 0
				pixels[index+1] = 0
				pixels[index+2] = 255
			} else {
				pixels[index+0] = 255
				pixels[index+1] = 255
				pixels[index+2] = 255
			}
			pixels[index+3] = 255
		}
	}
	return pixels
}
