package systems

import (
	"errors"
	"testing"

	"github.com/emberglow/ember/engine/config"
	"github.com/emberglow/ember/engine/core"
	"github.com/emberglow/ember/engine/renderer/metadata"
)

// fakeBackend counts primitive invocations instead of touching a GPU.
type fakeBackend struct {
	samplerCreates int
	creates        int
	destroys       int
	writes         int
	copies         int
	resizes        int

	// Transition counts split by direction.
	toShaderRead  int
	toTransferDst int

	failSamplerCreate bool
}

func (f *fakeBackend) Initialize(cfg *config.Config) error { return nil }
func (f *fakeBackend) Shutdown() error                     { return nil }
func (f *fakeBackend) WaitIdle() error                     { return nil }

func (f *fakeBackend) TextureCreate(texture *metadata.Texture) error {
	f.creates++
	texture.InternalData = struct{}{}
	texture.Layout = metadata.TextureLayoutTransferDst
	return nil
}

func (f *fakeBackend) TextureDestroy(texture *metadata.Texture) error {
	f.destroys++
	texture.InternalData = nil
	return nil
}

func (f *fakeBackend) TextureResize(texture *metadata.Texture, width, height uint32) error {
	f.resizes++
	texture.Width = width
	texture.Height = height
	texture.Layout = metadata.TextureLayoutTransferDst
	return nil
}

func (f *fakeBackend) TextureWriteData(texture *metadata.Texture, pixels []uint8) error {
	if texture.Layout != metadata.TextureLayoutTransferDst {
		return core.ErrLayoutViolation
	}
	f.writes++
	return nil
}

func (f *fakeBackend) TextureTransitionLayout(texture *metadata.Texture, oldLayout, newLayout metadata.TextureLayout) error {
	if newLayout == metadata.TextureLayoutShaderReadOnly {
		f.toShaderRead++
	} else {
		f.toTransferDst++
	}
	return nil
}

func (f *fakeBackend) TextureCopyRegion(dst, src *metadata.Texture, srcRegion, dstRegion metadata.Region) error {
	if dst.Layout != metadata.TextureLayoutTransferDst {
		return core.ErrLayoutViolation
	}
	f.copies++
	return nil
}

func (f *fakeBackend) SamplerCreate(cfg metadata.SamplerConfig) (*metadata.Sampler, error) {
	if f.failSamplerCreate {
		return nil, core.ErrResourceExhaustion
	}
	f.samplerCreates++
	return &metadata.Sampler{Config: cfg, InternalData: struct{}{}}, nil
}

func (f *fakeBackend) SamplerDestroy(sampler *metadata.Sampler) {
	sampler.InternalData = nil
}

func newTestSystem(t *testing.T, maxTextures uint32) (*TextureSystem, *fakeBackend) {
	t.Helper()
	backend := &fakeBackend{}
	rs, err := NewRendererSystem(backend)
	if err != nil {
		t.Fatalf("NewRendererSystem: %v", err)
	}
	ts, err := NewTextureSystem(&TextureSystemConfig{
		MaxTextureCount:      maxTextures,
		DefaultSamplerConfig: metadata.DefaultSamplerConfig(),
	}, nil, rs)
	if err != nil {
		t.Fatalf("NewTextureSystem: %v", err)
	}
	return ts, backend
}

func mustCreate(t *testing.T, ts *TextureSystem, cfg metadata.SamplerConfig) uint32 {
	t.Helper()
	handle := ts.GenerateTextureID()
	if err := ts.CreateTexture(handle, 4, 4, metadata.TextureFormatR8G8B8A8Unorm, cfg); err != nil {
		t.Fatalf("CreateTexture(%d): %v", handle, err)
	}
	return handle
}

func TestSamplerSharedAcrossEqualConfigs(t *testing.T) {
	ts, backend := newTestSystem(t, 16)

	cfg := metadata.DefaultSamplerConfig()
	h1 := mustCreate(t, ts, cfg)
	h2 := mustCreate(t, ts, cfg)

	t1 := ts.GetTexture(h1)
	t2 := ts.GetTexture(h2)
	if t1.Sampler != t2.Sampler {
		t.Fatalf("equal configs must share one sampler object")
	}
	if backend.samplerCreates != 1 {
		t.Fatalf("sampler created %d times, want 1", backend.samplerCreates)
	}

	distinct := cfg
	distinct.FilterMinify = metadata.TextureFilterModeNearest
	h3 := mustCreate(t, ts, distinct)
	if ts.GetTexture(h3).Sampler == t1.Sampler {
		t.Fatalf("distinct configs must not share a sampler")
	}
	if backend.samplerCreates != 2 {
		t.Fatalf("sampler created %d times, want 2", backend.samplerCreates)
	}
}

func TestSamplerCreateFailurePropagates(t *testing.T) {
	ts, backend := newTestSystem(t, 16)
	backend.failSamplerCreate = true

	handle := ts.GenerateTextureID()
	err := ts.CreateTexture(handle, 4, 4, metadata.TextureFormatR8G8B8A8Unorm, metadata.DefaultSamplerConfig())
	if !errors.Is(err, core.ErrResourceExhaustion) {
		t.Fatalf("want ErrResourceExhaustion, got %v", err)
	}
	if ts.GetTexture(handle) != nil {
		t.Fatalf("failed creation must not register a record")
	}
}

func TestRebindReplacesSamplerOnly(t *testing.T) {
	ts, backend := newTestSystem(t, 16)

	cfg := metadata.DefaultSamplerConfig()
	handle := mustCreate(t, ts, cfg)
	before := backend.creates

	other := cfg
	other.RepeatU = metadata.TextureRepeatClampToEdge
	if err := ts.ApplySamplerInfoToTexture(handle, other); err != nil {
		t.Fatalf("ApplySamplerInfoToTexture: %v", err)
	}
	if got := ts.GetTexture(handle).Sampler.Config; got != other {
		t.Fatalf("sampler config not replaced: %+v", got)
	}
	if backend.creates != before {
		t.Fatalf("rebind must not recreate the image")
	}

	// Absent handles are tolerated.
	if err := ts.ApplySamplerInfoToTexture(999, other); err != nil {
		t.Fatalf("rebind on absent handle must be a no-op, got %v", err)
	}
}

func TestPrepareIsIdempotent(t *testing.T) {
	ts, backend := newTestSystem(t, 16)
	handle := mustCreate(t, ts, metadata.DefaultSamplerConfig())

	if err := ts.PrepareTexture(handle); err != nil {
		t.Fatalf("PrepareTexture: %v", err)
	}
	if err := ts.PrepareTexture(handle); err != nil {
		t.Fatalf("PrepareTexture: %v", err)
	}
	if backend.toShaderRead != 1 {
		t.Fatalf("double prepare recorded %d transitions, want 1", backend.toShaderRead)
	}

	src := &metadata.Texture{Width: 4, Height: 4}
	if err := ts.DrawToExistingTexture(handle, src, nil, nil); err != nil {
		t.Fatalf("DrawToExistingTexture: %v", err)
	}
	if err := ts.PrepareTexture(handle); err != nil {
		t.Fatalf("PrepareTexture: %v", err)
	}
	if backend.toShaderRead != 2 {
		t.Fatalf("prepare after draw recorded %d shader-read transitions, want 2", backend.toShaderRead)
	}
	if backend.toTransferDst != 1 {
		t.Fatalf("draw recorded %d unprepare transitions, want 1", backend.toTransferDst)
	}
}

func TestDrawRoundTrip(t *testing.T) {
	ts, backend := newTestSystem(t, 16)
	handle := mustCreate(t, ts, metadata.DefaultSamplerConfig())

	src := &metadata.Texture{Width: 4, Height: 4}
	if err := ts.DrawToExistingTexture(handle, src, nil, nil); err != nil {
		t.Fatalf("DrawToExistingTexture: %v", err)
	}
	if got := ts.GetTexture(handle).Layout; got != metadata.TextureLayoutTransferDst {
		t.Fatalf("after draw the record must be transfer-writable, got %s", got)
	}
	if backend.copies != 1 {
		t.Fatalf("recorded %d copies, want 1", backend.copies)
	}

	if err := ts.PrepareTexture(handle); err != nil {
		t.Fatalf("PrepareTexture: %v", err)
	}
	if got := ts.GetTexture(handle).Layout; got != metadata.TextureLayoutShaderReadOnly {
		t.Fatalf("after prepare the record must be shader-readable, got %s", got)
	}

	// A prepared destination is unprepared before the copy lands.
	if err := ts.DrawToExistingTexture(handle, src, nil, nil); err != nil {
		t.Fatalf("DrawToExistingTexture on prepared record: %v", err)
	}
	if got := ts.GetTexture(handle).Layout; got != metadata.TextureLayoutTransferDst {
		t.Fatalf("draw must leave the record transfer-writable, got %s", got)
	}
}

func TestDeleteFreesHandleAndState(t *testing.T) {
	ts, backend := newTestSystem(t, 16)

	h1 := mustCreate(t, ts, metadata.DefaultSamplerConfig())
	h2 := mustCreate(t, ts, metadata.DefaultSamplerConfig())
	if err := ts.PrepareTexture(h1); err != nil {
		t.Fatalf("PrepareTexture: %v", err)
	}

	if err := ts.DeleteTexture(h1); err != nil {
		t.Fatalf("DeleteTexture: %v", err)
	}
	if ts.GetTexture(h1) != nil {
		t.Fatalf("deleted handle must read as absent")
	}
	if backend.destroys != 1 {
		t.Fatalf("backend destroy called %d times, want 1", backend.destroys)
	}

	// Deleting again is a no-op.
	if err := ts.DeleteTexture(h1); err != nil {
		t.Fatalf("double delete: %v", err)
	}
	if backend.destroys != 1 {
		t.Fatalf("double delete must not hit the backend again")
	}

	// The recycled handle is reissued before the counter grows.
	if got := ts.GenerateTextureID(); got != h1 {
		t.Fatalf("GenerateTextureID after delete = %d, want %d", got, h1)
	}
	if got := ts.GenerateTextureID(); got != h2+1 {
		t.Fatalf("GenerateTextureID = %d, want %d", got, h2+1)
	}
}

func TestStrictHandlePathsFailFast(t *testing.T) {
	ts, _ := newTestSystem(t, 16)
	src := &metadata.Texture{Width: 4, Height: 4}

	if err := ts.PrepareTexture(42); !errors.Is(err, core.ErrInvalidHandle) {
		t.Fatalf("PrepareTexture on absent handle: want ErrInvalidHandle, got %v", err)
	}
	if err := ts.DrawToExistingTexture(42, src, nil, nil); !errors.Is(err, core.ErrInvalidHandle) {
		t.Fatalf("DrawToExistingTexture on absent handle: want ErrInvalidHandle, got %v", err)
	}
	if err := ts.WriteTexturePixels(42, make([]uint8, 64)); !errors.Is(err, core.ErrInvalidHandle) {
		t.Fatalf("WriteTexturePixels on absent handle: want ErrInvalidHandle, got %v", err)
	}
	if err := ts.ResizeTexture(42, 8, 8); !errors.Is(err, core.ErrInvalidHandle) {
		t.Fatalf("ResizeTexture on absent handle: want ErrInvalidHandle, got %v", err)
	}
	if ts.GetTexture(42) != nil {
		t.Fatalf("GetTexture on absent handle must return nil")
	}
	if err := ts.DeleteTexture(42); err != nil {
		t.Fatalf("DeleteTexture on absent handle must be a no-op, got %v", err)
	}
}

func TestWritePixelsUnpreparesFirst(t *testing.T) {
	ts, backend := newTestSystem(t, 16)
	handle := mustCreate(t, ts, metadata.DefaultSamplerConfig())

	if err := ts.PrepareTexture(handle); err != nil {
		t.Fatalf("PrepareTexture: %v", err)
	}
	if err := ts.WriteTexturePixels(handle, make([]uint8, 4*4*4)); err != nil {
		t.Fatalf("WriteTexturePixels: %v", err)
	}
	if backend.toTransferDst != 1 {
		t.Fatalf("write to prepared record must unprepare once, got %d", backend.toTransferDst)
	}
	if got := ts.GetTexture(handle).Generation; got != 1 {
		t.Fatalf("generation = %d, want 1 after upload", got)
	}
}

func TestResizeResetsLayoutState(t *testing.T) {
	ts, backend := newTestSystem(t, 16)
	handle := mustCreate(t, ts, metadata.DefaultSamplerConfig())

	if err := ts.PrepareTexture(handle); err != nil {
		t.Fatalf("PrepareTexture: %v", err)
	}
	if err := ts.ResizeTexture(handle, 8, 8); err != nil {
		t.Fatalf("ResizeTexture: %v", err)
	}

	texture := ts.GetTexture(handle)
	if texture.Layout != metadata.TextureLayoutTransferDst {
		t.Fatalf("resize must reset layout to transfer-writable, got %s", texture.Layout)
	}
	if texture.Width != 8 || texture.Height != 8 {
		t.Fatalf("resize did not apply: %dx%d", texture.Width, texture.Height)
	}
	if backend.resizes != 1 {
		t.Fatalf("backend resize called %d times, want 1", backend.resizes)
	}

	// Same-size resize is a no-op.
	if err := ts.ResizeTexture(handle, 8, 8); err != nil {
		t.Fatalf("same-size resize: %v", err)
	}
	if backend.resizes != 1 {
		t.Fatalf("same-size resize must not hit the backend")
	}
}

func TestAcquireWriteableTexture(t *testing.T) {
	ts, _ := newTestSystem(t, 16)

	t1, err := ts.AcquireWriteableTexture(32, 32, metadata.TextureFormatR8G8B8A8Unorm, metadata.DefaultSamplerConfig())
	if err != nil {
		t.Fatalf("AcquireWriteableTexture: %v", err)
	}
	t2, err := ts.AcquireWriteableTexture(32, 32, metadata.TextureFormatR8G8B8A8Unorm, metadata.DefaultSamplerConfig())
	if err != nil {
		t.Fatalf("AcquireWriteableTexture: %v", err)
	}

	if t1.Flags&metadata.TextureFlagBits(metadata.TextureFlagIsWriteable) == 0 {
		t.Fatalf("writeable flag not set")
	}
	if t1.Name == t2.Name {
		t.Fatalf("writeable textures must get unique names, both %q", t1.Name)
	}
	if ts.GetTexture(t1.ID) != t1 {
		t.Fatalf("writeable texture not registered under its handle")
	}
}

func TestMaxTextureCountEnforced(t *testing.T) {
	ts, _ := newTestSystem(t, 1)

	mustCreate(t, ts, metadata.DefaultSamplerConfig())
	handle := ts.GenerateTextureID()
	err := ts.CreateTexture(handle, 4, 4, metadata.TextureFormatR8G8B8A8Unorm, metadata.DefaultSamplerConfig())
	if !errors.Is(err, core.ErrResourceExhaustion) {
		t.Fatalf("want ErrResourceExhaustion when full, got %v", err)
	}
}

func TestCreateOnLiveHandleRejected(t *testing.T) {
	ts, _ := newTestSystem(t, 16)
	handle := mustCreate(t, ts, metadata.DefaultSamplerConfig())

	err := ts.CreateTexture(handle, 4, 4, metadata.TextureFormatR8G8B8A8Unorm, metadata.DefaultSamplerConfig())
	if !errors.Is(err, core.ErrInvalidHandle) {
		t.Fatalf("create on live handle: want ErrInvalidHandle, got %v", err)
	}
}

func TestDefaultTexturePattern(t *testing.T) {
	pixels := defaultTexturePixels()
	if len(pixels) != int(defaultTextureDimension*defaultTextureDimension*4) {
		t.Fatalf("unexpected pixel buffer size %d", len(pixels))
	}

	// Top-left cell is blue, the next cell over is white.
	if pixels[0] != 0 || pixels[2] != 255 || pixels[3] != 255 {
		t.Fatalf("top-left pixel not opaque blue: %v", pixels[:4])
	}
	offset := 8 * 4
	if pixels[offset] != 255 || pixels[offset+1] != 255 || pixels[offset+2] != 255 {
		t.Fatalf("neighbor cell not white: %v", pixels[offset:offset+4])
	}
}

func TestShutdownDestroysEverything(t *testing.T) {
	ts, backend := newTestSystem(t, 16)

	mustCreate(t, ts, metadata.DefaultSamplerConfig())
	mustCreate(t, ts, metadata.DefaultSamplerConfig())
	if err := ts.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if backend.destroys != 2 {
		t.Fatalf("shutdown destroyed %d textures, want 2", backend.destroys)
	}
	// The pool restarts from zero.
	if got := ts.GenerateTextureID(); got != 0 {
		t.Fatalf("GenerateTextureID after shutdown = %d, want 0", got)
	}
}
