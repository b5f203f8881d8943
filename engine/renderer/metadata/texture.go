package metadata

/** @brief An invalid id, used to mark unassigned handles and generations. */
const InvalidID uint32 = 0xFFFFFFFF

/** @brief The name of the default fallback texture. */
const DEFAULT_TEXTURE_NAME string = "default"

/**
 * @brief Pixel formats supported for managed texture images.
 */
type TextureFormat int

const (
	/** @brief 8-bit per channel RGBA, unsigned normalized. */
	TextureFormatR8G8B8A8Unorm TextureFormat = iota
	/** @brief 8-bit per channel RGBA, sRGB. */
	TextureFormatR8G8B8A8Srgb
	/** @brief 8-bit per channel BGRA, unsigned normalized. */
	TextureFormatB8G8R8A8Unorm
	/** @brief Single 8-bit channel, unsigned normalized. */
	TextureFormatR8Unorm
)

/** @brief Returns the number of bytes one pixel of this format occupies. */
func (f TextureFormat) BytesPerPixel() uint32 {
	switch f {
	case TextureFormatR8Unorm:
		return 1
	default:
		return 4
	}
}

/**
 * @brief The memory layout a managed texture image is currently in.
 * A texture is either writable by transfer operations or readable by
 * shaders, never both. Transitions between the two are recorded as
 * GPU barriers and must go through the texture system.
 */
type TextureLayout int

const (
	/** @brief The image is a valid copy destination, not safe for sampling. */
	TextureLayoutTransferDst TextureLayout = iota
	/** @brief The image is safe for shader sampling, not a valid copy destination. */
	TextureLayoutShaderReadOnly
)

func (l TextureLayout) String() string {
	if l == TextureLayoutShaderReadOnly {
		return "shader_read_only"
	}
	return "transfer_dst"
}

/** @brief Represents supported texture filtering modes. */
type TextureFilter int

const (
	/** @brief Nearest-neighbor filtering. */
	TextureFilterModeNearest TextureFilter = 0x0
	/** @brief Linear (i.e. bilinear) filtering.*/
	TextureFilterModeLinear TextureFilter = 0x1
)

type TextureRepeat int

const (
	TextureRepeatRepeat         TextureRepeat = 0x1
	TextureRepeatMirroredRepeat TextureRepeat = 0x2
	TextureRepeatClampToEdge    TextureRepeat = 0x3
	TextureRepeatClampToBorder  TextureRepeat = 0x4
)

/** @brief Mipmap selection mode for a sampler. */
type TextureMipmap int

const (
	TextureMipmapModeNearest TextureMipmap = 0x0
	TextureMipmapModeLinear  TextureMipmap = 0x1
)

/**
 * @brief The full creation configuration of a sampler. A plain comparable
 * value: two textures requesting equal configs share one sampler object.
 */
type SamplerConfig struct {
	/** @brief Texture filtering mode for minification. */
	FilterMinify TextureFilter
	/** @brief Texture filtering mode for magnification. */
	FilterMagnify TextureFilter
	/** @brief The repeat mode on the U axis (or X, or S) */
	RepeatU TextureRepeat
	/** @brief The repeat mode on the V axis (or Y, or T) */
	RepeatV TextureRepeat
	/** @brief The repeat mode on the W axis (or Z, or U) */
	RepeatW TextureRepeat
	/** @brief Mipmap selection mode. */
	MipmapMode TextureMipmap
	/** @brief Enables anisotropic filtering when the device supports it. */
	Anisotropy bool
}

/** @brief Returns a linear/repeat config, the engine-wide default. */
func DefaultSamplerConfig() SamplerConfig {
	return SamplerConfig{
		FilterMinify:  TextureFilterModeLinear,
		FilterMagnify: TextureFilterModeLinear,
		RepeatU:       TextureRepeatRepeat,
		RepeatV:       TextureRepeatRepeat,
		RepeatW:       TextureRepeatRepeat,
		MipmapMode:    TextureMipmapModeLinear,
		Anisotropy:    true,
	}
}

/**
 * @brief A GPU sampler object. Owned by the texture system's sampler cache
 * and shared by pointer across any number of textures whose configs compare
 * equal. InternalData holds the render API-specific handle.
 */
type Sampler struct {
	Config       SamplerConfig
	InternalData interface{}
}

type TextureFlag int

const (
	/** @brief Indicates if the texture can be written (rendered) to. */
	TextureFlagIsWriteable TextureFlag = 0x1
	/** @brief Indicates if the texture was created via wrapping vs traditional creation. */
	TextureFlagIsWrapped TextureFlag = 0x2
)

/** @brief Holds bit flags for textures. */
type TextureFlagBits uint8

/**
 * @brief Represents one managed texture: a GPU image plus the sampler it is
 * currently bound to. Owned by the texture system, keyed by ID.
 */
type Texture struct {
	/** @brief The unique texture identifier. */
	ID uint32
	/** @brief The texture Width. */
	Width uint32
	/** @brief The texture Height. */
	Height uint32
	/** @brief The pixel format of the image. */
	Format TextureFormat
	/** @brief Holds various Flags for this texture. */
	Flags TextureFlagBits
	/** @brief The current memory layout of the image. */
	Layout TextureLayout
	/** @brief The texture Generation. Incremented every time the data is reloaded. */
	Generation uint32
	/** @brief The texture Name. */
	Name string
	/** @brief The sampler this texture is currently bound to. Shared, not owned. */
	Sampler *Sampler
	/** @brief A pointer to internal, render API-specific data (image, memory, view). */
	InternalData interface{}
}

/**
 * @brief A rectangular pixel region of an image. Offsets are from the
 * top-left corner.
 */
type Region struct {
	X      int32
	Y      int32
	Width  uint32
	Height uint32
}

/** @brief Returns the full-image region for the given dimensions. */
func FullRegion(width, height uint32) Region {
	return Region{X: 0, Y: 0, Width: width, Height: height}
}
