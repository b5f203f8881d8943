package metadata

/** @brief The types of assets the loaders understand. */
type ResourceType int

const (
	/** @brief A still image decoded to raw pixels. */
	ResourceTypeImage ResourceType = iota
	/** @brief A bitmap font descriptor plus its atlas pages. */
	ResourceTypeBitmapFont
)

/**
 * @brief A loaded asset. Data holds the type-specific payload
 * (*PixelData, *BitmapFontData).
 */
type Resource struct {
	Name     string
	FullPath string
	Type     ResourceType
	DataSize uint64
	Data     interface{}
}

/** @brief Raw decoded pixels, always tightly packed RGBA, top-left origin. */
type PixelData struct {
	Width        uint32
	Height       uint32
	ChannelCount uint8
	Pixels       []uint8
}

/** @brief Options for image decoding. */
type ImageResourceParams struct {
	/** @brief Flip the image vertically while decoding. */
	FlipY bool
}

/** @brief One glyph of a bitmap font, in atlas page pixel coordinates. */
type BitmapFontGlyph struct {
	Codepoint rune
	X         uint16
	Y         uint16
	Width     uint16
	Height    uint16
	XOffset   int16
	YOffset   int16
	XAdvance  int16
	PageID    uint8
}

/**
 * @brief A parsed bitmap font: metrics, glyph table and the atlas page
 * image files that back it. Each page becomes one managed texture.
 */
type BitmapFontData struct {
	Face       string
	Size       uint32
	LineHeight uint32
	Baseline   uint32
	Glyphs     []BitmapFontGlyph
	/** @brief Atlas page image paths, resolved relative to the descriptor. */
	PageFiles []string
}
