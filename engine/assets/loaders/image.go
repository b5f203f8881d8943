package loaders

import (
	"fmt"
	"image"
	"os"

	_ "image/jpeg"
	_ "image/png"

	xdraw "golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/emberglow/ember/engine/renderer/metadata"
)

// ImageLoader decodes still images into tightly packed RGBA pixels. Whatever
// the source format, the output is always 4 channels, 8 bits each.
type ImageLoader struct{}

func (il *ImageLoader) Load(path string, params interface{}) (*metadata.Resource, error) {
	flipY := false
	if p, ok := params.(*metadata.ImageResourceParams); ok && p != nil {
		flipY = p.FlipY
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image %s: %w", path, err)
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}

	bounds := src.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	rgba := image.NewNRGBA(image.Rect(0, 0, width, height))
	xdraw.Draw(rgba, rgba.Bounds(), src, bounds.Min, xdraw.Src)

	pixels := rgba.Pix
	if flipY {
		pixels = flipVertically(pixels, width, height)
	}

	return &metadata.Resource{
		Name:     path,
		FullPath: path,
		Type:     metadata.ResourceTypeImage,
		DataSize: uint64(len(pixels)),
		Data: &metadata.PixelData{
			Width:        uint32(width),
			Height:       uint32(height),
			ChannelCount: 4,
			Pixels:       pixels,
		},
	}, nil
}

func (il *ImageLoader) Unload(resource *metadata.Resource) error {
	if resource != nil {
		resource.Data = nil
		resource.DataSize = 0
	}
	return nil
}

func flipVertically(pixels []uint8, width, height int) []uint8 {
	rowSize := width * 4
	out := make([]uint8, len(pixels))
	for y := 0; y < height; y++ {
		srcRow := pixels[y*rowSize : (y+1)*rowSize]
		dstOffset := (height - 1 - y) * rowSize
		copy(out[dstOffset:dstOffset+rowSize], srcRow)
	}
	return out
}
