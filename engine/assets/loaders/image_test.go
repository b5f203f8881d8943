package loaders

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/emberglow/ember/engine/renderer/metadata"
)

func writeTestPNG(t *testing.T) string {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{G: 255, A: 255})
	img.SetNRGBA(0, 1, color.NRGBA{B: 255, A: 255})
	img.SetNRGBA(1, 1, color.NRGBA{R: 255, G: 255, B: 255, A: 255})

	path := filepath.Join(t.TempDir(), "test.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return path
}

func TestImageLoaderDecodesToRGBA(t *testing.T) {
	path := writeTestPNG(t)

	loader := &ImageLoader{}
	resource, err := loader.Load(path, &metadata.ImageResourceParams{FlipY: false})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	data, ok := resource.Data.(*metadata.PixelData)
	if !ok {
		t.Fatalf("resource data is %T, want *metadata.PixelData", resource.Data)
	}
	if data.Width != 2 || data.Height != 2 || data.ChannelCount != 4 {
		t.Fatalf("unexpected dimensions %dx%dx%d", data.Width, data.Height, data.ChannelCount)
	}
	if len(data.Pixels) != 16 {
		t.Fatalf("pixel buffer length %d, want 16", len(data.Pixels))
	}

	// Top-left is red.
	if data.Pixels[0] != 255 || data.Pixels[1] != 0 || data.Pixels[3] != 255 {
		t.Fatalf("top-left pixel = %v, want opaque red", data.Pixels[:4])
	}
}

func TestImageLoaderFlipY(t *testing.T) {
	path := writeTestPNG(t)

	loader := &ImageLoader{}
	resource, err := loader.Load(path, &metadata.ImageResourceParams{FlipY: true})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	data := resource.Data.(*metadata.PixelData)

	// After a vertical flip the blue pixel moves to the top-left.
	if data.Pixels[2] != 255 || data.Pixels[0] != 0 {
		t.Fatalf("flipped top-left pixel = %v, want opaque blue", data.Pixels[:4])
	}
}

func TestImageLoaderMissingFile(t *testing.T) {
	loader := &ImageLoader{}
	if _, err := loader.Load(filepath.Join(t.TempDir(), "nope.png"), nil); err == nil {
		t.Fatalf("want error for missing file")
	}
}
