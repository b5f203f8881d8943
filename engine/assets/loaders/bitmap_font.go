package loaders

import (
	"fmt"
	"path/filepath"

	"github.com/fzipp/bmfont"

	"github.com/emberglow/ember/engine/renderer/metadata"
)

// BitmapFontLoader parses AngelCode .fnt descriptors. The atlas page images
// named by the descriptor are not decoded here; callers load each page
// through the image loader and upload it as its own texture.
type BitmapFontLoader struct{}

func (fl *BitmapFontLoader) Load(path string, params interface{}) (*metadata.Resource, error) {
	font, err := bmfont.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load bitmap font %s: %w", path, err)
	}

	data := &metadata.BitmapFontData{
		Face:       font.Descriptor.Info.Face,
		Size:       uint32(font.Descriptor.Info.Size),
		LineHeight: uint32(font.Descriptor.Common.LineHeight),
		Baseline:   uint32(font.Descriptor.Common.Base),
		Glyphs:     make([]metadata.BitmapFontGlyph, 0, len(font.Descriptor.Chars)),
		PageFiles:  make([]string, 0, len(font.Descriptor.Pages)),
	}

	dir := filepath.Dir(path)
	for _, p := range font.Descriptor.Pages {
		data.PageFiles = append(data.PageFiles, filepath.Join(dir, p.File))
	}

	for _, g := range font.Descriptor.Chars {
		data.Glyphs = append(data.Glyphs, metadata.BitmapFontGlyph{
			Codepoint: g.ID,
			X:         uint16(g.X),
			Y:         uint16(g.Y),
			Width:     uint16(g.Width),
			Height:    uint16(g.Height),
			XOffset:   int16(g.XOffset),
			YOffset:   int16(g.YOffset),
			XAdvance:  int16(g.XAdvance),
			PageID:    uint8(g.Page),
		})
	}

	return &metadata.Resource{
		Name:     font.Descriptor.Info.Face,
		FullPath: path,
		Type:     metadata.ResourceTypeBitmapFont,
		DataSize: uint64(len(data.Glyphs)),
		Data:     data,
	}, nil
}

func (fl *BitmapFontLoader) Unload(resource *metadata.Resource) error {
	if resource != nil {
		resource.Data = nil
		resource.DataSize = 0
	}
	return nil
}
