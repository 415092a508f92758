package render

import (
	"fmt"
	"image"
	_ "image/png"
	"os"

	_ "golang.org/x/image/tiff"

	"github.com/joseph-ayodele/rol-extractor/internal/common"
)

// PageImage is one rendered page. File-backed pages are decoded on demand so
// only the pages in flight are held in memory.
type PageImage struct {
	Index int // zero-based page number
	DPI   int

	path string
	img  image.Image
}

// FromImage wraps an in-memory image as a page.
func FromImage(index, dpi int, img image.Image) PageImage {
	return PageImage{Index: index, DPI: dpi, img: img}
}

// Path is the rendered file, or "" for in-memory pages.
func (p PageImage) Path() string { return p.path }

// Image decodes the page. A page that cannot be decoded fails on its own
// without affecting the rest of the document.
func (p PageImage) Image() (image.Image, error) {
	if p.img != nil {
		return p.img, nil
	}
	if p.path == "" {
		return nil, fmt.Errorf("page %d has no image", common.PageNumber(p.Index))
	}
	f, err := os.Open(p.path)
	if err != nil {
		return nil, fmt.Errorf("open page %d: %w", common.PageNumber(p.Index), err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode page %d: %w", common.PageNumber(p.Index), err)
	}
	return img, nil
}
