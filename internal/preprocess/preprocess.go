// Package preprocess turns a rendered page into a clean black-on-white
// binary image ready for OCR.
package preprocess

import (
	"image"
	"math"

	"golang.org/x/image/draw"

	"github.com/joseph-ayodele/rol-extractor/internal/common"
)

// Threshold methods.
const (
	ThresholdAdaptive = "adaptive"
	ThresholdOtsu     = "otsu"
)

// Blur kernels.
const (
	BlurGaussian = "gaussian"
	BlurMedian   = "median"
	BlurNone     = "none"
)

// Config parameterizes Preprocess. Out-of-range values are clamped rather
// than rejected.
type Config struct {
	Threshold  string
	Blur       string
	Contrast   float64 // alpha
	Brightness float64 // beta
	BlockSize  int     // adaptive window side, odd
	C          float64 // subtracted from the window mean
	OpenSize   int     // opening structuring element side; <=1 disables
	DilateSize int     // final dilation side; <=1 disables
	Scale      float64 // resample factor applied before filtering
}

// DefaultConfig matches the environment defaults.
func DefaultConfig() Config {
	return Config{
		Threshold:  ThresholdAdaptive,
		Blur:       BlurGaussian,
		Contrast:   1.5,
		BlockSize:  15,
		C:          5,
		OpenSize:   2,
		DilateSize: 1,
		Scale:      1,
	}
}

// FromConfig copies the preprocess section of the app config.
func FromConfig(c common.PreprocessConfig) Config {
	return Config{
		Threshold:  c.Threshold,
		Blur:       c.Blur,
		Contrast:   c.Contrast,
		Brightness: c.Brightness,
		BlockSize:  c.BlockSize,
		C:          c.C,
		OpenSize:   c.OpenSize,
		DilateSize: c.DilateSize,
		Scale:      c.Scale,
	}
}

// BinaryImage is a page reduced to ink and background. Ink is row-major.
type BinaryImage struct {
	Width  int
	Height int
	Ink    []bool
}

// At reports whether (x, y) is ink. Out-of-range coordinates are background.
func (b BinaryImage) At(x, y int) bool {
	if x < 0 || y < 0 || x >= b.Width || y >= b.Height {
		return false
	}
	return b.Ink[y*b.Width+x]
}

// InkCount returns the number of ink pixels.
func (b BinaryImage) InkCount() int {
	n := 0
	for _, v := range b.Ink {
		if v {
			n++
		}
	}
	return n
}

// Gray renders ink as black on a white background.
func (b BinaryImage) Gray() *image.Gray {
	g := image.NewGray(image.Rect(0, 0, b.Width, b.Height))
	for i, v := range b.Ink {
		if v {
			g.Pix[i] = 0
		} else {
			g.Pix[i] = 255
		}
	}
	return g
}

// Preprocess runs grayscale, resampling, blur, contrast, thresholding and
// morphological cleanup on img. It never fails and never modifies img; a nil
// or empty image yields an empty BinaryImage.
func Preprocess(img image.Image, cfg Config) BinaryImage {
	if img == nil || img.Bounds().Empty() {
		return BinaryImage{}
	}
	g := toGray(img, cfg.Scale)
	w, h := g.Rect.Dx(), g.Rect.Dy()
	pix := g.Pix

	switch cfg.Blur {
	case BlurMedian:
		pix = median3(pix, w, h)
	case BlurNone:
	default:
		pix = gaussian3(pix, w, h)
	}

	alpha := cfg.Contrast
	if alpha <= 0 {
		alpha = 1
	}
	adjustContrast(pix, alpha, cfg.Brightness)

	var ink []bool
	switch cfg.Threshold {
	case ThresholdOtsu:
		ink = thresholdAt(pix, otsu(pix))
	default:
		ink = adaptiveMean(pix, w, h, cfg.BlockSize, cfg.C)
	}

	out := BinaryImage{Width: w, Height: h, Ink: ink}
	if cfg.OpenSize > 1 {
		out = open(out, cfg.OpenSize)
	}
	if cfg.DilateSize > 1 {
		out = dilate(out, cfg.DilateSize)
	}
	return out
}

// toGray returns a fresh zero-origin gray copy of img, resampled by scale.
func toGray(img image.Image, scale float64) *image.Gray {
	b := img.Bounds()
	if scale <= 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		scale = 1
	}
	if scale == 1 {
		g := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(g, g.Bounds(), img, b.Min, draw.Src)
		return g
	}
	w := max(1, int(math.Round(float64(b.Dx())*scale)))
	h := max(1, int(math.Round(float64(b.Dy())*scale)))
	g := image.NewGray(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(g, g.Bounds(), img, b, draw.Src, nil)
	return g
}

func clampIdx(v, n int) int {
	if v < 0 {
		return 0
	}
	if v >= n {
		return n - 1
	}
	return v
}

func gaussian3(src []uint8, w, h int) []uint8 {
	k := [3]int{1, 2, 1}
	dst := make([]uint8, len(src))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sum := 0
			for dy := -1; dy <= 1; dy++ {
				row := clampIdx(y+dy, h) * w
				for dx := -1; dx <= 1; dx++ {
					sum += k[dy+1] * k[dx+1] * int(src[row+clampIdx(x+dx, w)])
				}
			}
			dst[y*w+x] = uint8((sum + 8) / 16)
		}
	}
	return dst
}

func median3(src []uint8, w, h int) []uint8 {
	dst := make([]uint8, len(src))
	var win [9]uint8
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			n := 0
			for dy := -1; dy <= 1; dy++ {
				row := clampIdx(y+dy, h) * w
				for dx := -1; dx <= 1; dx++ {
					win[n] = src[row+clampIdx(x+dx, w)]
					n++
				}
			}
			// insertion sort; nine elements
			for i := 1; i < 9; i++ {
				for j := i; j > 0 && win[j] < win[j-1]; j-- {
					win[j], win[j-1] = win[j-1], win[j]
				}
			}
			dst[y*w+x] = win[4]
		}
	}
	return dst
}

// adjustContrast applies alpha*v+beta in place, saturating to [0,255].
func adjustContrast(pix []uint8, alpha, beta float64) {
	if alpha == 1 && beta == 0 {
		return
	}
	var lut [256]uint8
	for i := range lut {
		v := math.Round(alpha*float64(i) + beta)
		lut[i] = uint8(max(0, min(255, v)))
	}
	for i, v := range pix {
		pix[i] = lut[v]
	}
}

// adaptiveMean marks a pixel as ink when it is at most the mean of its
// block×block neighbourhood minus c. Window sums come from an integral image.
func adaptiveMean(pix []uint8, w, h, block int, c float64) []bool {
	if block < 3 {
		block = 3
	}
	if block%2 == 0 {
		block++
	}
	r := block / 2

	stride := w + 1
	sat := make([]int64, stride*(h+1))
	for y := 0; y < h; y++ {
		var rowSum int64
		for x := 0; x < w; x++ {
			rowSum += int64(pix[y*w+x])
			sat[(y+1)*stride+x+1] = sat[y*stride+x+1] + rowSum
		}
	}

	ink := make([]bool, len(pix))
	for y := 0; y < h; y++ {
		y0, y1 := max(0, y-r), min(h, y+r+1)
		for x := 0; x < w; x++ {
			x0, x1 := max(0, x-r), min(w, x+r+1)
			sum := sat[y1*stride+x1] - sat[y0*stride+x1] - sat[y1*stride+x0] + sat[y0*stride+x0]
			mean := float64(sum) / float64((y1-y0)*(x1-x0))
			ink[y*w+x] = float64(pix[y*w+x]) <= mean-c
		}
	}
	return ink
}

// otsu returns the global threshold that maximizes between-class variance.
func otsu(pix []uint8) uint8 {
	var hist [256]int
	for _, v := range pix {
		hist[v]++
	}
	total := float64(len(pix))
	var sumAll float64
	for i, n := range hist {
		sumAll += float64(i * n)
	}

	var (
		sumB, wB float64
		best     float64 = -1
		t        uint8
	)
	for i, n := range hist {
		wB += float64(n)
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF == 0 {
			break
		}
		sumB += float64(i * n)
		mB := sumB / wB
		mF := (sumAll - sumB) / wF
		between := wB * wF * (mB - mF) * (mB - mF)
		if between > best {
			best = between
			t = uint8(i)
		}
	}
	return t
}

// thresholdAt marks pixels at or below t as ink. A page with a single gray
// level has no ink.
func thresholdAt(pix []uint8, t uint8) []bool {
	ink := make([]bool, len(pix))
	lo, hi := uint8(255), uint8(0)
	for _, v := range pix {
		lo, hi = min(lo, v), max(hi, v)
	}
	if lo == hi {
		return ink
	}
	for i, v := range pix {
		ink[i] = v <= t
	}
	return ink
}
