package preprocess

// Square structuring elements of side k are anchored at (k-1)/2. Erosion
// reads the window forward from the anchor and dilation reads it reflected,
// so open(b) is contained in b and open(open(b)) == open(b).

func anchor(k int) (lo, hi int) {
	lo = -((k - 1) / 2)
	return lo, lo + k - 1
}

// erode keeps a pixel only if every pixel in its window is ink. Pixels past
// the border count as background.
func erode(b BinaryImage, k int) BinaryImage {
	lo, hi := anchor(k)
	tmp := make([]bool, len(b.Ink))
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			all := true
			for d := lo; d <= hi && all; d++ {
				all = b.At(x+d, y)
			}
			tmp[y*b.Width+x] = all
		}
	}
	h := BinaryImage{Width: b.Width, Height: b.Height, Ink: tmp}
	out := make([]bool, len(b.Ink))
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			all := true
			for d := lo; d <= hi && all; d++ {
				all = h.At(x, y+d)
			}
			out[y*b.Width+x] = all
		}
	}
	return BinaryImage{Width: b.Width, Height: b.Height, Ink: out}
}

// dilate marks a pixel as ink if any pixel in its reflected window is ink.
func dilate(b BinaryImage, k int) BinaryImage {
	lo, hi := anchor(k)
	tmp := make([]bool, len(b.Ink))
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			hit := false
			for d := lo; d <= hi && !hit; d++ {
				hit = b.At(x-d, y)
			}
			tmp[y*b.Width+x] = hit
		}
	}
	h := BinaryImage{Width: b.Width, Height: b.Height, Ink: tmp}
	out := make([]bool, len(b.Ink))
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			hit := false
			for d := lo; d <= hi && !hit; d++ {
				hit = h.At(x, y-d)
			}
			out[y*b.Width+x] = hit
		}
	}
	return BinaryImage{Width: b.Width, Height: b.Height, Ink: out}
}

// open removes ink features smaller than a k×k square.
func open(b BinaryImage, k int) BinaryImage {
	return dilate(erode(b, k), k)
}
