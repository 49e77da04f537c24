package detector

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/arup/epaper/internal/system"
)

// toGrayscale converts an image to grayscale.
func toGrayscale(img image.Image) *image.Gray {
	bounds := img.Bounds()
	gray := image.NewGray(bounds)

	if src, ok := img.(*image.Gray); ok {
		copy(gray.Pix, src.Pix)
		return gray
	}

	draw.Draw(gray, bounds, img, bounds.Min, draw.Src)
	return gray
}

// maskTop blanks everything above ignoreHeight so mastheads and headers
// never reach the binarizations.
func maskTop(gray *image.Gray, ignoreHeight int) *image.Gray {
	bounds := gray.Bounds()
	masked := image.NewGray(bounds)
	copy(masked.Pix, gray.Pix)

	for y := bounds.Min.Y; y < bounds.Min.Y+ignoreHeight && y < bounds.Max.Y; y++ {
		row := masked.Pix[(y-bounds.Min.Y)*masked.Stride : (y-bounds.Min.Y)*masked.Stride+bounds.Dx()]
		for i := range row {
			row[i] = 0
		}
	}
	return masked
}

// sobelEdges produces a binary edge map: foreground where the Sobel
// gradient magnitude exceeds threshold.
func sobelEdges(gray *image.Gray, threshold float64) *image.Gray {
	bounds := gray.Bounds()
	edges := image.NewGray(bounds)

	gx := [3][3]int{
		{-1, 0, 1},
		{-2, 0, 2},
		{-1, 0, 1},
	}
	gy := [3][3]int{
		{-1, -2, -1},
		{0, 0, 0},
		{1, 2, 1},
	}

	for y := bounds.Min.Y + 1; y < bounds.Max.Y-1; y++ {
		for x := bounds.Min.X + 1; x < bounds.Max.X-1; x++ {
			var sumX, sumY float64

			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					pixel := float64(gray.GrayAt(x+kx, y+ky).Y)
					sumX += pixel * float64(gx[ky+1][kx+1])
					sumY += pixel * float64(gy[ky+1][kx+1])
				}
			}

			magnitude := math.Sqrt(sumX*sumX + sumY*sumY)
			if magnitude > threshold {
				edges.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}

	return edges
}

// adaptiveThreshold binarizes against the local mean over a blockSize
// window, inverted: dark regions become foreground. A summed-area table
// keeps it linear in the pixel count.
func adaptiveThreshold(gray *image.Gray, blockSize int, c float64) *image.Gray {
	bounds := gray.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := image.NewGray(bounds)

	// integral[y][x] = sum of pixels in [0,x) x [0,y)
	integral := make([]uint64, (w+1)*(h+1))
	for y := 0; y < h; y++ {
		var rowSum uint64
		for x := 0; x < w; x++ {
			rowSum += uint64(gray.Pix[y*gray.Stride+x])
			integral[(y+1)*(w+1)+x+1] = integral[y*(w+1)+x+1] + rowSum
		}
	}

	half := blockSize / 2
	for y := 0; y < h; y++ {
		y0 := max(0, y-half)
		y1 := min(h, y+half+1)
		for x := 0; x < w; x++ {
			x0 := max(0, x-half)
			x1 := min(w, x+half+1)

			sum := integral[y1*(w+1)+x1] - integral[y0*(w+1)+x1] -
				integral[y1*(w+1)+x0] + integral[y0*(w+1)+x0]
			mean := float64(sum) / float64((x1-x0)*(y1-y0))

			if float64(gray.Pix[y*gray.Stride+x]) < mean-c {
				out.Pix[y*out.Stride+x] = 255
			}
		}
	}

	return out
}

// otsuThreshold picks the global threshold maximizing between-class
// variance, then binarizes inverted: dark regions become foreground.
func otsuThreshold(gray *image.Gray) *image.Gray {
	bounds := gray.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	var hist [256]int
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			hist[gray.Pix[y*gray.Stride+x]]++
		}
	}

	total := w * h
	var sum float64
	for i, n := range hist {
		sum += float64(i * n)
	}

	var sumB, wB float64
	var maxVar float64
	threshold := 0
	for i := 0; i < 256; i++ {
		wB += float64(hist[i])
		if wB == 0 {
			continue
		}
		wF := float64(total) - wB
		if wF == 0 {
			break
		}
		sumB += float64(i * hist[i])

		mB := sumB / wB
		mF := (sum - sumB) / wF
		between := wB * wF * (mB - mF) * (mB - mF)
		if between > maxVar {
			maxVar = between
			threshold = i
		}
	}

	out := image.NewGray(bounds)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if int(gray.Pix[y*gray.Stride+x]) <= threshold {
				out.Pix[y*out.Stride+x] = 255
			}
		}
	}
	return out
}

// closing performs morphological closing (dilate then erode) with a square
// structuring element, merging nearby text blocks into solid blobs.
func closing(img *image.Gray, kernelSize int) *image.Gray {
	return erode(dilate(img, kernelSize), kernelSize)
}

func dilate(img *image.Gray, kernelSize int) *image.Gray {
	return morphScan(img, kernelSize, func(maxVal, v uint8) uint8 {
		if v > maxVal {
			return v
		}
		return maxVal
	}, 0)
}

func erode(img *image.Gray, kernelSize int) *image.Gray {
	return morphScan(img, kernelSize, func(minVal, v uint8) uint8 {
		if v < minVal {
			return v
		}
		return minVal
	}, 255)
}

// morphScan applies a separable min/max filter: one horizontal pass, one
// vertical pass. Equivalent to the square-kernel scan but far cheaper for
// the large elements the morphology technique uses.
func morphScan(img *image.Gray, kernelSize int, pick func(acc, v uint8) uint8, seed uint8) *image.Gray {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	half := kernelSize / 2

	// Scratch buffer from the pool; every pixel is written before it is
	// read back, so stale contents are fine.
	horiz := system.GetGray(bounds)
	defer system.PutGray(horiz)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			acc := seed
			for k := -half; k <= half; k++ {
				xx := x + k
				if xx < 0 || xx >= w {
					continue
				}
				acc = pick(acc, img.Pix[y*img.Stride+xx])
			}
			horiz.Pix[y*horiz.Stride+x] = acc
		}
	}

	out := image.NewGray(bounds)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			acc := seed
			for k := -half; k <= half; k++ {
				yy := y + k
				if yy < 0 || yy >= h {
					continue
				}
				acc = pick(acc, horiz.Pix[yy*horiz.Stride+x])
			}
			out.Pix[y*out.Stride+x] = acc
		}
	}
	return out
}
