package transform

import (
	"image"
	"math"
	"math/rand"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// Resize scales the image so its shorter side equals Size, preserving the
// aspect ratio. Bilinear resampling.
type Resize struct {
	Size int
}

// NewResize creates a Resize to the given shorter-side length.
func NewResize(size int) *Resize {
	return &Resize{Size: size}
}

// Apply scales the image.
func (r *Resize) Apply(img image.Image) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return img
	}

	var outW, outH int
	if w < h {
		outW = r.Size
		outH = int(math.Round(float64(h) * float64(r.Size) / float64(w)))
	} else {
		outH = r.Size
		outW = int(math.Round(float64(w) * float64(r.Size) / float64(h)))
	}
	return scale(img, outW, outH)
}

// CenterCrop extracts the central Size x Size region. If the image is
// smaller than the crop in either dimension, the missing area is black.
type CenterCrop struct {
	Size int
}

// NewCenterCrop creates a CenterCrop of the given size.
func NewCenterCrop(size int) *CenterCrop {
	return &CenterCrop{Size: size}
}

// Apply crops the image around its center.
func (c *CenterCrop) Apply(img image.Image) image.Image {
	bounds := img.Bounds()
	x0 := bounds.Min.X + (bounds.Dx()-c.Size)/2
	y0 := bounds.Min.Y + (bounds.Dy()-c.Size)/2
	return crop(img, image.Rect(x0, y0, x0+c.Size, y0+c.Size))
}

// RandomResizedCrop samples a random sub-region covering 8–100% of the image
// area with aspect ratio in [3/4, 4/3], then scales it to Size x Size. This
// is the standard ImageNet training crop.
type RandomResizedCrop struct {
	Size int
}

// NewRandomResizedCrop creates a RandomResizedCrop to the given output size.
func NewRandomResizedCrop(size int) *RandomResizedCrop {
	return &RandomResizedCrop{Size: size}
}

// Apply samples a crop window and scales it.
func (rc *RandomResizedCrop) Apply(img image.Image) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	area := float64(w * h)

	for attempt := 0; attempt < 10; attempt++ {
		//nolint:gosec // math/rand is fine for augmentation
		targetArea := area * (0.08 + rand.Float64()*0.92)
		logRatio := math.Log(3.0/4.0) + rand.Float64()*(math.Log(4.0/3.0)-math.Log(3.0/4.0))
		ratio := math.Exp(logRatio)

		cw := int(math.Round(math.Sqrt(targetArea * ratio)))
		ch := int(math.Round(math.Sqrt(targetArea / ratio)))
		if cw <= 0 || ch <= 0 || cw > w || ch > h {
			continue
		}

		x0 := bounds.Min.X + rand.Intn(w-cw+1)
		y0 := bounds.Min.Y + rand.Intn(h-ch+1)
		region := crop(img, image.Rect(x0, y0, x0+cw, y0+ch))
		return scale(region, rc.Size, rc.Size)
	}

	// Fallback: central crop of the largest valid square.
	side := w
	if h < side {
		side = h
	}
	center := (&CenterCrop{Size: side}).Apply(img)
	return scale(center, rc.Size, rc.Size)
}

// RandomHorizontalFlip mirrors the image left-right with probability P.
type RandomHorizontalFlip struct {
	P float64
}

// NewRandomHorizontalFlip creates a flip with the given probability.
func NewRandomHorizontalFlip(p float64) *RandomHorizontalFlip {
	return &RandomHorizontalFlip{P: p}
}

// Apply flips or passes the image through.
func (f *RandomHorizontalFlip) Apply(img image.Image) image.Image {
	//nolint:gosec // math/rand is fine for augmentation
	if rand.Float64() >= f.P {
		return img
	}
	bounds := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			out.Set(bounds.Dx()-1-x, y, img.At(bounds.Min.X+x, bounds.Min.Y+y))
		}
	}
	return out
}

// RandomRotation rotates the image by a uniform random angle in
// [-Degrees, +Degrees] about its center, keeping the canvas size. Exposed
// corners are black.
type RandomRotation struct {
	Degrees float64
}

// NewRandomRotation creates a rotation within ±degrees.
func NewRandomRotation(degrees float64) *RandomRotation {
	return &RandomRotation{Degrees: degrees}
}

// Apply rotates the image with bilinear resampling.
func (r *RandomRotation) Apply(img image.Image) image.Image {
	//nolint:gosec // math/rand is fine for augmentation
	angle := (rand.Float64()*2 - 1) * r.Degrees * math.Pi / 180

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	cx, cy := float64(w)/2, float64(h)/2
	sin, cos := math.Sin(angle), math.Cos(angle)

	// Affine map from source space to destination space, rotating about
	// the center: translate(-c), rotate, translate(+c).
	m := f64.Aff3{
		cos, -sin, cx - cos*cx + sin*cy,
		sin, cos, cy - sin*cx - cos*cy,
	}

	out := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.BiLinear.Transform(out, m, img, bounds, draw.Src, nil)
	return out
}

// scale resamples the image to exactly w x h with bilinear interpolation.
func scale(img image.Image, w, h int) image.Image {
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(out, out.Bounds(), img, img.Bounds(), draw.Src, nil)
	return out
}

// crop copies the given rectangle into a fresh image; area outside the
// source stays black.
func crop(img image.Image, rect image.Rectangle) image.Image {
	out := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	visible := rect.Intersect(img.Bounds())
	for y := visible.Min.Y; y < visible.Max.Y; y++ {
		for x := visible.Min.X; x < visible.Max.X; x++ {
			out.Set(x-rect.Min.X, y-rect.Min.Y, img.At(x, y))
		}
	}
	return out
}
