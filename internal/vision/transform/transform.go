// Package transform implements the image transform pipelines feeding the
// classifier.
//
// A Pipeline is an ordered chain of image-space operations followed by
// tensorization and per-channel normalization. The pipeline structure is
// deterministic; individual operations may draw random parameters at
// execution time (rotation angle, crop window, flip decision), which only
// the training pipeline does.
package transform

import (
	"image"

	"github.com/bloom-ml/bloom/internal/tensor"
)

// ImageNet channel statistics. Every pre-trained extractor in the zoo was
// trained on inputs normalized with these values, so all three splits use
// them: feeding the network unnormalized images would shift its input
// distribution away from what the frozen weights expect.
var (
	ImageNetMean = [3]float32{0.485, 0.456, 0.406}
	ImageNetStd  = [3]float32{0.229, 0.224, 0.225}
)

// Transform is a single image-space operation.
type Transform interface {
	Apply(img image.Image) image.Image
}

// Pipeline chains image-space transforms and converts the result to a
// normalized [3, H, W] float32 tensor.
type Pipeline struct {
	ops  []Transform
	mean [3]float32
	std  [3]float32
}

// NewPipeline creates a pipeline over the given operations, normalizing
// with the ImageNet statistics.
func NewPipeline(ops ...Transform) *Pipeline {
	return &Pipeline{
		ops:  ops,
		mean: ImageNetMean,
		std:  ImageNetStd,
	}
}

// Train returns the training pipeline: random rotation within ±30°, random
// resized crop to 224, random horizontal flip, tensorize, normalize.
func Train() *Pipeline {
	return NewPipeline(
		NewRandomRotation(30),
		NewRandomResizedCrop(224),
		NewRandomHorizontalFlip(0.5),
	)
}

// Eval returns the validation/test pipeline: resize the shorter side to 255,
// center crop to 224, tensorize, normalize. No randomness.
func Eval() *Pipeline {
	return NewPipeline(
		NewResize(255),
		NewCenterCrop(224),
	)
}

// Ops returns the pipeline's operations in order.
func (p *Pipeline) Ops() []Transform {
	return p.ops
}

// Apply runs the pipeline on an image, producing a [3, H, W] tensor with
// normalized channels.
func (p *Pipeline) Apply(img image.Image) *tensor.Tensor {
	for _, op := range p.ops {
		img = op.Apply(img)
	}
	return p.toTensor(img)
}

// toTensor converts an image to CHW float32 in [0, 1], then applies the
// per-channel normalization.
func (p *Pipeline) toTensor(img image.Image) *tensor.Tensor {
	bounds := img.Bounds()
	height, width := bounds.Dy(), bounds.Dx()

	out := tensor.Zeros(tensor.Shape{3, height, width})
	data := out.Data()
	plane := height * width

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			idx := y*width + x
			// RGBA returns 16-bit channels.
			data[idx] = (float32(r)/65535 - p.mean[0]) / p.std[0]
			data[plane+idx] = (float32(g)/65535 - p.mean[1]) / p.std[1]
			data[2*plane+idx] = (float32(b)/65535 - p.mean[2]) / p.std[2]
		}
	}
	return out
}
