// Package dataset implements filesystem-backed image datasets and the
// batching loader that feeds them to the classifier.
//
// The on-disk contract is folder-per-class: a split directory contains one
// subdirectory per class label, each holding image files. The subdirectory
// name IS the label; no separate label file exists.
package dataset

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"

	// Register the decoders for the supported image formats.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/bloom-ml/bloom/internal/tensor"
	"github.com/bloom-ml/bloom/internal/vision/transform"
)

// Sample is one enumerated image file with its class index.
type Sample struct {
	Path  string
	Label int
}

// ImageFolder enumerates a folder-per-class directory tree.
//
// Class indices are assigned by sorting class directory names, so for a
// fixed filesystem layout the assignment is identical across constructions.
type ImageFolder struct {
	root     string
	classes  []string
	samples  []Sample
	pipeline *transform.Pipeline
}

// NewImageFolder enumerates root and binds the dataset to a transform
// pipeline. Filesystem errors during enumeration are propagated to the
// caller; there is no retry layer.
func NewImageFolder(root string, pipeline *transform.Pipeline) (*ImageFolder, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate %s: %w", root, err)
	}

	var classes []string
	for _, entry := range entries {
		if entry.IsDir() {
			classes = append(classes, entry.Name())
		}
	}
	if len(classes) == 0 {
		return nil, fmt.Errorf("no class directories under %s", root)
	}
	sort.Strings(classes)

	ds := &ImageFolder{
		root:     root,
		classes:  classes,
		pipeline: pipeline,
	}

	for label, class := range classes {
		classDir := filepath.Join(root, class)
		files, err := os.ReadDir(classDir)
		if err != nil {
			return nil, fmt.Errorf("failed to enumerate %s: %w", classDir, err)
		}
		names := make([]string, 0, len(files))
		for _, f := range files {
			if !f.IsDir() && isImageFile(f.Name()) {
				names = append(names, f.Name())
			}
		}
		sort.Strings(names)
		for _, name := range names {
			ds.samples = append(ds.samples, Sample{
				Path:  filepath.Join(classDir, name),
				Label: label,
			})
		}
	}
	return ds, nil
}

// Len returns the number of samples.
func (ds *ImageFolder) Len() int {
	return len(ds.samples)
}

// Classes returns the sorted class names. The slice index is the class
// index used as the training label.
func (ds *ImageFolder) Classes() []string {
	return ds.classes
}

// Samples returns the enumerated samples in class-then-filename order.
func (ds *ImageFolder) Samples() []Sample {
	return ds.samples
}

// Get decodes sample i and runs it through the pipeline, returning the
// image tensor and the class index.
func (ds *ImageFolder) Get(i int) (*tensor.Tensor, int, error) {
	if i < 0 || i >= len(ds.samples) {
		return nil, 0, fmt.Errorf("sample index %d out of range [0, %d)", i, len(ds.samples))
	}
	sample := ds.samples[i]

	f, err := os.Open(sample.Path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open %s: %w", sample.Path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode %s: %w", sample.Path, err)
	}
	return ds.pipeline.Apply(img), sample.Label, nil
}

func isImageFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".gif":
		return true
	}
	return false
}
