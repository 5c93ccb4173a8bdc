package dataset_test

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bloom-ml/bloom/internal/tensor"
	"github.com/bloom-ml/bloom/internal/vision/dataset"
	"github.com/bloom-ml/bloom/internal/vision/transform"
)

// writePNG writes a small solid-color PNG fixture.
func writePNG(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: 100, G: 150, B: 200, A: 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

// fixtureTree builds root/<class>/<n>.png with the given counts per class.
func fixtureTree(t *testing.T, counts map[string]int) string {
	t.Helper()
	root := t.TempDir()
	for class, n := range counts {
		dir := filepath.Join(root, class)
		require.NoError(t, os.MkdirAll(dir, 0o755))
		for i := 0; i < n; i++ {
			writePNG(t, filepath.Join(dir, string(rune('a'+i))+".png"))
		}
	}
	return root
}

func TestImageFolder_Enumeration(t *testing.T) {
	root := fixtureTree(t, map[string]int{"daisy": 3, "rose": 2, "tulip": 4})

	ds, err := dataset.NewImageFolder(root, transform.NewPipeline())
	require.NoError(t, err)

	assert.Equal(t, 9, ds.Len())
	assert.Equal(t, []string{"daisy", "rose", "tulip"}, ds.Classes())
}

func TestImageFolder_StableClassIndices(t *testing.T) {
	root := fixtureTree(t, map[string]int{"zinnia": 1, "aster": 1, "lily": 1})

	first, err := dataset.NewImageFolder(root, transform.NewPipeline())
	require.NoError(t, err)
	second, err := dataset.NewImageFolder(root, transform.NewPipeline())
	require.NoError(t, err)

	// Same layout, same assignment: sorted class names define the indices.
	assert.Equal(t, first.Classes(), second.Classes())
	assert.Equal(t, []string{"aster", "lily", "zinnia"}, first.Classes())
	for i := range first.Samples() {
		assert.Equal(t, first.Samples()[i], second.Samples()[i])
	}
}

func TestImageFolder_SkipsNonImages(t *testing.T) {
	root := fixtureTree(t, map[string]int{"daisy": 2})
	require.NoError(t, os.WriteFile(filepath.Join(root, "daisy", "notes.txt"), []byte("x"), 0o644))

	ds, err := dataset.NewImageFolder(root, transform.NewPipeline())
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Len())
}

func TestImageFolder_NoClasses(t *testing.T) {
	_, err := dataset.NewImageFolder(t.TempDir(), transform.NewPipeline())
	assert.Error(t, err)
}

func TestImageFolder_MissingRoot(t *testing.T) {
	_, err := dataset.NewImageFolder(filepath.Join(t.TempDir(), "absent"), transform.NewPipeline())
	assert.Error(t, err)
}

func TestImageFolder_Get(t *testing.T) {
	root := fixtureTree(t, map[string]int{"daisy": 1, "rose": 1})

	ds, err := dataset.NewImageFolder(root, transform.NewPipeline())
	require.NoError(t, err)

	img, label, err := ds.Get(1)
	require.NoError(t, err)
	assert.Equal(t, 1, label) // "rose" sorts after "daisy"
	assert.True(t, img.Shape().Equal(tensor.Shape{3, 8, 8}))
}

func TestLoader_BatchCounts(t *testing.T) {
	root := fixtureTree(t, map[string]int{"daisy": 5, "rose": 5})
	ds, err := dataset.NewImageFolder(root, transform.NewPipeline())
	require.NoError(t, err)

	loader, err := dataset.NewLoader(ds, dataset.LoaderConfig{BatchSize: 4})
	require.NoError(t, err)

	// ceil(10/4) = 3 batches; the last one holds 10 mod 4 = 2 samples.
	assert.Equal(t, 3, loader.NumBatches())

	var sizes []int
	for result := range loader.Batches(context.Background()) {
		require.NoError(t, result.Err)
		sizes = append(sizes, result.Batch.Size())
		assert.Equal(t, result.Batch.Size(), result.Batch.Inputs.Shape()[0])
	}
	assert.Equal(t, []int{4, 4, 2}, sizes)
}

func TestLoader_ExactMultiple(t *testing.T) {
	root := fixtureTree(t, map[string]int{"daisy": 4, "rose": 4})
	ds, err := dataset.NewImageFolder(root, transform.NewPipeline())
	require.NoError(t, err)

	loader, err := dataset.NewLoader(ds, dataset.LoaderConfig{BatchSize: 4})
	require.NoError(t, err)
	assert.Equal(t, 2, loader.NumBatches())

	for result := range loader.Batches(context.Background()) {
		require.NoError(t, result.Err)
		assert.Equal(t, 4, result.Batch.Size())
	}
}

func TestLoader_OrderWithoutShuffle(t *testing.T) {
	root := fixtureTree(t, map[string]int{"daisy": 2, "rose": 2})
	ds, err := dataset.NewImageFolder(root, transform.NewPipeline())
	require.NoError(t, err)

	loader, err := dataset.NewLoader(ds, dataset.LoaderConfig{BatchSize: 2, Workers: 4})
	require.NoError(t, err)

	var labels []int
	for result := range loader.Batches(context.Background()) {
		require.NoError(t, result.Err)
		labels = append(labels, result.Batch.Labels...)
	}
	// Enumeration order: both daisies, then both roses.
	assert.Equal(t, []int{0, 0, 1, 1}, labels)
}

func TestLoader_InvalidBatchSize(t *testing.T) {
	root := fixtureTree(t, map[string]int{"daisy": 1})
	ds, err := dataset.NewImageFolder(root, transform.NewPipeline())
	require.NoError(t, err)

	_, err = dataset.NewLoader(ds, dataset.LoaderConfig{BatchSize: 0})
	assert.Error(t, err)
}

func TestLoader_ErrorEndsEpoch(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "daisy")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for i := 0; i < 8; i++ {
		name := string(rune('a'+i)) + ".png"
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("not a png"), 0o644))
	}

	ds, err := dataset.NewImageFolder(root, transform.NewPipeline())
	require.NoError(t, err)

	loader, err := dataset.NewLoader(ds, dataset.LoaderConfig{BatchSize: 1, Workers: 2})
	require.NoError(t, err)

	before := runtime.NumGoroutine()

	var failed bool
	for result := range loader.Batches(context.Background()) {
		if result.Err != nil {
			failed = true
		}
	}
	assert.True(t, failed)

	// The early end must release the feeder and workers even though the
	// caller never canceled.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && runtime.NumGoroutine() > before {
		time.Sleep(10 * time.Millisecond)
	}
	assert.LessOrEqual(t, runtime.NumGoroutine(), before)
}

func TestLoader_Cancel(t *testing.T) {
	root := fixtureTree(t, map[string]int{"daisy": 6})
	ds, err := dataset.NewImageFolder(root, transform.NewPipeline())
	require.NoError(t, err)

	loader, err := dataset.NewLoader(ds, dataset.LoaderConfig{BatchSize: 1, PrefetchDepth: 1})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	ch := loader.Batches(ctx)
	<-ch
	cancel()

	// The channel must terminate after cancellation.
	for range ch { //nolint:revive // draining until close
	}
}
