package dataset

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/bloom-ml/bloom/internal/tensor"
)

// Batch is one mini-batch of stacked image tensors and their labels.
type Batch struct {
	Inputs *tensor.Tensor // [n, 3, H, W]
	Labels []int          // n class indices
}

// Size returns the number of samples in the batch.
func (b *Batch) Size() int {
	return len(b.Labels)
}

// Result carries either a decoded batch or the error that produced it.
type Result struct {
	Batch *Batch
	Err   error
}

// LoaderConfig configures a Loader.
type LoaderConfig struct {
	BatchSize     int           // size of each batch; must be positive
	Shuffle       bool          // reshuffle sample order for every epoch
	Workers       int           // decoding workers (default: 2)
	PrefetchDepth int           // batches buffered ahead of the consumer (default: 3)
	Device        tensor.Device // placement of the produced input tensors
}

// Loader batches an ImageFolder, decoding images on a bounded worker pool
// and prefetching ahead of the consumer.
//
// Batches are delivered in epoch order: with shuffling disabled the k-th
// batch always holds samples [k*batchSize, (k+1)*batchSize).
type Loader struct {
	dataset *ImageFolder
	config  LoaderConfig
}

// NewLoader creates a Loader over the dataset.
func NewLoader(ds *ImageFolder, config LoaderConfig) (*Loader, error) {
	if ds == nil {
		return nil, fmt.Errorf("dataset cannot be nil")
	}
	if config.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", config.BatchSize)
	}
	if config.Workers <= 0 {
		config.Workers = 2
	}
	if config.PrefetchDepth <= 0 {
		config.PrefetchDepth = 3
	}
	return &Loader{dataset: ds, config: config}, nil
}

// Len returns the number of samples in the underlying dataset.
func (l *Loader) Len() int {
	return l.dataset.Len()
}

// NumBatches returns ceil(len/batchSize): the number of batches one epoch
// yields. The final batch holds len mod batchSize samples when the dataset
// size is not a multiple of the batch size.
func (l *Loader) NumBatches() int {
	return (l.dataset.Len() + l.config.BatchSize - 1) / l.config.BatchSize
}

// BatchSize returns the configured batch size.
func (l *Loader) BatchSize() int {
	return l.config.BatchSize
}

// Batches starts one epoch and returns the channel of its batches. The
// channel is closed when the epoch completes, an error is delivered, or the
// context is canceled.
func (l *Loader) Batches(ctx context.Context) <-chan Result {
	out := make(chan Result, l.config.PrefetchDepth)

	// Epoch-internal context: ending the epoch early (first error) must
	// release the feeder and workers, not just the consumer.
	ctx, cancel := context.WithCancel(ctx)

	order := l.epochOrder()
	numBatches := l.NumBatches()

	type job struct {
		seq     int
		indices []int
	}
	jobs := make(chan job)

	type sequenced struct {
		seq    int
		result Result
	}
	decoded := make(chan sequenced, l.config.Workers)

	var wg sync.WaitGroup
	for w := 0; w < l.config.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				batch, err := l.assemble(j.indices)
				select {
				case decoded <- sequenced{seq: j.seq, result: Result{Batch: batch, Err: err}}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	// Feed jobs.
	go func() {
		defer close(jobs)
		for seq := 0; seq < numBatches; seq++ {
			lo := seq * l.config.BatchSize
			hi := lo + l.config.BatchSize
			if hi > len(order) {
				hi = len(order)
			}
			select {
			case jobs <- job{seq: seq, indices: order[lo:hi]}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(decoded)
	}()

	// Reorder decoded batches back into epoch order.
	go func() {
		defer close(out)
		defer cancel()
		pending := make(map[int]Result)
		next := 0
		for s := range decoded {
			pending[s.seq] = s.result
			for {
				result, ok := pending[next]
				if !ok {
					break
				}
				delete(pending, next)
				select {
				case out <- result:
				case <-ctx.Done():
					return
				}
				if result.Err != nil {
					return
				}
				next++
			}
		}
	}()

	return out
}

// epochOrder returns the sample visit order for one epoch.
func (l *Loader) epochOrder() []int {
	order := make([]int, l.dataset.Len())
	for i := range order {
		order[i] = i
	}
	if l.config.Shuffle {
		//nolint:gosec // math/rand is fine for epoch shuffling
		rand.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})
	}
	return order
}

// assemble decodes the given samples and stacks them into one batch tensor.
func (l *Loader) assemble(indices []int) (*Batch, error) {
	var inputs *tensor.Tensor
	labels := make([]int, len(indices))

	for i, idx := range indices {
		img, label, err := l.dataset.Get(idx)
		if err != nil {
			return nil, err
		}
		shape := img.Shape()
		if inputs == nil {
			batchShape := append(tensor.Shape{len(indices)}, shape...)
			inputs = tensor.Zeros(batchShape)
		}
		sampleSize := shape.NumElements()
		if sampleSize*len(indices) != inputs.NumElements() {
			return nil, fmt.Errorf("sample %d has shape %v, inconsistent with batch", idx, shape)
		}
		copy(inputs.Data()[i*sampleSize:(i+1)*sampleSize], img.Data())
		labels[i] = label
	}

	if inputs != nil {
		inputs = inputs.To(l.config.Device)
	}
	return &Batch{Inputs: inputs, Labels: labels}, nil
}
