package classifier

import (
	"errors"
	"fmt"

	"github.com/bloom-ml/bloom/internal/nn"
	"github.com/bloom-ml/bloom/internal/tensor"
	"github.com/bloom-ml/bloom/internal/zoo"
)

// ErrDeviceMismatch marks a forward pass whose input is not placed on the
// model's device.
var ErrDeviceMismatch = errors.New("device mismatch")

// Model is the composed network: a frozen pre-trained feature extractor and
// a trainable classification head, held as separate halves. The split is
// structural; nothing can accidentally hand extractor parameters to the
// optimizer.
type Model struct {
	extractor *zoo.Extractor
	head      *nn.Sequential
	device    tensor.Device
}

// Forward runs the extractor and then the head: one delegation, no
// recursion. The input batch must live on the model's device.
func (m *Model) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	if input.Device() != m.device {
		return nil, fmt.Errorf("%w: input on %s, model on %s", ErrDeviceMismatch, input.Device(), m.device)
	}
	return m.head.Forward(m.extractor.Forward(input)), nil
}

// Extractor returns the frozen feature extractor.
func (m *Model) Extractor() *zoo.Extractor {
	return m.extractor
}

// Head returns the classification head.
func (m *Model) Head() *nn.Sequential {
	return m.head
}

// Device returns the model's placement.
func (m *Model) Device() tensor.Device {
	return m.device
}

// Parameters returns every parameter, frozen and trainable.
func (m *Model) Parameters() []*nn.Parameter {
	params := append([]*nn.Parameter{}, m.extractor.Parameters()...)
	return append(params, m.head.Parameters()...)
}

// TrainableParameters returns exactly the head's parameters. This is the
// optimizer's scope.
func (m *Model) TrainableParameters() []*nn.Parameter {
	return m.head.Parameters()
}

// Train puts the model in training mode, activating dropout.
func (m *Model) Train() {
	nn.SetTraining(m.extractor, true)
	nn.SetTraining(m.head, true)
}

// Eval puts the model in evaluation mode.
func (m *Model) Eval() {
	nn.SetTraining(m.extractor, false)
	nn.SetTraining(m.head, false)
}
