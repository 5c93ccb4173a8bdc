package nn

import (
	"fmt"
	"strings"

	"github.com/bloom-ml/bloom/internal/tensor"
)

// Sequential chains modules so each module's output feeds the next.
//
//	head := nn.NewSequential(
//	    nn.NewLinear(4096, 512),
//	    nn.NewReLU(),
//	    nn.NewLinear(512, 102),
//	)
//	out := head.Forward(input)
type Sequential struct {
	modules []Module
}

// NewSequential creates a Sequential container over the given modules.
func NewSequential(modules ...Module) *Sequential {
	return &Sequential{modules: modules}
}

// Forward applies all modules in order.
func (s *Sequential) Forward(input *tensor.Tensor) *tensor.Tensor {
	output := input
	for _, m := range s.modules {
		output = m.Forward(output)
	}
	return output
}

// Parameters collects the parameters of all modules in order.
func (s *Sequential) Parameters() []*Parameter {
	var params []*Parameter
	for _, m := range s.modules {
		params = append(params, m.Parameters()...)
	}
	return params
}

// Add appends a module to the sequence.
func (s *Sequential) Add(m Module) {
	s.modules = append(s.modules, m)
}

// Len returns the number of modules.
func (s *Sequential) Len() int {
	return len(s.modules)
}

// Module returns the module at the given index.
// Panics if the index is out of bounds.
func (s *Sequential) Module(index int) Module {
	if index < 0 || index >= len(s.modules) {
		panic("sequential: module index out of bounds")
	}
	return s.modules[index]
}

// SetTraining propagates the training mode to every mode-aware child.
func (s *Sequential) SetTraining(training bool) {
	for _, m := range s.modules {
		SetTraining(m, training)
	}
}

// StateDict returns the parameters of all modules, keyed by module index:
// "0.weight", "0.bias", "3.weight", ...
func (s *Sequential) StateDict() map[string]*tensor.Tensor {
	stateDict := make(map[string]*tensor.Tensor)
	for i, m := range s.modules {
		for name, t := range m.StateDict() {
			stateDict[fmt.Sprintf("%d.%s", i, name)] = t
		}
	}
	return stateDict
}

// LoadStateDict loads parameters keyed by module index, as produced by
// StateDict.
func (s *Sequential) LoadStateDict(stateDict map[string]*tensor.Tensor) error {
	for i, m := range s.modules {
		prefix := fmt.Sprintf("%d.", i)
		sub := make(map[string]*tensor.Tensor)
		for key, t := range stateDict {
			if strings.HasPrefix(key, prefix) {
				sub[strings.TrimPrefix(key, prefix)] = t
			}
		}
		if len(sub) == 0 {
			continue
		}
		if err := m.LoadStateDict(sub); err != nil {
			return fmt.Errorf("failed to load module %d: %w", i, err)
		}
	}
	return nil
}
