package checkpoint

import (
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/born-ml/minigrad/internal/autodiff"
	"github.com/born-ml/minigrad/internal/tensor"
)

// optimizerPrefix prefixes the optimizer state entries in the tensor namespace.
const optimizerPrefix = "optimizer."

// StatefulOptimizer is an optimizer whose state is saved along with the parameters.
// optim.SGD and optim.Adam implement it.
type StatefulOptimizer interface {
	autodiff.Optimizer
	StateDict(params []*autodiff.Variable) map[string]*tensor.Tensor
	LoadStateDict(params []*autodiff.Variable, state map[string]*tensor.Tensor) error
}

// Save writes the parameters of g, and the state of its optimizer when it is a
// StatefulOptimizer, to path.
func Save(path string, g *autodiff.Graph, metadata map[string]string) error {
	tensors := make(map[string]*tensor.Tensor)
	params := g.Parameters()
	for i, name := range g.ParameterNames() {
		if strings.HasPrefix(name, optimizerPrefix) {
			return errors.Wrapf(ErrInvalidTensorName, "parameter %q uses the reserved prefix %q", name, optimizerPrefix)
		}
		tensors[name] = params[i].Value()
	}
	if opt, ok := g.Optimizer().(StatefulOptimizer); ok {
		for key, t := range opt.StateDict(params) {
			tensors[optimizerPrefix+key] = t
		}
	}

	//nolint:gosec // G304: File path comes from user input, which is expected for model saving
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "failed to create file")
	}
	if err := Write(file, tensors, metadata); err != nil {
		_ = file.Close()
		return errors.WithMessagef(err, "save %s", path)
	}
	if err := file.Close(); err != nil {
		return errors.Wrapf(err, "close %s", path)
	}
	klog.V(1).Infof("saved %d tensors of graph %q to %s", len(tensors), g.Name(), path)
	return nil
}

// Load reads path into g and returns the file metadata.
//
// Parameters are matched by name: missing ones are created, existing ones must have the same
// shape (ErrShapeMismatch otherwise) and are overwritten in place, preserving their identity.
// Optimizer state is restored when the graph optimizer is a StatefulOptimizer.
func Load(path string, g *autodiff.Graph) (map[string]string, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for model loading
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open file")
	}
	defer func() { _ = file.Close() }()

	tensors, metadata, err := Read(file)
	if err != nil {
		return nil, errors.WithMessagef(err, "load %s", path)
	}

	existing := make(map[string]*autodiff.Variable)
	params := g.Parameters()
	for i, name := range g.ParameterNames() {
		existing[name] = params[i]
	}
	state := make(map[string]*tensor.Tensor)
	values := make(map[string]*tensor.Tensor)
	for name, t := range tensors {
		if key, ok := strings.CutPrefix(name, optimizerPrefix); ok {
			state[key] = t
			continue
		}
		if p, found := existing[name]; found && !p.Shape().Equal(t.Shape()) {
			return nil, errors.Wrapf(autodiff.ErrShapeMismatch, "load %s: parameter %q has shape %v, file has %v",
				path, name, p.Shape(), t.Shape())
		}
		values[name] = t
	}
	// The graph is only modified once the whole file matched.
	for _, name := range slices.Sorted(maps.Keys(values)) {
		t := values[name]
		p, err := g.Parameter(name, t.Shape())
		if err != nil {
			return nil, errors.WithMessagef(err, "load %s", path)
		}
		if err := p.Value().CopyFrom(t); err != nil {
			return nil, errors.WithMessagef(err, "load %s", path)
		}
	}
	if opt, ok := g.Optimizer().(StatefulOptimizer); ok && len(state) > 0 {
		if err := opt.LoadStateDict(g.Parameters(), state); err != nil {
			return nil, errors.WithMessagef(err, "load %s: optimizer state", path)
		}
	}
	klog.V(1).Infof("loaded %d tensors into graph %q from %s", len(tensors), g.Name(), path)
	return metadata, nil
}
