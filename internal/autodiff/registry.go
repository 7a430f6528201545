package autodiff

import (
	"slices"
	"sync"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Factory builds an operation bound to g under the given (already unique) name.
type Factory func(g *Graph, name string, args Args) (Operation, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[Kind]Factory)
)

func init() {
	for kind, factory := range map[Kind]Factory{
		KindAdd:         newAdd,
		KindMultiply:    newMultiply,
		KindMatMul:      newMatMul,
		KindReLU:        newReLU,
		KindSigmoid:     newSigmoid,
		KindTanh:        newTanh,
		KindAffine:      newAffine,
		KindSoftmaxLoss: newSoftmaxLoss,
		KindSquareLoss:  newSquareLoss,
	} {
		if err := RegisterOperation(kind, factory); err != nil {
			panic(err)
		}
	}
}

var (
	_ Operation     = (*AddOp)(nil)
	_ Operation     = (*MultiplyOp)(nil)
	_ Operation     = (*MatMulOp)(nil)
	_ Operation     = (*ReLUOp)(nil)
	_ Operation     = (*SigmoidOp)(nil)
	_ Operation     = (*TanhOp)(nil)
	_ Operation     = (*AffineOp)(nil)
	_ LossOperation = (*SoftmaxLossOp)(nil)
	_ LossOperation = (*SquareLossOp)(nil)
)

// RegisterOperation adds an operation variant to the registry used by Graph.CreateOperation.
//
// Registering an existing kind is an error.
func RegisterOperation(kind Kind, factory Factory) error {
	if kind == "" || factory == nil {
		return errors.Wrap(ErrInvalidArgument, "RegisterOperation: empty kind or nil factory")
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, found := registry[kind]; found {
		return errors.Errorf("RegisterOperation: kind %q already registered", kind)
	}
	registry[kind] = factory
	klog.V(3).Infof("registered operation kind %q", kind)
	return nil
}

// Kinds returns the registered operation kinds, sorted.
func Kinds() []Kind {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return sortedKinds(registry)
}

func lookupFactory(kind Kind) (Factory, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	factory, found := registry[kind]
	if !found {
		return nil, errors.Wrapf(ErrUnknownOperation, "%q (registered: %v)", kind, sortedKinds(registry))
	}
	return factory, nil
}

func sortedKinds(m map[Kind]Factory) []Kind {
	kinds := make([]Kind, 0, len(m))
	for kind := range m {
		kinds = append(kinds, kind)
	}
	slices.Sort(kinds)
	return kinds
}
