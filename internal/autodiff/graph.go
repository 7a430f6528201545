package autodiff

import (
	"fmt"
	"math/rand/v2"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/born-ml/minigrad/internal/tensor"
)

// Optimizer updates parameter values in place from their accumulated gradients.
type Optimizer interface {
	Step(params []*Variable) error
}

// Initializer creates the initial value of a new parameter.
type Initializer func(name string, shape tensor.Shape, src rand.Source) *tensor.Tensor

// DefaultInitializer uses Xavier/Glorot uniform values for rank >= 2 parameters (weights) and
// zeros otherwise (biases).
func DefaultInitializer(_ string, shape tensor.Shape, src rand.Source) *tensor.Tensor {
	if shape.Rank() >= 2 {
		return tensor.Xavier(shape, src)
	}
	return tensor.Zeros(shape)
}

// Option configures a Graph.
type Option func(*Graph)

// WithSeed seeds the random source used for parameter initialization.
func WithSeed(seed uint64) Option {
	return func(g *Graph) {
		g.src = rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	}
}

// WithInitializer replaces DefaultInitializer.
func WithInitializer(init Initializer) Option {
	return func(g *Graph) {
		g.initializer = init
	}
}

// WithOptimizer sets the optimizer applied by Step and TrainStep.
func WithOptimizer(opt Optimizer) Option {
	return func(g *Graph) {
		g.optimizer = opt
	}
}

// Graph owns the parameter registry, the optimizer hook and the forward trace of the current
// pass, and drives backpropagation by replaying the trace in reverse.
//
// In training mode (the initial state) every Forward appends its operation to the trace. In
// evaluation mode nothing is recorded, so a following Backward has nothing to do.
//
// A Graph, its operations and its variables belong to one goroutine. Run independent graphs to
// use several goroutines.
//
// Example:
//
//	g := autodiff.NewGraph("linear")
//	affine, _ := g.CreateOperation(autodiff.KindAffine, autodiff.Args{"input_size": 2, "hidden_size": 1}, "")
//	out, _ := affine.Forward(autodiff.NewVariable(x))
//	_ = out.SetGrad(tensor.Ones(out.Shape()))
//	_ = g.Backward()
type Graph struct {
	name     string
	training bool
	trace    []Operation

	params     map[string]*Variable
	paramNames []string // registration order
	kindIndex  map[Kind]int

	initializer Initializer
	src         rand.Source
	optimizer   Optimizer
}

// NewGraph creates an empty graph in training mode.
func NewGraph(name string, opts ...Option) *Graph {
	g := &Graph{
		name:        name,
		training:    true,
		trace:       make([]Operation, 0, 16),
		params:      make(map[string]*Variable),
		kindIndex:   make(map[Kind]int),
		initializer: DefaultInitializer,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.src == nil {
		g.src = rand.NewPCG(rand.Uint64(), rand.Uint64()) //nolint:gosec // ML initialization, not security-critical
	}
	return g
}

// Name returns the graph name.
func (g *Graph) Name() string {
	return g.name
}

// CreateOperation instantiates an operation of the given kind bound to g.
//
// An empty name is replaced by "<kind>_<index>", where index counts the requests of that kind
// made on this graph. Unknown kinds fail with ErrUnknownOperation.
func (g *Graph) CreateOperation(kind Kind, args Args, name string) (Operation, error) {
	factory, err := lookupFactory(kind)
	if err != nil {
		return nil, err
	}
	index := g.kindIndex[kind]
	g.kindIndex[kind] = index + 1
	if name == "" {
		name = fmt.Sprintf("%s_%d", kind, index)
	}
	op, err := factory(g, name, args)
	if err != nil {
		return nil, errors.WithMessagef(err, "graph %q: create %s %q", g.name, kind, name)
	}
	return op, nil
}

// Parameter returns the trainable variable registered under name, creating it with the graph
// initializer on first request.
//
// The same name always yields the same *Variable, which is what lets optimizers update parameters
// in place. Requesting an existing name with another shape fails with ErrShapeMismatch.
func (g *Graph) Parameter(name string, shape tensor.Shape) (*Variable, error) {
	if p, found := g.params[name]; found {
		if !p.Shape().Equal(shape) {
			return nil, errors.Wrapf(ErrShapeMismatch, "graph %q: parameter %q has shape %v, requested %v",
				g.name, name, p.Shape(), shape)
		}
		return p, nil
	}
	if err := shape.Validate(); err != nil {
		return nil, errors.WithMessagef(err, "graph %q: parameter %q", g.name, name)
	}
	value := g.initializer(name, shape, g.src)
	if value == nil || !value.Shape().Equal(shape) {
		return nil, errors.Wrapf(ErrShapeMismatch, "graph %q: initializer returned a bad value for parameter %q %v",
			g.name, name, shape)
	}
	p := NewVariable(value)
	g.params[name] = p
	g.paramNames = append(g.paramNames, name)
	klog.V(2).Infof("graph %q: created parameter %q %v", g.name, name, shape)
	return p, nil
}

// Parameters returns the registered parameters in registration order.
func (g *Graph) Parameters() []*Variable {
	params := make([]*Variable, len(g.paramNames))
	for i, name := range g.paramNames {
		params[i] = g.params[name]
	}
	return params
}

// ParameterNames returns the registered parameter names in registration order.
func (g *Graph) ParameterNames() []string {
	return append([]string(nil), g.paramNames...)
}

// NumParameters returns the total number of scalar parameters.
func (g *Graph) NumParameters() int {
	n := 0
	for _, p := range g.params {
		n += p.Value().Len()
	}
	return n
}

// CopyParametersFrom copies every parameter value of src into g, by name, creating missing
// parameters. Used to build evaluation replicas.
func (g *Graph) CopyParametersFrom(src *Graph) error {
	for _, name := range src.paramNames {
		from := src.params[name]
		to, err := g.Parameter(name, from.Shape())
		if err != nil {
			return err
		}
		if err := to.Value().CopyFrom(from.Value()); err != nil {
			return err
		}
	}
	return nil
}

// SetTraining switches between training (true) and evaluation (false) mode.
func (g *Graph) SetTraining(training bool) {
	g.training = training
}

// Training reports whether forward calls are recorded.
func (g *Graph) Training() bool {
	return g.training
}

// Record appends op to the trace. Operations call it from Forward in training mode.
func (g *Graph) Record(op Operation) {
	g.trace = append(g.trace, op)
}

// Trace returns a copy of the operations recorded in the current pass.
func (g *Graph) Trace() []Operation {
	return append([]Operation(nil), g.trace...)
}

// TraceLen returns the number of operations recorded in the current pass.
func (g *Graph) TraceLen() int {
	return len(g.trace)
}

// Backward replays the trace in reverse order, running each operation's backward.
//
// Operations already reached by recursive propagation are skipped. The trace is cleared
// afterwards, also when an operation fails. Gradients are not zeroed: use ZeroGrad or Step.
func (g *Graph) Backward() error {
	if len(g.trace) == 0 {
		return nil
	}
	defer g.Clear()
	klog.V(2).Infof("graph %q: backward over %d operations", g.name, len(g.trace))
	for i := len(g.trace) - 1; i >= 0; i-- {
		op := g.trace[i]
		if err := op.Backward(); err != nil {
			return errors.WithMessagef(err, "graph %q: backward of %q", g.name, op.Name())
		}
	}
	return nil
}

// Clear drops the trace without running backward and resets the pending-consumer counters of the
// discarded operations' inputs.
func (g *Graph) Clear() {
	for _, op := range g.trace {
		for _, in := range op.Inputs() {
			in.pending = 0
		}
	}
	clear(g.trace)
	g.trace = g.trace[:0]
}

// ZeroGrad zeroes the gradient of every registered parameter.
func (g *Graph) ZeroGrad() {
	for _, p := range g.params {
		p.ZeroGrad()
	}
}

// SetOptimizer sets the optimizer applied by Step and TrainStep.
func (g *Graph) SetOptimizer(opt Optimizer) {
	g.optimizer = opt
}

// Optimizer returns the configured optimizer, or nil.
func (g *Graph) Optimizer() Optimizer {
	return g.optimizer
}

// Step applies the optimizer to all parameters and then zeroes their gradients.
func (g *Graph) Step() error {
	if g.optimizer == nil {
		return errors.Wrapf(ErrNoOptimizer, "graph %q", g.name)
	}
	if err := g.optimizer.Step(g.Parameters()); err != nil {
		return errors.WithMessagef(err, "graph %q: optimizer step", g.name)
	}
	g.ZeroGrad()
	return nil
}

// TrainStep runs one scoped training step: it discards any stale trace, zeroes gradients, runs
// fn (forward and loss) in training mode, back-propagates and applies the optimizer.
//
// It returns the loss reported by fn.
func (g *Graph) TrainStep(fn func() (float64, error)) (float64, error) {
	if g.optimizer == nil {
		return 0, errors.Wrapf(ErrNoOptimizer, "graph %q", g.name)
	}
	wasTraining := g.training
	g.training = true
	defer func() { g.training = wasTraining }()

	g.Clear()
	g.ZeroGrad()
	loss, err := fn()
	if err != nil {
		g.Clear()
		return 0, err
	}
	if err := g.Backward(); err != nil {
		return 0, err
	}
	if err := g.Step(); err != nil {
		return 0, err
	}
	return loss, nil
}
