package nn

import (
	"github.com/born-ml/minigrad/internal/autodiff"
)

// NewLinear creates a linear classifier: an affine layer [inputSize → outputSize] followed by a
// softmax cross-entropy head.
//
// The weight and bias parameters are named "affine_0_W" and "affine_0_b".
//
// Example:
//
//	model, err := nn.NewLinear(64, 10, autodiff.WithSeed(1))
func NewLinear(inputSize, outputSize int, opts ...autodiff.Option) (*Sequential, error) {
	build := func() (*Sequential, error) {
		g := autodiff.NewGraph("Linear", opts...)
		affine, err := g.CreateOperation(autodiff.KindAffine, autodiff.Args{
			"input_size":  inputSize,
			"hidden_size": outputSize,
		}, "")
		if err != nil {
			return nil, err
		}
		head, err := g.CreateOperation(autodiff.KindSoftmaxLoss, nil, "")
		if err != nil {
			return nil, err
		}
		return NewSequential(g, affine, head)
	}
	model, err := build()
	if err != nil {
		return nil, err
	}
	model.rebuild = build
	return model, nil
}
