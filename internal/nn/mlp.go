package nn

import (
	"github.com/pkg/errors"

	"github.com/born-ml/minigrad/internal/autodiff"
)

// MLPConfig configures a two-layer perceptron.
type MLPConfig struct {
	InputSize  int
	HiddenSize int
	OutputSize int
	Activation autodiff.Kind // relu (default), sigmoid or tanh
}

// NewMLP creates affine → activation → affine followed by a softmax cross-entropy head.
//
// Example:
//
//	model, err := nn.NewMLP(nn.MLPConfig{InputSize: 2, HiddenSize: 8, OutputSize: 2})
func NewMLP(cfg MLPConfig, opts ...autodiff.Option) (*Sequential, error) {
	if cfg.Activation == "" {
		cfg.Activation = autodiff.KindReLU
	}
	switch cfg.Activation {
	case autodiff.KindReLU, autodiff.KindSigmoid, autodiff.KindTanh:
	default:
		return nil, errors.Wrapf(autodiff.ErrInvalidArgument, "NewMLP: activation %q is not relu, sigmoid or tanh", cfg.Activation)
	}

	build := func() (*Sequential, error) {
		g := autodiff.NewGraph("MLP", opts...)
		hidden, err := g.CreateOperation(autodiff.KindAffine, autodiff.Args{
			"input_size":  cfg.InputSize,
			"hidden_size": cfg.HiddenSize,
		}, "")
		if err != nil {
			return nil, err
		}
		act, err := g.CreateOperation(cfg.Activation, nil, "")
		if err != nil {
			return nil, err
		}
		output, err := g.CreateOperation(autodiff.KindAffine, autodiff.Args{
			"input_size":  cfg.HiddenSize,
			"hidden_size": cfg.OutputSize,
		}, "")
		if err != nil {
			return nil, err
		}
		head, err := g.CreateOperation(autodiff.KindSoftmaxLoss, nil, "")
		if err != nil {
			return nil, err
		}
		return NewSequential(g, hidden, act, output, head)
	}
	model, err := build()
	if err != nil {
		return nil, err
	}
	model.rebuild = build
	return model, nil
}
