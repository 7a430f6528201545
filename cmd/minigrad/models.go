package main

import (
	"flag"

	"github.com/pkg/errors"

	"github.com/born-ml/minigrad/internal/autodiff"
	"github.com/born-ml/minigrad/internal/data"
	"github.com/born-ml/minigrad/internal/nn"
)

// modelFlags are shared by train and gradcheck.
type modelFlags struct {
	dataset    *string
	samples    *int
	classes    *int
	noise      *float64
	model      *string
	hidden     *int
	activation *string
	seed       *uint64
}

func registerModelFlags(fs *flag.FlagSet) *modelFlags {
	return &modelFlags{
		dataset:    fs.String("dataset", "xor", "Synthetic dataset: xor or blobs."),
		samples:    fs.Int("samples", 400, "Number of samples generated."),
		classes:    fs.Int("classes", 3, "Number of classes of the blobs dataset."),
		noise:      fs.Float64("noise", 0.2, "Gaussian noise of xor, cluster spread of blobs."),
		model:      fs.String("model", "mlp", "Model: linear or mlp."),
		hidden:     fs.Int("hidden", 8, "Hidden units of the mlp model."),
		activation: fs.String("activation", "tanh", "Hidden activation of the mlp model: relu, sigmoid or tanh."),
		seed:       fs.Uint64("seed", 1, "Seed for data generation and parameter initialization."),
	}
}

func (f *modelFlags) buildDataset() (*data.Dataset, error) {
	switch *f.dataset {
	case "xor":
		return data.XOR(*f.samples, *f.noise, *f.seed)
	case "blobs":
		return data.Blobs(data.BlobsConfig{
			Samples: *f.samples,
			Classes: *f.classes,
			Spread:  *f.noise,
			Seed:    *f.seed,
		})
	default:
		return nil, errors.Errorf("unknown -dataset=%q, want xor or blobs", *f.dataset)
	}
}

func (f *modelFlags) buildModel(ds *data.Dataset, opts ...autodiff.Option) (nn.Model, error) {
	opts = append([]autodiff.Option{autodiff.WithSeed(*f.seed)}, opts...)
	switch *f.model {
	case "linear":
		return nn.NewLinear(ds.Features(), ds.NumClasses, opts...)
	case "mlp":
		return nn.NewMLP(nn.MLPConfig{
			InputSize:  ds.Features(),
			HiddenSize: *f.hidden,
			OutputSize: ds.NumClasses,
			Activation: autodiff.Kind(*f.activation),
		}, opts...)
	default:
		return nil, errors.Errorf("unknown -model=%q, want linear or mlp", *f.model)
	}
}
