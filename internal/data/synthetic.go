package data

import (
	"math/rand/v2"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat/distuv"
)

// BlobsConfig configures Blobs.
type BlobsConfig struct {
	Samples  int     // Total number of samples (default: 300)
	Classes  int     // Number of clusters (default: 3)
	Features int     // Feature dimension (default: 2)
	Spread   float64 // Standard deviation around each center (default: 0.5)
	Scale    float64 // Centers are drawn uniformly from [-Scale, Scale] (default: 5)
	Seed     uint64
}

// Blobs generates isotropic gaussian clusters, one per class, with samples assigned round-robin.
func Blobs(cfg BlobsConfig) (*Dataset, error) {
	if cfg.Samples == 0 {
		cfg.Samples = 300
	}
	if cfg.Classes == 0 {
		cfg.Classes = 3
	}
	if cfg.Features == 0 {
		cfg.Features = 2
	}
	if cfg.Spread == 0 {
		cfg.Spread = 0.5
	}
	if cfg.Scale == 0 {
		cfg.Scale = 5
	}
	if cfg.Samples < 0 || cfg.Classes < 1 || cfg.Features < 1 || cfg.Spread < 0 {
		return nil, errors.Wrapf(ErrInvalidDataset, "blobs config %+v", cfg)
	}
	src := rand.NewPCG(cfg.Seed, cfg.Seed+1)

	centerDist := distuv.Uniform{Min: -cfg.Scale, Max: cfg.Scale, Src: src}
	centers := make([][]float64, cfg.Classes)
	for c := range centers {
		centers[c] = make([]float64, cfg.Features)
		for j := range centers[c] {
			centers[c][j] = centerDist.Rand()
		}
	}

	noise := distuv.Normal{Mu: 0, Sigma: cfg.Spread, Src: src}
	d := &Dataset{
		Inputs:     make([][]float64, cfg.Samples),
		Labels:     make([]int, cfg.Samples),
		NumClasses: cfg.Classes,
	}
	for i := range cfg.Samples {
		label := i % cfg.Classes
		x := make([]float64, cfg.Features)
		for j := range x {
			x[j] = centers[label][j] + noise.Rand()
		}
		d.Inputs[i], d.Labels[i] = x, label
	}
	return d, nil
}

// XOR generates points around the four corners (±1, ±1); the label is 1 when the coordinates
// have different signs. noise is the standard deviation of the gaussian jitter.
func XOR(samples int, noise float64, seed uint64) (*Dataset, error) {
	if samples <= 0 || noise < 0 {
		return nil, errors.Wrapf(ErrInvalidDataset, "xor: samples=%d noise=%v", samples, noise)
	}
	src := rand.NewPCG(seed, seed+1)
	jitter := distuv.Normal{Mu: 0, Sigma: noise, Src: src}
	corners := [4][2]float64{{-1, -1}, {-1, 1}, {1, -1}, {1, 1}}

	d := &Dataset{
		Inputs:     make([][]float64, samples),
		Labels:     make([]int, samples),
		NumClasses: 2,
	}
	for i := range samples {
		corner := corners[i%4]
		x := []float64{corner[0], corner[1]}
		if noise > 0 {
			x[0] += jitter.Rand()
			x[1] += jitter.Rand()
		}
		label := 0
		if (corner[0] > 0) != (corner[1] > 0) {
			label = 1
		}
		d.Inputs[i], d.Labels[i] = x, label
	}
	return d, nil
}
