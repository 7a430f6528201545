// Package data provides in-memory classification datasets and mini-batching.
//
// Datasets are small synthetic problems (gaussian blobs, XOR) used to train and check the models
// of package nn. Batches are plain tensors: inputs [batch, features] and class labels [batch].
package data

import (
	"math/rand/v2"

	"github.com/pkg/errors"

	"github.com/born-ml/minigrad/internal/tensor"
)

// ErrInvalidDataset reports inconsistent inputs, labels or class counts.
var ErrInvalidDataset = errors.New("invalid dataset")

// Dataset is a labeled set of feature vectors.
type Dataset struct {
	Inputs     [][]float64
	Labels     []int
	NumClasses int
}

// Batch is one mini-batch: X has shape [batch, features], Y holds class indices, shape [batch].
type Batch struct {
	X *tensor.Tensor
	Y *tensor.Tensor
}

// Len returns the number of samples.
func (d *Dataset) Len() int {
	return len(d.Inputs)
}

// Features returns the feature dimension (0 for an empty dataset).
func (d *Dataset) Features() int {
	if len(d.Inputs) == 0 {
		return 0
	}
	return len(d.Inputs[0])
}

// Validate checks that every sample has the same number of features and a label in
// [0, NumClasses).
func (d *Dataset) Validate() error {
	if len(d.Inputs) != len(d.Labels) {
		return errors.Wrapf(ErrInvalidDataset, "%d inputs, %d labels", len(d.Inputs), len(d.Labels))
	}
	if d.NumClasses < 1 {
		return errors.Wrapf(ErrInvalidDataset, "NumClasses=%d", d.NumClasses)
	}
	features := d.Features()
	for i, in := range d.Inputs {
		if len(in) != features || features == 0 {
			return errors.Wrapf(ErrInvalidDataset, "sample %d has %d features, want %d", i, len(in), features)
		}
		if d.Labels[i] < 0 || d.Labels[i] >= d.NumClasses {
			return errors.Wrapf(ErrInvalidDataset, "sample %d has label %d, want [0, %d)", i, d.Labels[i], d.NumClasses)
		}
	}
	return nil
}

// Subset returns the samples at indices. Rows are shared, not copied.
func (d *Dataset) Subset(indices []int) *Dataset {
	sub := &Dataset{
		Inputs:     make([][]float64, len(indices)),
		Labels:     make([]int, len(indices)),
		NumClasses: d.NumClasses,
	}
	for i, idx := range indices {
		sub.Inputs[i] = d.Inputs[idx]
		sub.Labels[i] = d.Labels[idx]
	}
	return sub
}

// Split returns the first fraction of the samples and the rest. Shuffle first for a random split.
func (d *Dataset) Split(fraction float64) (first, rest *Dataset, err error) {
	if fraction <= 0 || fraction >= 1 {
		return nil, nil, errors.Errorf("split fraction %v must be in (0, 1)", fraction)
	}
	n := int(fraction * float64(d.Len()))
	first = &Dataset{Inputs: d.Inputs[:n:n], Labels: d.Labels[:n:n], NumClasses: d.NumClasses}
	rest = &Dataset{Inputs: d.Inputs[n:], Labels: d.Labels[n:], NumClasses: d.NumClasses}
	return first, rest, nil
}

// Shuffle permutes the samples in place.
func (d *Dataset) Shuffle(src rand.Source) {
	rng := rand.New(src) //nolint:gosec // data order, not security-critical
	rng.Shuffle(d.Len(), func(i, j int) {
		d.Inputs[i], d.Inputs[j] = d.Inputs[j], d.Inputs[i]
		d.Labels[i], d.Labels[j] = d.Labels[j], d.Labels[i]
	})
}

// Tensors packs the whole dataset as one batch.
func (d *Dataset) Tensors() (Batch, error) {
	return d.batch(0, d.Len())
}

// Batches splits the dataset, in order, into batches of size samples; the last one may be
// smaller.
func (d *Dataset) Batches(size int) ([]Batch, error) {
	if size <= 0 {
		return nil, errors.Errorf("batch size %d must be > 0", size)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	batches := make([]Batch, 0, (d.Len()+size-1)/size)
	for start := 0; start < d.Len(); start += size {
		b, err := d.batch(start, min(start+size, d.Len()))
		if err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	return batches, nil
}

func (d *Dataset) batch(start, end int) (Batch, error) {
	x, err := tensor.FromRows(d.Inputs[start:end])
	if err != nil {
		return Batch{}, errors.WithMessagef(err, "batch [%d, %d)", start, end)
	}
	labels := make([]float64, end-start)
	for i, l := range d.Labels[start:end] {
		labels[i] = float64(l)
	}
	y, err := tensor.New(tensor.Shape{end - start}, labels)
	if err != nil {
		return Batch{}, err
	}
	return Batch{X: x, Y: y}, nil
}
