package train

import (
	"context"
	"sync/atomic"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/born-ml/minigrad/internal/data"
	"github.com/born-ml/minigrad/internal/nn"
	"github.com/born-ml/minigrad/internal/parallel"
	"github.com/born-ml/minigrad/internal/tensor"
)

// Evaluate returns the fraction of samples of ds whose predicted class equals the label.
//
// With workers > 1 the samples are split in contiguous chunks and every chunk is predicted by its
// own clone of model, since a graph must not be shared between goroutines. The model itself is
// only read (its parameters are copied into the clones) and is left in its current mode.
func Evaluate(ctx context.Context, model nn.Model, ds *data.Dataset, workers int) (float64, error) {
	if ds.Len() == 0 {
		return 0, errors.Wrap(data.ErrInvalidDataset, "Evaluate: empty dataset")
	}
	cfg := parallel.WithWorkers(workers)
	chunks := parallel.Chunks(ds.Len(), cfg)

	replicas := []nn.Model{model}
	if len(chunks) > 1 {
		replicas = make([]nn.Model, len(chunks))
		for i := range replicas {
			clone, err := model.Clone()
			if err != nil {
				return 0, errors.WithMessage(err, "Evaluate: replica")
			}
			replicas[i] = clone
		}
		klog.V(2).Infof("evaluating %d samples on %d replicas", ds.Len(), len(replicas))
	}

	var correct atomic.Int64
	err := parallel.ForWorkers(ctx, ds.Len(), cfg, func(ctx context.Context, worker int, r parallel.Range) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		x, err := tensor.FromRows(ds.Inputs[r.Start:r.End])
		if err != nil {
			return err
		}
		pred, err := nn.Predict(replicas[worker], x)
		if err != nil {
			return err
		}
		var n int64
		for i, p := range pred {
			if p == ds.Labels[r.Start+i] {
				n++
			}
		}
		correct.Add(n)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return float64(correct.Load()) / float64(ds.Len()), nil
}
