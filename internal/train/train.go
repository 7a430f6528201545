// Package train runs mini-batch training loops over nn models and evaluates their accuracy.
package train

import (
	"context"
	"io"
	"math/rand/v2"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"k8s.io/klog/v2"

	"github.com/born-ml/minigrad/internal/autodiff"
	"github.com/born-ml/minigrad/internal/data"
	"github.com/born-ml/minigrad/internal/nn"
)

// Config holds the training loop configuration.
type Config struct {
	Epochs      int       // Number of passes over the training set (default: 100)
	BatchSize   int       // Samples per optimizer step (default: 32)
	Seed        uint64    // Seed of the per-epoch shuffle
	EvalWorkers int       // Goroutines used by Evaluate (default: 1)
	LogEvery    int       // Log a summary every LogEvery epochs (default: Epochs/10, at least 1)
	Progress    bool      // Display a progress bar
	Output      io.Writer // Progress bar output (default: os.Stderr)
}

func (c Config) withDefaults() Config {
	if c.Epochs == 0 {
		c.Epochs = 100
	}
	if c.BatchSize == 0 {
		c.BatchSize = 32
	}
	if c.EvalWorkers == 0 {
		c.EvalWorkers = 1
	}
	if c.LogEvery == 0 {
		c.LogEvery = max(c.Epochs/10, 1)
	}
	if c.Output == nil {
		c.Output = os.Stderr
	}
	return c
}

// EpochStats summarizes one epoch.
type EpochStats struct {
	Epoch         int
	Loss          float64 // Sample-weighted mean training loss
	TrainAccuracy float64
	TestAccuracy  float64 // 0 when no test set was given
	Duration      time.Duration
}

// History is the per-epoch record of a Fit call.
type History struct {
	Epochs []EpochStats
	Steps  int
}

// Last returns the stats of the last completed epoch.
func (h *History) Last() EpochStats {
	if len(h.Epochs) == 0 {
		return EpochStats{}
	}
	return h.Epochs[len(h.Epochs)-1]
}

// Trainer fits a model with the optimizer configured on its graph.
type Trainer struct {
	model nn.Model
	cfg   Config
}

// NewTrainer creates a trainer. The model graph must have an optimizer.
func NewTrainer(model nn.Model, cfg Config) (*Trainer, error) {
	if model.Graph().Optimizer() == nil {
		return nil, errors.Wrapf(autodiff.ErrNoOptimizer, "NewTrainer: graph %q", model.Graph().Name())
	}
	cfg = cfg.withDefaults()
	if cfg.Epochs < 0 || cfg.BatchSize < 0 || cfg.EvalWorkers < 0 {
		return nil, errors.Errorf("NewTrainer: invalid config %+v", cfg)
	}
	return &Trainer{model: model, cfg: cfg}, nil
}

// Config returns the configuration with defaults applied.
func (t *Trainer) Config() Config {
	return t.cfg
}

// Fit trains on trainSet for the configured number of epochs, shuffling every epoch, and
// evaluates accuracy on trainSet and testSet (optional) at the end of each epoch.
//
// Cancellation is checked between optimizer steps; the history of completed epochs is returned
// along with ctx.Err().
func (t *Trainer) Fit(ctx context.Context, trainSet, testSet *data.Dataset) (*History, error) {
	if err := trainSet.Validate(); err != nil {
		return nil, errors.WithMessage(err, "training set")
	}
	if testSet != nil {
		if err := testSet.Validate(); err != nil {
			return nil, errors.WithMessage(err, "test set")
		}
	}
	// Shuffle a shallow copy, the caller's dataset keeps its order.
	shuffled := trainSet.Subset(identity(trainSet.Len()))
	src := rand.NewPCG(t.cfg.Seed, t.cfg.Seed^0x5851f42d4c957f2d)

	numBatches := (shuffled.Len() + t.cfg.BatchSize - 1) / t.cfg.BatchSize
	var bar *progressbar.ProgressBar
	if t.cfg.Progress {
		bar = progressbar.NewOptions(t.cfg.Epochs*numBatches,
			progressbar.OptionSetWriter(t.cfg.Output),
			progressbar.OptionSetDescription("training"),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("steps"),
			progressbar.OptionSetTheme(progressbar.ThemeASCII),
			progressbar.OptionClearOnFinish(),
		)
		defer func() { _ = bar.Finish() }()
	}

	g := t.model.Graph()
	history := &History{}
	klog.V(1).Infof("training %q: %d epochs, %d samples, batch size %d", g.Name(), t.cfg.Epochs, shuffled.Len(), t.cfg.BatchSize)
	for epoch := range t.cfg.Epochs {
		start := time.Now()
		shuffled.Shuffle(src)
		batches, err := shuffled.Batches(t.cfg.BatchSize)
		if err != nil {
			return history, err
		}

		var lossSum float64
		for _, b := range batches {
			if err := ctx.Err(); err != nil {
				return history, err
			}
			x, y := autodiff.NewVariable(b.X), autodiff.NewVariable(b.Y)
			loss, err := g.TrainStep(func() (float64, error) {
				if _, err := t.model.Forward(x); err != nil {
					return 0, err
				}
				return t.model.Loss(y)
			})
			if err != nil {
				return history, errors.WithMessagef(err, "epoch %d, step %d", epoch, history.Steps)
			}
			lossSum += loss * float64(b.X.Shape()[0])
			history.Steps++
			if bar != nil {
				_ = bar.Add(1)
			}
		}

		stats := EpochStats{Epoch: epoch, Loss: lossSum / float64(shuffled.Len())}
		if stats.TrainAccuracy, err = Evaluate(ctx, t.model, trainSet, t.cfg.EvalWorkers); err != nil {
			return history, err
		}
		if testSet != nil {
			if stats.TestAccuracy, err = Evaluate(ctx, t.model, testSet, t.cfg.EvalWorkers); err != nil {
				return history, err
			}
		}
		stats.Duration = time.Since(start)
		history.Epochs = append(history.Epochs, stats)

		if (epoch+1)%t.cfg.LogEvery == 0 || epoch+1 == t.cfg.Epochs {
			klog.Infof("epoch %d/%d: loss=%.4f train_acc=%.3f test_acc=%.3f (%s)",
				epoch+1, t.cfg.Epochs, stats.Loss, stats.TrainAccuracy, stats.TestAccuracy, stats.Duration)
		}
	}
	return history, nil
}

func identity(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}
