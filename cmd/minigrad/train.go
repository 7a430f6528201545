package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/born-ml/minigrad/internal/autodiff"
	"github.com/born-ml/minigrad/internal/checkpoint"
	"github.com/born-ml/minigrad/internal/optim"
	"github.com/born-ml/minigrad/internal/train"
)

func runTrain(args []string) error {
	fs := newFlagSet("train")
	mf := registerModelFlags(fs)
	var (
		flagOptimizer = fs.String("optimizer", "sgd", "Optimizer: sgd or adam.")
		flagLR        = fs.Float64("lr", 0.1, "Learning rate.")
		flagMomentum  = fs.Float64("momentum", 0.9, "SGD momentum.")
		flagEpochs    = fs.Int("epochs", 100, "Number of epochs.")
		flagBatch     = fs.Int("batch", 16, "Batch size.")
		flagTestSplit = fs.Float64("test", 0.2, "Fraction of the samples held out for testing.")
		flagWorkers   = fs.Int("workers", 1, "Goroutines used to evaluate accuracy.")
		flagProgress  = fs.Bool("progress", true, "Display a progress bar.")
		flagLoad      = fs.String("load", "", "Checkpoint to restore before training.")
		flagSave      = fs.String("save", "", "Checkpoint to write after training.")
	)
	must.M(fs.Parse(args))

	ds, err := mf.buildDataset()
	if err != nil {
		return err
	}
	ds.Shuffle(rand.NewPCG(*mf.seed, *mf.seed+7))
	trainSet, testSet, err := ds.Split(1 - *flagTestSplit)
	if err != nil {
		return errors.WithMessage(err, "-test")
	}

	var opt optim.Optimizer
	switch *flagOptimizer {
	case "sgd":
		opt = optim.NewSGD(optim.SGDConfig{LR: *flagLR, Momentum: *flagMomentum})
	case "adam":
		opt = optim.NewAdam(optim.AdamConfig{LR: *flagLR})
	default:
		return errors.Errorf("unknown -optimizer=%q, want sgd or adam", *flagOptimizer)
	}
	model, err := mf.buildModel(ds, autodiff.WithOptimizer(opt))
	if err != nil {
		return err
	}
	g := model.Graph()
	if *flagLoad != "" {
		meta, err := checkpoint.Load(*flagLoad, g)
		if err != nil {
			return err
		}
		klog.Infof("restored %s (%d metadata entries)", *flagLoad, len(meta))
	}
	klog.Infof("model %s: %s parameters, %s training samples", g.Name(),
		humanize.Comma(int64(g.NumParameters())), humanize.Comma(int64(trainSet.Len())))

	trainer, err := train.NewTrainer(model, train.Config{
		Epochs:      *flagEpochs,
		BatchSize:   *flagBatch,
		Seed:        *mf.seed,
		EvalWorkers: *flagWorkers,
		Progress:    *flagProgress,
	})
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	history, err := trainer.Fit(ctx, trainSet, testSet)
	if errors.Is(err, context.Canceled) {
		klog.Warningf("training interrupted after %d epochs", len(history.Epochs))
	} else if err != nil {
		return err
	}

	last := history.Last()
	table := newPlainTable(false)
	table.Row("model", fmt.Sprintf("%s (%s)", *mf.model, g.Name()))
	table.Row("dataset", fmt.Sprintf("%s, %s samples", *mf.dataset, humanize.Comma(int64(ds.Len()))))
	table.Row("# parameters", humanize.Comma(int64(g.NumParameters())))
	table.Row("optimizer", fmt.Sprintf("%s lr=%g", *flagOptimizer, opt.LR()))
	table.Row("epochs", strconv.Itoa(len(history.Epochs)))
	table.Row("steps", humanize.Comma(int64(history.Steps)))
	table.Row("loss", fmt.Sprintf("%.4f", last.Loss))
	table.Row("train accuracy", fmt.Sprintf("%.2f%%", 100*last.TrainAccuracy))
	table.Row("test accuracy", fmt.Sprintf("%.2f%%", 100*last.TestAccuracy))
	fmt.Println(titleStyle.Render("Training"))
	fmt.Println(table.Render())

	if *flagSave != "" {
		meta := map[string]string{
			"model":   *mf.model,
			"dataset": *mf.dataset,
			"epochs":  strconv.Itoa(len(history.Epochs)),
		}
		if err := checkpoint.Save(*flagSave, g, meta); err != nil {
			return err
		}
		klog.Infof("saved %s", *flagSave)
	}
	return nil
}
