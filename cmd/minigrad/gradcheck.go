package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"

	"github.com/born-ml/minigrad/internal/gradcheck"
)

func runGradCheck(args []string) error {
	fs := newFlagSet("gradcheck")
	mf := registerModelFlags(fs)
	var (
		flagBatch = fs.Int("batch", 8, "Samples in the checked batch.")
		flagStep  = fs.Float64("step", 1e-6, "Finite-difference step.")
		flagTol   = fs.Float64("tol", 1e-4, "Maximum relative difference accepted.")
	)
	must.M(fs.Parse(args))

	ds, err := mf.buildDataset()
	if err != nil {
		return err
	}
	model, err := mf.buildModel(ds)
	if err != nil {
		return err
	}
	batches, err := ds.Batches(*flagBatch)
	if err != nil {
		return err
	}
	results, err := gradcheck.CheckModel(model, batches[0].X, batches[0].Y, gradcheck.Config{Step: *flagStep, Tolerance: *flagTol})
	if err != nil {
		return err
	}

	table := newPlainTableWithReds(true, lipgloss.Left, lipgloss.Right)
	table.table.Headers("parameter", "shape", "max abs diff", "max rel diff", "status")
	shapes := model.Graph().Parameters()
	var failed int
	for i, r := range results {
		status := "ok"
		if !r.Passed() {
			status = "FAILED"
			failed++
		}
		table.Row(!r.Passed(), r.Name, fmt.Sprint(shapes[i].Shape()),
			fmt.Sprintf("%.3g", r.MaxAbsDiff), fmt.Sprintf("%.3g", r.MaxRelDiff), status)
	}
	fmt.Println(titleStyle.Render(fmt.Sprintf("Gradient check (%s, tolerance %g)", *mf.model, *flagTol)))
	fmt.Println(table.table.Render())
	if failed > 0 {
		return errors.Errorf("%d of %d parameters failed the gradient check", failed, len(results))
	}
	return nil
}
