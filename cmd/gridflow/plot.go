package main

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/edp1096/gridflow/pkg/powerflow"
	"github.com/edp1096/gridflow/pkg/util"
)

// saveConvergencePlot draws the mismatch norm per iteration for every
// method attempt in the report, on a log scale.
func saveConvergencePlot(report *powerflow.ConvergenceReport, path string) error {
	p := plot.New()
	p.Title.Text = "Power flow convergence"
	p.X.Label.Text = "iteration"
	p.Y.Label.Text = "mismatch (p.u.)"
	p.Y.Scale = plot.LogScale{}
	p.Y.Tick.Marker = plot.LogTicks{Prec: -1}

	plotted := 0
	for _, e := range report.Entries {
		if len(e.Trace) == 0 {
			continue
		}
		xys := make(plotter.XYs, len(e.Trace))
		for i, v := range e.Trace {
			xys[i].X = float64(i + 1)
			// log scale cannot take zero
			xys[i].Y = util.MaxOf(v, 1e-16)
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return err
		}
		line.Color = plotutil.Color(plotted)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("island %d %s", e.Island, e.Method), line)
		plotted++
	}
	if plotted == 0 {
		return fmt.Errorf("no iteration traces to plot")
	}

	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}
