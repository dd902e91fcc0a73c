package main

import (
	"errors"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// plotMup saves a histogram of mutation probabilities.
func plotMup(mups []float64, path string) error {
	if len(mups) == 0 {
		return errors.New("no calls to plot")
	}
	p := plot.New()
	p.Title.Text = "De novo mutations"
	p.X.Label.Text = "mutation probability"
	p.Y.Label.Text = "sites"

	h, err := plotter.NewHist(plotter.Values(mups), 20)
	if err != nil {
		return err
	}
	p.Add(h)

	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}
