// Package report renders run summaries for people: population charts and
// census lines.
package report

import (
	"errors"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ErrTooFewSamples is returned when a chart would have no extent.
var ErrTooFewSamples = errors.New("need at least two samples to chart")

// Sample is the population of one generation.
type Sample struct {
	Generation int64
	Alive      int
	Dying      int
}

// Chart size in pixels.
const (
	ChartWidth  = 960
	ChartHeight = 360
)

// PopulationChart renders alive and dying counts over generations as a PNG.
func PopulationChart(w io.Writer, samples []Sample) error {
	if len(samples) < 2 {
		return ErrTooFewSamples
	}

	xs := make([]float64, len(samples))
	alive := make([]float64, len(samples))
	dying := make([]float64, len(samples))
	yMax := 1.0
	for i, s := range samples {
		xs[i] = float64(s.Generation)
		alive[i] = float64(s.Alive)
		dying[i] = float64(s.Dying)
		yMax = max(yMax, alive[i], dying[i])
	}
	xMin, xMax := xs[0], xs[len(xs)-1]
	if xMax <= xMin {
		xMax = xMin + 1
	}

	graph := chart.Chart{
		Width:  ChartWidth,
		Height: ChartHeight,
		Background: chart.Style{
			Padding: chart.Box{Top: 20, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.XAxis{
			Name:  "generation",
			Style: chart.Style{FontSize: 10.0},
			Range: &chart.ContinuousRange{Min: xMin, Max: xMax},
			ValueFormatter: func(v interface{}) string {
				return fmt.Sprintf("%d", int64(v.(float64)))
			},
		},
		YAxis: chart.YAxis{
			Name:  "cells",
			Style: chart.Style{FontSize: 10.0},
			Range: &chart.ContinuousRange{Min: 0, Max: yMax * 1.05},
			ValueFormatter: func(v interface{}) string {
				return humanize.Comma(int64(v.(float64)))
			},
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "alive",
				XValues: xs,
				YValues: alive,
				Style:   chart.Style{StrokeColor: chart.ColorBlue, StrokeWidth: 2.0},
			},
			chart.ContinuousSeries{
				Name:    "dying",
				XValues: xs,
				YValues: dying,
				Style:   chart.Style{StrokeColor: drawing.Color{R: 255, G: 165, B: 0, A: 255}, StrokeWidth: 2.0},
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("failed to render population chart: %w", err)
	}
	return nil
}
