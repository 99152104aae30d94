package deltacast

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/LuisEduardoChavezLjx/ProyectoFinalSimulacionSifilis/correlation"
	"github.com/LuisEduardoChavezLjx/ProyectoFinalSimulacionSifilis/dataset"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

var ErrNothingToPlot = errors.New("no observations to plot")

// LineWeeks generates an echart multi-line chart over week labels. Each series in y must have the
// same length as labels. NaN values are plotted as gaps.
func LineWeeks(title string, seriesName []string, labels []string, y [][]float64) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title: title,
			},
		),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
	)

	line = line.SetXAxis(labels)
	for i, series := range seriesName {
		lineData := make([]opts.LineData, 0, len(y[i]))
		for _, v := range y[i] {
			if math.IsNaN(v) {
				lineData = append(lineData, opts.LineData{Value: "-"})
				continue
			}
			lineData = append(lineData, opts.LineData{Value: v})
		}
		line = line.AddSeries(series, lineData)
	}
	return line
}

// ScatterLevels generates an echart scatter of cases against the lagged index for the rows used by
// the level model.
func ScatterLevels(rep *correlation.Report) *charts.Scatter {
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title:    "Cases vs Lagged Index",
				Subtitle: fmt.Sprintf("r = %.3f, R2 = %.3f", rep.R, rep.R2),
			},
		),
		charts.WithXAxisOpts(opts.XAxis{Name: "index t-1", Type: "value"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "cases t", Type: "value"}),
	)

	points := make([]opts.ScatterData, 0, len(rep.Rows))
	for _, r := range rep.Rows {
		points = append(points, opts.ScatterData{Value: []float64{r.IndexTMinus1, r.CasesT}})
	}
	scatter.AddSeries("Observed", points)
	return scatter
}

func weekLabels(ds *dataset.Dataset) []string {
	labels := make([]string, 0, ds.Len())
	for _, r := range ds.Rows() {
		label := r.Week
		if !r.Period.IsZero() {
			label = fmt.Sprintf("%s (%s)", r.Week, r.Period.Format(dataset.DateLayout))
		}
		labels = append(labels, label)
	}
	return labels
}

// PlotFit uses the Apache Echarts library to render an html page comparing actual cases with both
// reconstructed estimate series. When the level model can be fit its scatter is added as a second
// chart.
func (s *Session) PlotFit(w io.Writer) error {
	if s.ds.Empty() {
		return ErrNothingToPlot
	}

	series := []string{"Actual"}
	y := [][]float64{s.ds.Cases()}
	if s.own.Ready {
		without := s.ds.EstimatesWithoutIntercept()
		with := s.ds.EstimatesWithIntercept()
		// the first week has nothing to be estimated from
		without[0] = math.NaN()
		with[0] = math.NaN()
		series = append(series, "Estimate Without Intercept", "Estimate With Intercept")
		y = append(y, without, with)
	}

	page := components.NewPage()
	page.AddCharts(
		LineWeeks("Reported Cases", series, weekLabels(s.ds), y),
	)

	if rep, err := s.Correlation(); err == nil {
		page.AddCharts(ScatterLevels(rep))
	} else {
		s.log.Debug("skipping level model chart", "reason", err)
	}
	return page.Render(w)
}
