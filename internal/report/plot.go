package report

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	apperrors "lisstat/internal/errors"
	"lisstat/internal/exporter"
	"lisstat/pkg/contracts/domain"
)

// Default chart size.
const (
	DefaultWidth  = 800
	DefaultHeight = 400
)

// maxTickLabels caps the labelled interval ticks so long tables stay legible.
const maxTickLabels = 20

var (
	barColor        = color.RGBA{R: 70, G: 110, B: 180, A: 255}
	cumulativeColor = color.RGBA{R: 200, G: 40, B: 40, A: 255}
)

// ChartOptions controls the rendered image. Zero values take the defaults.
type ChartOptions struct {
	Width  vg.Length
	Height vg.Length
	// Format is any image format supported by plot.WriterTo; "png" when empty.
	Format string
	Title  string
}

func (o ChartOptions) withDefaults(t *domain.StatisticalTable) ChartOptions {
	if o.Width <= 0 {
		o.Width = vg.Points(DefaultWidth)
	}
	if o.Height <= 0 {
		o.Height = vg.Points(DefaultHeight)
	}
	if o.Format == "" {
		o.Format = "png"
	}
	if o.Title == "" {
		o.Title = "Peak " + exporter.TableLabel(t)
	}
	return o
}

func checkPlottable(t *domain.StatisticalTable) error {
	if t == nil || len(t.Rows) == 0 {
		return apperrors.NewAppValidationError("table has no rows to plot")
	}
	return nil
}

// NewDistributionPlot builds the frequency chart of a table.
func NewDistributionPlot(t *domain.StatisticalTable, title string) (*plot.Plot, error) {
	if err := checkPlottable(t); err != nil {
		return nil, err
	}

	discrete := make(plotter.Values, len(t.Rows))
	cumulative := make(plotter.XYs, len(t.Rows))
	for i, row := range t.Rows {
		discrete[i] = float64(row.FrequencyDiscrete)
		cumulative[i] = plotter.XY{X: float64(i), Y: float64(row.FrequencyCumulative)}
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Peak (per unit)"
	p.Y.Label.Text = "Frequency"
	p.Y.Min = 0
	p.Add(plotter.NewGrid())

	bars, err := plotter.NewBarChart(discrete, vg.Points(barWidth(len(t.Rows))))
	if err != nil {
		return nil, fmt.Errorf("failed to create bar chart: %w", err)
	}
	bars.Color = barColor
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.Legend.Add("Frequency (density)", bars)

	line, points, err := plotter.NewLinePoints(cumulative)
	if err != nil {
		return nil, fmt.Errorf("failed to create cumulative line: %w", err)
	}
	line.Color = cumulativeColor
	line.LineStyle.Width = vg.Points(1.5)
	points.Color = cumulativeColor
	p.Add(line, points)
	p.Legend.Add("Cumulative frequency", line, points)

	p.X.Tick.Marker = plot.ConstantTicks(intervalTicks(t.Rows))
	p.X.Min = -0.5
	p.X.Max = float64(len(t.Rows)) - 0.5
	p.Legend.Top = true
	p.Legend.Left = true

	return p, nil
}

// WriteChart renders the distribution chart of t to w.
func WriteChart(w io.Writer, t *domain.StatisticalTable, opts ChartOptions) error {
	if err := checkPlottable(t); err != nil {
		return err
	}
	opts = opts.withDefaults(t)
	p, err := NewDistributionPlot(t, opts.Title)
	if err != nil {
		return err
	}
	writer, err := p.WriterTo(opts.Width, opts.Height, opts.Format)
	if err != nil {
		return fmt.Errorf("failed to create plot writer: %w", err)
	}
	if _, err := writer.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write plot: %w", err)
	}
	return nil
}

// ChartPNG returns the chart of t as PNG bytes.
func ChartPNG(t *domain.StatisticalTable) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteChart(&buf, t, ChartOptions{}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SaveChart writes the chart to path; the format follows the file extension.
func SaveChart(path string, t *domain.StatisticalTable, opts ChartOptions) error {
	if err := checkPlottable(t); err != nil {
		return err
	}
	opts = opts.withDefaults(t)
	p, err := NewDistributionPlot(t, opts.Title)
	if err != nil {
		return err
	}
	if err := p.Save(opts.Width, opts.Height, path); err != nil {
		return fmt.Errorf("failed to save chart to %s: %w", path, err)
	}
	return nil
}

func barWidth(n int) float64 {
	w := float64(DefaultWidth) * 0.8 / float64(n)
	switch {
	case w > 30:
		return 30
	case w < 2:
		return 2
	}
	return w
}

// intervalTicks labels bar positions with the interval's per-unit value,
// thinning the labels to at most maxTickLabels.
func intervalTicks(rows []domain.TableRow) []plot.Tick {
	step := (len(rows) + maxTickLabels - 1) / maxTickLabels
	ticks := make([]plot.Tick, len(rows))
	for i, row := range rows {
		ticks[i] = plot.Tick{Value: float64(i)}
		if i%step == 0 {
			ticks[i].Label = strconv.FormatFloat(row.PerUnit, 'g', 4, 64)
		}
	}
	return ticks
}
