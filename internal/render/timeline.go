package render

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/relabs-tech/mobility_mapper/internal/features"
	"github.com/relabs-tech/mobility_mapper/internal/zones"
)

// TimelineOptions labels the feature timeline.
type TimelineOptions struct {
	Title          string
	VarThreshold   float64
	PitchThreshold float64
}

// FeatureTimeline charts vertical variance and mean |pitch| per window
// against the window's end sample, with the classifier thresholds as
// mark lines.
func FeatureTimeline(fws []features.FeatureWindow, o TimelineOptions) *charts.Line {
	x := make([]int, len(fws))
	variance := make([]opts.LineData, len(fws))
	pitch := make([]opts.LineData, len(fws))
	for i, fw := range fws {
		x[i] = fw.EndSample
		variance[i] = opts.LineData{Value: fw.VerticalVariance}
		pitch[i] = opts.LineData{Value: fw.MeanAbsPitch}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: o.Title, Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: o.Title, Subtitle: fmt.Sprintf("windows=%d", len(fws))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "sample", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "variance (g²)"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)
	line.ExtendYAxis(opts.YAxis{Name: "pitch (rad)", Position: "right"})

	line.SetXAxis(x).
		AddSeries("vertical variance", variance,
			charts.WithMarkLineNameYAxisItemOpts(opts.MarkLineNameYAxisItem{Name: "var threshold", YAxis: o.VarThreshold}),
		).
		AddSeries("mean |pitch|", pitch,
			charts.WithLineChartOpts(opts.LineChart{YAxisIndex: 1}),
			charts.WithMarkLineNameYAxisItemOpts(opts.MarkLineNameYAxisItem{Name: "pitch threshold", YAxis: o.PitchThreshold}),
		)
	return line
}

// ZoneScatter places zones by the sample index of their center and their
// max variance.
func ZoneScatter(zs []zones.Zone) *charts.Scatter {
	var stairs, ramps []opts.ScatterData
	for _, z := range zs {
		pt := opts.ScatterData{Value: []interface{}{z.CenterSample, z.MaxVariance, z.MemberCount}}
		if z.Kind == zones.Stair {
			stairs = append(stairs, pt)
		} else {
			ramps = append(ramps, pt)
		}
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "360px"}),
		charts.WithTitleOpts(opts.Title{Title: "Zones", Subtitle: fmt.Sprintf("stairs=%d ramps=%d", len(stairs), len(ramps))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "sample", Type: "value"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "max variance (g²)"}),
	)
	scatter.AddSeries(zones.Stair.Label(), stairs, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 12}))
	scatter.AddSeries(zones.Ramp.Label(), ramps, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 12}))
	return scatter
}

// WriteTimelineHTML renders the timeline and zone charts as one page.
func WriteTimelineHTML(w io.Writer, fws []features.FeatureWindow, zs []zones.Zone, o TimelineOptions) error {
	page := components.NewPage()
	page.PageTitle = o.Title
	page.AddCharts(FeatureTimeline(fws, o), ZoneScatter(zs))
	return page.Render(w)
}
