package chart

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/bhtraj/internal/trajectory"
)

// HTMLOptions tunes the interactive page.
type HTMLOptions struct {
	// AssetsHost overrides where the echarts scripts are loaded from.
	AssetsHost string
	// HideAccepted drops the accepted-energy series.
	HideAccepted bool
}

// WriteOverlayHTML writes an interactive page with the overlay line chart and
// a bar chart of each run's final best energy.
func WriteOverlayHTML(w io.Writer, label string, records []*trajectory.Record, o HTMLOptions) error {
	if len(records) == 0 {
		return ErrNoRecords
	}

	longest := 0
	for _, r := range records {
		longest = max(longest, r.Length)
	}
	xs := make([]int, longest)
	for i := range xs {
		xs[i] = i
	}

	initOpts := opts.Initialization{PageTitle: "Basin hopping " + label, Width: "100%", Height: "640px"}
	if o.AssetsHost != "" {
		initOpts.AssetsHost = o.AssetsHost
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts),
		charts.WithTitleOpts(opts.Title{Title: label, Subtitle: fmt.Sprintf("%d runs", len(records))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Step", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Energy", NameLocation: "middle", NameGap: 50}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)
	line.SetXAxis(xs)

	for i, r := range records {
		c := PaletteHex[i%len(PaletteHex)]
		name := runName(i, r)
		line.AddSeries(name+" best", lineData(r.BestEnergies),
			charts.WithLineStyleOpts(opts.LineStyle{Color: c, Type: "solid"}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: c}),
		)
		if o.HideAccepted {
			continue
		}
		line.AddSeries(name+" accepted", lineData(r.AcceptedEnergies),
			charts.WithLineStyleOpts(opts.LineStyle{Color: c, Type: "dotted"}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: c}),
		)
	}

	runs := make([]string, len(records))
	finals := make([]opts.BarData, len(records))
	for i, r := range records {
		runs[i] = strconv.Itoa(i)
		finals[i] = opts.BarData{Value: r.FinalBestEnergy, ItemStyle: &opts.ItemStyle{Color: PaletteHex[i%len(PaletteHex)]}}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "360px", AssetsHost: initOpts.AssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: "Final best energy per run"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Run"}),
	)
	bar.SetXAxis(runs).
		AddSeries("final best energy", finals,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	page := components.NewPage()
	if o.AssetsHost != "" {
		page.SetAssetsHost(o.AssetsHost)
	}
	page.AddCharts(line, bar)
	return page.Render(w)
}

func lineData(ys []float64) []opts.LineData {
	data := make([]opts.LineData, len(ys))
	for i, y := range ys {
		data[i] = opts.LineData{Value: y}
	}
	return data
}
