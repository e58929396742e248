package chart

import (
	"fmt"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	echartsopts "github.com/go-echarts/go-echarts/v2/opts"
)

const (
	defaultFontSize = 12
	axisNameGap     = 32
	chartWidth      = "900px"
	chartHeight     = "500px"
	cellWidth       = "440px"
	cellHeight      = "360px"
	stackName       = "total"
)

// Charts converts the [Spec] into go-echarts charts.
//
// Most kinds render as a single chart. A violin grid renders as one box plot chart per cell.
func (s Spec) Charts() []components.Charter {
	switch s.Kind {
	case KindBar:
		return []components.Charter{s.bar()}
	case KindLine, KindArea:
		return []components.Charter{s.line()}
	case KindRadar:
		return []components.Charter{s.radar()}
	case KindScatter:
		return []components.Charter{s.scatter()}
	case KindViolin:
		return s.violins()
	default:
		return nil
	}
}

func (s Spec) globalOptions(title string, width, height string) []charts.GlobalOpts {
	titleOpts := echartsopts.Title{
		Title: title,
		Left:  "center",
		TitleStyle: &echartsopts.TextStyle{
			FontFamily: s.Style.FontFamily,
		},
	}
	if s.Subtitle != "" {
		titleOpts.Subtitle = s.Subtitle
		titleOpts.SubtitleStyle = &echartsopts.TextStyle{
			FontStyle: "italic",
			FontSize:  defaultFontSize,
		}
	}

	showLegend := s.Layout.Legend != "none" && s.Layout.Legend != ""
	legendOpts := echartsopts.Legend{
		Show: echartsopts.Bool(showLegend),
	}
	if showLegend {
		switch s.Layout.Legend {
		case "left", "right":
			legendOpts.Orient = "vertical"
			legendOpts.X = s.Layout.Legend
			legendOpts.Y = "middle"
		default:
			legendOpts.Y = s.Layout.Legend
		}
	}

	toolboxOpts := echartsopts.Toolbox{
		Left: "right",
		Feature: &echartsopts.ToolBoxFeature{
			SaveAsImage: &echartsopts.ToolBoxFeatureSaveAsImage{
				Title: "Save as image",
			},
		},
	}

	return []charts.GlobalOpts{
		charts.WithInitializationOpts(echartsopts.Initialization{
			Theme:           s.Style.Theme,
			BackgroundColor: s.Style.Background,
			Width:           width,
			Height:          height,
		}),
		charts.WithToolboxOpts(toolboxOpts),
		charts.WithTitleOpts(titleOpts),
		charts.WithLegendOpts(legendOpts),
		charts.WithGridOpts(echartsopts.Grid{
			Top:    "90",
			Bottom: "60",
			Right:  "140",
		}),
	}
}

func (s Spec) axes() (echartsopts.XAxis, echartsopts.YAxis) {
	xAxis := echartsopts.XAxis{
		Name:         s.XAxis.Name,
		Type:         string(s.XAxis.Type),
		NameLocation: "center",
		NameGap:      axisNameGap,
	}
	if s.XAxis.Type == AxisValue {
		xAxis.Scale = echartsopts.Bool(true)
	}
	if s.XAxis.Min != nil {
		xAxis.Min = *s.XAxis.Min
	}
	if s.XAxis.Max != nil {
		xAxis.Max = *s.XAxis.Max
	}

	yAxis := echartsopts.YAxis{
		Name:         s.YAxis.Name,
		Type:         string(s.YAxis.Type),
		NameLocation: "center",
		NameGap:      axisNameGap + 8,
	}
	if s.YAxis.Min != nil {
		yAxis.Min = *s.YAxis.Min
	}
	if s.YAxis.Max != nil {
		yAxis.Max = *s.YAxis.Max
	}

	return xAxis, yAxis
}

func (s Spec) bar() *charts.Bar {
	bar := charts.NewBar()
	xAxis, yAxis := s.axes()

	bar.SetGlobalOptions(append(s.globalOptions(s.Title, chartWidth, chartHeight),
		charts.WithXAxisOpts(xAxis),
		charts.WithYAxisOpts(yAxis),
		charts.WithTooltipOpts(echartsopts.Tooltip{
			Show:    echartsopts.Bool(true),
			Trigger: "axis",
			AxisPointer: &echartsopts.AxisPointer{
				Type: "shadow",
			},
		}),
	)...)

	bar.SetXAxis(s.XAxis.Categories)

	for _, series := range s.Series {
		data := make([]echartsopts.BarData, 0, len(series.Points))
		for _, p := range series.Points {
			item := echartsopts.BarData{
				Name:  p.Label,
				Value: p.Y,
			}
			if p.Color != "" {
				item.ItemStyle = &echartsopts.ItemStyle{Color: p.Color}
			}

			data = append(data, item)
		}

		bar.AddSeries(series.Name, data)
	}

	return bar
}

// line renders both line and stacked area charts.
func (s Spec) line() *charts.Line {
	line := charts.NewLine()
	xAxis, yAxis := s.axes()

	line.SetGlobalOptions(append(s.globalOptions(s.Title, chartWidth, chartHeight),
		charts.WithXAxisOpts(xAxis),
		charts.WithYAxisOpts(yAxis),
		charts.WithTooltipOpts(echartsopts.Tooltip{
			Show:    echartsopts.Bool(true),
			Trigger: "axis",
		}),
	)...)

	if s.XAxis.Type == AxisCategory {
		line.SetXAxis(s.XAxis.Categories)
	}

	for _, series := range s.Series {
		data := make([]echartsopts.LineData, 0, len(series.Points))
		for _, p := range series.Points {
			item := echartsopts.LineData{Name: p.Label, Value: p.Y}
			if s.XAxis.Type == AxisValue {
				item.Value = []float64{p.X, p.Y}
			}

			data = append(data, item)
		}

		lineOpts := echartsopts.LineChart{
			Smooth:     echartsopts.Bool(s.Style.Smooth),
			ShowSymbol: echartsopts.Bool(s.Style.Markers),
		}

		seriesOpts := []charts.SeriesOpts{
			charts.WithItemStyleOpts(echartsopts.ItemStyle{Color: series.Color}),
			charts.WithLineStyleOpts(echartsopts.LineStyle{Color: series.Color, Width: 2}),
		}

		if s.Layout.Stacked {
			lineOpts.Stack = stackName
			seriesOpts = append(seriesOpts, charts.WithAreaStyleOpts(echartsopts.AreaStyle{
				Color:   series.Color,
				Opacity: echartsopts.Float(0.8),
			}))
		}

		seriesOpts = append(seriesOpts, charts.WithLineChartOpts(lineOpts))
		line.AddSeries(series.Name, data, seriesOpts...)
	}

	return line
}

func (s Spec) radar() *charts.Radar {
	radar := charts.NewRadar()

	// the closing vertex is implicit for echarts
	indicators := make([]*echartsopts.Indicator, 0, len(s.XAxis.Categories))
	open := s.XAxis.Categories
	if len(open) > 1 {
		open = open[:len(open)-1]
	}

	var lo, hi float64
	if s.YAxis.Min != nil {
		lo = *s.YAxis.Min
	}
	if s.YAxis.Max != nil {
		hi = *s.YAxis.Max
	}

	for _, name := range open {
		indicators = append(indicators, &echartsopts.Indicator{
			Name: name,
			Min:  float32(lo),
			Max:  float32(hi),
		})
	}

	radar.SetGlobalOptions(append(s.globalOptions(s.Title, chartWidth, chartHeight),
		charts.WithRadarComponentOpts(echartsopts.RadarComponent{
			Indicator:   indicators,
			Shape:       "polygon",
			SplitNumber: 5,
		}),
		charts.WithTooltipOpts(echartsopts.Tooltip{
			Show:    echartsopts.Bool(true),
			Trigger: "item",
		}),
	)...)

	for _, series := range s.Series {
		values := series.Values
		if len(values) > len(open) {
			values = values[:len(open)]
		}

		radar.AddSeries(series.Name, []echartsopts.RadarData{{Name: series.Name, Value: values}},
			charts.WithItemStyleOpts(echartsopts.ItemStyle{Color: series.Color}),
			charts.WithLineStyleOpts(echartsopts.LineStyle{Color: series.Color, Width: 2}),
			charts.WithAreaStyleOpts(echartsopts.AreaStyle{
				Color:   series.Color,
				Opacity: echartsopts.Float(float32(s.Style.Opacity)),
			}),
		)
	}

	return radar
}

func (s Spec) scatter() *charts.Scatter {
	scatter := charts.NewScatter()
	xAxis, yAxis := s.axes()

	global := append(s.globalOptions(s.Title, chartWidth, "600px"),
		charts.WithXAxisOpts(xAxis),
		charts.WithYAxisOpts(yAxis),
		charts.WithTooltipOpts(echartsopts.Tooltip{
			Show:      echartsopts.Bool(true),
			Trigger:   "item",
			Formatter: echartsopts.FuncOpts("function (params) { return params.name + '<br>' + params.value[4]; }"),
		}),
	)

	if len(s.Style.ColorScale) > 0 && len(s.Style.ColorDomain) == 2 {
		global = append(global, charts.WithVisualMapOpts(echartsopts.VisualMap{
			Type:       "continuous",
			Calculable: echartsopts.Bool(true),
			Min:        float32(s.Style.ColorDomain[0]),
			Max:        float32(s.Style.ColorDomain[1]),
			Dimension:  "2",
			Right:      "10",
			Top:        "middle",
			Text:       []string{"Popularity"},
			InRange: &echartsopts.VisualMapInRange{
				Color: s.Style.ColorScale,
			},
		}))
	}

	scatter.SetGlobalOptions(global...)

	for _, series := range s.Series {
		data := make([]echartsopts.ScatterData, 0, len(series.Points))
		for _, p := range series.Points {
			data = append(data, echartsopts.ScatterData{
				Name:       p.Label,
				Value:      []any{p.X, p.Y, p.Value, p.Size, p.Text},
				SymbolSize: max(1, int(math.Round(p.Size))),
			})
		}

		itemStyle := echartsopts.ItemStyle{Opacity: echartsopts.Float(float32(s.Style.Opacity))}
		if series.Color != "" {
			itemStyle.Color = series.Color
		}

		scatter.AddSeries(series.Name, data, charts.WithItemStyleOpts(itemStyle))
	}

	return scatter
}

// violins renders every cell of the grid as a box plot of the popularity samples.
func (s Spec) violins() []components.Charter {
	cells := make([]components.Charter, 0, len(s.Layout.Cells))
	_, yAxis := s.axes()

	for i, cell := range s.Layout.Cells {
		box := charts.NewBoxPlot()
		title := fmt.Sprintf("%s: %s", s.Title, cell.Title)
		if i > 0 {
			title = cell.Title
		}

		box.SetGlobalOptions(append(s.globalOptions(title, cellWidth, cellHeight),
			charts.WithXAxisOpts(echartsopts.XAxis{
				Name:         cell.Title,
				Type:         string(AxisCategory),
				NameLocation: "center",
				NameGap:      axisNameGap,
			}),
			charts.WithYAxisOpts(yAxis),
			charts.WithLegendOpts(echartsopts.Legend{Show: echartsopts.Bool(false)}),
			charts.WithTooltipOpts(echartsopts.Tooltip{
				Show:    echartsopts.Bool(true),
				Trigger: "item",
			}),
		)...)

		box.SetXAxis(cell.Categories)

		data := make([]echartsopts.BoxPlotData, 0, len(cell.Categories))
		for _, category := range cell.Categories {
			item := echartsopts.BoxPlotData{Name: category}

			for _, series := range s.Series {
				if series.Cell != i || series.Name != category || series.Summary == nil {
					continue
				}

				sum := series.Summary
				item.Value = []float64{sum.Min, sum.Q1, sum.Median, sum.Q3, sum.Max}
			}

			data = append(data, item)
		}

		box.AddSeries(cell.Title, data)
		cells = append(cells, box)
	}

	return cells
}
