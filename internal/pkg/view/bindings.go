package view

import (
	"slices"

	"github.com/fredbi/trackviz/internal/pkg/chart"
	"github.com/fredbi/trackviz/internal/pkg/derive"
	"github.com/fredbi/trackviz/internal/pkg/model"
)

// ChartID identifies a chart of the dashboard.
type ChartID string

// Dashboard charts.
const (
	ChartBar     ChartID = "bar"
	ChartLine    ChartID = "line"
	ChartArea    ChartID = "area"
	ChartRadar   ChartID = "radar"
	ChartScatter ChartID = "scatter"
	ChartViolin  ChartID = "violin"
)

func (c ChartID) String() string {
	return string(c)
}

// Binding declares the controls a chart depends on, and how to compute it.
type Binding struct {
	Chart  ChartID
	Inputs []ControlID

	compute func(*derive.Deriver, *chart.Builder, model.Selection) (chart.Spec, error)
}

// DependsOn tells if the chart must be recomputed when a control changes.
func (b Binding) DependsOn(control ControlID) bool {
	return slices.Contains(b.Inputs, control)
}

// bindings is the static dependency table between controls and charts.
var bindings = []Binding{
	{
		Chart:  ChartBar,
		Inputs: []ControlID{ControlGenres},
		compute: func(d *derive.Deriver, b *chart.Builder, sel model.Selection) (chart.Spec, error) {
			averages, err := d.GenreAverages(sel.Genres)
			if err != nil {
				return chart.Spec{}, err
			}

			return b.Bar(averages), nil
		},
	},
	{
		Chart:  ChartLine,
		Inputs: []ControlID{ControlFeature, ControlGenres},
		compute: func(d *derive.Deriver, b *chart.Builder, sel model.Selection) (chart.Spec, error) {
			features, err := d.TimeFeatures(sel.Genres)
			if err != nil {
				return chart.Spec{}, err
			}

			return b.Line(features, sel.Feature), nil
		},
	},
	{
		Chart:  ChartArea,
		Inputs: []ControlID{ControlGenres},
		compute: func(d *derive.Deriver, b *chart.Builder, sel model.Selection) (chart.Spec, error) {
			counts, err := d.ReleaseCounts(sel.Genres)
			if err != nil {
				return chart.Spec{}, err
			}

			return b.Area(counts), nil
		},
	},
	{
		Chart:  ChartRadar,
		Inputs: []ControlID{ControlGenres},
		compute: func(d *derive.Deriver, b *chart.Builder, sel model.Selection) (chart.Spec, error) {
			profiles, err := d.FeatureProfiles(sel.Genres)
			if err != nil {
				return chart.Spec{}, err
			}

			return b.Radar(profiles, d.Config().Profile), nil
		},
	},
	{
		Chart:  ChartScatter,
		Inputs: []ControlID{ControlGenres, ControlPopularity, ControlColorMode},
		compute: func(d *derive.Deriver, b *chart.Builder, sel model.Selection) (chart.Spec, error) {
			points, err := d.ScatterSample(sel)
			if err != nil {
				return chart.Spec{}, err
			}

			return b.Scatter(points, sel.ColorMode), nil
		},
	},
	{
		Chart:  ChartViolin,
		Inputs: nil,
		compute: func(d *derive.Deriver, b *chart.Builder, _ model.Selection) (chart.Spec, error) {
			binned, err := d.Bins(nil)
			if err != nil {
				return chart.Spec{}, err
			}

			return b.Violin(binned, d.Config().Bins), nil
		},
	},
}

// Bindings returns the dependency table between controls and charts.
func Bindings() []Binding {
	return slices.Clone(bindings)
}

// GetBinding retrieves the binding of a chart.
func GetBinding(id ChartID) (Binding, bool) {
	i := slices.IndexFunc(bindings, func(b Binding) bool { return b.Chart == id })
	if i < 0 {
		return Binding{}, false
	}

	return bindings[i], true
}

// BoundTo lists the charts that depend on a control.
func BoundTo(control ControlID) []ChartID {
	var charts []ChartID
	for _, b := range bindings {
		if b.DependsOn(control) {
			charts = append(charts, b.Chart)
		}
	}

	return charts
}
