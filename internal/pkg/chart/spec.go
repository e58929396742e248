package chart

import "github.com/fredbi/trackviz/internal/pkg/model"

// Kind is the trace type of a chart.
type Kind string

// Supported chart kinds.
const (
	KindBar     Kind = "bar"
	KindLine    Kind = "line"
	KindArea    Kind = "area"
	KindRadar   Kind = "radar"
	KindScatter Kind = "scatter"
	KindViolin  Kind = "violin"
)

// AxisType tells whether an axis carries categories or numeric values.
type AxisType string

// Supported axis types.
const (
	AxisCategory AxisType = "category"
	AxisValue    AxisType = "value"
)

// Spec is the declarative description of a chart: trace type, data bindings, data and style.
//
// A [Spec] does not depend on the rendering backend. An empty [Spec] has no series but is otherwise
// complete, so that it can be rendered as an empty chart.
type Spec struct {
	ID       string   `json:"id"`
	Kind     Kind     `json:"kind"`
	Title    string   `json:"title"`
	Subtitle string   `json:"subtitle,omitempty"`
	Bindings Bindings `json:"bindings"`
	XAxis    Axis     `json:"x_axis"`
	YAxis    Axis     `json:"y_axis"`
	Series   []Series `json:"series"`
	Layout   Layout   `json:"layout"`
	Style    Style    `json:"style"`
}

// IsEmpty tells if the chart has no data to show.
func (s Spec) IsEmpty() bool {
	for _, series := range s.Series {
		if len(series.Points) > 0 || len(series.Values) > 0 {
			return false
		}
	}

	return true
}

// Bindings map the columns of a derived table to the visual channels of a chart.
type Bindings struct {
	X     string `json:"x,omitempty"`
	Y     string `json:"y,omitempty"`
	Color string `json:"color,omitempty"`
	Size  string `json:"size,omitempty"`
}

// Axis describes a chart axis. Nil bounds are left to the renderer.
type Axis struct {
	Name       string   `json:"name,omitempty"`
	Type       AxisType `json:"type,omitempty"`
	Categories []string `json:"categories,omitempty"`
	Min        *float64 `json:"min,omitempty"`
	Max        *float64 `json:"max,omitempty"`
}

// Series is one trace of a chart.
//
// Bar, line, area and scatter traces hold points. Radar traces hold the closed list of vertex values
// and violin traces the sample of values of one cell category, with its summary.
type Series struct {
	Name    string         `json:"name"`
	Color   string         `json:"color,omitempty"`
	Cell    int            `json:"cell"`
	Points  []Point        `json:"points,omitempty"`
	Values  []float64      `json:"values,omitempty"`
	Summary *model.Summary `json:"summary,omitempty"`
}

// Point is one data item of a trace.
type Point struct {
	Label string  `json:"label,omitempty"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Size  float64 `json:"size"`
	Value float64 `json:"value"` // continuous color channel
	Color string  `json:"color,omitempty"`
	Text  string  `json:"text,omitempty"`
}

// Layout arranges the chart. Rows and Cols define the grid of a multi-cell chart.
type Layout struct {
	Rows    int    `json:"rows"`
	Cols    int    `json:"cols"`
	Legend  string `json:"legend"`
	Stacked bool   `json:"stacked,omitempty"`
	Cells   []Cell `json:"cells,omitempty"`
}

// Cell is one panel of a grid layout.
type Cell struct {
	Title      string   `json:"title"`
	Field      string   `json:"field"`
	Categories []string `json:"categories"`
}

// Style holds the visual attributes of a chart.
type Style struct {
	Theme       string    `json:"theme"`
	Background  string    `json:"background,omitempty"`
	FontFamily  string    `json:"font_family,omitempty"`
	Opacity     float64   `json:"opacity,omitempty"`
	Smooth      bool      `json:"smooth,omitempty"`
	Markers     bool      `json:"markers,omitempty"`
	SizeMax     float64   `json:"size_max,omitempty"`
	ColorScale  []string  `json:"color_scale,omitempty"`
	ColorDomain []float64 `json:"color_domain,omitempty"`
}
