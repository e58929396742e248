package chart

import "github.com/fredbi/trackviz/internal/pkg/config"

// Theme constants from go-echarts.
const (
	ThemeRoma = "roma"
)

// Option configures a [Builder].
type Option func(*options)

type options struct {
	Subtitle   string
	Theme      string
	Legend     config.LegendPosition
	Background string
	FontFamily string
}

// WithSubtitle sets the subtitle of every chart (typically the dataset source).
func WithSubtitle(subtitle string) Option {
	return func(c *options) {
		c.Subtitle = subtitle
	}
}

// WithTheme sets the color theme.
func WithTheme(theme string) Option {
	return func(c *options) {
		c.Theme = theme
	}
}

// WithLegend sets the position of the legend, or hides it with [config.LegendPositionNone].
func WithLegend(position config.LegendPosition) Option {
	return func(c *options) {
		c.Legend = position
	}
}

// WithBackground sets the background color of the charts.
func WithBackground(color string) Option {
	return func(c *options) {
		c.Background = color
	}
}

// WithFontFamily sets the font used by titles and labels.
func WithFontFamily(family string) Option {
	return func(c *options) {
		c.FontFamily = family
	}
}

func optionsWithDefaults(cfg *config.Config, opts []Option) options {
	o := options{
		Theme:      ThemeRoma,
		Legend:     config.LegendPositionRight,
		Background: cfg.Render.Background,
		FontFamily: cfg.Render.FontFamily,
	}

	if cfg.Render.Theme != "" {
		o.Theme = cfg.Render.Theme
	}

	if cfg.Render.Legend != "" {
		o.Legend = cfg.Render.Legend
	}

	for _, apply := range opts {
		apply(&o)
	}

	return o
}
