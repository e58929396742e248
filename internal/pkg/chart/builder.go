package chart

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"
	"strconv"

	"github.com/fredbi/trackviz/internal/pkg/config"
	"github.com/fredbi/trackviz/internal/pkg/dataset"
	"github.com/fredbi/trackviz/internal/pkg/derive"
	"github.com/fredbi/trackviz/internal/pkg/model"
)

const (
	barMaxPopularity = 50
	radarOpacity     = 0.3
	scatterOpacity   = 0.7
	violinRows       = 2
	violinCols       = 3
)

// Viridis is the continuous color scale used to map popularity.
var Viridis = []string{"#440154", "#482878", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}

// Builder turns derived tables into chart specifications.
//
// Builders never modify their input. An empty table yields an empty but well-formed [Spec].
type Builder struct {
	options

	cfg *config.Config
	l   *slog.Logger
}

// New creates a new chart [Builder], given a [config.Config] providing genre colors and field titles.
//
// The builder embeds a [slog.Logger] to croak about warnings and issues.
func New(cfg *config.Config, opts ...Option) *Builder {
	return &Builder{
		options: optionsWithDefaults(cfg, opts),
		cfg:     cfg,
		l:       slog.Default().With(slog.String("module", "chart")),
	}
}

func (b *Builder) newSpec(kind Kind, title string) Spec {
	return Spec{
		ID:       string(kind),
		Kind:     kind,
		Title:    title,
		Subtitle: b.Subtitle,
		Series:   make([]Series, 0),
		Layout: Layout{
			Rows:   1,
			Cols:   1,
			Legend: string(b.Legend),
		},
		Style: Style{
			Theme:      b.Theme,
			Background: b.Background,
			FontFamily: b.FontFamily,
		},
	}
}

// Bar builds one bar per genre, with the height of the bar set to the mean popularity.
func (b *Builder) Bar(averages []model.GenreAverage) Spec {
	spec := b.newSpec(KindBar, "Average Track Popularity by Playlist Genre")
	spec.Bindings = Bindings{
		X:     dataset.ColumnGenre,
		Y:     config.FieldPopularity.String(),
		Color: dataset.ColumnGenre,
	}
	spec.XAxis = Axis{Name: "Playlist Genre", Type: AxisCategory, Categories: make([]string, 0, len(averages))}
	spec.YAxis = Axis{Name: "Average Popularity", Type: AxisValue, Min: ptr(0), Max: ptr(barMaxPopularity)}

	if len(averages) == 0 {
		return spec
	}

	series := Series{
		Name:   "Average Popularity",
		Points: make([]Point, 0, len(averages)),
	}

	for _, avg := range averages {
		title := b.cfg.GenreTitle(avg.Genre)
		spec.XAxis.Categories = append(spec.XAxis.Categories, title)
		series.Points = append(series.Points, Point{
			Label: title,
			Y:     avg.Mean,
			Color: b.cfg.GenreColor(avg.Genre),
			Text:  fmt.Sprintf("%s: %.1f (%d tracks)", title, avg.Mean, avg.Count),
		})
	}

	spec.Series = append(spec.Series, series)

	return spec
}

// Line builds one smoothed line per genre, with the mean of the selected feature per release year.
func (b *Builder) Line(rows []model.TimeFeature, feature config.FieldName) Spec {
	title := b.cfg.FieldTitle(feature)
	spec := b.newSpec(KindLine, title+" Evolution Over Time by Genre")
	spec.Bindings = Bindings{X: "year", Y: feature.String(), Color: dataset.ColumnGenre}
	spec.XAxis = Axis{Name: "Year", Type: AxisValue}
	spec.YAxis = Axis{Name: title, Type: AxisValue}
	spec.Style.Smooth = true
	spec.Style.Markers = true

	if feature.IsNormalized() {
		spec.YAxis.Min, spec.YAxis.Max = ptr(0), ptr(1)
	}

	sorted := slices.Clone(rows)
	slices.SortStableFunc(sorted, func(a, c model.TimeFeature) int {
		return cmp.Compare(a.Year, c.Year)
	})

	byGenre := make(map[string][]Point)
	var genres []string

	for _, row := range sorted {
		mean, ok := row.Means[feature]
		if !ok {
			continue
		}

		if _, seen := byGenre[row.Genre]; !seen {
			genres = append(genres, row.Genre)
		}

		byGenre[row.Genre] = append(byGenre[row.Genre], Point{
			X:    float64(row.Year),
			Y:    mean,
			Text: fmt.Sprintf("%d: %.3f (%d tracks)", row.Year, mean, row.Count),
		})

		spec.XAxis.Min = minPtr(spec.XAxis.Min, float64(row.Year))
		spec.XAxis.Max = maxPtr(spec.XAxis.Max, float64(row.Year))
	}

	for _, genre := range b.orderGenres(genres) {
		spec.Series = append(spec.Series, Series{
			Name:   b.cfg.GenreTitle(genre),
			Color:  b.cfg.GenreColor(genre),
			Points: byGenre[genre],
		})
	}

	return spec
}

// Area builds one stacked band per genre, with the number of releases per year.
//
// The sparse release counts are filled with zeroes, and bands are stacked in the configured genre order.
func (b *Builder) Area(counts []model.ReleaseCount) Spec {
	spec := b.newSpec(KindArea, "Genre Distribution Over Time")
	spec.Bindings = Bindings{X: "year", Y: "count", Color: dataset.ColumnGenre}
	spec.XAxis = Axis{Name: "Release Year", Type: AxisCategory, Categories: make([]string, 0)}
	spec.YAxis = Axis{Name: "Number of Songs", Type: AxisValue, Min: ptr(0)}
	spec.Layout.Stacked = true

	dense := derive.DenseReleaseCounts(b.cfg, counts, nil)
	if len(dense) == 0 {
		return spec
	}

	byGenre := make(map[string][]Point)
	var genres []string

	for _, row := range dense {
		year := strconv.Itoa(row.Year)
		if _, seen := byGenre[row.Genre]; !seen {
			genres = append(genres, row.Genre)
		}

		if !slices.Contains(spec.XAxis.Categories, year) {
			spec.XAxis.Categories = append(spec.XAxis.Categories, year)
		}

		byGenre[row.Genre] = append(byGenre[row.Genre], Point{
			Label: year,
			X:     float64(row.Year),
			Y:     float64(row.Count),
		})
	}

	for _, genre := range genres {
		spec.Series = append(spec.Series, Series{
			Name:   b.cfg.GenreTitle(genre),
			Color:  b.cfg.GenreColor(genre),
			Points: byGenre[genre],
		})
	}

	return spec
}

// Radar builds one closed polygon per genre over the given features, on a radial axis fixed to [0, 1].
//
// The first vertex value is repeated at the end of each polygon. A feature without any mean is plotted as 0.
func (b *Builder) Radar(profiles []model.FeatureProfile, features []config.FieldName) Spec {
	spec := b.newSpec(KindRadar, "Average Audio Feature Profile by Genre")
	spec.Bindings = Bindings{X: "feature", Y: "mean", Color: dataset.ColumnGenre}
	spec.XAxis = Axis{Name: "Feature", Type: AxisCategory, Categories: make([]string, 0, len(features)+1)}
	spec.YAxis = Axis{Name: "Mean", Type: AxisValue, Min: ptr(0), Max: ptr(1)}
	spec.Style.Opacity = radarOpacity

	for _, feature := range features {
		spec.XAxis.Categories = append(spec.XAxis.Categories, b.cfg.FieldTitle(feature))
	}

	if len(features) == 0 {
		return spec
	}

	spec.XAxis.Categories = append(spec.XAxis.Categories, spec.XAxis.Categories[0])

	for _, profile := range profiles {
		values := make([]float64, 0, len(features)+1)
		for _, feature := range features {
			values = append(values, profile.Means[feature]) // zero when absent
		}
		values = append(values, values[0])

		spec.Series = append(spec.Series, Series{
			Name:   b.cfg.GenreTitle(profile.Genre),
			Color:  b.cfg.GenreColor(profile.Genre),
			Values: values,
		})
	}

	return spec
}

// Scatter builds one point per sampled track.
//
// Points are colored by genre, or by popularity on a continuous scale. The point size is proportional
// to the size feature, the largest point being drawn with the configured maximum size.
func (b *Builder) Scatter(points []model.ScatterPoint, mode model.ColorMode) Spec {
	sc := b.cfg.Scatter
	xTitle := b.cfg.FieldTitle(sc.X)
	yTitle := b.cfg.FieldTitle(sc.Y)
	sizeTitle := b.cfg.FieldTitle(sc.Size)

	if !mode.IsValid() {
		mode = model.ColorByGenre
	}

	colorBinding, colorTitle := dataset.ColumnGenre, "Genre"
	if mode == model.ColorByPopularity {
		colorBinding, colorTitle = config.FieldPopularity.String(), b.cfg.FieldTitle(config.FieldPopularity)
	}

	spec := b.newSpec(KindScatter,
		fmt.Sprintf("%s vs %s (Bubble Size: %s, Color: %s)", xTitle, yTitle, sizeTitle, colorTitle),
	)
	spec.Bindings = Bindings{X: sc.X.String(), Y: sc.Y.String(), Color: colorBinding, Size: sc.Size.String()}
	spec.XAxis = Axis{Name: xTitle, Type: AxisValue}
	spec.YAxis = Axis{Name: yTitle, Type: AxisValue}
	spec.Style.Opacity = scatterOpacity
	spec.Style.SizeMax = sc.SizeMax

	if sc.X.IsNormalized() {
		spec.XAxis.Min, spec.XAxis.Max = ptr(0), ptr(1)
	}

	if sc.Y.IsNormalized() {
		spec.YAxis.Min, spec.YAxis.Max = ptr(0), ptr(1)
	}

	if mode == model.ColorByPopularity {
		spec.Style.ColorScale = slices.Clone(Viridis)
		spec.Style.ColorDomain = []float64{b.cfg.Popularity.Min, b.cfg.Popularity.Max}
	}

	if len(points) == 0 {
		return spec
	}

	var largest float64
	for _, p := range points {
		largest = max(largest, p.Size)
	}

	point := func(p model.ScatterPoint) Point {
		size := sc.SizeMax
		if largest > 0 {
			size = p.Size / largest * sc.SizeMax
		}

		return Point{
			Label: p.TrackName,
			X:     p.X,
			Y:     p.Y,
			Size:  size,
			Value: p.Popularity,
			Text: fmt.Sprintf("%s by %s<br>%s: %.2f<br>%s: %.2f<br>Popularity: %.0f<br>%s: %.2f",
				p.TrackName, p.TrackArtist, xTitle, p.X, yTitle, p.Y, p.Popularity, sizeTitle, p.Size,
			),
		}
	}

	if mode == model.ColorByPopularity {
		series := Series{Name: "Tracks", Points: make([]Point, 0, len(points))}
		for _, p := range points {
			series.Points = append(series.Points, point(p))
		}

		spec.Series = append(spec.Series, series)

		return spec
	}

	byGenre := make(map[string][]Point)
	var genres []string

	for _, p := range points {
		if _, seen := byGenre[p.Genre]; !seen {
			genres = append(genres, p.Genre)
		}

		byGenre[p.Genre] = append(byGenre[p.Genre], point(p))
	}

	for _, genre := range b.orderGenres(genres) {
		spec.Series = append(spec.Series, Series{
			Name:   b.cfg.GenreTitle(genre),
			Color:  b.cfg.GenreColor(genre),
			Points: byGenre[genre],
		})
	}

	return spec
}

// Violin builds a grid of popularity distributions, with one cell per binned field and one violin
// per bin label.
//
// The grid has 2 rows and 3 columns. Fields beyond the sixth one are not shown.
func (b *Builder) Violin(records []model.BinnedRecord, bins []config.Bin) Spec {
	spec := b.newSpec(KindViolin, "Popularity Distribution Across Audio Feature Categories")
	spec.Bindings = Bindings{X: "bin", Y: config.FieldPopularity.String()}
	spec.XAxis = Axis{Name: "Category", Type: AxisCategory}
	spec.YAxis = Axis{
		Name: b.cfg.FieldTitle(config.FieldPopularity),
		Type: AxisValue,
		Min:  ptr(b.cfg.Popularity.Min),
		Max:  ptr(b.cfg.Popularity.Max),
	}
	spec.Layout.Rows = violinRows
	spec.Layout.Cols = violinCols
	spec.Layout.Cells = make([]Cell, 0, violinRows*violinCols)

	if len(bins) > violinRows*violinCols {
		b.l.Warn("binned fields not shown on the distribution grid", slog.Int("fields", len(bins)-violinRows*violinCols))
		bins = bins[:violinRows*violinCols]
	}

	for i, bin := range bins {
		labels := bin.Labels()
		spec.Layout.Cells = append(spec.Layout.Cells, Cell{
			Title:      b.cfg.FieldTitle(bin.Field),
			Field:      bin.Field.String(),
			Categories: labels,
		})

		samples := make(map[string][]float64, len(labels))
		for _, record := range records {
			label, ok := record.Bins[bin.Field]
			if !ok {
				continue
			}

			if v, ok := record.Value(config.FieldPopularity); ok {
				samples[label] = append(samples[label], v)
			}
		}

		for _, label := range labels {
			values := samples[label]
			if len(values) == 0 {
				continue
			}

			summary := derive.Summarize(values)
			spec.Series = append(spec.Series, Series{
				Name:    label,
				Cell:    i,
				Values:  values,
				Summary: &summary,
			})
		}
	}

	return spec
}

// orderGenres sorts genres in the configured order. Undeclared genres come last, by name.
func (b *Builder) orderGenres(genres []string) []string {
	ordered := slices.Clone(genres)
	rank := func(genre string) int {
		if i := slices.Index(b.cfg.GenreIDs(), genre); i >= 0 {
			return i
		}

		return len(b.cfg.Genres)
	}

	slices.SortFunc(ordered, func(a, c string) int {
		if r := cmp.Compare(rank(a), rank(c)); r != 0 {
			return r
		}

		return cmp.Compare(a, c)
	})

	return ordered
}

func ptr(v float64) *float64 {
	return &v
}

func minPtr(p *float64, v float64) *float64 {
	if p == nil || v < *p {
		return ptr(v)
	}

	return p
}

func maxPtr(p *float64, v float64) *float64 {
	if p == nil || v > *p {
		return ptr(v)
	}

	return p
}
