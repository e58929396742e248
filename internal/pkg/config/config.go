package config

import (
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"go.yaml.in/yaml/v3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//go:embed default_config.yaml
var efs embed.FS

// Environment variables overriding the configuration file.
const (
	EnvDataset = "TRACKVIZ_DATASET"
	EnvListen  = "TRACKVIZ_LISTEN"
)

// Config holds the configuration for trackviz.
type Config struct {
	Name       string
	Dataset    Dataset
	Server     Server
	Render     Rendering
	Outputs    Output `mapstructure:"-"`
	Genres     []Genre
	Features   []Feature
	Trend      []FieldName
	Profile    []FieldName
	Scatter    Scatter
	Popularity Popularity
	Bins       []Bin

	genreIndex   map[string]Genre
	featureIndex map[FieldName]Feature
	binIndex     map[FieldName]Bin
}

// GetGenre retrieves a genre definition by its ID.
func (c Config) GetGenre(id string) (Genre, bool) {
	v, ok := c.genreIndex[id]

	return v, ok
}

// GetFeature retrieves a selectable feature definition by its [FieldName].
func (c Config) GetFeature(id FieldName) (Feature, bool) {
	v, ok := c.featureIndex[id]

	return v, ok
}

// GetBin retrieves the binning rule for a field.
func (c Config) GetBin(id FieldName) (Bin, bool) {
	v, ok := c.binIndex[id]

	return v, ok
}

// GenreColor returns the color assigned to a genre, or the fallback color for genres not declared.
func (c Config) GenreColor(id string) string {
	if g, ok := c.genreIndex[strings.ToLower(id)]; ok && g.Color != "" {
		return g.Color
	}

	return c.Render.FallbackColor
}

// GenreTitle returns the display title of a genre, defaulting to the raw label.
func (c Config) GenreTitle(id string) string {
	if g, ok := c.genreIndex[strings.ToLower(id)]; ok {
		return g.Title
	}

	return id
}

// GenreIDs returns the declared genre IDs, in declaration order.
func (c Config) GenreIDs() []string {
	ids := make([]string, 0, len(c.Genres))
	for _, g := range c.Genres {
		ids = append(ids, g.ID)
	}

	return ids
}

// FieldTitle returns a display title for any numeric field.
func (c Config) FieldTitle(id FieldName) string {
	if f, ok := c.featureIndex[id]; ok {
		return f.Title
	}

	if b, ok := c.binIndex[id]; ok {
		return b.Title
	}

	return titleize(id)
}

// EncodeYAML serializes a [Config] to YAML into the provided writer.
//
// Runtime-only fields (Outputs) are excluded from the output.
func (c *Config) EncodeYAML(w io.Writer) error {
	var raw map[string]any

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Squash: true,
		Deep:   true,
		Result: &raw,
	})
	if err != nil {
		return fmt.Errorf("creating mapstructure decoder: %w", err)
	}

	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("decoding config to map: %w", err)
	}

	return yaml.NewEncoder(w).Encode(raw)
}

// OverrideFromEnv applies the TRACKVIZ_* environment variables on top of the loaded configuration.
func (c *Config) OverrideFromEnv() {
	if v, ok := os.LookupEnv(EnvDataset); ok && v != "" {
		c.Dataset.File = v
	}

	if v, ok := os.LookupEnv(EnvListen); ok && v != "" {
		c.Server.Listen = v
	}
}

// Dataset locates the track dataset and declares the columns it must provide.
type Dataset struct {
	File     string
	Sheet    string // only for xlsx workbooks
	Required []string
}

// Server holds the HTTP dashboard settings.
type Server struct {
	Listen string
}

// Rendering holds chart rendering settings.
type Rendering struct {
	Title         string
	Theme         string
	Legend        LegendPosition
	FallbackColor string
	Background    string
	FontFamily    string
	Screenshot    Screenshot
}

// Screenshot configures the headless Chrome screenshot used for PNG rendering.
type Screenshot struct {
	Height int64
	Width  int64
	Sleep  string
}

// SleepDuration parses the Sleep field as a [time.Duration].
func (s Screenshot) SleepDuration() time.Duration {
	d, err := time.ParseDuration(s.Sleep)
	if d == 0 || err != nil {
		return 0
	}

	return d
}

// LegendPosition controls where the chart legend is displayed.
type LegendPosition string

// Supported legend positions.
const (
	LegendPositionNone   LegendPosition = "none"
	LegendPositionBottom LegendPosition = "bottom"
	LegendPositionTop    LegendPosition = "top"
	LegendPositionLeft   LegendPosition = "left"
	LegendPositionRight  LegendPosition = "right"
)

// Output holds the resolved output file paths for HTML and PNG rendering.
type Output struct {
	HTMLFile string
	PngFile  string
	IsTemp   bool
}

// Genre declares a playlist genre, its display title and its color on every chart.
//
// The declaration order is the stacking order of the area chart.
type Genre struct {
	ID    string
	Title string
	Color string
}

// Feature declares a numeric field that users may pick to plot over time.
type Feature struct {
	ID    FieldName
	Title string
}

// Scatter configures the sampled scatter plot.
type Scatter struct {
	X       FieldName
	Y       FieldName
	Size    FieldName
	Cap     int
	Seed    uint64
	SizeMax float64
}

// Popularity declares the domain of the popularity range control.
type Popularity struct {
	Min  float64
	Max  float64
	Step float64
}

// Transform converts a raw field value before binning.
type Transform string

// Supported value transforms.
const (
	TransformNone    Transform = ""
	TransformMinutes Transform = "minutes" // milliseconds to minutes
)

// Bin assigns a label to every value of a field, either by ordered ranges or by a categorical remap.
//
// Ranges are inclusive on their lower edge and exclusive on their upper edge. The first range may be
// unbounded below, the last range is always unbounded above.
type Bin struct {
	Field      FieldName
	Title      string
	Transform  Transform
	Ranges     []Range
	Categories []Category
}

// Range is a labeled half-open interval [Lower, Upper). A nil bound is unbounded.
type Range struct {
	Label string
	Lower *float64
	Upper *float64
}

// Contains reports whether v falls in the range.
func (r Range) Contains(v float64) bool {
	if r.Lower != nil && v < *r.Lower {
		return false
	}

	if r.Upper != nil && v >= *r.Upper {
		return false
	}

	return true
}

// Category maps an exact field value to a label.
type Category struct {
	Value float64
	Label string
}

// Assign returns the label of the bin value v falls in.
//
// Missing values (NaN) and values outside of the declared domain have no label.
func (b Bin) Assign(v float64) (string, bool) {
	if math.IsNaN(v) {
		return "", false
	}

	if b.Transform == TransformMinutes {
		v /= 60000
	}

	for _, c := range b.Categories {
		if v == c.Value {
			return c.Label, true
		}
	}

	for _, r := range b.Ranges {
		if r.Contains(v) {
			return r.Label, true
		}
	}

	return "", false
}

// Labels returns the bin labels in declaration order.
func (b Bin) Labels() []string {
	labels := make([]string, 0, len(b.Ranges)+len(b.Categories))
	for _, c := range b.Categories {
		labels = append(labels, c.Label)
	}

	for _, r := range b.Ranges {
		labels = append(labels, r.Label)
	}

	return labels
}

// Load a configuration file from the local file system, on top of the embedded defaults.
func Load(file string) (*Config, error) {
	cfg, err := loadDefaults()
	if err != nil {
		return nil, fmt.Errorf("loading default config: %w", err)
	}

	fsys := os.DirFS(filepath.Dir(file))
	pth := filepath.Join(".", filepath.Base(file))

	return load(fsys, pth, cfg)
}

// LoadDefaults loads the default configuration from the embedded default_config.yaml.
func LoadDefaults() (*Config, error) {
	return loadDefaults()
}

func loadDefaults() (*Config, error) {
	return load(efs, "default_config.yaml", &Config{})
}

func load(fsys fs.FS, file string, cfg *Config) (*Config, error) {
	content, err := fs.ReadFile(fsys, file)
	if err != nil {
		return nil, err
	}

	var raw any
	err = yaml.Unmarshal(content, &raw)
	if err != nil {
		return nil, err
	}

	// slices declared in the file replace the defaults rather than merging element-wise
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ZeroFields: true,
		Result:     cfg,
	})
	if err != nil {
		return nil, fmt.Errorf("creating mapstructure decoder: %w", err)
	}

	if err = dec.Decode(raw); err != nil {
		return nil, err
	}

	cfg.genreIndex = make(map[string]Genre, len(cfg.Genres))
	cfg.featureIndex = make(map[FieldName]Feature, len(cfg.Features))
	cfg.binIndex = make(map[FieldName]Bin, len(cfg.Bins))

	if err = cfg.validateGenres(); err != nil {
		return nil, err
	}

	if err = cfg.validateFeatures(); err != nil {
		return nil, err
	}

	if err = cfg.validateFieldLists(); err != nil {
		return nil, err
	}

	if err = cfg.validateScatter(); err != nil {
		return nil, err
	}

	if err = cfg.validatePopularity(); err != nil {
		return nil, err
	}

	if err = cfg.validateBins(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validateGenres() error {
	for i, v := range c.Genres {
		if v.ID == "" {
			return fmt.Errorf("invalid genres: empty ID found: genres[%d]", i)
		}
		v.ID = strings.ToLower(v.ID)
		if _, ok := c.genreIndex[v.ID]; ok {
			return fmt.Errorf("invalid genres: duplicate ID key found: %s", v.ID)
		}
		if v.Title == "" {
			v.Title = titleize(v.ID)
		}
		if v.Color == "" {
			v.Color = c.Render.FallbackColor
		}
		c.Genres[i] = v
		c.genreIndex[v.ID] = v
	}

	return nil
}

func (c *Config) validateFeatures() error {
	if len(c.Features) == 0 {
		return errors.New("invalid features: at least 1 feature must be declared")
	}

	for i, v := range c.Features {
		if v.ID == "" {
			return fmt.Errorf("invalid features: empty ID found: features[%d]", i)
		}
		if !v.ID.IsValid() {
			return fmt.Errorf("invalid features: invalid field: features[%d]=%v (should be one of %v)", i, v.ID, AllFieldNames())
		}
		if _, ok := c.featureIndex[v.ID]; ok {
			return fmt.Errorf("invalid features: duplicate ID key found: %s", v.ID)
		}
		if v.Title == "" {
			v.Title = titleize(v.ID)
		}
		c.Features[i] = v
		c.featureIndex[v.ID] = v
	}

	return nil
}

func (c *Config) validateFieldLists() error {
	for name, list := range map[string][]FieldName{"trend": c.Trend, "profile": c.Profile} {
		if len(list) == 0 {
			return fmt.Errorf("invalid %s: at least 1 field must be declared", name)
		}

		for i, v := range list {
			if !v.IsValid() {
				return fmt.Errorf("invalid %s: invalid field: %s[%d]=%v (should be one of %v)", name, name, i, v, AllFieldNames())
			}
		}
	}

	for _, v := range c.Profile {
		if !v.IsNormalized() {
			return fmt.Errorf("invalid profile: field %v is not scaled to [0,1]", v)
		}
	}

	for _, v := range c.Features {
		if !containsField(c.Trend, v.ID) {
			return fmt.Errorf("invalid features: feature %v is not averaged by trend", v.ID)
		}
	}

	return nil
}

func (c *Config) validateScatter() error {
	s := c.Scatter
	for _, v := range []FieldName{s.X, s.Y, s.Size} {
		if !v.IsValid() {
			return fmt.Errorf("invalid scatter: invalid field %q (should be one of %v)", v, AllFieldNames())
		}
	}

	if s.Cap <= 0 {
		return fmt.Errorf("invalid scatter: cap must be positive, got %d", s.Cap)
	}

	if s.SizeMax <= 0 {
		return fmt.Errorf("invalid scatter: sizeMax must be positive, got %v", s.SizeMax)
	}

	return nil
}

func (c *Config) validatePopularity() error {
	p := c.Popularity
	if p.Min > p.Max {
		return fmt.Errorf("invalid popularity: min %v is greater than max %v", p.Min, p.Max)
	}

	if p.Step <= 0 {
		return fmt.Errorf("invalid popularity: step must be positive, got %v", p.Step)
	}

	return nil
}

func (c *Config) validateBins() (err error) {
	for i, v := range c.Bins {
		v, err = c.validateBin(v, i)
		if err != nil {
			return err
		}

		c.Bins[i] = v
		c.binIndex[v.Field] = v
	}

	return nil
}

func (c *Config) validateBin(v Bin, i int) (vv Bin, err error) {
	if !v.Field.IsValid() {
		return vv, fmt.Errorf("invalid bins: invalid field: bins[%d]=%v (should be one of %v)", i, v.Field, AllFieldNames())
	}

	if _, ok := c.binIndex[v.Field]; ok {
		return vv, fmt.Errorf("invalid bins: duplicate field found: %s", v.Field)
	}

	if v.Title == "" {
		v.Title = titleize(v.Field)
	}

	switch v.Transform {
	case TransformNone, TransformMinutes:
	default:
		return vv, fmt.Errorf("invalid bins: unknown transform %q for bins.%s", v.Transform, v.Field)
	}

	if (len(v.Ranges) == 0) == (len(v.Categories) == 0) {
		return vv, fmt.Errorf("invalid bins: exactly one of ranges or categories must be declared for bins.%s", v.Field)
	}

	seen := make(map[string]struct{}, len(v.Ranges)+len(v.Categories))
	for _, label := range v.Labels() {
		if label == "" {
			return vv, fmt.Errorf("invalid bins: empty label for bins.%s", v.Field)
		}
		if _, dup := seen[label]; dup {
			return vv, fmt.Errorf("invalid bins: duplicate label %q for bins.%s", label, v.Field)
		}
		seen[label] = struct{}{}
	}

	seenValues := make(map[float64]struct{}, len(v.Categories))
	for _, cat := range v.Categories {
		if _, dup := seenValues[cat.Value]; dup {
			return vv, fmt.Errorf("invalid bins: duplicate category value %v for bins.%s", cat.Value, v.Field)
		}
		seenValues[cat.Value] = struct{}{}
	}

	return v, validateRanges(v)
}

// validateRanges checks that ranges partition their domain: ordered, no gap, no overlap, open-ended last range.
func validateRanges(v Bin) error {
	last := len(v.Ranges) - 1

	for j, r := range v.Ranges {
		if r.Lower != nil && r.Upper != nil && *r.Lower >= *r.Upper {
			return fmt.Errorf("invalid bins: empty range bins.%s.ranges[%d]: [%v, %v)", v.Field, j, *r.Lower, *r.Upper)
		}

		if j == last {
			if r.Upper != nil {
				return fmt.Errorf("invalid bins: the last range must be unbounded above: bins.%s.ranges[%d]", v.Field, j)
			}
		} else if r.Upper == nil {
			return fmt.Errorf("invalid bins: only the last range may be unbounded above: bins.%s.ranges[%d]", v.Field, j)
		}

		if j == 0 {
			continue
		}

		previous := v.Ranges[j-1]
		if r.Lower == nil || *r.Lower != *previous.Upper {
			return fmt.Errorf("invalid bins: range bins.%s.ranges[%d] must start where the previous range ends", v.Field, j)
		}
	}

	return nil
}

func containsField(list []FieldName, f FieldName) bool {
	for _, v := range list {
		if v == f {
			return true
		}
	}

	return false
}

type str interface {
	~string
}

func titleize[T str](in T) string {
	caser := cases.Title(language.English, cases.NoLower) // the case is stateful: cannot declare it globally

	return caser.String(strings.Map(func(r rune) rune {
		switch r {
		case '_', '-':
			return ' '
		default:
			return r
		}
	}, string(in),
	))
}
