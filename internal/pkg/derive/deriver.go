// Package derive computes the chart-specific tables from the track dataset.
//
// Every derivation is a pure function of the dataset and of its parameters: the dataset is never
// modified and no state is kept between calls.
package derive

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/fredbi/trackviz/internal/pkg/config"
	"github.com/fredbi/trackviz/internal/pkg/dataset"
)

// ErrMissingColumn is returned when the dataset does not provide a column a derivation depends on.
var ErrMissingColumn = errors.New("dataset lacks a required column")

// Derivation names, as reported to observers.
const (
	NameGenreAverages   = "genre-averages"
	NameTimeFeatures    = "time-features"
	NameReleaseCounts   = "release-counts"
	NameFeatureProfiles = "feature-profiles"
	NameScatterSample   = "scatter-sample"
	NameBins            = "bins"
)

// Stats counts how the rows of the dataset were used by one derivation.
//
// Skipped rows are never an error.
type Stats struct {
	Rows       int `json:"rows"`
	Kept       int `json:"kept"`
	Excluded   int `json:"excluded"`     // genre not selected
	BadDate    int `json:"bad_date"`     // release year could not be parsed
	Missing    int `json:"missing"`      // a required value is missing
	OutOfRange int `json:"out_of_range"` // filtered out by a numeric range
}

// Option configures a [Deriver].
type Option func(*options)

type options struct {
	observer func(string, Stats)
}

// WithObserver registers a callback that receives the [Stats] of every derivation.
//
// The callback may be called concurrently when the [Deriver] is shared.
func WithObserver(fn func(derivation string, s Stats)) Option {
	return func(o *options) {
		o.observer = fn
	}
}

func optionsWithDefaults(opts []Option) options {
	var o options

	for _, apply := range opts {
		apply(&o)
	}

	return o
}

// Deriver computes derived tables from a read-only [dataset.Dataset].
//
// A [Deriver] holds no mutable state and is safe for concurrent use.
type Deriver struct {
	options

	ds  *dataset.Dataset
	cfg *config.Config
	l   *slog.Logger
}

// New builds a [Deriver] over a loaded dataset.
func New(ds *dataset.Dataset, cfg *config.Config, opts ...Option) *Deriver {
	return &Deriver{
		options: optionsWithDefaults(opts),
		ds:      ds,
		cfg:     cfg,
		l:       slog.Default().With(slog.String("module", "derive")),
	}
}

// Dataset returns the dataset the derivations read from.
func (d *Deriver) Dataset() *dataset.Dataset {
	return d.ds
}

// Config returns the configuration the derivations follow.
func (d *Deriver) Config() *config.Config {
	return d.cfg
}

// requireColumns checks that the dataset declares all the columns used by a derivation.
func (d *Deriver) requireColumns(derivation string, columns ...string) error {
	for _, column := range columns {
		if !d.ds.HasColumn(column) {
			err := fmt.Errorf("%w: %q is needed by %s", ErrMissingColumn, column, derivation)
			d.l.Error("derivation failed", slog.String("derivation", derivation), slog.String("error", err.Error()))

			return err
		}
	}

	return nil
}

func (d *Deriver) report(derivation string, s Stats) {
	d.l.Debug("derivation computed",
		slog.String("derivation", derivation),
		slog.Int("rows", s.Rows),
		slog.Int("kept", s.Kept),
		slog.Int("excluded", s.Excluded),
		slog.Int("bad_date", s.BadDate),
		slog.Int("missing", s.Missing),
		slog.Int("out_of_range", s.OutOfRange),
	)

	if d.observer != nil {
		d.observer(derivation, s)
	}
}

// compareGenres orders genres as declared in the configuration. Undeclared genres come last, by name.
func (d *Deriver) compareGenres(a, b string) int {
	return compareGenres(d.cfg, a, b)
}

func compareGenres(cfg *config.Config, a, b string) int {
	ia := genreRank(cfg, a)
	ib := genreRank(cfg, b)
	if c := cmp.Compare(ia, ib); c != 0 {
		return c
	}

	return cmp.Compare(a, b)
}

func genreRank(cfg *config.Config, genre string) int {
	if cfg == nil {
		return 0
	}

	if i := slices.IndexFunc(cfg.Genres, func(g config.Genre) bool { return g.ID == genre }); i >= 0 {
		return i
	}

	return len(cfg.Genres)
}

// genreFilter tells if a genre label is part of a selection: a nil selection selects all genres,
// an empty one selects none.
func genreFilter(genres []string) func(string) bool {
	if genres == nil {
		return func(string) bool { return true }
	}

	selected := make(map[string]struct{}, len(genres))
	for _, g := range genres {
		selected[g] = struct{}{}
	}

	return func(genre string) bool {
		_, ok := selected[genre]

		return ok
	}
}

func fieldColumns(fields []config.FieldName) []string {
	columns := make([]string, 0, len(fields))
	for _, f := range fields {
		columns = append(columns, f.String())
	}

	return columns
}
