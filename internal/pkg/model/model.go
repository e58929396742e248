// Package model declares the records and derived tables shared across the dashboard.
package model

import (
	"math"
	"slices"

	"github.com/fredbi/trackviz/internal/pkg/config"
)

// Record is one row of the track dataset.
//
// Numeric fields hold NaN when the source cell is empty or not a number: a missing value is a valid
// state, each derivation decides whether it can use the row. String fields are empty when missing.
type Record struct {
	TrackID          string
	TrackName        string
	TrackArtist      string
	AlbumReleaseDate string
	Genre            string
	Subgenre         string

	Popularity       float64
	Danceability     float64
	Energy           float64
	Key              float64
	Loudness         float64
	Mode             float64
	Speechiness      float64
	Acousticness     float64
	Instrumentalness float64
	Liveness         float64
	Valence          float64
	Tempo            float64
	DurationMs       float64
}

// Value returns the value of a numeric field, and false if the field is unknown or missing for this record.
func (r Record) Value(field config.FieldName) (float64, bool) {
	p := r.field(field)
	if p == nil || math.IsNaN(*p) {
		return math.NaN(), false
	}

	return *p, true
}

// SetValue sets a numeric field. Unknown fields are ignored.
func (r *Record) SetValue(field config.FieldName, v float64) {
	if p := r.field(field); p != nil {
		*p = v
	}
}

func (r *Record) field(field config.FieldName) *float64 {
	switch field {
	case config.FieldPopularity:
		return &r.Popularity
	case config.FieldDanceability:
		return &r.Danceability
	case config.FieldEnergy:
		return &r.Energy
	case config.FieldKey:
		return &r.Key
	case config.FieldLoudness:
		return &r.Loudness
	case config.FieldMode:
		return &r.Mode
	case config.FieldSpeechiness:
		return &r.Speechiness
	case config.FieldAcousticness:
		return &r.Acousticness
	case config.FieldInstrumentalness:
		return &r.Instrumentalness
	case config.FieldLiveness:
		return &r.Liveness
	case config.FieldValence:
		return &r.Valence
	case config.FieldTempo:
		return &r.Tempo
	case config.FieldDuration:
		return &r.DurationMs
	default:
		return nil
	}
}

// NewRecord returns a [Record] with every numeric field missing.
func NewRecord() Record {
	r := Record{}
	for _, f := range config.AllFieldNames() {
		r.SetValue(f, math.NaN())
	}

	return r
}

// ColorMode selects the color channel of the scatter plot.
type ColorMode string

// Supported scatter color modes.
const (
	ColorByGenre      ColorMode = "genre"
	ColorByPopularity ColorMode = "popularity"
)

// IsValid reports whether the color mode is supported.
func (m ColorMode) IsValid() bool {
	return m == ColorByGenre || m == ColorByPopularity
}

// Range is a closed numeric interval [Lower, Upper].
type Range struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Contains reports whether v lies within the range, bounds included.
func (r Range) Contains(v float64) bool {
	return v >= r.Lower && v <= r.Upper
}

// Clamp orders the bounds and clamps them to [lo, hi].
func (r Range) Clamp(lo, hi float64) Range {
	if r.Lower > r.Upper {
		r.Lower, r.Upper = r.Upper, r.Lower
	}

	return Range{
		Lower: min(max(r.Lower, lo), hi),
		Upper: min(max(r.Upper, lo), hi),
	}
}

// Selection is the current state of the dashboard controls.
//
// A nil Genres slice selects every genre, while an empty non-nil slice selects none.
type Selection struct {
	Feature    config.FieldName `json:"feature"`
	Genres     []string         `json:"genres"`
	Popularity Range            `json:"popularity"`
	ColorMode  ColorMode        `json:"color_mode"`
}

// HasGenre reports whether a genre label is part of the selection.
func (s Selection) HasGenre(genre string) bool {
	if s.Genres == nil {
		return true
	}

	return slices.Contains(s.Genres, genre)
}

// Clone returns a deep copy of the selection.
func (s Selection) Clone() Selection {
	s.Genres = slices.Clone(s.Genres)

	return s
}

// GenreAverage is one row of the genre-average derivation.
type GenreAverage struct {
	Genre string  `json:"genre"`
	Mean  float64 `json:"mean"`
	Count int     `json:"count"`
}

// TimeFeature is the mean of each trend feature for one (year, genre) group.
type TimeFeature struct {
	Year  int                          `json:"year"`
	Genre string                       `json:"genre"`
	Means map[config.FieldName]float64 `json:"means"`
	Count int                          `json:"count"`
}

// ReleaseCount is the number of tracks released in one (year, genre) group.
type ReleaseCount struct {
	Year  int    `json:"year"`
	Genre string `json:"genre"`
	Count int    `json:"count"`
}

// FeatureProfile holds the mean of every profile feature for one genre.
type FeatureProfile struct {
	Genre string                       `json:"genre"`
	Means map[config.FieldName]float64 `json:"means"`
	Count int                          `json:"count"`
}

// ScatterPoint is one sampled track of the scatter derivation.
//
// Index is the dense 0-based position of the point in the sample.
type ScatterPoint struct {
	Index       int     `json:"index"`
	TrackName   string  `json:"track_name"`
	TrackArtist string  `json:"track_artist"`
	Genre       string  `json:"genre"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Size        float64 `json:"size"`
	Popularity  float64 `json:"popularity"`
}

// BinnedRecord is a dataset row extended with one bin label per binned field.
//
// A field has no entry when its value is missing or outside of the binned domain.
type BinnedRecord struct {
	Record

	Bins map[config.FieldName]string `json:"bins"`
}

// Summary describes the distribution of a sample of values.
type Summary struct {
	Min    float64 `json:"min"`
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Count  int     `json:"count"`
}
