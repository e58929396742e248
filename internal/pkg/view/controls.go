package view

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/fredbi/trackviz/internal/pkg/config"
	"github.com/fredbi/trackviz/internal/pkg/model"
)

// ErrInvalidSelection is returned when query parameters do not describe a valid selection.
var ErrInvalidSelection = errors.New("invalid selection")

// ControlID identifies a dashboard control.
type ControlID string

// Dashboard controls.
const (
	ControlFeature    ControlID = "feature"
	ControlGenres     ControlID = "genres"
	ControlPopularity ControlID = "popularity"
	ControlColorMode  ControlID = "color-mode"
)

// AllControls lists the control IDs.
func AllControls() []ControlID {
	return []ControlID{ControlFeature, ControlGenres, ControlPopularity, ControlColorMode}
}

// IsValid tells if the control is known.
func (c ControlID) IsValid() bool {
	return slices.Contains(AllControls(), c)
}

func (c ControlID) String() string {
	return string(c)
}

// ControlKind tells how the value of a control is chosen.
type ControlKind string

// Supported control kinds.
const (
	KindOneOf    ControlKind = "one-of"
	KindSubsetOf ControlKind = "subset-of"
	KindRange    ControlKind = "range"
)

// Choice is one of the options proposed by a control.
type Choice struct {
	Value string `json:"value"`
	Label string `json:"label"`
	Color string `json:"color,omitempty"`
}

// Control declares a control of the dashboard, as consumed from the presentation layer.
type Control struct {
	ID      ControlID   `json:"id"`
	Kind    ControlKind `json:"kind"`
	Label   string      `json:"label"`
	Choices []Choice    `json:"choices,omitempty"`
	Min     float64     `json:"min,omitempty"`
	Max     float64     `json:"max,omitempty"`
	Step    float64     `json:"step,omitempty"`
}

// Controls declares the dashboard controls for a configuration.
func Controls(cfg *config.Config) []Control {
	features := make([]Choice, 0, len(cfg.Features))
	for _, f := range cfg.Features {
		features = append(features, Choice{Value: f.ID.String(), Label: f.Title})
	}

	genres := make([]Choice, 0, len(cfg.Genres))
	for _, g := range cfg.Genres {
		genres = append(genres, Choice{Value: g.ID, Label: g.Title, Color: g.Color})
	}

	return []Control{
		{
			ID:      ControlFeature,
			Kind:    KindOneOf,
			Label:   "Feature",
			Choices: features,
		},
		{
			ID:      ControlGenres,
			Kind:    KindSubsetOf,
			Label:   "Genres",
			Choices: genres,
		},
		{
			ID:    ControlPopularity,
			Kind:  KindRange,
			Label: "Popularity",
			Min:   cfg.Popularity.Min,
			Max:   cfg.Popularity.Max,
			Step:  cfg.Popularity.Step,
		},
		{
			ID:    ControlColorMode,
			Kind:  KindOneOf,
			Label: "Color by",
			Choices: []Choice{
				{Value: string(model.ColorByGenre), Label: "Genre"},
				{Value: string(model.ColorByPopularity), Label: "Popularity"},
			},
		},
	}
}

// DefaultSelection selects the first feature, all declared genres and the full popularity domain,
// with the scatter plot colored by genre.
//
// Genres found in the data but not declared in the config are not selectable, and stay out of the
// default selection. A nil [model.Selection.Genres] selects them all.
func DefaultSelection(cfg *config.Config) model.Selection {
	var feature config.FieldName
	if len(cfg.Features) > 0 {
		feature = cfg.Features[0].ID
	}

	return model.Selection{
		Feature:    feature,
		Genres:     cfg.GenreIDs(),
		Popularity: model.Range{Lower: cfg.Popularity.Min, Upper: cfg.Popularity.Max},
		ColorMode:  model.ColorByGenre,
	}
}

// ParseSelection decodes a selection from query parameters, starting from the [DefaultSelection].
//
// Recognized parameters are "feature", "genres" (comma-separated or repeated; present but empty
// selects no genre), "popularity" as "lower,upper" and "color-mode". The popularity range is
// clamped to its declared domain.
func ParseSelection(values url.Values, cfg *config.Config) (model.Selection, error) {
	sel := DefaultSelection(cfg)

	if v := strings.TrimSpace(values.Get(ControlFeature.String())); v != "" {
		feature := config.FieldName(strings.ToLower(v))
		if _, ok := cfg.GetFeature(feature); !ok {
			return sel, fmt.Errorf("%w: unknown feature %q", ErrInvalidSelection, v)
		}

		sel.Feature = feature
	}

	if raw, ok := values[ControlGenres.String()]; ok {
		genres, err := parseGenres(raw, cfg)
		if err != nil {
			return sel, err
		}

		sel.Genres = genres
	}

	if v := strings.TrimSpace(values.Get(ControlPopularity.String())); v != "" {
		r, err := parseRange(v)
		if err != nil {
			return sel, err
		}

		sel.Popularity = r
	}

	if v := strings.TrimSpace(values.Get(ControlColorMode.String())); v != "" {
		mode := model.ColorMode(strings.ToLower(v))
		if !mode.IsValid() {
			return sel, fmt.Errorf("%w: unknown color mode %q", ErrInvalidSelection, v)
		}

		sel.ColorMode = mode
	}

	return Normalize(sel, cfg), nil
}

// Validate checks that a selection only refers to declared features, genres and color modes.
//
// An empty feature or color mode is accepted: [Normalize] fills them with their defaults.
func Validate(sel model.Selection, cfg *config.Config) error {
	if sel.Feature != "" {
		if _, ok := cfg.GetFeature(sel.Feature); !ok {
			return fmt.Errorf("%w: unknown feature %q", ErrInvalidSelection, sel.Feature)
		}
	}

	for _, genre := range sel.Genres {
		if _, ok := cfg.GetGenre(strings.ToLower(genre)); !ok {
			return fmt.Errorf("%w: unknown genre %q", ErrInvalidSelection, genre)
		}
	}

	if sel.ColorMode != "" && !sel.ColorMode.IsValid() {
		return fmt.Errorf("%w: unknown color mode %q", ErrInvalidSelection, sel.ColorMode)
	}

	if math.IsNaN(sel.Popularity.Lower) || math.IsNaN(sel.Popularity.Upper) {
		return fmt.Errorf("%w: popularity range is not a number", ErrInvalidSelection)
	}

	return nil
}

// Normalize clamps the popularity range to its domain and fills unset fields with their defaults.
// A NaN bound falls back to the bound of the domain.
func Normalize(sel model.Selection, cfg *config.Config) model.Selection {
	defaults := DefaultSelection(cfg)
	sel = sel.Clone()

	if sel.Feature == "" {
		sel.Feature = defaults.Feature
	}

	if !sel.ColorMode.IsValid() {
		sel.ColorMode = defaults.ColorMode
	}

	for i, genre := range sel.Genres {
		sel.Genres[i] = strings.ToLower(genre)
	}

	// a NaN bound would select nothing
	if math.IsNaN(sel.Popularity.Lower) {
		sel.Popularity.Lower = cfg.Popularity.Min
	}

	if math.IsNaN(sel.Popularity.Upper) {
		sel.Popularity.Upper = cfg.Popularity.Max
	}

	sel.Popularity = sel.Popularity.Clamp(cfg.Popularity.Min, cfg.Popularity.Max)

	return sel
}

func parseGenres(raw []string, cfg *config.Config) ([]string, error) {
	genres := make([]string, 0, len(cfg.Genres))

	for _, value := range raw {
		for _, genre := range strings.Split(value, ",") {
			genre = strings.ToLower(strings.TrimSpace(genre))
			if genre == "" {
				continue
			}

			if _, ok := cfg.GetGenre(genre); !ok {
				return nil, fmt.Errorf("%w: unknown genre %q", ErrInvalidSelection, genre)
			}

			if !slices.Contains(genres, genre) {
				genres = append(genres, genre)
			}
		}
	}

	return genres, nil
}

func parseRange(value string) (model.Range, error) {
	lower, upper, ok := strings.Cut(value, ",")
	if !ok {
		return model.Range{}, fmt.Errorf("%w: popularity range %q must be given as lower,upper", ErrInvalidSelection, value)
	}

	lo, err := strconv.ParseFloat(strings.TrimSpace(lower), 64)
	if err != nil {
		return model.Range{}, fmt.Errorf("%w: popularity lower bound %q: %w", ErrInvalidSelection, lower, err)
	}

	hi, err := strconv.ParseFloat(strings.TrimSpace(upper), 64)
	if err != nil {
		return model.Range{}, fmt.Errorf("%w: popularity upper bound %q: %w", ErrInvalidSelection, upper, err)
	}

	if math.IsNaN(lo) || math.IsNaN(hi) {
		return model.Range{}, fmt.Errorf("%w: popularity range %q is not a number", ErrInvalidSelection, value)
	}

	return model.Range{Lower: lo, Upper: hi}, nil
}
