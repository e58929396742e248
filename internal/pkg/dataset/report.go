package dataset

import (
	"cmp"
	"slices"

	"github.com/montanaflynn/stats"

	"github.com/fredbi/trackviz/internal/pkg/config"
)

// Report allows to inspect the contents of a loaded dataset.
type Report struct {
	Source       string        `json:"source"`
	Rows         int           `json:"rows"`
	Columns      []string      `json:"columns"`
	InvalidCells int           `json:"invalid_cells"`
	Fields       []FieldReport `json:"fields"`
	Genres       []GenreCount  `json:"genres"`
}

// FieldReport summarizes the values of one numeric field.
type FieldReport struct {
	Field   config.FieldName `json:"field"`
	Count   int              `json:"count"`
	Missing int              `json:"missing"`
	Min     float64          `json:"min"`
	Max     float64          `json:"max"`
	Mean    float64          `json:"mean"`
}

// GenreCount is the number of rows labeled with a genre.
type GenreCount struct {
	Genre string `json:"genre"`
	Count int    `json:"count"`
}

// Report produces a [Report] of the dataset contents. Genres are sorted by decreasing row count.
func (d *Dataset) Report() Report {
	r := Report{
		Source:       d.source,
		Rows:         len(d.rows),
		Columns:      d.Columns(),
		InvalidCells: d.invalid,
		Fields:       make([]FieldReport, 0, len(config.AllFieldNames())),
	}

	for _, field := range config.AllFieldNames() {
		if !d.HasColumn(field.String()) {
			continue
		}

		values := make([]float64, 0, len(d.rows))
		for _, row := range d.rows {
			if v, ok := row.Value(field); ok {
				values = append(values, v)
			}
		}

		fr := FieldReport{
			Field:   field,
			Count:   len(values),
			Missing: len(d.rows) - len(values),
		}

		if len(values) > 0 {
			// errors are only returned for empty inputs
			fr.Min, _ = stats.Min(values)
			fr.Max, _ = stats.Max(values)
			fr.Mean, _ = stats.Mean(values)
		}

		r.Fields = append(r.Fields, fr)
	}

	counts := make(map[string]int)
	for _, row := range d.rows {
		counts[row.Genre]++
	}

	for genre, count := range counts {
		r.Genres = append(r.Genres, GenreCount{Genre: genre, Count: count})
	}

	slices.SortFunc(r.Genres, func(a, b GenreCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}

		return cmp.Compare(a.Genre, b.Genre)
	})

	return r
}
