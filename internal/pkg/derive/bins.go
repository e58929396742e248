package derive

import (
	"slices"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"

	"github.com/fredbi/trackviz/internal/pkg/config"
	"github.com/fredbi/trackviz/internal/pkg/dataset"
	"github.com/fredbi/trackviz/internal/pkg/model"
)

// Bins labels every selected row with one bin per configured binned field.
//
// All selected rows are retained. A field gets no label when its value is missing or falls outside of
// the binned domain.
func (d *Deriver) Bins(genres []string) ([]model.BinnedRecord, error) {
	columns := []string{dataset.ColumnGenre}
	for _, bin := range d.cfg.Bins {
		columns = append(columns, bin.Field.String())
	}

	if err := d.requireColumns(NameBins, columns...); err != nil {
		return nil, err
	}

	var st Stats
	selected := genreFilter(genres)
	rows := d.ds.Rows()
	result := make([]model.BinnedRecord, 0, len(rows))

	for _, row := range rows {
		st.Rows++
		if !selected(row.Genre) {
			st.Excluded++

			continue
		}

		binned := model.BinnedRecord{
			Record: row,
			Bins:   make(map[config.FieldName]string, len(d.cfg.Bins)),
		}

		complete := true
		for _, bin := range d.cfg.Bins {
			v, _ := row.Value(bin.Field) // NaN has no label
			label, ok := bin.Assign(v)
			if !ok {
				complete = false

				continue
			}

			binned.Bins[bin.Field] = label
		}

		if !complete {
			st.Missing++
		}

		st.Kept++
		result = append(result, binned)
	}

	d.report(NameBins, st)

	return result, nil
}

// Summarize computes the distribution summary of a sample. Quartiles are linearly interpolated.
//
// The input is not modified. An empty sample yields a zero [model.Summary].
func Summarize(values []float64) model.Summary {
	if len(values) == 0 {
		return model.Summary{}
	}

	sorted := slices.Clone(values)
	slices.Sort(sorted)

	mean, _ := stats.Mean(sorted)

	return model.Summary{
		Min:    sorted[0],
		Q1:     stat.Quantile(0.25, stat.LinInterp, sorted, nil),
		Median: stat.Quantile(0.5, stat.LinInterp, sorted, nil),
		Q3:     stat.Quantile(0.75, stat.LinInterp, sorted, nil),
		Max:    sorted[len(sorted)-1],
		Mean:   mean,
		Count:  len(sorted),
	}
}
