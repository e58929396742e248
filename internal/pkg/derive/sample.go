package derive

import (
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/stat/sampleuv"

	"github.com/fredbi/trackviz/internal/pkg/config"
	"github.com/fredbi/trackviz/internal/pkg/dataset"
	"github.com/fredbi/trackviz/internal/pkg/model"
)

// ScatterSample selects the tracks plotted on the scatter chart.
//
// Rows missing any of the plotted values are dropped, then rows are filtered on the selected genres
// and on the popularity range, bounds included. When more rows than the configured cap remain, a
// uniform sample of exactly cap rows is drawn with the configured seed: the same dataset and selection
// always produce the same sample. Sampled rows keep their dataset order and are numbered from 0.
func (d *Deriver) ScatterSample(sel model.Selection) ([]model.ScatterPoint, error) {
	sc := d.cfg.Scatter
	columns := []string{
		dataset.ColumnTrackName,
		dataset.ColumnTrackArtist,
		dataset.ColumnGenre,
		config.FieldPopularity.String(),
		sc.X.String(),
		sc.Y.String(),
		sc.Size.String(),
	}
	if err := d.requireColumns(NameScatterSample, columns...); err != nil {
		return nil, err
	}

	var st Stats
	rows := d.ds.Rows()
	candidates := make([]model.ScatterPoint, 0, min(len(rows), sc.Cap))

	for _, row := range rows {
		st.Rows++

		point, ok := scatterPoint(row, sc)
		if !ok {
			st.Missing++

			continue
		}

		if !sel.HasGenre(point.Genre) {
			st.Excluded++

			continue
		}

		if !sel.Popularity.Contains(point.Popularity) {
			st.OutOfRange++

			continue
		}

		candidates = append(candidates, point)
	}

	sample := candidates
	if sc.Cap > 0 && len(candidates) > sc.Cap {
		idxs := make([]int, sc.Cap)
		sampleuv.WithoutReplacement(idxs, len(candidates), rand.NewPCG(sc.Seed, sc.Seed))
		slices.Sort(idxs)

		sample = make([]model.ScatterPoint, 0, sc.Cap)
		for _, i := range idxs {
			sample = append(sample, candidates[i])
		}
	}

	for i := range sample {
		sample[i].Index = i
	}

	st.Kept = len(sample)
	d.report(NameScatterSample, st)

	return sample, nil
}

func scatterPoint(row model.Record, sc config.Scatter) (model.ScatterPoint, bool) {
	point := model.ScatterPoint{
		TrackName:   row.TrackName,
		TrackArtist: row.TrackArtist,
		Genre:       row.Genre,
	}

	if row.Genre == "" || row.TrackName == "" || row.TrackArtist == "" {
		return point, false
	}

	var ok bool
	if point.X, ok = row.Value(sc.X); !ok {
		return point, false
	}

	if point.Y, ok = row.Value(sc.Y); !ok {
		return point, false
	}

	if point.Size, ok = row.Value(sc.Size); !ok {
		return point, false
	}

	if point.Popularity, ok = row.Value(config.FieldPopularity); !ok {
		return point, false
	}

	return point, true
}
