package derive

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/fredbi/trackviz/internal/pkg/config"
	"github.com/fredbi/trackviz/internal/pkg/dataset"
	"github.com/fredbi/trackviz/internal/pkg/model"
)

// releaseDateLayouts are the accepted formats of an album release date.
var releaseDateLayouts = []string{"2006-01-02", "2006-01", "2006"}

// ParseYear extracts the year of an album release date.
func ParseYear(date string) (int, bool) {
	date = strings.TrimSpace(date)
	for _, layout := range releaseDateLayouts {
		if t, err := time.Parse(layout, date); err == nil {
			return t.Year(), true
		}
	}

	return 0, false
}

// GenreAverages computes the mean popularity of each selected genre.
//
// Rows without a popularity score are skipped. Genres with no row are absent. The result is sorted
// by decreasing mean.
func (d *Deriver) GenreAverages(genres []string) ([]model.GenreAverage, error) {
	if err := d.requireColumns(NameGenreAverages, dataset.ColumnGenre, config.FieldPopularity.String()); err != nil {
		return nil, err
	}

	var st Stats
	selected := genreFilter(genres)
	groups := make(map[string][]float64)

	for _, row := range d.ds.Rows() {
		st.Rows++
		if !selected(row.Genre) {
			st.Excluded++

			continue
		}

		v, ok := row.Value(config.FieldPopularity)
		if !ok || row.Genre == "" {
			st.Missing++

			continue
		}

		st.Kept++
		groups[row.Genre] = append(groups[row.Genre], v)
	}

	result := make([]model.GenreAverage, 0, len(groups))
	for genre, values := range groups {
		mean, _ := stats.Mean(values) // groups are never empty
		result = append(result, model.GenreAverage{
			Genre: genre,
			Mean:  mean,
			Count: len(values),
		})
	}

	slices.SortFunc(result, func(a, b model.GenreAverage) int {
		if c := cmp.Compare(b.Mean, a.Mean); c != 0 {
			return c
		}

		return cmp.Compare(a.Genre, b.Genre)
	})

	d.report(NameGenreAverages, st)

	return result, nil
}

type yearGenre struct {
	year  int
	genre string
}

// TimeFeatures computes the mean of every trend feature per (year, genre).
//
// Rows without a genre or with an unparseable release date are dropped. Missing feature values are
// left out of the mean of that feature only. The result is sorted by year, then genre.
func (d *Deriver) TimeFeatures(genres []string) ([]model.TimeFeature, error) {
	columns := append([]string{dataset.ColumnGenre, dataset.ColumnReleaseDate}, fieldColumns(d.cfg.Trend)...)
	if err := d.requireColumns(NameTimeFeatures, columns...); err != nil {
		return nil, err
	}

	type group struct {
		count  int
		values map[config.FieldName][]float64
	}

	var st Stats
	selected := genreFilter(genres)
	groups := make(map[yearGenre]*group)

	for _, row := range d.ds.Rows() {
		st.Rows++
		if !selected(row.Genre) {
			st.Excluded++

			continue
		}

		if row.Genre == "" {
			st.Missing++

			continue
		}

		year, ok := ParseYear(row.AlbumReleaseDate)
		if !ok {
			st.BadDate++

			continue
		}

		st.Kept++
		key := yearGenre{year: year, genre: row.Genre}
		g, ok := groups[key]
		if !ok {
			g = &group{values: make(map[config.FieldName][]float64, len(d.cfg.Trend))}
			groups[key] = g
		}

		g.count++
		for _, field := range d.cfg.Trend {
			if v, ok := row.Value(field); ok {
				g.values[field] = append(g.values[field], v)
			}
		}
	}

	result := make([]model.TimeFeature, 0, len(groups))
	for key, g := range groups {
		means := make(map[config.FieldName]float64, len(g.values))
		for field, values := range g.values {
			means[field], _ = stats.Mean(values)
		}

		result = append(result, model.TimeFeature{
			Year:  key.year,
			Genre: key.genre,
			Means: means,
			Count: g.count,
		})
	}

	slices.SortFunc(result, func(a, b model.TimeFeature) int {
		if c := cmp.Compare(a.Year, b.Year); c != 0 {
			return c
		}

		return d.compareGenres(a.Genre, b.Genre)
	})

	d.report(NameTimeFeatures, st)

	return result, nil
}

// ReleaseCounts counts the tracks released per (year, genre).
//
// Rows without a genre are dropped. The result is sparse: groups without any track are absent.
// Use [DenseReleaseCounts] to fill the gaps.
func (d *Deriver) ReleaseCounts(genres []string) ([]model.ReleaseCount, error) {
	if err := d.requireColumns(NameReleaseCounts, dataset.ColumnGenre, dataset.ColumnReleaseDate); err != nil {
		return nil, err
	}

	var st Stats
	selected := genreFilter(genres)
	counts := make(map[yearGenre]int)

	for _, row := range d.ds.Rows() {
		st.Rows++
		if !selected(row.Genre) {
			st.Excluded++

			continue
		}

		if row.Genre == "" {
			st.Missing++

			continue
		}

		year, ok := ParseYear(row.AlbumReleaseDate)
		if !ok {
			st.BadDate++

			continue
		}

		st.Kept++
		counts[yearGenre{year: year, genre: row.Genre}]++
	}

	result := make([]model.ReleaseCount, 0, len(counts))
	for key, count := range counts {
		result = append(result, model.ReleaseCount{Year: key.year, Genre: key.genre, Count: count})
	}

	slices.SortFunc(result, func(a, b model.ReleaseCount) int {
		if c := cmp.Compare(a.Year, b.Year); c != 0 {
			return c
		}

		return d.compareGenres(a.Genre, b.Genre)
	})

	d.report(NameReleaseCounts, st)

	return result, nil
}

// DenseReleaseCounts fills a sparse release count table with zero counts, so that every year present
// in the table has one row per genre.
//
// Genres are emitted in the given order, which is the stacking order of the area chart. A nil genres
// list uses the genres found in the table, in the configured order.
func DenseReleaseCounts(cfg *config.Config, counts []model.ReleaseCount, genres []string) []model.ReleaseCount {
	if len(counts) == 0 {
		return []model.ReleaseCount{}
	}

	index := make(map[yearGenre]int, len(counts))
	years := make([]int, 0, len(counts))
	found := make([]string, 0)

	for _, c := range counts {
		index[yearGenre{year: c.Year, genre: c.Genre}] += c.Count
		if !slices.Contains(years, c.Year) {
			years = append(years, c.Year)
		}

		if !slices.Contains(found, c.Genre) {
			found = append(found, c.Genre)
		}
	}

	slices.Sort(years)

	if genres == nil {
		genres = found
		slices.SortFunc(genres, func(a, b string) int { return compareGenres(cfg, a, b) })
	}

	dense := make([]model.ReleaseCount, 0, len(years)*len(genres))
	for _, year := range years {
		for _, genre := range genres {
			dense = append(dense, model.ReleaseCount{
				Year:  year,
				Genre: genre,
				Count: index[yearGenre{year: year, genre: genre}],
			})
		}
	}

	return dense
}

// FeatureProfiles computes the mean of every profile feature per genre.
//
// Missing feature values are left out of the mean of that feature only. The result follows the
// configured genre order.
func (d *Deriver) FeatureProfiles(genres []string) ([]model.FeatureProfile, error) {
	columns := append([]string{dataset.ColumnGenre}, fieldColumns(d.cfg.Profile)...)
	if err := d.requireColumns(NameFeatureProfiles, columns...); err != nil {
		return nil, err
	}

	type group struct {
		count  int
		values map[config.FieldName][]float64
	}

	var st Stats
	selected := genreFilter(genres)
	groups := make(map[string]*group)

	for _, row := range d.ds.Rows() {
		st.Rows++
		if !selected(row.Genre) {
			st.Excluded++

			continue
		}

		if row.Genre == "" {
			st.Missing++

			continue
		}

		st.Kept++
		g, ok := groups[row.Genre]
		if !ok {
			g = &group{values: make(map[config.FieldName][]float64, len(d.cfg.Profile))}
			groups[row.Genre] = g
		}

		g.count++
		for _, field := range d.cfg.Profile {
			if v, ok := row.Value(field); ok {
				g.values[field] = append(g.values[field], v)
			}
		}
	}

	result := make([]model.FeatureProfile, 0, len(groups))
	for genre, g := range groups {
		means := make(map[config.FieldName]float64, len(g.values))
		for field, values := range g.values {
			means[field], _ = stats.Mean(values)
		}

		result = append(result, model.FeatureProfile{Genre: genre, Means: means, Count: g.count})
	}

	slices.SortFunc(result, func(a, b model.FeatureProfile) int {
		return d.compareGenres(a.Genre, b.Genre)
	})

	d.report(NameFeatureProfiles, st)

	return result, nil
}
