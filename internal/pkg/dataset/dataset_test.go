package dataset

import (
	"errors"
	"io/fs"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/fredbi/trackviz/internal/pkg/config"

	"github.com/go-openapi/testify/v2/assert"
	"github.com/go-openapi/testify/v2/require"
)

func TestLoadCSV(t *testing.T) {
	ds, err := Load(testdataPath("tracks.csv"))
	require.NoError(t, err)

	assert.Equal(t, testdataPath("tracks.csv"), ds.Source())
	require.Equal(t, 12, ds.Len())
	assert.True(t, ds.HasColumn(ColumnGenre))
	assert.True(t, ds.HasColumn(config.FieldDuration.String()))
	assert.False(t, ds.HasColumn("lyrics"))

	first := ds.Rows()[0]
	assert.Equal(t, "t01", first.TrackID)
	assert.Equal(t, "Song A", first.TrackName)
	assert.Equal(t, "Artist 1", first.TrackArtist)
	assert.Equal(t, "2019-06-14", first.AlbumReleaseDate)
	assert.Equal(t, "pop", first.Genre)
	assert.Equal(t, "dance pop", first.Subgenre)
	assert.InDelta(t, 66.0, first.Popularity, 1e-9)
	assert.InDelta(t, 0.748, first.Danceability, 1e-9)
	assert.InDelta(t, 194754.0, first.DurationMs, 1e-9)

	t.Run("empty cells are missing values", func(t *testing.T) {
		row := ds.Rows()[10]
		require.Equal(t, "t11", row.TrackID)

		_, ok := row.Value(config.FieldPopularity)
		assert.False(t, ok)

		v, ok := row.Value(config.FieldEnergy)
		require.True(t, ok)
		assert.InDelta(t, 0.85, v, 1e-9)
	})

	t.Run("non-numeric cells are missing values", func(t *testing.T) {
		row := ds.Rows()[11]
		require.Equal(t, "t12", row.TrackID)

		_, ok := row.Value(config.FieldEnergy)
		assert.False(t, ok)
		assert.True(t, math.IsNaN(row.Energy))
	})

	t.Run("unparseable dates are kept as is", func(t *testing.T) {
		assert.Equal(t, "unknown", ds.Rows()[6].AlbumReleaseDate)
	})
}

func TestLoadConfig(t *testing.T) {
	cfg, err := config.LoadDefaults()
	require.NoError(t, err)

	cfg.Dataset.File = testdataPath("tracks.csv")

	ds, err := LoadConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, 12, ds.Len())
}

func TestLoadReader(t *testing.T) {
	const input = "\ufeffTrack_Name, Playlist_Genre ,energy\n" +
		"one,POP,0.5\n" +
		",,\n" +
		"two,Rock,\n"

	ds, err := NewLoader(WithSource("inline"), WithRequiredColumns(ColumnGenre)).
		LoadReader(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, "inline", ds.Source())
	assert.Equal(t, []string{"track_name", "playlist_genre", "energy"}, ds.Columns())
	require.Equal(t, 2, ds.Len(), "blank rows should be skipped")

	assert.Equal(t, "pop", ds.Rows()[0].Genre)
	assert.Equal(t, "rock", ds.Rows()[1].Genre)

	v, ok := ds.Rows()[0].Value(config.FieldEnergy)
	require.True(t, ok)
	assert.InDelta(t, 0.5, v, 1e-9)

	_, ok = ds.Rows()[1].Value(config.FieldEnergy)
	assert.False(t, ok)

	_, ok = ds.Rows()[0].Value(config.FieldValence)
	assert.False(t, ok, "absent columns should be missing values")
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing column", func(t *testing.T) {
		_, err := NewLoader(WithRequiredColumns(ColumnGenre, "lyrics")).
			LoadReader(strings.NewReader("track_name,playlist_genre\na,pop\n"))
		require.Error(t, err)
		require.ErrorIs(t, err, ErrMissingColumn)
		assert.Contains(t, err.Error(), "lyrics")

		var loadErr *LoadError
		require.True(t, errors.As(err, &loadErr))
		assert.Equal(t, "-", loadErr.Source)
	})

	t.Run("empty source", func(t *testing.T) {
		_, err := NewLoader().LoadReader(strings.NewReader(""))
		require.ErrorIs(t, err, ErrEmptySource)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(testdataPath("nowhere.csv"))
		require.ErrorIs(t, err, fs.ErrNotExist)

		var loadErr *LoadError
		require.True(t, errors.As(err, &loadErr))
		assert.Equal(t, testdataPath("nowhere.csv"), loadErr.Source)
	})

	t.Run("unsupported format", func(t *testing.T) {
		_, err := Load(testdataPath("tracks.parquet"))
		require.ErrorIs(t, err, ErrUnsupportedFormat)
	})

	t.Run("missing workbook", func(t *testing.T) {
		_, err := Load(testdataPath("nowhere.xlsx"))
		require.Error(t, err)

		var loadErr *LoadError
		require.True(t, errors.As(err, &loadErr))
	})
}

func TestLoadXLSX(t *testing.T) {
	file := filepath.Join(t.TempDir(), "tracks.xlsx")

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"track_name", "playlist_genre", "track_popularity", "energy"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"one", "edm", 42, 0.9}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]any{"two", "latin", 17, 0.4}))
	require.NoError(t, f.SaveAs(file))
	require.NoError(t, f.Close())

	t.Run("first sheet", func(t *testing.T) {
		ds, err := Load(file, WithRequiredColumns(ColumnGenre, config.FieldPopularity.String()))
		require.NoError(t, err)
		require.Equal(t, 2, ds.Len())

		assert.Equal(t, "edm", ds.Rows()[0].Genre)
		assert.InDelta(t, 42.0, ds.Rows()[0].Popularity, 1e-9)
		assert.InDelta(t, 0.4, ds.Rows()[1].Energy, 1e-9)
	})

	t.Run("unknown sheet", func(t *testing.T) {
		_, err := Load(file, WithSheet("Tracks"))
		require.Error(t, err)

		var loadErr *LoadError
		require.True(t, errors.As(err, &loadErr))
	})
}

func TestReport(t *testing.T) {
	ds, err := Load(testdataPath("tracks.csv"))
	require.NoError(t, err)

	r := ds.Report()
	assert.Equal(t, 12, r.Rows)
	assert.Equal(t, 1, r.InvalidCells)
	assert.Len(t, r.Columns, 23)

	assert.Equal(t, []GenreCount{
		{Genre: "edm", Count: 3},
		{Genre: "pop", Count: 3},
		{Genre: "rap", Count: 2},
		{Genre: "rock", Count: 2},
		{Genre: "latin", Count: 1},
		{Genre: "r&b", Count: 1},
	}, r.Genres)

	require.Len(t, r.Fields, len(config.AllFieldNames()))

	for _, fr := range r.Fields {
		switch fr.Field {
		case config.FieldPopularity:
			assert.Equal(t, 11, fr.Count)
			assert.Equal(t, 1, fr.Missing)
			assert.InDelta(t, 20.0, fr.Min, 1e-9)
			assert.InDelta(t, 70.0, fr.Max, 1e-9)
			assert.InDelta(t, 538.0/11.0, fr.Mean, 1e-9)
		case config.FieldEnergy:
			assert.Equal(t, 11, fr.Count)
			assert.Equal(t, 1, fr.Missing)
		case config.FieldMode:
			assert.Equal(t, 12, fr.Count)
			assert.InDelta(t, 0.0, fr.Min, 1e-9)
			assert.InDelta(t, 1.0, fr.Max, 1e-9)
		}
	}
}

func testdataPath(name string) string {
	return filepath.Join("testdata", name)
}
