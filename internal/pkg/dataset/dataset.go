// Package dataset loads the track table once and exposes it read-only.
package dataset

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/fredbi/trackviz/internal/pkg/config"
	"github.com/fredbi/trackviz/internal/pkg/model"
)

// Text columns of the track dataset.
const (
	ColumnTrackID     = "track_id"
	ColumnTrackName   = "track_name"
	ColumnTrackArtist = "track_artist"
	ColumnReleaseDate = "track_album_release_date"
	ColumnGenre       = "playlist_genre"
	ColumnSubgenre    = "playlist_subgenre"
)

var (
	// ErrMissingColumn is wrapped by [LoadError] when the source lacks a required column.
	ErrMissingColumn = errors.New("missing required column")

	// ErrEmptySource is wrapped by [LoadError] when the source has no header row.
	ErrEmptySource = errors.New("empty source")

	// ErrUnsupportedFormat is wrapped by [LoadError] when the file extension is neither csv nor xlsx.
	ErrUnsupportedFormat = errors.New("unsupported format")
)

// LoadError reports a dataset that could not be loaded: missing or unreadable source, or schema mismatch.
//
// A [LoadError] is fatal at startup.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading dataset %q: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Dataset is the immutable in-memory track table.
//
// A [Dataset] is never mutated after loading and is safe for concurrent readers.
type Dataset struct {
	source  string
	columns []string
	index   map[string]int
	rows    []model.Record
	invalid int
}

// New builds a [Dataset] from already parsed records.
//
// The columns declare the schema the records were read with.
func New(source string, columns []string, rows []model.Record) *Dataset {
	index := make(map[string]int, len(columns))
	for i, column := range columns {
		index[column] = i
	}

	return &Dataset{
		source:  source,
		columns: slices.Clone(columns),
		index:   index,
		rows:    rows,
	}
}

// Source names where the dataset was loaded from.
func (d *Dataset) Source() string {
	return d.source
}

// Rows returns the dataset rows. Callers must not modify the returned slice.
func (d *Dataset) Rows() []model.Record {
	return d.rows
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	return len(d.rows)
}

// Columns returns a copy of the header of the source.
func (d *Dataset) Columns() []string {
	return slices.Clone(d.columns)
}

// HasColumn reports whether the source declared a column.
func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.index[name]

	return ok
}

// Loader reads a track table from a csv or xlsx source.
type Loader struct {
	options

	l *slog.Logger
}

// NewLoader builds a [Loader] ready to read dataset files.
func NewLoader(opts ...Option) *Loader {
	return &Loader{
		options: optionsWithDefaults(opts),
		l:       slog.Default().With(slog.String("module", "dataset")),
	}
}

// Load a dataset file, with the format inferred from its extension.
func Load(file string, opts ...Option) (*Dataset, error) {
	return NewLoader(opts...).Load(file)
}

// LoadConfig loads the dataset file declared in a [config.Config].
func LoadConfig(cfg *config.Config) (*Dataset, error) {
	return Load(cfg.Dataset.File,
		WithRequiredColumns(cfg.Dataset.Required...),
		WithSheet(cfg.Dataset.Sheet),
	)
}

// Load a dataset file. Files with the ".xlsx" extension are read as workbooks, others as csv.
//
// The special name "-" reads csv from standard input.
func (p *Loader) Load(file string) (*Dataset, error) {
	if file == "-" {
		return p.LoadReader(os.Stdin)
	}

	var (
		header []string
		cells  [][]string
		err    error
	)

	switch ext := strings.ToLower(filepath.Ext(file)); ext {
	case ".xlsx":
		header, cells, err = p.readXLSX(file)
	case ".csv", ".txt", "":
		var f *os.File
		f, err = os.Open(file)
		if err != nil {
			return nil, &LoadError{Source: file, Err: err}
		}
		defer func() {
			_ = f.Close()
		}()

		header, cells, err = readCSV(f)
	default:
		err = fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	if err != nil {
		return nil, &LoadError{Source: file, Err: err}
	}

	return p.build(file, header, cells)
}

// LoadReader reads a csv dataset from a stream.
func (p *Loader) LoadReader(r io.Reader) (*Dataset, error) {
	header, cells, err := readCSV(r)
	if err != nil {
		return nil, &LoadError{Source: p.source, Err: err}
	}

	return p.build(p.source, header, cells)
}

func (p *Loader) build(source string, header []string, cells [][]string) (*Dataset, error) {
	if len(header) == 0 {
		return nil, &LoadError{Source: source, Err: ErrEmptySource}
	}

	header = normalizeHeader(header)
	ds := New(source, header, make([]model.Record, 0, len(cells)))

	for _, required := range p.required {
		if !ds.HasColumn(required) {
			return nil, &LoadError{Source: source, Err: fmt.Errorf("%w: %q", ErrMissingColumn, required)}
		}
	}

	for _, row := range cells {
		if isBlank(row) {
			continue
		}

		record, invalid := ds.parseRecord(row)
		ds.invalid += invalid
		ds.rows = append(ds.rows, record)
	}

	if ds.invalid > 0 {
		p.l.Warn("non-numeric cells loaded as missing values",
			slog.String("source", source),
			slog.Int("cells", ds.invalid),
		)
	}

	p.l.Info("dataset loaded",
		slog.String("source", source),
		slog.Int("rows", len(ds.rows)),
		slog.Int("columns", len(header)),
	)

	return ds, nil
}

// parseRecord maps the cells of a row onto a [model.Record]. It returns the number of non-empty
// numeric cells that could not be parsed.
func (d *Dataset) parseRecord(row []string) (model.Record, int) {
	cell := func(column string) string {
		i, ok := d.index[column]
		if !ok || i >= len(row) {
			return ""
		}

		return strings.TrimSpace(row[i])
	}

	record := model.NewRecord()
	record.TrackID = cell(ColumnTrackID)
	record.TrackName = cell(ColumnTrackName)
	record.TrackArtist = cell(ColumnTrackArtist)
	record.AlbumReleaseDate = cell(ColumnReleaseDate)
	record.Genre = strings.ToLower(cell(ColumnGenre))
	record.Subgenre = cell(ColumnSubgenre)

	var invalid int
	for _, field := range config.AllFieldNames() {
		value := cell(field.String())
		if value == "" {
			continue
		}

		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			invalid++

			continue
		}

		record.SetValue(field, v)
	}

	return record, invalid
}

func normalizeHeader(header []string) []string {
	normalized := make([]string, len(header))
	for i, column := range header {
		column = strings.TrimPrefix(column, "\ufeff")
		normalized[i] = strings.ToLower(strings.TrimSpace(column))
	}

	return normalized
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}

	return true
}
