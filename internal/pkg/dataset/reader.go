package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// readCSV reads a header row followed by data rows. Ragged rows are tolerated.
func readCSV(r io.Reader) (header []string, rows [][]string, err error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = false

	header, err = reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("reading csv header: %w", err)
	}

	rows, err = reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("reading csv rows: %w", err)
	}

	return header, rows, nil
}

// readXLSX reads the configured sheet of a workbook, or its first sheet.
func (p *Loader) readXLSX(file string) (header []string, rows [][]string, err error) {
	f, err := excelize.OpenFile(file)
	if err != nil {
		return nil, nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	sheet := p.sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, nil, nil
		}
		sheet = sheets[0]
	}

	all, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("reading sheet %q: %w", sheet, err)
	}

	if len(all) == 0 {
		return nil, nil, nil
	}

	return all[0], all[1:], nil
}
