package testintegration

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/fredbi/trackviz/internal/pkg/chart"
	"github.com/fredbi/trackviz/internal/pkg/config"
	"github.com/fredbi/trackviz/internal/pkg/dataset"
	"github.com/fredbi/trackviz/internal/pkg/derive"
	"github.com/fredbi/trackviz/internal/pkg/server"
	"github.com/fredbi/trackviz/internal/pkg/view"

	"github.com/go-openapi/testify/v2/assert"
	"github.com/go-openapi/testify/v2/require"
)

func TestTrackviz(t *testing.T) {
	fixture := filepath.Join("..", "dataset", "testdata", "tracks.csv")
	outDir := t.TempDir()

	t.Run("should load config", func(t *testing.T) {
		cfg, err := config.LoadDefaults()
		require.NoError(t, err)
		require.NotNil(t, cfg)

		var buf bytes.Buffer
		require.NoError(t, cfg.EncodeYAML(&buf))
		writeResult(t, outDir, "test_config.yaml", &buf)

		t.Run("should load dataset", func(t *testing.T) {
			ds, err := dataset.LoadConfig(withDataset(cfg, fixture))
			require.NoError(t, err)
			require.Equal(t, 12, ds.Len())

			writeData(t, outDir, "test_report.json", ds.Report())

			d := derive.New(ds, cfg)
			b := chart.New(cfg, chart.WithSubtitle(filepath.Base(fixture)))

			for _, page := range view.Pages() {
				t.Run("should build page "+page.ID.String(), func(t *testing.T) {
					db := view.NewDashboard(d, b)
					specs, err := db.Navigate(page.ID, view.DefaultSelection(cfg))
					require.NoError(t, err)
					require.Len(t, specs, len(page.Charts))

					for _, spec := range specs {
						assert.False(t, spec.IsEmpty(), "chart %s has no data", spec.ID)
						assert.Equal(t, filepath.Base(fixture), spec.Subtitle)
					}

					writeData(t, outDir, "test_specs_"+page.ID.String()+".json", specs)

					t.Run("should render page", func(t *testing.T) {
						html := chart.NewPage(page.Title, specs...)

						var buf bytes.Buffer
						require.NoError(t, html.Render(&buf))
						assert.Contains(t, buf.String(), page.Title)

						writeResult(t, outDir, "test_"+page.ID.String()+".html", &buf)
					})
				})
			}
		})

		t.Run("should derive the same tables from a workbook", func(t *testing.T) {
			fromCSV, err := dataset.Load(fixture)
			require.NoError(t, err)

			workbook := filepath.Join(outDir, "tracks.xlsx")
			writeWorkbook(t, fixture, workbook)

			fromXLSX, err := dataset.LoadConfig(withDataset(cfg, workbook))
			require.NoError(t, err)
			require.Equal(t, fromCSV.Len(), fromXLSX.Len())

			csvAverages, err := derive.New(fromCSV, cfg).GenreAverages(nil)
			require.NoError(t, err)
			xlsxAverages, err := derive.New(fromXLSX, cfg).GenreAverages(nil)
			require.NoError(t, err)
			assert.Equal(t, csvAverages, xlsxAverages)

			csvCounts, err := derive.New(fromCSV, cfg).ReleaseCounts(nil)
			require.NoError(t, err)
			xlsxCounts, err := derive.New(fromXLSX, cfg).ReleaseCounts(nil)
			require.NoError(t, err)
			assert.Equal(t, csvCounts, xlsxCounts)
		})

		t.Run("should serve the dashboard", func(t *testing.T) {
			ds, err := dataset.Load(fixture)
			require.NoError(t, err)

			ts := httptest.NewServer(server.New(derive.New(ds, cfg), chart.New(cfg)).Handler())
			defer ts.Close()

			resp, err := ts.Client().Get(ts.URL + "/api/pages/features?genres=pop,rap&popularity=60,67")
			require.NoError(t, err)
			var page server.PageResponse
			decodeResponse(t, resp, http.StatusOK, &page)
			require.Len(t, page.Charts, 2)

			scatter := page.Charts[0]
			require.Equal(t, chart.KindScatter, scatter.Kind)
			var labels []string
			for _, series := range scatter.Series {
				for _, p := range series.Points {
					labels = append(labels, p.Label)
				}
			}
			assert.Len(t, labels, 3)

			// the violin grid ignores the selection
			violin := page.Charts[1]
			require.Equal(t, chart.KindViolin, violin.Kind)

			resp, err = ts.Client().Post(ts.URL+"/api/pages/features/events", "application/json",
				strings.NewReader(`{"control":"color-mode","selection":{"color_mode":"popularity","genres":["pop","rap"],"popularity":{"lower":60,"upper":67}}}`),
			)
			require.NoError(t, err)
			var event server.EventResponse
			decodeResponse(t, resp, http.StatusOK, &event)
			require.Len(t, event.Charts, 1)
			assert.Equal(t, chart.KindScatter, event.Charts[0].Kind)
			require.Len(t, event.Charts[0].Series, 1)
			assert.Len(t, event.Charts[0].Series[0].Points, 3)

			resp, err = ts.Client().Get(ts.URL + "/api/pages/charts")
			require.NoError(t, err)
			decodeResponse(t, resp, http.StatusNotFound, &page)
			assert.Equal(t, view.NotFoundMessage, page.Page.Title)
		})
	})
}

func withDataset(cfg *config.Config, file string) *config.Config {
	clone := *cfg
	clone.Dataset.File = file

	return &clone
}

// writeWorkbook copies a csv dataset into the first sheet of a new workbook.
func writeWorkbook(t *testing.T, source, target string) {
	t.Helper()

	ds, err := os.ReadFile(source)
	require.NoError(t, err)

	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	lines := strings.Split(strings.TrimSpace(string(ds)), "\n")
	for i, line := range lines {
		cells := strings.Split(strings.TrimRight(line, "\r"), ",")
		row := make([]any, 0, len(cells))
		for _, cell := range cells {
			row = append(row, cell)
		}

		axis, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", axis, &row))
	}

	require.NoError(t, f.SaveAs(target))
}

func decodeResponse(t *testing.T, resp *http.Response, status int, target any) {
	t.Helper()
	defer resp.Body.Close()

	require.Equal(t, status, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}

func writeData(t *testing.T, dir, name string, data any) {
	t.Helper()

	buf, err := json.MarshalIndent(data, "", "  ")
	require.NoError(t, err)

	rdr := bytes.NewReader(buf)
	writeResult(t, dir, name, rdr)
}

func writeResult(t *testing.T, dir, name string, rdr io.Reader) {
	t.Helper()

	file, err := os.Create(filepath.Join(dir, name))
	require.NoError(t, err)
	defer file.Close()

	_, err = io.Copy(file, rdr)
	require.NoError(t, err)
}
