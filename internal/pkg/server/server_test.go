package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fredbi/trackviz/internal/pkg/chart"
	"github.com/fredbi/trackviz/internal/pkg/config"
	"github.com/fredbi/trackviz/internal/pkg/dataset"
	"github.com/fredbi/trackviz/internal/pkg/derive"
	"github.com/fredbi/trackviz/internal/pkg/model"
	"github.com/fredbi/trackviz/internal/pkg/view"

	"github.com/go-openapi/testify/v2/assert"
	"github.com/go-openapi/testify/v2/require"
)

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	status, body := get(t, ts, "/healthz")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body)
}

func TestDeclarations(t *testing.T) {
	ts := newTestServer(t)

	t.Run("controls", func(t *testing.T) {
		status, body := get(t, ts, "/api/controls")
		require.Equal(t, http.StatusOK, status)

		var controls []view.Control
		require.NoError(t, json.Unmarshal([]byte(body), &controls))
		require.Len(t, controls, 4)
		assert.Equal(t, view.ControlFeature, controls[0].ID)
		assert.Len(t, controls[1].Choices, 6)
	})

	t.Run("pages", func(t *testing.T) {
		status, body := get(t, ts, "/api/pages")
		require.Equal(t, http.StatusOK, status)

		var pages []view.Page
		require.NoError(t, json.Unmarshal([]byte(body), &pages))
		require.Len(t, pages, 3)
		assert.Equal(t, view.PageOverview, pages[0].ID)
	})

	t.Run("dataset", func(t *testing.T) {
		status, body := get(t, ts, "/api/dataset")
		require.Equal(t, http.StatusOK, status)

		var report dataset.Report
		require.NoError(t, json.Unmarshal([]byte(body), &report))
		assert.Equal(t, 12, report.Rows)
		assert.Equal(t, 1, report.InvalidCells)
	})
}

func TestPage(t *testing.T) {
	ts := newTestServer(t)

	t.Run("overview", func(t *testing.T) {
		status, body := get(t, ts, "/api/pages/overview")
		require.Equal(t, http.StatusOK, status)

		var resp PageResponse
		require.NoError(t, json.Unmarshal([]byte(body), &resp))
		assert.Equal(t, view.PageOverview, resp.Page.ID)
		require.Len(t, resp.Charts, 2)
		assert.Equal(t, chart.KindBar, resp.Charts[0].Kind)
		assert.Equal(t, chart.KindRadar, resp.Charts[1].Kind)
		assert.False(t, resp.Charts[0].IsEmpty())
	})

	t.Run("with selection", func(t *testing.T) {
		status, body := get(t, ts, "/api/pages/trends?feature=energy&genres=edm")
		require.Equal(t, http.StatusOK, status)

		var resp PageResponse
		require.NoError(t, json.Unmarshal([]byte(body), &resp))
		assert.Equal(t, config.FieldEnergy, resp.Selection.Feature)
		assert.Equal(t, []string{"edm"}, resp.Selection.Genres)
		require.Len(t, resp.Charts, 2)
		assert.Equal(t, "Energy Evolution Over Time by Genre", resp.Charts[0].Title)
		require.Len(t, resp.Charts[0].Series, 1)
		assert.Equal(t, "EDM", resp.Charts[0].Series[0].Name)
	})

	t.Run("no genre", func(t *testing.T) {
		status, body := get(t, ts, "/api/pages/overview?genres=")
		require.Equal(t, http.StatusOK, status)

		var resp PageResponse
		require.NoError(t, json.Unmarshal([]byte(body), &resp))
		require.Len(t, resp.Charts, 2)
		for _, spec := range resp.Charts {
			assert.True(t, spec.IsEmpty())
		}
	})

	t.Run("unknown page", func(t *testing.T) {
		status, body := get(t, ts, "/api/pages/settings")
		require.Equal(t, http.StatusNotFound, status)

		var resp PageResponse
		require.NoError(t, json.Unmarshal([]byte(body), &resp))
		assert.Equal(t, view.NotFoundMessage, resp.Page.Title)
		assert.Empty(t, resp.Charts)
	})

	t.Run("invalid selection", func(t *testing.T) {
		status, body := get(t, ts, "/api/pages/overview?genres=jazz")
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Contains(t, body, "unknown genre")
	})
}

func TestEvent(t *testing.T) {
	ts := newTestServer(t)

	t.Run("feature change recomputes the line chart only", func(t *testing.T) {
		status, body := post(t, ts, "/api/pages/trends/events", `{"control":"feature","selection":{"feature":"valence"}}`)
		require.Equal(t, http.StatusOK, status)

		var resp EventResponse
		require.NoError(t, json.Unmarshal([]byte(body), &resp))
		require.Len(t, resp.Charts, 1)
		assert.Equal(t, chart.KindLine, resp.Charts[0].Kind)
		assert.Equal(t, config.FieldValence, resp.Selection.Feature)
	})

	t.Run("control without bound chart on the page", func(t *testing.T) {
		status, body := post(t, ts, "/api/pages/overview/events", `{"control":"popularity","selection":{"popularity":{"lower":10,"upper":20}}}`)
		require.Equal(t, http.StatusOK, status)

		var resp EventResponse
		require.NoError(t, json.Unmarshal([]byte(body), &resp))
		assert.Empty(t, resp.Charts)
	})

	t.Run("popularity change on the features page", func(t *testing.T) {
		status, body := post(t, ts, "/api/pages/features/events", `{"control":"popularity","selection":{"popularity":{"lower":60,"upper":67}}}`)
		require.Equal(t, http.StatusOK, status)

		var resp EventResponse
		require.NoError(t, json.Unmarshal([]byte(body), &resp))
		require.Len(t, resp.Charts, 1)
		assert.Equal(t, chart.KindScatter, resp.Charts[0].Kind)
	})

	for _, tt := range []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{name: "unknown page", path: "/api/pages/settings/events", body: `{"control":"genres"}`, status: http.StatusNotFound},
		{name: "unknown control", path: "/api/pages/overview/events", body: `{"control":"volume"}`, status: http.StatusBadRequest},
		{name: "unknown genre", path: "/api/pages/overview/events", body: `{"control":"genres","selection":{"genres":["jazz"]}}`, status: http.StatusBadRequest},
		{name: "malformed body", path: "/api/pages/overview/events", body: `{"control":`, status: http.StatusBadRequest},
		{name: "unknown field", path: "/api/pages/overview/events", body: `{"control":"genres","page":"x"}`, status: http.StatusBadRequest},
	} {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := post(t, ts, tt.path, tt.body)
			assert.Equal(t, tt.status, status)
		})
	}
}

func TestChart(t *testing.T) {
	ts := newTestServer(t)

	status, body := get(t, ts, "/api/charts/scatter?color-mode=popularity")
	require.Equal(t, http.StatusOK, status)

	var spec chart.Spec
	require.NoError(t, json.Unmarshal([]byte(body), &spec))
	assert.Equal(t, chart.KindScatter, spec.Kind)
	require.Len(t, spec.Series, 1)
	assert.NotEmpty(t, spec.Style.ColorScale)

	status, _ = get(t, ts, "/api/charts/pie")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestChartZeroPopularity(t *testing.T) {
	cfg, err := config.LoadDefaults()
	require.NoError(t, err)

	columns := []string{dataset.ColumnTrackName, dataset.ColumnTrackArtist, dataset.ColumnGenre}
	for _, f := range config.AllFieldNames() {
		columns = append(columns, f.String())
	}

	row := model.NewRecord()
	row.TrackName = "Zero"
	row.TrackArtist = "Nobody"
	row.Genre = "pop"
	row.Popularity = 0
	row.SetValue(cfg.Scatter.X, 0.5)
	row.SetValue(cfg.Scatter.Y, 0.5)
	row.SetValue(cfg.Scatter.Size, 0.5)

	ds := dataset.New("zero.csv", columns, []model.Record{row})
	ts := httptest.NewServer(New(derive.New(ds, cfg), chart.New(cfg)).Handler())
	t.Cleanup(ts.Close)

	status, body := get(t, ts, "/api/charts/scatter?color-mode=popularity")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"value":0`, "a zero popularity is part of the color channel")

	var spec chart.Spec
	require.NoError(t, json.Unmarshal([]byte(body), &spec))
	require.Len(t, spec.Series, 1)
	require.Len(t, spec.Series[0].Points, 1)
	assert.Equal(t, "Zero", spec.Series[0].Points[0].Label)
	assert.InDelta(t, 0.0, spec.Series[0].Points[0].Value, 1e-9)
}

func TestPageHTML(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/", "/pages/trends", "/pages/features?color-mode=popularity"} {
		t.Run(path, func(t *testing.T) {
			status, body := get(t, ts, path)
			require.Equal(t, http.StatusOK, status)
			assert.Contains(t, body, "<html")
			assert.Contains(t, body, "echarts")
		})
	}

	t.Run("unknown page", func(t *testing.T) {
		status, body := get(t, ts, "/pages/settings")
		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, view.NotFoundMessage, strings.TrimSpace(body))
	})

	t.Run("unknown route", func(t *testing.T) {
		status, body := get(t, ts, "/settings")
		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, view.NotFoundMessage, strings.TrimSpace(body))
	})
}

func TestListenAndServe(t *testing.T) {
	s := newServer(t, WithListen("127.0.0.1:0"), WithShutdownTimeout(time.Second), WithReadTimeout(time.Second))
	assert.Equal(t, "127.0.0.1:0", s.Addr())
	assert.Equal(t, time.Second, s.readTimeout)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.ListenAndServe(ctx)
	}()

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func newServer(t *testing.T, opts ...Option) *Server {
	t.Helper()

	cfg, err := config.LoadDefaults()
	require.NoError(t, err)

	ds, err := dataset.Load(filepath.Join("..", "dataset", "testdata", "tracks.csv"))
	require.NoError(t, err)

	return New(derive.New(ds, cfg), chart.New(cfg), opts...)
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	ts := httptest.NewServer(newServer(t).Handler())
	t.Cleanup(ts.Close)

	return ts
}

func get(t *testing.T, ts *httptest.Server, path string) (int, string) {
	t.Helper()

	resp, err := ts.Client().Get(ts.URL + path)
	require.NoError(t, err)

	return readResponse(t, resp)
}

func post(t *testing.T, ts *httptest.Server, path, body string) (int, string) {
	t.Helper()

	resp, err := ts.Client().Post(ts.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)

	return readResponse(t, resp)
}

func readResponse(t *testing.T, resp *http.Response) (int, string) {
	t.Helper()
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, string(body)
}
