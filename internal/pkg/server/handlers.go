package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fredbi/trackviz/internal/pkg/chart"
	"github.com/fredbi/trackviz/internal/pkg/model"
	"github.com/fredbi/trackviz/internal/pkg/view"
)

const maxEventSize = 1 << 20

// PageResponse is the JSON body returned for a page.
type PageResponse struct {
	Page      view.Page       `json:"page"`
	Selection model.Selection `json:"selection"`
	Charts    []chart.Spec    `json:"charts"`
}

// EventResponse is the JSON body returned after a control change. It only holds the recomputed charts.
type EventResponse struct {
	Page      view.PageID     `json:"page"`
	Control   view.ControlID  `json:"control"`
	Selection model.Selection `json:"selection"`
	Charts    []chart.Spec    `json:"charts"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleControls(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, view.Controls(s.cfg))
}

func (s *Server) handlePages(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, view.Pages())
}

func (s *Server) handleDataset(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.d.Dataset().Report())
}

// handlePage computes every chart of a page.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	sel, err := view.ParseSelection(r.URL.Query(), s.cfg)
	if err != nil {
		s.writeError(w, err)

		return
	}

	db := s.dashboard()
	specs, err := db.Navigate(view.PageID(chi.URLParam(r, "page")), sel)
	if err != nil {
		s.writeError(w, err)

		return
	}

	status := http.StatusOK
	if !db.Page().Found() {
		status = http.StatusNotFound
	}

	s.writeJSON(w, status, PageResponse{
		Page:      db.Page(),
		Selection: db.Selection(),
		Charts:    specs,
	})
}

// handleEvent recomputes the charts of a page that depend on the changed control.
//
// Fields absent from the posted selection take their default value.
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	page := view.Resolve(view.PageID(chi.URLParam(r, "page")))
	if !page.Found() {
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: view.NotFoundMessage})

		return
	}

	ev := view.Event{Selection: view.DefaultSelection(s.cfg)}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEventSize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&ev); err != nil {
		s.writeError(w, fmt.Errorf("%w: decoding event: %w", view.ErrInvalidSelection, err))

		return
	}

	if !ev.Control.IsValid() {
		s.writeError(w, fmt.Errorf("%w: %q", view.ErrUnknownControl, ev.Control))

		return
	}

	if err := view.Validate(ev.Selection, s.cfg); err != nil {
		s.writeError(w, err)

		return
	}

	db := s.dashboard()
	sel := view.Normalize(ev.Selection, s.cfg)
	specs := make([]chart.Spec, 0, len(page.Charts))

	for _, id := range page.Charts {
		binding, _ := view.GetBinding(id)
		if !binding.DependsOn(ev.Control) {
			continue
		}

		spec, err := db.Compute(id, sel)
		if err != nil {
			s.writeError(w, err)

			return
		}

		specs = append(specs, spec)
	}

	s.writeJSON(w, http.StatusOK, EventResponse{
		Page:      page.ID,
		Control:   ev.Control,
		Selection: sel,
		Charts:    specs,
	})
}

// handleChart computes a single chart, regardless of the page it is displayed on.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	sel, err := view.ParseSelection(r.URL.Query(), s.cfg)
	if err != nil {
		s.writeError(w, err)

		return
	}

	spec, err := s.dashboard().Compute(view.ChartID(chi.URLParam(r, "chart")), sel)
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, spec)
}

// handlePageHTML renders a page as a standalone HTML document. The root path renders the home page.
func (s *Server) handlePageHTML(w http.ResponseWriter, r *http.Request) {
	sel, err := view.ParseSelection(r.URL.Query(), s.cfg)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)

		return
	}

	db := s.dashboard()
	specs, err := db.Navigate(view.PageID(chi.URLParam(r, "page")), sel)
	if err != nil {
		s.l.Error("computing page", slog.String("error", err.Error()))
		http.Error(w, err.Error(), statusOf(err))

		return
	}

	if !db.Page().Found() {
		http.Error(w, view.NotFoundMessage, http.StatusNotFound)

		return
	}

	page := chart.NewPage(s.cfg.Render.Title+" - "+db.Page().Title, specs...)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		s.l.Error("rendering page", slog.String("error", err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.l.Error("encoding response", slog.String("error", err.Error()))
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		s.l.Error("request failed", slog.String("error", err.Error()))
	}

	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, view.ErrInvalidSelection), errors.Is(err, view.ErrUnknownControl):
		return http.StatusBadRequest
	case errors.Is(err, view.ErrUnknownChart):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
