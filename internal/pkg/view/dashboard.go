// Package view wires the dashboard controls to the charts they feed.
//
// Each chart declares the controls it depends on. When a control changes, only the displayed charts
// bound to that control are recomputed.
package view

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/fredbi/trackviz/internal/pkg/chart"
	"github.com/fredbi/trackviz/internal/pkg/config"
	"github.com/fredbi/trackviz/internal/pkg/derive"
	"github.com/fredbi/trackviz/internal/pkg/model"
)

var (
	// ErrUnknownChart is returned for a chart identifier that is not declared.
	ErrUnknownChart = errors.New("unknown chart")

	// ErrUnknownControl is returned for an event on a control that is not declared.
	ErrUnknownControl = errors.New("unknown control")
)

// State is the lifecycle state of a chart.
type State string

// Chart states.
const (
	StateAbsent    State = "absent"    // not on the current page, not computed
	StateDisplayed State = "displayed" // computed with the latest applicable selection
)

// Event reports a change of control value, together with the resulting selection.
type Event struct {
	Control   ControlID       `json:"control"`
	Selection model.Selection `json:"selection"`
}

// Dashboard dispatches navigation and control events to the charts.
//
// A [Dashboard] holds the state of one session and is not safe for concurrent use. The derivations
// it runs only read the shared dataset.
type Dashboard struct {
	d   *derive.Deriver
	b   *chart.Builder
	cfg *config.Config
	l   *slog.Logger

	page  Page
	sel   model.Selection
	specs map[ChartID]chart.Spec
}

// NewDashboard builds a [Dashboard] with no page displayed.
func NewDashboard(d *derive.Deriver, b *chart.Builder) *Dashboard {
	cfg := d.Config()

	return &Dashboard{
		d:     d,
		b:     b,
		cfg:   cfg,
		l:     slog.Default().With(slog.String("module", "view")),
		page:  notFound,
		sel:   DefaultSelection(cfg),
		specs: make(map[ChartID]chart.Spec),
	}
}

// Page returns the current page.
func (db *Dashboard) Page() Page {
	return db.page
}

// Selection returns the current selection.
func (db *Dashboard) Selection() model.Selection {
	return db.sel.Clone()
}

// Navigate displays a page: every chart of the page is computed with the selection, charts of the
// previous page are dropped.
//
// An unknown page displays the not found page, with no chart.
func (db *Dashboard) Navigate(id PageID, sel model.Selection) ([]chart.Spec, error) {
	page := Resolve(id)
	sel = Normalize(sel, db.cfg)

	if !page.Found() {
		db.l.Warn("page not found", slog.String("page", id.String()))
	}

	specs := make(map[ChartID]chart.Spec, len(page.Charts))
	result := make([]chart.Spec, 0, len(page.Charts))

	for _, chartID := range page.Charts {
		spec, err := db.compute(chartID, sel)
		if err != nil {
			return nil, err
		}

		specs[chartID] = spec
		result = append(result, spec)
	}

	db.page = page
	db.sel = sel
	db.specs = specs

	db.l.Debug("page displayed", slog.String("page", page.ID.String()), slog.Int("charts", len(result)))

	return result, nil
}

// Apply handles a control change. Only the displayed charts bound to the control are recomputed and
// returned. Other charts keep their last specification.
func (db *Dashboard) Apply(ev Event) ([]chart.Spec, error) {
	if !ev.Control.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownControl, ev.Control)
	}

	sel := Normalize(ev.Selection, db.cfg)
	updated := make(map[ChartID]chart.Spec)
	result := make([]chart.Spec, 0, len(db.page.Charts))

	for _, id := range db.page.Charts {
		binding, _ := GetBinding(id)
		if !binding.DependsOn(ev.Control) {
			continue
		}

		spec, err := db.compute(id, sel)
		if err != nil {
			return nil, err
		}

		updated[id] = spec
		result = append(result, spec)
	}

	for id, spec := range updated {
		db.specs[id] = spec
	}
	db.sel = sel

	db.l.Debug("control applied", slog.String("control", ev.Control.String()), slog.Int("recomputed", len(result)))

	return result, nil
}

// Displayed lists the charts of the current page.
func (db *Dashboard) Displayed() []ChartID {
	displayed := make([]ChartID, 0, len(db.page.Charts))
	for _, id := range db.page.Charts {
		if _, ok := db.specs[id]; ok {
			displayed = append(displayed, id)
		}
	}

	return displayed
}

// Spec returns the last specification of a displayed chart.
func (db *Dashboard) Spec(id ChartID) (chart.Spec, bool) {
	spec, ok := db.specs[id]

	return spec, ok
}

// Specs returns the specifications of the displayed charts, in page order.
func (db *Dashboard) Specs() []chart.Spec {
	specs := make([]chart.Spec, 0, len(db.specs))
	for _, id := range db.Displayed() {
		specs = append(specs, db.specs[id])
	}

	return specs
}

// State tells if a chart is displayed.
func (db *Dashboard) State(id ChartID) State {
	if _, ok := db.specs[id]; ok {
		return StateDisplayed
	}

	return StateAbsent
}

// Compute builds the specification of any chart for a selection, regardless of the current page.
func (db *Dashboard) Compute(id ChartID, sel model.Selection) (chart.Spec, error) {
	return db.compute(id, Normalize(sel, db.cfg))
}

func (db *Dashboard) compute(id ChartID, sel model.Selection) (chart.Spec, error) {
	binding, ok := GetBinding(id)
	if !ok {
		return chart.Spec{}, fmt.Errorf("%w: %q", ErrUnknownChart, id)
	}

	spec, err := binding.compute(db.d, db.b, sel)
	if err != nil {
		return chart.Spec{}, fmt.Errorf("computing chart %q: %w", id, err)
	}

	return spec, nil
}
