package view

import "slices"

// PageID identifies a page of the dashboard.
type PageID string

// Dashboard pages.
const (
	PageOverview PageID = "overview"
	PageTrends   PageID = "trends"
	PageFeatures PageID = "features"
	PageNotFound PageID = "not-found"
)

func (p PageID) String() string {
	return string(p)
}

// NotFoundMessage is the fixed content of the page displayed for unknown page identifiers.
const NotFoundMessage = "404: page not found"

// Page declares the charts and controls shown together.
type Page struct {
	ID       PageID      `json:"id"`
	Title    string      `json:"title"`
	Charts   []ChartID   `json:"charts"`
	Controls []ControlID `json:"controls"`
}

// Found tells if the page is a known page.
func (p Page) Found() bool {
	return p.ID != PageNotFound
}

// Shows tells if a chart is on the page.
func (p Page) Shows(id ChartID) bool {
	return slices.Contains(p.Charts, id)
}

var (
	pages = []Page{
		{
			ID:       PageOverview,
			Title:    "Genre Overview",
			Charts:   []ChartID{ChartBar, ChartRadar},
			Controls: []ControlID{ControlGenres},
		},
		{
			ID:       PageTrends,
			Title:    "Trends Over Time",
			Charts:   []ChartID{ChartLine, ChartArea},
			Controls: []ControlID{ControlFeature, ControlGenres},
		},
		{
			ID:       PageFeatures,
			Title:    "Audio Features",
			Charts:   []ChartID{ChartScatter, ChartViolin},
			Controls: []ControlID{ControlGenres, ControlPopularity, ControlColorMode},
		},
	}

	notFound = Page{
		ID:       PageNotFound,
		Title:    NotFoundMessage,
		Charts:   []ChartID{},
		Controls: []ControlID{},
	}
)

// Pages returns the declared pages. The first page is the home page.
func Pages() []Page {
	return slices.Clone(pages)
}

// Resolve returns the page with this identifier, or the not found page.
func Resolve(id PageID) Page {
	if id == "" {
		return pages[0]
	}

	i := slices.IndexFunc(pages, func(p Page) bool { return p.ID == id })
	if i < 0 {
		return notFound
	}

	return pages[i]
}
