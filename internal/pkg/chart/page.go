package chart

import (
	"io"

	"github.com/go-echarts/go-echarts/v2/components"
)

// PageLayout arranges the charts of a [Page].
type PageLayout string

// Supported page layouts.
const (
	PageLayoutFlex   PageLayout = "flex"   // charts wrap on rows
	PageLayoutCenter PageLayout = "center" // one centered chart per row
)

// Page is a dashboard page: a title and the specifications of the charts it shows.
//
// A [Page] knows how to [Page.Render] as a standalone HTML document.
type Page struct {
	Title  string
	Layout PageLayout
	Specs  []Spec
}

// NewPage creates a new page with the given title and charts.
func NewPage(title string, specs ...Spec) *Page {
	return &Page{
		Title:  title,
		Layout: PageLayoutFlex,
		Specs:  specs,
	}
}

// AddSpec adds charts to the page.
func (p *Page) AddSpec(specs ...Spec) {
	p.Specs = append(p.Specs, specs...)
}

// Render writes the page HTML to the given writer.
//
// A violin grid renders as several charts, so the page may hold more charts than specifications.
func (p *Page) Render(w io.Writer) error {
	page := components.NewPage()
	page.SetPageTitle(p.Title)

	switch p.Layout {
	case PageLayoutCenter:
		page.SetLayout(components.PageCenterLayout)
	default:
		page.SetLayout(components.PageFlexLayout)
	}

	for _, s := range p.Specs {
		page.AddCharts(s.Charts()...)
	}

	return page.Render(w)
}
