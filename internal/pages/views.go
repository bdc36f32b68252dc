package pages

import (
	"html/template"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/mcpdir/web/internal/catalog"
)

type crumb struct {
	Label string
	Href  string
}

type categoryView struct {
	Slug        string
	Name        string
	Description string
	ServerCount int
}

type homeView struct {
	SiteName     string
	Description  string
	Servers      []catalog.Server
	TotalServers int
	Categories   []categoryView
}

type sortOption struct {
	Value    string
	Label    string
	Selected bool
}

type pagination struct {
	Page     int
	Pages    int
	PrevHref string
	NextHref string
}

type listingView struct {
	Heading     string
	Description string
	Breadcrumbs []crumb
	Query       string
	SortOptions []sortOption
	Total       int
	Servers     []catalog.Server
	Pagination  pagination
}

type serverView struct {
	Server      catalog.Server
	Readme      template.HTML
	Categories  []categoryView
	Breadcrumbs []crumb
	Updated     string
	UpdatedISO  string
}

type categoriesView struct {
	Categories  []categoryView
	Breadcrumbs []crumb
}

var sortLabels = []struct {
	order catalog.SortOrder
	label string
}{
	{catalog.SortPopular, "Most popular"},
	{catalog.SortRecent, "Recently updated"},
	{catalog.SortName, "Name"},
}

// listOptions reads q, sort and page from the query string.
func (r *Renderer) listOptions(q url.Values) (catalog.ListOptions, int) {
	page, err := strconv.Atoi(q.Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	size := r.site.PageSize
	if size <= 0 {
		size = 24
	}
	return catalog.ListOptions{
		Query:  strings.TrimSpace(q.Get("q")),
		Sort:   catalog.ParseSortOrder(q.Get("sort")),
		Limit:  size,
		Offset: (page - 1) * size,
	}, page
}

func (r *Renderer) listingView(req pageRequest, list catalog.ServerList, opts catalog.ListOptions, page int) listingView {
	view := listingView{
		Query:   opts.Query,
		Total:   list.Total,
		Servers: list.Servers,
	}
	for _, s := range sortLabels {
		view.SortOptions = append(view.SortOptions, sortOption{
			Value:    string(s.order),
			Label:    s.label,
			Selected: s.order == opts.Sort,
		})
	}

	pages := 1
	if opts.Limit > 0 && list.Total > 0 {
		pages = (list.Total + opts.Limit - 1) / opts.Limit
	}
	view.Pagination = pagination{Page: page, Pages: pages}
	if page > 1 {
		view.Pagination.PrevHref = pageHref(req, page-1)
	}
	if page < pages {
		view.Pagination.NextHref = pageHref(req, page+1)
	}
	return view
}

// pageHref keeps the current filters and swaps the page number. Page 1 drops the parameter.
func pageHref(req pageRequest, page int) string {
	q := url.Values{}
	for k, v := range req.query {
		q[k] = append([]string(nil), v...)
	}
	if page <= 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(page))
	}
	if len(q) == 0 {
		return req.path
	}
	return req.path + "?" + q.Encode()
}

func (r *Renderer) categoryViews(cats []catalog.Category) []categoryView {
	out := make([]categoryView, 0, len(cats))
	for _, c := range cats {
		out = append(out, r.categoryView(c))
	}
	return out
}

func (r *Renderer) categoryView(c catalog.Category) categoryView {
	return categoryView{
		Slug:        c.Slug,
		Name:        categoryName(c),
		Description: c.Description,
		ServerCount: c.ServerCount,
	}
}

// categoryName falls back to a title-cased slug when the category has no display name.
func categoryName(c catalog.Category) string {
	if name := strings.TrimSpace(c.Name); name != "" {
		return name
	}
	words := strings.ReplaceAll(c.Slug, "-", " ")
	return cases.Title(language.English).String(words)
}
