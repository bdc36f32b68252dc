package pages

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mcpdir/web/internal/catalog"
	"github.com/mcpdir/web/internal/seo"
)

const descriptionLimit = 160

func (r *Renderer) pageTitle(title string) string {
	if title == "" {
		return r.site.Name
	}
	return title + " | " + r.site.Name
}

// newSEO fills the shared fields. Open Graph values mirror title, description and canonical URL.
func (r *Renderer) newSEO(title, description, canonicalPath string, keywords ...string) *seo.Data {
	canonical := r.site.AbsoluteURL(canonicalPath)
	description = summarize(description, descriptionLimit)
	d := &seo.Data{
		Title:         r.pageTitle(title),
		Description:   description,
		Keywords:      r.site.KeywordString(keywords...),
		OGTitle:       r.pageTitle(title),
		OGDescription: description,
		OGURL:         canonical,
		CanonicalURL:  canonical,
	}
	if r.site.DefaultImage != "" {
		d.OGImage = r.site.AbsoluteURL(r.site.DefaultImage)
	}
	return d
}

func (r *Renderer) homeSEO() *seo.Data {
	d := r.newSEO("", r.site.Description, "/")
	d.Title = r.site.Name
	d.OGTitle = r.site.Name
	d.StructuredData = []any{
		seo.WebSite(r.site.Name, r.site.AbsoluteURL("/"), r.site.AbsoluteURL("/servers?q=")),
		seo.Organization(r.site.Name, r.site.AbsoluteURL("/"), r.ogLogo()),
	}
	return d
}

func (r *Renderer) serversSEO(req pageRequest, list catalog.ServerList, page int) *seo.Data {
	title := "MCP servers"
	if page > 1 {
		title = fmt.Sprintf("MCP servers, page %d", page)
	}
	description := fmt.Sprintf("Browse %d Model Context Protocol servers. %s", list.Total, r.site.Description)
	d := r.newSEO(title, description, pageHref(pageRequest{path: req.path}, page))
	d.StructuredData = []any{
		seo.ItemList(r.serverEntries(list.Servers)),
		seo.BreadcrumbList([]seo.BreadcrumbItem{
			{Name: "Home", Item: r.site.AbsoluteURL("/")},
			{Name: "Servers", Item: r.site.AbsoluteURL("/servers")},
		}),
	}
	return d
}

func (r *Renderer) serverSEO(s catalog.Server) *seo.Data {
	path := "/servers/" + s.Slug
	description := s.Description
	if description == "" {
		description = fmt.Sprintf("%s MCP server.", s.Name)
	}
	d := r.newSEO(s.Name+" MCP server", description, path, s.Tags...)

	app := seo.Application{
		Name:          s.Name,
		Description:   s.Description,
		URL:           r.site.AbsoluteURL(path),
		CodeURL:       s.RepositoryURL,
		Author:        s.Author,
		Keywords:      s.Tags,
		ApplicationID: s.Slug,
	}
	if !s.UpdatedAt.IsZero() {
		app.DateModified = s.UpdatedAt.UTC().Format("2006-01-02")
	}
	d.StructuredData = []any{
		seo.SoftwareApplication(app),
		seo.BreadcrumbList([]seo.BreadcrumbItem{
			{Name: "Home", Item: r.site.AbsoluteURL("/")},
			{Name: "Servers", Item: r.site.AbsoluteURL("/servers")},
			{Name: s.Name, Item: r.site.AbsoluteURL(path)},
		}),
	}
	return d
}

func (r *Renderer) categoriesSEO(cats []categoryView) *seo.Data {
	names := make([]string, 0, len(cats))
	entries := make([]seo.ListEntry, 0, len(cats))
	for _, c := range cats {
		names = append(names, c.Name)
		entries = append(entries, seo.ListEntry{Name: c.Name, URL: r.site.AbsoluteURL("/categories/" + c.Slug)})
	}
	description := "MCP server categories: " + strings.Join(names, ", ") + "."
	d := r.newSEO("Categories", description, "/categories", names...)
	d.StructuredData = []any{
		seo.CollectionPage("Categories", description, r.site.AbsoluteURL("/categories"), entries),
		seo.BreadcrumbList([]seo.BreadcrumbItem{
			{Name: "Home", Item: r.site.AbsoluteURL("/")},
			{Name: "Categories", Item: r.site.AbsoluteURL("/categories")},
		}),
	}
	return d
}

func (r *Renderer) categorySEO(req pageRequest, c categoryView, list catalog.ServerList, page int) *seo.Data {
	title := c.Name + " MCP servers"
	if page > 1 {
		title = fmt.Sprintf("%s, page %d", title, page)
	}
	description := c.Description
	if description == "" {
		description = fmt.Sprintf("%d MCP servers in %s.", list.Total, c.Name)
	}
	d := r.newSEO(title, description, pageHref(pageRequest{path: req.path}, page), c.Name)
	categoryURL := r.site.AbsoluteURL("/categories/" + c.Slug)
	d.StructuredData = []any{
		seo.CollectionPage(c.Name, c.Description, categoryURL, r.serverEntries(list.Servers)),
		seo.BreadcrumbList([]seo.BreadcrumbItem{
			{Name: "Home", Item: r.site.AbsoluteURL("/")},
			{Name: "Categories", Item: r.site.AbsoluteURL("/categories")},
			{Name: c.Name, Item: categoryURL},
		}),
	}
	return d
}

func (r *Renderer) serverEntries(servers []catalog.Server) []seo.ListEntry {
	out := make([]seo.ListEntry, 0, len(servers))
	for _, s := range servers {
		out = append(out, seo.ListEntry{Name: s.Name, URL: r.site.AbsoluteURL("/servers/" + s.Slug)})
	}
	return out
}

func (r *Renderer) ogLogo() string {
	if r.site.DefaultImage == "" {
		return ""
	}
	return r.site.AbsoluteURL(r.site.DefaultImage)
}

// summarize trims s to at most limit runes on a word boundary, adding an ellipsis when cut.
func summarize(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	cut := string(runes[:limit-1])
	if i := strings.LastIndex(cut, " "); i > limit/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:") + "…"
}
