package pages

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcpdir/web/internal/catalog"
	"github.com/mcpdir/web/internal/seo"
	"github.com/mcpdir/web/internal/site"
	"github.com/mcpdir/web/internal/ssr"
	"github.com/mcpdir/web/internal/testutil"
)

func testSettings() site.Settings {
	return site.Settings{
		Name:         "Test MCP",
		BaseURL:      "https://mcp.example",
		Description:  "A directory of MCP servers.",
		Keywords:     []string{"MCP"},
		DefaultImage: "/og.png",
		PageSize:     2,
	}
}

func newTestRenderer(t *testing.T, repo catalog.Repository) *Renderer {
	t.Helper()
	if repo == nil {
		repo = catalog.NewStaticRepository(catalog.Fixtures())
	}
	r, err := New(repo, testSettings())
	require.NoError(t, err)
	return r
}

func render(t *testing.T, r *Renderer, path string) ssr.RenderResult {
	t.Helper()
	res, err := r.Render(context.Background(), path)
	require.NoError(t, err)
	return res
}

func TestRenderHome(t *testing.T) {
	res := render(t, newTestRenderer(t, nil), "/")

	doc := testutil.ParseHTML(t, res.Markup)
	assert.Equal(t, "Test MCP", doc.Find("h1").First().Text())
	assert.Equal(t, 3, doc.Find(".server-card").Length())
	assert.Contains(t, testutil.Texts(doc, ".category-card a"), "File Systems")

	require.NotNil(t, res.SEO)
	assert.Equal(t, "Test MCP", res.SEO.Title)
	assert.Equal(t, "https://mcp.example/", res.SEO.CanonicalURL)
	assert.Equal(t, "https://mcp.example/og.png", res.SEO.OGImage)
	assert.NotNil(t, res.SEO.StructuredData)
}

func TestRenderServersPaginates(t *testing.T) {
	r := newTestRenderer(t, nil)

	first := render(t, r, "/servers?sort=name")
	doc := testutil.ParseHTML(t, first.Markup)
	assert.Equal(t, []string{"Filesystem", "GitHub"}, testutil.Texts(doc, ".server-card h3"))
	next, ok := doc.Find(`a[rel="next"]`).Attr("href")
	require.True(t, ok)
	assert.Equal(t, "/servers?page=2&sort=name", next)
	assert.Equal(t, "https://mcp.example/servers", first.SEO.CanonicalURL)
	selected, _ := doc.Find("option[selected]").Attr("value")
	assert.Equal(t, "name", selected)

	second := render(t, r, "/servers?page=2")
	doc = testutil.ParseHTML(t, second.Markup)
	assert.Equal(t, 1, doc.Find(".server-card").Length())
	prev, ok := doc.Find(`a[rel="prev"]`).Attr("href")
	require.True(t, ok)
	assert.Equal(t, "/servers", prev)
	assert.Equal(t, "MCP servers, page 2 | Test MCP", second.SEO.Title)
	assert.Equal(t, "https://mcp.example/servers?page=2", second.SEO.CanonicalURL)
}

func TestRenderServersTrailingSlash(t *testing.T) {
	res := render(t, newTestRenderer(t, nil), "/servers/")
	require.NotNil(t, res.SEO)
	assert.Equal(t, "https://mcp.example/servers", res.SEO.CanonicalURL)
}

func TestRenderServerDetail(t *testing.T) {
	res := render(t, newTestRenderer(t, nil), "/servers/github")

	doc := testutil.ParseHTML(t, res.Markup)
	assert.Equal(t, "GitHub", doc.Find("h1").First().Text())
	assert.Equal(t, "issues", doc.Find(".readme strong").Text())
	assert.Equal(t, []string{"Developer Tools"}, testutil.Texts(doc, ".server-detail__categories a"))
	rel, _ := doc.Find(".server-detail__repo").Attr("rel")
	assert.Contains(t, rel, "nofollow")

	require.NotNil(t, res.SEO)
	assert.Equal(t, "GitHub MCP server | Test MCP", res.SEO.Title)
	assert.Equal(t, "git, github, code review, MCP", res.SEO.Keywords)
	assert.Equal(t, "https://mcp.example/servers/github", res.SEO.OGURL)

	ld, err := seo.MarshalJSONLD(res.SEO.StructuredData)
	require.NoError(t, err)
	assert.Contains(t, ld, `"SoftwareApplication"`)
	assert.Contains(t, ld, `"codeRepository": "https://github.com/github/github-mcp-server"`)
}

func TestRenderServerReadmeTables(t *testing.T) {
	res := render(t, newTestRenderer(t, nil), "/servers/postgres")
	doc := testutil.ParseHTML(t, res.Markup)
	assert.Equal(t, 1, doc.Find(".readme table").Length())
}

func TestRenderServerReadmeIsSanitized(t *testing.T) {
	repo := catalog.NewStaticRepository([]catalog.Server{{
		Slug:   "evil",
		Name:   "Evil <b>",
		Readme: "# Hi\n\n<script>alert(1)</script>\n\n<a href=\"javascript:alert(1)\">x</a>\n",
	}}, nil)
	res := render(t, newTestRenderer(t, repo), "/servers/evil")

	doc := testutil.ParseHTML(t, res.Markup)
	assert.Equal(t, 0, doc.Find(".readme script").Length())
	_, hasHref := doc.Find(".readme a").Attr("href")
	assert.False(t, hasHref)
	assert.Equal(t, "Evil <b>", doc.Find("h1").First().Text())
	assert.Equal(t, "Evil <b> MCP server | Test MCP", res.SEO.Title)
}

func TestRenderCategories(t *testing.T) {
	r := newTestRenderer(t, nil)

	list := render(t, r, "/categories")
	doc := testutil.ParseHTML(t, list.Markup)
	assert.Equal(t, []string{"Databases", "Developer Tools", "File Systems"}, testutil.Texts(doc, ".category-card a"))
	assert.Equal(t, "Categories | Test MCP", list.SEO.Title)

	detail := render(t, r, "/categories/developer-tools")
	doc = testutil.ParseHTML(t, detail.Markup)
	assert.Equal(t, "Developer Tools", doc.Find("h1").Text())
	assert.Equal(t, 2, doc.Find(".server-card").Length())
	assert.Equal(t, "https://mcp.example/categories/developer-tools", detail.SEO.CanonicalURL)

	fallbackName := render(t, r, "/categories/file-systems")
	assert.Equal(t, "File Systems MCP servers | Test MCP", fallbackName.SEO.Title)
}

func TestRenderNotFound(t *testing.T) {
	r := newTestRenderer(t, nil)

	for _, path := range []string{"/nope", "/servers/missing", "/categories/missing", "/servers/github/extra"} {
		t.Run(path, func(t *testing.T) {
			res := render(t, r, path)
			assert.Nil(t, res.SEO)
			doc := testutil.ParseHTML(t, res.Markup)
			assert.Equal(t, "Page not found", doc.Find("h1").Text())
		})
	}
}

type brokenRepo struct {
	catalog.Repository
}

func (brokenRepo) GetServer(context.Context, string) (catalog.Server, error) {
	return catalog.Server{}, errors.New("pq: connection refused")
}

func TestRenderRepositoryFailureIsError(t *testing.T) {
	r := newTestRenderer(t, brokenRepo{Repository: catalog.NewStaticRepository(catalog.Fixtures())})

	_, err := r.Render(context.Background(), "/servers/github")
	require.Error(t, err)
	assert.NotErrorIs(t, err, catalog.ErrNotFound)
}

func TestNewRequiresRepository(t *testing.T) {
	_, err := New(nil, testSettings())
	assert.Error(t, err)
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, "short text", summarize("  short \n text ", 160))
	long := "alpha beta gamma delta epsilon zeta eta theta"
	got := summarize(long, 20)
	assert.LessOrEqual(t, len([]rune(got)), 20)
	assert.Equal(t, "alpha beta gamma…", got)
}
