package catalog

import (
	"context"
	"sort"
	"strings"
	"time"
)

// StaticRepository serves an in-memory catalog. It backs local previews without a database.
type StaticRepository struct {
	servers    []Server
	categories []Category
}

var _ Repository = (*StaticRepository)(nil)

// NewStaticRepository copies servers and categories. Category server counts are derived from
// the servers' category slugs.
func NewStaticRepository(servers []Server, categories []Category) *StaticRepository {
	counts := make(map[string]int)
	copied := make([]Server, len(servers))
	for i, s := range servers {
		s.Tags = append([]string(nil), s.Tags...)
		s.Categories = append([]string(nil), s.Categories...)
		copied[i] = s
		for _, slug := range s.Categories {
			counts[slug]++
		}
	}
	cats := make([]Category, len(categories))
	for i, c := range categories {
		c.ServerCount = counts[c.Slug]
		cats[i] = c
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i].Slug < cats[j].Slug })
	return &StaticRepository{servers: copied, categories: cats}
}

func (r *StaticRepository) ListServers(_ context.Context, opts ListOptions) (ServerList, error) {
	return r.list(opts, func(Server) bool { return true }), nil
}

func (r *StaticRepository) GetServer(_ context.Context, slug string) (Server, error) {
	slug = strings.TrimSpace(slug)
	for _, s := range r.servers {
		if s.Slug == slug {
			return s, nil
		}
	}
	return Server{}, ErrNotFound
}

func (r *StaticRepository) ListCategories(context.Context) ([]Category, error) {
	return append([]Category(nil), r.categories...), nil
}

func (r *StaticRepository) GetCategory(_ context.Context, slug string) (Category, error) {
	slug = strings.TrimSpace(slug)
	for _, c := range r.categories {
		if c.Slug == slug {
			return c, nil
		}
	}
	return Category{}, ErrNotFound
}

func (r *StaticRepository) ServersByCategory(ctx context.Context, slug string, opts ListOptions) (ServerList, error) {
	if _, err := r.GetCategory(ctx, slug); err != nil {
		return ServerList{}, err
	}
	slug = strings.TrimSpace(slug)
	return r.list(opts, func(s Server) bool {
		for _, c := range s.Categories {
			if c == slug {
				return true
			}
		}
		return false
	}), nil
}

func (r *StaticRepository) Ping(context.Context) error { return nil }

func (r *StaticRepository) list(opts ListOptions, keep func(Server) bool) ServerList {
	opts = opts.normalized()
	query := strings.ToLower(opts.Query)

	matched := make([]Server, 0, len(r.servers))
	for _, s := range r.servers {
		if !keep(s) {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(s.Name), query) && !strings.Contains(strings.ToLower(s.Description), query) {
			continue
		}
		matched = append(matched, s)
	}
	sortServers(matched, opts.Sort)

	total := len(matched)
	if opts.Offset >= len(matched) {
		matched = matched[:0]
	} else {
		matched = matched[opts.Offset:]
	}
	if opts.Limit > 0 && len(matched) > opts.Limit {
		matched = matched[:opts.Limit]
	}
	return ServerList{Servers: matched, Total: total}
}

func sortServers(servers []Server, order SortOrder) {
	sort.SliceStable(servers, func(i, j int) bool {
		a, b := servers[i], servers[j]
		switch order {
		case SortRecent:
			if !a.UpdatedAt.Equal(b.UpdatedAt) {
				return a.UpdatedAt.After(b.UpdatedAt)
			}
		case SortName:
			if a.Name != b.Name {
				return a.Name < b.Name
			}
		default:
			if a.VoteScore != b.VoteScore {
				return a.VoteScore > b.VoteScore
			}
			if a.Stars != b.Stars {
				return a.Stars > b.Stars
			}
		}
		return a.Slug < b.Slug
	})
}

// Fixtures returns a small sample catalog for local previews.
func Fixtures() ([]Server, []Category) {
	updated := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	categories := []Category{
		{Slug: "developer-tools", Name: "Developer Tools", Description: "Source control, CI and code intelligence."},
		{Slug: "databases", Name: "Databases", Description: "Query and manage data stores."},
		{Slug: "file-systems", Description: "Read and write local or remote files."},
	}
	servers := []Server{
		{
			Slug:          "github",
			Name:          "GitHub",
			Description:   "Repository management, issues and pull requests through the GitHub API.",
			Readme:        "# GitHub MCP server\n\nExposes **issues**, pull requests and code search as MCP tools.\n",
			RepositoryURL: "https://github.com/github/github-mcp-server",
			Author:        "GitHub",
			Stars:         18000,
			VoteScore:     420,
			Tags:          []string{"git", "github", "code review"},
			Categories:    []string{"developer-tools"},
			UpdatedAt:     updated,
		},
		{
			Slug:          "postgres",
			Name:          "PostgreSQL",
			Description:   "Read-only SQL access to Postgres databases with schema inspection.",
			Readme:        "# PostgreSQL\n\n| Tool | Purpose |\n|---|---|\n| query | run read-only SQL |\n",
			RepositoryURL: "https://github.com/modelcontextprotocol/servers",
			Author:        "Anthropic",
			Stars:         9000,
			VoteScore:     310,
			Tags:          []string{"sql", "postgres"},
			Categories:    []string{"databases"},
			UpdatedAt:     updated.AddDate(0, 1, 0),
		},
		{
			Slug:          "filesystem",
			Name:          "Filesystem",
			Description:   "Secure file operations with configurable access controls.",
			Readme:        "# Filesystem\n\nRead, write and search files inside allowed directories.\n",
			RepositoryURL: "https://github.com/modelcontextprotocol/servers",
			Author:        "Anthropic",
			Stars:         9000,
			VoteScore:     150,
			Tags:          []string{"files"},
			Categories:    []string{"file-systems", "developer-tools"},
			UpdatedAt:     updated.AddDate(0, 0, 10),
		},
	}
	return servers, categories
}
