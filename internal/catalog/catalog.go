// Package catalog provides read access to the MCP server directory.
package catalog

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrNotFound is returned when a server or category slug does not exist.
var ErrNotFound = errors.New("catalog: not found")

// Server is a directory entry for one MCP server.
type Server struct {
	Slug          string
	Name          string
	Description   string
	Readme        string
	RepositoryURL string
	Author        string
	Stars         int
	VoteScore     int
	Tags          []string
	Categories    []string
	UpdatedAt     time.Time
}

// Category groups servers by purpose.
type Category struct {
	Slug        string
	Name        string
	Description string
	ServerCount int
}

// SortOrder selects the ordering of server listings.
type SortOrder string

const (
	SortPopular SortOrder = "popular"
	SortRecent  SortOrder = "recent"
	SortName    SortOrder = "name"
)

// ParseSortOrder maps a query value onto a SortOrder, defaulting to SortPopular.
func ParseSortOrder(v string) SortOrder {
	switch SortOrder(strings.ToLower(strings.TrimSpace(v))) {
	case SortRecent:
		return SortRecent
	case SortName:
		return SortName
	default:
		return SortPopular
	}
}

// ListOptions filters and paginates server listings.
type ListOptions struct {
	Query  string
	Sort   SortOrder
	Limit  int
	Offset int
}

func (o ListOptions) normalized() ListOptions {
	o.Query = strings.TrimSpace(o.Query)
	o.Sort = ParseSortOrder(string(o.Sort))
	if o.Limit < 0 {
		o.Limit = 0
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}

// ServerList is one page of servers plus the total number of matches.
type ServerList struct {
	Servers []Server
	Total   int
}

// Repository is the read-only data access surface used by the page renderer. Implementations
// must be safe for concurrent use; returned values must be treated as read-only.
type Repository interface {
	ListServers(ctx context.Context, opts ListOptions) (ServerList, error)
	GetServer(ctx context.Context, slug string) (Server, error)
	ListCategories(ctx context.Context) ([]Category, error)
	GetCategory(ctx context.Context, slug string) (Category, error)
	ServersByCategory(ctx context.Context, slug string, opts ListOptions) (ServerList, error)
	Ping(ctx context.Context) error
}
