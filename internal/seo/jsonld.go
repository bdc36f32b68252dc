package seo

const schemaContext = "https://schema.org"

// Organization returns a minimal Organization schema.
func Organization(name, url, logoURL string) map[string]any {
	m := map[string]any{
		"@context": schemaContext,
		"@type":    "Organization",
		"name":     name,
	}
	if url != "" {
		m["url"] = url
	}
	if logoURL != "" {
		m["logo"] = logoURL
	}
	return m
}

// WebSite returns a WebSite schema with an optional SearchAction.
func WebSite(name, url, searchActionURL string) map[string]any {
	m := map[string]any{
		"@context": schemaContext,
		"@type":    "WebSite",
		"name":     name,
	}
	if url != "" {
		m["url"] = url
	}
	if searchActionURL != "" {
		m["potentialAction"] = map[string]any{
			"@type":       "SearchAction",
			"target":      searchActionURL + "{search_term_string}",
			"query-input": "required name=search_term_string",
		}
	}
	return m
}

// BreadcrumbItem maps name and absolute item URL.
type BreadcrumbItem struct {
	Name string
	Item string
}

// BreadcrumbList builds a schema.org BreadcrumbList.
func BreadcrumbList(items []BreadcrumbItem) map[string]any {
	el := make([]map[string]any, 0, len(items))
	for i, it := range items {
		el = append(el, map[string]any{
			"@type":    "ListItem",
			"position": i + 1,
			"name":     it.Name,
			"item":     it.Item,
		})
	}
	return map[string]any{
		"@context":        schemaContext,
		"@type":           "BreadcrumbList",
		"itemListElement": el,
	}
}

// Application describes an MCP server entry for the SoftwareApplication schema.
type Application struct {
	Name          string
	Description   string
	URL           string
	CodeURL       string
	Author        string
	Keywords      []string
	DateModified  string
	RatingValue   float64
	RatingCount   int
	OperatingSys  string
	ApplicationID string
}

// SoftwareApplication returns the schema for a single catalog entry.
func SoftwareApplication(app Application) map[string]any {
	m := map[string]any{
		"@context":            schemaContext,
		"@type":               "SoftwareApplication",
		"name":                app.Name,
		"applicationCategory": "DeveloperApplication",
	}
	if app.Description != "" {
		m["description"] = app.Description
	}
	if app.URL != "" {
		m["url"] = app.URL
	}
	if app.CodeURL != "" {
		m["codeRepository"] = app.CodeURL
	}
	if app.Author != "" {
		m["author"] = map[string]any{"@type": "Person", "name": app.Author}
	}
	if len(app.Keywords) > 0 {
		m["keywords"] = app.Keywords
	}
	if app.DateModified != "" {
		m["dateModified"] = app.DateModified
	}
	if app.OperatingSys != "" {
		m["operatingSystem"] = app.OperatingSys
	}
	if app.ApplicationID != "" {
		m["identifier"] = app.ApplicationID
	}
	if app.RatingCount > 0 {
		m["aggregateRating"] = map[string]any{
			"@type":       "AggregateRating",
			"ratingValue": app.RatingValue,
			"ratingCount": app.RatingCount,
		}
	}
	return m
}

// ListEntry is one element of an ItemList.
type ListEntry struct {
	Name string
	URL  string
}

// ItemList returns an ItemList schema for listing pages.
func ItemList(entries []ListEntry) map[string]any {
	el := make([]map[string]any, 0, len(entries))
	for i, e := range entries {
		el = append(el, map[string]any{
			"@type":    "ListItem",
			"position": i + 1,
			"name":     e.Name,
			"url":      e.URL,
		})
	}
	return map[string]any{
		"@context":        schemaContext,
		"@type":           "ItemList",
		"numberOfItems":   len(entries),
		"itemListElement": el,
	}
}

// CollectionPage wraps an ItemList in a CollectionPage, as used for category pages.
func CollectionPage(name, description, url string, entries []ListEntry) map[string]any {
	m := map[string]any{
		"@context":   schemaContext,
		"@type":      "CollectionPage",
		"name":       name,
		"mainEntity": ItemList(entries),
	}
	if description != "" {
		m["description"] = description
	}
	if url != "" {
		m["url"] = url
	}
	return m
}
