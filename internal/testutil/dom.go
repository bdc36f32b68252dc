// Package testutil holds shared helpers for HTML assertions in tests.
package testutil

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

// ParseHTML parses an HTML document or fragment into a goquery document for assertions.
func ParseHTML(t testing.TB, body string) *goquery.Document {
	t.Helper()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

// Texts returns the trimmed text of every node matching selector.
func Texts(doc *goquery.Document, selector string) []string {
	var out []string
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		out = append(out, strings.TrimSpace(s.Text()))
	})
	return out
}

// MetaContent returns the content attribute of the first meta tag with the given name or property.
func MetaContent(doc *goquery.Document, key string) (string, bool) {
	sel := doc.Find(`meta[name="` + key + `"], meta[property="` + key + `"]`).First()
	if sel.Length() == 0 {
		return "", false
	}
	return sel.Attr("content")
}
