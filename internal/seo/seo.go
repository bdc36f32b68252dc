package seo

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Data is the per-request head metadata produced by the page renderer. Every string field is
// treated as untrusted and escaped before it reaches the document.
type Data struct {
	Title          string `json:"title"`
	Description    string `json:"description"`
	Keywords       string `json:"keywords"`
	OGTitle        string `json:"ogTitle"`
	OGDescription  string `json:"ogDescription"`
	OGURL          string `json:"ogUrl"`
	OGImage        string `json:"ogImage,omitempty"`
	CanonicalURL   string `json:"canonicalUrl"`
	StructuredData any    `json:"structuredData,omitempty"`
}

var htmlEscaper = strings.NewReplacer(
	`&`, "&amp;",
	`"`, "&quot;",
	`'`, "&#39;",
	`<`, "&lt;",
	`>`, "&gt;",
)

// EscapeHTML escapes s for use in HTML text and quoted attribute values.
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

// HeadFragment renders d as the head tags injected at the template's head marker. A nil d yields
// an empty fragment. Tag order is fixed: title, description, keywords, Open Graph, Twitter card,
// canonical link, JSON-LD.
func HeadFragment(d *Data) (string, error) {
	if d == nil {
		return "", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<title>%s</title>\n", EscapeHTML(d.Title))
	writeMeta(&b, "name", "description", d.Description)
	writeMeta(&b, "name", "keywords", d.Keywords)

	writeMeta(&b, "property", "og:title", d.OGTitle)
	writeMeta(&b, "property", "og:description", d.OGDescription)
	writeMeta(&b, "property", "og:url", d.OGURL)
	if d.OGImage != "" {
		writeMeta(&b, "property", "og:image", d.OGImage)
	}

	writeMeta(&b, "name", "twitter:title", d.OGTitle)
	writeMeta(&b, "name", "twitter:description", d.OGDescription)
	writeMeta(&b, "name", "twitter:url", d.OGURL)
	if d.OGImage != "" {
		writeMeta(&b, "name", "twitter:image", d.OGImage)
	}

	fmt.Fprintf(&b, "<link rel=\"canonical\" href=\"%s\">\n", EscapeHTML(d.CanonicalURL))

	if d.StructuredData != nil {
		ld, err := MarshalJSONLD(d.StructuredData)
		if err != nil {
			return "", err
		}
		b.WriteString("<script type=\"application/ld+json\">\n")
		b.WriteString(ld)
		b.WriteString("\n</script>")
	}

	return b.String(), nil
}

func writeMeta(b *strings.Builder, attr, key, value string) {
	fmt.Fprintf(b, "<meta %s=\"%s\" content=\"%s\">\n", attr, key, EscapeHTML(value))
}

// MarshalJSONLD pretty-prints v for a ld+json script block. The encoder writes <, > and & as
// \u003c, \u003e and \u0026, so the payload cannot close the surrounding script element.
func MarshalJSONLD(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(true)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("seo: encode structured data: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
