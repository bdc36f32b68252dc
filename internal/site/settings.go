// Package site loads the catalog's site-wide presentation settings.
package site

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	defaultName        = "MCP Directory"
	defaultBaseURL     = "http://localhost:8080"
	defaultDescription = "Discover Model Context Protocol servers for your AI tools."
	defaultPageSize    = 24
	maxPageSize        = 100
)

// Settings holds values used to build page metadata.
type Settings struct {
	Name          string   `yaml:"name"`
	BaseURL       string   `yaml:"base_url"`
	Description   string   `yaml:"description"`
	Keywords      []string `yaml:"keywords"`
	DefaultImage  string   `yaml:"default_image"`
	TwitterHandle string   `yaml:"twitter_handle"`
	PageSize      int      `yaml:"page_size"`
}

// Defaults returns the settings used when no file is present.
func Defaults() Settings {
	return Settings{
		Name:        defaultName,
		BaseURL:     defaultBaseURL,
		Description: defaultDescription,
		Keywords:    []string{"MCP", "Model Context Protocol", "MCP servers"},
		PageSize:    defaultPageSize,
	}
}

// Load reads settings from path. A missing file yields Defaults.
func Load(path string) (Settings, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Defaults(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Defaults(), nil
		}
		return Settings{}, fmt.Errorf("site: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML settings, filling unset fields from Defaults.
func Parse(data []byte) (Settings, error) {
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("site: parse settings: %w", err)
	}
	s.applyDefaults()
	if err := s.validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func (s *Settings) applyDefaults() {
	d := Defaults()
	s.Name = strings.TrimSpace(s.Name)
	if s.Name == "" {
		s.Name = d.Name
	}
	s.BaseURL = strings.TrimRight(strings.TrimSpace(s.BaseURL), "/")
	if s.BaseURL == "" {
		s.BaseURL = d.BaseURL
	}
	if strings.TrimSpace(s.Description) == "" {
		s.Description = d.Description
	}
	if len(s.Keywords) == 0 {
		s.Keywords = d.Keywords
	}
	if s.PageSize <= 0 {
		s.PageSize = d.PageSize
	}
	if s.PageSize > maxPageSize {
		s.PageSize = maxPageSize
	}
}

func (s Settings) validate() error {
	u, err := url.Parse(s.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("site: base_url %q must be an absolute URL", s.BaseURL)
	}
	return nil
}

// AbsoluteURL joins p onto BaseURL.
func (s Settings) AbsoluteURL(p string) string {
	if strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://") {
		return p
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return s.BaseURL + p
}

// KeywordString joins the site keywords with extra terms, dropping blanks and duplicates.
func (s Settings) KeywordString(extra ...string) string {
	seen := make(map[string]struct{}, len(s.Keywords)+len(extra))
	out := make([]string, 0, len(s.Keywords)+len(extra))
	for _, k := range append(append([]string{}, extra...), s.Keywords...) {
		k = strings.TrimSpace(k)
		key := strings.ToLower(k)
		if k == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, k)
	}
	return strings.Join(out, ", ")
}
