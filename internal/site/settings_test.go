package site

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), s)
}

func TestLoadParsesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "site.yaml")
	content := `
name: Acme MCP
base_url: https://mcp.acme.dev/
description: Servers
keywords: [mcp, tools]
default_image: https://mcp.acme.dev/og.png
twitter_handle: "@acme"
page_size: 500
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Acme MCP", s.Name)
	assert.Equal(t, "https://mcp.acme.dev", s.BaseURL)
	assert.Equal(t, []string{"mcp", "tools"}, s.Keywords)
	assert.Equal(t, "@acme", s.TwitterHandle)
	assert.Equal(t, maxPageSize, s.PageSize)
}

func TestParseRejectsRelativeBaseURL(t *testing.T) {
	_, err := Parse([]byte("base_url: /relative\n"))
	assert.Error(t, err)
}

func TestParseRejectsInvalidYAML(t *testing.T) {
	_, err := Parse([]byte("name: [unterminated"))
	assert.Error(t, err)
}

func TestAbsoluteURL(t *testing.T) {
	s := Defaults()
	s.BaseURL = "https://mcp.example"
	assert.Equal(t, "https://mcp.example/servers/x", s.AbsoluteURL("/servers/x"))
	assert.Equal(t, "https://mcp.example/servers", s.AbsoluteURL("servers"))
	assert.Equal(t, "https://cdn.example/a.png", s.AbsoluteURL("https://cdn.example/a.png"))
}

func TestKeywordStringDedupes(t *testing.T) {
	s := Settings{Keywords: []string{"MCP", "servers"}}
	assert.Equal(t, "git, mcp, servers", s.KeywordString("git", "mcp", " "))
}
