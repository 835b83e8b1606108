package models

import (
	"bytes"
	"strings"
)

// Target is a caller-supplied domain or URL after normalisation.
type Target struct {
	Input    string `json:"input"`
	BaseURL  string `json:"base_url"`
	StartURL string `json:"start_url"`
	Domain   string `json:"domain"`
	Company  string `json:"company,omitempty"`
}

// Page is the raw outcome of fetching one URL.
type Page struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
}

// IsPDF reports whether the page holds a PDF document.
func (p *Page) IsPDF() bool {
	if p == nil {
		return false
	}
	if strings.Contains(strings.ToLower(p.ContentType), "application/pdf") {
		return true
	}
	return bytes.HasPrefix(p.Body, []byte("%PDF-"))
}

// SearchResult is one item returned by a search provider.
type SearchResult struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Link    string `json:"link"`
}
