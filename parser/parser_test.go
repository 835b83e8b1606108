package parser

import (
	"reflect"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func mustDoc(t *testing.T, markup string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		t.Fatalf("parse markup: %v", err)
	}
	return doc
}

func TestExtractText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "plain address",
			input:    "Write to jane.doe@example-company.org today",
			expected: []string{"jane.doe@example-company.org"},
		},
		{
			name:     "case preserved",
			input:    "Contact: Jane.Doe@Example-Company.ORG",
			expected: []string{"Jane.Doe@Example-Company.ORG"},
		},
		{
			name:     "exact duplicates collapse",
			input:    "info@acme.com, sales@acme.com; info@acme.com",
			expected: []string{"info@acme.com", "sales@acme.com"},
		},
		{
			name:     "different case kept at this stage",
			input:    "info@acme.com INFO@ACME.COM",
			expected: []string{"info@acme.com", "INFO@ACME.COM"},
		},
		{
			name:     "plus and percent in local part",
			input:    "bob+leads@acme.io and a%b@acme.io",
			expected: []string{"bob+leads@acme.io", "a%b@acme.io"},
		},
		{
			name:     "price near miss",
			input:    "price: $9.99@store",
			expected: nil,
		},
		{
			name:     "version near miss",
			input:    "built from v2.0@build",
			expected: nil,
		},
		{
			name:     "numeric tld",
			input:    "root@10.0.0.1",
			expected: nil,
		},
		{
			name:     "empty",
			input:    "",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ExtractText(tt.input)
			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("ExtractText(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestExtractTextLongInput(t *testing.T) {
	input := strings.Repeat("a.", 50000) + " ceo@acme.com"
	result := ExtractText(input)
	if len(result) != 1 || result[0] != "ceo@acme.com" {
		t.Errorf("ExtractText(long) = %v, want [ceo@acme.com]", result)
	}
}

func TestIsEmail(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"sales@acme.com", true},
		{"first.last@sub.acme.co.uk", true},
		{"sales@acme", false},
		{"sales@acme.c", false},
		{"sales acme.com", false},
		{"<sales@acme.com>", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := IsEmail(tt.input); got != tt.expected {
				t.Errorf("IsEmail(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestExtractMailto(t *testing.T) {
	tests := []struct {
		name     string
		markup   string
		expected []string
	}{
		{
			name:     "query stripped",
			markup:   `<a href="mailto:sales@acme.com?subject=hi">Email us</a>`,
			expected: []string{"sales@acme.com"},
		},
		{
			name:     "scheme case insensitive",
			markup:   `<a href="MAILTO:Founder@Acme.com">Founder</a>`,
			expected: []string{"Founder@Acme.com"},
		},
		{
			name:     "comma separated recipients",
			markup:   `<a href="mailto:a@acme.com,%20b@acme.com">Both</a>`,
			expected: []string{"a@acme.com", "b@acme.com"},
		},
		{
			name:     "not a mailto",
			markup:   `<a href="https://acme.com/contact">Contact</a>`,
			expected: nil,
		},
		{
			name:     "invalid target",
			markup:   `<a href="mailto:">Empty</a><a href="mailto:nobody">Bad</a>`,
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ExtractMailto(mustDoc(t, tt.markup))
			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("ExtractMailto() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestExtractHTMLUsesVisibleText(t *testing.T) {
	markup := `<html><head><title>Acme</title><meta name="x" content="meta@acme.com"></head>
<body>
<script>var tracking = "bot@acme.com";</script>
<style>/* style@acme.com */</style>
<div data-owner="attr@acme.com"><p>Reach team@acme.io</p><p>Call us</p></div>
<a href="mailto:sales@acme.com?subject=hi">Write to sales</a>
<!-- comment@acme.com -->
</body></html>`

	result := ExtractHTML(mustDoc(t, markup))
	expected := []string{"team@acme.io", "sales@acme.com"}
	if !reflect.DeepEqual(result, expected) {
		t.Errorf("ExtractHTML() = %v, want %v", result, expected)
	}
}

func TestExtractHTMLUnionsStrategies(t *testing.T) {
	markup := `<p>info@acme.com</p><a href="mailto:info@acme.com">info@acme.com</a>`
	result := ExtractHTML(mustDoc(t, markup))
	if !reflect.DeepEqual(result, []string{"info@acme.com"}) {
		t.Errorf("ExtractHTML() = %v, want [info@acme.com]", result)
	}
}

func TestExtractHTMLAdjacentLinksStaySeparate(t *testing.T) {
	markup := `<footer><a href="mailto:jane@acme.com">jane@acme.com</a><a href="/impressum">Impressum</a><a href="/privacy">sales@acme.com</a></footer>`
	result := ExtractHTML(mustDoc(t, markup))
	expected := []string{"jane@acme.com", "sales@acme.com"}
	if !reflect.DeepEqual(result, expected) {
		t.Errorf("ExtractHTML() = %v, want %v", result, expected)
	}
}

func TestExtractHTMLNil(t *testing.T) {
	if result := ExtractHTML(nil); result != nil {
		t.Errorf("ExtractHTML(nil) = %v, want nil", result)
	}
}

func TestPageTitle(t *testing.T) {
	doc := mustDoc(t, "<html><head><title>\n  Acme   Corp | Contact\n</title></head></html>")
	if got := PageTitle(doc); got != "Acme Corp | Contact" {
		t.Errorf("PageTitle() = %q, want %q", got, "Acme Corp | Contact")
	}
}

func TestExtractPDFRejectsGarbage(t *testing.T) {
	if _, err := ExtractPDF([]byte("<html>not a pdf</html>")); err == nil {
		t.Error("ExtractPDF() expected error for non-PDF input")
	}
}
