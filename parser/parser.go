// Package parser turns fetched content into classified email candidates.
package parser

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ledongthuc/pdf"
	"golang.org/x/net/html"
)

// emailPattern is local-part "@" dotted labels ending in an alphabetic TLD.
// RE2 guarantees linear time on any input.
var emailPattern = regexp.MustCompile(`(?i)[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}`)

// fullEmailPattern anchors emailPattern for validating a single candidate.
var fullEmailPattern = regexp.MustCompile(`(?i)^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}$`)

// IsEmail reports whether s is exactly one address in the accepted grammar.
func IsEmail(s string) bool {
	return fullEmailPattern.MatchString(s)
}

// ExtractText returns every address in text, case preserved, exact
// duplicates collapsed, in first-seen order.
func ExtractText(text string) []string {
	if text == "" {
		return nil
	}
	var set orderedSet
	for _, match := range emailPattern.FindAllString(text, -1) {
		set.add(match)
	}
	return set.items
}

// ExtractHTML unions the text-pattern hits over the visible text of doc with
// the addresses found in mailto links.
func ExtractHTML(doc *goquery.Document) []string {
	if doc == nil {
		return nil
	}
	var set orderedSet
	for _, email := range ExtractText(VisibleText(doc)) {
		set.add(email)
	}
	for _, email := range ExtractMailto(doc) {
		set.add(email)
	}
	return set.items
}

// ExtractMailto reads anchor targets with a mailto scheme. The scheme and
// any query are stripped and comma separated recipients are split.
func ExtractMailto(doc *goquery.Document) []string {
	if doc == nil {
		return nil
	}
	var set orderedSet
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if len(href) < len("mailto:") || !strings.EqualFold(href[:len("mailto:")], "mailto:") {
			return
		}
		target := href[len("mailto:"):]
		if i := strings.IndexByte(target, '?'); i != -1 {
			target = target[:i]
		}
		if decoded, err := url.PathUnescape(target); err == nil {
			target = decoded
		}
		for _, part := range strings.Split(target, ",") {
			part = strings.TrimSpace(part)
			if IsEmail(part) {
				set.add(part)
			}
		}
	})
	return set.items
}

// ExtractPDF extracts addresses from the plain text of every page of a PDF.
// Malformed documents return an error.
func ExtractPDF(body []byte) (emails []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			emails, err = nil, fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("read pdf text: %w", err)
	}
	text, err := io.ReadAll(plain)
	if err != nil {
		return nil, fmt.Errorf("read pdf text: %w", err)
	}
	content := strings.ReplaceAll(string(text), "\u00a0", " ")
	return ExtractText(content), nil
}

// PageTitle returns the trimmed document title.
func PageTitle(doc *goquery.Document) string {
	if doc == nil {
		return ""
	}
	return strings.Join(strings.Fields(doc.Find("title").First().Text()), " ")
}

var hiddenElements = map[string]bool{
	"head":     true,
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"svg":      true,
	"iframe":   true,
	"object":   true,
}

var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"br": true, "dd": true, "div": true, "dl": true, "dt": true,
	"fieldset": true, "figcaption": true, "figure": true, "footer": true,
	"form": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true,
	"h6": true, "header": true, "hr": true, "li": true, "main": true,
	"nav": true, "ol": true, "p": true, "pre": true, "section": true,
	"table": true, "td": true, "th": true, "tr": true, "ul": true,
	"button": true, "option": true,
}

// VisibleText renders the text a reader would see. Non-rendered elements are
// skipped. Block elements and links are separated by whitespace so adjacent
// paragraphs or anchors never fuse into one token.
func VisibleText(doc *goquery.Document) string {
	if doc == nil {
		return ""
	}
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.CommentNode:
			return
		case html.ElementNode:
			if hiddenElements[n.Data] {
				return
			}
		}
		var sep byte
		if n.Type == html.ElementNode {
			switch {
			case blockElements[n.Data]:
				sep = '\n'
			case n.Data == "a":
				sep = ' '
			}
		}
		if sep != 0 {
			b.WriteByte(sep)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if sep != 0 {
			b.WriteByte(sep)
		}
	}
	for _, n := range doc.Nodes {
		walk(n)
	}
	return b.String()
}

// orderedSet keeps first-seen order for deterministic output.
type orderedSet struct {
	seen  map[string]struct{}
	items []string
}

func (s *orderedSet) add(v string) {
	if s.seen == nil {
		s.seen = make(map[string]struct{})
	}
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.items = append(s.items, v)
}
