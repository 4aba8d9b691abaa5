// Package parser builds the read-only document model shared by all analyzers.
package parser

import (
	"bytes"
	"net/url"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Link represents an anchor found on the page. Href is the raw attribute value.
type Link struct {
	Href   string
	Text   string
	Rel    string
	Target string
}

// NoFollow reports whether the link carries rel="nofollow".
func (l Link) NoFollow() bool {
	return hasToken(l.Rel, "nofollow")
}

// Image represents an img element.
type Image struct {
	Src     string
	Alt     string
	HasAlt  bool
	Loading string
}

// Script represents a script element with a src attribute.
type Script struct {
	Src    string
	Async  bool
	Defer  bool
	Module bool
	InHead bool
}

// Document is a parsed page. It is built once and never modified afterwards,
// so it can be shared by concurrent readers. Callers must not mutate the
// selections returned by Find.
type Document struct {
	doc      *goquery.Document
	url      *url.URL
	size     int
	fallback bool

	text  string
	words []string
}

// New parses markup fetched from pageURL.
func New(pageURL *url.URL, markup []byte, fallback bool) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(markup))
	if err != nil {
		return nil, err
	}

	u := *pageURL
	d := &Document{
		doc:      doc,
		url:      &u,
		size:     len(markup),
		fallback: fallback,
	}

	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}
	var buf strings.Builder
	for _, n := range root.Nodes {
		collectVisibleText(n, &buf)
	}
	d.text = strings.Join(strings.Fields(buf.String()), " ")
	d.words = Tokenize(d.text)

	return d, nil
}

// URL returns a copy of the page URL.
func (d *Document) URL() *url.URL {
	u := *d.url
	return &u
}

// IsFallback reports whether the document was synthesized after a failed fetch.
func (d *Document) IsFallback() bool {
	return d.fallback
}

// Size returns the markup size in bytes.
func (d *Document) Size() int {
	return d.size
}

// Find runs a CSS selector against the document.
func (d *Document) Find(selector string) *goquery.Selection {
	return d.doc.Find(selector)
}

// Title returns the trimmed text of the first title element.
func (d *Document) Title() string {
	return strings.TrimSpace(d.doc.Find("title").First().Text())
}

// HasTitle reports whether a title element exists.
func (d *Document) HasTitle() bool {
	return d.doc.Find("title").Length() > 0
}

// Lang returns the lang attribute of the html element.
func (d *Document) Lang() string {
	return strings.TrimSpace(d.doc.Find("html").AttrOr("lang", ""))
}

// Meta returns the content of the first meta element whose name matches,
// case-insensitively.
func (d *Document) Meta(name string) (string, bool) {
	return d.metaBy("name", name)
}

// MetaProperty returns the content of the first meta element whose property
// matches, case-insensitively. Twitter tags published with property instead
// of name are found too.
func (d *Document) MetaProperty(property string) (string, bool) {
	return d.metaBy("property", property)
}

func (d *Document) metaBy(attr, want string) (string, bool) {
	var (
		content string
		found   bool
	)
	d.doc.Find("meta[" + attr + "]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.EqualFold(strings.TrimSpace(s.AttrOr(attr, "")), want) {
			content = strings.TrimSpace(s.AttrOr("content", ""))
			found = true
			return false
		}
		return true
	})
	return content, found
}

// Canonicals returns the raw href of every link rel="canonical" element.
func (d *Document) Canonicals() []string {
	var out []string
	d.doc.Find("link[rel]").Each(func(_ int, s *goquery.Selection) {
		if hasToken(s.AttrOr("rel", ""), "canonical") {
			out = append(out, strings.TrimSpace(s.AttrOr("href", "")))
		}
	})
	return out
}

// Links returns navigable anchors in document order. Empty, fragment-only,
// javascript:, mailto:, tel: and data: hrefs are skipped.
func (d *Document) Links() []Link {
	links := make([]Link, 0)
	d.doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if skipHref(href) {
			return
		}
		links = append(links, Link{
			Href:   href,
			Text:   strings.Join(strings.Fields(s.Text()), " "),
			Rel:    strings.ToLower(s.AttrOr("rel", "")),
			Target: strings.ToLower(s.AttrOr("target", "")),
		})
	})
	return links
}

// Images returns every img element in document order.
func (d *Document) Images() []Image {
	images := make([]Image, 0)
	d.doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		alt, hasAlt := s.Attr("alt")
		src := s.AttrOr("src", "")
		// Prefer data-src for lazy-loaded images
		if dataSrc := s.AttrOr("data-src", ""); dataSrc != "" {
			src = dataSrc
		}
		images = append(images, Image{
			Src:     strings.TrimSpace(src),
			Alt:     alt,
			HasAlt:  hasAlt,
			Loading: strings.ToLower(s.AttrOr("loading", "")),
		})
	})
	return images
}

// Headings returns the trimmed text of every h1..h6 element of the given level.
func (d *Document) Headings(level int) []string {
	if level < 1 || level > 6 {
		return nil
	}
	tag := "h" + string(rune('0'+level))
	out := make([]string, 0)
	d.doc.Find(tag).Each(func(_ int, s *goquery.Selection) {
		out = append(out, strings.Join(strings.Fields(s.Text()), " "))
	})
	return out
}

// Scripts returns script elements that load an external source.
func (d *Document) Scripts() []Script {
	scripts := make([]Script, 0)
	d.doc.Find("script[src]").Each(func(_ int, s *goquery.Selection) {
		_, async := s.Attr("async")
		_, deferred := s.Attr("defer")
		scripts = append(scripts, Script{
			Src:    s.AttrOr("src", ""),
			Async:  async,
			Defer:  deferred,
			Module: strings.EqualFold(s.AttrOr("type", ""), "module"),
			InHead: s.ParentsFiltered("head").Length() > 0,
		})
	})
	return scripts
}

// Stylesheets returns the hrefs of linked stylesheets.
func (d *Document) Stylesheets() []string {
	var out []string
	d.doc.Find("link[rel]").Each(func(_ int, s *goquery.Selection) {
		if hasToken(s.AttrOr("rel", ""), "stylesheet") {
			out = append(out, s.AttrOr("href", ""))
		}
	})
	return out
}

// JSONLD returns the raw contents of every application/ld+json script.
func (d *Document) JSONLD() []string {
	var out []string
	d.doc.Find("script[type]").Each(func(_ int, s *goquery.Selection) {
		typ := strings.ToLower(strings.TrimSpace(s.AttrOr("type", "")))
		if typ == "application/ld+json" {
			out = append(out, s.Text())
		}
	})
	return out
}

// ItemTypes returns the itemtype attribute of every microdata scope.
func (d *Document) ItemTypes() []string {
	var out []string
	d.doc.Find("[itemtype]").Each(func(_ int, s *goquery.Selection) {
		for _, t := range strings.Fields(s.AttrOr("itemtype", "")) {
			out = append(out, t)
		}
	})
	return out
}

// VisibleText returns the body text with script and style content removed
// and whitespace collapsed.
func (d *Document) VisibleText() string {
	return d.text
}

// Words returns the lowercased word tokens of the visible text.
func (d *Document) Words() []string {
	out := make([]string, len(d.words))
	copy(out, d.words)
	return out
}

// WordCount returns the number of visible word tokens.
func (d *Document) WordCount() int {
	return len(d.words)
}

// Tokenize splits text into lowercased word tokens. Apostrophes inside words
// are kept, so "don't" is one token.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '\''
	})
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, "'")
		if f != "" {
			words = append(words, f)
		}
	}
	return words
}

// collectVisibleText appends text nodes, skipping non-rendered elements.
func collectVisibleText(n *html.Node, buf *strings.Builder) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "script", "style", "noscript", "template":
			return
		}
	}
	if n.Type == html.TextNode {
		buf.WriteString(n.Data)
		buf.WriteString(" ")
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectVisibleText(c, buf)
	}
}

func skipHref(href string) bool {
	lower := strings.ToLower(href)
	return href == "" || strings.HasPrefix(href, "#") ||
		strings.HasPrefix(lower, "javascript:") || strings.HasPrefix(lower, "mailto:") ||
		strings.HasPrefix(lower, "tel:") || strings.HasPrefix(lower, "data:")
}

func hasToken(list, token string) bool {
	for _, t := range strings.Fields(strings.ToLower(list)) {
		if t == token {
			return true
		}
	}
	return false
}
