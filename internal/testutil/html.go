package testutil

import (
	"fmt"
	"strings"
)

// HTMLBuilder helps build test HTML content.
type HTMLBuilder struct {
	lang        string
	title       *string
	metaDesc    string
	viewport    string
	canonical   string
	head        []string
	h1          string
	bodyContent string
	links       []link
	images      []image
}

type link struct {
	Href string
	Text string
	Rel  string
}

type image struct {
	Src    string
	Alt    string
	HasAlt bool
}

// NewHTMLBuilder creates a new HTML builder.
func NewHTMLBuilder() *HTMLBuilder {
	return &HTMLBuilder{}
}

// Lang sets the html lang attribute.
func (b *HTMLBuilder) Lang(lang string) *HTMLBuilder {
	b.lang = lang
	return b
}

// Title sets the page title. An empty title still emits a title element.
func (b *HTMLBuilder) Title(title string) *HTMLBuilder {
	b.title = &title
	return b
}

// MetaDescription sets the meta description.
func (b *HTMLBuilder) MetaDescription(desc string) *HTMLBuilder {
	b.metaDesc = desc
	return b
}

// Viewport sets the viewport meta content.
func (b *HTMLBuilder) Viewport(content string) *HTMLBuilder {
	b.viewport = content
	return b
}

// Canonical sets the canonical URL.
func (b *HTMLBuilder) Canonical(url string) *HTMLBuilder {
	b.canonical = url
	return b
}

// Head appends raw markup to the head element.
func (b *HTMLBuilder) Head(markup string) *HTMLBuilder {
	b.head = append(b.head, markup)
	return b
}

// H1 sets the H1 heading.
func (b *HTMLBuilder) H1(text string) *HTMLBuilder {
	b.h1 = text
	return b
}

// Body sets body content.
func (b *HTMLBuilder) Body(content string) *HTMLBuilder {
	b.bodyContent = content
	return b
}

// Link adds a link.
func (b *HTMLBuilder) Link(href, text string) *HTMLBuilder {
	b.links = append(b.links, link{Href: href, Text: text})
	return b
}

// LinkWithRel adds a link with rel attribute.
func (b *HTMLBuilder) LinkWithRel(href, text, rel string) *HTMLBuilder {
	b.links = append(b.links, link{Href: href, Text: text, Rel: rel})
	return b
}

// Img adds an image with an alt attribute.
func (b *HTMLBuilder) Img(src, alt string) *HTMLBuilder {
	b.images = append(b.images, image{Src: src, Alt: alt, HasAlt: true})
	return b
}

// ImgNoAlt adds an image without an alt attribute.
func (b *HTMLBuilder) ImgNoAlt(src string) *HTMLBuilder {
	b.images = append(b.images, image{Src: src})
	return b
}

// Build generates the HTML.
func (b *HTMLBuilder) Build() string {
	var sb strings.Builder

	if b.lang != "" {
		sb.WriteString(fmt.Sprintf("<!DOCTYPE html>\n<html lang=\"%s\">\n<head>\n", b.lang))
	} else {
		sb.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	}

	if b.title != nil {
		sb.WriteString(fmt.Sprintf("  <title>%s</title>\n", *b.title))
	}
	if b.metaDesc != "" {
		sb.WriteString(fmt.Sprintf("  <meta name=\"description\" content=\"%s\">\n", b.metaDesc))
	}
	if b.viewport != "" {
		sb.WriteString(fmt.Sprintf("  <meta name=\"viewport\" content=\"%s\">\n", b.viewport))
	}
	if b.canonical != "" {
		sb.WriteString(fmt.Sprintf("  <link rel=\"canonical\" href=\"%s\">\n", b.canonical))
	}
	for _, h := range b.head {
		sb.WriteString("  " + h + "\n")
	}

	sb.WriteString("</head>\n<body>\n")

	if b.h1 != "" {
		sb.WriteString(fmt.Sprintf("  <h1>%s</h1>\n", b.h1))
	}
	if b.bodyContent != "" {
		sb.WriteString(b.bodyContent)
		sb.WriteString("\n")
	}

	for _, l := range b.links {
		if l.Rel != "" {
			sb.WriteString(fmt.Sprintf("  <a href=\"%s\" rel=\"%s\">%s</a>\n", l.Href, l.Rel, l.Text))
		} else {
			sb.WriteString(fmt.Sprintf("  <a href=\"%s\">%s</a>\n", l.Href, l.Text))
		}
	}

	for _, img := range b.images {
		if img.HasAlt {
			sb.WriteString(fmt.Sprintf("  <img src=\"%s\" alt=\"%s\">\n", img.Src, img.Alt))
		} else {
			sb.WriteString(fmt.Sprintf("  <img src=\"%s\">\n", img.Src))
		}
	}

	sb.WriteString("</body>\n</html>")

	return sb.String()
}

// Pad returns body content of roughly n words, useful for pages that must
// clear the fetcher's minimum body length.
func Pad(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("lorem%d", i%7)
	}
	return "<p>" + strings.Join(words, " ") + "</p>"
}
