package htmlutil

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"esic-scraper/lib/telemetry"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/html"
)

var tracer = telemetry.Tracer("esic.lib.htmlutil")

// GetText concatenates the text nodes under node.
func GetText(node *html.Node) string {
	var buffer strings.Builder
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *strings.Builder) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		getTextRecursive(child, buffer)
	}
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

// CleanText drops non printable characters and collapses whitespace.
func CleanText(s string) string {
	out := strings.Builder{}
	for _, c := range s {
		switch {
		case unicode.IsSpace(c):
			out.WriteRune(' ')
		case unicode.IsPrint(c):
			out.WriteRune(c)
		}
	}
	return innerWhitespace.ReplaceAllString(strings.TrimSpace(out.String()), " ")
}

type Anchor struct {
	Name string
	Href string
}

// GetAnchors reads the href and cleaned text of every node in sel. Relative
// hrefs are resolved against base when it is not nil, hrefs that do not
// parse are skipped.
func GetAnchors(ctx context.Context, sel *goquery.Selection, base *url.URL) []Anchor {
	_, span := tracer.Start(ctx, "GetAnchors")
	defer span.End()

	anchors := []Anchor{}
	for _, n := range sel.Nodes {
		href := ""
		for _, a := range n.Attr {
			if a.Key == "href" {
				href = strings.TrimSpace(a.Val)
				break
			}
		}

		link, err := url.Parse(href)
		if err != nil {
			span.AddEvent("invalid href", trace.WithAttributes(
				attribute.String("href", href),
				attribute.String("error", err.Error()),
			))
			continue
		}
		if base != nil {
			link = base.ResolveReference(link)
		}

		anchors = append(anchors, Anchor{
			Name: CleanText(GetText(n)),
			Href: link.String(),
		})
	}
	span.SetAttributes(attribute.Int("anchors", len(anchors)))

	return anchors
}
