package detail

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"esic-scraper/lib/htmlutil"
	"esic-scraper/lib/telemetry"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("esic.lib.esic.detail")

const DefaultSearchURL = "http://www.consultaesic.cgu.gov.br/busca/SitePages/resultadopesquisa.aspx?k="

var ErrDetailNotFound = errors.New("no detail page found for protocol")

// Renderer returns the html of a page after its scripts ran.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

type ChromeOptions struct {
	// Timeout bounds one render, zero means 90 seconds.
	Timeout time.Duration
	// Settle is how long to wait after the body shows up for the search
	// results to be filled in, zero means 2 seconds.
	Settle    time.Duration
	UserAgent string
	// ShowBrowser opens a visible window instead of running headless.
	ShowBrowser bool
}

// ChromeRenderer renders pages with a local chrome through the devtools
// protocol. Every Render starts its own browser tab.
type ChromeRenderer struct {
	allocator context.Context
	cancel    context.CancelFunc
	opts      ChromeOptions
}

func NewChromeRenderer(opts ChromeOptions) *ChromeRenderer {
	if opts.Timeout == 0 {
		opts.Timeout = 90 * time.Second
	}
	if opts.Settle == 0 {
		opts.Settle = 2 * time.Second
	}

	allocatorOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.Flag("headless", !opts.ShowBrowser),
	)
	if opts.UserAgent != "" {
		allocatorOpts = append(allocatorOpts, chromedp.UserAgent(opts.UserAgent))
	}
	allocator, cancel := chromedp.NewExecAllocator(context.Background(), allocatorOpts...)

	return &ChromeRenderer{
		allocator: allocator,
		cancel:    cancel,
		opts:      opts,
	}
}

func (r *ChromeRenderer) Render(ctx context.Context, pageURL string) (string, error) {
	ctx, span := tracer.Start(ctx, "ChromeRenderer.Render")
	defer span.End()
	span.SetAttributes(attribute.String("url", pageURL))

	tab, cancelTab := chromedp.NewContext(r.allocator)
	defer cancelTab()
	tab, cancelTimeout := context.WithTimeout(tab, r.opts.Timeout)
	defer cancelTimeout()

	// chromedp contexts do not derive from ctx, stop the tab when ctx ends
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	var content string
	err := chromedp.Run(
		tab,
		chromedp.Navigate(pageURL),
		chromedp.WaitVisible("body", chromedp.ByQuery),
		chromedp.Sleep(r.opts.Settle),
		chromedp.OuterHTML("html", &content, chromedp.ByQuery),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to render page")
		return "", err
	}
	slog.DebugContext(ctx, "rendered page", "url", pageURL, "bytes", len(content))
	return content, nil
}

// Close shuts down the browser.
func (r *ChromeRenderer) Close() {
	r.cancel()
}

type Attachment struct {
	URL  string
	Name string
}

// Resolver finds the detail page and attachments of a request from its
// protocol number, the pages involved only render their content with
// javascript.
type Resolver struct {
	renderer  Renderer
	searchURL string
}

func NewResolver(renderer Renderer, searchURL string) Resolver {
	if searchURL == "" {
		searchURL = DefaultSearchURL
	}
	return Resolver{
		renderer:  renderer,
		searchURL: searchURL,
	}
}

func (r Resolver) SearchURL(protocolo string) string {
	return r.searchURL + url.QueryEscape("NUP="+protocolo)
}

// render returns the anchors of the rendered page, relative links resolved
// against pageURL.
func (r Resolver) render(ctx context.Context, pageURL string) ([]htmlutil.Anchor, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}
	content, err := r.renderer.Render(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, err
	}
	return htmlutil.GetAnchors(ctx, doc.Find("a[href]"), base), nil
}

// ResolveDetailURL returns the href of the first search result that links
// to a request, ErrDetailNotFound when the search came back empty.
func (r Resolver) ResolveDetailURL(ctx context.Context, protocolo string) (string, error) {
	ctx, span := tracer.Start(ctx, "ResolveDetailURL")
	defer span.End()
	span.SetAttributes(attribute.String("protocolo", protocolo))

	anchors, err := r.render(ctx, r.SearchURL(protocolo))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to render search page")
		return "", err
	}

	for _, anchor := range anchors {
		if strings.Contains(anchor.Href, "ID=") {
			return anchor.Href, nil
		}
	}
	span.SetStatus(codes.Error, ErrDetailNotFound.Error())
	return "", ErrDetailNotFound
}

// ListAttachments returns the named attachment links of a detail page in
// document order, each url at most once.
func (r Resolver) ListAttachments(ctx context.Context, detailURL string) ([]Attachment, error) {
	ctx, span := tracer.Start(ctx, "ListAttachments")
	defer span.End()

	anchors, err := r.render(ctx, detailURL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to render detail page")
		return nil, err
	}

	seen := map[string]struct{}{}
	attachments := []Attachment{}
	for _, anchor := range anchors {
		if !strings.Contains(anchor.Href, "Attachments") || anchor.Name == "" {
			continue
		}
		if _, ok := seen[anchor.Href]; ok {
			continue
		}
		seen[anchor.Href] = struct{}{}
		attachments = append(attachments, Attachment{URL: anchor.Href, Name: anchor.Name})
	}
	span.SetAttributes(attribute.Int("attachments", len(attachments)))
	return attachments, nil
}
