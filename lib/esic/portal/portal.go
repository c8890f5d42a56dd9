package portal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http/cookiejar"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"esic-scraper/lib/esic/form"
	"esic-scraper/lib/restyutil"
	"esic-scraper/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

var tracer = telemetry.Tracer("esic.lib.esic.portal")

var (
	ErrMissingFilename = errors.New("response has no content-disposition filename")
	ErrSessionClosed   = errors.New("portal session is closed")
)

// HttpError is returned when the portal answers with a 4xx/5xx status.
type HttpError struct {
	Method     string
	URL        string
	StatusCode int
	Status     string
}

func (e *HttpError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Method, e.URL, e.Status)
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

type Options struct {
	UserAgent string
	// Timeout bounds a whole request, including streaming the archive.
	// Zero means 5 minutes.
	Timeout time.Duration
	// RequestsPerSecond limits outgoing requests, zero disables the limit.
	RequestsPerSecond float64
	CloudflareBypass  bool
	// Output receives full request/response dumps when debug logging is on.
	Output restyutil.InstrumentOutput
}

// Session owns the http client used to talk to the portal. It keeps cookies
// between the form GET and the POST and is safe for concurrent use.
type Session struct {
	http *resty.Client
	// run for streamed responses, resty skips its response middleware
	// for them
	afterStream []resty.ResponseMiddleware
	closed      atomic.Bool
	closeOnce   sync.Once
}

func New(opts Options) (*Session, error) {
	client := resty.New()

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	if opts.CloudflareBypass {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	client.SetHeader("user-agent", userAgent)

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = time.Minute * 5
	}
	client.SetTimeout(timeout)

	// registered first so a request stopped by the rate limiter is still
	// logged and traced
	afterStream := []resty.ResponseMiddleware{
		restyutil.InstrumentClient(client, opts.Output),
		telemetry.InstrumentResty(client, "esic.lib.esic.portal/http"),
	}

	if opts.RequestsPerSecond > 0 {
		// max burst of 1 keeps requests evenly spaced
		rateLimiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
		client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return rateLimiter.Wait(req.Context())
		})
	}

	return &Session{http: client, afterStream: afterStream}, nil
}

func (s *Session) checkStatus(res *resty.Response) error {
	if !res.IsError() {
		return nil
	}
	return &HttpError{
		Method:     res.Request.Method,
		URL:        res.Request.URL,
		StatusCode: res.StatusCode(),
		Status:     res.Status(),
	}
}

// Fetch performs a GET and returns the whole body.
func (s *Session) Fetch(ctx context.Context, url string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "Fetch")
	defer span.End()

	if s.closed.Load() {
		return nil, ErrSessionClosed
	}

	res, err := s.http.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch")
		return nil, err
	}
	err = s.checkStatus(res)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return res.Body(), nil
}

var filenameRegex = regexp.MustCompile(`filename=(.+)`)

// DispositionFilename extracts the `filename=` token of a Content-Disposition
// header value, surrounding quotes are stripped. Unquoted tokens end at the
// next `;`.
func DispositionFilename(header string) (string, error) {
	groups := filenameRegex.FindStringSubmatch(header)
	if len(groups) < 2 {
		return "", ErrMissingFilename
	}
	name := strings.TrimSpace(groups[1])
	if rest, quoted := strings.CutPrefix(name, `"`); quoted {
		// a quoted name runs to the closing quote, `;` included
		if i := strings.IndexByte(rest, '"'); i >= 0 {
			rest = rest[:i]
		}
		name = rest
	} else if i := strings.IndexByte(name, ';'); i >= 0 {
		name = name[:i]
	}
	name = strings.ReplaceAll(strings.TrimSpace(name), `"`, "")
	if name == "" {
		return "", ErrMissingFilename
	}
	return name, nil
}

// SubmitAndStream posts fields url-encoded and streams the response body
// into destinationDir, under the name given by the response's
// Content-Disposition header. An existing file with that name is
// overwritten. The written path is returned.
func (s *Session) SubmitAndStream(ctx context.Context, url string, fields form.Fields, destinationDir string) (string, error) {
	ctx, span := tracer.Start(ctx, "SubmitAndStream")
	defer span.End()

	if s.closed.Load() {
		return "", ErrSessionClosed
	}

	res, err := s.http.R().
		SetContext(ctx).
		SetFormData(fields).
		SetDoNotParseResponse(true).
		Post(url)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to submit form")
		return "", err
	}
	body := res.RawBody()
	defer body.Close()
	defer func() {
		for _, finish := range s.afterStream {
			finish(s.http, res)
		}
	}()

	err = s.checkStatus(res)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	filename, err := DispositionFilename(res.Header().Get("content-disposition"))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	path := filepath.Join(destinationDir, filename)
	span.SetAttributes(attribute.String("path", path))

	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create output file")
		return "", err
	}
	written, err := io.Copy(out, body)
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to stream response")
		return "", fmt.Errorf("stream %s: %w", path, err)
	}

	span.SetAttributes(attribute.Int64("bytes", written))
	slog.DebugContext(ctx, "streamed response to disk", "path", path, "bytes", written)
	return path, nil
}

// Close releases the idle connections of the session, calling it more than
// once does nothing.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.http.GetClient().CloseIdleConnections()
	})
	return nil
}
