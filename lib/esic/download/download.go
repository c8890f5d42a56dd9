// Package download fetches and extracts the yearly export archives of the
// portal. Extracted files are selected by extension ignoring case, so
// FormatXML also yields `.XML` files.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"esic-scraper/lib/esic/archive"
	"esic-scraper/lib/esic/form"
	"esic-scraper/lib/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("esic.lib.esic.download")

const (
	DefaultFormURL     = "http://www.consultaesic.cgu.gov.br/busca/_layouts/15/DownloadPedidos/DownloadDados.aspx"
	DefaultEncoding    = "utf-8"
	DefaultYearField   = "ctl00$PlaceHolderMain$ddlAno"
	DefaultFormatField = "ctl00$PlaceHolderMain$ddlFormato"
	DefaultMinYear     = 2015
)

var ErrUnknownFormat = errors.New("unknown file format")

type FileFormat string

const (
	FormatCSV FileFormat = "CSV"
	FormatXML FileFormat = "XML"
)

// ParseFileFormat accepts the format name in any case.
func ParseFileFormat(s string) (FileFormat, error) {
	switch FileFormat(strings.ToUpper(strings.TrimSpace(s))) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatXML:
		return FormatXML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

func (f FileFormat) extension() string {
	return "." + strings.ToLower(string(f))
}

// InvalidYearError is returned for years the portal has no data for.
type InvalidYearError struct {
	Year int
	Min  int
}

func (e *InvalidYearError) Error() string {
	return fmt.Sprintf("year must be %d or later, got %d", e.Min, e.Year)
}

// Session is the part of portal.Session the downloader needs.
type Session interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
	SubmitAndStream(ctx context.Context, url string, fields form.Fields, destinationDir string) (string, error)
}

type Options struct {
	FormURL     string
	Encoding    string
	YearField   string
	FormatField string
	MinYear     int
}

func (o Options) withDefaults() Options {
	if o.FormURL == "" {
		o.FormURL = DefaultFormURL
	}
	if o.Encoding == "" {
		o.Encoding = DefaultEncoding
	}
	if o.YearField == "" {
		o.YearField = DefaultYearField
	}
	if o.FormatField == "" {
		o.FormatField = DefaultFormatField
	}
	if o.MinYear == 0 {
		o.MinYear = DefaultMinYear
	}
	return o
}

type Request struct {
	Year        int
	Format      FileFormat
	Destination string
	// DeleteArchive removes the downloaded zip once it was extracted.
	DeleteArchive bool
}

type Downloader struct {
	session Session
	opts    Options
}

func New(session Session, opts Options) Downloader {
	return Downloader{
		session: session,
		opts:    opts.withDefaults(),
	}
}

// Download fetches the export form, submits it for the requested year and
// format, extracts the served archive and returns the extracted files of
// that format. Steps run strictly in order, nothing is retried.
func (d Downloader) Download(ctx context.Context, req Request) (FileSet, error) {
	ctx, span := tracer.Start(ctx, "Download")
	defer span.End()

	span.SetAttributes(
		attribute.Int("year", req.Year),
		attribute.String("format", string(req.Format)),
	)

	if req.Year < d.opts.MinYear {
		err := &InvalidYearError{Year: req.Year, Min: d.opts.MinYear}
		span.SetStatus(codes.Error, err.Error())
		return FileSet{}, err
	}
	format, err := ParseFileFormat(string(req.Format))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return FileSet{}, err
	}

	fail := func(err error, description string) (FileSet, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, description)
		return FileSet{}, err
	}

	page, err := d.session.Fetch(ctx, d.opts.FormURL)
	if err != nil {
		return fail(err, "failed to fetch form")
	}
	fields, err := form.ExtractFields(page, d.opts.Encoding)
	if err != nil {
		return fail(err, "failed to read form")
	}
	fields[d.opts.YearField] = strconv.Itoa(req.Year)
	fields[d.opts.FormatField] = string(format)

	err = os.MkdirAll(req.Destination, 0755)
	if err != nil {
		return fail(err, "failed to create destination")
	}

	archivePath, err := d.session.SubmitAndStream(ctx, d.opts.FormURL, fields, req.Destination)
	if err != nil {
		return fail(err, "failed to download archive")
	}
	slog.DebugContext(ctx, "downloaded archive", "path", archivePath, "year", req.Year, "format", format)

	extractDir := filepath.Join(req.Destination, "download_"+strings.ToLower(string(format)))
	_, extractSpan := tracer.Start(ctx, "Extract")
	extractSpan.SetAttributes(attribute.String("archive", archivePath))
	_, err = archive.Extract(archivePath, extractDir)
	if err != nil {
		extractSpan.RecordError(err)
		extractSpan.SetStatus(codes.Error, "failed to extract archive")
	}
	extractSpan.End()
	if err != nil {
		return fail(err, "failed to extract archive")
	}

	if req.DeleteArchive {
		err = os.Remove(archivePath)
		if err != nil {
			return fail(err, "failed to delete archive")
		}
	}

	return FileSet{Dir: extractDir, Format: format}, nil
}

func (d Downloader) DownloadXML(ctx context.Context, year int, destination string, deleteArchive bool) (FileSet, error) {
	return d.Download(ctx, Request{
		Year:          year,
		Format:        FormatXML,
		Destination:   destination,
		DeleteArchive: deleteArchive,
	})
}

func (d Downloader) DownloadCSV(ctx context.Context, year int, destination string, deleteArchive bool) (FileSet, error) {
	return d.Download(ctx, Request{
		Year:          year,
		Format:        FormatCSV,
		Destination:   destination,
		DeleteArchive: deleteArchive,
	})
}

// FileSet names the extracted files of one format, only the top level of
// Dir is considered.
type FileSet struct {
	Dir    string
	Format FileFormat
}

const readDirBatch = 64

// All lists the matching files in directory order. The directory is read
// when the sequence is iterated, in batches.
func (s FileSet) All() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		dir, err := os.Open(s.Dir)
		if err != nil {
			yield("", err)
			return
		}
		defer dir.Close()

		ext := s.Format.extension()
		for {
			entries, err := dir.ReadDir(readDirBatch)
			for _, entry := range entries {
				if entry.IsDir() {
					continue
				}
				if strings.ToLower(filepath.Ext(entry.Name())) != ext {
					continue
				}
				if !yield(filepath.Join(s.Dir, entry.Name()), nil) {
					return
				}
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					yield("", err)
				}
				return
			}
		}
	}
}

// Paths collects All into a slice.
func (s FileSet) Paths() ([]string, error) {
	var paths []string
	for path, err := range s.All() {
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
