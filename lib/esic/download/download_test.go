package download

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"
	"testing"

	"esic-scraper/lib/esic/form"
	"esic-scraper/lib/esic/portal"
	"esic-scraper/lib/telemetry"

	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"
)

const formPage = `<html><body><form method="post">
<input type="hidden" name="__VIEWSTATE" value="vs">
<input type="hidden" name="__EVENTVALIDATION" value="ev">
<input name="ctl00$PlaceHolderMain$ddlAno" value="2020">
<input type="submit" name="ctl00$PlaceHolderMain$btnDownload" value="Baixar">
</form></body></html>`

func zipBytes(t testing.TB, entries map[string]string) []byte {
	buf := bytes.NewBuffer(nil)
	w := zip.NewWriter(buf)
	for name, contents := range entries {
		entry, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		_, err = entry.Write([]byte(contents))
		if err != nil {
			t.Fatal(err)
		}
	}
	err := w.Close()
	if err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

type fakePortal struct {
	server   *httptest.Server
	requests atomic.Int32
	posted   form.Fields
}

func newFakePortal(t testing.TB, page string, archiveName string, archive []byte) *fakePortal {
	p := &fakePortal{}
	p.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.requests.Add(1)
		switch r.Method {
		case http.MethodGet:
			w.Write([]byte(page))
		case http.MethodPost:
			r.ParseForm()
			p.posted = form.Fields{}
			for k := range r.PostForm {
				p.posted[k] = r.PostForm.Get(k)
			}
			w.Header().Set("Content-Disposition", `attachment; filename="`+archiveName+`"`)
			w.Write(archive)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}))
	t.Cleanup(p.server.Close)
	return p
}

func newTestDownloader(t testing.TB, formURL string) Downloader {
	session, err := portal.New(portal.Options{})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { session.Close() })
	return New(session, Options{FormURL: formURL})
}

func TestDownloadXML(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:esic/download")
	defer cleanup()

	fake := newFakePortal(t, formPage, "Arquivos_xml_2016.zip", zipBytes(t, map[string]string{
		"20200101_Pedidos_xml_2016.xml":      "<Raiz/>",
		"20200101_Recursos_xml_2016.XML":     "<Raiz/>",
		"20200101_Solicitantes_xml_2016.xml": "<Raiz/>",
		"LEIAME.txt":                         "readme",
	}))
	downloader := newTestDownloader(t, fake.server.URL)
	dest := filepath.Join(t.TempDir(), "out")

	files, err := downloader.DownloadXML(context.Background(), 2016, dest, false)
	require.NoError(t, err)

	expectedFields := form.Fields{
		"__VIEWSTATE":                       "vs",
		"__EVENTVALIDATION":                 "ev",
		"ctl00$PlaceHolderMain$ddlAno":      "2016",
		"ctl00$PlaceHolderMain$btnDownload": "Baixar",
		"ctl00$PlaceHolderMain$ddlFormato":  "XML",
	}
	if diff := cmp.Diff(expectedFields, fake.posted); diff != "" {
		t.Fatal(diff)
	}
	require.Equal(t, int32(2), fake.requests.Load())

	paths, err := files.Paths()
	require.NoError(t, err)
	sort.Strings(paths)

	extracted := filepath.Join(dest, "download_xml")
	require.Equal(t, []string{
		filepath.Join(extracted, "20200101_Pedidos_xml_2016.xml"),
		filepath.Join(extracted, "20200101_Recursos_xml_2016.XML"),
		filepath.Join(extracted, "20200101_Solicitantes_xml_2016.xml"),
	}, paths)

	require.FileExists(t, filepath.Join(dest, "Arquivos_xml_2016.zip"))
	require.FileExists(t, filepath.Join(extracted, "LEIAME.txt"))
}

func TestDownloadDeleteArchive(t *testing.T) {
	fake := newFakePortal(t, formPage, "Arquivos_csv_2016.zip", zipBytes(t, map[string]string{
		"20200101_Pedidos_csv_2016.csv": "1;2;3",
	}))
	downloader := newTestDownloader(t, fake.server.URL)
	dest := t.TempDir()

	files, err := downloader.DownloadCSV(context.Background(), 2016, dest, true)
	require.NoError(t, err)
	require.Equal(t, "CSV", fake.posted["ctl00$PlaceHolderMain$ddlFormato"])
	require.NoFileExists(t, filepath.Join(dest, "Arquivos_csv_2016.zip"))

	paths, err := files.Paths()
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dest, "download_csv", "20200101_Pedidos_csv_2016.csv")}, paths)
}

func TestDownloadInvalidYear(t *testing.T) {
	fake := newFakePortal(t, formPage, "unused.zip", nil)
	downloader := newTestDownloader(t, fake.server.URL)
	dest := filepath.Join(t.TempDir(), "never")

	_, err := downloader.DownloadXML(context.Background(), 2014, dest, false)
	var invalid *InvalidYearError
	require.True(t, errors.As(err, &invalid))
	require.Equal(t, 2014, invalid.Year)
	require.Equal(t, DefaultMinYear, invalid.Min)

	require.Equal(t, int32(0), fake.requests.Load())
	require.NoDirExists(t, dest)
}

func TestDownloadUnknownFormat(t *testing.T) {
	fake := newFakePortal(t, formPage, "unused.zip", nil)
	downloader := newTestDownloader(t, fake.server.URL)

	_, err := downloader.Download(context.Background(), Request{
		Year:        2016,
		Format:      "json",
		Destination: t.TempDir(),
	})
	require.ErrorIs(t, err, ErrUnknownFormat)
	require.Equal(t, int32(0), fake.requests.Load())
}

func TestDownloadEmptyForm(t *testing.T) {
	fake := newFakePortal(t, "<html><body>nothing here</body></html>", "Arquivos_xml_2017.zip", zipBytes(t, map[string]string{
		"LEIAME.txt": "readme",
	}))
	downloader := newTestDownloader(t, fake.server.URL)

	files, err := downloader.DownloadXML(context.Background(), 2017, t.TempDir(), false)
	require.NoError(t, err)
	require.Equal(t, form.Fields{
		"ctl00$PlaceHolderMain$ddlAno":     "2017",
		"ctl00$PlaceHolderMain$ddlFormato": "XML",
	}, fake.posted)

	count := 0
	for _, err := range files.All() {
		require.NoError(t, err)
		count++
	}
	require.Equal(t, 0, count)
}

func TestDownloadCorruptArchive(t *testing.T) {
	fake := newFakePortal(t, formPage, "Arquivos_xml_2016.zip", []byte("this is not a zip"))
	downloader := newTestDownloader(t, fake.server.URL)
	dest := t.TempDir()

	_, err := downloader.DownloadXML(context.Background(), 2016, dest, true)
	require.Error(t, err)
	// the partial download stays on disk
	require.FileExists(t, filepath.Join(dest, "Arquivos_xml_2016.zip"))
}

type stubSession struct {
	page     []byte
	fetchErr error
	submits  int
}

func (s *stubSession) Fetch(ctx context.Context, url string) ([]byte, error) {
	return s.page, s.fetchErr
}

func (s *stubSession) SubmitAndStream(ctx context.Context, url string, fields form.Fields, destinationDir string) (string, error) {
	s.submits++
	return "", errors.New("unreachable")
}

func TestDownloadFetchError(t *testing.T) {
	session := &stubSession{fetchErr: &portal.HttpError{Method: "GET", StatusCode: 503, Status: "503 Service Unavailable"}}
	downloader := New(session, Options{})

	_, err := downloader.DownloadXML(context.Background(), 2016, t.TempDir(), false)
	var httpErr *portal.HttpError
	require.True(t, errors.As(err, &httpErr))
	require.Equal(t, 503, httpErr.StatusCode)
	require.Equal(t, 0, session.submits)
}

func TestFileSetIsLazy(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "download_xml")
	files := FileSet{Dir: dir, Format: FormatXML}

	for _, err := range files.All() {
		require.ErrorIs(t, err, os.ErrNotExist)
	}

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested.xml"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.xml"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.csv"), nil, 0644))

	paths, err := files.Paths()
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, "a.xml")}, paths)
}

func TestParseFileFormat(t *testing.T) {
	for input, expected := range map[string]FileFormat{
		"xml": FormatXML,
		"XML": FormatXML,
		"Csv": FormatCSV,
	} {
		format, err := ParseFileFormat(input)
		require.NoError(t, err)
		require.Equal(t, expected, format)
	}

	_, err := ParseFileFormat("zip")
	require.ErrorIs(t, err, ErrUnknownFormat)
}
