package commands

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"esic-scraper/lib/esic/records"
	"esic-scraper/lib/recordstore"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"
)

const pedidos = `<?xml version="1.0" encoding="utf-8"?>
<Raiz>
	<Pedido IdPedido="1" ProtocoloPedido="00075000001201611" Situacao="Respondido"/>
	<Pedido IdPedido="2" ProtocoloPedido="00075000002201611" Situacao="Em Tramitação"/>
</Raiz>`

func run(t testing.TB, args ...string) string {
	out := bytes.NewBuffer(nil)
	rootCmd.SetOut(out)
	rootCmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "esic.json5")}, args...))
	err := rootCmd.ExecuteContext(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	return out.String()
}

func writeFile(t testing.TB, dir, name, contents string) string {
	path := filepath.Join(dir, name)
	err := os.WriteFile(path, []byte(contents), 0644)
	if err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseCommand(t *testing.T) {
	path := writeFile(t, t.TempDir(), "20200101_Pedidos_xml_2016.xml", pedidos)

	out := run(t, "parse", path, "--limit", "1")
	require.Contains(t, out, "20200101_Pedidos_xml_2016.xml")
	require.Contains(t, out, "IdPedido: 1")
	require.NotContains(t, out, "IdPedido: 2")

	out = run(t, "parse", path, "--limit", "0")
	require.Contains(t, out, "Situacao: Em Tramitação")
}

func TestLoadCommand(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "20200101_Pedidos_xml_2016.xml", pedidos)
	dbPath := filepath.Join(dir, "records.db")

	out := run(t, "load", path, "--db", dbPath)
	require.Contains(t, out, "20200101_Pedidos_xml_2016.xml")

	db, err := recordstore.Config{File: dbPath}.OpenDB()
	require.NoError(t, err)
	defer db.Close()

	count, err := recordstore.NewStore(db).Count(context.Background(), records.KindPedido)
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestDownloadCommand(t *testing.T) {
	archive := bytes.NewBuffer(nil)
	w := zip.NewWriter(archive)
	entry, err := w.Create("20200101_Pedidos_xml_2016.xml")
	require.NoError(t, err)
	_, err = entry.Write([]byte(pedidos))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.Write([]byte(`<input type="hidden" name="__VIEWSTATE" value="vs">`))
			return
		}
		w.Header().Set("Content-Disposition", `attachment; filename="Arquivos_xml_2016.zip"`)
		w.Write(archive.Bytes())
	}))
	defer server.Close()

	dir := t.TempDir()
	configPath := writeFile(t, dir, "esic.json5", fmt.Sprintf(`{
		// tests talk to a local fake of the portal
		download: { form_url: %q },
		portal: { requests_per_second: 100 },
	}`, server.URL))

	out := bytes.NewBuffer(nil)
	rootCmd.SetOut(out)
	rootCmd.SetArgs([]string{
		"--config", configPath,
		"download", "--year", "2016", "--out", dir, "--delete-zip",
	})
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))

	require.Equal(t, filepath.Join(dir, "download_xml", "20200101_Pedidos_xml_2016.xml")+"\n", out.String())
	require.NoFileExists(t, filepath.Join(dir, "Arquivos_xml_2016.zip"))
}
