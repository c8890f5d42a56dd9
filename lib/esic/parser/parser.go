// Package parser reads the records out of the extracted export files.
// Extensions are matched ignoring case, `Pedidos.XML` is read like
// `Pedidos.xml`.
package parser

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"esic-scraper/lib/esic/records"

	"golang.org/x/net/html/charset"
)

// ErrNotImplemented is returned for the csv exports, they quote fields
// inconsistently and cannot be split reliably.
var ErrNotImplemented = errors.New("csv exports are not supported")

// UnsupportedFileError is returned for files that do not follow the export
// naming convention.
type UnsupportedFileError struct {
	Path string
}

func (e *UnsupportedFileError) Error() string {
	return fmt.Sprintf("unsupported export file: %s", e.Path)
}

var kindMarkers = []struct {
	marker string
	kind   records.Kind
}{
	{marker: "_Pedidos_", kind: records.KindPedido},
	{marker: "_Recursos_", kind: records.KindRecurso},
	{marker: "_Solicitantes_", kind: records.KindSolicitante},
}

var supportedExtensions = []string{".xml", ".csv"}

// KindOf infers the record kind from the file name, it never touches the file.
func KindOf(path string) (records.Kind, error) {
	base := filepath.Base(path)

	ext := strings.ToLower(filepath.Ext(base))
	supported := false
	for _, e := range supportedExtensions {
		if ext == e {
			supported = true
			break
		}
	}
	if !supported {
		return 0, &UnsupportedFileError{Path: path}
	}

	for _, m := range kindMarkers {
		if strings.Contains(base, m.marker) {
			return m.kind, nil
		}
	}
	return 0, &UnsupportedFileError{Path: path}
}

// Open validates path and returns a sequence over its records. Nothing is
// read until the sequence is iterated, and every iteration reads the file
// again from the start. A decoding error ends the sequence with a zero
// record and the error.
func Open(path string) (iter.Seq2[records.RawRecord, error], error) {
	kind, err := KindOf(path)
	if err != nil {
		return nil, err
	}
	if strings.ToLower(filepath.Ext(path)) == ".csv" {
		return nil, ErrNotImplemented
	}

	return func(yield func(records.RawRecord, error) bool) {
		f, err := os.Open(path)
		if err != nil {
			yield(records.RawRecord{}, err)
			return
		}
		defer f.Close()

		for record, err := range Decode(f, kind) {
			if !yield(record, err) {
				return
			}
		}
	}, nil
}

// Decode streams the records of kind found in r, in document order.
// Attribute names are kept as written, prefixes included.
func Decode(r io.Reader, kind records.Kind) iter.Seq2[records.RawRecord, error] {
	return func(yield func(records.RawRecord, error) bool) {
		decoder := xml.NewDecoder(r)
		decoder.Strict = true
		decoder.CharsetReader = charset.NewReaderLabel

		tag := kind.Tag()
		var scopes namespaceScopes
		for {
			token, err := decoder.Token()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(records.RawRecord{}, fmt.Errorf("decode %s: %w", tag, err))
				return
			}

			switch token := token.(type) {
			case xml.EndElement:
				scopes.pop()
				continue
			case xml.StartElement:
				scopes.push(token.Attr)
				if token.Name.Local != tag {
					continue
				}

				attrs := make(map[string]string, len(token.Attr))
				for _, a := range token.Attr {
					attrs[scopes.attributeName(a.Name)] = a.Value
				}
				if !yield(records.NewRawRecord(kind, attrs), nil) {
					return
				}

				// records do not nest, skip whatever the element holds
				err = decoder.Skip()
				if err != nil {
					yield(records.RawRecord{}, fmt.Errorf("decode %s: %w", tag, err))
					return
				}
				scopes.pop()
			}
		}
	}
}

const xmlNamespace = "http://www.w3.org/XML/1998/namespace"

// namespaceScopes maps namespace urls back to the prefixes declared for
// them, one scope per open element.
type namespaceScopes []map[string]string

func (s *namespaceScopes) push(attrs []xml.Attr) {
	var scope map[string]string
	for _, a := range attrs {
		if a.Name.Space != "xmlns" {
			continue
		}
		if scope == nil {
			scope = map[string]string{}
		}
		if _, ok := scope[a.Value]; !ok {
			scope[a.Value] = a.Name.Local
		}
	}
	*s = append(*s, scope)
}

func (s *namespaceScopes) pop() {
	if len(*s) > 0 {
		*s = (*s)[:len(*s)-1]
	}
}

// the decoder resolves prefixes to namespace urls, undeclared prefixes are
// left as they are.
func (s namespaceScopes) attributeName(name xml.Name) string {
	switch name.Space {
	case "":
		return name.Local
	case "xmlns":
		return "xmlns:" + name.Local
	case xmlNamespace:
		return "xml:" + name.Local
	}
	for i := len(s) - 1; i >= 0; i-- {
		if prefix, ok := s[i][name.Space]; ok {
			return prefix + ":" + name.Local
		}
	}
	return name.Space + ":" + name.Local
}
