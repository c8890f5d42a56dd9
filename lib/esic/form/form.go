package form

import (
	"bytes"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
)

// Fields maps an input's name to its value, ready to be posted back
// as an url-encoded form.
type Fields map[string]string

// Clone returns a copy that can be mutated without touching f.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// ExtractFields decodes content with the named text encoding and collects
// name -> value for every <input> carrying both attributes, in document
// order (later duplicates win). The html parser is lenient, broken markup
// only yields fewer fields.
func ExtractFields(content []byte, encoding string) (Fields, error) {
	reader, err := charset.NewReaderLabel(encoding, bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("decode %q: %w", encoding, err)
	}
	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	fields := Fields{}
	doc.Find("input").Each(func(_ int, input *goquery.Selection) {
		name, ok := input.Attr("name")
		if !ok {
			return
		}
		value, ok := input.Attr("value")
		if !ok {
			return
		}
		fields[name] = value
	})
	return fields, nil
}
