// Package singer writes the tap's output protocol: one JSON message per
// line, a SCHEMA message announcing each stream before its RECORD
// messages. Downstream loaders consume the lines from stdout.
package singer

import (
	"encoding/json"
	"io"
	"time"

	"github.com/tapstack/tap-tableau/internal/errors"
	"github.com/tapstack/tap-tableau/pkg/schema"
)

type schemaMessage struct {
	Type          string                 `json:"type"`
	Stream        string                 `json:"stream"`
	Schema        map[string]interface{} `json:"schema"`
	KeyProperties []string               `json:"key_properties"`
}

type recordMessage struct {
	Type          string     `json:"type"`
	Stream        string     `json:"stream"`
	Record        schema.Row `json:"record"`
	TimeExtracted string     `json:"time_extracted"`
}

// Writer emits messages to a single output. It is not safe for
// concurrent use; the extract command drains streams sequentially.
type Writer struct {
	enc *json.Encoder
	now func() time.Time
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{
		enc: json.NewEncoder(w),
		now: time.Now,
	}
}

// WriteSchema announces a stream. Emit it once, before the stream's
// first record.
func (w *Writer) WriteSchema(stream string, s *schema.Schema, keyProperties []string) error {
	var op errors.Op = "singer.Writer.WriteSchema"
	if keyProperties == nil {
		keyProperties = []string{}
	}
	msg := schemaMessage{
		Type:          "SCHEMA",
		Stream:        stream,
		Schema:        s.Document(),
		KeyProperties: keyProperties,
	}
	if err := w.enc.Encode(msg); err != nil {
		return errors.E(op, errors.KindInternal, err)
	}
	return nil
}

// WriteRecord emits one row of a previously announced stream.
func (w *Writer) WriteRecord(stream string, row schema.Row) error {
	var op errors.Op = "singer.Writer.WriteRecord"
	msg := recordMessage{
		Type:          "RECORD",
		Stream:        stream,
		Record:        row,
		TimeExtracted: w.now().UTC().Format("2006-01-02T15:04:05.000000Z"),
	}
	if err := w.enc.Encode(msg); err != nil {
		return errors.E(op, errors.KindInternal, err)
	}
	return nil
}

// CatalogEntry describes one stream in the discovery catalog.
type CatalogEntry struct {
	Stream        string                 `json:"stream"`
	TapStreamID   string                 `json:"tap_stream_id"`
	KeyProperties []string               `json:"key_properties"`
	Schema        map[string]interface{} `json:"schema"`
}

// Catalog is the discovery document the discover command writes.
type Catalog struct {
	Streams []CatalogEntry `json:"streams"`
}

// WriteCatalog emits the catalog as a single indented document rather
// than a message line.
func WriteCatalog(w io.Writer, catalog Catalog) error {
	var op errors.Op = "singer.WriteCatalog"
	if catalog.Streams == nil {
		catalog.Streams = []CatalogEntry{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(catalog); err != nil {
		return errors.E(op, errors.KindInternal, err)
	}
	return nil
}
