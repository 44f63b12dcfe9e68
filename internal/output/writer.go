// Package output writes log entries as newline-delimited JSON.
package output

import (
	"encoding/json"
	"io"

	"github.com/jmurray2011/ddlogs/internal/datadog"
)

// Writer emits one JSON object per line. Nothing else is ever written to
// the underlying stream, so it stays pipeable into line-oriented JSON
// tools like jq.
type Writer struct {
	enc *json.Encoder
}

// NewWriter creates a Writer on top of w.
func NewWriter(w io.Writer) *Writer {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &Writer{enc: enc}
}

// WriteLog writes a single log entry as one line, content verbatim.
func (w *Writer) WriteLog(l datadog.Log) error {
	return w.enc.Encode(l)
}
