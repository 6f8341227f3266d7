package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"
)

// PrintJSON serializes v to Stdout as JSON.
// If pretty is true, uses indentation; otherwise single-line.
func PrintJSON(v interface{}, pretty bool) error {
	enc := json.NewEncoder(Stdout)
	if pretty {
		enc.SetIndent("", "  ")
	}
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("json encode: %w", err)
	}
	return nil
}

// Notification is one line of the notification stream emitted by `attach`
// and `observe`.
type Notification struct {
	TS    int64       `json:"ts"`
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// LineWriter writes one compact JSON value per line. It is safe for
// concurrent use.
type LineWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
	now func() time.Time
}

// NewLineWriter creates a LineWriter on w.
func NewLineWriter(w io.Writer) *LineWriter {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &LineWriter{enc: enc, now: time.Now}
}

// Write encodes v as one line.
func (l *LineWriter) Write(v interface{}) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.enc.Encode(v); err != nil {
		return fmt.Errorf("json encode: %w", err)
	}
	return nil
}

// Notify writes a timestamped notification.
func (l *LineWriter) Notify(event string, data interface{}) error {
	return l.Write(Notification{TS: l.now().UnixMilli(), Event: event, Data: data})
}
