package datadog

import (
	"encoding/json"
	"time"
)

// Sort controls the ordering of returned logs.
type Sort string

const (
	SortAscending  Sort = "asc"
	SortDescending Sort = "desc"
)

// ListRequest is the body of a logs-queries/list call.
type ListRequest struct {
	Query string      `json:"query"`
	Time  RequestTime `json:"time"`
	Sort  Sort        `json:"sort,omitempty"`
	Limit int         `json:"limit,omitempty"`
}

// RequestTime is the half-open time range [From, To) of a search.
type RequestTime struct {
	From time.Time
	To   time.Time
}

// requestTimeFormat is RFC3339 with millisecond precision, which the API
// accepts for both bounds.
const requestTimeFormat = "2006-01-02T15:04:05.000Z07:00"

func (t RequestTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		From string `json:"from"`
		To   string `json:"to"`
	}{
		From: t.From.UTC().Format(requestTimeFormat),
		To:   t.To.UTC().Format(requestTimeFormat),
	})
}

func (t *RequestTime) UnmarshalJSON(data []byte) error {
	var raw struct {
		From string `json:"from"`
		To   string `json:"to"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	from, err := time.Parse(requestTimeFormat, raw.From)
	if err != nil {
		return err
	}
	to, err := time.Parse(requestTimeFormat, raw.To)
	if err != nil {
		return err
	}
	t.From = from
	t.To = to
	return nil
}

// Log is a single log record. The content payload is kept verbatim so
// output is field-for-field what the API returned.
type Log struct {
	ID      string          `json:"id,omitempty"`
	Content json.RawMessage `json:"content,omitempty"`
}

// Timestamp extracts the content's timestamp field. The second return is
// false when the field is absent or unparseable.
func (l Log) Timestamp() (time.Time, bool) {
	if len(l.Content) == 0 {
		return time.Time{}, false
	}
	var c struct {
		Timestamp time.Time `json:"timestamp"`
	}
	if err := json.Unmarshal(l.Content, &c); err != nil || c.Timestamp.IsZero() {
		return time.Time{}, false
	}
	return c.Timestamp, true
}

// listResponse is the body of a logs-queries/list response. NextLogID is
// ignored; pagination here is timestamp-based.
type listResponse struct {
	Logs   []Log  `json:"logs"`
	Status string `json:"status"`
}
