package poller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jmurray2011/ddlogs/internal/datadog"
	"github.com/jmurray2011/ddlogs/internal/output"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// at returns a timestamp n seconds after the test epoch.
func at(n int) time.Time {
	return base.Add(time.Duration(n) * time.Second)
}

// entry builds a log whose content carries the given timestamp.
func entry(id string, ts time.Time) datadog.Log {
	content := fmt.Sprintf(`{"timestamp":%q,"message":%q}`, ts.Format(time.RFC3339), id)
	return datadog.Log{ID: id, Content: json.RawMessage(content)}
}

// tickResult scripts one ListLogs call of the fake client.
type tickResult struct {
	logs []datadog.Log
	err  error
}

// fakeClient returns scripted results and records every request.
type fakeClient struct {
	script   []tickResult
	requests []datadog.ListRequest
}

func (f *fakeClient) ListLogs(_ context.Context, req datadog.ListRequest) ([]datadog.Log, error) {
	f.requests = append(f.requests, req)
	if len(f.script) == 0 {
		return nil, nil
	}
	next := f.script[0]
	f.script = f.script[1:]
	return next.logs, next.err
}

// fakeReporter records warnings instead of printing them.
type fakeReporter struct {
	warnings []string
}

func (f *fakeReporter) Warning(format string, args ...any) {
	f.warnings = append(f.warnings, fmt.Sprintf(format, args...))
}

// harness drives Follow with a synthetic clock. Each tick consumes one
// "now" value; the sleep function cancels the loop once the script of now
// values runs out.
type harness struct {
	client   *fakeClient
	reporter *fakeReporter
	buf      bytes.Buffer
	nows     []time.Time
	idx      int
}

func newHarness(script []tickResult, nows []time.Time) *harness {
	return &harness{
		client:   &fakeClient{script: script},
		reporter: &fakeReporter{},
		nows:     nows,
	}
}

func (h *harness) run(t *testing.T) {
	t.Helper()

	now := func() time.Time {
		if h.idx >= len(h.nows) {
			t.Fatalf("clock exhausted after %d reads", h.idx)
		}
		n := h.nows[h.idx]
		h.idx++
		return n
	}
	sleep := func(ctx context.Context, d time.Duration) error {
		if d != DefaultInterval {
			t.Errorf("sleep duration = %v, want fixed %v", d, DefaultInterval)
		}
		if h.idx >= len(h.nows) {
			return context.Canceled
		}
		return nil
	}

	p := New(h.client, output.NewWriter(&h.buf), h.reporter, Options{
		Query: "*",
		Limit: 100,
		Now:   now,
		Sleep: sleep,
	})
	if err := p.Follow(context.Background()); err != nil {
		t.Fatalf("Follow() error = %v", err)
	}
}

// emitted returns the IDs printed to stdout, in order.
func (h *harness) emitted(t *testing.T) []string {
	t.Helper()
	out := strings.TrimRight(h.buf.String(), "\n")
	if out == "" {
		return nil
	}
	var ids []string
	for _, line := range strings.Split(out, "\n") {
		var l datadog.Log
		if err := json.Unmarshal([]byte(line), &l); err != nil {
			t.Fatalf("output line is not valid JSON: %v: %s", err, line)
		}
		ids = append(ids, l.ID)
	}
	return ids
}

func TestFollowBackfillThenSuppress(t *testing.T) {
	// Backfill at t=100 returns 95 and 98 (newest-first, as the API may
	// serve); both are emitted oldest-first and the cursor lands on 98.
	// The next tick queries from=98 and gets 98 again plus 101; only 101
	// may be printed.
	h := newHarness(
		[]tickResult{
			{logs: []datadog.Log{entry("b", at(98)), entry("a", at(95))}},
			{logs: []datadog.Log{entry("b", at(98)), entry("c", at(101))}},
		},
		[]time.Time{at(100), at(103)},
	)
	h.run(t)

	got := h.emitted(t)
	want := []string{"a", "b", "c"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("emitted = %v, want %v", got, want)
	}

	reqs := h.client.requests
	if len(reqs) != 2 {
		t.Fatalf("got %d requests, want 2", len(reqs))
	}
	if !reqs[0].Time.From.Equal(at(100).Add(-DefaultLookback)) || !reqs[0].Time.To.Equal(at(100)) {
		t.Errorf("backfill window = %v..%v, want lookback up to t=100", reqs[0].Time.From, reqs[0].Time.To)
	}
	if !reqs[1].Time.From.Equal(at(98)) {
		t.Errorf("tick 2 from = %v, want cursor t=98", reqs[1].Time.From)
	}
	if reqs[1].Sort != datadog.SortAscending {
		t.Errorf("tick 2 sort = %q, want asc", reqs[1].Sort)
	}
}

func TestFollowCursorNonDecreasing(t *testing.T) {
	h := newHarness(
		[]tickResult{
			{logs: []datadog.Log{entry("a", at(10))}},
			{logs: []datadog.Log{entry("b", at(20))}},
			{logs: nil}, // empty tick advances cursor to its upper bound
			{logs: []datadog.Log{entry("c", at(55))}},
		},
		[]time.Time{at(12), at(24), at(36), at(60)},
	)
	h.run(t)

	var prev time.Time
	for i, req := range h.client.requests {
		if req.Time.From.Before(prev) {
			t.Errorf("request %d from = %v, regressed below %v", i, req.Time.From, prev)
		}
		prev = req.Time.From
	}

	// After the empty tick at t=36 the window lower bound must be t=36.
	if got := h.client.requests[3].Time.From; !got.Equal(at(36)) {
		t.Errorf("post-empty-tick from = %v, want t=36", got)
	}
}

func TestFollowFailedTickLeavesCursor(t *testing.T) {
	h := newHarness(
		[]tickResult{
			{logs: []datadog.Log{entry("a", at(10))}},
			{err: errors.New("boom")},
			{logs: []datadog.Log{entry("b", at(20))}},
		},
		[]time.Time{at(12), at(24), at(36)},
	)
	h.run(t)

	if got := h.emitted(t); strings.Join(got, ",") != "a,b" {
		t.Errorf("emitted = %v, want [a b]", got)
	}
	if len(h.reporter.warnings) != 1 {
		t.Fatalf("warnings = %v, want exactly one", h.reporter.warnings)
	}

	// The failed tick at t=24 must not move the cursor: the retry window
	// still starts at the last emitted timestamp.
	reqs := h.client.requests
	if !reqs[1].Time.From.Equal(at(10)) || !reqs[2].Time.From.Equal(at(10)) {
		t.Errorf("from after failure = %v then %v, want t=10 both times", reqs[1].Time.From, reqs[2].Time.From)
	}
}

func TestFollowEmptyBackfillStartsAtNow(t *testing.T) {
	h := newHarness(
		[]tickResult{
			{logs: nil},
			{logs: nil},
		},
		[]time.Time{at(0), at(12)},
	)
	h.run(t)

	if got := h.emitted(t); got != nil {
		t.Errorf("emitted = %v, want nothing", got)
	}
	if got := h.client.requests[1].Time.From; !got.Equal(at(0)) {
		t.Errorf("first poll from = %v, want backfill time t=0", got)
	}
}

func TestFollowBackfillFailureIsFatal(t *testing.T) {
	client := &fakeClient{script: []tickResult{{err: errors.New("denied")}}}
	var buf bytes.Buffer
	p := New(client, output.NewWriter(&buf), &fakeReporter{}, Options{Query: "*"})

	if err := p.Follow(context.Background()); err == nil {
		t.Fatal("Follow() should fail when the initial backfill fails")
	}
}

func TestFollowEntriesWithoutTimestamps(t *testing.T) {
	// Entries lacking a parseable timestamp can't be deduplicated; they
	// are printed and the cursor falls back to the query bound.
	noTs := datadog.Log{ID: "x", Content: json.RawMessage(`{"message":"no ts"}`)}
	h := newHarness(
		[]tickResult{
			{logs: []datadog.Log{noTs}},
			{logs: nil},
		},
		[]time.Time{at(50), at(62)},
	)
	h.run(t)

	if got := h.emitted(t); strings.Join(got, ",") != "x" {
		t.Errorf("emitted = %v, want [x]", got)
	}
	if got := h.client.requests[1].Time.From; !got.Equal(at(50)) {
		t.Errorf("poll from = %v, want t=50", got)
	}
}

func TestFetchPreservesAPIOrder(t *testing.T) {
	// One-shot mode prints whatever order the server chose.
	client := &fakeClient{script: []tickResult{
		{logs: []datadog.Log{entry("newer", at(9)), entry("older", at(3))}},
	}}
	var buf bytes.Buffer
	p := New(client, output.NewWriter(&buf), &fakeReporter{}, Options{Query: "*", Limit: 2})

	if err := p.Fetch(context.Background(), at(0), at(10)); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 || !strings.Contains(lines[0], "newer") || !strings.Contains(lines[1], "older") {
		t.Errorf("Fetch() output reordered entries:\n%s", buf.String())
	}

	req := client.requests[0]
	if req.Limit != 2 || !req.Time.From.Equal(at(0)) || !req.Time.To.Equal(at(10)) {
		t.Errorf("request = %+v, want limit 2 over t=0..10", req)
	}
}

func TestFetchPropagatesError(t *testing.T) {
	client := &fakeClient{script: []tickResult{{err: errors.New("bad gateway")}}}
	var buf bytes.Buffer
	p := New(client, output.NewWriter(&buf), &fakeReporter{}, Options{Query: "*"})

	if err := p.Fetch(context.Background(), at(0), at(10)); err == nil {
		t.Fatal("Fetch() should propagate API errors")
	}
	if buf.Len() != 0 {
		t.Errorf("Fetch() wrote output despite error: %s", buf.String())
	}
}
