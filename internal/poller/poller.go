// Package poller implements the one-shot fetch and the follow-mode
// polling loop against the Datadog Logs API.
package poller

import (
	"context"
	"sort"
	"time"

	"github.com/jmurray2011/ddlogs/internal/datadog"
	"github.com/jmurray2011/ddlogs/internal/output"
)

const (
	// DefaultInterval respects Datadog's 300 requests/hour limit on the
	// logs list endpoint. The fixed interval is the only rate limiter.
	DefaultInterval = 12 * time.Second

	// DefaultLookback is the window of recent logs shown when a follow
	// session starts, and the default one-shot range.
	DefaultLookback = time.Hour
)

// Lister is the single API call the poller depends on. *datadog.Client
// satisfies it; tests inject fakes.
type Lister interface {
	ListLogs(ctx context.Context, req datadog.ListRequest) ([]datadog.Log, error)
}

// Reporter receives non-fatal follow-mode diagnostics. Implemented by
// ui.Renderer, which keeps error text off stdout.
type Reporter interface {
	Warning(format string, args ...any)
}

// Options configures a Poller. Now and Sleep exist so tests can drive
// many ticks without real time passing; zero values select the real
// clock.
type Options struct {
	Query    string
	Limit    int
	Interval time.Duration
	Lookback time.Duration
	Now      func() time.Time
	Sleep    func(ctx context.Context, d time.Duration) error
}

// Poller issues search requests and streams results to an output writer.
// It owns the follow-mode cursor; nothing else mutates it.
type Poller struct {
	client   Lister
	out      *output.Writer
	report   Reporter
	query    string
	limit    int
	interval time.Duration
	lookback time.Duration
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error

	// cursor is the max log timestamp seen so far; it seeds the lower
	// bound of the next follow-mode query. Monotonically non-decreasing.
	cursor time.Time
}

// New creates a Poller writing to out and reporting soft failures to report.
func New(client Lister, out *output.Writer, report Reporter, opts Options) *Poller {
	p := &Poller{
		client:   client,
		out:      out,
		report:   report,
		query:    opts.Query,
		limit:    opts.Limit,
		interval: opts.Interval,
		lookback: opts.Lookback,
		now:      opts.Now,
		sleep:    opts.Sleep,
	}
	if p.interval <= 0 {
		p.interval = DefaultInterval
	}
	if p.lookback <= 0 {
		p.lookback = DefaultLookback
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.sleep == nil {
		p.sleep = sleepContext
	}
	return p
}

// sleepContext blocks for d or until ctx is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (p *Poller) request(from, to time.Time) datadog.ListRequest {
	return datadog.ListRequest{
		Query: p.query,
		Time:  datadog.RequestTime{From: from, To: to},
		Sort:  datadog.SortAscending,
		Limit: p.limit,
	}
}

// Fetch runs a single query over [from, to) and prints every returned
// entry in the order the API returned it. Errors are fatal to the caller.
func (p *Poller) Fetch(ctx context.Context, from, to time.Time) error {
	logs, err := p.client.ListLogs(ctx, p.request(from, to))
	if err != nil {
		return err
	}
	for _, l := range logs {
		if err := p.out.WriteLog(l); err != nil {
			return err
		}
	}
	return nil
}

// Follow runs the polling loop until ctx is cancelled. It starts with a
// backfill of the lookback window, then repeatedly queries [cursor, now)
// after sleeping exactly the configured interval.
//
// A failed tick is reported and skipped; the cursor never moves on
// failure, so the next tick re-covers the same window. The loop has no
// backoff: the fixed interval is the throttling mechanism.
func (p *Poller) Follow(ctx context.Context) error {
	now := p.now()

	// Initial backfill. A failure here happens before any state exists
	// and is fatal, like one-shot mode.
	logs, err := p.client.ListLogs(ctx, p.request(now.Add(-p.lookback), now))
	if err != nil {
		return err
	}
	if err := p.emit(logs, now); err != nil {
		return err
	}
	if p.cursor.IsZero() {
		// Backfill entries carried no usable timestamps; poll forward
		// from the present.
		p.cursor = now
	}

	for {
		if err := p.sleep(ctx, p.interval); err != nil {
			return nil // cancelled; clean exit
		}

		now := p.now()
		logs, err := p.client.ListLogs(ctx, p.request(p.cursor, now))
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			p.report.Warning("poll failed: %v", err)
			continue
		}

		if err := p.emit(logs, now); err != nil {
			return err
		}
	}
}

// emit prints a batch in chronological order, suppressing entries at or
// before the cursor, and advances the cursor to the max timestamp seen.
// An empty batch advances the cursor to the query's upper bound so the
// window never grows without bound.
//
// Suppression is strictly greater-than on the timestamp: entries sharing
// the cursor's exact timestamp on a window boundary may repeat or be
// dropped. Accepted tradeoff of timestamp-based pagination.
func (p *Poller) emit(logs []datadog.Log, upperBound time.Time) error {
	if len(logs) == 0 {
		if upperBound.After(p.cursor) {
			p.cursor = upperBound
		}
		return nil
	}

	sortChronological(logs)

	before := p.cursor
	for _, l := range logs {
		ts, ok := l.Timestamp()
		if ok {
			if !ts.After(before) {
				continue // already seen
			}
			if ts.After(p.cursor) {
				p.cursor = ts
			}
		}
		if err := p.out.WriteLog(l); err != nil {
			return err
		}
	}
	return nil
}

// sortChronological orders a batch oldest-first. The API is asked for
// ascending order but typically serves newest-first on some endpoints, so
// the stream must be reordered before printing to read top-to-bottom.
func sortChronological(logs []datadog.Log) {
	sort.SliceStable(logs, func(i, j int) bool {
		ti, iok := logs[i].Timestamp()
		tj, jok := logs[j].Timestamp()
		if !iok || !jok {
			return false // keep relative order when timestamps are missing
		}
		return ti.Before(tj)
	})
}
