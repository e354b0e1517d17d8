package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/marketfeed/internal/domain"
	"github.com/alanyoungcy/marketfeed/internal/metrics"
)

// Retention prunes markets the sync job has not refreshed within the
// retention window, so delisted markets stop being served from the store.
type Retention struct {
	markets   domain.MarketStore
	retention time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// NewRetention creates a Retention job.
func NewRetention(markets domain.MarketStore, retention time.Duration, logger *slog.Logger) *Retention {
	return &Retention{
		markets:   markets,
		retention: retention,
		logger:    logger.With(slog.String("component", "retention")),
		now:       time.Now,
	}
}

// Run deletes stale markets once and returns how many were removed.
func (r *Retention) Run(ctx context.Context) (int64, error) {
	cutoff := r.now().UTC().Add(-r.retention)
	n, err := r.markets.DeleteStale(ctx, cutoff)
	metrics.RecordDatabaseQuery("delete_stale", err)
	if err != nil {
		return 0, fmt.Errorf("retention: delete before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	r.logger.InfoContext(ctx, "pruned stale markets",
		slog.Int64("deleted", n),
		slog.Time("cutoff", cutoff),
	)
	return n, nil
}

// RunCron runs the job on a 5-field cron schedule (UTC) until ctx is
// cancelled, e.g. "0 4 * * *" for 04:00 daily.
func (r *Retention) RunCron(ctx context.Context, expr string) error {
	sched, err := parseCron(expr)
	if err != nil {
		return fmt.Errorf("retention: cron %q: %w", expr, err)
	}

	for {
		next, ok := sched.next(r.now().UTC())
		if !ok {
			return fmt.Errorf("retention: cron %q never fires", expr)
		}
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			if _, err := r.Run(ctx); err != nil {
				r.logger.ErrorContext(ctx, "retention run failed", slog.String("error", err.Error()))
			}
		}
	}
}

// --------------------------------------------------------------------------
// Cron schedule
// --------------------------------------------------------------------------

// cronField is the set of values one field admits.
type cronField map[int]bool

type cronSchedule struct {
	minute, hour, dom, month, dow cronField
}

var cronBounds = [5][2]int{{0, 59}, {0, 23}, {1, 31}, {1, 12}, {0, 6}}

// parseCron accepts "*", single values, lists, ranges "a-b" and steps
// "*/n" or "a-b/n" in each of the five fields.
func parseCron(expr string) (cronSchedule, error) {
	parts := strings.Fields(expr)
	if len(parts) != 5 {
		return cronSchedule{}, fmt.Errorf("want 5 fields, got %d", len(parts))
	}
	var fields [5]cronField
	for i, p := range parts {
		f, err := parseCronField(p, cronBounds[i][0], cronBounds[i][1])
		if err != nil {
			return cronSchedule{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		fields[i] = f
	}
	return cronSchedule{fields[0], fields[1], fields[2], fields[3], fields[4]}, nil
}

func parseCronField(s string, lo, hi int) (cronField, error) {
	out := cronField{}
	for _, term := range strings.Split(s, ",") {
		step := 1
		if base, stepStr, ok := strings.Cut(term, "/"); ok {
			n, err := strconv.Atoi(stepStr)
			if err != nil || n <= 0 {
				return nil, fmt.Errorf("bad step %q", term)
			}
			term, step = base, n
		}

		from, to := lo, hi
		switch {
		case term == "*":
		case strings.Contains(term, "-"):
			a, b, _ := strings.Cut(term, "-")
			var errA, errB error
			from, errA = strconv.Atoi(a)
			to, errB = strconv.Atoi(b)
			if errA != nil || errB != nil {
				return nil, fmt.Errorf("bad range %q", term)
			}
		default:
			n, err := strconv.Atoi(term)
			if err != nil {
				return nil, fmt.Errorf("bad value %q", term)
			}
			from, to = n, n
		}
		if from < lo || to > hi || from > to {
			return nil, fmt.Errorf("%q outside %d-%d", term, lo, hi)
		}
		for v := from; v <= to; v += step {
			out[v] = true
		}
	}
	return out, nil
}

func (c cronSchedule) matches(t time.Time) bool {
	return c.minute[t.Minute()] && c.hour[t.Hour()] && c.dom[t.Day()] &&
		c.month[int(t.Month())] && c.dow[int(t.Weekday())]
}

// next returns the first matching minute strictly after t, searching one
// year ahead.
func (c cronSchedule) next(t time.Time) (time.Time, bool) {
	candidate := t.Truncate(time.Minute).Add(time.Minute)
	limit := t.Add(366 * 24 * time.Hour)
	for candidate.Before(limit) {
		if c.matches(candidate) {
			return candidate, true
		}
		candidate = candidate.Add(time.Minute)
	}
	return time.Time{}, false
}
