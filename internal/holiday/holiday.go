// Package holiday loads a year's public holiday calendar and serves it as a
// read-only date lookup for calendar views.
package holiday

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"sync"
	"sync/atomic"
)

// DefaultURL is the public Taiwan government calendar mirror, keyed by year.
const DefaultURL = "https://cdn.jsdelivr.net/gh/ruyut/TaiwanCalendar/data/%d.json"

// ErrMalformed is returned when a holiday table cannot be decoded.
var ErrMalformed = errors.New("malformed holiday data")

// Entry is one day of the source calendar.
type Entry struct {
	Date        string `json:"date"`
	Week        string `json:"week,omitempty"`
	IsHoliday   bool   `json:"isHoliday"`
	Description string `json:"description"`
}

// Parse decodes a holiday table and keeps only days off, keyed YYYY-MM-DD.
// Entries whose date is not YYYYMMDD are skipped.
func Parse(r io.Reader) (map[string]string, error) {
	var entries []Entry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		if !e.IsHoliday {
			continue
		}
		key, ok := reformat(e.Date)
		if !ok {
			continue
		}
		out[key] = e.Description
	}
	return out, nil
}

func reformat(date string) (string, bool) {
	if len(date) != 8 {
		return "", false
	}
	for _, r := range date {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	return date[0:4] + "-" + date[4:6] + "-" + date[6:8], true
}

// Fetcher retrieves the holidays of a year.
type Fetcher interface {
	Fetch(ctx context.Context, year int) (map[string]string, error)
}

// Book is a concurrent-safe holiday table. Readers never block writers.
type Book struct {
	mu   sync.Mutex
	days atomic.Pointer[map[string]string]
}

// NewBook returns an empty book.
func NewBook() *Book {
	b := &Book{}
	empty := map[string]string{}
	b.days.Store(&empty)
	return b
}

// Lookup returns the holiday description for a YYYY-MM-DD date.
func (b *Book) Lookup(date string) (string, bool) {
	days := b.days.Load()
	if days == nil {
		return "", false
	}
	name, ok := (*days)[date]
	return name, ok
}

// Len returns the number of known holidays.
func (b *Book) Len() int {
	if days := b.days.Load(); days != nil {
		return len(*days)
	}
	return 0
}

// Add merges days into the book.
func (b *Book) Add(days map[string]string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	next := make(map[string]string)
	if cur := b.days.Load(); cur != nil {
		maps.Copy(next, *cur)
	}
	maps.Copy(next, days)
	b.days.Store(&next)
}

// Preload fetches the given years in the background and merges whatever
// arrives. Failures are logged and leave the book as it was. The returned
// channel is closed when all fetches have finished.
func (b *Book) Preload(ctx context.Context, f Fetcher, logger *slog.Logger, years ...int) <-chan struct{} {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, year := range years {
			days, err := f.Fetch(ctx, year)
			if err != nil {
				logger.Warn("holiday fetch failed", "year", year, "error", err)
				continue
			}
			b.Add(days)
			logger.Info("holidays loaded", "year", year, "count", len(days))
		}
	}()
	return done
}
