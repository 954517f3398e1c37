// Package slots computes the valid pickup/delivery time slots for an order
// given a vendor's preparation time. It is intentionally small and
// dependency-free, but engineered with production-grade ergonomics:
//
//   - No logging in the library (callers decide how/what to log)
//   - Pure computation: no clock access, no persistence, no shared state
//   - Deterministic output for a given (prepMinutes, now) pair
//   - Safe for any number of concurrent callers
//   - Sensible defaults (30-minute granularity, 21:00 day boundary)
//     with functional options for the day boundary
//
// Slots start at the first 30-minute wall-clock boundary at or after
// now+prepMinutes and stop strictly before the day boundary of now's
// calendar day. An empty result means "no slots available today" and is a
// normal outcome, not an error.
package slots

import "time"

// Interval is the fixed slot granularity.
const Interval = 30 * time.Minute

// Slot is a single fulfillment time option.
//
// Disabled is never set by this package; it is reserved for callers that
// post-filter slots (e.g., stock-aware or capacity-aware filtering) and is
// carried here so the wire shape stays stable.
type Slot struct {
	Value    time.Time `json:"value"`
	Label    string    `json:"label"`
	Disabled bool      `json:"disabled"`
}

// ----------------------------------------------------------------------------
// Options

type Option func(*config)

type config struct {
	boundaryHour int
	boundaryMin  int
}

func defaultConfig() config {
	return config{boundaryHour: 21, boundaryMin: 0}
}

// WithDayBoundary overrides the latest time of day (local to now's location)
// a slot may start. Out-of-range values are ignored.
func WithDayBoundary(hour, min int) Option {
	return func(c *config) {
		if hour >= 0 && hour <= 23 && min >= 0 && min <= 59 {
			c.boundaryHour = hour
			c.boundaryMin = min
		}
	}
}

// ----------------------------------------------------------------------------
// Generation

// Generate returns the ordered fulfillment slots for an order whose
// preparation takes prepMinutes, evaluated at the instant now.
//
// The earliest candidate is now+prepMinutes rounded up to the next 30-minute
// wall-clock boundary (an instant already exactly on a boundary is kept, not
// advanced). One slot is emitted per 30 minutes while the slot starts
// strictly before the day boundary of now's calendar day. Labels are the
// 24-hour HH:MM rendering of the slot start.
//
// All computation happens in now's Location; callers that need
// vendor-specific timezones pass a now already zoned accordingly.
func Generate(prepMinutes int, now time.Time, opts ...Option) []Slot {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	if prepMinutes < 0 {
		prepMinutes = 0
	}

	earliest := now.Add(time.Duration(prepMinutes) * time.Minute)
	start := roundUp(earliest)

	y, mo, d := now.Date()
	boundary := time.Date(y, mo, d, cfg.boundaryHour, cfg.boundaryMin, 0, 0, now.Location())

	out := []Slot{}
	for t := start; t.Before(boundary); t = t.Add(Interval) {
		out = append(out, Slot{
			Value: t,
			Label: t.Format("15:04"),
		})
	}
	return out
}

// roundUp returns the first 30-minute wall-clock boundary at or after t.
// Wall-clock arithmetic (rather than Truncate on the absolute timeline)
// keeps boundaries aligned in zones with non-hour UTC offsets.
func roundUp(t time.Time) time.Time {
	y, mo, d := t.Date()
	h, mi := t.Hour(), t.Minute()
	floor := time.Date(y, mo, d, h, mi-mi%30, 0, 0, t.Location())
	if floor.Before(t) {
		return floor.Add(Interval)
	}
	return floor
}
