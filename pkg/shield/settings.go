package shield

import (
	"time"
)

// Settings controls how aggressively the planner obfuscates a query stream.
// Jitter bounds are in milliseconds so settings round-trip through JSON
// profile files unchanged.
type Settings struct {
	MaxLookupsPerHour int `json:"max_lookups_per_hour"`

	BatchMin int `json:"batch_min"`
	BatchMax int `json:"batch_max"`

	ChaffPerBatchMin int `json:"chaff_per_batch_min"`
	ChaffPerBatchMax int `json:"chaff_per_batch_max"`

	IntraBatchJitterMinMs int64 `json:"intra_batch_jitter_min_ms"`
	IntraBatchJitterMaxMs int64 `json:"intra_batch_jitter_max_ms"`

	InterBatchJitterMinMs int64 `json:"inter_batch_jitter_min_ms"`
	InterBatchJitterMaxMs int64 `json:"inter_batch_jitter_max_ms"`
}

// DefaultSettings returns the base every profile is merged over.
func DefaultSettings() Settings {
	return Settings{
		MaxLookupsPerHour:     120,
		BatchMin:              3,
		BatchMax:              6,
		ChaffPerBatchMin:      1,
		ChaffPerBatchMax:      3,
		IntraBatchJitterMinMs: 100,
		IntraBatchJitterMaxMs: 800,
		InterBatchJitterMinMs: 5_000,
		InterBatchJitterMaxMs: 30_000,
	}
}

// Validate checks every bound. Inverted ranges are rejected, never swapped.
func (s Settings) Validate() error {
	positive := []struct {
		field string
		v     int64
	}{
		{"max_lookups_per_hour", int64(s.MaxLookupsPerHour)},
		{"batch_min", int64(s.BatchMin)},
		{"batch_max", int64(s.BatchMax)},
	}
	for _, p := range positive {
		if p.v <= 0 {
			return &ConfigError{Field: p.field, Reason: "must be positive"}
		}
	}

	nonNegative := []struct {
		field string
		v     int64
	}{
		{"chaff_per_batch_min", int64(s.ChaffPerBatchMin)},
		{"chaff_per_batch_max", int64(s.ChaffPerBatchMax)},
		{"intra_batch_jitter_min_ms", s.IntraBatchJitterMinMs},
		{"intra_batch_jitter_max_ms", s.IntraBatchJitterMaxMs},
		{"inter_batch_jitter_min_ms", s.InterBatchJitterMinMs},
		{"inter_batch_jitter_max_ms", s.InterBatchJitterMaxMs},
	}
	for _, n := range nonNegative {
		if n.v < 0 {
			return &ConfigError{Field: n.field, Reason: "must not be negative"}
		}
	}

	ranges := []struct {
		field    string
		min, max int64
	}{
		{"batch_min", int64(s.BatchMin), int64(s.BatchMax)},
		{"chaff_per_batch_min", int64(s.ChaffPerBatchMin), int64(s.ChaffPerBatchMax)},
		{"intra_batch_jitter_min_ms", s.IntraBatchJitterMinMs, s.IntraBatchJitterMaxMs},
		{"inter_batch_jitter_min_ms", s.InterBatchJitterMinMs, s.InterBatchJitterMaxMs},
	}
	for _, r := range ranges {
		if r.min > r.max {
			return &ConfigError{Field: r.field, Reason: "exceeds its maximum"}
		}
	}

	// Every batch needs room for at least one real query, and a batch that
	// carries a single real query must still be paddable to batch_min.
	if s.ChaffPerBatchMin >= s.BatchMax {
		return &ConfigError{Field: "chaff_per_batch_min", Reason: "leaves no room for real queries under batch_max"}
	}
	if s.BatchMin > s.ChaffPerBatchMax+1 {
		return &ConfigError{Field: "batch_min", Reason: "cannot be reached with chaff_per_batch_max decoys"}
	}

	return nil
}

// IntraBatchJitter returns the initial-delay bounds as durations.
func (s Settings) IntraBatchJitter() (time.Duration, time.Duration) {
	return ms(s.IntraBatchJitterMinMs), ms(s.IntraBatchJitterMaxMs)
}

// InterBatchJitter returns the batch-gap bounds as durations.
func (s Settings) InterBatchJitter() (time.Duration, time.Duration) {
	return ms(s.InterBatchJitterMinMs), ms(s.InterBatchJitterMaxMs)
}

// realCapacity is the most real queries a single batch may carry.
func (s Settings) realCapacity() int {
	return min(s.BatchMax-s.ChaffPerBatchMin, s.MaxLookupsPerHour)
}

func ms(v int64) time.Duration {
	return time.Duration(v) * time.Millisecond
}

// Override is a partial Settings. Nil fields leave the base value in place.
type Override struct {
	MaxLookupsPerHour     *int   `json:"max_lookups_per_hour,omitempty"`
	BatchMin              *int   `json:"batch_min,omitempty"`
	BatchMax              *int   `json:"batch_max,omitempty"`
	ChaffPerBatchMin      *int   `json:"chaff_per_batch_min,omitempty"`
	ChaffPerBatchMax      *int   `json:"chaff_per_batch_max,omitempty"`
	IntraBatchJitterMinMs *int64 `json:"intra_batch_jitter_min_ms,omitempty"`
	IntraBatchJitterMaxMs *int64 `json:"intra_batch_jitter_max_ms,omitempty"`
	InterBatchJitterMinMs *int64 `json:"inter_batch_jitter_min_ms,omitempty"`
	InterBatchJitterMaxMs *int64 `json:"inter_batch_jitter_max_ms,omitempty"`
}

// Merge applies o over base field by field. Set fields win; the result is
// not validated.
func Merge(base Settings, o Override) Settings {
	out := base
	setInt(&out.MaxLookupsPerHour, o.MaxLookupsPerHour)
	setInt(&out.BatchMin, o.BatchMin)
	setInt(&out.BatchMax, o.BatchMax)
	setInt(&out.ChaffPerBatchMin, o.ChaffPerBatchMin)
	setInt(&out.ChaffPerBatchMax, o.ChaffPerBatchMax)
	setInt(&out.IntraBatchJitterMinMs, o.IntraBatchJitterMinMs)
	setInt(&out.IntraBatchJitterMaxMs, o.IntraBatchJitterMaxMs)
	setInt(&out.InterBatchJitterMinMs, o.InterBatchJitterMinMs)
	setInt(&out.InterBatchJitterMaxMs, o.InterBatchJitterMaxMs)
	return out
}

// Then layers next over o, next winning where both are set.
func (o Override) Then(next Override) Override {
	out := o
	setPtr(&out.MaxLookupsPerHour, next.MaxLookupsPerHour)
	setPtr(&out.BatchMin, next.BatchMin)
	setPtr(&out.BatchMax, next.BatchMax)
	setPtr(&out.ChaffPerBatchMin, next.ChaffPerBatchMin)
	setPtr(&out.ChaffPerBatchMax, next.ChaffPerBatchMax)
	setPtr(&out.IntraBatchJitterMinMs, next.IntraBatchJitterMinMs)
	setPtr(&out.IntraBatchJitterMaxMs, next.IntraBatchJitterMaxMs)
	setPtr(&out.InterBatchJitterMinMs, next.InterBatchJitterMinMs)
	setPtr(&out.InterBatchJitterMaxMs, next.InterBatchJitterMaxMs)
	return out
}

func setInt[T int | int64](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func setPtr[T any](dst **T, v *T) {
	if v != nil {
		*dst = v
	}
}

// Ptr returns a pointer to v, for building Override literals.
func Ptr[T any](v T) *T {
	return &v
}
