// Package history holds adoption histories: ordered (time, adopter count)
// series produced by the propagation engines, and the step-function
// arithmetic used to densify and stitch them.
package history

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrInconsistentTimeAxis is returned when histories that are meant to be
	// merged disagree on their time axis.
	ErrInconsistentTimeAxis = errors.New("history: inconsistent time axis")

	// ErrNotIncreasing is returned by Backfill for input whose times are not
	// strictly increasing.
	ErrNotIncreasing = errors.New("history: times not strictly increasing")
)

// Axis names the unit of the time index.
type Axis string

const (
	AxisOrder Axis = "order" // 1-based event ordinal, keyed by event year
	AxisDay   Axis = "day"   // days since the first event
	AxisTick  Axis = "tick"  // engine ticks of the projected engines
)

// KeyName returns the name of the key column that accompanies the axis, or ""
// when the axis carries no key.
func (a Axis) KeyName() string {
	if a == AxisOrder {
		return "year"
	}
	return ""
}

// IndexName returns the column name used for the time index in exports.
func (a Axis) IndexName() string {
	switch a {
	case AxisOrder:
		return "movie_order"
	case AxisDay:
		return "day"
	default:
		return "tick"
	}
}

// Point is one observation of the adopter count. Key is the secondary time
// label (the event year on the order axis) and is zero when unused.
type Point struct {
	Time  int `json:"time"`
	Key   int `json:"key,omitempty"`
	Count int `json:"count"`
}

// History is an adoption series on one axis. End, when positive, is the last
// time the series should be extended to when densified.
type History struct {
	Axis   Axis    `json:"axis"`
	Points []Point `json:"points"`
	End    int     `json:"end,omitempty"`
}

// Len returns the number of points.
func (h History) Len() int { return len(h.Points) }

// Final returns the last adopter count, or 0 for an empty history.
func (h History) Final() int {
	if len(h.Points) == 0 {
		return 0
	}
	return h.Points[len(h.Points)-1].Count
}

// Counts returns the adopter counts in order.
func (h History) Counts() []int {
	out := make([]int, len(h.Points))
	for i, p := range h.Points {
		out[i] = p.Count
	}
	return out
}

// Times returns the time indices in order.
func (h History) Times() []int {
	out := make([]int, len(h.Points))
	for i, p := range h.Points {
		out[i] = p.Time
	}
	return out
}

// Dense returns the history backfilled through End.
func (h History) Dense() (History, error) {
	var opts []Option
	if h.End > 0 {
		opts = append(opts, WithEnd(h.End))
	}
	pts, err := Backfill(h.Points, opts...)
	if err != nil {
		return History{}, err
	}
	return History{Axis: h.Axis, Points: pts, End: h.End}, nil
}

// Clone returns a deep copy.
func (h History) Clone() History {
	h.Points = slices.Clone(h.Points)
	return h
}

// CheckAxis verifies that other can be merged column-wise with h: same axis,
// same time indices and same keys.
func (h History) CheckAxis(other History) error {
	if h.Axis != other.Axis {
		return fmt.Errorf("axis %q vs %q: %w", h.Axis, other.Axis, ErrInconsistentTimeAxis)
	}
	if len(h.Points) != len(other.Points) {
		return fmt.Errorf("%d vs %d points: %w", len(h.Points), len(other.Points), ErrInconsistentTimeAxis)
	}
	for i := range h.Points {
		a, b := h.Points[i], other.Points[i]
		if a.Time != b.Time || a.Key != b.Key {
			return fmt.Errorf("point %d: (%d, %d) vs (%d, %d): %w", i, a.Time, a.Key, b.Time, b.Key, ErrInconsistentTimeAxis)
		}
	}
	return nil
}

// IsMonotonic reports whether counts never decrease.
func (h History) IsMonotonic() bool {
	for i := 1; i < len(h.Points); i++ {
		if h.Points[i].Count < h.Points[i-1].Count {
			return false
		}
	}
	return true
}
