package history

import "fmt"

type backfillConfig struct {
	end    int
	hasEnd bool
}

// Option configures Backfill.
type Option func(*backfillConfig)

// WithEnd extends the series with its last value through t inclusive.
func WithEnd(t int) Option {
	return func(c *backfillConfig) {
		c.end = t
		c.hasEnd = true
	}
}

// Backfill densifies a sparse step function. Every integer time between the
// first point and the last (or the end set by WithEnd) gets a point holding
// the most recent count. Backfilling a dense series returns it unchanged.
func Backfill(points []Point, opts ...Option) ([]Point, error) {
	var cfg backfillConfig
	for _, o := range opts {
		o(&cfg)
	}
	if len(points) == 0 {
		return nil, nil
	}
	for i := 1; i < len(points); i++ {
		if points[i].Time <= points[i-1].Time {
			return nil, fmt.Errorf("point %d at %d after %d: %w", i, points[i].Time, points[i-1].Time, ErrNotIncreasing)
		}
	}

	last := points[len(points)-1].Time
	size := last - points[0].Time + 1
	if cfg.hasEnd && cfg.end > last {
		size += cfg.end - last
	}
	out := make([]Point, 0, size)

	for i, p := range points {
		out = append(out, p)
		if i+1 == len(points) {
			break
		}
		for t := p.Time + 1; t < points[i+1].Time; t++ {
			out = append(out, Point{Time: t, Key: p.Key, Count: p.Count})
		}
	}
	if cfg.hasEnd {
		tail := points[len(points)-1]
		for t := last + 1; t <= cfg.end; t++ {
			out = append(out, Point{Time: t, Key: tail.Key, Count: tail.Count})
		}
	}
	return out, nil
}

// Collapse makes a raw engine series strictly increasing in time. A point
// whose time falls behind its predecessor is pinned to the predecessor's time,
// and points sharing a time are merged with the last count winning.
func Collapse(points []Point) []Point {
	out := make([]Point, 0, len(points))
	for _, p := range points {
		if n := len(out); n > 0 {
			prev := out[n-1]
			if p.Time <= prev.Time {
				p.Time = prev.Time
				out[n-1] = p
				continue
			}
		}
		out = append(out, p)
	}
	return out
}

// Offset returns a copy of points shifted by dt in time and dc in count.
func Offset(points []Point, dt, dc int) []Point {
	out := make([]Point, len(points))
	for i, p := range points {
		out[i] = Point{Time: p.Time + dt, Key: p.Key, Count: p.Count + dc}
	}
	return out
}

// Intervals returns the gaps between consecutive time indices.
func Intervals(points []Point) []int {
	if len(points) < 2 {
		return nil
	}
	out := make([]int, len(points)-1)
	for i := 1; i < len(points); i++ {
		out[i-1] = points[i].Time - points[i-1].Time
	}
	return out
}
