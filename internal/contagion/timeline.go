package contagion

import (
	"fmt"
	"time"

	"github.com/nvandessel/contagion/internal/history"
	"github.com/nvandessel/contagion/internal/network"
)

// timeline maps processed events to time indices for the temporal engines.
type timeline struct {
	axis  history.Axis
	start time.Time
}

func newTimeline(mode AxisMode, events []*network.Event) (timeline, error) {
	dated := len(events) > 0
	for _, ev := range events {
		if ev.Date.IsZero() {
			dated = false
			if mode == AxisDay {
				return timeline{}, fmt.Errorf("event %q: %w", ev.ID, ErrMissingDate)
			}
			break
		}
	}
	if mode == AxisOrder || (mode == AxisAuto && !dated) {
		return timeline{axis: history.AxisOrder}, nil
	}
	if len(events) == 0 {
		return timeline{axis: history.AxisDay}, nil
	}
	return timeline{axis: history.AxisDay, start: events[0].Date}, nil
}

func (tl timeline) offset(ev *network.Event) int {
	return int(ev.Date.Sub(tl.start).Hours() / 24)
}

// initial is the point of the seeded state.
func (tl timeline) initial(events []*network.Event, count int) history.Point {
	p := history.Point{Count: count}
	if tl.axis == history.AxisOrder && len(events) > 0 {
		p.Key = events[0].Year
	}
	return p
}

// point places the ordinal-th event (1-based). On the day axis an event sits
// at the midpoint of its span.
func (tl timeline) point(ordinal int, ev *network.Event, count int) history.Point {
	if tl.axis == history.AxisOrder {
		return history.Point{Time: ordinal, Key: ev.Year, Count: count}
	}
	return history.Point{Time: tl.offset(ev) + (ev.Duration()+1)/2, Count: count}
}

// end is the last time index a history should be extended to.
func (tl timeline) end(events []*network.Event) int {
	if len(events) == 0 {
		return 0
	}
	if tl.axis == history.AxisOrder {
		return len(events)
	}
	last := events[len(events)-1]
	return tl.offset(last) + last.Duration()
}

func (tl timeline) history(points []history.Point, events []*network.Event) history.History {
	return history.History{
		Axis:   tl.axis,
		Points: history.Collapse(points),
		End:    tl.end(events),
	}
}
