package contagion

import (
	"context"
	"math/rand/v2"

	"github.com/nvandessel/contagion/internal/belief"
	"github.com/nvandessel/contagion/internal/history"
	"github.com/nvandessel/contagion/internal/network"
)

// FullEngine processes events in time order and exposes every unordered pair
// of participants once per event, with no interaction budget.
type FullEngine struct {
	cfg Config
}

func (e *FullEngine) Kind() Kind     { return KindFull }
func (e *FullEngine) Config() Config { return e.cfg }

// exposures is the number of draws a pair gets in ev.
func (e *FullEngine) exposures(ev *network.Event) int {
	if e.cfg.Exposure == ExposureEvent {
		return 1
	}
	days := ev.Duration()
	if days == 2 && ev.Team != e.cfg.WeekendTeam {
		return 1
	}
	return days
}

func (e *FullEngine) Run(ctx context.Context, net *network.Network, rng *rand.Rand) (history.History, error) {
	rng = orDefault(rng)
	tr := e.cfg.Params.Transfer()
	events := net.Events()

	tl, err := newTimeline(e.cfg.Axis, events)
	if err != nil {
		return history.History{}, runError(e.cfg, 0, err)
	}

	points := make([]history.Point, 0, len(events)+1)
	points = append(points, tl.initial(events, net.Adopters()))

	for k, ev := range events {
		if err := ctx.Err(); err != nil {
			return history.History{}, runError(e.cfg, k+1, err)
		}
		exp := e.exposures(ev)
		ps := ev.Participants
		for x := 0; x < len(ps); x++ {
			for y := x + 1; y < len(ps); y++ {
				a, b := ps[x], ps[y]
				ba, bb := belief.UpdatePairRepeated(rng, net.AgentAt(a).Belief, net.AgentAt(b).Belief, tr, 1, exp)
				net.SetBeliefAt(a, ba)
				net.SetBeliefAt(b, bb)
			}
		}
		points = append(points, tl.point(k+1, ev, net.Adopters()))
	}
	return tl.history(points, events), nil
}
