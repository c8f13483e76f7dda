package contagion

import (
	"context"
	"math/rand/v2"
	"slices"

	"github.com/nvandessel/contagion/internal/belief"
	"github.com/nvandessel/contagion/internal/history"
	"github.com/nvandessel/contagion/internal/network"
)

// PairwiseEngine processes events in time order. Inside an event that has at
// least one adopter it runs up to InteractionBudget exchanges between a
// uniformly drawn adopter and a uniformly drawn non-adopter, drawing with
// replacement, and stops early once no non-adopter is left.
type PairwiseEngine struct {
	cfg Config
}

func (e *PairwiseEngine) Kind() Kind     { return KindPairwise }
func (e *PairwiseEngine) Config() Config { return e.cfg }

func (e *PairwiseEngine) Run(ctx context.Context, net *network.Network, rng *rand.Rand) (history.History, error) {
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
		adopters, others := split(net, ev.Participants)
		if len(adopters) > 0 {
			for n := 0; n < e.cfg.InteractionBudget && len(others) > 0; n++ {
				ai, oi := rng.IntN(len(adopters)), rng.IntN(len(others))
				a, o := adopters[ai], others[oi]
				ba, bo := belief.UpdatePair(rng, net.AgentAt(a).Belief, net.AgentAt(o).Belief, tr, 1)
				net.SetBeliefAt(a, ba)
				net.SetBeliefAt(o, bo)
				if net.IsAdopter(o) {
					others = slices.Delete(others, oi, oi+1)
					adopters = append(adopters, o)
				}
			}
		}
		points = append(points, tl.point(k+1, ev, net.Adopters()))
	}
	return tl.history(points, events), nil
}
