package contagion

import (
	"context"
	"math/rand/v2"

	"github.com/nvandessel/contagion/internal/belief"
	"github.com/nvandessel/contagion/internal/history"
	"github.com/nvandessel/contagion/internal/network"
)

// SynchronousEngine updates every agent of the projected network each tick.
// An agent's new belief is its old belief plus the deltas it would receive
// from each neighbour, weighted by the neighbour's share of the agent's total
// edge weight. All reads of a tick see the beliefs as they stood when the
// tick began; the pending beliefs are committed together.
type SynchronousEngine struct {
	cfg Config
}

func (e *SynchronousEngine) Kind() Kind     { return KindSynchronous }
func (e *SynchronousEngine) Config() Config { return e.cfg }

func (e *SynchronousEngine) Run(ctx context.Context, net *network.Network, rng *rand.Rand) (history.History, error) {
	rng = orDefault(rng)
	tr := e.cfg.Params.Transfer()
	p := net.Project(e.cfg.WeightType)
	n := p.AgentCount()

	points := make([]history.Point, 0, e.cfg.TimeLimit)
	points = append(points, history.Point{Count: p.Adopters()})

	pending := make([]float64, n)
	for t := 1; t < e.cfg.TimeLimit; t++ {
		if err := ctx.Err(); err != nil {
			return history.History{}, runError(e.cfg, t, err)
		}
		for i := range n {
			old := p.AgentAt(i).Belief
			next := old
			if total := p.TotalWeight(i); total > 0 {
				for _, l := range p.Neighbors(i) {
					bi, _ := belief.UpdatePair(rng, old, p.AgentAt(l.To).Belief, tr, l.Weight/total)
					next += bi - old
				}
			}
			pending[i] = belief.Clamp(next)
		}
		// A cancelled tick is dropped whole.
		if err := ctx.Err(); err != nil {
			return history.History{}, runError(e.cfg, t, err)
		}
		for i, b := range pending {
			p.SetBeliefAt(i, b)
		}
		points = append(points, history.Point{Time: t, Count: p.Adopters()})
	}
	return history.History{Axis: history.AxisTick, Points: points, End: e.cfg.TimeLimit - 1}, nil
}
