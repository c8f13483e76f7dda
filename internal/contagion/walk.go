package contagion

import (
	"context"
	"math"
	"math/rand/v2"

	"github.com/nvandessel/contagion/internal/belief"
	"github.com/nvandessel/contagion/internal/history"
	"github.com/nvandessel/contagion/internal/network"
)

// WalkEngine moves two walkers over the projected network. Each tick a
// walker's current agent meets a neighbour chosen by WeightChoice. The walker
// stays with that neighbour for its dwell count (the edge weight under
// ChoiceInfluence, else 1) and then moves onto it.
type WalkEngine struct {
	cfg Config
}

func (e *WalkEngine) Kind() Kind     { return KindWalk }
func (e *WalkEngine) Config() Config { return e.cfg }

type walker struct {
	at    int
	next  int
	dwell int
}

func (e *WalkEngine) Run(ctx context.Context, net *network.Network, rng *rand.Rand) (history.History, error) {
	rng = orDefault(rng)
	tr := e.cfg.Params.Transfer()
	p := net.Project(e.cfg.WeightType)

	points := make([]history.Point, 0, e.cfg.TimeLimit)
	points = append(points, history.Point{Count: p.Adopters()})

	walkers := e.place(p, rng)
	for t := 1; t < e.cfg.TimeLimit; t++ {
		if err := ctx.Err(); err != nil {
			return history.History{}, runError(e.cfg, t, err)
		}
		for i := range walkers {
			e.step(p, &walkers[i], tr, rng)
		}
		points = append(points, history.Point{Time: t, Count: p.Adopters()})
	}
	return history.History{Axis: history.AxisTick, Points: points, End: e.cfg.TimeLimit - 1}, nil
}

// place starts the walkers on two distinct adopters, or on two distinct
// agents when fewer than two adopters exist.
func (e *WalkEngine) place(p *network.Projection, rng *rand.Rand) []walker {
	pool := make([]int, 0, p.AgentCount())
	for i := range p.AgentCount() {
		if p.IsAdopter(i) {
			pool = append(pool, i)
		}
	}
	if len(pool) < 2 {
		pool = pool[:0]
		for i := range p.AgentCount() {
			pool = append(pool, i)
		}
	}
	if len(pool) < 2 {
		return nil
	}
	a := rng.IntN(len(pool))
	b := rng.IntN(len(pool) - 1)
	if b >= a {
		b++
	}
	return []walker{{at: pool[a]}, {at: pool[b]}}
}

func (e *WalkEngine) step(p *network.Projection, w *walker, tr belief.Transfer, rng *rand.Rand) {
	links := p.Neighbors(w.at)
	if len(links) == 0 {
		return
	}
	if w.dwell == 0 {
		l := e.choose(p, w.at, links, rng)
		w.next = l.To
		w.dwell = 1
		if e.cfg.WeightChoice == ChoiceInfluence {
			w.dwell = max(1, int(math.Round(l.Weight)))
		}
	}

	bi, bj := belief.UpdatePair(rng, p.AgentAt(w.at).Belief, p.AgentAt(w.next).Belief, tr, 1)
	p.SetBeliefAt(w.at, bi)
	p.SetBeliefAt(w.next, bj)

	w.dwell--
	if w.dwell == 0 {
		w.at = w.next
	}
}

func (e *WalkEngine) choose(p *network.Projection, at int, links []network.Link, rng *rand.Rand) network.Link {
	if e.cfg.WeightChoice != ChoiceNeighbor {
		return links[rng.IntN(len(links))]
	}
	r := rng.Float64() * p.TotalWeight(at)
	for _, l := range links {
		if r < l.Weight {
			return l
		}
		r -= l.Weight
	}
	return links[len(links)-1]
}
