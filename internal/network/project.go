package network

import (
	"fmt"
	"slices"
)

// WeightType selects which co-participation attribute becomes the edge weight
// of the projected network.
type WeightType string

const (
	WeightNone   WeightType = "none"   // every link weighs 1
	WeightShifts WeightType = "shifts" // number of shared events
	WeightDays   WeightType = "days"   // cumulative shared duration in days
)

// ParseWeightType validates a weight type name. The empty string maps to
// WeightNone.
func ParseWeightType(s string) (WeightType, error) {
	switch wt := WeightType(s); wt {
	case "":
		return WeightNone, nil
	case WeightNone, WeightShifts, WeightDays:
		return wt, nil
	}
	return "", fmt.Errorf("network: unknown weight type %q", s)
}

// Link is one undirected agent-agent edge as seen from one endpoint.
type Link struct {
	To     int     // arena index of the neighbour
	Shared int     // number of events the two agents share
	Days   int     // cumulative duration of the shared events
	Weight float64 // weight under the projection's WeightType
}

// Projection is the agent-agent view of a Network. It shares the network's
// agent arena: beliefs read and written through it are the network's.
type Projection struct {
	*Network

	weightType WeightType
	adj        [][]Link
	totals     []float64
}

// Project derives the projected network. Every link corresponds to at least
// one shared event; neighbour lists are sorted by arena index.
func (n *Network) Project(wt WeightType) *Projection {
	if wt == "" {
		wt = WeightNone
	}
	if p, ok := n.projected[wt]; ok {
		return p
	}

	pos := make([]map[int]int, len(n.agents))
	adj := make([][]Link, len(n.agents))
	add := func(a, b, days int) {
		if pos[a] == nil {
			pos[a] = make(map[int]int)
		}
		k, ok := pos[a][b]
		if !ok {
			k = len(adj[a])
			pos[a][b] = k
			adj[a] = append(adj[a], Link{To: b})
		}
		adj[a][k].Shared++
		adj[a][k].Days += days
	}

	for _, ev := range n.Events() {
		days := ev.Duration()
		for x := 0; x < len(ev.Participants); x++ {
			for y := x + 1; y < len(ev.Participants); y++ {
				a, b := ev.Participants[x], ev.Participants[y]
				add(a, b, days)
				add(b, a, days)
			}
		}
	}

	totals := make([]float64, len(n.agents))
	for i := range adj {
		slices.SortFunc(adj[i], func(x, y Link) int { return x.To - y.To })
		for k := range adj[i] {
			adj[i][k].Weight = linkWeight(adj[i][k], wt)
			totals[i] += adj[i][k].Weight
		}
	}

	p := &Projection{Network: n, weightType: wt, adj: adj, totals: totals}
	n.projected[wt] = p
	return p
}

func linkWeight(l Link, wt WeightType) float64 {
	switch wt {
	case WeightShifts:
		return float64(l.Shared)
	case WeightDays:
		return float64(l.Days)
	default:
		return 1
	}
}

// WeightType returns the weight policy this projection was built with.
func (p *Projection) WeightType() WeightType { return p.weightType }

// Neighbors returns the links of the agent at arena index i.
func (p *Projection) Neighbors(i int) []Link { return p.adj[i] }

// TotalWeight returns the sum of link weights around agent i.
func (p *Projection) TotalWeight(i int) float64 { return p.totals[i] }

// Link returns the link between agents a and b, if any.
func (p *Projection) Link(a, b int) (Link, bool) {
	links := p.adj[a]
	k, ok := slices.BinarySearchFunc(links, b, func(l Link, to int) int { return l.To - to })
	if !ok {
		return Link{}, false
	}
	return links[k], true
}

// EdgeCount returns the number of undirected links.
func (p *Projection) EdgeCount() int {
	total := 0
	for _, links := range p.adj {
		total += len(links)
	}
	return total / 2
}
