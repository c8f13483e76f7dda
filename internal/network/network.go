package network

import (
	"fmt"
	"slices"

	"github.com/nvandessel/contagion/internal/belief"
)

// Network is the bipartite agent/event arena. It is not safe for concurrent
// use: one engine owns a network for the duration of a run.
type Network struct {
	threshold float64

	agents     []*Agent
	agentIndex map[string]int
	events     []*Event
	eventIndex map[string]int

	ordered   []*Event
	adopters  int
	projected map[WeightType]*Projection
}

func newNetwork(threshold float64) *Network {
	return &Network{
		threshold:  threshold,
		agentIndex: make(map[string]int),
		eventIndex: make(map[string]int),
		projected:  make(map[WeightType]*Projection),
	}
}

// Threshold returns the adoption cutoff the network derives status with.
func (n *Network) Threshold() float64 { return n.threshold }

// AgentCount returns the number of agents.
func (n *Network) AgentCount() int { return len(n.agents) }

// EventCount returns the number of events.
func (n *Network) EventCount() int { return len(n.events) }

// Agents returns agents in first-appearance order. The slice is shared;
// callers must not modify it.
func (n *Network) Agents() []*Agent { return n.agents }

// AgentAt returns the agent at arena index i.
func (n *Network) AgentAt(i int) *Agent { return n.agents[i] }

// Agent returns the agent with the given id.
func (n *Network) Agent(id string) (*Agent, bool) {
	i, ok := n.agentIndex[id]
	if !ok {
		return nil, false
	}
	return n.agents[i], true
}

// Has reports whether an agent id is part of the network.
func (n *Network) Has(id string) bool {
	_, ok := n.agentIndex[id]
	return ok
}

// Event returns the event with the given id.
func (n *Network) Event(id string) (*Event, bool) {
	i, ok := n.eventIndex[id]
	if !ok {
		return nil, false
	}
	return n.events[i], true
}

// Events returns events in the total order defined by Compare.
func (n *Network) Events() []*Event {
	if n.ordered == nil {
		n.ordered = slices.Clone(n.events)
		slices.SortFunc(n.ordered, Compare)
	}
	return n.ordered
}

// Status returns the adoption status of the agent at arena index i.
func (n *Network) Status(i int) belief.Status {
	return belief.StatusOf(n.agents[i].Belief, n.threshold)
}

// IsAdopter reports whether the agent at arena index i has adopted.
func (n *Network) IsAdopter(i int) bool {
	return n.agents[i].Belief >= n.threshold
}

// Adopters returns the current number of adopters.
func (n *Network) Adopters() int { return n.adopters }

// SetBeliefAt writes a belief for the agent at arena index i, clamped to
// [0, 1], and keeps the adopter count in step.
func (n *Network) SetBeliefAt(i int, b float64) {
	a := n.agents[i]
	was := a.Belief >= n.threshold
	a.Belief = belief.Clamp(b)
	now := a.Belief >= n.threshold
	switch {
	case now && !was:
		n.adopters++
	case was && !now:
		n.adopters--
	}
}

// SetBelief writes a belief by agent id.
func (n *Network) SetBelief(id string, b float64) error {
	i, ok := n.agentIndex[id]
	if !ok {
		return fmt.Errorf("set belief %q: %w", id, ErrAgentNotFound)
	}
	n.SetBeliefAt(i, b)
	return nil
}

// Inject overrides beliefs for every agent in beliefs that is present in the
// network and returns how many were applied. Ids absent from the network are
// ignored.
func (n *Network) Inject(beliefs map[string]float64) int {
	applied := 0
	for id, b := range beliefs {
		if i, ok := n.agentIndex[id]; ok {
			n.SetBeliefAt(i, b)
			applied++
		}
	}
	return applied
}

// Beliefs returns a snapshot of every agent's belief keyed by id.
func (n *Network) Beliefs() map[string]float64 {
	out := make(map[string]float64, len(n.agents))
	for _, a := range n.agents {
		out[a.ID] = a.Belief
	}
	return out
}

// AdopterIDs returns the ids of current adopters in arena order.
func (n *Network) AdopterIDs() []string {
	var ids []string
	for _, a := range n.agents {
		if a.Belief >= n.threshold {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

func (n *Network) addAgent(id string) *Agent {
	if i, ok := n.agentIndex[id]; ok {
		return n.agents[i]
	}
	a := &Agent{ID: id, index: len(n.agents)}
	n.agentIndex[id] = a.index
	n.agents = append(n.agents, a)
	return a
}

func (n *Network) recount() {
	n.adopters = 0
	for _, a := range n.agents {
		if a.Belief >= n.threshold {
			n.adopters++
		}
	}
}
