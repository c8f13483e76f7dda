package network

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/nvandessel/contagion/internal/belief"
)

// BeliefType selects how initial beliefs are seeded.
type BeliefType string

const (
	// BeliefEmpirical starts seeds at 1.0 and everyone else at 0.0.
	BeliefEmpirical BeliefType = "empirical"
	// BeliefEmpiricalRandom starts seeds at 1.0 and everyone else at
	// U[0, threshold). It requires a positive threshold.
	BeliefEmpiricalRandom BeliefType = "empirical-random"
	// BeliefApriori takes beliefs from Options.Beliefs.
	BeliefApriori BeliefType = "apriori"
)

// ParseBeliefType validates a belief type name.
func ParseBeliefType(s string) (BeliefType, error) {
	switch bt := BeliefType(s); bt {
	case BeliefEmpirical, BeliefEmpiricalRandom, BeliefApriori:
		return bt, nil
	}
	return "", fmt.Errorf("%q: %w", s, ErrUnknownBeliefType)
}

// DefaultSeedCount is the number of seeds drawn when none are supplied.
const DefaultSeedCount = 2

// Options configures Build.
type Options struct {
	BeliefType BeliefType
	Threshold  float64

	// Seeds are the initial adopters. When empty and the belief type is
	// empirical or empirical-random, DefaultSeeds picks SeedCount of them.
	Seeds     []string
	SeedCount int
	// Unseeded disables DefaultSeeds: only explicit seeds become adopters.
	Unseeded bool

	// Beliefs supplies per-agent beliefs for BeliefApriori.
	Beliefs map[string]float64

	// Rand drives seed choice and empirical-random beliefs. A nil Rand uses a
	// fixed zero-seeded source.
	Rand *rand.Rand
}

// Build constructs the bipartite network from records. Any malformed record
// aborts the whole batch and no network is returned.
func Build(records []Record, opts Options) (*Network, error) {
	if opts.BeliefType == "" {
		opts.BeliefType = BeliefEmpirical
	}
	if _, err := ParseBeliefType(string(opts.BeliefType)); err != nil {
		return nil, err
	}
	if opts.BeliefType == BeliefEmpiricalRandom && !(opts.Threshold > 0) {
		return nil, fmt.Errorf("threshold %v: %w", opts.Threshold, ErrZeroThreshold)
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(0, 0))
	}

	n := newNetwork(opts.Threshold)
	seen := make(map[string]Record, len(records))

	for i, r := range records {
		if err := validateRecord(r); err != nil {
			return nil, fmt.Errorf("record %d (%q): %w", i, r.ID, err)
		}
		if prev, dup := seen[r.ID]; dup {
			if !sameRecord(prev, r) {
				return nil, fmt.Errorf("record %d (%q): %w", i, r.ID, ErrConflictingEvent)
			}
			continue
		}
		seen[r.ID] = r

		ev := &Event{
			ID:           r.ID,
			Title:        r.Title,
			Year:         r.Year,
			Date:         r.Date,
			Days:         r.Days,
			Order:        r.Order,
			Team:         r.Team,
			Participants: make([]int, 0, len(r.Participants)),
			seq:          len(n.events),
		}
		for _, p := range r.Participants {
			a := n.addAgent(p.ID)
			a.Events = append(a.Events, r.ID)
			a.Roles = append(a.Roles, Role{Role: p.Role, EventID: r.ID, Year: r.Year})
			ev.Participants = append(ev.Participants, a.index)
		}
		n.eventIndex[ev.ID] = len(n.events)
		n.events = append(n.events, ev)
	}

	seeds := opts.Seeds
	if len(seeds) == 0 && !opts.Unseeded && opts.BeliefType != BeliefApriori {
		count := opts.SeedCount
		if count <= 0 {
			count = DefaultSeedCount
		}
		seeds = DefaultSeeds(n, rng, count)
	}
	seedSet := make(map[string]bool, len(seeds))
	for _, s := range seeds {
		seedSet[s] = true
	}

	for _, a := range n.agents {
		switch opts.BeliefType {
		case BeliefEmpirical:
			if seedSet[a.ID] {
				a.Belief = 1.0
			}
		case BeliefEmpiricalRandom:
			if seedSet[a.ID] {
				a.Belief = 1.0
			} else {
				a.Belief = rng.Float64() * opts.Threshold
			}
		case BeliefApriori:
			a.Belief = belief.Clamp(opts.Beliefs[a.ID])
		}
	}
	n.recount()

	return n, nil
}

// BuildProjected builds the network and returns its projection under the
// given weight type.
func BuildProjected(records []Record, opts Options, wt WeightType) (*Projection, error) {
	n, err := Build(records, opts)
	if err != nil {
		return nil, err
	}
	return n.Project(wt), nil
}

// DefaultSeeds picks count initial adopters: random participants of the first
// event, topped up from the following events when the first is too small.
func DefaultSeeds(n *Network, rng *rand.Rand, count int) []string {
	return pickSeeds(n, rng, count, nil)
}

// Reseed turns up to count current non-adopters into adopters, drawn the way
// DefaultSeeds draws them, and returns the new seeds. Call it after Inject.
func Reseed(n *Network, rng *rand.Rand, count int) []string {
	seeds := pickSeeds(n, rng, count, n.IsAdopter)
	for _, id := range seeds {
		n.SetBeliefAt(n.agentIndex[id], 1.0)
	}
	return seeds
}

func pickSeeds(n *Network, rng *rand.Rand, count int, skip func(int) bool) []string {
	chosen := make([]string, 0, count)
	taken := make(map[int]bool, count)
	for _, ev := range n.Events() {
		if len(chosen) >= count {
			break
		}
		pool := make([]int, 0, len(ev.Participants))
		for _, p := range ev.Participants {
			if !taken[p] && (skip == nil || !skip(p)) {
				pool = append(pool, p)
			}
		}
		for len(pool) > 0 && len(chosen) < count {
			k := rng.IntN(len(pool))
			idx := pool[k]
			pool = slices.Delete(pool, k, k+1)
			taken[idx] = true
			chosen = append(chosen, n.agents[idx].ID)
		}
	}
	return chosen
}

func validateRecord(r Record) error {
	if r.ID == "" {
		return fmt.Errorf("empty event id: %w", ErrMalformedRecord)
	}
	if len(r.Participants) == 0 {
		return fmt.Errorf("no participants: %w", ErrMalformedRecord)
	}
	ids := make(map[string]bool, len(r.Participants))
	for j, p := range r.Participants {
		if p.ID == "" {
			return fmt.Errorf("participant %d: %w", j, ErrMissingParticipant)
		}
		if ids[p.ID] {
			return fmt.Errorf("participant %q: %w", p.ID, ErrDuplicateParticipant)
		}
		ids[p.ID] = true
	}
	if r.Days < 0 {
		return fmt.Errorf("negative duration %d: %w", r.Days, ErrMalformedRecord)
	}
	return nil
}

func sameRecord(a, b Record) bool {
	if a.Title != b.Title || a.Year != b.Year || !a.Date.Equal(b.Date) ||
		a.Days != b.Days || a.Order != b.Order || a.Team != b.Team {
		return false
	}
	return slices.Equal(a.Participants, b.Participants)
}
