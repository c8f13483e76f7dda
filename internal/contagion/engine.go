// Package contagion runs belief propagation over collaboration networks.
//
// Four strategies share one contract: start from the seeded beliefs of a
// network, run interaction rounds until the events or the tick budget are
// exhausted, and return the adopter count over time. Beliefs only grow, so
// every history is monotone. All randomness comes from the *rand.Rand passed
// to Run: the same seed, network and parameters reproduce the same history.
//
// Engines mutate the network they are given and must not share one.
package contagion

import (
	"context"
	"math/rand/v2"

	"github.com/nvandessel/contagion/internal/history"
	"github.com/nvandessel/contagion/internal/network"
)

// Engine is one propagation strategy.
type Engine interface {
	Kind() Kind
	Config() Config
	Run(ctx context.Context, net *network.Network, rng *rand.Rand) (history.History, error)
}

// New returns the engine selected by cfg.Kind. The configuration is
// validated first.
func New(cfg Config) (Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	switch cfg.Kind {
	case KindPairwise:
		return &PairwiseEngine{cfg: cfg}, nil
	case KindWalk:
		return &WalkEngine{cfg: cfg}, nil
	case KindSynchronous:
		return &SynchronousEngine{cfg: cfg}, nil
	default:
		return &FullEngine{cfg: cfg}, nil
	}
}

// orDefault substitutes a fixed zero-seeded source for a nil rng.
func orDefault(rng *rand.Rand) *rand.Rand {
	if rng == nil {
		return rand.New(rand.NewPCG(0, 0))
	}
	return rng
}

// split partitions participant indices into adopters and non-adopters.
func split(net *network.Network, participants []int) (adopters, others []int) {
	for _, p := range participants {
		if net.IsAdopter(p) {
			adopters = append(adopters, p)
		} else {
			others = append(others, p)
		}
	}
	return adopters, others
}
