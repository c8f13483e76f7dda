package contagion

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"math/rand/v2"

	"github.com/nvandessel/contagion/internal/history"
	"github.com/nvandessel/contagion/internal/logging"
	"github.com/nvandessel/contagion/internal/network"
)

// Stitcher runs an engine over consecutive time blocks and joins the block
// histories into one series. Beliefs carry forward: an agent that reappears
// in a later block starts there with the belief it ended with, and adopters
// missing from a block still count towards that block's totals.
type Stitcher struct {
	// Config selects the engine. A zero TimeLimit makes the projected
	// engines run for the block's own span.
	Config Config
	// Build configures per-block network construction. Threshold and Rand
	// are overwritten from Config and the run's rng.
	Build network.Options
	// ReseedBlocks draws default seeds in every block from the agents that
	// have not adopted after carried beliefs are applied. Otherwise default
	// seeds are only drawn while no belief has been carried in.
	ReseedBlocks bool

	Logger *slog.Logger
	// Trace, when set, receives one event per block start and finish.
	Trace *logging.TraceLogger
}

// NewStitcher validates cfg and returns a stitcher for it.
func NewStitcher(cfg Config, opts network.Options, logger *slog.Logger) (*Stitcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Stitcher{Config: cfg, Build: opts, Logger: logger}, nil
}

// Run processes blocks in order. carried holds beliefs from an earlier run
// and is not modified. It returns the stitched history and the final belief
// of every agent seen so far.
func (s *Stitcher) Run(ctx context.Context, blocks []network.Block, carried map[string]float64, rng *rand.Rand) (history.History, map[string]float64, error) {
	rng = orDefault(rng)
	logger := s.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	known := maps.Clone(carried)
	if known == nil {
		known = make(map[string]float64)
	}
	threshold := s.Config.Params.Threshold

	parts := make([]history.Block, 0, len(blocks))
	var prevFirst int64
	for k, b := range blocks {
		if err := ctx.Err(); err != nil {
			return history.History{}, nil, withBlock(s.Config, b.Key, err)
		}
		first := b.FirstKey()
		if k > 0 && first < prevFirst {
			return history.History{}, nil, withBlock(s.Config, b.Key, ErrBlockOrder)
		}
		prevFirst = first

		opts := s.Build
		opts.Threshold = threshold
		opts.Rand = rng
		reseed := len(known) > 0 && s.ReseedBlocks && !opts.Unseeded &&
			len(opts.Seeds) == 0 && opts.BeliefType != network.BeliefApriori
		opts.Unseeded = opts.Unseeded || len(known) > 0
		net, err := network.Build(b.Records, opts)
		if err != nil {
			return history.History{}, nil, withBlock(s.Config, b.Key, err)
		}
		net.Inject(known)
		if reseed {
			count := opts.SeedCount
			if count <= 0 {
				count = network.DefaultSeedCount
			}
			seeds := network.Reseed(net, rng, count)
			logger.Debug("block reseeded", "block", b.Key, "seeds", seeds)
		}

		absent := 0
		for id, v := range known {
			if v >= threshold && !net.Has(id) {
				absent++
			}
		}

		cfg := s.Config
		if cfg.TimeLimit == 0 && cfg.Kind.Projected() {
			cfg.TimeLimit = blockTicks(net)
		}
		eng, err := New(cfg)
		if err != nil {
			return history.History{}, nil, withBlock(s.Config, b.Key, err)
		}

		logger.Debug("block start", "block", b.Key, "agents", net.AgentCount(),
			"events", net.EventCount(), "adopters", net.Adopters(), "absent", absent)
		s.Trace.Event(logging.EventBlockStart, "block", b.Key, "agents", net.AgentCount(),
			"events", net.EventCount(), "adopters", net.Adopters(), "absent", absent)

		h, err := eng.Run(ctx, net, rng)
		if err != nil {
			err = withBlock(s.Config, b.Key, err)
			s.Trace.Failure(err, "block", b.Key)
			return history.History{}, nil, err
		}
		parts = append(parts, history.Block{Key: b.Key, History: h, Absent: absent})

		maps.Copy(known, net.Beliefs())
		logger.Debug("block done", "block", b.Key, "adopters", net.Adopters()+absent)
		s.Trace.Event(logging.EventBlockFinish, "block", b.Key, "adopters", net.Adopters()+absent)
	}

	out, err := history.Stitch(parts)
	if err != nil {
		return history.History{}, nil, runError(s.Config, 0, fmt.Errorf("stitch: %w", err))
	}
	return out, known, nil
}

// blockTicks derives the tick budget of a block: the calendar span plus the
// last event's duration when every event is dated, else the event count.
func blockTicks(net *network.Network) int {
	events := net.Events()
	if len(events) == 0 {
		return 1
	}
	for _, ev := range events {
		if ev.Date.IsZero() {
			return len(events)
		}
	}
	first, last := events[0], events[len(events)-1]
	span := int(last.Date.Sub(first.Date).Hours() / 24)
	return span + last.Duration()
}
