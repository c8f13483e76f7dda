package simulation

import (
	"github.com/nvandessel/contagion/internal/config"
	"github.com/nvandessel/contagion/internal/network"
)

// FromConfig builds the experiment a configuration describes over records.
// Seeds, a-priori beliefs and carried beliefs are left to the caller.
func FromConfig(cfg *config.Config, records []network.Record) (Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return Experiment{}, err
	}
	engine, err := cfg.EngineConfig()
	if err != nil {
		return Experiment{}, err
	}
	opts, err := cfg.NetworkOptions()
	if err != nil {
		return Experiment{}, err
	}
	part, err := cfg.PartitionOptions()
	if err != nil {
		return Experiment{}, err
	}
	return Experiment{
		Name:            cfg.Run.NetworkType,
		NetworkType:     cfg.Run.NetworkType,
		Version:         cfg.Run.Version,
		Records:         records,
		Engine:          engine,
		Network:         opts,
		Partition:       part,
		ReseedBlocks:    cfg.Run.ReseedBlocks,
		Iterations:      cfg.Run.Iterations,
		Reconstructions: cfg.Run.Reconstructions,
		Seed:            cfg.Run.Seed,
		Workers:         cfg.Run.Workers,
		Summarize:       cfg.Output.Summary,
	}, nil
}
