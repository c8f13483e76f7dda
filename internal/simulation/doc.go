// Package simulation runs contagion experiments: replicate runs of one
// engine over one or more reconstructions of a collaboration network, merged
// into a result table, and parameter sweeps over a grid of such experiments.
//
// Every replicate builds its own network and draws from its own rng, derived
// from the experiment seed, the reconstruction and the iteration, so results
// do not depend on the number of workers. Reconstruction 0 uses the records
// as given; later reconstructions shuffle events that share a time key.
//
// Usage:
//
//	r := simulation.NewRunner(logger, trace, runStore)
//	res, err := r.Run(ctx, simulation.Experiment{
//	    Name:       "movies",
//	    Records:    records,
//	    Engine:     contagion.DefaultConfig(contagion.KindPairwise, params),
//	    Iterations: 100,
//	    Seed:       42,
//	})
//	simulation.AssertMonotonic(t, res.Replicates[0].History)
package simulation
