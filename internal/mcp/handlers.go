package mcp

import (
	"context"
	"fmt"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/contagion/internal/contagion"
	"github.com/nvandessel/contagion/internal/history"
	"github.com/nvandessel/contagion/internal/network"
	"github.com/nvandessel/contagion/internal/ratelimit"
	"github.com/nvandessel/contagion/internal/records"
	"github.com/nvandessel/contagion/internal/results"
	"github.com/nvandessel/contagion/internal/simulation"
	"github.com/nvandessel/contagion/internal/store"
)

// registerTools registers all contagion MCP tools with the server.
func (s *Server) registerTools() {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        ratelimit.ToolRun,
		Description: "Simulate adoption over a collaboration network and store the replicate table",
	}, s.handleRun)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        ratelimit.ToolSweep,
		Description: "Run a grid of (p, d, t) tuples over one network and report each tuple's final adopter mean",
	}, s.handleSweep)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        ratelimit.ToolBackfill,
		Description: "Densify a sparse (time, count) step series, optionally extending it to an end time",
	}, s.handleBackfill)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        ratelimit.ToolRuns,
		Description: "List stored runs, newest first",
	}, s.handleRuns)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        ratelimit.ToolFileName,
		Description: "Compose or parse a conventional result file name",
	}, s.handleFileName)
}

// loadRecords reads a record file from inside the sandbox.
func (s *Server) loadRecords(path, format string) ([]network.Record, error) {
	resolved, err := s.sandbox.Resolve(path)
	if err != nil {
		return nil, err
	}
	return records.Load(resolved, records.Format(format))
}

// experiment builds an experiment from the server settings with the tool's
// overrides applied.
func (s *Server) experiment(recs []network.Record, engine string, p, d, t *float64) (simulation.Experiment, error) {
	cfg := *s.settings
	if engine != "" {
		cfg.Model.Engine = engine
	}
	if p != nil {
		cfg.Model.Probability = *p
	}
	if d != nil {
		cfg.Model.Dose = *d
	}
	if t != nil {
		cfg.Model.Threshold = *t
	}
	return simulation.FromConfig(&cfg, recs)
}

// meanSeries is the replicate mean of every table row.
func meanSeries(tab *results.Table) []float64 {
	out := make([]float64, tab.Len())
	for i := range out {
		out[i] = results.Mean(tab.Row(i))
	}
	return out
}

// handleRun implements the contagion_run tool.
func (s *Server) handleRun(ctx context.Context, req *sdk.CallToolRequest, args ContagionRunInput) (_ *sdk.CallToolResult, _ ContagionRunOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool(ratelimit.ToolRun, start, retErr, sanitizeToolParams(map[string]any{
			"records":         args.Records,
			"engine":          args.Engine,
			"iterations":      args.Iterations,
			"reconstructions": args.Reconstructions,
			"seed":            args.Seed,
			"partition":       args.Partition,
			"resume_from":     args.ResumeFrom,
			"output":          args.Output,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, ratelimit.ToolRun); err != nil {
		return nil, ContagionRunOutput{}, err
	}

	recs, err := s.loadRecords(args.Records, args.Format)
	if err != nil {
		return nil, ContagionRunOutput{}, err
	}
	exp, err := s.experiment(recs, args.Engine, args.P, args.D, args.T)
	if err != nil {
		return nil, ContagionRunOutput{}, err
	}
	exp.Network.Seeds = args.Seeds
	if args.Iterations > 0 {
		exp.Iterations = args.Iterations
	}
	if args.Reconstructions > 0 {
		exp.Reconstructions = args.Reconstructions
	}
	if args.Seed != 0 {
		exp.Seed = args.Seed
	}
	if args.Partition != "" {
		exp.Partition.Unit = network.PartitionUnit(args.Partition)
	}
	if args.ResumeFrom != "" {
		carried, err := simulation.Resume(ctx, s.store, args.ResumeFrom)
		if err != nil {
			return nil, ContagionRunOutput{}, err
		}
		exp.Carried = carried
	}

	res, err := s.runner.Run(ctx, exp)
	if err != nil {
		return nil, ContagionRunOutput{}, err
	}

	out := ContagionRunOutput{
		RunID:      res.RunID,
		FileName:   res.FileName(s.settings.Output.Format),
		Axis:       string(res.Table.Axis()),
		Replicates: len(res.Replicates),
		Points:     res.Table.Len(),
		Mean:       meanSeries(res.Table),
	}
	for _, rep := range res.Replicates {
		out.FinalCounts = append(out.FinalCounts, rep.History.Final())
	}
	if args.Output != "" {
		dir, err := s.sandbox.Resolve(args.Output)
		if err != nil {
			return nil, ContagionRunOutput{}, err
		}
		if out.Path, err = res.WriteFile(dir, s.settings.Output.Format); err != nil {
			return nil, ContagionRunOutput{}, err
		}
	}
	out.Message = fmt.Sprintf("%d replicates of %s %s over %d events", out.Replicates,
		exp.Engine.Kind, exp.Engine.Params, len(recs))
	return nil, out, nil
}

// handleSweep implements the contagion_sweep tool.
func (s *Server) handleSweep(ctx context.Context, req *sdk.CallToolRequest, args ContagionSweepInput) (_ *sdk.CallToolResult, _ ContagionSweepOutput, retErr error) {
	start := time.Now()
	grid := simulation.Grid{Probabilities: args.Probabilities, Doses: args.Doses, Thresholds: args.Thresholds}
	defer func() {
		s.auditTool(ratelimit.ToolSweep, start, retErr, sanitizeToolParams(map[string]any{
			"records":    args.Records,
			"engine":     args.Engine,
			"iterations": args.Iterations,
			"seed":       args.Seed,
			"grid_size":  len(grid.Tuples(contagion.Params{})),
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, ratelimit.ToolSweep); err != nil {
		return nil, ContagionSweepOutput{}, err
	}

	recs, err := s.loadRecords(args.Records, args.Format)
	if err != nil {
		return nil, ContagionSweepOutput{}, err
	}
	exp, err := s.experiment(recs, args.Engine, nil, nil, nil)
	if err != nil {
		return nil, ContagionSweepOutput{}, err
	}
	if args.Iterations > 0 {
		exp.Iterations = args.Iterations
	}
	if args.Seed != 0 {
		exp.Seed = args.Seed
	}

	sweep, err := s.runner.Sweep(ctx, exp, grid, s.settings.Run.Workers)
	if err != nil {
		return nil, ContagionSweepOutput{}, err
	}

	var out ContagionSweepOutput
	for _, sr := range sweep {
		tuple := SweepTuple{P: sr.Params.Probability, D: sr.Params.Dose, T: sr.Params.Threshold}
		if sr.Err != nil {
			tuple.Error = sr.Err.Error()
			out.Failed++
		} else {
			tuple.RunID = sr.Result.RunID
			if mean := meanSeries(sr.Result.Table); len(mean) > 0 {
				tuple.FinalMean = mean[len(mean)-1]
			}
		}
		out.Tuples = append(out.Tuples, tuple)
	}
	out.Message = fmt.Sprintf("%d tuples, %d failed", len(out.Tuples), out.Failed)
	return nil, out, nil
}

// handleBackfill implements the contagion_backfill tool.
func (s *Server) handleBackfill(ctx context.Context, req *sdk.CallToolRequest, args ContagionBackfillInput) (_ *sdk.CallToolResult, _ ContagionBackfillOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool(ratelimit.ToolBackfill, start, retErr, sanitizeToolParams(map[string]any{
			"points": len(args.Points),
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, ratelimit.ToolBackfill); err != nil {
		return nil, ContagionBackfillOutput{}, err
	}

	points := make([]history.Point, len(args.Points))
	for i, p := range args.Points {
		points[i] = history.Point{Time: p.Time, Count: p.Count}
	}
	var opts []history.Option
	if args.End != nil {
		opts = append(opts, history.WithEnd(*args.End))
	}
	dense, err := history.Backfill(points, opts...)
	if err != nil {
		return nil, ContagionBackfillOutput{}, err
	}

	out := ContagionBackfillOutput{Points: make([]BackfillPoint, len(dense))}
	for i, p := range dense {
		out.Points[i] = BackfillPoint{Time: p.Time, Count: p.Count}
	}
	return nil, out, nil
}

// handleRuns implements the contagion_runs tool.
func (s *Server) handleRuns(ctx context.Context, req *sdk.CallToolRequest, args ContagionRunsInput) (_ *sdk.CallToolResult, _ ContagionRunsOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool(ratelimit.ToolRuns, start, retErr, sanitizeToolParams(map[string]any{
			"network_type": args.NetworkType,
			"engine":       args.Engine,
			"limit":        args.Limit,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, ratelimit.ToolRuns); err != nil {
		return nil, ContagionRunsOutput{}, err
	}

	runs, err := s.store.ListRuns(ctx, store.RunFilter{
		NetworkType: args.NetworkType,
		Engine:      contagion.Kind(args.Engine),
		Limit:       args.Limit,
	})
	if err != nil {
		return nil, ContagionRunsOutput{}, err
	}

	out := ContagionRunsOutput{Runs: make([]RunSummary, 0, len(runs)), Count: len(runs)}
	for _, r := range runs {
		out.Runs = append(out.Runs, RunSummary{
			ID:          r.ID,
			Name:        r.Name,
			NetworkType: r.NetworkType,
			Engine:      string(r.Engine),
			P:           r.Params.Probability,
			D:           r.Params.Dose,
			T:           r.Params.Threshold,
			Replicates:  r.Replicates,
			Axis:        string(r.Axis),
			FileName:    r.FileName(),
			CreatedAt:   r.CreatedAt.Format(time.RFC3339),
		})
	}
	return nil, out, nil
}

// handleFileName implements the contagion_filename tool.
func (s *Server) handleFileName(ctx context.Context, req *sdk.CallToolRequest, args ContagionFileNameInput) (_ *sdk.CallToolResult, _ ContagionFileNameOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool(ratelimit.ToolFileName, start, retErr, sanitizeToolParams(map[string]any{
			"name":         args.Name,
			"network_type": args.NetworkType,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, ratelimit.ToolFileName); err != nil {
		return nil, ContagionFileNameOutput{}, err
	}

	var info results.FileInfo
	if args.Name != "" {
		parsed, err := results.ParseFileName(args.Name)
		if err != nil {
			return nil, ContagionFileNameOutput{}, err
		}
		info = parsed
	} else {
		if args.NetworkType == "" {
			return nil, ContagionFileNameOutput{}, fmt.Errorf("network_type is required to compose a file name")
		}
		info = results.FileInfo{
			NetworkType: args.NetworkType,
			Params:      contagion.Params{Probability: args.P, Dose: args.D, Threshold: args.T},
			Version:     args.Version,
		}
		if info.Version == "" {
			info.Version = s.settings.Run.Version
		}
	}

	return nil, ContagionFileNameOutput{
		FileName:    results.FileName(info.NetworkType, info.Params, info.Version),
		NetworkType: info.NetworkType,
		P:           info.Params.Probability,
		D:           info.Params.Dose,
		T:           info.Params.Threshold,
		Version:     info.Version,
	}, nil
}
