package contagion

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingDate is returned when the day axis is requested for events
	// without a date.
	ErrMissingDate = errors.New("contagion: event has no date")

	// ErrBlockOrder is returned when stitched blocks are not in increasing
	// time order.
	ErrBlockOrder = errors.New("contagion: blocks out of time order")
)

// RunError reports the parameter tuple and position at which a run failed.
// Block is empty for single-block runs; Tick is the event ordinal or tick
// being processed.
type RunError struct {
	Params Params
	Kind   Kind
	Block  string
	Tick   int
	Err    error
}

func (e *RunError) Error() string {
	where := fmt.Sprintf("tick %d", e.Tick)
	if e.Block != "" {
		where = fmt.Sprintf("block %s %s", e.Block, where)
	}
	return fmt.Sprintf("contagion: %s run (%s) failed at %s: %v", e.Kind, e.Params, where, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

func runError(cfg Config, tick int, err error) *RunError {
	return &RunError{Params: cfg.Params, Kind: cfg.Kind, Tick: tick, Err: err}
}

// withBlock tags err with a block key, wrapping it in a RunError when it is
// not one already.
func withBlock(cfg Config, block string, err error) error {
	var re *RunError
	if errors.As(err, &re) {
		if re.Block == "" {
			re.Block = block
		}
		return re
	}
	e := runError(cfg, 0, err)
	e.Block = block
	return e
}
