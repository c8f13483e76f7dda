package contagion

import (
	"errors"
	"fmt"
	"math"

	"github.com/nvandessel/contagion/internal/belief"
	"github.com/nvandessel/contagion/internal/network"
)

// ErrInvalidParams is returned for parameter tuples rejected before any
// simulation work begins.
var ErrInvalidParams = errors.New("contagion: invalid parameters")

// Kind names a propagation strategy.
type Kind string

const (
	// KindPairwise walks events in time order and runs a budget of random
	// adopter/non-adopter exchanges inside each event.
	KindPairwise Kind = "temporal-pairwise"
	// KindWalk moves two random walkers over the projected network.
	KindWalk Kind = "sequential-walk"
	// KindSynchronous updates every agent of the projected network at once
	// per tick.
	KindSynchronous Kind = "synchronous"
	// KindFull walks events in time order and exposes every unordered pair
	// of participants.
	KindFull Kind = "temporal-full"
)

// Kinds lists every strategy in a stable order.
var Kinds = []Kind{KindPairwise, KindWalk, KindSynchronous, KindFull}

// ParseKind validates a strategy name.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown engine %q: %w", s, ErrInvalidParams)
}

// Projected reports whether the strategy runs on the agent-agent projection.
func (k Kind) Projected() bool {
	return k == KindWalk || k == KindSynchronous
}

// WeightChoice selects how a walker picks the neighbour it meets.
type WeightChoice string

const (
	ChoiceNone      WeightChoice = "none"      // uniform neighbour
	ChoiceNeighbor  WeightChoice = "neighbor"  // neighbour chance proportional to edge weight
	ChoiceInfluence WeightChoice = "influence" // uniform neighbour, dwell for edge-weight ticks
)

// Exposure selects how many draws a pair gets per shared event in the full
// temporal engine.
type Exposure string

const (
	ExposureEvent Exposure = "event" // one draw per event
	ExposureDay   Exposure = "day"   // one draw per event day
)

// AxisMode selects the time index of the temporal engines.
type AxisMode string

const (
	AxisAuto  AxisMode = "auto"
	AxisOrder AxisMode = "order"
	AxisDay   AxisMode = "day"
)

// Params is the (p, d, t) tuple a run is identified by.
type Params struct {
	Probability float64 `json:"p" yaml:"p"`
	Dose        float64 `json:"d" yaml:"d"`
	Threshold   float64 `json:"t" yaml:"t"`
}

// Validate rejects probabilities or thresholds outside [0, 1] and doses that
// are negative or not finite. NaN fails every check.
func (p Params) Validate() error {
	if !(p.Probability >= 0 && p.Probability <= 1) {
		return fmt.Errorf("probability %v outside [0, 1]: %w", p.Probability, ErrInvalidParams)
	}
	if !(p.Threshold >= 0 && p.Threshold <= 1) {
		return fmt.Errorf("threshold %v outside [0, 1]: %w", p.Threshold, ErrInvalidParams)
	}
	if !(p.Dose >= 0) || math.IsInf(p.Dose, 1) {
		return fmt.Errorf("dose %v not a finite non-negative number: %w", p.Dose, ErrInvalidParams)
	}
	return nil
}

// Transfer returns the belief-unit parameters.
func (p Params) Transfer() belief.Transfer {
	return belief.Transfer{Probability: p.Probability, Dose: p.Dose, Threshold: p.Threshold}
}

func (p Params) String() string {
	return fmt.Sprintf("p=%.2f d=%.2f t=%.2f", p.Probability, p.Dose, p.Threshold)
}

// Default values applied by Config.withDefaults.
const (
	DefaultInteractionBudget = 10
	DefaultTimeLimit         = 10000
	DefaultWeekendTeam       = "3"
)

// Config selects and parameterises an engine.
type Config struct {
	Kind   Kind
	Params Params

	// InteractionBudget caps exchanges per event (pairwise). Zero selects
	// DefaultInteractionBudget; to disable transfer set Probability to 0.
	InteractionBudget int
	// TimeLimit is the number of ticks emitted by the projected engines,
	// including the initial point.
	TimeLimit int

	WeightType   network.WeightType
	WeightChoice WeightChoice

	// Exposure and WeekendTeam drive the full temporal engine. Two-day
	// events count as one exposure unless run by WeekendTeam.
	Exposure    Exposure
	WeekendTeam string

	Axis AxisMode
}

// DefaultConfig returns a configuration for the given strategy and tuple.
func DefaultConfig(kind Kind, params Params) Config {
	return Config{Kind: kind, Params: params}.withDefaults()
}

func (c Config) withDefaults() Config {
	if c.InteractionBudget == 0 {
		c.InteractionBudget = DefaultInteractionBudget
	}
	if c.TimeLimit == 0 {
		c.TimeLimit = DefaultTimeLimit
	}
	if c.WeightType == "" {
		c.WeightType = network.WeightNone
	}
	if c.WeightChoice == "" {
		c.WeightChoice = ChoiceNone
	}
	if c.Exposure == "" {
		c.Exposure = ExposureDay
	}
	if c.WeekendTeam == "" {
		c.WeekendTeam = DefaultWeekendTeam
	}
	if c.Axis == "" {
		c.Axis = AxisAuto
	}
	return c
}

// Validate checks the tuple and every enum after defaults are applied.
func (c Config) Validate() error {
	c = c.withDefaults()
	if _, err := ParseKind(string(c.Kind)); err != nil {
		return err
	}
	if err := c.Params.Validate(); err != nil {
		return err
	}
	if c.InteractionBudget < 0 {
		return fmt.Errorf("negative interaction budget %d: %w", c.InteractionBudget, ErrInvalidParams)
	}
	if c.TimeLimit < 1 {
		return fmt.Errorf("time limit %d below 1: %w", c.TimeLimit, ErrInvalidParams)
	}
	if _, err := network.ParseWeightType(string(c.WeightType)); err != nil {
		return fmt.Errorf("%w: %w", err, ErrInvalidParams)
	}
	switch c.WeightChoice {
	case ChoiceNone, ChoiceNeighbor, ChoiceInfluence:
	default:
		return fmt.Errorf("unknown weight choice %q: %w", c.WeightChoice, ErrInvalidParams)
	}
	switch c.Exposure {
	case ExposureEvent, ExposureDay:
	default:
		return fmt.Errorf("unknown exposure %q: %w", c.Exposure, ErrInvalidParams)
	}
	switch c.Axis {
	case AxisAuto, AxisOrder, AxisDay:
	default:
		return fmt.Errorf("unknown axis %q: %w", c.Axis, ErrInvalidParams)
	}
	return nil
}
