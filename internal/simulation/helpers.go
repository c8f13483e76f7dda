package simulation

import (
	"math"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/nvandessel/contagion/internal/network"
)

// ReplicateRand returns the rng of iteration i of reconstruction r.
func ReplicateRand(seed uint64, r, i int) *rand.Rand {
	return rand.New(rand.NewPCG(seed, uint64(r)<<32|uint64(i)))
}

// shuffleRand returns the rng that reorders ties of reconstruction r. Its
// stream never coincides with a replicate stream.
func shuffleRand(seed uint64, r int) *rand.Rand {
	return rand.New(rand.NewPCG(seed, math.MaxUint64-uint64(r)))
}

// ReplicateName is the result column of iteration i of reconstruction r: the
// flat replicate index.
func ReplicateName(r, i, iterations int) string {
	return strconv.Itoa(r*iterations + i)
}

// EventSpec is a flat builder for constructing records in tests and small
// scenarios. Agents all take Role.
type EventSpec struct {
	ID     string
	Title  string
	Year   int
	Date   string // 2006-01-02, optional
	Days   int
	Team   string
	Role   string
	Agents []string
}

// ToRecord converts an EventSpec into a network.Record. An unparsable Date
// leaves the record undated.
func (s EventSpec) ToRecord() network.Record {
	r := network.Record{
		ID:    s.ID,
		Title: s.Title,
		Year:  s.Year,
		Days:  s.Days,
		Team:  s.Team,
	}
	if s.Date != "" {
		if d, err := time.Parse(time.DateOnly, s.Date); err == nil {
			r.Date = d
			if r.Year == 0 {
				r.Year = d.Year()
			}
		}
	}
	for _, a := range s.Agents {
		r.Participants = append(r.Participants, network.Participant{ID: a, Role: s.Role})
	}
	return r
}

// Records converts specs in order.
func Records(specs ...EventSpec) []network.Record {
	out := make([]network.Record, len(specs))
	for i, s := range specs {
		out[i] = s.ToRecord()
	}
	return out
}
