// Package network builds the collaboration networks that contagion runs on.
//
// A Network is an arena of agents and events with a participation index: the
// bipartite (temporal) view. Project derives the agent-agent (projected) view
// over the same arena, so beliefs written through either view stay in sync.
//
// Errors:
//
//	ErrMalformedRecord      - record with empty id or no participants.
//	ErrMissingParticipant   - participant with an empty agent id.
//	ErrDuplicateParticipant - the same agent listed twice in one record.
//	ErrConflictingEvent     - two records share an id but disagree on attributes.
//	ErrUnknownBeliefType    - seeding policy not recognised.
//	ErrAgentNotFound        - lookup of an agent id that is not in the arena.
//	ErrZeroThreshold        - empirical-random seeding with a zero threshold.
package network

import (
	"errors"
	"time"
)

// Sentinel errors for network construction.
var (
	ErrMalformedRecord      = errors.New("network: malformed record")
	ErrMissingParticipant   = errors.New("network: participant id is empty")
	ErrDuplicateParticipant = errors.New("network: participant listed twice")
	ErrConflictingEvent     = errors.New("network: conflicting event attributes")
	ErrUnknownBeliefType    = errors.New("network: unknown belief type")
	ErrAgentNotFound        = errors.New("network: agent not found")
	ErrZeroThreshold        = errors.New("network: empirical-random needs a positive threshold")
)

// Participant is one agent taking part in an event, with its role there
// ("producer", "attending", "fellow", ...).
type Participant struct {
	ID   string `json:"id"`
	Role string `json:"role,omitempty"`
}

// Record is one input row: an event and the agents involved in it.
type Record struct {
	ID    string    `json:"id"`
	Title string    `json:"title,omitempty"`
	Year  int       `json:"year,omitempty"`
	Date  time.Time `json:"date,omitempty"`
	Days  int       `json:"days,omitempty"`
	// Order breaks ties between events with the same time key.
	Order        int           `json:"order,omitempty"`
	Team         string        `json:"team,omitempty"`
	Participants []Participant `json:"participants"`
}

// Role records the role an agent held in a given event.
type Role struct {
	Role    string
	EventID string
	Year    int
}

// Agent is a person able to hold a belief. Status is derived from Belief and
// the owning network's threshold.
type Agent struct {
	ID     string
	Belief float64
	Events []string
	Roles  []Role

	index int
}

// Index returns the agent's position in the arena (first-appearance order).
func (a *Agent) Index() int { return a.index }

// Event is an immutable shared activity. Participants holds arena indices.
type Event struct {
	ID           string
	Title        string
	Year         int
	Date         time.Time
	Days         int
	Order        int
	Team         string
	Participants []int

	seq int
}

// Duration returns the event length in days, never less than one.
func (e *Event) Duration() int {
	if e.Days < 1 {
		return 1
	}
	return e.Days
}

// timeKey orders events by date when present, else by year.
func (e *Event) timeKey() int64 {
	if !e.Date.IsZero() {
		y, m, d := e.Date.Date()
		return int64(y)*10000 + int64(m)*100 + int64(d)
	}
	return int64(e.Year) * 10000
}

// Compare is the total order over events: time key, then explicit order
// field, then insertion sequence, then id.
func Compare(a, b *Event) int {
	switch ka, kb := a.timeKey(), b.timeKey(); {
	case ka < kb:
		return -1
	case ka > kb:
		return 1
	}
	switch {
	case a.Order < b.Order:
		return -1
	case a.Order > b.Order:
		return 1
	case a.seq < b.seq:
		return -1
	case a.seq > b.seq:
		return 1
	case a.ID < b.ID:
		return -1
	case a.ID > b.ID:
		return 1
	}
	return 0
}
