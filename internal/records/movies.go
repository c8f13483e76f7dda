// Package records reads event records from the formats the collaboration
// data is exported in: movie documents (JSON), clinical shift schedules (CSV),
// seed lists and a-priori belief files.
package records

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/nvandessel/contagion/internal/network"
)

// ErrFormat marks input that cannot be turned into records.
var ErrFormat = errors.New("records: malformed input")

type movieDoc struct {
	ID        json.RawMessage     `json:"_id"`
	Year      int                 `json:"year"`
	Title     string              `json:"title"`
	Producers [][]json.RawMessage `json:"producers"`
}

// ReadMovies decodes movie documents. The input is either a JSON array of
// documents or an object keyed by movie id; keyed documents may omit _id.
// Each producer entry must be an [id, role] pair. Object input is returned in
// key order.
func ReadMovies(r io.Reader) ([]network.Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read movies: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	var docs []movieDoc
	var keys []string
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &docs); err != nil {
			return nil, fmt.Errorf("decode movies: %w: %w", err, ErrFormat)
		}
	case '{':
		byID := make(map[string]movieDoc)
		if err := json.Unmarshal(data, &byID); err != nil {
			return nil, fmt.Errorf("decode movies: %w: %w", err, ErrFormat)
		}
		for k := range byID {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			docs = append(docs, byID[k])
		}
	default:
		return nil, fmt.Errorf("decode movies: expected array or object: %w", ErrFormat)
	}

	out := make([]network.Record, 0, len(docs))
	for i, d := range docs {
		id, err := scalarString(d.ID)
		if err != nil {
			return nil, fmt.Errorf("movie %d: _id: %w", i, err)
		}
		if id == "" && keys != nil {
			id = keys[i]
		}
		rec := network.Record{ID: id, Title: d.Title, Year: d.Year}
		for j, p := range d.Producers {
			if len(p) != 2 {
				return nil, fmt.Errorf("movie %d (%q) producer %d: want [id, role], got %d fields: %w", i, id, j, len(p), ErrFormat)
			}
			pid, err := scalarString(p[0])
			if err != nil {
				return nil, fmt.Errorf("movie %d (%q) producer %d id: %w", i, id, j, err)
			}
			role, err := scalarString(p[1])
			if err != nil {
				return nil, fmt.Errorf("movie %d (%q) producer %d role: %w", i, id, j, err)
			}
			rec.Participants = append(rec.Participants, network.Participant{ID: pid, Role: role})
		}
		out = append(out, rec)
	}
	return out, nil
}

// scalarString accepts a JSON string, number or null.
func scalarString(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("%w: %w", err, ErrFormat)
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("want string or number, got %s: %w", raw, ErrFormat)
	}
	if i, err := n.Int64(); err == nil {
		return strconv.FormatInt(i, 10), nil
	}
	return n.String(), nil
}
