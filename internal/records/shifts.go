package records

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nvandessel/contagion/internal/network"
)

var dateLayouts = []string{"2006-01-02", "1/2/2006", "01/02/2006"}

// shiftColumns locates the named columns of a shift schedule header.
type shiftColumns struct {
	date, days, attending, fellow, team, order int
}

func locate(header []string) (shiftColumns, error) {
	c := shiftColumns{date: -1, days: -1, attending: -1, fellow: -1, team: -1, order: -1}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "date":
			c.date = i
		case "days":
			c.days = i
		case "attending":
			c.attending = i
		case "fellow":
			c.fellow = i
		case "team":
			c.team = i
		case "order", "shift_order":
			c.order = i
		}
	}
	var missing []string
	for name, idx := range map[string]int{"Date": c.date, "Days": c.days, "Attending": c.attending, "Fellow": c.fellow} {
		if idx < 0 {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return c, fmt.Errorf("header missing %s: %w", strings.Join(missing, ", "), ErrFormat)
	}
	return c, nil
}

// ReadShifts decodes a shift schedule with columns Date, Days, Attending and
// Fellow, plus optional Team and Order. Each row becomes one event whose
// participants are the attending and the fellow. Event ids are the 1-based
// row numbers. Errors name the offending line.
func ReadShifts(r io.Reader) ([]network.Record, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read shift header: %w", err)
	}
	cols, err := locate(header)
	if err != nil {
		return nil, err
	}

	var out []network.Record
	for row := 1; ; row++ {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read shifts: %w", err)
		}
		line, _ := cr.FieldPos(0)
		rec, err := shiftRecord(fields, cols, row)
		if err != nil {
			return nil, fmt.Errorf("shift line %d: %w", line, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func shiftRecord(fields []string, c shiftColumns, row int) (network.Record, error) {
	get := func(i int) string {
		if i < 0 || i >= len(fields) {
			return ""
		}
		return strings.TrimSpace(fields[i])
	}

	date, err := parseDate(get(c.date))
	if err != nil {
		return network.Record{}, err
	}
	days, err := strconv.Atoi(get(c.days))
	if err != nil {
		return network.Record{}, fmt.Errorf("days %q: %w", get(c.days), ErrFormat)
	}
	rec := network.Record{
		ID:   strconv.Itoa(row),
		Year: date.Year(),
		Date: date,
		Days: days,
		Team: get(c.team),
		Participants: []network.Participant{
			{ID: get(c.attending), Role: "attending"},
			{ID: get(c.fellow), Role: "fellow"},
		},
	}
	if s := get(c.order); s != "" {
		if rec.Order, err = strconv.Atoi(s); err != nil {
			return network.Record{}, fmt.Errorf("order %q: %w", s, ErrFormat)
		}
	}
	return rec, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("date %q: %w", s, ErrFormat)
}
