package records

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nvandessel/contagion/internal/network"
)

func TestReadMovies_Array(t *testing.T) {
	in := `[
		{"_id": 101, "year": 1999, "title": "First", "producers": [["p1", "producer"], ["p2", "executive"]]},
		{"_id": "m2", "year": 2000, "title": "Second", "producers": [[7, "producer"]]}
	]`
	recs, err := ReadMovies(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadMovies: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records", len(recs))
	}
	if recs[0].ID != "101" || recs[0].Year != 1999 || recs[0].Title != "First" {
		t.Errorf("record 0 = %+v", recs[0])
	}
	if got := recs[0].Participants[1]; got.ID != "p2" || got.Role != "executive" {
		t.Errorf("participant = %+v", got)
	}
	if recs[1].Participants[0].ID != "7" {
		t.Errorf("numeric producer id = %q", recs[1].Participants[0].ID)
	}
}

func TestReadMovies_Keyed(t *testing.T) {
	in := `{"b": {"year": 2001, "producers": [["x", "producer"]]},
	        "a": {"_id": "a", "year": 2000, "producers": [["y", "producer"]]}}`
	recs, err := ReadMovies(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 || recs[0].ID != "a" || recs[1].ID != "b" {
		t.Errorf("got %+v", recs)
	}
}

func TestReadMovies_Malformed(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"producer arity", `[{"_id": 1, "producers": [["p1"]]}]`},
		{"producer triple", `[{"_id": 1, "producers": [["p1", "producer", "x"]]}]`},
		{"boolean id", `[{"_id": true, "producers": []}]`},
		{"not a document", `"hello"`},
		{"broken json", `[{"_id": 1,`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadMovies(strings.NewReader(tt.in)); !errors.Is(err, ErrFormat) {
				t.Errorf("err = %v, want ErrFormat", err)
			}
		})
	}
}

func TestReadMovies_BuildRejectsMissingID(t *testing.T) {
	recs, err := ReadMovies(strings.NewReader(`[{"_id": 1, "producers": [[null, "producer"]]}]`))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := network.Build(recs, network.Options{Threshold: 0.5}); !errors.Is(err, network.ErrMissingParticipant) {
		t.Errorf("err = %v", err)
	}
}

func TestReadShifts(t *testing.T) {
	in := "Date,Days,Attending,Fellow,Team\n" +
		"2015-01-01,2,A1,F1,1\n" +
		"1/5/2015,3,A2,F1,3\n"
	recs, err := ReadShifts(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadShifts: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records", len(recs))
	}
	want := time.Date(2015, 1, 5, 0, 0, 0, 0, time.UTC)
	if !recs[1].Date.Equal(want) || recs[1].Days != 3 || recs[1].Team != "3" || recs[1].ID != "2" {
		t.Errorf("record 1 = %+v", recs[1])
	}
	if p := recs[0].Participants; p[0].ID != "A1" || p[0].Role != "attending" || p[1].Role != "fellow" {
		t.Errorf("participants = %+v", p)
	}
}

func TestReadShifts_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		line string
	}{
		{"bad date", "Date,Days,Attending,Fellow\n2015-01-01,1,A,F\nyesterday,1,A,F\n", "line 3"},
		{"bad days", "Date,Days,Attending,Fellow\n2015-01-01,x,A,F\n", "line 2"},
		{"bad order", "Date,Days,Attending,Fellow,Order\n2015-01-01,1,A,F,first\n", "line 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadShifts(strings.NewReader(tt.in))
			if !errors.Is(err, ErrFormat) {
				t.Fatalf("err = %v", err)
			}
			if !strings.Contains(err.Error(), tt.line) {
				t.Errorf("error %q does not name %s", err, tt.line)
			}
		})
	}

	if _, err := ReadShifts(strings.NewReader("Date,Attending\n")); !errors.Is(err, ErrFormat) {
		t.Errorf("missing columns: err = %v", err)
	}
}

func TestReadSeeds(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"lines", "# women producers\nnm1\n\nnm2\n", []string{"nm1", "nm2"}},
		{"json", `["nm1", "nm2"]`, []string{"nm1", "nm2"}},
		{"yaml", "- nm1\n- nm2\n", []string{"nm1", "nm2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadSeeds(strings.NewReader(tt.in))
			if err != nil {
				t.Fatal(err)
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReadBeliefs(t *testing.T) {
	got, err := ReadBeliefs(strings.NewReader(`{"a": 0.25, "b": 1}`))
	if err != nil {
		t.Fatal(err)
	}
	if got["a"] != 0.25 || got["b"] != 1 {
		t.Errorf("got %v", got)
	}
	if _, err := ReadBeliefs(strings.NewReader("a: 1.5\n")); !errors.Is(err, ErrFormat) {
		t.Errorf("out-of-range belief: err = %v", err)
	}
	empty, err := ReadBeliefs(strings.NewReader(""))
	if err != nil || len(empty) != 0 {
		t.Errorf("empty input: %v %v", empty, err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "shifts.csv")
	if err := os.WriteFile(csvPath, []byte("Date,Days,Attending,Fellow\n2015-01-01,1,A,F\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	recs, err := Load(csvPath, "")
	if err != nil || len(recs) != 1 {
		t.Fatalf("Load csv: %v %v", recs, err)
	}
	if DetectFormat("movies.JSON") != FormatMovies || DetectFormat("x.CSV") != FormatShifts {
		t.Error("format detection")
	}
	if _, err := Load(filepath.Join(dir, "missing.json"), ""); err == nil {
		t.Error("expected error for missing file")
	}
}
