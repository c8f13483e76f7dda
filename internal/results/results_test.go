package results

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"slices"
	"strings"
	"testing"

	"github.com/nvandessel/contagion/internal/contagion"
	"github.com/nvandessel/contagion/internal/history"
)

func orderHistory(counts ...int) history.History {
	h := history.History{Axis: history.AxisOrder}
	for i, c := range counts {
		h.Points = append(h.Points, history.Point{Time: i, Key: 2000 + i/2, Count: c})
	}
	return h
}

func TestTable_AddChecksAxis(t *testing.T) {
	tab := NewTable()
	if err := tab.Add("0", orderHistory(1, 2, 3)); err != nil {
		t.Fatal(err)
	}
	if err := tab.Add("1", orderHistory(1, 1, 4)); err != nil {
		t.Fatal(err)
	}

	other := orderHistory(1, 2, 3)
	other.Points[2].Key = 1990
	if err := tab.Add("2", other); !errors.Is(err, history.ErrInconsistentTimeAxis) {
		t.Errorf("mismatched years: err = %v", err)
	}
	if err := tab.Add("3", orderHistory(1, 2)); !errors.Is(err, history.ErrInconsistentTimeAxis) {
		t.Errorf("short history: err = %v", err)
	}
	if err := tab.Add("0", orderHistory(1, 2, 3)); err == nil {
		t.Error("duplicate column accepted")
	}
	if !slices.Equal(tab.Names(), []string{"0", "1"}) || tab.Len() != 3 {
		t.Errorf("names %v len %d", tab.Names(), tab.Len())
	}
	if !slices.Equal(tab.Keys(), []int{2000, 2000, 2001}) {
		t.Errorf("keys = %v", tab.Keys())
	}
}

func TestTable_Summarize(t *testing.T) {
	tab := NewTable()
	for i, counts := range [][]int{{1, 2}, {1, 4}, {1, 6}, {1, 8}} {
		if err := tab.Add(string(rune('a'+i)), orderHistory(counts...)); err != nil {
			t.Fatal(err)
		}
	}
	tab.Summarize()
	tab.Summarize() // recomputes in place

	mean, _ := tab.Column(ColMean)
	median, _ := tab.Column(ColMedian)
	low, _ := tab.Column(ColLow)
	high, _ := tab.Column(ColHigh)
	if mean[1] != 5 || median[1] != 5 {
		t.Errorf("mean %v median %v", mean[1], median[1])
	}
	// Linear interpolation over [2 4 6 8]: positions 0.075 and 2.925.
	if math.Abs(low[1]-2.15) > 1e-9 || math.Abs(high[1]-7.85) > 1e-9 {
		t.Errorf("low %v high %v", low[1], high[1])
	}
	if len(tab.Replicates()) != 4 || len(tab.Names()) != 8 {
		t.Errorf("replicates %v names %v", tab.Replicates(), tab.Names())
	}
}

func TestQuantile(t *testing.T) {
	if got := Quantile([]float64{3, 1, 2}, 0.5); got != 2 {
		t.Errorf("median = %v", got)
	}
	if !math.IsNaN(Quantile(nil, 0.5)) || !math.IsNaN(Mean(nil)) {
		t.Error("empty input should be NaN")
	}
}

func TestTable_JSONSplitOrient(t *testing.T) {
	tab := NewTable()
	if err := tab.Add("0", orderHistory(1, 2)); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := tab.WriteJSON(&buf); err != nil {
		t.Fatal(err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(buf.Bytes(), &raw); err != nil {
		t.Fatal(err)
	}
	if len(raw) != 3 {
		t.Errorf("keys = %v, want columns/index/data only", raw)
	}
	want := `{"columns":["year","0"],"index":[0,1],"data":[[2000,1],[2000,2]]}`
	if strings.TrimSpace(buf.String()) != want {
		t.Errorf("got %s", buf.String())
	}

	back, err := ReadJSON(&buf, "")
	if err != nil {
		t.Fatal(err)
	}
	if back.Axis() != history.AxisOrder || !slices.Equal(back.Keys(), tab.Keys()) {
		t.Errorf("axis %s keys %v", back.Axis(), back.Keys())
	}
	col, _ := back.Column("0")
	if !slices.Equal(col, []float64{1, 2}) {
		t.Errorf("column = %v", col)
	}
	// A round-tripped table still guards its axis.
	if err := back.Add("1", orderHistory(1, 2, 3)); !errors.Is(err, history.ErrInconsistentTimeAxis) {
		t.Errorf("err = %v", err)
	}
}

func TestReadJSON_Malformed(t *testing.T) {
	tests := []string{
		`{"columns":["a"],"index":[0,1],"data":[[1]]}`,
		`{"columns":["a","b"],"index":[0],"data":[[1]]}`,
		`not json`,
	}
	for _, in := range tests {
		if _, err := ReadJSON(strings.NewReader(in), history.AxisTick); !errors.Is(err, ErrFormat) {
			t.Errorf("%s: err = %v", in, err)
		}
	}
}

func TestTable_ArrowRoundTrip(t *testing.T) {
	tab := NewTable()
	for _, name := range []string{"0", "1"} {
		if err := tab.Add(name, orderHistory(1, 2, 5)); err != nil {
			t.Fatal(err)
		}
	}
	tab.Summarize()

	var buf bytes.Buffer
	if err := tab.WriteArrow(&buf); err != nil {
		t.Fatalf("WriteArrow: %v", err)
	}
	back, err := ReadArrow(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("ReadArrow: %v", err)
	}
	if back.Axis() != history.AxisOrder {
		t.Errorf("axis = %s", back.Axis())
	}
	if !slices.Equal(back.Index(), tab.Index()) || !slices.Equal(back.Keys(), tab.Keys()) {
		t.Errorf("index %v keys %v", back.Index(), back.Keys())
	}
	if !slices.Equal(back.Names(), tab.Names()) {
		t.Errorf("names = %v", back.Names())
	}
	mean, _ := back.Column(ColMean)
	if !slices.Equal(mean, []float64{1, 2, 5}) {
		t.Errorf("mean = %v", mean)
	}
}

func TestFileName(t *testing.T) {
	p := contagion.Params{Probability: 0.1, Dose: 0.5, Threshold: 0.05}
	name := FileName("shift", p, "3")
	if name != "contagion_shift_p10_d50_t05_ver_3.json" {
		t.Fatalf("got %s", name)
	}
	info, err := ParseFileName("/out/" + name)
	if err != nil {
		t.Fatal(err)
	}
	if info.NetworkType != "shift" || info.Version != "3" || info.Params != p {
		t.Errorf("info = %+v", info)
	}

	info, err = ParseFileName("contagion_movie_projected_p100_d07_t50_ver_v2.json")
	if err != nil || info.NetworkType != "movie_projected" || info.Params.Probability != 1 {
		t.Errorf("info = %+v, err = %v", info, err)
	}
	if _, err := ParseFileName("results.json"); !errors.Is(err, ErrFormat) {
		t.Errorf("err = %v", err)
	}
}
