package network

import (
	"fmt"
	"slices"
	"time"
)

// PartitionUnit is the calendar unit blocks are cut on.
type PartitionUnit string

const (
	PartitionYear  PartitionUnit = "year"
	PartitionMonth PartitionUnit = "month"
)

// PartitionOptions configures Partition.
type PartitionOptions struct {
	Unit     PartitionUnit
	Interval int // units per block; values below 1 mean 1
}

// Block is one time window of records.
type Block struct {
	Key     string
	Start   time.Time
	Records []Record
}

// recordTime returns the instant a record is placed at: its date, else
// January 1st of its year.
func recordTime(r Record) time.Time {
	if !r.Date.IsZero() {
		return r.Date
	}
	return time.Date(r.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
}

// recordKey mirrors Event.timeKey for records.
func recordKey(r Record) int64 {
	if !r.Date.IsZero() {
		y, m, d := r.Date.Date()
		return int64(y)*10000 + int64(m)*100 + int64(d)
	}
	return int64(r.Year) * 10000
}

// Partition cuts records into consecutive time blocks. Blocks are returned in
// increasing time order and only non-empty blocks are kept. Within a block
// records keep their input order.
func Partition(records []Record, opts PartitionOptions) ([]Block, error) {
	if opts.Unit == "" {
		opts.Unit = PartitionYear
	}
	if opts.Unit != PartitionYear && opts.Unit != PartitionMonth {
		return nil, fmt.Errorf("network: unknown partition unit %q", opts.Unit)
	}
	if opts.Interval < 1 {
		opts.Interval = 1
	}
	if len(records) == 0 {
		return nil, nil
	}

	ordinal := func(t time.Time) int {
		if opts.Unit == PartitionMonth {
			return t.Year()*12 + int(t.Month()) - 1
		}
		return t.Year()
	}

	first := ordinal(recordTime(records[0]))
	for _, r := range records[1:] {
		first = min(first, ordinal(recordTime(r)))
	}

	byBucket := make(map[int][]Record)
	for _, r := range records {
		b := (ordinal(recordTime(r)) - first) / opts.Interval
		byBucket[b] = append(byBucket[b], r)
	}

	buckets := make([]int, 0, len(byBucket))
	for b := range byBucket {
		buckets = append(buckets, b)
	}
	slices.Sort(buckets)

	blocks := make([]Block, 0, len(buckets))
	for _, b := range buckets {
		start := first + b*opts.Interval
		var (
			key string
			at  time.Time
		)
		if opts.Unit == PartitionMonth {
			at = time.Date(start/12, time.Month(start%12+1), 1, 0, 0, 0, 0, time.UTC)
			key = at.Format("2006-01")
		} else {
			at = time.Date(start, time.January, 1, 0, 0, 0, 0, time.UTC)
			key = fmt.Sprintf("%d", start)
		}
		blocks = append(blocks, Block{Key: key, Start: at, Records: byBucket[b]})
	}
	return blocks, nil
}

// FirstKey returns the time key of the earliest record in a block, used to
// check that blocks are supplied in order.
func (b Block) FirstKey() int64 {
	if len(b.Records) == 0 {
		return 0
	}
	k := recordKey(b.Records[0])
	for _, r := range b.Records[1:] {
		k = min(k, recordKey(r))
	}
	return k
}
