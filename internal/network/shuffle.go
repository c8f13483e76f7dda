package network

import (
	"math/rand/v2"
	"slices"
)

// ShuffleTies returns a copy of records in which events sharing a time key are
// put in a random relative order. The new order is written into the Order
// field so Compare honours it; records at distinct times keep their order.
func ShuffleTies(records []Record, rng *rand.Rand) []Record {
	out := slices.Clone(records)

	groups := make(map[int64][]int)
	var keys []int64
	for i, r := range out {
		k := recordKey(r)
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], i)
	}
	slices.Sort(keys)

	for _, k := range keys {
		idx := groups[k]
		perm := rng.Perm(len(idx))
		for pos, i := range idx {
			out[i].Order = perm[pos]
		}
	}
	return out
}
