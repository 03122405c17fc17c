package data

import (
	"math"
	"math/rand"
	"sort"
)

// Split partitions records into a training and a test subset. The test subset
// holds round(fraction*len(records)) records chosen by a permutation seeded with
// seed, so the same seed always yields the same partition. Both subsets keep
// the input order of their members.
func Split(records []Record, fraction float64, seed int64) (train, test []Record, err error) {
	if math.IsNaN(fraction) || fraction <= 0 || fraction >= 1 {
		return nil, nil, configurationError("test fraction must be in (0,1), got %v", fraction)
	}

	testSize := int(math.Round(float64(len(records)) * fraction))
	rnd := rand.New(rand.NewSource(seed))
	indices := rnd.Perm(len(records))

	testIdx := append([]int(nil), indices[:testSize]...)
	sort.Ints(testIdx)

	train = make([]Record, 0, len(records)-testSize)
	test = make([]Record, 0, testSize)
	next := 0
	for i, record := range records {
		if next < len(testIdx) && testIdx[next] == i {
			test = append(test, record)
			next++
			continue
		}
		train = append(train, record)
	}
	return train, test, nil
}
