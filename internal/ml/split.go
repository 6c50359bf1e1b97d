package ml

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"sort"

	"hype-classifier/internal/label"
)

// Split holds row indices of the training and held-out partitions, each in
// ascending order.
type Split struct {
	Train []int `json:"train"`
	Test  []int `json:"test"`
}

// StratifiedSplit partitions rows so that every label keeps its share in both
// partitions. The held-out size is ceil(n*testFraction); each class receives
// its proportional share rounded by largest remainder, ties going to the class
// listed first. Membership is drawn with a PCG stream seeded by seed, so equal
// inputs always produce equal partitions.
func StratifiedSplit(labels []label.Label, testFraction float64, seed uint64) (Split, error) {
	n := len(labels)
	if testFraction <= 0 || testFraction >= 1 {
		return Split{}, fmt.Errorf("test fraction must be within (0, 1), got %v", testFraction)
	}
	if n == 0 {
		return Split{}, fmt.Errorf("cannot split an empty dataset")
	}

	members := make(map[label.Label][]int)
	for i, l := range labels {
		members[l] = append(members[l], i)
	}
	classes := make([]label.Label, 0, len(members))
	for l := range members {
		classes = append(classes, l)
	}
	slices.Sort(classes)
	for _, l := range classes {
		if len(members[l]) < 2 {
			return Split{}, fmt.Errorf("class %s has %d member(s); stratified splitting needs at least 2", l, len(members[l]))
		}
	}

	nTest := int(math.Ceil(float64(n)*testFraction - 1e-9))
	if nTest >= n {
		return Split{}, fmt.Errorf("test fraction %v leaves no training rows out of %d", testFraction, n)
	}

	alloc := make([]int, len(classes))
	remainders := make([]float64, len(classes))
	assigned := 0
	for i, l := range classes {
		exact := float64(nTest) * float64(len(members[l])) / float64(n)
		alloc[i] = int(math.Floor(exact + 1e-9))
		remainders[i] = exact - float64(alloc[i])
		assigned += alloc[i]
	}
	order := make([]int, len(classes))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return remainders[order[a]] > remainders[order[b]]
	})
	for k := 0; assigned < nTest; k++ {
		alloc[order[k%len(order)]]++
		assigned++
	}

	rng := rand.New(rand.NewPCG(seed, 0x9e3779b97f4a7c15))
	var s Split
	for i, l := range classes {
		idx := slices.Clone(members[l])
		rng.Shuffle(len(idx), func(a, b int) { idx[a], idx[b] = idx[b], idx[a] })
		s.Test = append(s.Test, idx[:alloc[i]]...)
		s.Train = append(s.Train, idx[alloc[i]:]...)
	}
	slices.Sort(s.Train)
	slices.Sort(s.Test)
	return s, nil
}
