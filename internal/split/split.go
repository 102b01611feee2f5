package split

import (
	"math"
	"math/rand"
	"sort"

	"github.com/viniciushammett/go-dataset-prep/internal/dataset"
)

type Options struct {
	Seed           int64
	Train          float64
	Validation     float64
	Test           float64
	StratifyColumn string // empty or absent = uniform split
}

// Assignment holds disjoint row indices covering the whole batch.
type Assignment struct {
	Train      []int
	Validation []int
	Test       []int
	Stratified bool
}

func (a Assignment) Sizes() (train, validation, test int) {
	return len(a.Train), len(a.Validation), len(a.Test)
}

type Partitioner struct{ o Options }

func New(o Options) *Partitioner { return &Partitioner{o: o} }

// Split separates the training rows from the remainder, then splits the
// remainder into validation and test. When the stratify column exists both
// steps keep per-class proportions. The RNG is reseeded on every call so the
// same batch always yields the same assignment.
func (p *Partitioner) Split(b *dataset.Batch) (Assignment, error) {
	n := b.Len()
	if n == 0 {
		return Assignment{}, dataset.Errorf(dataset.KindEmptyInput, "split", "batch is empty")
	}
	nRest := ceil((1 - p.o.Train) * float64(n))
	nTrain := n - nRest
	nTest := ceil(p.o.Test / (p.o.Validation + p.o.Test) * float64(nRest))
	nVal := nRest - nTest
	if nTrain <= 0 || nVal <= 0 || nTest <= 0 {
		return Assignment{}, dataset.Errorf(dataset.KindInsufficientData, "split",
			"%d rows cannot fill train/validation/test (%d/%d/%d)", n, nTrain, nVal, nTest)
	}

	var labels []string
	if j := b.ColumnIndex(p.o.StratifyColumn); p.o.StratifyColumn != "" && j >= 0 {
		labels = make([]string, n)
		for i, v := range b.Values(j) {
			labels[i] = classKey(v)
		}
	}

	rng := rand.New(rand.NewSource(p.o.Seed))
	all := make([]int, n)
	for i := range all {
		all[i] = i
	}
	train, rest := takeSplit(rng, all, labels, nTrain)
	val, test := takeSplit(rng, rest, labels, nVal)
	return Assignment{Train: train, Validation: val, Test: test, Stratified: labels != nil}, nil
}

func ceil(x float64) int { return int(math.Ceil(x - 1e-9)) }

func classKey(v dataset.Value) string {
	switch {
	case v.IsNull():
		return "\x00null"
	case v.IsNumber():
		return "n:" + v.String()
	}
	return "t:" + v.String()
}

// takeSplit draws k rows out of idx; the rest go to the second group.
func takeSplit(rng *rand.Rand, idx []int, labels []string, k int) (picked, rest []int) {
	if labels == nil {
		perm := rng.Perm(len(idx))
		for i, p := range perm {
			if i < k {
				picked = append(picked, idx[p])
			} else {
				rest = append(rest, idx[p])
			}
		}
		return picked, rest
	}

	classes := map[string][]int{}
	for _, i := range idx {
		classes[labels[i]] = append(classes[labels[i]], i)
	}
	keys := make([]string, 0, len(classes))
	for c := range classes {
		keys = append(keys, c)
	}
	sort.Strings(keys)
	counts := make([]int, len(keys))
	for i, c := range keys {
		counts[i] = len(classes[c])
	}

	alloc := approximateMode(rng, counts, k)
	for i, c := range keys {
		members := classes[c]
		rng.Shuffle(len(members), func(a, b int) { members[a], members[b] = members[b], members[a] })
		picked = append(picked, members[:alloc[i]]...)
		rest = append(rest, members[alloc[i]:]...)
	}
	rng.Shuffle(len(picked), func(a, b int) { picked[a], picked[b] = picked[b], picked[a] })
	rng.Shuffle(len(rest), func(a, b int) { rest[a], rest[b] = rest[b], rest[a] })
	return picked, rest
}

// approximateMode spreads k draws over classes proportionally to counts:
// floor of the exact share first, then the leftover draws go to the classes
// with the largest fractional part (ties in random order).
func approximateMode(rng *rand.Rand, counts []int, k int) []int {
	total := 0
	for _, c := range counts {
		total += c
	}
	alloc := make([]int, len(counts))
	frac := make([]float64, len(counts))
	left := k
	for i, c := range counts {
		share := float64(c) * float64(k) / float64(total)
		alloc[i] = int(math.Floor(share + 1e-9))
		if alloc[i] > c {
			alloc[i] = c
		}
		frac[i] = share - float64(alloc[i])
		left -= alloc[i]
	}
	order := rng.Perm(len(counts))
	sort.SliceStable(order, func(a, b int) bool { return frac[order[a]] > frac[order[b]] })
	for left > 0 {
		progressed := false
		for _, i := range order {
			if left == 0 {
				break
			}
			if alloc[i] < counts[i] {
				alloc[i]++
				left--
				progressed = true
			}
		}
		if !progressed {
			break
		}
	}
	return alloc
}
