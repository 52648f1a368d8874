// Package cv provides the cross-validation fold partitioning reused across
// all trials of a search run.
package cv

import (
	"math/rand/v2"

	"github.com/scitune/scitune/pkg/errors"
)

// Fold is one train/validation split.
type Fold struct {
	TrainIndices []int
	ValIndices   []int
}

// FoldSet is an ordered sequence of folds. Within one set, every row index
// appears in validation exactly once; the train side of each fold is the
// complement of its validation side.
type FoldSet []Fold

// NumSamples returns the total number of rows partitioned by the set.
func (fs FoldSet) NumSamples() int {
	n := 0
	for _, f := range fs {
		n += len(f.ValIndices)
	}
	return n
}

// Splitter generates a fold set over nSamples rows.
type Splitter interface {
	Split(nSamples int) (FoldSet, error)
	NumSplits() int
}

// KFold implements k-fold cross-validation splitting.
type KFold struct {
	NSplits int
	Shuffle bool
	Seed    int64
}

// NewKFold creates a new k-fold splitter.
func NewKFold(nSplits int, shuffle bool, seed int64) *KFold {
	return &KFold{
		NSplits: nSplits,
		Shuffle: shuffle,
		Seed:    seed,
	}
}

// NumSplits returns the number of folds the splitter produces.
func (kf *KFold) NumSplits() int {
	return kf.NSplits
}

// Split generates train/validation indices for each fold. The partition is
// deterministic for a fixed seed.
func (kf *KFold) Split(nSamples int) (FoldSet, error) {
	if kf.NSplits < 2 {
		return nil, errors.NewInvalidArgumentError("KFold.Split", "nSplits", "must be at least 2", kf.NSplits)
	}
	if kf.NSplits > nSamples {
		return nil, errors.NewInvalidArgumentError("KFold.Split", "nSplits", "exceeds number of samples", kf.NSplits)
	}

	indices := make([]int, nSamples)
	for i := range indices {
		indices[i] = i
	}

	if kf.Shuffle {
		r := rand.New(rand.NewPCG(uint64(kf.Seed), uint64(kf.Seed)))
		r.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	folds := make(FoldSet, kf.NSplits)
	foldSize := nSamples / kf.NSplits
	remainder := nSamples % kf.NSplits

	currentIdx := 0
	for i := 0; i < kf.NSplits; i++ {
		valSize := foldSize
		if i < remainder {
			valSize++
		}

		valIndices := make([]int, valSize)
		copy(valIndices, indices[currentIdx:currentIdx+valSize])

		valSet := make(map[int]bool, valSize)
		for _, idx := range valIndices {
			valSet[idx] = true
		}

		trainIndices := make([]int, 0, nSamples-valSize)
		for _, idx := range indices {
			if !valSet[idx] {
				trainIndices = append(trainIndices, idx)
			}
		}

		folds[i] = Fold{
			TrainIndices: trainIndices,
			ValIndices:   valIndices,
		}

		currentIdx += valSize
	}

	return folds, nil
}

// MakeFolds partitions nSamples rows into k shuffled folds using the given
// seed. Repeated calls with the same arguments produce the same partition.
func MakeFolds(nSamples, k int, seed int64) (FoldSet, error) {
	return NewKFold(k, true, seed).Split(nSamples)
}
