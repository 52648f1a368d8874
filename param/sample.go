package param

import (
	"math"
	"math/rand/v2"
)

// NewRand returns the deterministic random source used throughout the
// library for a given seed.
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
}

// Sample draws one configuration uniformly at random. Numeric parameters are
// sampled uniformly in transformed space, so log-scaled parameters explore
// orders of magnitude evenly.
func (s Space) Sample(rng *rand.Rand) Configuration {
	values := make(map[string]interface{}, len(s))
	for _, p := range s {
		switch p.Kind {
		case Continuous, Integer:
			values[p.Name] = p.fromUnit(rng.Float64())
		case Categorical:
			values[p.Name] = p.Levels[rng.IntN(len(p.Levels))]
		}
	}
	return NewConfiguration(values)
}

// LatinHypercube draws n space-filling configurations. Each numeric
// parameter's range is divided into n strata with one sample per stratum;
// categorical parameters cycle through their levels in shuffled order.
func (s Space) LatinHypercube(n int, rng *rand.Rand) []Configuration {
	if n <= 0 {
		return nil
	}

	// Per-parameter stratum permutations.
	perms := make([][]int, len(s))
	for j := range s {
		perms[j] = rng.Perm(n)
	}

	configs := make([]Configuration, 0, n)
	for i := 0; i < n; i++ {
		values := make(map[string]interface{}, len(s))
		for j, p := range s {
			stratum := perms[j][i]
			switch p.Kind {
			case Continuous, Integer:
				u := (float64(stratum) + rng.Float64()) / float64(n)
				values[p.Name] = p.fromUnit(u)
			case Categorical:
				values[p.Name] = p.Levels[stratum%len(p.Levels)]
			}
		}
		configs = append(configs, NewConfiguration(values))
	}
	return configs
}

// Grid expands the space into a full factorial candidate set. Continuous
// parameters contribute levelsPerParam evenly spaced points in transformed
// space; integer parameters contribute every value in range up to
// levelsPerParam points, evenly spaced otherwise; categorical parameters
// contribute all levels.
func (s Space) Grid(levelsPerParam int) []Configuration {
	if levelsPerParam < 1 {
		levelsPerParam = 1
	}

	axes := make([][]interface{}, len(s))
	for j, p := range s {
		axes[j] = p.gridAxis(levelsPerParam)
	}

	total := 1
	for _, axis := range axes {
		total *= len(axis)
	}

	configs := make([]Configuration, 0, total)
	idx := make([]int, len(s))
	for i := 0; i < total; i++ {
		values := make(map[string]interface{}, len(s))
		for j, p := range s {
			values[p.Name] = axes[j][idx[j]]
		}
		configs = append(configs, NewConfiguration(values))

		for j := len(idx) - 1; j >= 0; j-- {
			idx[j]++
			if idx[j] < len(axes[j]) {
				break
			}
			idx[j] = 0
		}
	}
	return configs
}

func (p Param) gridAxis(levels int) []interface{} {
	switch p.Kind {
	case Categorical:
		axis := make([]interface{}, len(p.Levels))
		for i, l := range p.Levels {
			axis[i] = l
		}
		return axis

	case Integer:
		span := int64(p.Max) - int64(p.Min) + 1
		if span <= int64(levels) {
			axis := make([]interface{}, 0, span)
			for v := int64(p.Min); v <= int64(p.Max); v++ {
				axis = append(axis, v)
			}
			return axis
		}
		axis := make([]interface{}, 0, levels)
		seen := make(map[int64]bool, levels)
		for i := 0; i < levels; i++ {
			u := float64(i) / float64(levels-1)
			v := p.fromUnit(u).(int64)
			if !seen[v] {
				seen[v] = true
				axis = append(axis, v)
			}
		}
		return axis

	default: // Continuous
		if levels == 1 {
			mid := p.fromUnit(0.5)
			return []interface{}{mid}
		}
		axis := make([]interface{}, 0, levels)
		for i := 0; i < levels; i++ {
			u := float64(i) / float64(levels-1)
			axis = append(axis, p.fromUnit(u))
		}
		return axis
	}
}

// Distance returns the Euclidean distance between two encoded vectors. Used
// by the acquisition tie-break that prefers candidates far from evaluated
// points.
func Distance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
