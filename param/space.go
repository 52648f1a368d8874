// Package param defines tunable-parameter spaces: names, kinds, bounds and
// transforms, along with configuration sampling and numeric encoding for
// surrogate modeling.
package param

import (
	"math"

	"golang.org/x/exp/constraints"

	"github.com/scitune/scitune/pkg/errors"
)

// Kind identifies the type of a tunable parameter.
type Kind int

const (
	// Continuous parameters take any float64 in [Min, Max].
	Continuous Kind = iota
	// Integer parameters take any int64 in [Min, Max].
	Integer
	// Categorical parameters take one of a fixed level set.
	Categorical
)

func (k Kind) String() string {
	switch k {
	case Continuous:
		return "continuous"
	case Integer:
		return "integer"
	case Categorical:
		return "categorical"
	default:
		return "unknown"
	}
}

// Transform is applied to a numeric parameter before surrogate encoding and
// before uniform sampling, so that e.g. learning rates are explored on a log
// scale.
type Transform int

const (
	// NoTransform samples and encodes the raw value.
	NoTransform Transform = iota
	// Log10 samples and encodes log10(value). Bounds must be positive.
	Log10
)

func (t Transform) String() string {
	switch t {
	case NoTransform:
		return "none"
	case Log10:
		return "log10"
	default:
		return "unknown"
	}
}

// Param describes one tunable parameter.
type Param struct {
	Name string
	Kind Kind

	// Min and Max bound numeric parameters (inclusive). Ignored for
	// categorical parameters.
	Min float64
	Max float64

	// Levels is the value set of a categorical parameter.
	Levels []string

	// Transform is applied to numeric parameters for sampling and encoding.
	Transform Transform
}

// Range builds a numeric Param from typed bounds: integer types produce an
// Integer parameter, float types a Continuous one.
func Range[T constraints.Integer | constraints.Float](name string, min, max T) Param {
	kind := Integer
	switch any(min).(type) {
	case float32, float64:
		kind = Continuous
	}
	return Param{Name: name, Kind: kind, Min: float64(min), Max: float64(max)}
}

// LogRange is Range with a log10 transform attached.
func LogRange[T constraints.Integer | constraints.Float](name string, min, max T) Param {
	p := Range(name, min, max)
	p.Transform = Log10
	return p
}

// Levels builds a categorical Param.
func Levels(name string, levels ...string) Param {
	return Param{Name: name, Kind: Categorical, Levels: levels}
}

// encodedWidth returns the number of encoded dimensions the parameter
// occupies: 1 for numeric, one-hot width for categorical.
func (p Param) encodedWidth() int {
	if p.Kind == Categorical {
		return len(p.Levels)
	}
	return 1
}

// toUnit maps a raw numeric value into [0, 1] in transformed space.
func (p Param) toUnit(v float64) float64 {
	lo, hi := p.transformedBounds()
	if hi == lo {
		return 0
	}
	tv := v
	if p.Transform == Log10 {
		tv = math.Log10(v)
	}
	return (tv - lo) / (hi - lo)
}

// fromUnit maps u in [0, 1] back to a raw value, applying the inverse
// transform and integer rounding.
func (p Param) fromUnit(u float64) interface{} {
	lo, hi := p.transformedBounds()
	tv := lo + u*(hi-lo)
	v := tv
	if p.Transform == Log10 {
		v = math.Pow(10, tv)
	}
	if p.Kind == Integer {
		n := int64(math.Round(v))
		if n < int64(p.Min) {
			n = int64(p.Min)
		}
		if n > int64(p.Max) {
			n = int64(p.Max)
		}
		return n
	}
	if v < p.Min {
		v = p.Min
	}
	if v > p.Max {
		v = p.Max
	}
	return v
}

func (p Param) transformedBounds() (float64, float64) {
	if p.Transform == Log10 {
		return math.Log10(p.Min), math.Log10(p.Max)
	}
	return p.Min, p.Max
}

// Space is an ordered set of tunable parameters.
type Space []Param

// Validate checks the space for structural problems. It returns an
// InvalidArgumentError on the first problem found.
func (s Space) Validate() error {
	if len(s) == 0 {
		return errors.NewInvalidArgumentError("Space.Validate", "space", "parameter space is empty", len(s))
	}

	seen := make(map[string]bool, len(s))
	for _, p := range s {
		if p.Name == "" {
			return errors.NewInvalidArgumentError("Space.Validate", "name", "parameter name is empty", p.Name)
		}
		if seen[p.Name] {
			return errors.NewInvalidArgumentError("Space.Validate", "name", "duplicate parameter name", p.Name)
		}
		seen[p.Name] = true

		switch p.Kind {
		case Continuous, Integer:
			if p.Min > p.Max {
				return errors.NewInvalidArgumentError("Space.Validate", p.Name, "min exceeds max", p.Min)
			}
			if p.Transform == Log10 && p.Min <= 0 {
				return errors.NewInvalidArgumentError("Space.Validate", p.Name, "log10 transform requires positive bounds", p.Min)
			}
		case Categorical:
			if len(p.Levels) == 0 {
				return errors.NewInvalidArgumentError("Space.Validate", p.Name, "categorical parameter has no levels", len(p.Levels))
			}
		default:
			return errors.NewInvalidArgumentError("Space.Validate", p.Name, "unknown parameter kind", int(p.Kind))
		}
	}
	return nil
}

// EncodedDim returns the dimensionality of encoded configurations.
func (s Space) EncodedDim() int {
	dim := 0
	for _, p := range s {
		dim += p.encodedWidth()
	}
	return dim
}

// Encode maps a configuration into a numeric vector: numeric parameters are
// scaled to [0, 1] in transformed space, categorical parameters are one-hot
// encoded. All parameters of the space must be present in the configuration.
func (s Space) Encode(c Configuration) ([]float64, error) {
	vec := make([]float64, 0, s.EncodedDim())
	for _, p := range s {
		switch p.Kind {
		case Continuous, Integer:
			v, ok := c.Float(p.Name)
			if !ok {
				return nil, errors.NewValueError("Space.Encode", "configuration is missing numeric parameter "+p.Name)
			}
			vec = append(vec, p.toUnit(v))
		case Categorical:
			lvl, ok := c.Str(p.Name)
			if !ok {
				return nil, errors.NewValueError("Space.Encode", "configuration is missing categorical parameter "+p.Name)
			}
			hot := -1
			for i, l := range p.Levels {
				if l == lvl {
					hot = i
					break
				}
			}
			if hot < 0 {
				return nil, errors.NewValueError("Space.Encode", "unknown level "+lvl+" for parameter "+p.Name)
			}
			for i := range p.Levels {
				if i == hot {
					vec = append(vec, 1)
				} else {
					vec = append(vec, 0)
				}
			}
		}
	}
	return vec, nil
}
