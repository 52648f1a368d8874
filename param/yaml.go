package param

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/scitune/scitune/pkg/errors"
)

// spaceSpec is the YAML shape of a parameter space definition:
//
//	params:
//	  - name: learning_rate
//	    type: continuous
//	    min: 0.0001
//	    max: 0.1
//	    transform: log10
//	  - name: hidden_units
//	    type: integer
//	    min: 1
//	    max: 27
//	  - name: kernel
//	    type: categorical
//	    levels: [rbf, poly, linear]
type spaceSpec struct {
	Params []paramSpec `yaml:"params"`
}

type paramSpec struct {
	Name      string   `yaml:"name"`
	Type      string   `yaml:"type"`
	Min       float64  `yaml:"min"`
	Max       float64  `yaml:"max"`
	Levels    []string `yaml:"levels"`
	Transform string   `yaml:"transform"`
}

// ParseSpace decodes a YAML parameter space definition and validates it.
func ParseSpace(data []byte) (Space, error) {
	var spec spaceSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, errors.Wrap(err, "parsing parameter space")
	}

	space := make(Space, 0, len(spec.Params))
	for _, ps := range spec.Params {
		p := Param{
			Name: ps.Name,
			Min:  ps.Min,
			Max:  ps.Max,
		}

		switch ps.Type {
		case "continuous":
			p.Kind = Continuous
		case "integer":
			p.Kind = Integer
		case "categorical":
			p.Kind = Categorical
			p.Levels = ps.Levels
		default:
			return nil, errors.NewInvalidArgumentError("ParseSpace", "type", "unknown parameter type", ps.Type)
		}

		switch ps.Transform {
		case "", "none":
			p.Transform = NoTransform
		case "log10":
			p.Transform = Log10
		default:
			return nil, errors.NewInvalidArgumentError("ParseSpace", "transform", "unknown transform", ps.Transform)
		}

		space = append(space, p)
	}

	if err := space.Validate(); err != nil {
		return nil, err
	}
	return space, nil
}

// LoadSpace reads and parses a parameter space definition from a YAML file.
func LoadSpace(path string) (Space, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading parameter space file %s", path)
	}
	return ParseSpace(data)
}
