package param

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/scitune/scitune/pkg/errors"
)

// Configuration is one immutable assignment of values to tunable parameters.
// Values are float64, int64 or string. Equality is structural over the full
// key-value content, exposed through a canonical key used for deduplication.
type Configuration struct {
	values map[string]interface{}
	key    string
}

// NewConfiguration builds a configuration from a name-value map. Integer
// values of any width are normalized to int64 and float32 to float64; the
// input map is copied.
func NewConfiguration(values map[string]interface{}) Configuration {
	normalized := make(map[string]interface{}, len(values))
	for name, v := range values {
		normalized[name] = normalizeValue(v)
	}
	return Configuration{
		values: normalized,
		key:    canonicalKey(normalized),
	}
}

func normalizeValue(v interface{}) interface{} {
	switch t := v.(type) {
	case int:
		return int64(t)
	case int8:
		return int64(t)
	case int16:
		return int64(t)
	case int32:
		return int64(t)
	case int64:
		return t
	case uint:
		return int64(t)
	case uint8:
		return int64(t)
	case uint16:
		return int64(t)
	case uint32:
		return int64(t)
	case float32:
		return float64(t)
	case float64:
		return t
	case string:
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}

func canonicalKey(values map[string]interface{}) string {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	for i, name := range names {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(escapeKeyPart(name))
		sb.WriteByte('=')
		switch v := values[name].(type) {
		case int64:
			sb.WriteString(strconv.FormatInt(v, 10))
		case float64:
			sb.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		case string:
			sb.WriteString(escapeKeyPart(v))
		}
	}
	return sb.String()
}

// keyEscaper escapes the key delimiters inside names and string values, so
// the canonical rendering stays injective over the key-value content.
var keyEscaper = strings.NewReplacer("%", "%25", ",", "%2C", "=", "%3D")

func escapeKeyPart(s string) string {
	return keyEscaper.Replace(s)
}

// Key returns the canonical string rendering of the configuration. Two
// configurations are equal iff their keys are equal.
func (c Configuration) Key() string {
	return c.key
}

// Equal reports structural equality with another configuration.
func (c Configuration) Equal(other Configuration) bool {
	return c.key == other.key
}

// Len returns the number of parameters in the configuration.
func (c Configuration) Len() int {
	return len(c.values)
}

// Names returns the parameter names in sorted order.
func (c Configuration) Names() []string {
	names := make([]string, 0, len(c.values))
	for name := range c.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Value returns the raw value for a parameter.
func (c Configuration) Value(name string) (interface{}, bool) {
	v, ok := c.values[name]
	return v, ok
}

// Float returns a numeric parameter as float64. Integer values convert.
func (c Configuration) Float(name string) (float64, bool) {
	switch v := c.values[name].(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// Int returns an integer parameter.
func (c Configuration) Int(name string) (int64, bool) {
	v, ok := c.values[name].(int64)
	return v, ok
}

// Str returns a categorical parameter.
func (c Configuration) Str(name string) (string, bool) {
	v, ok := c.values[name].(string)
	return v, ok
}

// With returns a copy of the configuration with one value replaced or added.
// The receiver is unchanged.
func (c Configuration) With(name string, value interface{}) Configuration {
	merged := make(map[string]interface{}, len(c.values)+1)
	for k, v := range c.values {
		merged[k] = v
	}
	merged[name] = normalizeValue(value)
	return Configuration{values: merged, key: canonicalKey(merged)}
}

// taggedValue keeps the value type explicit so serialization round-trips
// without int64 values collapsing into float64.
type taggedValue struct {
	Type  string      `json:"type"`
	Value interface{} `json:"value"`
}

// MarshalJSON encodes the configuration with typed values.
func (c Configuration) MarshalJSON() ([]byte, error) {
	out := make(map[string]taggedValue, len(c.values))
	for name, v := range c.values {
		switch t := v.(type) {
		case int64:
			out[name] = taggedValue{Type: "int", Value: strconv.FormatInt(t, 10)}
		case float64:
			out[name] = taggedValue{Type: "float", Value: t}
		case string:
			out[name] = taggedValue{Type: "string", Value: t}
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a configuration encoded by MarshalJSON.
func (c *Configuration) UnmarshalJSON(data []byte) error {
	var raw map[string]taggedValue
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Wrap(err, "decoding configuration")
	}

	values := make(map[string]interface{}, len(raw))
	for name, tv := range raw {
		switch tv.Type {
		case "int":
			s, ok := tv.Value.(string)
			if !ok {
				return errors.Newf("decoding configuration: int value for %q is not a string", name)
			}
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return errors.Wrapf(err, "decoding configuration: parameter %q", name)
			}
			values[name] = n
		case "float":
			f, ok := tv.Value.(float64)
			if !ok {
				return errors.Newf("decoding configuration: float value for %q is not numeric", name)
			}
			values[name] = f
		case "string":
			s, ok := tv.Value.(string)
			if !ok {
				return errors.Newf("decoding configuration: string value for %q is not a string", name)
			}
			values[name] = s
		default:
			return errors.Newf("decoding configuration: unknown value type %q for %q", tv.Type, name)
		}
	}

	c.values = values
	c.key = canonicalKey(values)
	return nil
}

// String implements fmt.Stringer.
func (c Configuration) String() string {
	return "{" + c.key + "}"
}
