package param

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigurationEquality(t *testing.T) {
	a := NewConfiguration(map[string]interface{}{"x": 3, "lr": 0.1, "kernel": "rbf"})
	b := NewConfiguration(map[string]interface{}{"kernel": "rbf", "lr": 0.1, "x": int64(3)})
	c := NewConfiguration(map[string]interface{}{"x": 4, "lr": 0.1, "kernel": "rbf"})

	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Key(), b.Key())
	assert.False(t, a.Equal(c))
}

func TestConfigurationNormalization(t *testing.T) {
	c := NewConfiguration(map[string]interface{}{
		"i8":  int8(5),
		"u32": uint32(7),
		"f32": float32(0.5),
	})

	i8, ok := c.Int("i8")
	require.True(t, ok)
	assert.Equal(t, int64(5), i8)

	u32, ok := c.Int("u32")
	require.True(t, ok)
	assert.Equal(t, int64(7), u32)

	f32, ok := c.Float("f32")
	require.True(t, ok)
	assert.Equal(t, 0.5, f32)
}

func TestConfigurationAccessors(t *testing.T) {
	c := NewConfiguration(map[string]interface{}{"x": 3, "lr": 0.01, "kernel": "poly"})

	assert.Equal(t, 3, c.Len())
	assert.Equal(t, []string{"kernel", "lr", "x"}, c.Names())

	// Int converts to float through Float, not the other way around.
	xf, ok := c.Float("x")
	require.True(t, ok)
	assert.Equal(t, 3.0, xf)

	_, ok = c.Int("lr")
	assert.False(t, ok)

	kernel, ok := c.Str("kernel")
	require.True(t, ok)
	assert.Equal(t, "poly", kernel)
}

func TestConfigurationKeyIsInjective(t *testing.T) {
	// Delimiter characters in names or string values must not let distinct
	// configurations collide on the canonical key.
	a := NewConfiguration(map[string]interface{}{"a": "1,b=2"})
	b := NewConfiguration(map[string]interface{}{"a": "1", "b": "2"})

	assert.NotEqual(t, a.Key(), b.Key())
	assert.False(t, a.Equal(b))

	c := NewConfiguration(map[string]interface{}{"x=y": "z"})
	d := NewConfiguration(map[string]interface{}{"x": "y=z"})
	assert.NotEqual(t, c.Key(), d.Key())

	// Escaped and literal renderings of a delimiter stay distinct too.
	e := NewConfiguration(map[string]interface{}{"a": "%2C"})
	f := NewConfiguration(map[string]interface{}{"a": ","})
	assert.NotEqual(t, e.Key(), f.Key())
}

func TestConfigurationWith(t *testing.T) {
	base := NewConfiguration(map[string]interface{}{"x": 1})
	derived := base.With("seed", 99)

	_, ok := base.Value("seed")
	assert.False(t, ok, "With must not mutate the receiver")

	seed, ok := derived.Int("seed")
	require.True(t, ok)
	assert.Equal(t, int64(99), seed)
}

func TestConfigurationJSONRoundTrip(t *testing.T) {
	orig := NewConfiguration(map[string]interface{}{
		"units":  int64(128),
		"lr":     0.0003,
		"kernel": "rbf",
	})

	data, err := json.Marshal(orig)
	require.NoError(t, err)

	var restored Configuration
	require.NoError(t, json.Unmarshal(data, &restored))

	assert.True(t, orig.Equal(restored))

	units, ok := restored.Int("units")
	require.True(t, ok)
	assert.Equal(t, int64(128), units)

	lr, ok := restored.Float("lr")
	require.True(t, ok)
	assert.Equal(t, 0.0003, lr)
}
