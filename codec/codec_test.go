package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type manifest struct {
	Namespace string            `json:"namespace" msgpack:"namespace"`
	Dimension int               `json:"dimension" msgpack:"dimension"`
	Fields    []string          `json:"fields" msgpack:"fields"`
	Extra     map[string]string `json:"extra,omitempty" msgpack:"extra,omitempty"`
}

func TestByName(t *testing.T) {
	for _, name := range []string{"json", "go-json", "msgpack"} {
		c, ok := ByName(name)
		require.True(t, ok, name)
		assert.Equal(t, name, c.Name())
	}

	_, ok := ByName("gob")
	assert.False(t, ok)

	_, err := Lookup("gob")
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	assert.Equal(t, "go-json", Default.Name())
}

func TestCodecs(t *testing.T) {
	in := manifest{
		Namespace: "chunks",
		Dimension: 384,
		Fields:    []string{"source", "title"},
		Extra:     map[string]string{"k": "v"},
	}

	for _, c := range []Codec{JSON{}, GoJSON{}, Msgpack{}} {
		t.Run(c.Name(), func(t *testing.T) {
			b, err := c.Marshal(in)
			require.NoError(t, err)

			var out manifest
			require.NoError(t, c.Unmarshal(b, &out))
			assert.Equal(t, in, out)
		})
	}
}

func TestJSONCompatibility(t *testing.T) {
	in := map[string]map[string]string{"a": {"title": "x"}, "b": {}}

	b1, err := JSON{}.Marshal(in)
	require.NoError(t, err)

	b2, err := GoJSON{}.Marshal(in)
	require.NoError(t, err)

	assert.JSONEq(t, string(b1), string(b2))
}
