package cas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalJSON_SortsKeys(t *testing.T) {
	input := map[string]any{
		"z": 1,
		"a": map[string]any{"y": true, "b": "x"},
		"m": []any{map[string]any{"k": 1, "c": 2}},
	}

	out, err := CanonicalJSON(input)
	require.NoError(t, err)
	assert.Equal(t, `{"a":{"b":"x","y":true},"m":[{"c":2,"k":1}],"z":1}`, string(out))
}

func TestCanonicalJSON_Struct(t *testing.T) {
	type point struct {
		Y float64 `json:"y"`
		X float64 `json:"x"`
	}

	out, err := CanonicalJSON(point{X: 1.5, Y: 2})
	require.NoError(t, err)
	assert.Equal(t, `{"x":1.5,"y":2}`, string(out))
}

func TestCanonicalJSON_PreservesLargeNumbers(t *testing.T) {
	out, err := CanonicalJSON(map[string]any{"n": int64(9007199254740993)})
	require.NoError(t, err)
	assert.Equal(t, `{"n":9007199254740993}`, string(out))
}

func TestFingerprint_KeyOrderIndependent(t *testing.T) {
	a := map[string]any{"one": 1, "two": []any{"a", "b"}}
	b := map[string]any{"two": []any{"a", "b"}, "one": 1}

	fa, err := Fingerprint(a)
	require.NoError(t, err)
	fb, err := Fingerprint(b)
	require.NoError(t, err)

	assert.Equal(t, fa, fb)
	assert.Len(t, fa, 64)
}

func TestFingerprint_DetectsChange(t *testing.T) {
	fa := MustFingerprint([]string{"a", "b"})
	fb := MustFingerprint([]string{"b", "a"})
	assert.NotEqual(t, fa, fb, "array order is significant")
}

func TestMustFingerprint_Unencodable(t *testing.T) {
	assert.Equal(t, "", MustFingerprint(make(chan int)))
}

func TestBlake3Hex_KnownVector(t *testing.T) {
	// BLAKE3 of the empty input.
	assert.Equal(t,
		"af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262",
		Blake3Hex(nil))
}
