package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreprocess_ShapeAndRange(t *testing.T) {
	data := testPNG(t)
	out, err := Preprocess(data, [3]int{32, 32, 3})
	require.NoError(t, err)

	assert.Len(t, out, 32*32*3)
	for _, v := range out {
		assert.GreaterOrEqual(t, v, float32(0))
		assert.LessOrEqual(t, v, float32(1))
	}
}

func TestPreprocess_InvalidBytes(t *testing.T) {
	_, err := Preprocess([]byte("not an image"), [3]int{32, 32, 3})
	assert.ErrorIs(t, err, ErrInvalidImage)
}

func TestPreprocess_Deterministic(t *testing.T) {
	data := testPNG(t)
	a, err := Preprocess(data, [3]int{16, 16, 3})
	require.NoError(t, err)
	b, err := Preprocess(data, [3]int{16, 16, 3})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
