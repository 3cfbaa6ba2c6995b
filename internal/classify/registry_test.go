package classify

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend returns a fixed vector and records the last input it saw.
type fakeBackend struct {
	probs  []float32
	err    error
	lastIn Input
}

func (f *fakeBackend) Classify(ctx context.Context, in Input, mt ModelType) (*Output, error) {
	f.lastIn = in
	if f.err != nil {
		return nil, f.err
	}
	return &Output{Probs: f.probs, Source: SourceModel}, nil
}

// testPNG encodes a small solid-color image.
func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: 120, G: 120, B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestRegistry_UnknownModelType(t *testing.T) {
	r := NewRegistry(DefaultConfigs(), &fakeBackend{})

	_, err := r.Config(ModelType("covid"))
	assert.ErrorIs(t, err, ErrUnknownModelType)

	_, err = r.Classify(context.Background(), Input{Bytes: []byte("x")}, ModelType("covid"))
	assert.ErrorIs(t, err, ErrUnknownModelType)
}

func TestRegistry_RejectsEmptyImage(t *testing.T) {
	r := NewRegistry(DefaultConfigs(), &fakeBackend{})
	_, err := r.Classify(context.Background(), Input{}, ModelPneumonia)
	assert.ErrorIs(t, err, ErrInvalidImage)
}

func TestRegistry_RejectsOversizedImage(t *testing.T) {
	r := NewRegistry(DefaultConfigs(), &fakeBackend{})
	big := make([]byte, MaxImageBytes+1)
	_, err := r.Classify(context.Background(), Input{Bytes: big}, ModelPneumonia)
	assert.ErrorIs(t, err, ErrImageTooLarge)
}

func TestRegistry_DelegatesToBackend(t *testing.T) {
	backend := &fakeBackend{probs: []float32{0.2, 0.8}}
	r := NewRegistry(DefaultConfigs(), backend)

	out, err := r.Classify(context.Background(), Input{Bytes: testPNG(t), Filename: "chest.png"}, ModelPneumonia)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.2, 0.8}, out.Probs)
	assert.Equal(t, "chest.png", backend.lastIn.Filename)
}

func TestRegistry_PredictNormalizes(t *testing.T) {
	backend := &fakeBackend{probs: []float32{0.2, 0.8}}
	r := NewRegistry(DefaultConfigs(), backend)

	result, err := r.Predict(context.Background(), Input{Bytes: testPNG(t)}, ModelPneumonia)
	require.NoError(t, err)
	assert.Equal(t, "Pneumonia", result.Prediction)
	assert.Equal(t, SourceModel, result.Source)
	assert.True(t, result.IsPositive)
}

func TestRegistry_PredictShapeMismatch(t *testing.T) {
	backend := &fakeBackend{probs: []float32{0.2, 0.3, 0.5}}
	r := NewRegistry(DefaultConfigs(), backend)

	_, err := r.Predict(context.Background(), Input{Bytes: testPNG(t)}, ModelPneumonia)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}
