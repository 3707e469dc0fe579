package embedder

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbedder scripts success or failure for gateway tests.
type fakeEmbedder struct {
	name  string
	dim   int
	err   error
	calls atomic.Int64
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = make([]float32, f.dim)
		out[i][0] = 1
	}
	return out, nil
}

func (f *fakeEmbedder) Name() string   { return f.name }
func (f *fakeEmbedder) Dimension() int { return f.dim }

func TestGatewayUsesPrimary(t *testing.T) {
	primary := &fakeEmbedder{name: "primary", dim: 8}
	fallback := &fakeEmbedder{name: "fallback", dim: 4}
	gw := NewGateway(primary, fallback)

	vecs, name, err := gw.Embed(context.Background(), []string{"x", "y"})
	require.NoError(t, err)
	assert.Equal(t, "primary", name)
	assert.Len(t, vecs, 2)
	assert.Len(t, vecs[0], 8)
	assert.EqualValues(t, 0, fallback.calls.Load())
}

func TestGatewayFallsBackOnPermanentError(t *testing.T) {
	primary := &fakeEmbedder{name: "primary", dim: 8, err: errors.New("invalid api key")}
	fallback := &fakeEmbedder{name: "fallback", dim: 4}
	gw := NewGateway(primary, fallback)

	vecs, name, err := gw.Embed(context.Background(), []string{"x"})
	require.NoError(t, err)
	assert.Equal(t, "fallback", name)
	assert.Len(t, vecs[0], 4)
	// non-retryable errors must not be retried
	assert.EqualValues(t, 1, primary.calls.Load())
}

func TestGatewayNoPrimaryGoesStraightToFallback(t *testing.T) {
	fallback := &fakeEmbedder{name: "fallback", dim: 4}
	gw := NewGateway(nil, fallback)

	_, name, err := gw.Embed(context.Background(), []string{"x"})
	require.NoError(t, err)
	assert.Equal(t, "fallback", name)
}

func TestGatewayBothFail(t *testing.T) {
	gw := NewGateway(nil, nil)
	_, _, err := gw.Embed(context.Background(), []string{"x"})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestGatewayByName(t *testing.T) {
	primary := &fakeEmbedder{name: "primary", dim: 8}
	fallback := &fakeEmbedder{name: "fallback", dim: 4}
	gw := NewGateway(primary, fallback)

	assert.Equal(t, primary, gw.ByName("primary"))
	assert.Equal(t, fallback, gw.ByName("fallback"))
	assert.Nil(t, gw.ByName("something-else"))

	noPrimary := NewGateway(nil, fallback)
	assert.Nil(t, noPrimary.ByName("primary"))
}

func TestGatewayCancelledContext(t *testing.T) {
	primary := &fakeEmbedder{name: "primary", dim: 8, err: errors.New("boom")}
	gw := NewGateway(primary, &fakeEmbedder{name: "fallback", dim: 4})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := gw.Embed(ctx, []string{"x"})
	assert.Error(t, err)
}

func TestRetryableClassification(t *testing.T) {
	assert.True(t, retryable(context.DeadlineExceeded))
	assert.False(t, retryable(errors.New("schema validation failed")))
}
