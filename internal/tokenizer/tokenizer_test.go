package tokenizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountEmpty(t *testing.T) {
	n, err := Count("")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCountDeterministic(t *testing.T) {
	const text = "Hello world. This is a test."
	first, err := Count(text)
	require.NoError(t, err)
	assert.Greater(t, first, 0)
	for i := 0; i < 3; i++ {
		again, err := Count(text)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestCountGrowsWithText(t *testing.T) {
	short, err := Count("one two three")
	require.NoError(t, err)
	long, err := Count(strings.Repeat("one two three ", 50))
	require.NoError(t, err)
	assert.Greater(t, long, short)
}

func TestSliceWithinLimit(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 40)
	total, err := Count(text)
	require.NoError(t, err)
	require.Greater(t, total, 50)

	prefix, err := Slice(text, 50)
	require.NoError(t, err)
	n, err := Count(prefix)
	require.NoError(t, err)
	assert.LessOrEqual(t, n, 50)
	assert.True(t, strings.HasPrefix(text, prefix))
}

func TestSliceShortTextUnchanged(t *testing.T) {
	prefix, err := Slice("tiny", 100)
	require.NoError(t, err)
	assert.Equal(t, "tiny", prefix)
}

func TestSliceZeroBudget(t *testing.T) {
	prefix, err := Slice("anything", 0)
	require.NoError(t, err)
	assert.Empty(t, prefix)
}
