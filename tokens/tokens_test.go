package tokens

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCounterKnownModel(t *testing.T) {
	c, err := NewCounter("gpt-4")
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestNewCounterUnknownModelFallsBack(t *testing.T) {
	c, err := NewCounter("claude-3-5-sonnet-20241022")
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestCount(t *testing.T) {
	c, err := NewCounter("gpt-4")
	require.NoError(t, err)

	assert.Equal(t, 0, c.Count(""))

	// Exact counts depend on the vocabulary; assert plausible bounds only.
	n := c.Count("Hello, world! This is a token counting test.")
	assert.Greater(t, n, 5)
	assert.Less(t, n, 20)
}

func TestCountScalesWithLength(t *testing.T) {
	c, err := NewCounter("gpt-4")
	require.NoError(t, err)

	short := c.Count("word")
	long := c.Count(strings.Repeat("word ", 100))
	assert.Greater(t, long, short*10)
}

func TestNilCounterEstimates(t *testing.T) {
	var c *Counter
	assert.Equal(t, 10, c.Count(strings.Repeat("a", 40)))
}

func TestTruncate(t *testing.T) {
	c, err := NewCounter("gpt-4")
	require.NoError(t, err)

	short := "short text"
	assert.Equal(t, short, c.Truncate(short, 100))

	long := strings.Repeat("some repeated text ", 200)
	truncated := c.Truncate(long, 50)
	assert.Less(t, len(truncated), len(long))
	assert.True(t, strings.HasSuffix(truncated, "..."))
	assert.LessOrEqual(t, c.Count(truncated), 50)
}
