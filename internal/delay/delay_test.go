package delay_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/arifwn/linkguard/internal/delay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveNoEntry(t *testing.T) {
	c := delay.New()
	wait, blocked := c.Resolve("h", time.Now())
	assert.False(t, blocked)
	assert.Zero(t, wait)
}

func TestResolveFutureDeadlineBlocks(t *testing.T) {
	c := delay.New()
	now := time.Now()
	c.Set("h", now.Add(2*time.Second))

	wait, blocked := c.Resolve("h", now)
	require.True(t, blocked)
	assert.InDelta(t, 2*time.Second, wait, float64(50*time.Millisecond))
}

func TestResolvePastDeadlineEvicts(t *testing.T) {
	c := delay.New()
	now := time.Now()
	c.Set("h", now.Add(-time.Second))

	wait, blocked := c.Resolve("h", now)
	assert.False(t, blocked)
	assert.Zero(t, wait)

	_, ok := c.Check("h")
	assert.False(t, ok, "past deadline should be evicted")
}

func TestSetKeepsLaterDeadline(t *testing.T) {
	c := delay.New()
	now := time.Now()
	c.Set("h", now.Add(1*time.Second))
	c.Set("h", now.Add(5*time.Second))
	c.Set("h", now.Add(2*time.Second)) // earlier proposal must not win

	got, ok := c.Check("h")
	require.True(t, ok)
	assert.WithinDuration(t, now.Add(5*time.Second), got, time.Millisecond)
}

func TestParseRetryAfterSeconds(t *testing.T) {
	now := time.Now()
	got, ok := delay.ParseRetryAfter("1", now)
	require.True(t, ok)
	assert.WithinDuration(t, now.Add(1*time.Second), got, time.Millisecond)
}

func TestParseRetryAfterHTTPDate(t *testing.T) {
	now := time.Now()
	future := now.Add(90 * time.Second).UTC().Truncate(time.Second)
	got, ok := delay.ParseRetryAfter(future.Format(http.TimeFormat), now)
	require.True(t, ok)
	assert.WithinDuration(t, future, got, time.Second)
}

func TestParseRetryAfterMalformed(t *testing.T) {
	_, ok := delay.ParseRetryAfter("not-a-number-or-date", time.Now())
	assert.False(t, ok)
}

func TestParseRetryAfterEmpty(t *testing.T) {
	_, ok := delay.ParseRetryAfter("", time.Now())
	assert.False(t, ok)
}
