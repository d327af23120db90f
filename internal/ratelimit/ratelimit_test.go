package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowConsumesBurstThenThrottles(t *testing.T) {
	l := New(1, 2)
	assert.True(t, l.Allow("alice"))
	assert.True(t, l.Allow("alice"))
	assert.False(t, l.Allow("alice"), "burst of 2 exhausted on the third immediate call")
}

func TestBucketsAreIndependentPerCaller(t *testing.T) {
	l := New(1, 1)
	assert.True(t, l.Allow("alice"))
	assert.True(t, l.Allow("bob"), "bob's bucket is independent of alice's")
}

func TestForgetDropsBucket(t *testing.T) {
	l := New(1, 1)
	require := assert.New(t)
	require.True(l.Allow("alice"))
	require.False(l.Allow("alice"))
	l.Forget("alice")
	require.True(l.Allow("alice"), "forgetting a caller resets their bucket")
}
