package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitFirstVisitIsImmediate(t *testing.T) {
	d := New(time.Hour, 2*time.Hour)

	start := time.Now()
	err := d.Wait(context.Background())
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestWaitSpacesVisits(t *testing.T) {
	d := New(50*time.Millisecond, 50*time.Millisecond)

	require.NoError(t, d.Wait(context.Background()))
	start := time.Now()
	require.NoError(t, d.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestWaitZeroRangeNeverBlocks(t *testing.T) {
	d := New(0, 0)

	for i := 0; i < 3; i++ {
		start := time.Now()
		require.NoError(t, d.Wait(context.Background()))
		assert.Less(t, time.Since(start), 100*time.Millisecond)
	}
}

func TestWaitHonorsCancellation(t *testing.T) {
	d := New(10*time.Second, 10*time.Second)
	require.NoError(t, d.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := d.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
