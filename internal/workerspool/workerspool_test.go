// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package workerspool

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_ForEach(t *testing.T) {
	for _, parallelism := range []int{-1, 0, 1, 3} {
		pool := New()
		pool.SetMaxParallelism(parallelism)
		var running, maxRunning atomic.Int32
		var mu sync.Mutex
		seen := make([]int, 0, 20)
		pool.ForEach(20, func(i int) {
			current := running.Add(1)
			for {
				prev := maxRunning.Load()
				if current <= prev || maxRunning.CompareAndSwap(prev, current) {
					break
				}
			}
			mu.Lock()
			seen = append(seen, i)
			mu.Unlock()
			running.Add(-1)
		})
		assert.ElementsMatch(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19}, seen)
		if parallelism > 0 {
			assert.LessOrEqual(t, int(maxRunning.Load()), parallelism, "parallelism=%d", parallelism)
		}
		if parallelism == 0 {
			assert.Equal(t, int32(1), maxRunning.Load())
		}
	}

	// Nil pool runs sequentially, in order.
	var nilPool *Pool
	var order []int
	nilPool.ForEach(3, func(i int) { order = append(order, i) })
	require.Equal(t, []int{0, 1, 2}, order)
}

func TestPool_StartIfAvailable(t *testing.T) {
	pool := New()
	pool.SetMaxParallelism(1)
	block := make(chan struct{})
	done := make(chan struct{})
	require.True(t, pool.StartIfAvailable(func() {
		<-block
		close(done)
	}))
	require.False(t, pool.StartIfAvailable(func() {}))
	close(block)
	<-done

	pool.SetMaxParallelism(0)
	require.False(t, pool.StartIfAvailable(func() {}))
}
