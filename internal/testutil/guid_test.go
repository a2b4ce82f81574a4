package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGUIDSequence_StartsAtOne(t *testing.T) {
	g := NewGUIDSequence()
	assert.Zero(t, g.Count())
	assert.Equal(t, "00000000-0000-4000-8000-000000000001", g.Next())
	assert.Equal(t, "00000000-0000-4000-8000-000000000002", g.Next())
	assert.Equal(t, uint64(2), g.Count())
}

func TestGUIDSequence_Reset(t *testing.T) {
	g := NewGUIDSequence()
	g.Next()
	g.Next()
	g.Reset()
	assert.Zero(t, g.Count())

	// First call after reset starts over
	assert.Equal(t, "00000000-0000-4000-8000-000000000001", g.Next())
}

func TestGUIDSequence_Hex(t *testing.T) {
	g := NewGUIDSequence()
	for i := 0; i < 9; i++ {
		g.Next()
	}
	assert.Equal(t, "00000000-0000-4000-8000-00000000000a", g.Next())
}

func TestGUIDSequence_ThreadSafe(t *testing.T) {
	g := NewGUIDSequence()
	const numGoroutines = 50
	const callsPerGoroutine = 100

	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	results := make([][]string, numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		results[i] = make([]string, callsPerGoroutine)
		go func(idx int) {
			defer wg.Done()
			for j := 0; j < callsPerGoroutine; j++ {
				results[idx][j] = g.Next()
			}
		}(i)
	}

	wg.Wait()

	seen := make(map[string]bool)
	for i := range results {
		for _, v := range results[i] {
			require.False(t, seen[v], "duplicate guid %s", v)
			seen[v] = true
		}
	}
	assert.Len(t, seen, numGoroutines*callsPerGoroutine)
	assert.Equal(t, uint64(numGoroutines*callsPerGoroutine), g.Count())
}

func TestGUIDSequence_Deterministic(t *testing.T) {
	g1 := NewGUIDSequence()
	g2 := NewGUIDSequence()

	for i := 0; i < 100; i++ {
		assert.Equal(t, g1.Next(), g2.Next())
	}
}

func TestDiscardLogger(t *testing.T) {
	l := DiscardLogger()
	require.NotNil(t, l)
	l.Error("dropped", "k", "v")
	assert.Equal(t, uint(20), Partition.Bits)
}

func TestGolden_FixtureLayout(t *testing.T) {
	g := Golden(t)
	require.NotNil(t, g)
	assert.Equal(t, "testdata/golden/dump.golden", g.GoldenFileName(t, "dump"))
}
