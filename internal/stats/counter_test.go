package stats

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestCounter_ConcurrentInc(t *testing.T) {
	c := NewCounter()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				c.Inc("OK")
				if j%10 == 0 {
					c.Inc("ERROR")
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(8000), c.Get("OK"))
	assert.Equal(t, int64(800), c.Get("ERROR"))
	assert.Equal(t, []string{"ERROR", "OK"}, c.Keys())
}

func TestCounter_MergeAndReset(t *testing.T) {
	a := NewCounter()
	b := NewCounter()
	a.Inc("x")
	b.Add("x", 2)
	b.AddScore("y", 0.5)

	a.Merge(b)
	assert.Equal(t, int64(3), a.Get("x"))
	assert.Equal(t, int64(1), a.Get("y"))
	assert.InDelta(t, 0.5, a.Score("y"), 1e-12)

	a.Reset()
	assert.Zero(t, a.Len())
	assert.Zero(t, a.Get("x"))
}

func TestCounter_String(t *testing.T) {
	c := NewCounter()
	c.Inc("b")
	c.Add("a", 2)
	assert.Equal(t, "a\t2\nb\t1\n", c.String())
}

func TestCounter_WriteScores(t *testing.T) {
	c := NewCounter()
	c.AddScore("AC", 1.0)
	c.AddScore("AC", 0.5)
	c.AddScore("DE", 2.0)

	var buf bytes.Buffer
	require.NoError(t, c.WriteScores(&buf))
	assert.Equal(t, "DE\t1\t2\t2\nAC\t2\t1.5\t0.75\n", buf.String())
}

func TestWarner_Budget(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	w := NewWarner(zap.New(core), 3)

	for i := 0; i < 10; i++ {
		w.Warn("no mapping", "no mapping found for PDB id")
	}
	w.Warn("other", "something else")

	assert.Equal(t, int64(10), w.Count("no mapping"))
	assert.Equal(t, int64(1), w.Count("other"))
	// 3 messages + 1 suppression notice + 1 other
	assert.Equal(t, 5, logs.Len())
	assert.Equal(t, int64(10), w.Counts().Get("no mapping"))
}

func TestWarner_DefaultBudget(t *testing.T) {
	w := NewWarner(nil, 0)
	logged := 0
	for i := 0; i < 30; i++ {
		if w.Warn("c", "m") {
			logged++
		}
	}
	assert.Equal(t, DefaultMaxWarnings, logged)
}
