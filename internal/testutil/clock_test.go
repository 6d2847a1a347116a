package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFixedClock_MovesOnlyWhenTold(t *testing.T) {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewFixedClock(start)

	assert.Equal(t, start, c.Now())
	assert.Equal(t, start, c.Now())

	c.Advance(time.Hour)
	assert.Equal(t, start.Add(time.Hour), c.Now())

	later := start.AddDate(0, 1, 0)
	c.Set(later)
	assert.Equal(t, later, c.Now())
}

func TestFixedClock_ConcurrentAdvance(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	c := NewFixedClock(start)

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Advance(time.Second)
		}()
	}
	wg.Wait()

	assert.Equal(t, start.Add(50*time.Second), c.Now())
}

func TestSequenceGenerator(t *testing.T) {
	g := NewSequenceGenerator("key")
	assert.Equal(t, "key-1", g.Generate())
	assert.Equal(t, "key-2", g.Generate())
	assert.Equal(t, 2, g.Count())

	assert.Equal(t, "id-1", NewSequenceGenerator("").Generate())
}
