package cache

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func TestTTLExpiresEntries(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewTTL[string, int](time.Minute, clock.Now)

	c.Set("BBCA.JK", 19)
	v, ok := c.Get("BBCA.JK")
	require.True(t, ok)
	assert.Equal(t, 19, v)

	clock.Advance(59 * time.Second)
	_, ok = c.Get("BBCA.JK")
	assert.True(t, ok)

	clock.Advance(time.Second)
	_, ok = c.Get("BBCA.JK")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestTTLGetOrLoad(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	c := NewTTL[string, []string](time.Hour, clock.Now)

	calls := 0
	load := func() ([]string, error) {
		calls++
		return []string{"BBCA.JK"}, nil
	}

	for i := 0; i < 3; i++ {
		v, err := c.GetOrLoad("roster", load)
		require.NoError(t, err)
		assert.Equal(t, []string{"BBCA.JK"}, v)
	}
	assert.Equal(t, 1, calls)

	_, err := c.GetOrLoad("broken", func() ([]string, error) { return nil, errors.New("boom") })
	require.Error(t, err)
	_, ok := c.Get("broken")
	assert.False(t, ok)
}

func TestTTLConcurrentAccess(t *testing.T) {
	c := NewTTL[int, int](time.Hour, nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Set(i%5, i)
			c.Get(i % 5)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 5, c.Len())
}
