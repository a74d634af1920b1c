package clock

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFakeClock_Advance(t *testing.T) {
	start := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	fake := NewFakeClock(start)

	assert.Equal(t, start, fake.Now())
	fake.Advance(5 * time.Minute)
	assert.Equal(t, start.Add(5*time.Minute), fake.Now())
}

func TestFakeClock_ConcurrentAccess(t *testing.T) {
	fake := NewFakeClock(time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				fake.Advance(time.Millisecond)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = fake.Now()
			}
		}()
	}
	wg.Wait()

	expected := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC).Add(800 * time.Millisecond)
	assert.Equal(t, expected, fake.Now())
}
