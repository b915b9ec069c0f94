package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutexSerializesPerKey(t *testing.T) {
	locks := newKeyedMutex()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("student-1/sess-1")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 64, counter)
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	locks := newKeyedMutex()

	unlockA := locks.Lock("a")

	acquired := make(chan struct{})
	go func() {
		unlockB := locks.Lock("b")
		close(acquired)
		unlockB()
	}()

	// A held lock on one key must not block another key.
	<-acquired
	unlockA()
}

func TestKeyedMutexReleasesEntries(t *testing.T) {
	locks := newKeyedMutex()

	for i := 0; i < 10; i++ {
		unlock := locks.Lock("transient")
		unlock()
	}

	locks.mu.Lock()
	defer locks.mu.Unlock()
	assert.Empty(t, locks.locks, "unused entries must be reclaimed")
}
