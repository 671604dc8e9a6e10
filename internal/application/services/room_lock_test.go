package services

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoomLockSerializesSameRoom(t *testing.T) {
	locks := NewRoomLock()

	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock(1)
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
}

func TestRoomLockIndependentRooms(t *testing.T) {
	locks := NewRoomLock()

	unlock1 := locks.Lock(1)
	defer unlock1()

	// Holding room 1 must not block room 2.
	done := make(chan struct{})
	go func() {
		unlock2 := locks.Lock(2)
		unlock2()
		close(done)
	}()

	<-done
}
