package services

import "sync"

// RoomLock provides mutual exclusion scoped to a room id, so multi-step
// mutations of one room's user set never serialize unrelated rooms. The room
// set is fixed at startup, so per-room mutexes are created lazily and never
// reclaimed.
type RoomLock struct {
	mu    sync.Mutex
	locks map[int]*sync.Mutex
}

// NewRoomLock creates a new instance of a RoomLock.
func NewRoomLock() *RoomLock {
	return &RoomLock{
		locks: make(map[int]*sync.Mutex),
	}
}

// Lock acquires the mutex for a room, blocking until it is available, and
// returns the unlock function.
func (l *RoomLock) Lock(roomID int) func() {
	l.mu.Lock()
	roomMu, exists := l.locks[roomID]
	if !exists {
		roomMu = &sync.Mutex{}
		l.locks[roomID] = roomMu
	}
	l.mu.Unlock()

	roomMu.Lock()
	return roomMu.Unlock
}
