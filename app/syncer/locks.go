package syncer

import (
	"sync"
)

// channelLocks hands out one mutex per channel id so two sync runs for
// the same channel can never overlap, while distinct channels proceed
// concurrently. Mutexes are kept for the life of the process; the map
// grows with the channel set, which is small.
type channelLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newChannelLocks() *channelLocks {
	return &channelLocks{
		locks: make(map[string]*sync.Mutex),
	}
}

// acquire blocks until the channel's lock is held and returns the release
// function.
func (l *channelLocks) acquire(channelID string) func() {
	l.mu.Lock()
	lock, ok := l.locks[channelID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[channelID] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
