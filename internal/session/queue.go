package session

import "sync"

// CommandQueue serialises agent turns per session key. Different keys
// progress concurrently; the same key queues FIFO behind a per-key mutex.
//
// A short-held meta mutex guards the key→mutex map; the per-key mutex is
// acquired after the meta mutex is released so unrelated sessions never
// block one another. Entries are kept for the life of the process — bounded
// by the number of sessions ever seen, which is bounded by user count.
type CommandQueue struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
	held  map[string]bool
}

func NewCommandQueue() *CommandQueue {
	return &CommandQueue{
		locks: make(map[string]*sync.Mutex),
		held:  make(map[string]bool),
	}
}

// Lock acquires the per-session lock for key, blocking while another turn
// is in progress. The returned func releases the lock and must be called
// on every exit path.
func (q *CommandQueue) Lock(key string) (unlock func()) {
	q.mu.Lock()
	lock, ok := q.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		q.locks[key] = lock
	}
	q.mu.Unlock()

	lock.Lock()

	q.mu.Lock()
	q.held[key] = true
	q.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			q.mu.Lock()
			delete(q.held, key)
			q.mu.Unlock()
			lock.Unlock()
		})
	}
}

// LockedKeys returns the session keys whose locks are currently held.
// For monitoring only.
func (q *CommandQueue) LockedKeys() []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	keys := make([]string, 0, len(q.held))
	for key := range q.held {
		keys = append(keys, key)
	}
	return keys
}
