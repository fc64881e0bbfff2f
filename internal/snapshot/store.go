package snapshot

import (
	"errors"
	"sync"
	"sync/atomic"
)

var (
	// ErrNoSnapshot is returned when the store is read before any successful
	// refresh installed a snapshot.
	ErrNoSnapshot = errors.New("no configuration snapshot available")
	// ErrStaleSnapshot is returned when Replace is offered a snapshot whose
	// version is not newer than the one currently served.
	ErrStaleSnapshot = errors.New("snapshot version is not newer than current")
)

// Store holds the current snapshot behind an atomically swappable reference.
// Reads never block and never observe a partially-updated snapshot: a reader
// that obtained a *Snapshot keeps evaluating against it even if Replace runs
// concurrently. Replace calls are serialized against each other.
type Store struct {
	current atomic.Pointer[Snapshot]

	mu   sync.Mutex
	subs map[chan string]struct{}
}

// NewStore creates an empty store. Reads return ErrNoSnapshot until the
// first successful Replace.
func NewStore() *Store {
	return &Store{subs: make(map[chan string]struct{})}
}

// Current returns the latest fully-constructed snapshot without blocking.
func (s *Store) Current() (*Snapshot, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, ErrNoSnapshot
	}
	return snap, nil
}

// Replace atomically installs next as the current snapshot and notifies
// subscribers. A snapshot whose version is not newer than the current one is
// rejected with ErrStaleSnapshot and the store keeps serving the previous
// snapshot.
func (s *Store) Replace(next *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur := s.current.Load(); cur != nil && next.Version <= cur.Version {
		return ErrStaleSnapshot
	}
	s.current.Store(next)
	s.publishLocked(next.ETag)
	return nil
}

// Subscribe registers a listener for snapshot replacements and returns its
// channel plus an unsubscribe func. The channel carries the new ETag.
func (s *Store) Subscribe() (<-chan string, func()) {
	ch := make(chan string, 1)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	unsub := func() {
		s.mu.Lock()
		if _, ok := s.subs[ch]; ok {
			delete(s.subs, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, unsub
}

// publishLocked notifies all listeners without blocking; slow listeners miss
// the update instead of stalling Replace. Caller holds s.mu.
func (s *Store) publishLocked(etag string) {
	for ch := range s.subs {
		select {
		case ch <- etag:
		default:
		}
	}
}
