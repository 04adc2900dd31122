package hrana

import (
	"strconv"
	"sync"
	"time"
)

// Registry maps batons to live stream sessions across HTTP requests.
//
// Ownership discipline: Take removes the session from the table, giving the
// holding request exclusive use of its SQLStore without further locking;
// Put re-registers it under a freshly minted baton. A second request racing
// on an already-consumed baton therefore sees an unknown baton and falls
// back to a fresh empty session — never a shared one.
//
// Sessions for streams the client never closes accumulate unless a TTL is
// set. TTL zero preserves the original unbounded contract.
type Registry struct {
	mu       sync.Mutex
	next     uint64
	sessions map[string]*session

	ttl  time.Duration
	done chan struct{}
	once sync.Once
}

type session struct {
	store   *SQLStore
	touched time.Time
}

// NewRegistry creates a registry. If ttl is positive, a janitor goroutine
// sweeps sessions idle longer than ttl until Close is called.
func NewRegistry(ttl time.Duration) *Registry {
	r := &Registry{
		sessions: make(map[string]*session),
		ttl:      ttl,
		done:     make(chan struct{}),
	}
	if ttl > 0 {
		go r.janitor()
	}
	return r
}

// Take resumes the session for baton, removing it from the table so it is
// exclusively owned for the duration of one pipeline request. An empty or
// unknown baton yields a fresh empty session.
func (r *Registry) Take(baton string) *SQLStore {
	if baton == "" {
		return NewSQLStore()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[baton]
	if !ok {
		return NewSQLStore()
	}
	delete(r.sessions, baton)
	return sess.store
}

// Put registers the session under a fresh baton and returns it. Batons
// rotate on every request so continuity is identified by the token alone,
// never by the HTTP connection.
func (r *Registry) Put(store *SQLStore) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	baton := "baton-" + strconv.FormatUint(r.next, 10)
	r.sessions[baton] = &session{store: store, touched: time.Now()}
	return baton
}

// Len reports the number of parked sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Close stops the janitor and drops all parked sessions. Idempotent.
func (r *Registry) Close() {
	r.once.Do(func() { close(r.done) })
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = make(map[string]*session)
}

func (r *Registry) janitor() {
	interval := r.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-r.done:
			return
		case now := <-ticker.C:
			r.sweep(now)
		}
	}
}

// sweep drops sessions idle longer than the TTL.
func (r *Registry) sweep(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for baton, sess := range r.sessions {
		if now.Sub(sess.touched) > r.ttl {
			delete(r.sessions, baton)
		}
	}
}
