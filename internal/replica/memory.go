package replica

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"veilchat/internal/domain"
)

// Memory is an in-process replica. It preserves the store's semantics
// (last-write-wins puts, replica-assigned entry keys, replayed map
// subscriptions) without any networking, so tests and offline runs can
// use the same code paths as a relay-backed client.
type Memory struct {
	mu      sync.Mutex
	vals    map[string][]byte
	maps    map[string][]mapEntry
	waiters map[string][]chan []byte
	subs    map[string][]*memorySub
}

type mapEntry struct {
	key   string
	value []byte
}

// NewMemory returns an empty in-process replica.
func NewMemory() *Memory {
	return &Memory{
		vals:    make(map[string][]byte),
		maps:    make(map[string][]mapEntry),
		waiters: make(map[string][]chan []byte),
		subs:    make(map[string][]*memorySub),
	}
}

// Put stores value at a scalar path and wakes any GetOnce waiters.
func (m *Memory) Put(ctx context.Context, path string, value []byte) error {
	v := append([]byte(nil), value...)

	m.mu.Lock()
	m.vals[path] = v
	waiting := m.waiters[path]
	delete(m.waiters, path)
	m.mu.Unlock()

	for _, ch := range waiting {
		ch <- v
	}
	return nil
}

// Add appends value under a map path with a fresh entry key and fans it
// out to subscribers.
func (m *Memory) Add(ctx context.Context, path string, value []byte) (string, error) {
	e := mapEntry{key: uuid.NewString(), value: append([]byte(nil), value...)}

	m.mu.Lock()
	m.maps[path] = append(m.maps[path], e)
	subs := append([]*memorySub(nil), m.subs[path]...)
	m.mu.Unlock()

	for _, s := range subs {
		s.enqueue(e)
	}
	return e.key, nil
}

// GetOnce returns the value at a scalar path, waiting up to timeout for
// one to appear.
func (m *Memory) GetOnce(ctx context.Context, path string, timeout time.Duration) ([]byte, bool, error) {
	m.mu.Lock()
	if v, ok := m.vals[path]; ok {
		m.mu.Unlock()
		return append([]byte(nil), v...), true, nil
	}
	ch := make(chan []byte, 1)
	m.waiters[path] = append(m.waiters[path], ch)
	m.mu.Unlock()

	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case v := <-ch:
		return v, true, nil
	case <-t.C:
		m.dropWaiter(path, ch)
		return nil, false, nil
	case <-ctx.Done():
		m.dropWaiter(path, ch)
		return nil, false, ctx.Err()
	}
}

// SubscribeMap replays the current entries under path and then delivers
// new ones as they are added. Cancel must not be called from inside fn.
func (m *Memory) SubscribeMap(path string, fn func(key string, value []byte)) (domain.Subscription, error) {
	s := &memorySub{
		m:    m,
		path: path,
		fn:   fn,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}

	m.mu.Lock()
	s.queue = append(s.queue, m.maps[path]...)
	m.subs[path] = append(m.subs[path], s)
	m.mu.Unlock()

	s.wg.Add(1)
	go s.run()
	return s, nil
}

func (m *Memory) dropWaiter(path string, ch chan []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ws := m.waiters[path]
	for i, w := range ws {
		if w == ch {
			m.waiters[path] = append(ws[:i], ws[i+1:]...)
			return
		}
	}
}

func (m *Memory) dropSub(s *memorySub) {
	m.mu.Lock()
	defer m.mu.Unlock()
	subs := m.subs[s.path]
	for i, cur := range subs {
		if cur == s {
			m.subs[s.path] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

// memorySub dispatches entries to the callback from a single goroutine so
// delivery order matches insertion order.
type memorySub struct {
	m    *Memory
	path string
	fn   func(string, []byte)

	mu        sync.Mutex
	queue     []mapEntry
	cancelled bool

	wake chan struct{}
	done chan struct{}
	wg   sync.WaitGroup
}

func (s *memorySub) enqueue(e mapEntry) {
	s.mu.Lock()
	if s.cancelled {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, e)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Cancel detaches the subscription and waits for the dispatcher to stop.
// Once it returns, the callback will not be invoked again.
func (s *memorySub) Cancel() {
	s.mu.Lock()
	if s.cancelled {
		s.mu.Unlock()
		return
	}
	s.cancelled = true
	s.mu.Unlock()

	s.m.dropSub(s)
	close(s.done)
	s.wg.Wait()
}

func (s *memorySub) run() {
	defer s.wg.Done()
	for {
		s.mu.Lock()
		q := s.queue
		s.queue = nil
		s.mu.Unlock()

		for _, e := range q {
			s.mu.Lock()
			stop := s.cancelled
			s.mu.Unlock()
			if stop {
				return
			}
			s.fn(e.key, e.value)
		}

		select {
		case <-s.done:
			return
		case <-s.wake:
		}
	}
}

// Compile-time assertion that Memory implements domain.Replica.
var _ domain.Replica = (*Memory)(nil)
