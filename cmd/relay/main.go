package main

import (
	"encoding/json"
	"flag"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"veilchat/internal/replica"
)

// maxWait caps how long a single long-poll request may be held open.
const maxWait = 30 * time.Second

type mapNode struct {
	entries []replica.Entry
	nextSeq uint64
}

type memoryStore struct {
	mu    sync.Mutex
	vals  map[string][]byte
	maps  map[string]*mapNode
	pulse map[string]chan struct{}
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		vals:  make(map[string][]byte),
		maps:  make(map[string]*mapNode),
		pulse: make(map[string]chan struct{}),
	}
}

// changed returns a channel closed on the next write to path.
func (s *memoryStore) changed(path string) <-chan struct{} {
	ch, ok := s.pulse[path]
	if !ok {
		ch = make(chan struct{})
		s.pulse[path] = ch
	}
	return ch
}

func (s *memoryStore) wake(path string) {
	if ch, ok := s.pulse[path]; ok {
		close(ch)
		delete(s.pulse, path)
	}
}

func (s *memoryStore) put(path string, value []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vals[path] = value
	s.wake(path)
}

func (s *memoryStore) add(path string, value []byte) replica.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.maps[path]
	if n == nil {
		n = &mapNode{nextSeq: 1}
		s.maps[path] = n
	}
	e := replica.Entry{Key: uuid.NewString(), Value: value, Seq: n.nextSeq}
	n.nextSeq++
	n.entries = append(n.entries, e)
	s.wake(path)
	return e
}

// get waits up to timeout for a value at path.
func (s *memoryStore) get(path string, timeout time.Duration, done <-chan struct{}) ([]byte, bool) {
	deadline := time.Now().Add(timeout)
	for {
		s.mu.Lock()
		if v, ok := s.vals[path]; ok {
			s.mu.Unlock()
			return v, true
		}
		wait := s.changed(path)
		s.mu.Unlock()

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, false
		}
		t := time.NewTimer(remaining)
		select {
		case <-wait:
			t.Stop()
		case <-t.C:
			return nil, false
		case <-done:
			t.Stop()
			return nil, false
		}
	}
}

// entriesAfter waits up to timeout for map entries with seq > after.
func (s *memoryStore) entriesAfter(path string, after uint64, timeout time.Duration, done <-chan struct{}) ([]replica.Entry, uint64) {
	deadline := time.Now().Add(timeout)
	for {
		s.mu.Lock()
		next := after
		var out []replica.Entry
		if n := s.maps[path]; n != nil {
			for _, e := range n.entries {
				if e.Seq > after {
					out = append(out, e)
					if e.Seq > next {
						next = e.Seq
					}
				}
			}
		}
		if len(out) > 0 {
			s.mu.Unlock()
			return out, next
		}
		wait := s.changed(path)
		s.mu.Unlock()

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, after
		}
		t := time.NewTimer(remaining)
		select {
		case <-wait:
			t.Stop()
		case <-t.C:
			return nil, after
		case <-done:
			t.Stop()
			return nil, after
		}
	}
}

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	flag.Parse()

	log := logrus.New()
	ms := newMemoryStore()

	http.HandleFunc("/v1/put", func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var req replica.PutRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
			http.Error(w, "bad put request", http.StatusBadRequest)
			return
		}
		ms.put(req.Path, req.Value)
		w.WriteHeader(http.StatusOK)
	})

	http.HandleFunc("/v1/add", func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var req replica.AddRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
			http.Error(w, "bad add request", http.StatusBadRequest)
			return
		}
		e := ms.add(req.Path, req.Value)
		_ = json.NewEncoder(w).Encode(replica.AddResponse{Key: e.Key, Seq: e.Seq})
	})

	http.HandleFunc("/v1/get", func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Query().Get("path")
		if path == "" {
			http.Error(w, "path required", http.StatusBadRequest)
			return
		}
		v, found := ms.get(path, waitWindow(r), r.Context().Done())
		_ = json.NewEncoder(w).Encode(replica.GetResponse{Value: v, Found: found})
	})

	http.HandleFunc("/v1/entries", func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Query().Get("path")
		if path == "" {
			http.Error(w, "path required", http.StatusBadRequest)
			return
		}
		after, _ := strconv.ParseUint(r.URL.Query().Get("after"), 10, 64)
		entries, next := ms.entriesAfter(path, after, waitWindow(r), r.Context().Done())
		_ = json.NewEncoder(w).Encode(replica.EntriesResponse{Entries: entries, Next: next})
	})

	log.WithField("addr", *addr).Info("relay listening")
	log.Fatal(http.ListenAndServe(*addr, nil))
}

func waitWindow(r *http.Request) time.Duration {
	ms, _ := strconv.ParseInt(r.URL.Query().Get("timeout_ms"), 10, 64)
	d := time.Duration(ms) * time.Millisecond
	if d <= 0 {
		return 0
	}
	if d > maxWait {
		return maxWait
	}
	return d
}
