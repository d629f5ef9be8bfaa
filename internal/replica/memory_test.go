package replica_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"veilchat/internal/replica"
)

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestPutThenGetOnce(t *testing.T) {
	m := replica.NewMemory()
	ctx := context.Background()

	if err := m.Put(ctx, "users/alice/pub", []byte("key-material")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	v, ok, err := m.GetOnce(ctx, "users/alice/pub", 10*time.Millisecond)
	if err != nil {
		t.Fatalf("GetOnce: %v", err)
	}
	if !ok || string(v) != "key-material" {
		t.Fatalf("GetOnce = %q, %v", v, ok)
	}
}

func TestGetOnceAbsentTimesOut(t *testing.T) {
	m := replica.NewMemory()
	start := time.Now()
	_, ok, err := m.GetOnce(context.Background(), "users/ghost/pub", 20*time.Millisecond)
	if err != nil {
		t.Fatalf("GetOnce: %v", err)
	}
	if ok {
		t.Fatal("want absent")
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Fatal("returned before the timeout window elapsed")
	}
}

func TestGetOnceSeesLateWrite(t *testing.T) {
	m := replica.NewMemory()
	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = m.Put(context.Background(), "users/slow/pub", []byte("late"))
	}()
	v, ok, err := m.GetOnce(context.Background(), "users/slow/pub", time.Second)
	if err != nil {
		t.Fatalf("GetOnce: %v", err)
	}
	if !ok || string(v) != "late" {
		t.Fatalf("GetOnce = %q, %v", v, ok)
	}
}

func TestSubscribeMapReplaysAndFollows(t *testing.T) {
	m := replica.NewMemory()
	ctx := context.Background()
	path := "channels/alice:bob/messages"

	k1, err := m.Add(ctx, path, []byte("one"))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	k2, err := m.Add(ctx, path, []byte("two"))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if k1 == k2 {
		t.Fatal("entry keys must be unique")
	}

	var mu sync.Mutex
	got := map[string]string{}
	sub, err := m.SubscribeMap(path, func(key string, value []byte) {
		mu.Lock()
		got[key] = string(value)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("SubscribeMap: %v", err)
	}
	defer sub.Cancel()

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, "existing entries were not replayed")

	k3, err := m.Add(ctx, path, []byte("three"))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return got[k3] == "three"
	}, "live entry was not delivered")
}

func TestCancelStopsDelivery(t *testing.T) {
	m := replica.NewMemory()
	ctx := context.Background()
	path := "channels/alice:bob/messages"

	var mu sync.Mutex
	count := 0
	sub, err := m.SubscribeMap(path, func(string, []byte) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("SubscribeMap: %v", err)
	}

	if _, err := m.Add(ctx, path, []byte("before")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count == 1
	}, "entry before cancel was not delivered")

	sub.Cancel()
	if _, err := m.Add(ctx, path, []byte("after")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if count != 1 {
		t.Fatalf("callback fired after Cancel: count = %d", count)
	}
}
