package tiered_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/FerDeGante/Eventora-sub000/internal/adapter/tiered"
)

// memCache records the ttl of each Set and can be made to fail.
type memCache struct {
	data map[string][]byte
	ttls map[string]time.Duration
	fail error
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	if m.fail != nil {
		return nil, false, m.fail
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if m.fail != nil {
		return m.fail
	}
	m.data[key], m.ttls[key] = value, ttl
	return nil
}

func (m *memCache) Delete(_ context.Context, key string) error {
	if m.fail != nil {
		return m.fail
	}
	delete(m.data, key)
	return nil
}

func TestL1HitSkipsL2(t *testing.T) {
	l1, l2 := newMemCache(), newMemCache()
	l2.fail = errors.New("must not be called")
	c := tiered.New(l1, l2, time.Minute, nil)

	l1.data["tenant:a"] = []byte("a")
	val, found, err := c.Get(context.Background(), "tenant:a")
	if err != nil || !found || string(val) != "a" {
		t.Fatalf("expected L1 hit, got %q found=%v err=%v", val, found, err)
	}
}

func TestL2HitBackfillsL1(t *testing.T) {
	l1, l2 := newMemCache(), newMemCache()
	c := tiered.New(l1, l2, 30*time.Second, nil)

	l2.data["templates:t:service:s:1"] = []byte("[]")
	if _, found, _ := c.Get(context.Background(), "templates:t:service:s:1"); !found {
		t.Fatal("expected L2 hit")
	}
	if string(l1.data["templates:t:service:s:1"]) != "[]" {
		t.Fatal("expected L1 backfill")
	}
	if l1.ttls["templates:t:service:s:1"] != 30*time.Second {
		t.Fatalf("backfill ttl = %v", l1.ttls["templates:t:service:s:1"])
	}
}

func TestL2FailureIsAMiss(t *testing.T) {
	l1, l2 := newMemCache(), newMemCache()
	l2.fail = errors.New("nats down")
	c := tiered.New(l1, l2, time.Minute, nil)
	ctx := context.Background()

	_, found, err := c.Get(ctx, "tenant:b")
	if err != nil || found {
		t.Fatalf("expected silent miss, got found=%v err=%v", found, err)
	}
	if err := c.Set(ctx, "tenant:b", []byte("b"), time.Minute); err != nil {
		t.Fatalf("L2 set failure must not fail Set: %v", err)
	}
	if string(l1.data["tenant:b"]) != "b" {
		t.Fatal("L1 must still be written")
	}
	if err := c.Delete(ctx, "tenant:b"); err == nil {
		t.Fatal("L2 delete failure must be reported")
	}
}

func TestSetCapsL1TTL(t *testing.T) {
	l1, l2 := newMemCache(), newMemCache()
	c := tiered.New(l1, l2, time.Minute, nil)

	if err := c.Set(context.Background(), "tenant:c", []byte("c"), time.Hour); err != nil {
		t.Fatal(err)
	}
	if l1.ttls["tenant:c"] != time.Minute || l2.ttls["tenant:c"] != time.Hour {
		t.Fatalf("unexpected ttls l1=%v l2=%v", l1.ttls["tenant:c"], l2.ttls["tenant:c"])
	}
}
