package cache_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/FerDeGante/Eventora-sub000/internal/port/cache"
)

type mapCache struct {
	mu sync.Mutex
	m  map[string][]byte
}

func (c *mapCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.m[key]
	return v, ok, nil
}

func (c *mapCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = value
	return nil
}

func (c *mapCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, key)
	return nil
}

type entry struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestJSONRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := &mapCache{m: map[string][]byte{}}

	if _, ok := cache.GetJSON[entry](ctx, c, "k"); ok {
		t.Fatal("expected miss on empty cache")
	}
	if err := cache.SetJSON(ctx, c, "k", entry{Name: "a", Count: 2}, time.Minute); err != nil {
		t.Fatal(err)
	}
	got, ok := cache.GetJSON[entry](ctx, c, "k")
	if !ok || got.Name != "a" || got.Count != 2 {
		t.Fatalf("unexpected entry %+v (found=%v)", got, ok)
	}
}

func TestGetJSONCorruptEntry(t *testing.T) {
	ctx := context.Background()
	c := &mapCache{m: map[string][]byte{"k": []byte("{broken")}}
	if _, ok := cache.GetJSON[entry](ctx, c, "k"); ok {
		t.Fatal("corrupt entry must read as a miss")
	}
}

func TestSetJSONUnencodable(t *testing.T) {
	c := &mapCache{m: map[string][]byte{}}
	if err := cache.SetJSON(context.Background(), c, "k", make(chan int), time.Minute); err == nil {
		t.Fatal("expected encode error")
	}
}
