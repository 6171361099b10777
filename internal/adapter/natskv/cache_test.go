package natskv

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

func TestKVKey(t *testing.T) {
	if got := kvKey("templates:t1:service:s1:3"); got != "templates.t1.service.s1.3" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestCacheAgainstServer(t *testing.T) {
	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("requires NATS_URL")
	}
	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(nc.Close)
	js, err := jetstream.New(nc)
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{Bucket: "eventora-cache-test", TTL: time.Minute})
	if err != nil {
		t.Fatal(err)
	}
	c := New(kv)

	if err := c.Set(ctx, "tenant:x", []byte("v"), 0); err != nil {
		t.Fatal(err)
	}
	got, ok, err := c.Get(ctx, "tenant:x")
	if err != nil || !ok || string(got) != "v" {
		t.Fatalf("expected hit, got %q ok=%v err=%v", got, ok, err)
	}
	if err := c.Delete(ctx, "tenant:x"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := c.Get(ctx, "tenant:x"); ok {
		t.Fatal("expected miss after delete")
	}
	if err := c.Delete(ctx, "tenant:never"); err != nil {
		t.Fatalf("deleting a missing key must succeed: %v", err)
	}
}
