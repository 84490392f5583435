package api

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestRedisBrokerRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	t.Setenv("REDIS_URL", "redis://"+mr.Addr())

	b, err := NewRedisBroker()
	if err != nil {
		t.Fatalf("NewRedisBroker: %v", err)
	}

	rid := "rt_redis"
	ch := b.Subscribe(rid)

	b.Publish(rid, SSEEvent{Type: "route.status.changed", Data: map[string]any{"routeId": rid, "version": 2}})

	select {
	case got := <-ch:
		if got.Type != "route.status.changed" {
			t.Fatalf("got type %s", got.Type)
		}
		if got.Data["routeId"].(string) != rid {
			t.Fatalf("bad payload: %+v", got.Data)
		}
		// JSON round trip turns numbers into float64
		if got.Data["version"].(float64) != 2 {
			t.Fatalf("bad version: %+v", got.Data["version"])
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for redis event")
	}

	b.Unsubscribe(rid, ch)
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("channel should be closed after unsubscribe")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after unsubscribe")
	}
}
