package lapis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

func TestEncodeDecodeResponse(t *testing.T) {
	df := DestructuringFactor{SuccessCode: 0, StatusCodeKeyPath: "errno", MessageKeyPath: "errmsg", ModelKeyPath: "data"}
	resp := NewResponse(202, []byte(`{"errno":0,"data":[1]}`), df)

	data, err := EncodeResponse(resp)
	if err != nil {
		t.Fatalf("EncodeResponse() returned error: %v", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Expected JSON, got %s", data)
	}
	for _, key := range []string{"statusCode", "body", "destructuringFactor"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("Expected key %q in persisted form %s", key, data)
		}
	}

	restored, err := DecodeResponse(data)
	if err != nil {
		t.Fatalf("DecodeResponse() returned error: %v", err)
	}
	if restored.StatusCode() != 202 || string(restored.Body()) != `{"errno":0,"data":[1]}` {
		t.Errorf("Expected status and body restored, got %d %s", restored.StatusCode(), restored.Body())
	}
	if restored.Factor() != df {
		t.Errorf("Expected factor %+v, got %+v", df, restored.Factor())
	}
	if !restored.Cached() {
		t.Error("Expected a decoded response to be marked cached")
	}
	if restored.HTTPResponse() != nil || restored.Request() != nil {
		t.Error("Expected transport handles not to be persisted")
	}
}

func TestEncodeResponse_Nil(t *testing.T) {
	if _, err := EncodeResponse(nil); err == nil {
		t.Error("Expected an error for a nil response")
	}
	if _, err := DecodeResponse([]byte("garbage")); err == nil {
		t.Error("Expected an error for garbage input")
	}
}

func TestInMemoryStore_GetPut(t *testing.T) {
	store := NewInMemoryStore(0)
	ctx := context.Background()

	if _, hit, err := store.Get(ctx, "missing"); hit || err != nil {
		t.Errorf("Expected a clean miss, got hit=%v err=%v", hit, err)
	}

	if err := store.Put(ctx, "k", testResponse(okEnvelope)); err != nil {
		t.Fatalf("Put() returned error: %v", err)
	}

	resp, hit, err := store.Get(ctx, "k")
	if err != nil || !hit {
		t.Fatalf("Expected a hit, got hit=%v err=%v", hit, err)
	}
	if !resp.Cached() || string(resp.Body()) != okEnvelope {
		t.Errorf("Expected cached copy of the body, got %s", resp.Body())
	}

	// last writer wins
	_ = store.Put(ctx, "k", testResponse(failedEnvelope))
	resp, _, _ = store.Get(ctx, "k")
	if string(resp.Body()) != failedEnvelope {
		t.Errorf("Expected the overwritten body, got %s", resp.Body())
	}
}

func TestInMemoryStore_TTL(t *testing.T) {
	now := time.Unix(1000, 0)
	store := NewInMemoryStore(time.Minute)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	_ = store.Put(ctx, "k", testResponse(`{}`))

	now = now.Add(30 * time.Second)
	if _, hit, _ := store.Get(ctx, "k"); !hit {
		t.Error("Expected a hit before expiry")
	}

	now = now.Add(time.Minute)
	if _, hit, _ := store.Get(ctx, "k"); hit {
		t.Error("Expected a miss after expiry")
	}
	if store.Len() != 0 {
		t.Errorf("Expected the expired entry to be removed, got %d", store.Len())
	}
}

func TestInMemoryStore_DeleteClear(t *testing.T) {
	store := NewInMemoryStore(0)
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		_ = store.Put(ctx, fmt.Sprintf("k%d", i), testResponse(`{}`))
	}
	if store.Len() != 10 {
		t.Fatalf("Expected 10 entries, got %d", store.Len())
	}

	store.Delete("k3")
	if _, hit, _ := store.Get(ctx, "k3"); hit {
		t.Error("Expected k3 to be deleted")
	}

	store.Clear()
	if store.Len() != 0 {
		t.Errorf("Expected an empty store, got %d", store.Len())
	}
}

func TestInMemoryStore_Concurrent(t *testing.T) {
	store := NewInMemoryStore(0)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%4)
			_ = store.Put(ctx, key, testResponse(`{}`))
			_, _, _ = store.Get(ctx, key)
		}(i)
	}
	wg.Wait()

	if store.Len() != 4 {
		t.Errorf("Expected 4 keys, got %d", store.Len())
	}
}

func newMiniredisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStoreWithClient(client, "", ttl)
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestRedisStore_GetPut(t *testing.T) {
	store, mr := newMiniredisStore(t, 0)
	ctx := context.Background()

	if err := store.Ping(ctx); err != nil {
		t.Fatalf("Ping() returned error: %v", err)
	}

	if _, hit, err := store.Get(ctx, "k"); hit || err != nil {
		t.Errorf("Expected a clean miss, got hit=%v err=%v", hit, err)
	}

	if err := store.Put(ctx, "k", testResponse(okEnvelope)); err != nil {
		t.Fatalf("Put() returned error: %v", err)
	}
	if !mr.Exists("lapis:k") {
		t.Error("Expected the key to be stored under the default prefix")
	}

	resp, hit, err := store.Get(ctx, "k")
	if err != nil || !hit {
		t.Fatalf("Expected a hit, got hit=%v err=%v", hit, err)
	}
	if !resp.Cached() || resp.MapResult().Message != "ok" {
		t.Errorf("Expected the stored response, got %s", resp.Body())
	}
}

func TestRedisStore_TTL(t *testing.T) {
	store, mr := newMiniredisStore(t, time.Minute)
	ctx := context.Background()

	_ = store.Put(ctx, "k", testResponse(`{}`))
	if ttl := mr.TTL("lapis:k"); ttl != time.Minute {
		t.Errorf("Expected TTL 1m, got %v", ttl)
	}

	mr.FastForward(2 * time.Minute)
	if _, hit, _ := store.Get(ctx, "k"); hit {
		t.Error("Expected a miss after expiry")
	}
}

func TestRedisStore_Unavailable(t *testing.T) {
	store, mr := newMiniredisStore(t, 0)
	mr.Close()

	_, _, err := store.Get(context.Background(), "k")
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("Expected ErrStoreUnavailable, got %v", err)
	}
	if err := store.Put(context.Background(), "k", testResponse(`{}`)); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("Expected ErrStoreUnavailable, got %v", err)
	}
}

func TestRedisStore_BacksCacheMiddleware(t *testing.T) {
	store, _ := newMiniredisStore(t, 0)
	transport := &countingTransport{next: staticTransport(200, okEnvelope)}
	client := New(WithTransport(transport), WithStore(store))
	ep := Endpoint{BaseURL: testURL}

	_, _ = client.Call(context.Background(), ep, client.Cache()).Collect(context.Background())
	responses, err := client.Call(context.Background(), ep, client.Cache()).Collect(context.Background())
	if err != nil {
		t.Fatalf(unexpectedErrMsg, err)
	}
	if len(responses) != 2 || !responses[0].Cached() {
		t.Errorf("Expected cached then live from redis, got %d responses", len(responses))
	}
}
