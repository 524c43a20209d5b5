package lapis

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"sync"
	"time"
)

// Store is the shared cache behind the Cache middleware. Implementations must
// be safe for concurrent Get and Put on the same key.
type Store interface {
	Get(ctx context.Context, key string) (*Response, bool, error)
	Put(ctx context.Context, key string, resp *Response) error
}

// persistedResponse is the stored form of a Response. Transport handles are
// never persisted.
type persistedResponse struct {
	StatusCode          int                 `json:"statusCode"`
	Body                []byte              `json:"body"`
	DestructuringFactor DestructuringFactor `json:"destructuringFactor"`
}

// EncodeResponse serializes the persisted form of resp.
func EncodeResponse(resp *Response) ([]byte, error) {
	if resp == nil {
		return nil, fmt.Errorf("lapis: encode nil response")
	}
	return json.Marshal(persistedResponse{
		StatusCode:          resp.statusCode,
		Body:                resp.body,
		DestructuringFactor: resp.Factor(),
	})
}

// DecodeResponse restores a Response written by EncodeResponse. The result is
// marked as cached.
func DecodeResponse(data []byte) (*Response, error) {
	var p persistedResponse
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("lapis: decode cached response: %w", err)
	}
	resp := NewResponse(p.StatusCode, p.Body, p.DestructuringFactor)
	resp.cached = true
	return resp, nil
}

// InMemoryStore is a sharded in-process Store. Entries expire after the
// configured TTL; a zero TTL keeps them forever.
type InMemoryStore struct {
	shards    []*storeShard
	numShards int
	ttl       time.Duration
	now       func() time.Time
}

type storeShard struct {
	mu    sync.RWMutex
	store map[string]storeEntry
}

type storeEntry struct {
	data      []byte
	expiresAt time.Time
}

// NewInMemoryStore returns an empty store.
func NewInMemoryStore(ttl time.Duration) *InMemoryStore {
	numShards := 16
	shards := make([]*storeShard, numShards)
	for i := range shards {
		shards[i] = &storeShard{
			store: make(map[string]storeEntry),
		}
	}
	return &InMemoryStore{
		shards:    shards,
		numShards: numShards,
		ttl:       ttl,
		now:       time.Now,
	}
}

func (s *InMemoryStore) getShard(key string) *storeShard {
	hash := fnv.New32a()
	hash.Write([]byte(key))
	return s.shards[hash.Sum32()%uint32(s.numShards)]
}

// Get implements Store.
func (s *InMemoryStore) Get(_ context.Context, key string) (*Response, bool, error) {
	shard := s.getShard(key)
	shard.mu.RLock()
	entry, exists := shard.store[key]
	shard.mu.RUnlock()

	if !exists {
		return nil, false, nil
	}

	if !entry.expiresAt.IsZero() && s.now().After(entry.expiresAt) {
		shard.mu.Lock()
		if cur, ok := shard.store[key]; ok && cur.expiresAt.Equal(entry.expiresAt) {
			delete(shard.store, key)
		}
		shard.mu.Unlock()
		return nil, false, nil
	}

	resp, err := DecodeResponse(entry.data)
	if err != nil {
		return nil, false, err
	}
	return resp, true, nil
}

// Put implements Store.
func (s *InMemoryStore) Put(_ context.Context, key string, resp *Response) error {
	data, err := EncodeResponse(resp)
	if err != nil {
		return err
	}

	entry := storeEntry{data: data}
	if s.ttl > 0 {
		entry.expiresAt = s.now().Add(s.ttl)
	}

	shard := s.getShard(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	shard.store[key] = entry
	return nil
}

// Delete removes key.
func (s *InMemoryStore) Delete(key string) {
	shard := s.getShard(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	delete(shard.store, key)
}

// Clear removes every entry.
func (s *InMemoryStore) Clear() {
	for _, shard := range s.shards {
		shard.mu.Lock()
		shard.store = make(map[string]storeEntry)
		shard.mu.Unlock()
	}
}

// Len returns the number of entries, expired ones included.
func (s *InMemoryStore) Len() int {
	n := 0
	for _, shard := range s.shards {
		shard.mu.RLock()
		n += len(shard.store)
		shard.mu.RUnlock()
	}
	return n
}
