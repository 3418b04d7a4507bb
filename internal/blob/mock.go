package blob

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Stratton1/ppukv6-0-sub001/pkg/platform/sentinel"
)

// MockStore keeps payloads in memory and mints deterministic locators and
// signed URLs. A configurable latency mimics real object-storage calls.
type MockStore struct {
	Latency time.Duration

	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMockStore() *MockStore {
	return &MockStore{objects: make(map[string][]byte)}
}

func (s *MockStore) Put(_ context.Context, payload []byte, meta Meta) (string, error) {
	time.Sleep(s.Latency)

	locator := fmt.Sprintf("blob://%s/%s", uuid.NewString(), meta.Filename)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[locator] = append([]byte(nil), payload...)
	return locator, nil
}

func (s *MockStore) Sign(_ context.Context, locator string, ttl time.Duration) (string, error) {
	time.Sleep(s.Latency)

	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.objects[locator]; !ok {
		return "", sentinel.ErrNotFound
	}
	return fmt.Sprintf("https://blobs.local/%s?expires=%d", locator, int64(ttl.Seconds())), nil
}

// Object returns the stored payload. Test helper.
func (s *MockStore) Object(locator string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	payload, ok := s.objects[locator]
	return payload, ok
}
