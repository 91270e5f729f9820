package memory

import (
	"context"
	"sync"
)

type SettingsStore struct {
	mu     sync.Mutex
	values map[string]string
}

func NewSettingsStore(values map[string]string) *SettingsStore {
	if values == nil {
		values = make(map[string]string)
	}
	return &SettingsStore{values: values}
}

func (s *SettingsStore) All(ctx context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out, nil
}

func (s *SettingsStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
	return nil
}
