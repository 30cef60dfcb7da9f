// Package memory 进程内的 Storage 实现，用于测试与不需要跨进程保存的场景
package memory

import (
	"context"
	"sync"

	"gocart/persistence"
)

// Store 基于 map 的键值存储
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewStore 创建空存储
func NewStore() *Store {
	return &Store{data: make(map[string][]byte)}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return nil, persistence.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	s.data[key] = append([]byte(nil), value...)
	s.mu.Unlock()
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
	return nil
}

func (s *Store) Close() error { return nil }

// Len 当前键数量
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

var _ persistence.Storage = (*Store)(nil)
