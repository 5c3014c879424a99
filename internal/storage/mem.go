package storage

import (
	"bytes"
	"io"
	"sync"
)

// MemStore keeps blobs in memory, for tests.
type MemStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func NewMemStore() *MemStore { return &MemStore{blobs: map[string][]byte{}} }

func (s *MemStore) Put(key string, r io.Reader) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	buf, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = buf
	return key, nil
}

func (s *MemStore) Get(key string) (io.ReadCloser, error) {
	key, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	buf, ok := s.blobs[key]
	if !ok {
		return nil, io.ErrUnexpectedEOF
	}
	return io.NopCloser(bytes.NewReader(buf)), nil
}

func (s *MemStore) SignedURL(key string) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return "mem://" + key, nil
}
