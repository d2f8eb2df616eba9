package store

import (
	"context"
	"fmt"
	"io/fs"
	"maps"
	"slices"
	"sync"

	"github.com/shouni/go-storybook-kit/pkg/domain"
)

// MemoryStore はテストやプレビュー用のメモリ上のストアです。
type MemoryStore struct {
	mu       sync.RWMutex
	chapters map[string]*domain.Chapter
	files    map[string][]byte
}

// NewMemoryStore は空の MemoryStore を生成します。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		chapters: make(map[string]*domain.Chapter),
		files:    make(map[string][]byte),
	}
}

// PutChapter は章を登録します。
func (m *MemoryStore) PutChapter(ch *domain.Chapter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chapters[ch.ID] = ch
}

func (m *MemoryStore) Load(_ context.Context, chapterID string) (*domain.Chapter, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ch, ok := m.chapters[chapterID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", chapterID, ErrChapterNotFound)
	}
	return ch, nil
}

func (m *MemoryStore) List(context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.chapters)), nil
}

func (m *MemoryStore) Exists(_ context.Context, rel string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.files[rel]) > 0, nil
}

func (m *MemoryStore) Read(_ context.Context, rel string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[rel]
	if !ok {
		return nil, fmt.Errorf("%s: %w", rel, fs.ErrNotExist)
	}
	return slices.Clone(data), nil
}

func (m *MemoryStore) Write(_ context.Context, rel string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[rel] = slices.Clone(data)
	return nil
}

// Files は書き込まれたファイルのパスを名前順に返します。
func (m *MemoryStore) Files() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.files))
}
