package resolver

import (
	"fmt"
	"maps"
	"slices"
)

// Registry は1回の実行の中で生成済み（またはディスク上に既存）の画像パスを保持します。
// 追記専用で、一度登録したIDのパスは変更できません。
// 書き込むのは章の実行ループだけなのでロックは持ちません。
type Registry struct {
	paths map[string]string
	order []string
}

// NewRegistry は空の Registry を生成します。
func NewRegistry() *Registry {
	return &Registry{paths: make(map[string]string)}
}

// Register はセクションIDに画像パスを登録します。
func (r *Registry) Register(sectionID, path string) error {
	if sectionID == "" || path == "" {
		return fmt.Errorf("registry: section id and path are required")
	}
	if existing, ok := r.paths[sectionID]; ok {
		return fmt.Errorf("registry: %s -> %s: %w", sectionID, existing, ErrAlreadyRegistered)
	}
	r.paths[sectionID] = path
	r.order = append(r.order, sectionID)
	return nil
}

// Lookup は登録済みのパスを返します。nil の Registry は空として扱います。
func (r *Registry) Lookup(sectionID string) (string, bool) {
	if r == nil {
		return "", false
	}
	p, ok := r.paths[sectionID]
	return p, ok
}

// Len は登録数を返します。
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.order)
}

// IDs は登録順のセクションIDを返します。
func (r *Registry) IDs() []string {
	if r == nil {
		return nil
	}
	return slices.Clone(r.order)
}

// Snapshot は現時点の内容のコピーを返します。
func (r *Registry) Snapshot() map[string]string {
	if r == nil {
		return map[string]string{}
	}
	return maps.Clone(r.paths)
}
