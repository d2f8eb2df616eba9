package resolver

import (
	"github.com/shouni/go-storybook-kit/pkg/domain"
)

// AvailableReference は画像パスが解決できた参照です。
type AvailableReference struct {
	SectionID string `json:"sectionId"`
	Path      string `json:"path"`
}

// ResolvedSection は Resolve の結果です。入力のセクションとは別の値になります。
type ResolvedSection struct {
	Section   domain.Section
	Available []AvailableReference
	Missing   []string
}

// Ready は未解決の参照が無いかどうかを返します。
func (r ResolvedSection) Ready() bool {
	return len(r.Missing) == 0
}

// HasReferences は画像として添付できる参照があるかどうかを返します。
func (r ResolvedSection) HasReferences() bool {
	return len(r.Available) > 0
}

// Paths は解決済み参照の画像パスを参照順に返します。
func (r ResolvedSection) Paths() []string {
	paths := make([]string, 0, len(r.Available))
	for _, a := range r.Available {
		paths = append(paths, a.Path)
	}
	return paths
}

// MissingError は未解決の参照があれば *MissingReferenceError を返します。
func (r ResolvedSection) MissingError() error {
	if r.Ready() {
		return nil
	}
	return &MissingReferenceError{SectionID: r.Section.ID, Missing: r.Missing}
}

// Resolve はセクションの各参照を Registry で引き、解決済みと未解決に振り分けます。
// 未解決はここではエラーにせず、すべてまとめて Missing に記録します。
// 入力のセクションも Registry も変更しません。
func Resolve(section domain.Section, reg *Registry) ResolvedSection {
	resolved := ResolvedSection{Section: section.Clone()}
	for _, id := range section.Reference {
		if path, ok := reg.Lookup(id); ok {
			resolved.Available = append(resolved.Available, AvailableReference{SectionID: id, Path: path})
			continue
		}
		resolved.Missing = append(resolved.Missing, id)
	}
	return resolved
}
