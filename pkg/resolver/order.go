package resolver

import (
	"fmt"
	"slices"
	"strings"

	"github.com/shouni/go-storybook-kit/pkg/asset"
	"github.com/shouni/go-storybook-kit/pkg/domain"
)

// visitState は深さ優先探索の三色マーキングです。
type visitState uint8

const (
	unvisited visitState = iota
	inProgress
	done
)

// Validate はセクションIDの欠落と重複、保存先ファイル名の重複を検出します。
// ファイル名は大文字小文字を区別せずに比較します。
func Validate(sections []domain.Section) error {
	seen := make(map[string]int, len(sections))
	files := make(map[string]string, len(sections))
	for i, s := range sections {
		if s.ID == "" {
			return &StructuralError{Reason: fmt.Sprintf("section #%d has an empty id", i+1)}
		}
		if first, dup := seen[s.ID]; dup {
			return &StructuralError{
				SectionID: s.ID,
				Reason:    fmt.Sprintf("duplicate id (sections #%d and #%d)", first+1, i+1),
			}
		}
		seen[s.ID] = i

		if !s.HasImage() {
			continue
		}
		name := asset.ImageFileName(s.Image)
		key := strings.ToLower(name)
		if owner, dup := files[key]; dup {
			return &StructuralError{
				SectionID: s.ID,
				Reason:    fmt.Sprintf("image file %q is already used by section %q", name, owner),
			}
		}
		files[key] = s.ID
	}
	return nil
}

// BuildOrder は参照先が必ず参照元より前に来るようにセクションを並べ替えます。
// 依存関係の無いセクション同士は入力順を保ちます。
// 循環を検出した場合は並び順を返さず *CycleError を返します。
// 集合に存在しないIDへの参照は並び替えでは無視します。
func BuildOrder(sections []domain.Section) ([]domain.Section, error) {
	if err := Validate(sections); err != nil {
		return nil, err
	}

	index := make(map[string]int, len(sections))
	for i, s := range sections {
		index[s.ID] = i
	}

	states := make([]visitState, len(sections))
	order := make([]domain.Section, 0, len(sections))
	var path []string

	var visit func(i int) error
	visit = func(i int) error {
		switch states[i] {
		case done:
			return nil
		case inProgress:
			return newCycleError(sections[i].ID, path)
		}

		states[i] = inProgress
		path = append(path, sections[i].ID)
		for _, ref := range sections[i].Reference {
			j, ok := index[ref]
			if !ok {
				continue
			}
			if err := visit(j); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		states[i] = done
		order = append(order, sections[i])
		return nil
	}

	for i := range sections {
		if err := visit(i); err != nil {
			return nil, err
		}
	}
	return order, nil
}

func newCycleError(id string, path []string) *CycleError {
	start := slices.Index(path, id)
	if start < 0 {
		return &CycleError{SectionID: id}
	}
	cycle := append(slices.Clone(path[start:]), id)
	return &CycleError{SectionID: id, Path: cycle}
}

// DanglingReferences は章に存在しないセクションを指す参照をセクションごとに返します。
func DanglingReferences(sections []domain.Section) map[string][]string {
	known := make(map[string]struct{}, len(sections))
	for _, s := range sections {
		known[s.ID] = struct{}{}
	}
	dangling := make(map[string][]string)
	for _, s := range sections {
		for _, ref := range s.Reference {
			if _, ok := known[ref]; !ok {
				dangling[s.ID] = append(dangling[s.ID], ref)
			}
		}
	}
	return dangling
}

// ImagelessReferences は画像を持たないセクションを指す参照をセクションごとに返します。
// 参照先は存在しますが、参照画像が得られることはありません。
func ImagelessReferences(sections []domain.Section) map[string][]string {
	textOnly := make(map[string]struct{})
	for _, s := range sections {
		if !s.HasImage() {
			textOnly[s.ID] = struct{}{}
		}
	}
	imageless := make(map[string][]string)
	for _, s := range sections {
		for _, ref := range s.Reference {
			if _, ok := textOnly[ref]; ok {
				imageless[s.ID] = append(imageless[s.ID], ref)
			}
		}
	}
	return imageless
}
