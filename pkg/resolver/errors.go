package resolver

import (
	"errors"
	"fmt"
	"strings"
)

// ErrStructural は章の構造そのものが不正であることを示します。
// 構造エラーは外部呼び出しの前に検出され、章全体の処理を中断します。
var ErrStructural = errors.New("structural error")

// ErrAlreadyRegistered は登録済みのセクションIDを再登録しようとした場合のエラーです。
var ErrAlreadyRegistered = errors.New("section already registered")

// CycleError は参照の循環を検出したときのエラーです。
type CycleError struct {
	SectionID string
	// Path は循環の経路です。先頭と末尾は同じセクションになります。
	Path []string
}

func (e *CycleError) Error() string {
	if len(e.Path) == 0 {
		return fmt.Sprintf("circular dependency detected at section %q", e.SectionID)
	}
	return fmt.Sprintf("circular dependency detected at section %q (%s)", e.SectionID, strings.Join(e.Path, " -> "))
}

func (e *CycleError) Is(target error) bool {
	return target == ErrStructural
}

// StructuralError はセクションIDの重複や欠落など、循環以外の構造エラーです。
type StructuralError struct {
	SectionID string
	Reason    string
}

func (e *StructuralError) Error() string {
	if e.SectionID == "" {
		return "invalid chapter structure: " + e.Reason
	}
	return fmt.Sprintf("invalid chapter structure at section %q: %s", e.SectionID, e.Reason)
}

func (e *StructuralError) Is(target error) bool {
	return target == ErrStructural
}

// 参照が解決できなかった理由です。
const (
	ReasonUnknownSection = "unknown section"
	ReasonNoImage        = "section has no image"
)

// MissingReferenceError は参照先の画像が最後まで得られなかったセクションのエラーです。
// Reasons には参照先IDごとの理由が入ります。理由が分からない参照は含みません。
type MissingReferenceError struct {
	SectionID string
	Missing   []string
	Reasons   map[string]string
}

func (e *MissingReferenceError) Error() string {
	refs := make([]string, len(e.Missing))
	for i, id := range e.Missing {
		if reason, ok := e.Reasons[id]; ok {
			refs[i] = fmt.Sprintf("%s (%s)", id, reason)
			continue
		}
		refs[i] = id
	}
	return "missing references: " + strings.Join(refs, ", ")
}
