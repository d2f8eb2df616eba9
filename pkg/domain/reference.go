package domain

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Arity は、セクションが持つ参照の数を表す列挙型です。
type Arity int

const (
	// NoReference は参照を持たないセクションです。
	NoReference Arity = iota
	// SingleReference は1つのセクション画像だけを参照します。
	SingleReference
	// MultipleReferences は複数のセクション画像を参照します。
	MultipleReferences
)

// String は Arity の表示名を返します。
func (a Arity) String() string {
	switch a {
	case NoReference:
		return "none"
	case SingleReference:
		return "single"
	case MultipleReferences:
		return "multiple"
	default:
		return fmt.Sprintf("arity(%d)", int(a))
	}
}

var (
	// sectionIDPattern はセクションIDとして許可される文字列です。
	sectionIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)
	// placeholderPattern は "{{hero}}" や "{{ hero.image }}" 形式の参照をキャプチャします。
	placeholderPattern = regexp.MustCompile(`^\{\{\s*([A-Za-z0-9][A-Za-z0-9_-]*)(?:\.image)?\s*\}\}$`)
)

// ParseReference は参照文字列からセクションIDを1つだけ取り出します。
// 受け付ける書式はベアID ("hero") とプレースホルダー ("{{hero}}", "{{hero.image}}") です。
// 書式に一致しない場合は ok に false を返します。
func ParseReference(ref string) (id string, ok bool) {
	s := strings.TrimSpace(ref)
	if s == "" {
		return "", false
	}
	if m := placeholderPattern.FindStringSubmatch(s); m != nil {
		return m[1], true
	}
	if sectionIDPattern.MatchString(s) {
		return s, true
	}
	return "", false
}

// ReferenceList は、ロード時にパース済みの参照先セクションIDのリストです。
// YAML ではスカラー1つ、またはシーケンスのどちらでも記述できます。
type ReferenceList []string

// Arity は参照の数に応じた Arity を返します。
func (r ReferenceList) Arity() Arity {
	switch len(r) {
	case 0:
		return NoReference
	case 1:
		return SingleReference
	default:
		return MultipleReferences
	}
}

// UnmarshalYAML はスカラーとシーケンスの両方を受け付け、各要素を ParseReference で検証します。
func (r *ReferenceList) UnmarshalYAML(node *yaml.Node) error {
	var raw []string
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			*r = nil
			return nil
		}
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		if strings.TrimSpace(s) == "" {
			*r = nil
			return nil
		}
		raw = []string{s}
	case yaml.SequenceNode:
		if err := node.Decode(&raw); err != nil {
			return err
		}
	default:
		return fmt.Errorf("line %d: reference はスカラーかシーケンスで指定してください", node.Line)
	}

	parsed := make(ReferenceList, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, ref := range raw {
		id, ok := ParseReference(ref)
		if !ok {
			return fmt.Errorf("line %d: 参照 %q を解釈できません", node.Line, ref)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		parsed = append(parsed, id)
	}
	if len(parsed) == 0 {
		parsed = nil
	}
	*r = parsed
	return nil
}

// MarshalYAML は単一参照をスカラーとして書き出します。
func (r ReferenceList) MarshalYAML() (any, error) {
	switch r.Arity() {
	case NoReference:
		return nil, nil
	case SingleReference:
		return r[0], nil
	default:
		return []string(r), nil
	}
}
