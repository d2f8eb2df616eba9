package domain

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// LocalizedText は言語コードごとのテキストです。
// YAML でスカラーを指定した場合は言語未指定 ("") のテキストとして扱います。
type LocalizedText map[string]string

// Get は指定言語のテキストを返し、無ければ fallback、言語未指定の順に探します。
func (t LocalizedText) Get(lang, fallback string) string {
	if v, ok := t[lang]; ok && v != "" {
		return v
	}
	if v, ok := t[fallback]; ok && v != "" {
		return v
	}
	return t[""]
}

// Languages は空でないテキストを持つ言語コードを返します。
func (t LocalizedText) Languages() []string {
	langs := make([]string, 0, len(t))
	for lang, v := range t {
		if lang != "" && v != "" {
			langs = append(langs, lang)
		}
	}
	return langs
}

func (t *LocalizedText) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		*t = LocalizedText{"": s}
		return nil
	case yaml.MappingNode:
		m := map[string]string{}
		if err := node.Decode(&m); err != nil {
			return err
		}
		*t = m
		return nil
	default:
		return fmt.Errorf("line %d: テキストは文字列か言語ごとのマップで指定してください", node.Line)
	}
}
