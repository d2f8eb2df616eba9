package domain

import (
	"errors"
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"
)

// DefaultLanguage は languages が省略された章で使う言語です。
const DefaultLanguage = "en"

// Chapter は YAML で記述される1つの章です。
type Chapter struct {
	ID        string        `yaml:"id" json:"id"`
	Title     LocalizedText `yaml:"title,omitempty" json:"title,omitempty"`
	Languages []string      `yaml:"languages,omitempty" json:"languages,omitempty"`
	Style     string        `yaml:"style,omitempty" json:"style,omitempty"`
	Sections  []Section     `yaml:"sections" json:"sections"`
}

// ParseChapter は YAML から章を読み込みます。
// id が空の場合は fallbackID を使用します。
func ParseChapter(data []byte, fallbackID string) (*Chapter, error) {
	var ch Chapter
	if err := yaml.Unmarshal(data, &ch); err != nil {
		return nil, fmt.Errorf("章 YAML のパースに失敗しました: %w", err)
	}
	if ch.ID == "" {
		ch.ID = fallbackID
	}
	if ch.ID == "" {
		return nil, errors.New("章 ID が空です")
	}
	return &ch, nil
}

// Lang は章の既定言語を返します。
func (c *Chapter) Lang() string {
	if len(c.Languages) > 0 {
		return c.Languages[0]
	}
	return DefaultLanguage
}

// AllLanguages は languages と各セクションのテキストに現れる言語を順序を保って返します。
func (c *Chapter) AllLanguages() []string {
	langs := slices.Clone(c.Languages)
	if len(langs) == 0 {
		langs = []string{DefaultLanguage}
	}
	for _, s := range c.Sections {
		found := s.Text.Languages()
		slices.Sort(found)
		for _, lang := range found {
			if !slices.Contains(langs, lang) {
				langs = append(langs, lang)
			}
		}
	}
	return langs
}

// Section は ID に一致するセクションを返します。
func (c *Chapter) Section(id string) (Section, bool) {
	for _, s := range c.Sections {
		if s.ID == id {
			return s, true
		}
	}
	return Section{}, false
}

// ImageSections は画像を持つセクション数を返します。
func (c *Chapter) ImageSections() int {
	n := 0
	for _, s := range c.Sections {
		if s.HasImage() {
			n++
		}
	}
	return n
}
