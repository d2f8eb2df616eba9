package domain

import (
	"maps"
	"slices"
)

// Section は章を構成する1つのシーンです。
// image を持つセクションだけが画像生成の対象になります。
type Section struct {
	ID                 string        `yaml:"id" json:"id"`
	Image              string        `yaml:"image,omitempty" json:"image,omitempty"`
	Reference          ReferenceList `yaml:"reference,omitempty" json:"reference,omitempty"`
	GeneratesCharacter bool          `yaml:"generatesCharacter,omitempty" json:"generatesCharacter,omitempty"`
	Prompt             string        `yaml:"prompt,omitempty" json:"prompt,omitempty"`
	Size               string        `yaml:"size,omitempty" json:"size,omitempty"`
	Alt                LocalizedText `yaml:"alt,omitempty" json:"alt,omitempty"`
	Title              LocalizedText `yaml:"title,omitempty" json:"title,omitempty"`
	Text               LocalizedText `yaml:"text,omitempty" json:"text,omitempty"`

	// Extra は解釈しないフィールドをそのまま保持します。
	Extra map[string]any `yaml:",inline" json:"-"`
}

// HasImage は画像生成の対象かどうかを返します。
func (s Section) HasImage() bool {
	return s.Image != ""
}

// Clone はスライスとマップを複製したコピーを返します。
func (s Section) Clone() Section {
	c := s
	c.Reference = slices.Clone(s.Reference)
	c.Alt = maps.Clone(s.Alt)
	c.Title = maps.Clone(s.Title)
	c.Text = maps.Clone(s.Text)
	c.Extra = maps.Clone(s.Extra)
	return c
}

// String はログ出力用の表示名です。
func (s Section) String() string {
	if s.Image == "" {
		return s.ID
	}
	return s.ID + " (" + s.Image + ")"
}
