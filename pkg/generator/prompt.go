package generator

import (
	"strings"

	"github.com/shouni/go-storybook-kit/pkg/domain"
	"github.com/shouni/go-storybook-kit/pkg/resolver"
)

const (
	referenceInstruction = "Keep exactly the same character design, colors and proportions as in the attached reference image(s)."
	characterSheetHint   = "Character sheet: a single full-body character, centered, plain light background, no text."
	childFriendlyHint    = "Friendly illustration for a children's educational website, no text in the image."
)

// PromptBuilder はセクションから画像生成用のプロンプトを組み立てます。
type PromptBuilder struct {
	styleSuffix string
}

// NewPromptBuilder は PromptBuilder を生成します。
func NewPromptBuilder(styleSuffix string) *PromptBuilder {
	return &PromptBuilder{styleSuffix: strings.TrimSpace(styleSuffix)}
}

// Build はシーンの説明、参照画像への指示、キャラクターシートの指示、スタイルを順に連結します。
func (pb *PromptBuilder) Build(chapter *domain.Chapter, rs resolver.ResolvedSection) string {
	s := rs.Section
	lang := domain.DefaultLanguage
	if chapter != nil {
		lang = chapter.Lang()
	}

	var parts []string
	if p := strings.TrimSpace(s.Prompt); p != "" {
		parts = append(parts, p)
	} else if title := s.Title.Get(domain.DefaultLanguage, lang); title != "" {
		parts = append(parts, "Scene: "+title)
	}
	if rs.HasReferences() {
		parts = append(parts, referenceInstruction)
	}
	if s.GeneratesCharacter {
		parts = append(parts, characterSheetHint)
	}
	parts = append(parts, childFriendlyHint)

	style := pb.styleSuffix
	if chapter != nil && strings.TrimSpace(chapter.Style) != "" {
		style = strings.TrimSpace(chapter.Style)
	}
	if style != "" {
		parts = append(parts, "Style: "+style)
	}
	return strings.Join(parts, "\n\n")
}
