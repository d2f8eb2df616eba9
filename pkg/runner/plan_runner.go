package runner

import (
	"context"
	"fmt"

	"github.com/shouni/go-storybook-kit/pkg/domain"
	"github.com/shouni/go-storybook-kit/pkg/resolver"
)

// PlanStep は生成順の1ステップです。
type PlanStep struct {
	SectionID  string
	Image      string
	Arity      domain.Arity
	References []string
	Dangling   []string
	// Imageless は画像を持たないセクションへの参照です。
	Imageless []string
	Character bool
}

// Plan は外部呼び出しを行わずに求めた章の生成計画です。
type Plan struct {
	ChapterID string
	Steps     []PlanStep
}

// PlanRunner は章の生成順を求めます。API キーは不要です。
type PlanRunner struct {
	loader ChapterLoader
}

func NewPlanRunner(loader ChapterLoader) *PlanRunner {
	return &PlanRunner{loader: loader}
}

// Run は生成順を返します。循環がある場合は構造エラーを返します。
func (r *PlanRunner) Run(ctx context.Context, chapterID string) (*Plan, error) {
	chapter, err := r.loader.Load(ctx, chapterID)
	if err != nil {
		return nil, fmt.Errorf("章 '%s' の読み込みに失敗しました: %w", chapterID, err)
	}
	order, err := resolver.BuildOrder(chapter.Sections)
	if err != nil {
		return nil, fmt.Errorf("chapter %s: %w", chapter.ID, err)
	}
	dangling := resolver.DanglingReferences(chapter.Sections)
	imageless := resolver.ImagelessReferences(chapter.Sections)

	plan := &Plan{ChapterID: chapter.ID}
	for _, s := range order {
		plan.Steps = append(plan.Steps, PlanStep{
			SectionID:  s.ID,
			Image:      s.Image,
			Arity:      s.Reference.Arity(),
			References: s.Reference,
			Dangling:   dangling[s.ID],
			Imageless:  imageless[s.ID],
			Character:  s.GeneratesCharacter,
		})
	}
	return plan, nil
}
