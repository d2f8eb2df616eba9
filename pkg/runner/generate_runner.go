package runner

import (
	"context"
	"fmt"

	"github.com/shouni/go-storybook-kit/pkg/generator"
)

// GenerateRunner は章を読み込んで画像生成を実行します。
type GenerateRunner struct {
	loader    ChapterLoader
	generator ChapterRunner
	opts      generator.Options
}

// NewGenerateRunner は GenerateRunner を生成します。
func NewGenerateRunner(loader ChapterLoader, gen ChapterRunner, opts generator.Options) *GenerateRunner {
	return &GenerateRunner{loader: loader, generator: gen, opts: opts}
}

// Run は chapterID の章を生成し、実行結果を返します。
func (r *GenerateRunner) Run(ctx context.Context, chapterID string) (*generator.Report, error) {
	chapter, err := r.loader.Load(ctx, chapterID)
	if err != nil {
		return nil, fmt.Errorf("章 '%s' の読み込みに失敗しました: %w", chapterID, err)
	}
	report, err := r.generator.Run(ctx, chapter, r.opts)
	if err != nil {
		return report, fmt.Errorf("章 '%s' の生成に失敗しました: %w", chapterID, err)
	}
	return report, nil
}
