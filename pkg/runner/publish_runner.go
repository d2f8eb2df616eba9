package runner

import (
	"context"
	"fmt"

	"github.com/shouni/go-storybook-kit/pkg/publisher"
)

// PublishRunner は章ページの描画を実行します。
type PublishRunner struct {
	loader    ChapterLoader
	publisher PagePublisher
}

func NewPublishRunner(loader ChapterLoader, pub PagePublisher) *PublishRunner {
	return &PublishRunner{loader: loader, publisher: pub}
}

func (r *PublishRunner) Run(ctx context.Context, chapterID string) (publisher.PublishResult, error) {
	chapter, err := r.loader.Load(ctx, chapterID)
	if err != nil {
		return publisher.PublishResult{}, fmt.Errorf("章 '%s' の読み込みに失敗しました: %w", chapterID, err)
	}
	return r.publisher.Publish(ctx, chapter)
}
