package runner

import (
	"context"

	"github.com/shouni/go-storybook-kit/pkg/domain"
	"github.com/shouni/go-storybook-kit/pkg/generator"
	"github.com/shouni/go-storybook-kit/pkg/publisher"
)

// ChapterLoader は章IDから章を読み込みます。
type ChapterLoader interface {
	Load(ctx context.Context, chapterID string) (*domain.Chapter, error)
}

// ChapterRunner は章を生成するジェネレーターです。
type ChapterRunner interface {
	Run(ctx context.Context, chapter *domain.Chapter, opts generator.Options) (*generator.Report, error)
}

// PagePublisher は章ページを出力するパブリッシャーです。
type PagePublisher interface {
	Publish(ctx context.Context, chapter *domain.Chapter) (publisher.PublishResult, error)
}
