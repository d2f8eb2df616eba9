package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shouni/go-storybook-kit/internal/builder"
	"github.com/shouni/go-storybook-kit/internal/config"
	"github.com/shouni/go-storybook-kit/pkg/generator"
	"github.com/shouni/go-storybook-kit/pkg/preview"
	"github.com/shouni/go-storybook-kit/pkg/publisher"
	"github.com/shouni/go-storybook-kit/pkg/runner"
	"github.com/shouni/go-storybook-kit/pkg/store"
)

// ErrChapterFailed は1つ以上の章またはセクションが失敗したことを示すのだ。
var ErrChapterFailed = errors.New("one or more chapters failed")

// ChapterOutcome は章1つ分の生成結果なのだ。Report が nil なら構造エラーなどで中断したのだ。
type ChapterOutcome struct {
	ChapterID string
	Report    *generator.Report
	Err       error
}

// Failed は章が失敗扱いかどうかを返すのだ。
func (o ChapterOutcome) Failed() bool {
	return o.Err != nil || (o.Report != nil && o.Report.HasFailures())
}

// ExecuteGenerate は指定された章を順番に生成するのだ。
// 章ごとの失敗は ChapterOutcome に記録し、最後に ErrChapterFailed を返すのだ。
func ExecuteGenerate(ctx context.Context, cfg *config.Config, chapterIDs []string) ([]ChapterOutcome, error) {
	appCtx, err := setupAppContext(cfg)
	if err != nil {
		return nil, err
	}
	return runGenerateStep(ctx, appCtx, chapterIDs)
}

// ExecutePlan は API を呼ばずに章の生成順を求めるのだ。
func ExecutePlan(ctx context.Context, cfg *config.Config, chapterID string) (*runner.Plan, error) {
	appCtx := builder.NewAppContext(cfg, builder.NewHTTPClient(cfg.Options), newStore(cfg))
	return builder.BuildPlanRunner(appCtx).Run(ctx, chapterID)
}

// ExecuteRender は章ページを並列に描画するのだ。
func ExecuteRender(ctx context.Context, cfg *config.Config, chapterIDs []string) ([]publisher.PublishResult, error) {
	appCtx := builder.NewAppContext(cfg, builder.NewHTTPClient(cfg.Options), newStore(cfg))
	return runPublishStep(ctx, appCtx, chapterIDs)
}

// ExecuteBuild は生成と描画を続けて実行するのだ。
// 生成に失敗した章も、プレースホルダー付きでページを描画するのだ。
func ExecuteBuild(ctx context.Context, cfg *config.Config, chapterIDs []string) ([]ChapterOutcome, []publisher.PublishResult, error) {
	appCtx, err := setupAppContext(cfg)
	if err != nil {
		return nil, nil, err
	}
	outcomes, genErr := runGenerateStep(ctx, appCtx, chapterIDs)
	if genErr != nil && !errors.Is(genErr, ErrChapterFailed) {
		return outcomes, nil, genErr
	}

	var renderable []string
	for _, o := range outcomes {
		if o.Report != nil {
			renderable = append(renderable, o.ChapterID)
		}
	}
	if cfg.Options.DryRun {
		slog.Info("dry-run なのでページの描画はスキップするのだ")
		return outcomes, nil, genErr
	}
	results, err := runPublishStep(ctx, appCtx, renderable)
	if err != nil {
		return outcomes, results, err
	}
	return outcomes, results, genErr
}

// ExecuteServe はプレビューサーバーを起動し、ctx が終了するまで待つのだ。
func ExecuteServe(ctx context.Context, cfg *config.Config) error {
	st := newStore(cfg)
	appCtx := builder.NewAppContext(cfg, builder.NewHTTPClient(cfg.Options), st)
	srv := &http.Server{
		Addr:              cfg.Options.ListenAddr,
		Handler:           preview.NewServer(st, st, builder.BuildPlanRunner(appCtx), http.Dir(cfg.Options.OutputDir), slog.Default()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("プレビューサーバーを起動したのだ", "addr", "http://"+cfg.Options.ListenAddr, "output", cfg.Options.OutputDir)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("プレビューサーバーが停止したのだ: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// setupAppContext は設定を検証し、アプリケーションコンテキストを初期化して返すのだ。
func setupAppContext(cfg *config.Config) (*builder.AppContext, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return builder.NewAppContext(cfg, builder.NewHTTPClient(cfg.Options), newStore(cfg)), nil
}

func newStore(cfg *config.Config) *store.FileStore {
	return store.NewFileStore(cfg.Options.ContentDir, cfg.Options.OutputDir)
}

// runGenerateStep は章を1つずつ生成するのだ。章の間も同じペーシングを共有するのだ。
func runGenerateStep(ctx context.Context, appCtx *builder.AppContext, chapterIDs []string) ([]ChapterOutcome, error) {
	genRunner, err := builder.BuildGenerateRunner(ctx, appCtx)
	if err != nil {
		return nil, fmt.Errorf("GenerateRunnerの構築に失敗したのだ: %w", err)
	}

	outcomes := make([]ChapterOutcome, 0, len(chapterIDs))
	failed := false
	for _, id := range chapterIDs {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}
		slog.Info("章の生成を開始するのだ", "chapter", id, "dry_run", appCtx.Options.DryRun)
		report, err := genRunner.Run(ctx, id)
		o := ChapterOutcome{ChapterID: id, Report: report, Err: err}
		if err != nil {
			slog.Error("章の生成に失敗したのだ", "chapter", id, "error", err)
		}
		if o.Failed() {
			failed = true
		}
		outcomes = append(outcomes, o)
	}
	if failed {
		return outcomes, ErrChapterFailed
	}
	return outcomes, nil
}

// runPublishStep は PublishRunner を使って章ページを並列に書き出すのだ。
func runPublishStep(ctx context.Context, appCtx *builder.AppContext, chapterIDs []string) ([]publisher.PublishResult, error) {
	pubRunner, err := builder.BuildPublishRunner(ctx, appCtx)
	if err != nil {
		return nil, fmt.Errorf("PublishRunnerの構築に失敗したのだ: %w", err)
	}

	limit := appCtx.Options.RenderConcurrency
	if limit < 1 {
		limit = 1
	}

	results := make([]publisher.PublishResult, len(chapterIDs))
	var mu sync.Mutex
	var errs []error

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(limit)
	for i, id := range chapterIDs {
		eg.Go(func() error {
			res, err := pubRunner.Run(egCtx, id)
			if err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", id, err))
				mu.Unlock()
				return nil
			}
			results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return results, err
	}
	if len(errs) > 0 {
		return results, fmt.Errorf("ページの描画に失敗したのだ: %w", errors.Join(errs...))
	}
	return results, nil
}
