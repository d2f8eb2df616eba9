package builder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shouni/go-gemini-client/gemini"
	"golang.org/x/time/rate"

	"github.com/shouni/go-storybook-kit/internal/config"
	"github.com/shouni/go-storybook-kit/pkg/generator"
	"github.com/shouni/go-storybook-kit/pkg/publisher"
	"github.com/shouni/go-storybook-kit/pkg/runner"
	"github.com/shouni/go-storybook-kit/pkg/synth"
)

// BuildGenerateRunner は章の画像生成を担当する Runner を構築します。
func BuildGenerateRunner(ctx context.Context, appCtx *AppContext) (*runner.GenerateRunner, error) {
	s, err := InitializeSynthesizer(ctx, appCtx)
	if err != nil {
		return nil, fmt.Errorf("画像生成バックエンドの初期化に失敗しました: %w", err)
	}

	var limiter *rate.Limiter
	if appCtx.Options.RateInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(appCtx.Options.RateInterval), 1)
	}

	gen := generator.NewChapterGenerator(
		s,
		appCtx.Store,
		generator.NewPromptBuilder(appCtx.Config.ImagePromptSuffix),
		limiter,
		generator.NewReferenceCache(appCtx.Store, 0),
	)
	return runner.NewGenerateRunner(appCtx.Store, gen, generator.Options{
		DryRun: appCtx.Options.DryRun,
		Force:  appCtx.Options.Force,
	}), nil
}

// BuildPublishRunner は章ページの描画を担当する Runner を構築します。
func BuildPublishRunner(ctx context.Context, appCtx *AppContext) (*runner.PublishRunner, error) {
	pub, err := publisher.NewChapterPublisher(appCtx.Store)
	if err != nil {
		return nil, fmt.Errorf("パブリッシャーの初期化に失敗しました: %w", err)
	}
	return runner.NewPublishRunner(appCtx.Store, pub), nil
}

// BuildPlanRunner は生成順の計算を担当する Runner を構築します。
func BuildPlanRunner(appCtx *AppContext) *runner.PlanRunner {
	return runner.NewPlanRunner(appCtx.Store)
}

// InitializeSynthesizer は設定に応じて画像生成バックエンドを組み立てます。
// 参照画像付きの生成は Gemini、テキストのみの生成は TEXT_IMAGE_BACKEND のバックエンドを使います。
// dry-run では外部 API を呼ばない synth.Disabled を返します。
func InitializeSynthesizer(ctx context.Context, appCtx *AppContext) (synth.Synthesizer, error) {
	if appCtx.synthesizer != nil {
		return appCtx.synthesizer, nil
	}
	cfg := appCtx.Config
	opts := appCtx.Options
	if opts.DryRun {
		return synth.Disabled{}, nil
	}

	aiClient, err := InitializeAIClient(ctx, cfg.GeminiAPIKey, opts.RetryDelay)
	if err != nil {
		return nil, err
	}
	geminiSynth, err := synth.NewGeminiSynthesizer(aiClient, cfg.GeminiImageModel, opts.HTTPTimeout)
	if err != nil {
		return nil, err
	}

	var text synth.TextToImage = geminiSynth
	if cfg.TextBackend == config.BackendOpenAI {
		httpClient := appCtx.httpClient
		if httpClient == nil {
			httpClient = NewHTTPClient(opts)
		}
		openai, err := synth.NewOpenAISynthesizer(cfg.OpenAIAPIKey, cfg.OpenAIImageModel, httpClient)
		if err != nil {
			return nil, err
		}
		text = openai
	}

	router, err := synth.NewRouter(text, geminiSynth)
	if err != nil {
		return nil, err
	}

	slog.Debug("Image synthesizer initialized",
		"text_backend", cfg.TextBackend,
		"gemini_model", cfg.GeminiImageModel,
		"openai_model", cfg.OpenAIImageModel,
		"retry_attempts", opts.RetryAttempts)
	return synth.NewRetrying(router, opts.RetryPolicy()), nil
}

// InitializeAIClient は gemini クライアントを初期化します。
// クライアント内部の再試行は最小の1回に抑え、間隔は --retry-delay に合わせます。
func InitializeAIClient(ctx context.Context, apiKey string, retryDelay time.Duration) (*gemini.Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY が設定されていません")
	}
	aiClient, err := gemini.NewClient(ctx, gemini.Config{
		APIKey:       apiKey,
		MaxRetries:   1,
		InitialDelay: retryDelay,
		MaxDelay:     retryDelay,
	})
	if err != nil {
		return nil, fmt.Errorf("AIクライアントの初期化に失敗しました: %w", err)
	}
	return aiClient, nil
}
