package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shouni/go-utils/envutil"

	"github.com/shouni/go-storybook-kit/pkg/synth"
)

// デフォルト値の定義なのだ
const (
	DefaultContentDir        = "content/chapters"
	DefaultOutputDir         = "output"
	DefaultTextBackend       = BackendOpenAI
	DefaultHTTPTimeout       = 120 * time.Second
	DefaultRateInterval      = 10 * time.Second
	DefaultRenderConcurrency = 4
	DefaultListenAddr        = "127.0.0.1:8080"
	DefaultImagePromptSuffix = "soft watercolor children's book illustration, warm pastel colors, rounded friendly shapes, gentle lighting, clean composition, no text"
)

// テキストのみの生成に使うバックエンド名なのだ
const (
	BackendOpenAI = "openai"
	BackendGemini = "gemini"
)

// Config はアプリケーション全体の環境設定（APIキーやモデル名）を保持する構造体なのだ。
type Config struct {
	GeminiAPIKey      string
	OpenAIAPIKey      string
	GeminiImageModel  string
	OpenAIImageModel  string
	TextBackend       string
	ImagePromptSuffix string

	Options GenerateOptions
}

// LoadConfig は環境変数から設定を読み込み、構造体を返すのだ！
func LoadConfig() *Config {
	cfg := &Config{
		GeminiAPIKey:      envutil.GetEnv("GEMINI_API_KEY", ""),
		OpenAIAPIKey:      envutil.GetEnv("OPENAI_API_KEY", ""),
		GeminiImageModel:  envutil.GetEnv("GEMINI_IMAGE_MODEL", synth.DefaultGeminiImageModel),
		OpenAIImageModel:  envutil.GetEnv("OPENAI_IMAGE_MODEL", synth.DefaultOpenAIImageModel),
		TextBackend:       strings.ToLower(envutil.GetEnv("TEXT_IMAGE_BACKEND", DefaultTextBackend)),
		ImagePromptSuffix: envutil.GetEnv("IMAGE_PROMPT_SUFFIX", DefaultImagePromptSuffix),
	}
	cfg.Options = DefaultOptions()
	cfg.Options.ContentDir = envutil.GetEnv("CONTENT_DIR", DefaultContentDir)
	cfg.Options.OutputDir = envutil.GetEnv("OUTPUT_DIR", DefaultOutputDir)
	return cfg
}

// Validate は画像生成に必要な API キーが揃っているかを確認するのだ。
// dry-run では外部呼び出しをしないのでキーは不要なのだ。
func (c *Config) Validate() error {
	switch c.TextBackend {
	case BackendOpenAI, BackendGemini:
	default:
		return fmt.Errorf("TEXT_IMAGE_BACKEND は %q か %q を指定してほしいのだ: %q", BackendOpenAI, BackendGemini, c.TextBackend)
	}
	if c.Options.DryRun {
		return nil
	}
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("環境変数 GEMINI_API_KEY が設定されていないのだ。参照画像付きの生成に必須なのだ")
	}
	if c.TextBackend == BackendOpenAI && c.OpenAIAPIKey == "" {
		return fmt.Errorf("環境変数 OPENAI_API_KEY が設定されていないのだ（TEXT_IMAGE_BACKEND=gemini でも動かせるのだ）")
	}
	return nil
}

// GenerateOptions は CLI フラグから渡される実行時のパラメータなのだ。
type GenerateOptions struct {
	// 入出力
	ContentDir string // --content-dir
	OutputDir  string // --output-dir

	// AI挙動設定
	GeminiImageModel string // --gemini-model
	OpenAIImageModel string // --openai-model
	TextBackend      string // --text-backend

	// 実行制御
	DryRun            bool          // --dry-run
	Force             bool          // --force
	HTTPTimeout       time.Duration // --http-timeout
	RateInterval      time.Duration // --rate-interval
	RetryAttempts     int           // --retry-attempts
	RetryDelay        time.Duration // --retry-delay
	RenderConcurrency int           // --render-concurrency
	ListenAddr        string        // --addr
	Verbose           bool          // --verbose
}

// DefaultOptions はフラグの既定値なのだ。
func DefaultOptions() GenerateOptions {
	return GenerateOptions{
		ContentDir:        DefaultContentDir,
		OutputDir:         DefaultOutputDir,
		HTTPTimeout:       DefaultHTTPTimeout,
		RateInterval:      DefaultRateInterval,
		RetryAttempts:     synth.DefaultMaxAttempts,
		RetryDelay:        synth.DefaultRetryDelay,
		RenderConcurrency: DefaultRenderConcurrency,
		ListenAddr:        DefaultListenAddr,
	}
}

// ApplyOptions はフラグで指定された値で環境変数由来の設定を上書きするのだ。
func (c *Config) ApplyOptions(opts GenerateOptions) {
	if opts.GeminiImageModel != "" {
		c.GeminiImageModel = opts.GeminiImageModel
	}
	if opts.OpenAIImageModel != "" {
		c.OpenAIImageModel = opts.OpenAIImageModel
	}
	if opts.TextBackend != "" {
		c.TextBackend = strings.ToLower(opts.TextBackend)
	}
	if opts.ContentDir == "" {
		opts.ContentDir = c.Options.ContentDir
	}
	if opts.OutputDir == "" {
		opts.OutputDir = c.Options.OutputDir
	}
	c.Options = opts
}

// RetryPolicy はリトライ設定を synth.RetryPolicy に変換するのだ。
func (o GenerateOptions) RetryPolicy() synth.RetryPolicy {
	return synth.RetryPolicy{MaxAttempts: o.RetryAttempts, Delay: o.RetryDelay}
}
