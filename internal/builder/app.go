package builder

import (
	"github.com/shouni/go-http-kit/httpkit"

	"github.com/shouni/go-storybook-kit/internal/config"
	"github.com/shouni/go-storybook-kit/pkg/store"
	"github.com/shouni/go-storybook-kit/pkg/synth"
)

// AppContext は、アプリケーション実行に必要な共通コンテキストを保持する
// これを各Build関数に渡すことで、依存関係の注入を簡素化します。
type AppContext struct {
	Config  *config.Config         // Configは、環境変数とフラグから組み立てた設定です。
	Options config.GenerateOptions // Optionsは、コマンドラインから渡された実行時の設定です。
	Store   *store.FileStore       // Storeは、章 YAML の読み込みと生成物の保存先です。

	httpClient httpkit.HTTPClient // httpClient は外部APIとの通信に使う共通クライアント

	// synthesizer は画像生成バックエンドです。必要になるまで初期化しません。
	synthesizer synth.Synthesizer
}

// NewAppContext は AppContext の新しいインスタンスを生成する
func NewAppContext(cfg *config.Config, httpClient httpkit.HTTPClient, st *store.FileStore) *AppContext {
	return &AppContext{
		Config:     cfg,
		Options:    cfg.Options,
		Store:      st,
		httpClient: httpClient,
	}
}

// NewHTTPClient は外部API用の共通クライアントを生成します。
// 再試行は synth.RetryPolicy が受け持つため、httpkit 側の再試行は無効にします。
func NewHTTPClient(opts config.GenerateOptions) *httpkit.Client {
	return httpkit.New(opts.HTTPTimeout, httpkit.WithMaxRetries(0))
}

// WithSynthesizer は画像生成バックエンドを差し替えた AppContext を返します。
func (a *AppContext) WithSynthesizer(s synth.Synthesizer) *AppContext {
	c := *a
	c.synthesizer = s
	return &c
}
