package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/shouni/go-storybook-kit/internal/config"
)

// opts はフラグの値を受け取る実行時オプションなのだ。
var opts = config.DefaultOptions()

// errFailed は失敗内容をすでに表示済みで、終了コードだけを返したいときに使うのだ。
var errFailed = errors.New("failed")

var rootCmd = &cobra.Command{
	Use:   "storybook",
	Short: "章の YAML から挿絵を生成して静的ページを組み立てるのだ。",
	Long: `章ごとの YAML（セクション、プロンプト、多言語テキスト）を読み込み、
キャラクターの参照画像を先に生成してからシーンを生成し、HTML ページを出力するのだ。`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: preRunAppE,
}

// addAppFlags は、アプリケーション全般に適用されるグローバルフラグを定義するのだ。
func addAppFlags(rootCmd *cobra.Command) {
	// --- 入出力 ---
	rootCmd.PersistentFlags().StringVar(&opts.ContentDir, "content-dir", "", "章 YAML を置いたディレクトリなのだ（既定: $CONTENT_DIR か "+config.DefaultContentDir+"）。")
	rootCmd.PersistentFlags().StringVarP(&opts.OutputDir, "output-dir", "o", "", "生成物の出力先なのだ（既定: $OUTPUT_DIR か "+config.DefaultOutputDir+"）。")

	// --- AIモデル・挙動設定 ---
	rootCmd.PersistentFlags().StringVar(&opts.GeminiImageModel, "gemini-model", "", "参照画像付きの生成に使う Gemini モデル名なのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.OpenAIImageModel, "openai-model", "", "テキストからの生成に使う OpenAI モデル名なのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.TextBackend, "text-backend", "", "テキストのみの生成に使うバックエンド（openai | gemini）なのだ。")
	rootCmd.PersistentFlags().DurationVar(&opts.HTTPTimeout, "http-timeout", config.DefaultHTTPTimeout, "画像生成リクエスト1回のタイムアウトなのだ。")

	// --- 実行制御 ---
	rootCmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "デバッグログを出力するのだ。")
}

// preRunAppE は、.env の読み込みとロガーの初期化を行うのだ。
func preRunAppE(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn(".env の読み込みに失敗したのだ", "error", err)
	}

	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

// loadConfig は環境変数とフラグから設定を組み立てるのだ。
func loadConfig() *config.Config {
	cfg := config.LoadConfig()
	cfg.ApplyOptions(opts)
	return cfg
}

func init() {
	addAppFlags(rootCmd)
	rootCmd.AddCommand(generateCmd, planCmd, renderCmd, buildCmd, serveCmd)
}

// Execute は、アプリケーションのメインエントリポイントなのだ。
// main.go から呼び出されて、cobra のコマンドライン解析を開始するのだよ。
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errFailed) {
			fmt.Fprintln(os.Stderr, "エラー:", err)
		}
		stop()
		os.Exit(1)
	}
}
