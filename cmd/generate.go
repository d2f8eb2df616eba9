package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/shouni/go-storybook-kit/internal/pipeline"
)

// generateCmd は、章の挿絵を参照関係の順に生成するのだ。
var generateCmd = &cobra.Command{
	Use:   "generate <chapter-id>...",
	Short: "章の挿絵を生成するのだ。",
	Long: `章のセクションを参照関係で並べ替え、キャラクター画像を先に生成してから
それを参照するシーンを生成するのだ。既存の画像はスキップするのだよ。
循環参照や失敗したセクションがあれば終了コード 1 で終わるのだ。`,
	Args: cobra.MinimumNArgs(1),
	RunE: generateCommand,
}

func init() {
	addGenerateFlags(generateCmd)
}

// addGenerateFlags は generate と build で共通のフラグを定義するのだ。
func addGenerateFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "API を呼ばずに生成計画だけを表示するのだ。")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "既存の画像があっても再生成するのだ。")
	cmd.Flags().DurationVar(&opts.RateInterval, "rate-interval", opts.RateInterval, "画像生成リクエストの最小間隔なのだ。")
	cmd.Flags().IntVar(&opts.RetryAttempts, "retry-attempts", opts.RetryAttempts, "一時的なエラーのときの最大試行回数なのだ。")
	cmd.Flags().DurationVar(&opts.RetryDelay, "retry-delay", opts.RetryDelay, "再試行までの待ち時間なのだ。")
}

func generateCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := loadConfig()

	slog.Info("挿絵生成パイプラインを起動するのだ！",
		"chapters", args,
		"text_backend", cfg.TextBackend,
		"gemini_model", cfg.GeminiImageModel,
		"output", cfg.Options.OutputDir,
		"dry_run", cfg.Options.DryRun)

	outcomes, err := pipeline.ExecuteGenerate(ctx, cfg, args)
	printGenerateSummary(cmd.OutOrStdout(), outcomes)
	if errors.Is(err, pipeline.ErrChapterFailed) {
		return errFailed
	}
	if err != nil {
		return fmt.Errorf("パイプライン実行中にエラーが発生したのだ: %w", err)
	}
	return nil
}
