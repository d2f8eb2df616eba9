package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shouni/go-storybook-kit/internal/config"
	"github.com/shouni/go-storybook-kit/internal/pipeline"
)

// buildCmd は generate と render を続けて実行するのだ。
var buildCmd = &cobra.Command{
	Use:   "build <chapter-id>...",
	Short: "挿絵を生成してから章ページを描画するのだ。",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		outcomes, results, err := pipeline.ExecuteBuild(cmd.Context(), loadConfig(), args)
		printGenerateSummary(cmd.OutOrStdout(), outcomes)
		printPublishSummary(cmd.OutOrStdout(), results)
		if errors.Is(err, pipeline.ErrChapterFailed) {
			return errFailed
		}
		if err != nil {
			return fmt.Errorf("ビルドに失敗したのだ: %w", err)
		}
		return nil
	},
}

func init() {
	addGenerateFlags(buildCmd)
	buildCmd.Flags().IntVar(&opts.RenderConcurrency, "render-concurrency", config.DefaultRenderConcurrency, "同時に描画する章の数なのだ。")
}
