package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shouni/go-storybook-kit/internal/config"
	"github.com/shouni/go-storybook-kit/internal/pipeline"
)

// renderCmd は生成済みの画像から章ページを描画するのだ。
var renderCmd = &cobra.Command{
	Use:   "render <chapter-id>...",
	Short: "章の HTML ページを描画するのだ。",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		results, err := pipeline.ExecuteRender(cmd.Context(), loadConfig(), args)
		printPublishSummary(cmd.OutOrStdout(), results)
		if err != nil {
			return fmt.Errorf("描画に失敗したのだ: %w", err)
		}
		return nil
	},
}

func init() {
	renderCmd.Flags().IntVar(&opts.RenderConcurrency, "render-concurrency", config.DefaultRenderConcurrency, "同時に描画する章の数なのだ。")
}
