package cmd

import (
	"github.com/spf13/cobra"

	"github.com/shouni/go-storybook-kit/internal/config"
	"github.com/shouni/go-storybook-kit/internal/pipeline"
)

// serveCmd は出力ディレクトリをローカルで確認するためのサーバーを起動するのだ。
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "プレビューサーバーを起動するのだ。",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return pipeline.ExecuteServe(cmd.Context(), loadConfig())
	},
}

func init() {
	serveCmd.Flags().StringVar(&opts.ListenAddr, "addr", config.DefaultListenAddr, "待ち受けアドレスなのだ。")
}
