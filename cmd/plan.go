package cmd

import (
	"github.com/spf13/cobra"

	"github.com/shouni/go-storybook-kit/internal/pipeline"
)

// planCmd は API キー無しで生成順を確認するのだ。
var planCmd = &cobra.Command{
	Use:   "plan <chapter-id>",
	Short: "章の生成順と参照関係を表示するのだ。",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		plan, err := pipeline.ExecutePlan(cmd.Context(), loadConfig(), args[0])
		if err != nil {
			return err
		}
		printPlan(cmd.OutOrStdout(), plan)
		return nil
	},
}
