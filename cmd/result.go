package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bettingtipsai/tips-cli/internal/model"
)

var resultCmd = &cobra.Command{
	Use:   "result <tip-id> <pending|win|loss|void>",
	Short: "Set the result of a single tip",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		tipID, result := args[0], model.Result(args[1])
		if err := st.UpdateTipResult(ctx, tipID, result); err != nil {
			return err
		}

		zap.L().Info("result updated", zap.String("tip", tipID), zap.String("result", string(result)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resultCmd)
}
