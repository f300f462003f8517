package main

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bettingtipsai/tips-cli/internal/generate"
)

var (
	seedDays      int
	seedOverwrite bool
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Populate the store with demo payloads",
	Long:  "Writes one generated demo payload per day, starting today and going backwards.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return err
		}

		loc, err := time.LoadLocation(cfg.Site.Timezone)
		if err != nil {
			return err
		}

		now := time.Now()
		for i := 0; i < seedDays; i++ {
			date := now.In(loc).AddDate(0, 0, -i).Format("2006-01-02")
			payload := generate.DemoPayload(date, now)
			if err := st.SaveDailyTips(ctx, payload, seedOverwrite); err != nil {
				return err
			}
			zap.L().Info("seeded", zap.String("date", date), zap.Int("tips", len(payload.Tips)))
		}

		return nil
	},
}

func init() {
	seedCmd.Flags().IntVar(&seedDays, "days", 1, "number of days to seed, counting back from today")
	seedCmd.Flags().BoolVar(&seedOverwrite, "overwrite", false, "replace existing payloads")
	rootCmd.AddCommand(seedCmd)
}
