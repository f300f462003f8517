package main

import (
	"context"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bettingtipsai/tips-cli/internal/schema"
	"github.com/bettingtipsai/tips-cli/internal/store"
)

var (
	ingestOverwrite   bool
	ingestConcurrency int
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [files...]",
	Short: "Validate and store daily tip payloads from JSON files or stdin",
	Long: `Reads one payload per file, validates it, and writes it to the store.
With no arguments the payload is read from stdin. Files are ingested
concurrently; the first failure cancels the remaining files.`,
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

		if len(args) == 0 {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return eris.Wrap(err, "read stdin")
			}
			return ingestOne(ctx, st, "stdin", data)
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(ingestConcurrency)
		for _, path := range args {
			g.Go(func() error {
				data, err := os.ReadFile(path)
				if err != nil {
					return eris.Wrapf(err, "read %s", path)
				}
				if err := ingestOne(gctx, st, path, data); err != nil {
					return eris.Wrapf(err, "ingest %s", path)
				}
				return nil
			})
		}
		return g.Wait()
	},
}

func ingestOne(ctx context.Context, st store.Store, source string, data []byte) error {
	payload, err := schema.ParsePayload(data)
	if err != nil {
		return err
	}
	if err := st.SaveDailyTips(ctx, payload, ingestOverwrite); err != nil {
		return err
	}
	zap.L().Info("payload stored",
		zap.String("source", source),
		zap.String("date", payload.DateISO),
		zap.Int("tips", len(payload.Tips)),
	)
	return nil
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestOverwrite, "overwrite", false, "replace an existing payload for the same date")
	ingestCmd.Flags().IntVar(&ingestConcurrency, "concurrency", 4, "max files ingested in parallel")
	rootCmd.AddCommand(ingestCmd)
}
