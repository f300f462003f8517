package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bettingtipsai/tips-cli/internal/legacy"
	"github.com/bettingtipsai/tips-cli/internal/schema"
	"github.com/bettingtipsai/tips-cli/internal/store"
)

var migrateV1Overwrite bool

var migrateV1Cmd = &cobra.Command{
	Use:   "migrate-v1 <dir>",
	Short: "Convert and ingest a directory of version 1 payload files",
	Long: `Reads every .json file in the directory as a legacy version 1 payload,
converts it to the current leg-based structure, validates it, and stores it.
Files that fail conversion or validation are reported and skipped.`,
	Args: cobra.ExactArgs(1),
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

		entries, err := os.ReadDir(args[0])
		if err != nil {
			return eris.Wrapf(err, "read dir %s", args[0])
		}

		migrated, failed := 0, 0
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
				continue
			}
			path := filepath.Join(args[0], entry.Name())
			if err := migrateV1File(ctx, st, path); err != nil {
				zap.L().Error("v1 migration failed", zap.String("file", path), zap.Error(err))
				failed++
				continue
			}
			migrated++
		}

		zap.L().Info("v1 migration complete", zap.Int("migrated", migrated), zap.Int("failed", failed))
		if failed > 0 {
			return eris.Errorf("%d file(s) failed to migrate", failed)
		}
		return nil
	},
}

func migrateV1File(ctx context.Context, st store.Store, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrap(err, "read file")
	}
	v1, err := legacy.ParseV1(data)
	if err != nil {
		return err
	}
	payload := legacy.Convert(v1)
	if errs := schema.ValidatePayload(payload); len(errs) > 0 {
		return errs
	}
	return st.SaveDailyTips(ctx, payload, migrateV1Overwrite)
}

func init() {
	migrateV1Cmd.Flags().BoolVar(&migrateV1Overwrite, "overwrite", false, "replace existing payloads for the same dates")
	rootCmd.AddCommand(migrateV1Cmd)
}
