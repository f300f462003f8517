package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bettingtipsai/tips-cli/internal/export"
	"github.com/bettingtipsai/tips-cli/internal/model"
	"github.com/bettingtipsai/tips-cli/internal/query"
	"github.com/bettingtipsai/tips-cli/internal/schema"
)

var (
	exportFormat   string
	exportOut      string
	exportSport    string
	exportRisk     string
	exportResult   string
	exportBetType  string
	exportDateFrom string
	exportDateTo   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the filtered tip history as CSV or JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		filters := model.TipFilters{
			Sport:    exportSport,
			Risk:     model.Risk(exportRisk),
			Result:   model.Result(exportResult),
			BetType:  model.BetType(exportBetType),
			DateFrom: exportDateFrom,
			DateTo:   exportDateTo,
		}

		if errs := schema.ValidateFilters(filters); len(errs) > 0 {
			return errs
		}

		tips, err := query.New(st).All(ctx, filters)
		if err != nil {
			return err
		}
		rows, err := export.Rows(tips)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return eris.New("no data to export")
		}

		out := os.Stdout
		if exportOut != "" {
			f, err := os.Create(exportOut)
			if err != nil {
				return eris.Wrapf(err, "create %s", exportOut)
			}
			defer f.Close()
			out = f
		}

		switch exportFormat {
		case "csv":
			if err := export.WriteCSV(out, rows); err != nil {
				return err
			}
		case "json":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(rows); err != nil {
				return eris.Wrap(err, "encode export json")
			}
		default:
			return eris.Errorf("unknown format %q (want csv or json)", exportFormat)
		}

		zap.L().Info("export complete", zap.Int("rows", len(rows)), zap.String("format", exportFormat))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "output format: csv or json")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output file (default stdout)")
	exportCmd.Flags().StringVar(&exportSport, "sport", "", "filter: sport substring, any leg")
	exportCmd.Flags().StringVar(&exportRisk, "risk", "", "filter: safe, medium, or high")
	exportCmd.Flags().StringVar(&exportResult, "result", "", "filter: pending, win, loss, or void")
	exportCmd.Flags().StringVar(&exportBetType, "bet-type", "", "filter: single or accumulator")
	exportCmd.Flags().StringVar(&exportDateFrom, "from", "", "filter: first date (YYYY-MM-DD, inclusive)")
	exportCmd.Flags().StringVar(&exportDateTo, "to", "", "filter: last date (YYYY-MM-DD, inclusive)")
	rootCmd.AddCommand(exportCmd)
}
