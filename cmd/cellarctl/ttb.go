package main

import (
	"fmt"
	"os"
	"time"

	"cellarbook/frontend/login"
	ttbreports "cellarbook/frontend/ttbReports"
	"cellarbook/infrastructure/audit"
	"cellarbook/infrastructure/ttb"

	"github.com/spf13/cobra"
)

func newTTBCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ttb",
		Short: "TTB Form 5120.17 reporting",
	}
	cmd.AddCommand(newTTBGenerateCmd(opts))
	return cmd
}

type generateFlags struct {
	year, month int
	format      string
	out         string
	as          string
}

func newTTBGenerateCmd(opts *rootOptions) *cobra.Command {
	last := time.Now().UTC().AddDate(0, -1, 0)
	f := generateFlags{year: last.Year(), month: int(last.Month())}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate and save the report for one month",
		Long: `Aggregate the bulk ledger for one month into Form 5120.17, save the
snapshot and write it as json, pdf or xlsx. Defaults to last month.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTTBGenerate(cmd, opts, f)
		},
	}
	cmd.Flags().IntVar(&f.year, "year", f.year, "report year")
	cmd.Flags().IntVar(&f.month, "month", f.month, "report month (1-12)")
	cmd.Flags().StringVar(&f.format, "format", ttbreports.FormatJSON, "output format: json, pdf or xlsx")
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "output file (defaults to the form file name, - for stdout)")
	cmd.Flags().StringVar(&f.as, "as", "admin", "user recorded in the audit log")
	return cmd
}

func runTTBGenerate(cmd *cobra.Command, opts *rootOptions, f generateFlags) error {
	switch f.format {
	case ttbreports.FormatJSON, ttbreports.FormatPDF, ttbreports.FormatXLSX:
	default:
		return fmt.Errorf("unknown format %q", f.format)
	}

	cfg, db, err := opts.open(cmd.Context())
	if err != nil {
		return err
	}
	defer db.Close()

	actor, err := login.FindUser(cmd.Context(), db, f.as)
	if err != nil {
		return fmt.Errorf("user %q: %w", f.as, err)
	}

	rates, err := ttb.LoadRates(cfg.TTBRatesFile)
	if err != nil {
		return err
	}
	settings := ttbreports.Settings{
		Rates:    rates,
		Producer: ttb.Producer{Name: cfg.Producer.Name, Registry: cfg.Producer.Registry, EIN: cfg.Producer.EIN},
	}

	form, err := ttbreports.Generate(cmd.Context(), db, audit.NewService(), actor.ID, settings, ttbreports.GenerateInput{Year: f.year, Month: f.month})
	if err != nil {
		return err
	}
	body, _, filename, err := ttbreports.Render(form, f.format)
	if err != nil {
		return err
	}

	switch f.out {
	case "-":
		_, err = cmd.OutOrStdout().Write(body)
		return err
	case "":
		f.out = filename
	}
	if err := os.WriteFile(f.out, body, 0o644); err != nil {
		return err
	}
	if len(form.Findings) > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %d reconciliation findings\n", len(form.Findings))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (net tax %s)\n", f.out, form.Tax.NetTax.StringFixed(2))
	return nil
}
