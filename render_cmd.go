package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"labreports/config"
	"labreports/services"
)

// renderCmd renders certificates from a payload file without starting the server.
func renderCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render test certificates from a report payload file",
		Long: `Render one or more certificate variants from a backend report payload.

Variants: WithLH, WoLH, WoLH_2Sign or all.

Example:
  labreports render --in report.json --stage review --variant WithLH --out ./out
  labreports render --in report.json --variant all --xlsx`,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, _ := cmd.Flags().GetString("in")
			stage, _ := cmd.Flags().GetString("stage")
			variantFlag, _ := cmd.Flags().GetString("variant")
			out, _ := cmd.Flags().GetString("out")
			withExcel, _ := cmd.Flags().GetBool("xlsx")

			if in == "" {
				return fmt.Errorf("--in flag is required")
			}

			variants, err := parseVariants(variantFlag)
			if err != nil {
				return err
			}

			data, err := os.ReadFile(in)
			if err != nil {
				return fmt.Errorf("failed to read payload: %w", err)
			}
			raw, err := services.DecodeReport(data, services.ParseSource(stage))
			if err != nil {
				return fmt.Errorf("failed to decode payload: %w", err)
			}
			model := services.Normalize(raw, normalizeOptions(cfg))

			logger := config.Logger()
			exporter := services.NewExporter(cfg, services.NewAssetResolver(cfg.Assets), logger)
			saver := services.DirSaver{Dir: out}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			for _, v := range variants {
				res, err := exporter.Export(ctx, services.ExportRequest{Key: in, Model: model, Variant: v}, saver)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", res.Filename, res.Size)
			}

			if withExcel {
				xlsx, err := services.GenerateResultsExcel(model)
				if err != nil {
					return fmt.Errorf("failed to generate excel: %w", err)
				}
				name := services.ExcelFilename(model)
				if err := saver.Save(name, bytes.NewReader(xlsx)); err != nil {
					return err
				}
				logger.WithFields(logrus.Fields{"filename": name, "size": len(xlsx)}).Info("results workbook exported")
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", name, len(xlsx))
			}
			return nil
		},
	}

	cmd.Flags().String("in", "", "Report payload JSON file (required)")
	cmd.Flags().String("stage", "draft", "Backend view the payload came from: draft or review")
	cmd.Flags().String("variant", "all", "Certificate variant: WithLH, WoLH, WoLH_2Sign or all")
	cmd.Flags().String("out", ".", "Output directory")
	cmd.Flags().Bool("xlsx", false, "Also write the results workbook")
	return cmd
}

func parseVariants(s string) ([]services.Variant, error) {
	if s == "" || strings.EqualFold(s, "all") {
		return services.Variants, nil
	}
	var out []services.Variant
	for _, part := range strings.Split(s, ",") {
		v, err := services.ParseVariant(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func normalizeOptions(cfg *config.Config) services.NormalizeOptions {
	return services.NormalizeOptions{
		NABLLogo: cfg.Assets.NABLLogo,
		QAILogo:  cfg.Assets.QAILogo,
	}
}
