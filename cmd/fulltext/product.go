// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/fulltext/pkg/types"
)

var productCmd = &cobra.Command{
	Use:   "product <paper_id>",
	Short: "Print the stored extraction product for a paper",
	Long: `Product prints the stored extraction product. The text format writes the
extracted content only; yaml and json include the version and timestamps.`,
	Args: cobra.ExactArgs(1),
	RunE: runProduct,
}

func init() {
	productCmd.Flags().String("id-type", string(types.IDArxiv), "id type: arxiv or submission")
	productCmd.Flags().String("format", "text", "output format: text, yaml or json")

	rootCmd.AddCommand(productCmd)
}

func runProduct(cmd *cobra.Command, args []string) error {
	key, err := keyFromArgs(cmd, args[0])
	if err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	product, err := a.store.GetProduct(cmd.Context(), key)
	if err != nil {
		return err
	}
	if product == nil {
		return errors.WithHintf(
			errors.Newf("no extraction product for %s", key),
			"check progress with: fulltext status --id-type %s %s", key.IDType, key.PaperID)
	}

	format, _ := cmd.Flags().GetString("format")
	return writeProduct(cmd.OutOrStdout(), product, format)
}

func writeProduct(w io.Writer, p *types.ExtractionProduct, format string) error {
	switch format {
	case "text", "":
		_, err := io.WriteString(w, p.Content)
		return err
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(p); err != nil {
			return errors.Wrap(err, "encoding yaml")
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	default:
		return errors.WithHint(
			errors.Newf("unsupported format %q", format),
			"use text, yaml or json")
	}
}
