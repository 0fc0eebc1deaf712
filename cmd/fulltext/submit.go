// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/pdiddy/fulltext/internal/retrieve"
	"github.com/pdiddy/fulltext/pkg/types"
)

var submitCmd = &cobra.Command{
	Use:   "submit <paper_id>",
	Short: "Request text extraction for a paper",
	Long: `Submit queues an extraction task for a paper and prints the task id.
The PDF URL is derived from the paper id unless --url is given. Submitting
again while the task is still running returns the same task id, and
--url is then ignored in favour of the URL the task was created with.`,
	Args: cobra.ExactArgs(1),
	RunE: runSubmit,
}

func init() {
	submitCmd.Flags().String("url", "", "document URL (default: derived from the paper id)")
	submitCmd.Flags().String("id-type", string(types.IDArxiv), "id type: arxiv or submission")

	rootCmd.AddCommand(submitCmd)
}

func runSubmit(cmd *cobra.Command, args []string) error {
	key, err := keyFromArgs(cmd, args[0])
	if err != nil {
		return err
	}
	url, _ := cmd.Flags().GetString("url")
	if url == "" {
		url = retrieve.PDFURL(key.IDType, key.PaperID)
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	taskID, err := a.orchestrator.Create(cmd.Context(), key.PaperID, url, key.IDType)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), taskID)
	return nil
}

// keyFromArgs validates the paper id against the --id-type flag.
func keyFromArgs(cmd *cobra.Command, rawID string) (types.Key, error) {
	rawType, _ := cmd.Flags().GetString("id-type")
	idType, err := types.ParseIDType(rawType)
	if err != nil {
		return types.Key{}, err
	}
	paperID, ok := retrieve.Classify(idType, rawID)
	if !ok {
		return types.Key{}, errors.Newf("malformed %s id %q", idType, rawID)
	}
	return types.Key{PaperID: paperID, IDType: idType}, nil
}
