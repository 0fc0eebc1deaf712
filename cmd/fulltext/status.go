// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/fulltext/pkg/types"
)

var statusCmd = &cobra.Command{
	Use:   "status <paper_id>",
	Short: "Show the status of an extraction task",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().String("id-type", string(types.IDArxiv), "id type: arxiv or submission")
	statusCmd.Flags().Bool("json", false, "output the task as JSON")

	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	key, err := keyFromArgs(cmd, args[0])
	if err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	task, err := a.orchestrator.Get(cmd.Context(), key.PaperID, key.IDType)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(task)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "paper:   %s\n", key)
	if task.TaskID != "" {
		fmt.Fprintf(out, "task:    %s\n", task.TaskID)
	}
	fmt.Fprintf(out, "status:  %s\n", task.Status)
	switch task.Status {
	case types.StatusFailed:
		fmt.Fprintf(out, "reason:  %s\n", task.Reason)
	case types.StatusSucceeded:
		fmt.Fprintf(out, "version: %s\n", task.Result.Version)
		fmt.Fprintf(out, "size:    %d bytes\n", len(task.Result.Content))
	}
	return nil
}
