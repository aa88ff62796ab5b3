package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"lottrace/internal/identifier"
	"lottrace/internal/process"
)

func newValidateCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:         "validate <process> <input-identifier>...",
		Short:       "Check whether scanned batches may feed a process",
		Args:        cobra.MinimumNArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			processCode := args[0]
			inputs := make([]process.Input, 0, len(args)-1)
			for _, raw := range args[1:] {
				id := identifier.Decode(raw)
				inputs = append(inputs, process.Input{
					LotNo:         id.Normalized,
					Category:      identifier.InferCategory(id),
					SourceProcess: id.ProcessCode,
				})
			}

			result := process.Validate(processCode, inputs)

			if jsonOut {
				return writeJSON(cmd, result)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Valid: %s\n", yesNo(result.Valid))
			if len(result.Errors) > 0 {
				rows := make([][]string, 0, len(result.Errors))
				for _, issue := range result.Errors {
					rows = append(rows, []string{issue.Code, issue.LotNo, issue.Message})
				}
				fmt.Fprintln(out, renderTable([]string{"Error", "Lot", "Message"}, rows, nil))
			}
			if len(result.Warnings) > 0 {
				rows := make([][]string, 0, len(result.Warnings))
				for _, issue := range result.Warnings {
					rows = append(rows, []string{issue.Code, issue.LotNo, issue.Message})
				}
				fmt.Fprintln(out, renderTable([]string{"Warning", "Lot", "Message"}, rows, nil))
			}
			if !result.Valid {
				return fmt.Errorf("inputs rejected for process %s", processCode)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON")
	return cmd
}
