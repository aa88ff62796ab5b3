package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"lottrace/internal/identifier"
)

func newDecodeCommand(ctx *commandContext) *cobra.Command {
	var asVendor bool
	var jsonOut bool

	cmd := &cobra.Command{
		Use:         "decode <identifier>",
		Short:       "Decode a scanned lot identifier",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var id identifier.Identifier
			if asVendor {
				id = identifier.DecodeVendor(args[0])
			} else {
				id = identifier.Decode(args[0])
			}

			if jsonOut {
				return writeJSON(cmd, id)
			}

			rows := [][]string{
				{"Raw", id.Raw},
				{"Normalized", id.Normalized},
				{"Kind", string(id.Kind)},
				{"Valid", yesNo(id.Valid)},
			}
			if !id.Valid {
				rows = append(rows, []string{"Reason", id.Reason})
			}
			if id.ProcessCode != "" {
				rows = append(rows, []string{"Process", fmt.Sprintf("%s (%s)", id.ProcessCode, identifier.ProcessDisplayName(id))})
			}
			if id.ProductCode != "" {
				rows = append(rows, []string{"Product", id.ProductCode})
			}
			if id.Quantity > 0 {
				rows = append(rows, []string{"Quantity", fmt.Sprintf("%d", id.Quantity)})
			}
			if id.DateKey != "" {
				rows = append(rows, []string{"Date", id.DateKey})
			}
			if id.Sequence != "" {
				rows = append(rows, []string{"Sequence", id.Sequence})
			}
			if id.MarkingLot != "" {
				rows = append(rows, []string{"Marking lot", id.MarkingLot})
			}
			if id.LotInfo != "" {
				rows = append(rows, []string{"Lot info", id.LotInfo})
			}
			if id.Version != "" {
				rows = append(rows, []string{"Version", id.Version})
			}
			if id.Valid {
				rows = append(rows, []string{"Category", string(identifier.InferCategory(id))})
			}
			if id.IsBundle {
				rows = append(rows, []string{"Bundle", "yes"})
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows, nil))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asVendor, "vendor", false, "Decode with vendor grammars only, including the dash-delimited fallback")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON")
	return cmd
}
