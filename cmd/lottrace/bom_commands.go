package main

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"lottrace/internal/bom"
	"lottrace/internal/store"
)

func newBOMCommand(ctx *commandContext) *cobra.Command {
	bomCmd := &cobra.Command{
		Use:   "bom",
		Short: "Bill-of-materials administration",
	}

	bomCmd.AddCommand(newBOMSetCommand(ctx))
	bomCmd.AddCommand(newBOMShowCommand(ctx))
	bomCmd.AddCommand(newBOMExplodeCommand(ctx))

	return bomCmd
}

func newBOMSetCommand(ctx *commandContext) *cobra.Command {
	var lineSpecs []string

	cmd := &cobra.Command{
		Use:   "set <product>",
		Short: "Replace the BOM lines for a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			product := strings.ToUpper(strings.TrimSpace(args[0]))
			lines := make([]bom.Line, 0, len(lineSpecs))
			for _, spec := range lineSpecs {
				line, err := parseBOMLineSpec(product, spec)
				if err != nil {
					return err
				}
				lines = append(lines, line)
			}
			normalized, err := bom.Normalize(lines)
			if err != nil {
				return err
			}
			return ctx.withStore(func(st *store.Store) error {
				if err := st.ReplaceBOM(cmd.Context(), product, normalized); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Stored %d BOM lines for %s\n", len(normalized), product)
				return nil
			})
		},
	}

	cmd.Flags().StringArrayVar(&lineSpecs, "line", nil, "BOM line as MATERIAL:QTY_PER[:UNIT[:NAME]] (repeatable)")
	_ = cmd.MarkFlagRequired("line")
	return cmd
}

// parseBOMLineSpec accepts MATERIAL:QTY_PER[:UNIT[:NAME]].
func parseBOMLineSpec(product, spec string) (bom.Line, error) {
	parts := strings.SplitN(spec, ":", 4)
	if len(parts) < 2 {
		return bom.Line{}, fmt.Errorf("bom line must be MATERIAL:QTY_PER, got %q", spec)
	}
	qtyPer, err := decimal.NewFromString(strings.TrimSpace(parts[1]))
	if err != nil {
		return bom.Line{}, fmt.Errorf("invalid quantity per unit in %q: %w", spec, err)
	}
	line := bom.Line{
		ProductCode:  product,
		MaterialCode: strings.TrimSpace(parts[0]),
		QtyPer:       qtyPer,
	}
	if len(parts) > 2 {
		line.Unit = strings.TrimSpace(parts[2])
	}
	if len(parts) > 3 {
		line.MaterialName = strings.TrimSpace(parts[3])
	}
	return line, nil
}

func newBOMShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show <product>",
		Short: "Display the BOM lines for a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			product := strings.ToUpper(strings.TrimSpace(args[0]))
			return ctx.withStore(func(st *store.Store) error {
				lines, err := st.BOMLines(cmd.Context(), product)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, lines)
				}
				if len(lines) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "No BOM lines for %s\n", product)
					return nil
				}
				rows := make([][]string, 0, len(lines))
				for _, line := range lines {
					rows = append(rows, []string{
						line.MaterialCode,
						line.QtyPer.String(),
						line.Unit,
						line.MaterialName,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Material", "Qty/Unit", "Unit", "Name"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON")
	return cmd
}

func newBOMExplodeCommand(ctx *commandContext) *cobra.Command {
	var (
		qty     int
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "explode <product>",
		Short: "Compute gross material requirements for a planned quantity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				calculator := bom.NewCalculator(st)
				requirements, err := calculator.Requirements(cmd.Context(), args[0], qty)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, requirements)
				}
				if len(requirements) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "No BOM defined for %s\n", args[0])
					return nil
				}
				rows := make([][]string, 0, len(requirements))
				for _, requirement := range requirements {
					rows = append(rows, []string{
						requirement.MaterialCode,
						requirement.Quantity.String(),
						requirement.Unit,
						requirement.MaterialName,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Material", "Required", "Unit", "Name"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&qty, "qty", 0, "Planned lot quantity")
	_ = cmd.MarkFlagRequired("qty")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON")
	return cmd
}
