package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"lottrace/internal/bom"
	"lottrace/internal/lot"
	"lottrace/internal/store"
)

func newLotCommand(ctx *commandContext) *cobra.Command {
	lotCmd := &cobra.Command{
		Use:   "lot",
		Short: "Lot lifecycle operations",
	}

	lotCmd.AddCommand(newLotStartCommand(ctx))
	lotCmd.AddCommand(newLotCompleteCommand(ctx))
	lotCmd.AddCommand(newLotCancelCommand(ctx))
	lotCmd.AddCommand(newLotConsumeCommand(ctx))
	lotCmd.AddCommand(newLotShowCommand(ctx))
	lotCmd.AddCommand(newLotListCommand(ctx))
	lotCmd.AddCommand(newLotCarryOversCommand(ctx))

	return lotCmd
}

func newLotStartCommand(ctx *commandContext) *cobra.Command {
	var (
		processCode string
		productCode string
		worker      string
		plannedQty  int
		lotNumber   string
		parentID    int64
		materials   []string
		claimSpec   string
		jsonOut     bool
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Open a new production lot",
		RunE: func(cmd *cobra.Command, args []string) error {
			input := lot.StartInput{
				ProcessCode: processCode,
				ProductCode: productCode,
				Worker:      worker,
				PlannedQty:  plannedQty,
				LotNumber:   lotNumber,
			}
			if parentID > 0 {
				input.ParentLotID = &parentID
			}
			for _, spec := range materials {
				material, err := parseMaterialSpec(spec)
				if err != nil {
					return err
				}
				input.Materials = append(input.Materials, material)
			}
			if claimSpec != "" {
				claim, err := parseClaimSpec(claimSpec)
				if err != nil {
					return err
				}
				input.CarryOver = claim
			}

			return ctx.withManager(func(manager *lot.Manager, st *store.Store) error {
				production, err := manager.Start(cmd.Context(), input)
				if err != nil {
					return err
				}
				if err := reportMaterialShortfall(cmd, st, production); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Warning: BOM check failed: %v\n", err)
				}
				if jsonOut {
					return writeJSON(cmd, production)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Started lot %s (id %d)\n", production.LotNumber, production.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&processCode, "process", "", "Process code (MO, CA, MC, ...)")
	cmd.Flags().StringVar(&productCode, "product", "", "Product code")
	cmd.Flags().StringVar(&worker, "worker", "", "Worker name or badge")
	cmd.Flags().IntVar(&plannedQty, "qty", 0, "Planned quantity")
	cmd.Flags().StringVar(&lotNumber, "lot-number", "", "Pre-printed label identifier (default: temporary number)")
	cmd.Flags().Int64Var(&parentID, "parent", 0, "Parent lot id for split lots")
	cmd.Flags().StringArrayVar(&materials, "material", nil, "Material input as LOTNO:QTY[:CODE[:NAME]] (repeatable)")
	cmd.Flags().StringVar(&claimSpec, "carry-over", "", "Carry-over claim as ID:QTY")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON")
	_ = cmd.MarkFlagRequired("process")
	_ = cmd.MarkFlagRequired("product")
	_ = cmd.MarkFlagRequired("qty")
	return cmd
}

// reportMaterialShortfall compares the supplied material quantities against
// the product's BOM requirements for the planned quantity. Advisory only:
// lots may legitimately start before every material is scanned.
func reportMaterialShortfall(cmd *cobra.Command, st *store.Store, production *lot.ProductionLot) error {
	lines, err := st.BOMLines(cmd.Context(), production.ProductCode)
	if err != nil || len(lines) == 0 {
		return err
	}
	requirements, err := bom.NewCalculator(st).Requirements(cmd.Context(), production.ProductCode, production.PlannedQty)
	if err != nil {
		return err
	}

	supplied := make(map[string]decimal.Decimal)
	for _, material := range production.Materials {
		if material.MaterialCode == "" {
			continue
		}
		code := strings.ToUpper(material.MaterialCode)
		supplied[code] = supplied[code].Add(decimal.NewFromInt(int64(material.Quantity)))
	}

	for _, requirement := range requirements {
		have := supplied[requirement.MaterialCode]
		if have.LessThan(requirement.Quantity) {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: material %s short %s (need %s, supplied %s)\n",
				requirement.MaterialCode, requirement.Quantity.Sub(have), requirement.Quantity, have)
		}
	}
	return nil
}

func newLotCompleteCommand(ctx *commandContext) *cobra.Command {
	var (
		completedQty int
		defectQty    int
		carryQty     int
		jsonOut      bool
	)

	cmd := &cobra.Command{
		Use:   "complete <lot-id>",
		Short: "Finish an in-progress lot and mint its final identifier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lotID, err := parseLotID(args[0])
			if err != nil {
				return err
			}
			input := lot.CompleteInput{
				CompletedQty:    completedQty,
				DefectQty:       defectQty,
				CreateCarryOver: carryQty > 0,
				CarryOverQty:    carryQty,
			}
			return ctx.withManager(func(manager *lot.Manager, _ *store.Store) error {
				production, err := manager.Complete(cmd.Context(), lotID, input)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, production)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Completed lot %s: %d good, %d defective\n",
					production.LotNumber, production.CompletedQty, production.DefectQty)
				if production.CarryOverOut > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "Banked carry-over of %d\n", production.CarryOverOut)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&completedQty, "qty", 0, "Completed good quantity")
	cmd.Flags().IntVar(&defectQty, "defects", 0, "Defective quantity")
	cmd.Flags().IntVar(&carryQty, "carry-over-qty", 0, "Quantity to bank as carry-over")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON")
	_ = cmd.MarkFlagRequired("qty")
	return cmd
}

func newLotCancelCommand(ctx *commandContext) *cobra.Command {
	var hard bool

	cmd := &cobra.Command{
		Use:   "cancel <lot-id>",
		Short: "Cancel an in-progress lot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lotID, err := parseLotID(args[0])
			if err != nil {
				return err
			}
			return ctx.withManager(func(manager *lot.Manager, _ *store.Store) error {
				if err := manager.Cancel(cmd.Context(), lotID, hard); err != nil {
					return err
				}
				if hard {
					fmt.Fprintf(cmd.OutOrStdout(), "Removed lot %d\n", lotID)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "Cancelled lot %d\n", lotID)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&hard, "hard", false, "Remove the row instead of marking it CANCELLED")
	return cmd
}

func newLotConsumeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "consume <lot-id>",
		Short: "Mark a completed lot's output as fully used downstream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lotID, err := parseLotID(args[0])
			if err != nil {
				return err
			}
			return ctx.withManager(func(manager *lot.Manager, _ *store.Store) error {
				if err := manager.MarkConsumed(cmd.Context(), lotID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Marked lot %d consumed\n", lotID)
				return nil
			})
		},
	}
}

func newLotShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show <lot-id-or-number>",
		Short: "Display one lot with its materials",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(func(manager *lot.Manager, _ *store.Store) error {
				var (
					production *lot.ProductionLot
					err        error
				)
				if id, parseErr := strconv.ParseInt(args[0], 10, 64); parseErr == nil {
					production, err = manager.Get(cmd.Context(), id)
				} else {
					production, err = manager.GetByNumber(cmd.Context(), args[0])
				}
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, production)
				}
				printLot(cmd, production)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON")
	return cmd
}

func printLot(cmd *cobra.Command, production *lot.ProductionLot) {
	out := cmd.OutOrStdout()
	rows := [][]string{
		{"ID", fmt.Sprintf("%d", production.ID)},
		{"Lot number", production.LotNumber},
		{"Process", production.ProcessCode},
		{"Product", production.ProductCode},
		{"Status", colorStatus(out, string(production.Status))},
		{"Planned", fmt.Sprintf("%d", production.PlannedQty)},
		{"Completed", fmt.Sprintf("%d", production.CompletedQty)},
		{"Defects", fmt.Sprintf("%d", production.DefectQty)},
		{"Carry-over in", fmt.Sprintf("%d", production.CarryOverIn)},
		{"Carry-over out", fmt.Sprintf("%d", production.CarryOverOut)},
		{"Started", production.StartedAt.Local().Format(time.RFC3339)},
	}
	if production.Worker != "" {
		rows = append(rows, []string{"Worker", production.Worker})
	}
	if production.CompletedAt != nil {
		rows = append(rows, []string{"Completed at", production.CompletedAt.Local().Format(time.RFC3339)})
	}
	if production.ParentLotID != nil {
		rows = append(rows, []string{"Parent lot", fmt.Sprintf("%d", *production.ParentLotID)})
	}
	fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows, nil))

	if len(production.Materials) > 0 {
		materialRows := make([][]string, 0, len(production.Materials))
		for _, material := range production.Materials {
			materialRows = append(materialRows, []string{
				material.MaterialLotNo,
				fmt.Sprintf("%d", material.Quantity),
				material.MaterialCode,
				material.MaterialName,
			})
		}
		fmt.Fprintln(out, renderTable(
			[]string{"Material Lot", "Qty", "Code", "Name"},
			materialRows,
			[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft},
		))
	}
}

func newLotListCommand(ctx *commandContext) *cobra.Command {
	var (
		processCode string
		statusStr   string
		fromStr     string
		toStr       string
		jsonOut     bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List lots, optionally filtered",
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter lot.Filter
			filter.ProcessCode = strings.ToUpper(strings.TrimSpace(processCode))
			if statusStr != "" {
				status, ok := lot.ParseStatus(statusStr)
				if !ok {
					return fmt.Errorf("unknown status %q", statusStr)
				}
				filter.Status = status
			}
			var err error
			if filter.From, err = parseDateFlag(fromStr); err != nil {
				return err
			}
			if filter.To, err = parseDateFlag(toStr); err != nil {
				return err
			}
			if !filter.To.IsZero() {
				filter.To = filter.To.AddDate(0, 0, 1)
			}

			return ctx.withStore(func(st *store.Store) error {
				lots, err := st.ListLots(cmd.Context(), filter)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, lots)
				}
				if len(lots) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No lots found")
					return nil
				}
				rows := make([][]string, 0, len(lots))
				for _, production := range lots {
					rows = append(rows, []string{
						fmt.Sprintf("%d", production.ID),
						production.LotNumber,
						production.ProcessCode,
						production.ProductCode,
						colorStatus(cmd.OutOrStdout(), string(production.Status)),
						fmt.Sprintf("%d", production.PlannedQty),
						fmt.Sprintf("%d", production.CompletedQty),
						production.StartedAt.Local().Format("2006-01-02 15:04"),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Lot Number", "Process", "Product", "Status", "Planned", "Completed", "Started"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&processCode, "process", "", "Filter by process code")
	cmd.Flags().StringVar(&statusStr, "status", "", "Filter by status")
	cmd.Flags().StringVar(&fromStr, "from", "", "Filter by start date (YYYY-MM-DD, inclusive)")
	cmd.Flags().StringVar(&toStr, "to", "", "Filter by start date (YYYY-MM-DD, inclusive)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON")
	return cmd
}

func newLotCarryOversCommand(ctx *commandContext) *cobra.Command {
	var (
		processCode string
		productCode string
		jsonOut     bool
	)

	cmd := &cobra.Command{
		Use:   "carry-overs",
		Short: "List redeemable carry-overs for a process and product",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(func(manager *lot.Manager, _ *store.Store) error {
				carries, err := manager.AvailableCarryOvers(cmd.Context(), processCode, productCode)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, carries)
				}
				if len(carries) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No carry-overs available")
					return nil
				}
				rows := make([][]string, 0, len(carries))
				for _, carry := range carries {
					rows = append(rows, []string{
						fmt.Sprintf("%d", carry.ID),
						carry.SourceLotNo,
						fmt.Sprintf("%d", carry.Quantity),
						fmt.Sprintf("%d", carry.UsedQty),
						fmt.Sprintf("%d", carry.Remaining()),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Source Lot", "Qty", "Used", "Remaining"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignRight},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&processCode, "process", "", "Process code")
	cmd.Flags().StringVar(&productCode, "product", "", "Product code")
	_ = cmd.MarkFlagRequired("process")
	_ = cmd.MarkFlagRequired("product")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON")
	return cmd
}

func parseLotID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid lot id %q", arg)
	}
	return id, nil
}

// parseMaterialSpec accepts LOTNO:QTY[:CODE[:NAME]].
func parseMaterialSpec(spec string) (lot.MaterialInput, error) {
	parts := strings.SplitN(spec, ":", 4)
	if len(parts) < 2 {
		return lot.MaterialInput{}, fmt.Errorf("material must be LOTNO:QTY, got %q", spec)
	}
	material := lot.MaterialInput{LotNo: strings.TrimSpace(parts[0])}
	if material.LotNo == "" {
		return material, fmt.Errorf("invalid material spec %q", spec)
	}
	qty, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || qty <= 0 {
		return material, fmt.Errorf("invalid material quantity in %q", spec)
	}
	material.Quantity = qty
	if len(parts) > 2 {
		material.MaterialCode = strings.ToUpper(strings.TrimSpace(parts[2]))
	}
	if len(parts) > 3 {
		material.MaterialName = strings.TrimSpace(parts[3])
	}
	return material, nil
}

// parseClaimSpec accepts ID:QTY.
func parseClaimSpec(spec string) (*lot.CarryOverClaim, error) {
	idStr, qtyStr, ok := strings.Cut(spec, ":")
	if !ok {
		return nil, fmt.Errorf("carry-over claim must be ID:QTY, got %q", spec)
	}
	id, err := strconv.ParseInt(strings.TrimSpace(idStr), 10, 64)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("invalid carry-over id in %q", spec)
	}
	qty, err := strconv.Atoi(strings.TrimSpace(qtyStr))
	if err != nil || qty <= 0 {
		return nil, fmt.Errorf("invalid carry-over quantity in %q", spec)
	}
	return &lot.CarryOverClaim{CarryOverID: id, Quantity: qty}, nil
}

func parseDateFlag(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation("2006-01-02", value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", value)
	}
	return t, nil
}
