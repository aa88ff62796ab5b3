package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"lottrace/internal/sequence"
	"lottrace/internal/store"
)

func newSeqCommand(ctx *commandContext) *cobra.Command {
	seqCmd := &cobra.Command{
		Use:   "seq",
		Short: "Sequence counter administration",
	}

	seqCmd.AddCommand(newSeqNextCommand(ctx))
	seqCmd.AddCommand(newSeqShowCommand(ctx))
	seqCmd.AddCommand(newSeqResetCommand(ctx))

	return seqCmd
}

func newSeqNextCommand(ctx *commandContext) *cobra.Command {
	var (
		dateStr string
		width   int
	)

	cmd := &cobra.Command{
		Use:   "next <key-part>...",
		Short: "Allocate the next value for a counter key",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parts := append([]string(nil), args...)
			if dateStr != "" {
				day, err := parseDateFlag(dateStr)
				if err != nil {
					return err
				}
				parts = append(parts, sequence.DateKey(day))
			}
			key := sequence.Key(parts...)

			return ctx.withStore(func(st *store.Store) error {
				allocator := sequence.New(st)
				value, err := allocator.Next(cmd.Context(), key)
				if err != nil {
					return err
				}
				if width > 0 {
					formatted, err := sequence.Format(value, width)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", key, formatted)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s -> %d\n", key, value)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&dateStr, "date", time.Now().Format("2006-01-02"), "Date appended to the key (YYYY-MM-DD)")
	cmd.Flags().IntVar(&width, "width", 0, "Zero-pad the value to this width")
	return cmd
}

func newSeqShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "List every counter and its current value",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				counters, err := sequence.New(st).List(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, counters)
				}
				if len(counters) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No counters allocated")
					return nil
				}
				keys := make([]string, 0, len(counters))
				for key := range counters {
					keys = append(keys, key)
				}
				sort.Strings(keys)
				rows := make([][]string, 0, len(keys))
				for _, key := range keys {
					rows = append(rows, []string{key, fmt.Sprintf("%d", counters[key])})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Key", "Value"},
					rows,
					[]columnAlignment{alignLeft, alignRight},
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON")
	return cmd
}

func newSeqResetCommand(ctx *commandContext) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "reset [key]",
		Short: "Reset one counter, or every counter with --all",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) == 1) {
				return fmt.Errorf("provide exactly one of a key or --all")
			}
			return ctx.withStore(func(st *store.Store) error {
				allocator := sequence.New(st)
				if all {
					if err := allocator.ResetAll(cmd.Context()); err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), "Reset all counters")
					return nil
				}
				key := strings.TrimSpace(args[0])
				if err := allocator.Reset(cmd.Context(), key); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reset counter %s\n", key)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Reset every counter")
	return cmd
}
