package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"lottrace/internal/config"
	"lottrace/internal/lineage"
)

func newTraceCommand(ctx *commandContext) *cobra.Command {
	traceCmd := &cobra.Command{
		Use:   "trace",
		Short: "Walk lot lineage",
	}

	traceCmd.AddCommand(newTraceDirectionCommand(ctx, lineage.DirectionForward,
		"forward <material-lot>", "Trace where a material batch ended up"))
	traceCmd.AddCommand(newTraceDirectionCommand(ctx, lineage.DirectionBackward,
		"backward <lot-number>", "Trace what went into a production lot"))

	return traceCmd
}

func newTraceDirectionCommand(ctx *commandContext, direction lineage.Direction, use, short string) *cobra.Command {
	var (
		depth   int
		summary bool
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWalker(func(walker *lineage.Walker, cfg *config.Config) error {
				maxDepth := depth
				if maxDepth <= 0 {
					maxDepth = cfg.Trace.MaxDepth
				}

				var (
					trace *lineage.Trace
					err   error
				)
				if direction == lineage.DirectionForward {
					trace, err = walker.TraceForward(cmd.Context(), args[0], maxDepth)
				} else {
					trace, err = walker.TraceBackward(cmd.Context(), args[0], maxDepth)
				}
				if err != nil {
					return err
				}

				if jsonOut {
					return writeJSON(cmd, trace)
				}

				out := cmd.OutOrStdout()
				if summary {
					s := lineage.Summarize(trace)
					fmt.Fprintf(out, "Direction: %s\n", trace.Direction)
					fmt.Fprintf(out, "Nodes: %d (max depth %d)\n", trace.TotalNodes, trace.MaxDepth)
					fmt.Fprintf(out, "Production lots: %d\n", len(s.ProductionLots))
					fmt.Fprintf(out, "Material lots: %d\n", len(s.MaterialLots))
					return nil
				}

				printTraceTree(cmd, trace)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&depth, "depth", 0, "Maximum walk depth (default from config)")
	cmd.Flags().BoolVar(&summary, "summary", false, "Print aggregates instead of the tree")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON")
	return cmd
}

func printTraceTree(cmd *cobra.Command, trace *lineage.Trace) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Direction: %s, %d nodes\n", trace.Direction, trace.TotalNodes)
	var render func(node *lineage.Node)
	render = func(node *lineage.Node) {
		indent := strings.Repeat("  ", node.Depth)
		label := node.Identifier
		if node.ProcessCode != "" {
			label += " [" + node.ProcessCode + "]"
		}
		if node.Status != "" {
			label += " (" + node.Status + ")"
		}
		if node.Quantity > 0 {
			label += fmt.Sprintf(" x%d", node.Quantity)
		}
		fmt.Fprintf(out, "%s%s\n", indent, label)
		for _, child := range node.Children {
			render(child)
		}
	}
	if trace.Root != nil {
		render(trace.Root)
	}
}
