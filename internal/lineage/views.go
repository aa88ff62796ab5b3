package lineage

// Flatten returns the trace's nodes in discovery (pre-order) order.
func Flatten(trace *Trace) []*Node {
	if trace == nil || trace.Root == nil {
		return nil
	}
	var nodes []*Node
	var visit func(node *Node)
	visit = func(node *Node) {
		nodes = append(nodes, node)
		for _, child := range node.Children {
			visit(child)
		}
	}
	visit(trace.Root)
	return nodes
}

// Summary splits a trace into its production and material nodes for
// reporting collaborators.
type Summary struct {
	ProductionLots []*Node
	MaterialLots   []*Node
}

// Summarize partitions a trace's nodes by type, preserving discovery order.
func Summarize(trace *Trace) Summary {
	var summary Summary
	for _, node := range Flatten(trace) {
		switch node.Type {
		case NodeProductionLot:
			summary.ProductionLots = append(summary.ProductionLots, node)
		case NodeMaterialLot:
			summary.MaterialLots = append(summary.MaterialLots, node)
		}
	}
	return summary
}
