package lineage

import (
	"context"
	"fmt"

	"lottrace/internal/identifier"
	"lottrace/internal/lot"
)

// DefaultMaxDepth bounds walks when the caller does not choose a depth.
const DefaultMaxDepth = 10

// NodeType tags tree nodes.
type NodeType string

const (
	NodeProductionLot NodeType = "PRODUCTION_LOT"
	NodeMaterialLot   NodeType = "MATERIAL_LOT"
)

// StatusNotFound is the root status when nothing in the store matches the
// starting identifier. Missing lineage is routine (foreign materials, old
// labels), so it is data, not an error.
const StatusNotFound = "NOT_FOUND"

// Direction distinguishes the two walks.
type Direction string

const (
	DirectionForward  Direction = "forward"
	DirectionBackward Direction = "backward"
)

// Node is one tree entry.
type Node struct {
	Identifier  string
	Type        NodeType
	ProcessCode string
	ProductCode string
	Quantity    int
	Status      string
	Depth       int
	Children    []*Node
}

// Trace is a completed walk with its aggregates.
type Trace struct {
	Direction  Direction
	Root       *Node
	TotalNodes int
	MaxDepth   int
}

// Reader is the read-only store surface the walker needs. Result ordering
// must be stable for a fixed store snapshot.
type Reader interface {
	LotByID(ctx context.Context, id int64) (*lot.ProductionLot, error)
	LotByNumber(ctx context.Context, lotNumber string) (*lot.ProductionLot, error)
	MaterialsForLot(ctx context.Context, lotID int64) ([]lot.Material, error)
	// MaterialUses returns every lot-material edge consuming the given
	// material identifier.
	MaterialUses(ctx context.Context, materialLotNo string) ([]lot.Material, error)
	LotsByParent(ctx context.Context, parentID int64) ([]*lot.ProductionLot, error)
}

// Walker builds bounded-depth lineage trees.
type Walker struct {
	reader Reader
}

// NewWalker constructs a walker over the given reader.
func NewWalker(reader Reader) *Walker {
	return &Walker{reader: reader}
}

type walk struct {
	ctx      context.Context
	reader   Reader
	maxDepth int
	visited  map[int64]struct{}
	total    int
	deepest  int
}

func (w *walk) node(n *Node) *Node {
	w.total++
	if n.Depth > w.deepest {
		w.deepest = n.Depth
	}
	return n
}

// TraceForward walks from a material identifier to every descendant lot.
// maxDepth <= 0 selects DefaultMaxDepth; no returned node exceeds it.
func (w *Walker) TraceForward(ctx context.Context, materialLotNo string, maxDepth int) (*Trace, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	normalized := identifier.Normalize(materialLotNo)
	run := &walk{ctx: ctx, reader: w.reader, maxDepth: maxDepth, visited: make(map[int64]struct{})}

	root := run.node(&Node{Identifier: normalized, Type: NodeMaterialLot})

	edges, err := w.reader.MaterialUses(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("material uses for %q: %w", normalized, err)
	}
	if len(edges) == 0 {
		root.Status = StatusNotFound
		return run.trace(DirectionForward, root), nil
	}
	root.Quantity = edges[0].Quantity

	for _, edge := range edges {
		child, err := run.descend(edge.LotID, 1)
		if err != nil {
			return nil, err
		}
		if child != nil {
			root.Children = append(root.Children, child)
		}
	}
	return run.trace(DirectionForward, root), nil
}

// descend builds the forward subtree rooted at a consuming lot.
func (r *walk) descend(lotID int64, depth int) (*Node, error) {
	if depth > r.maxDepth {
		return nil, nil
	}
	if _, seen := r.visited[lotID]; seen {
		return nil, nil
	}
	r.visited[lotID] = struct{}{}

	production, err := r.reader.LotByID(r.ctx, lotID)
	if err != nil {
		return nil, fmt.Errorf("load lot %d: %w", lotID, err)
	}
	if production == nil {
		return nil, nil
	}

	node := r.node(lotNode(production, depth))
	if depth == r.maxDepth {
		return node, nil
	}

	// Descendants arrive two ways: lots that consumed this lot's output as
	// a material, and child lots linked through the parent reference.
	edges, err := r.reader.MaterialUses(r.ctx, production.LotNumber)
	if err != nil {
		return nil, fmt.Errorf("material uses for %q: %w", production.LotNumber, err)
	}
	for _, edge := range edges {
		child, err := r.descend(edge.LotID, depth+1)
		if err != nil {
			return nil, err
		}
		if child != nil {
			node.Children = append(node.Children, child)
		}
	}

	children, err := r.reader.LotsByParent(r.ctx, production.ID)
	if err != nil {
		return nil, fmt.Errorf("child lots of %d: %w", production.ID, err)
	}
	for _, child := range children {
		childNode, err := r.descend(child.ID, depth+1)
		if err != nil {
			return nil, err
		}
		if childNode != nil {
			node.Children = append(node.Children, childNode)
		}
	}
	return node, nil
}

// TraceBackward walks from a lot identifier to its materials and ancestor
// lots. maxDepth <= 0 selects DefaultMaxDepth.
func (w *Walker) TraceBackward(ctx context.Context, lotNumber string, maxDepth int) (*Trace, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	normalized := identifier.Normalize(lotNumber)
	run := &walk{ctx: ctx, reader: w.reader, maxDepth: maxDepth, visited: make(map[int64]struct{})}

	production, err := w.reader.LotByNumber(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("load lot %q: %w", normalized, err)
	}
	if production == nil {
		root := run.node(&Node{Identifier: normalized, Type: NodeProductionLot, Status: StatusNotFound})
		return run.trace(DirectionBackward, root), nil
	}

	root, err := run.ascend(production, 0)
	if err != nil {
		return nil, err
	}
	return run.trace(DirectionBackward, root), nil
}

// ascend builds the backward subtree for a lot: its consumed materials as
// leaves, then the parent lot chain.
func (r *walk) ascend(production *lot.ProductionLot, depth int) (*Node, error) {
	r.visited[production.ID] = struct{}{}
	node := r.node(lotNode(production, depth))
	if depth >= r.maxDepth {
		return node, nil
	}

	materials, err := r.reader.MaterialsForLot(r.ctx, production.ID)
	if err != nil {
		return nil, fmt.Errorf("materials for lot %d: %w", production.ID, err)
	}
	for _, material := range materials {
		decoded := identifier.Decode(material.MaterialLotNo)
		node.Children = append(node.Children, r.node(&Node{
			Identifier:  material.MaterialLotNo,
			Type:        NodeMaterialLot,
			ProcessCode: decoded.ProcessCode,
			ProductCode: material.MaterialCode,
			Quantity:    material.Quantity,
			Depth:       depth + 1,
		}))
	}

	if production.ParentLotID != nil && depth+1 <= r.maxDepth {
		if _, seen := r.visited[*production.ParentLotID]; !seen {
			parent, err := r.reader.LotByID(r.ctx, *production.ParentLotID)
			if err != nil {
				return nil, fmt.Errorf("load parent lot %d: %w", *production.ParentLotID, err)
			}
			if parent != nil {
				parentNode, err := r.ascend(parent, depth+1)
				if err != nil {
					return nil, err
				}
				node.Children = append(node.Children, parentNode)
			}
		}
	}
	return node, nil
}

func (r *walk) trace(direction Direction, root *Node) *Trace {
	return &Trace{Direction: direction, Root: root, TotalNodes: r.total, MaxDepth: r.deepest}
}

func lotNode(production *lot.ProductionLot, depth int) *Node {
	quantity := production.CompletedQty
	if quantity == 0 {
		quantity = production.PlannedQty
	}
	return &Node{
		Identifier:  production.LotNumber,
		Type:        NodeProductionLot,
		ProcessCode: production.ProcessCode,
		ProductCode: production.ProductCode,
		Quantity:    quantity,
		Status:      string(production.Status),
		Depth:       depth,
	}
}
