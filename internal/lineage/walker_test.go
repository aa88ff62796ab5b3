package lineage_test

import (
	"context"
	"testing"

	"lottrace/internal/lineage"
	"lottrace/internal/lot"
	"lottrace/internal/store"
	"lottrace/internal/testsupport"
)

// buildChain persists material -> crimping -> machine crimping -> soldering.
func buildChain(t *testing.T, st *store.Store) (first, second, third *lot.ProductionLot) {
	t.Helper()
	first = testsupport.NewLot(t, st, &lot.ProductionLot{
		LotNumber:   "CA-251223-0001",
		ProcessCode: "CA",
		ProductCode: "P001",
		Status:      lot.StatusCompleted,
		PlannedQty:  100,
		CompletedQty: 100,
		Materials: []lot.Material{
			{MaterialLotNo: "PABCQ100S99", Quantity: 100, MaterialCode: "ABC"},
		},
	})
	second = testsupport.NewLot(t, st, &lot.ProductionLot{
		LotNumber:    "MC-251224-0001",
		ProcessCode:  "MC",
		ProductCode:  "P001",
		Status:       lot.StatusCompleted,
		PlannedQty:   90,
		CompletedQty: 90,
		Materials: []lot.Material{
			{MaterialLotNo: "CA-251223-0001", Quantity: 100},
		},
	})
	third = testsupport.NewLot(t, st, &lot.ProductionLot{
		LotNumber:   "MS-251225-0001",
		ProcessCode: "MS",
		ProductCode: "P001",
		Status:      lot.StatusInProgress,
		PlannedQty:  80,
		Materials: []lot.Material{
			{MaterialLotNo: "MC-251224-0001", Quantity: 90},
		},
	})
	return first, second, third
}

func TestTraceForwardFollowsConsumption(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	buildChain(t, st)
	walker := lineage.NewWalker(st)

	trace, err := walker.TraceForward(context.Background(), "PABCQ100S99", 0)
	if err != nil {
		t.Fatalf("TraceForward: %v", err)
	}
	if trace.Direction != lineage.DirectionForward {
		t.Fatalf("unexpected direction %s", trace.Direction)
	}
	if trace.TotalNodes != 4 {
		t.Fatalf("expected 4 nodes, got %d", trace.TotalNodes)
	}

	root := trace.Root
	if root.Type != lineage.NodeMaterialLot || root.Identifier != "PABCQ100S99" {
		t.Fatalf("unexpected root %+v", root)
	}
	if len(root.Children) != 1 || root.Children[0].Identifier != "CA-251223-0001" {
		t.Fatalf("unexpected first hop %+v", root.Children)
	}
	hop := root.Children[0]
	if len(hop.Children) != 1 || hop.Children[0].Identifier != "MC-251224-0001" {
		t.Fatalf("unexpected second hop %+v", hop.Children)
	}
	leaf := hop.Children[0].Children
	if len(leaf) != 1 || leaf[0].Identifier != "MS-251225-0001" {
		t.Fatalf("unexpected third hop %+v", leaf)
	}
	if leaf[0].Depth != 3 || trace.MaxDepth != 3 {
		t.Fatalf("unexpected depths: leaf %d, trace %d", leaf[0].Depth, trace.MaxDepth)
	}
}

func TestTraceForwardRespectsDepthBound(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	buildChain(t, st)
	walker := lineage.NewWalker(st)

	trace, err := walker.TraceForward(context.Background(), "PABCQ100S99", 2)
	if err != nil {
		t.Fatalf("TraceForward: %v", err)
	}
	if trace.MaxDepth != 2 {
		t.Fatalf("expected walk cut at depth 2, got %d", trace.MaxDepth)
	}
	if trace.TotalNodes != 3 {
		t.Fatalf("expected 3 nodes, got %d", trace.TotalNodes)
	}
}

func TestTraceForwardUnknownMaterial(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	walker := lineage.NewWalker(st)

	trace, err := walker.TraceForward(context.Background(), "NO-SUCH-LOT", 0)
	if err != nil {
		t.Fatalf("TraceForward: %v", err)
	}
	if trace.Root.Status != lineage.StatusNotFound {
		t.Fatalf("expected NOT_FOUND root, got %+v", trace.Root)
	}
	if trace.TotalNodes != 1 {
		t.Fatalf("expected single node, got %d", trace.TotalNodes)
	}
}

func TestTraceForwardSurvivesCycles(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	// Two lots that reference each other's numbers as materials. Bad data,
	// but the walk must still terminate.
	testsupport.NewLot(t, st, &lot.ProductionLot{
		LotNumber: "CA-251223-0001", ProcessCode: "CA", ProductCode: "P001",
		PlannedQty: 10,
		Materials:  []lot.Material{{MaterialLotNo: "MC-251224-0001", Quantity: 10}},
	})
	testsupport.NewLot(t, st, &lot.ProductionLot{
		LotNumber: "MC-251224-0001", ProcessCode: "MC", ProductCode: "P001",
		PlannedQty: 10,
		Materials:  []lot.Material{{MaterialLotNo: "CA-251223-0001", Quantity: 10}},
	})

	walker := lineage.NewWalker(st)
	trace, err := walker.TraceForward(context.Background(), "CA-251223-0001", 0)
	if err != nil {
		t.Fatalf("TraceForward: %v", err)
	}
	if trace.TotalNodes != 3 {
		t.Fatalf("expected each lot visited once, got %d nodes", trace.TotalNodes)
	}
}

func TestTraceBackwardListsMaterialsAndParents(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	_, second, _ := buildChain(t, st)

	// A split lot hanging off the machine crimping run.
	testsupport.NewLot(t, st, &lot.ProductionLot{
		LotNumber: "MC-251224-0002", ProcessCode: "MC", ProductCode: "P001",
		PlannedQty:  30,
		ParentLotID: &second.ID,
		Materials:   []lot.Material{{MaterialLotNo: "PXYZQ50S11", Quantity: 30}},
	})

	walker := lineage.NewWalker(st)
	trace, err := walker.TraceBackward(context.Background(), "MC-251224-0002", 0)
	if err != nil {
		t.Fatalf("TraceBackward: %v", err)
	}
	root := trace.Root
	if root.Identifier != "MC-251224-0002" || root.Type != lineage.NodeProductionLot {
		t.Fatalf("unexpected root %+v", root)
	}
	if len(root.Children) != 2 {
		t.Fatalf("expected material leaf plus parent, got %+v", root.Children)
	}

	material := root.Children[0]
	if material.Type != lineage.NodeMaterialLot || material.Identifier != "PXYZQ50S11" {
		t.Fatalf("unexpected material leaf %+v", material)
	}

	parent := root.Children[1]
	if parent.Identifier != "MC-251224-0001" || parent.Type != lineage.NodeProductionLot {
		t.Fatalf("unexpected parent node %+v", parent)
	}
	// The parent's own materials continue the ancestry.
	if len(parent.Children) != 1 || parent.Children[0].Identifier != "CA-251223-0001" {
		t.Fatalf("unexpected grandparent materials %+v", parent.Children)
	}
}

func TestTraceBackwardUnknownLot(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	walker := lineage.NewWalker(st)

	trace, err := walker.TraceBackward(context.Background(), "CA-999999-9999", 0)
	if err != nil {
		t.Fatalf("TraceBackward: %v", err)
	}
	if trace.Root.Status != lineage.StatusNotFound {
		t.Fatalf("expected NOT_FOUND root, got %+v", trace.Root)
	}
}

func TestFlattenAndSummarize(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	buildChain(t, st)
	walker := lineage.NewWalker(st)

	trace, err := walker.TraceForward(context.Background(), "PABCQ100S99", 0)
	if err != nil {
		t.Fatalf("TraceForward: %v", err)
	}

	flat := lineage.Flatten(trace)
	if len(flat) != trace.TotalNodes {
		t.Fatalf("flatten returned %d nodes, trace has %d", len(flat), trace.TotalNodes)
	}
	if flat[0].Identifier != "PABCQ100S99" {
		t.Fatalf("flatten must be pre-order, got %q first", flat[0].Identifier)
	}

	summary := lineage.Summarize(trace)
	if len(summary.MaterialLots) != 1 || len(summary.ProductionLots) != 3 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}
