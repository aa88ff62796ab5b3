package lot_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"lottrace/internal/identifier"
	"lottrace/internal/lot"
	"lottrace/internal/sequence"
	"lottrace/internal/store"
	"lottrace/internal/testsupport"
)

func newTestManager(t *testing.T) (*lot.Manager, *store.Store) {
	t.Helper()
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return lot.NewManager(st, sequence.New(st), logger), st
}

func startLot(t *testing.T, manager *lot.Manager) *lot.ProductionLot {
	t.Helper()
	production, err := manager.Start(context.Background(), lot.StartInput{
		ProcessCode: "CA",
		ProductCode: "P001",
		PlannedQty:  100,
		Materials:   []lot.MaterialInput{{LotNo: "PABCQ100S99", Quantity: 100}},
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	return production
}

func TestStartMintsTemporaryNumber(t *testing.T) {
	manager, _ := newTestManager(t)
	production := startLot(t, manager)

	if !production.IsTemporary() {
		t.Fatalf("expected temporary lot number, got %q", production.LotNumber)
	}
	if !strings.HasPrefix(production.LotNumber, lot.TempPrefix+"CA-") {
		t.Fatalf("unexpected temporary number %q", production.LotNumber)
	}
	if production.Status != lot.StatusInProgress {
		t.Fatalf("expected IN_PROGRESS, got %s", production.Status)
	}
	if len(production.Materials) != 1 || production.Materials[0].MaterialLotNo != "PABCQ100S99" {
		t.Fatalf("unexpected materials %+v", production.Materials)
	}
}

func TestStartWithoutMaterials(t *testing.T) {
	// A lot opened ahead of its material scans carries no inputs yet.
	manager, _ := newTestManager(t)
	production, err := manager.Start(context.Background(), lot.StartInput{
		ProcessCode: "CA",
		ProductCode: "P001",
		PlannedQty:  100,
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if production.Status != lot.StatusInProgress {
		t.Fatalf("expected IN_PROGRESS, got %s", production.Status)
	}
	if !production.IsTemporary() {
		t.Fatalf("expected temporary lot number, got %q", production.LotNumber)
	}
	if len(production.Materials) != 0 {
		t.Fatalf("unexpected materials %+v", production.Materials)
	}
}

func TestStartKeepsProvidedLotNumber(t *testing.T) {
	manager, _ := newTestManager(t)
	production, err := manager.Start(context.Background(), lot.StartInput{
		ProcessCode: "CA",
		ProductCode: "P001",
		PlannedQty:  50,
		LotNumber:   "ca-251223-0001",
		Materials:   []lot.MaterialInput{{LotNo: "PABCQ100S99", Quantity: 50}},
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if production.LotNumber != "CA-251223-0001" {
		t.Fatalf("expected normalized label number, got %q", production.LotNumber)
	}
	if production.IsTemporary() {
		t.Fatal("label numbers are not temporary")
	}
}

func TestStartValidation(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		input   lot.StartInput
		wantErr error
	}{
		{name: "unknown process", wantErr: lot.ErrValidation, input: lot.StartInput{
			ProcessCode: "ZZ", ProductCode: "P001", PlannedQty: 10,
			Materials: []lot.MaterialInput{{LotNo: "M1", Quantity: 10}},
		}},
		{name: "missing product", wantErr: lot.ErrInput, input: lot.StartInput{
			ProcessCode: "CA", PlannedQty: 10,
			Materials: []lot.MaterialInput{{LotNo: "M1", Quantity: 10}},
		}},
		{name: "non-positive quantity", wantErr: lot.ErrInput, input: lot.StartInput{
			ProcessCode: "CA", ProductCode: "P001", PlannedQty: 0,
			Materials: []lot.MaterialInput{{LotNo: "M1", Quantity: 10}},
		}},
		{name: "material quantity zero", wantErr: lot.ErrInput, input: lot.StartInput{
			ProcessCode: "CA", ProductCode: "P001", PlannedQty: 10,
			Materials: []lot.MaterialInput{{LotNo: "M1", Quantity: 0}},
		}},
		{name: "routing rejects semi product", wantErr: lot.ErrValidation, input: lot.StartInput{
			ProcessCode: "CA", ProductCode: "P001", PlannedQty: 10,
			Materials: []lot.MaterialInput{{LotNo: "CA-251223-0001", Quantity: 10}},
		}},
		{name: "missing parent", wantErr: lot.ErrNotFound, input: lot.StartInput{
			ProcessCode: "CA", ProductCode: "P001", PlannedQty: 10,
			ParentLotID: ptr(int64(9999)),
			Materials:   []lot.MaterialInput{{LotNo: "M1", Quantity: 10}},
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := manager.Start(ctx, tc.input); !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func ptr[T any](v T) *T { return &v }

func TestCompleteMintsFinalIdentifier(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()
	production := startLot(t, manager)

	completed, err := manager.Complete(ctx, production.ID, lot.CompleteInput{CompletedQty: 95, DefectQty: 5})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if completed.Status != lot.StatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", completed.Status)
	}
	if completed.IsTemporary() {
		t.Fatalf("final number must replace the temporary one, got %q", completed.LotNumber)
	}
	if completed.CompletedAt == nil {
		t.Fatal("completed timestamp missing")
	}

	id := identifier.Decode(completed.LotNumber)
	if !id.Valid || id.Kind != identifier.KindCompletion {
		t.Fatalf("final number must decode as a completion identifier, got %+v", id)
	}
	if id.ProcessCode != "CA" || id.ProductCode != "P001" || id.Quantity != 95 {
		t.Fatalf("final number encodes wrong fields: %+v", id)
	}

	// The record must be reachable under its final number.
	byNumber, err := manager.GetByNumber(ctx, completed.LotNumber)
	if err != nil {
		t.Fatalf("GetByNumber: %v", err)
	}
	if byNumber.ID != production.ID {
		t.Fatalf("final number resolves to lot %d, want %d", byNumber.ID, production.ID)
	}
}

func TestCompleteKeepsLabelNumber(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()
	production, err := manager.Start(ctx, lot.StartInput{
		ProcessCode: "CA", ProductCode: "P001", PlannedQty: 50,
		LotNumber: "CA-251223-0001",
		Materials: []lot.MaterialInput{{LotNo: "PABCQ100S99", Quantity: 50}},
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	completed, err := manager.Complete(ctx, production.ID, lot.CompleteInput{CompletedQty: 50})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if completed.LotNumber != "CA-251223-0001" {
		t.Fatalf("label number must survive completion, got %q", completed.LotNumber)
	}
}

func TestCompleteIsTerminal(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()
	production := startLot(t, manager)

	if _, err := manager.Complete(ctx, production.ID, lot.CompleteInput{CompletedQty: 95, DefectQty: 5}); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if _, err := manager.Complete(ctx, production.ID, lot.CompleteInput{CompletedQty: 1}); !errors.Is(err, lot.ErrLifecycle) {
		t.Fatalf("expected ErrLifecycle on double completion, got %v", err)
	}
	if err := manager.Cancel(ctx, production.ID, false); !errors.Is(err, lot.ErrLifecycle) {
		t.Fatalf("expected ErrLifecycle on cancelling completed lot, got %v", err)
	}
}

func TestCompleteInputGuards(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()
	production := startLot(t, manager)

	if _, err := manager.Complete(ctx, 9999, lot.CompleteInput{CompletedQty: 10}); !errors.Is(err, lot.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown lot, got %v", err)
	}
	if _, err := manager.Complete(ctx, production.ID, lot.CompleteInput{CompletedQty: 0}); !errors.Is(err, lot.ErrInput) {
		t.Fatalf("expected ErrInput for zero quantity, got %v", err)
	}
	if _, err := manager.Complete(ctx, production.ID, lot.CompleteInput{CompletedQty: 10, DefectQty: -1}); !errors.Is(err, lot.ErrInput) {
		t.Fatalf("expected ErrInput for negative defects, got %v", err)
	}
	if _, err := manager.Complete(ctx, production.ID, lot.CompleteInput{
		CompletedQty: 10, CreateCarryOver: true, CarryOverQty: 11,
	}); !errors.Is(err, lot.ErrInput) {
		t.Fatalf("expected ErrInput for oversized carry-over, got %v", err)
	}
}

func TestCarryOverLifecycle(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	// First lot banks 20 units.
	first := startLot(t, manager)
	if _, err := manager.Complete(ctx, first.ID, lot.CompleteInput{
		CompletedQty: 100, CreateCarryOver: true, CarryOverQty: 20,
	}); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	carries, err := manager.AvailableCarryOvers(ctx, "CA", "P001")
	if err != nil {
		t.Fatalf("AvailableCarryOvers: %v", err)
	}
	if len(carries) != 1 || carries[0].Remaining() != 20 {
		t.Fatalf("expected one carry-over with 20 remaining, got %+v", carries)
	}
	carryID := carries[0].ID

	// Claim more than remaining fails.
	if _, err := manager.Start(ctx, lot.StartInput{
		ProcessCode: "CA", ProductCode: "P001", PlannedQty: 30,
		CarryOver: &lot.CarryOverClaim{CarryOverID: carryID, Quantity: 25},
	}); !errors.Is(err, lot.ErrValidation) {
		t.Fatalf("expected ErrValidation for over-claim, got %v", err)
	}

	// Claim against the wrong product fails.
	if _, err := manager.Start(ctx, lot.StartInput{
		ProcessCode: "CA", ProductCode: "OTHER", PlannedQty: 30,
		CarryOver: &lot.CarryOverClaim{CarryOverID: carryID, Quantity: 10},
	}); !errors.Is(err, lot.ErrValidation) {
		t.Fatalf("expected ErrValidation for product mismatch, got %v", err)
	}

	// A valid claim consumes from the bank.
	second, err := manager.Start(ctx, lot.StartInput{
		ProcessCode: "CA", ProductCode: "P001", PlannedQty: 30,
		CarryOver: &lot.CarryOverClaim{CarryOverID: carryID, Quantity: 15},
	})
	if err != nil {
		t.Fatalf("Start with claim: %v", err)
	}
	if second.CarryOverIn != 15 {
		t.Fatalf("expected carry-over in 15, got %d", second.CarryOverIn)
	}

	carries, err = manager.AvailableCarryOvers(ctx, "CA", "P001")
	if err != nil {
		t.Fatalf("AvailableCarryOvers: %v", err)
	}
	if len(carries) != 1 || carries[0].Remaining() != 5 {
		t.Fatalf("expected 5 remaining after claim, got %+v", carries)
	}

	// Cancelling the claiming lot restores the bank.
	if err := manager.Cancel(ctx, second.ID, true); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	carries, err = manager.AvailableCarryOvers(ctx, "CA", "P001")
	if err != nil {
		t.Fatalf("AvailableCarryOvers: %v", err)
	}
	if len(carries) != 1 || carries[0].Remaining() != 20 {
		t.Fatalf("expected rollback to 20 remaining, got %+v", carries)
	}
}

func TestCancelAfterSecondClaimRestoresOwnShare(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	source := startLot(t, manager)
	if _, err := manager.Complete(ctx, source.ID, lot.CompleteInput{
		CompletedQty: 100, CreateCarryOver: true, CarryOverQty: 20,
	}); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	carries, err := manager.AvailableCarryOvers(ctx, "CA", "P001")
	if err != nil {
		t.Fatalf("AvailableCarryOvers: %v", err)
	}
	carryID := carries[0].ID

	// Two lots claim from the same carry-over in turn.
	first, err := manager.Start(ctx, lot.StartInput{
		ProcessCode: "CA", ProductCode: "P001", PlannedQty: 30,
		CarryOver: &lot.CarryOverClaim{CarryOverID: carryID, Quantity: 10},
	})
	if err != nil {
		t.Fatalf("Start first claimant: %v", err)
	}
	if _, err := manager.Start(ctx, lot.StartInput{
		ProcessCode: "CA", ProductCode: "P001", PlannedQty: 30,
		CarryOver: &lot.CarryOverClaim{CarryOverID: carryID, Quantity: 5},
	}); err != nil {
		t.Fatalf("Start second claimant: %v", err)
	}
	carries, err = manager.AvailableCarryOvers(ctx, "CA", "P001")
	if err != nil {
		t.Fatalf("AvailableCarryOvers: %v", err)
	}
	if len(carries) != 1 || carries[0].Remaining() != 5 {
		t.Fatalf("expected 5 remaining after both claims, got %+v", carries)
	}

	// Cancelling the first claimant returns exactly its 10 units, even
	// though the carry-over last pointed at the second claimant.
	if err := manager.Cancel(ctx, first.ID, false); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	carries, err = manager.AvailableCarryOvers(ctx, "CA", "P001")
	if err != nil {
		t.Fatalf("AvailableCarryOvers: %v", err)
	}
	if len(carries) != 1 || carries[0].Remaining() != 15 {
		t.Fatalf("expected 15 remaining after rollback, got %+v", carries)
	}
	if carries[0].TargetLotNo == "" {
		t.Fatal("second claimant's target must survive the rollback")
	}
}

func TestCarryOverRetargetedToFinalNumber(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	first := startLot(t, manager)
	if _, err := manager.Complete(ctx, first.ID, lot.CompleteInput{
		CompletedQty: 100, CreateCarryOver: true, CarryOverQty: 20,
	}); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	carries, err := manager.AvailableCarryOvers(ctx, "CA", "P001")
	if err != nil {
		t.Fatalf("AvailableCarryOvers: %v", err)
	}
	carryID := carries[0].ID

	// The claiming lot starts under a temporary number and finishes under
	// its minted one; the carry-over record must follow the rename.
	second, err := manager.Start(ctx, lot.StartInput{
		ProcessCode: "CA", ProductCode: "P001", PlannedQty: 30,
		CarryOver: &lot.CarryOverClaim{CarryOverID: carryID, Quantity: 15},
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	completed, err := manager.Complete(ctx, second.ID, lot.CompleteInput{CompletedQty: 30})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	carry, err := manager.AvailableCarryOvers(ctx, "CA", "P001")
	if err != nil {
		t.Fatalf("AvailableCarryOvers: %v", err)
	}
	if len(carry) != 1 {
		t.Fatalf("expected one carry-over, got %+v", carry)
	}
	if carry[0].TargetLotNo != completed.LotNumber {
		t.Fatalf("carry-over targets %q, want %q", carry[0].TargetLotNo, completed.LotNumber)
	}
}

func TestCancelSoftAndHard(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	soft := startLot(t, manager)
	if err := manager.Cancel(ctx, soft.ID, false); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	after, err := manager.Get(ctx, soft.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if after.Status != lot.StatusCancelled {
		t.Fatalf("expected CANCELLED, got %s", after.Status)
	}

	hard := startLot(t, manager)
	if err := manager.Cancel(ctx, hard.ID, true); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if _, err := manager.Get(ctx, hard.ID); !errors.Is(err, lot.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after hard delete, got %v", err)
	}
}

func TestMarkConsumed(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()
	production := startLot(t, manager)

	if err := manager.MarkConsumed(ctx, production.ID); !errors.Is(err, lot.ErrLifecycle) {
		t.Fatalf("expected ErrLifecycle for in-progress lot, got %v", err)
	}
	if _, err := manager.Complete(ctx, production.ID, lot.CompleteInput{CompletedQty: 100}); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if err := manager.MarkConsumed(ctx, production.ID); err != nil {
		t.Fatalf("MarkConsumed: %v", err)
	}
	after, err := manager.Get(ctx, production.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if after.Status != lot.StatusConsumed {
		t.Fatalf("expected CONSUMED, got %s", after.Status)
	}
}

func TestGetByNumberNormalizes(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()
	production, err := manager.Start(ctx, lot.StartInput{
		ProcessCode: "CA", ProductCode: "P001", PlannedQty: 10,
		LotNumber: "CA-251223-0001",
		Materials: []lot.MaterialInput{{LotNo: "M1", Quantity: 10}},
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	found, err := manager.GetByNumber(ctx, "ca_251223_0001")
	if err != nil {
		t.Fatalf("GetByNumber: %v", err)
	}
	if found.ID != production.ID {
		t.Fatalf("resolved lot %d, want %d", found.ID, production.ID)
	}

	if _, err := manager.GetByNumber(ctx, "CA-999999-9999"); !errors.Is(err, lot.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
