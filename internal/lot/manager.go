package lot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"lottrace/internal/identifier"
	"lottrace/internal/process"
	"lottrace/internal/sequence"
)

// Manager owns lot state transitions and carry-over bookkeeping.
type Manager struct {
	store     Store
	sequences *sequence.Allocator
	logger    *slog.Logger
	now       func() time.Time
}

// NewManager wires the lifecycle manager to its store and sequence allocator.
func NewManager(store Store, sequences *sequence.Allocator, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:     store,
		sequences: sequences,
		logger:    logger,
		now:       time.Now,
	}
}

// MaterialInput describes one batch consumed by a new lot.
type MaterialInput struct {
	LotNo        string
	Quantity     int
	MaterialCode string
	MaterialName string
}

// StartInput carries everything needed to open a lot.
type StartInput struct {
	ProcessCode string
	ProductCode string
	Worker      string
	PlannedQty  int
	// LotNumber optionally supplies a pre-printed label identifier. When
	// empty a temporary number is minted and replaced at completion.
	LotNumber   string
	ParentLotID *int64
	Materials   []MaterialInput
	CarryOver   *CarryOverClaim
}

// CompleteInput carries the results of a finished run.
type CompleteInput struct {
	CompletedQty    int
	DefectQty       int
	CreateCarryOver bool
	CarryOverQty    int
}

// Start creates a lot in IN_PROGRESS. Material inputs are routing-validated,
// and a carry-over claim is consumed atomically with the lot insert.
func (m *Manager) Start(ctx context.Context, input StartInput) (*ProductionLot, error) {
	processCode := strings.ToUpper(strings.TrimSpace(input.ProcessCode))
	if !process.Known(processCode) {
		return nil, Wrap(ErrValidation, "start", fmt.Sprintf("unknown process code %q", input.ProcessCode), nil)
	}
	productCode := strings.ToUpper(strings.TrimSpace(input.ProductCode))
	if productCode == "" {
		return nil, Wrap(ErrInput, "start", "product code is required", nil)
	}
	if input.PlannedQty <= 0 {
		return nil, Wrap(ErrInput, "start", fmt.Sprintf("planned quantity must be positive, got %d", input.PlannedQty), nil)
	}
	if len(input.Materials) > 0 {
		if err := m.validateMaterials(processCode, input.Materials); err != nil {
			return nil, err
		}
	}

	if input.ParentLotID != nil {
		parent, err := m.store.LotByID(ctx, *input.ParentLotID)
		if err != nil {
			return nil, Wrap(ErrStore, "start", "load parent lot", err)
		}
		if parent == nil {
			return nil, Wrap(ErrNotFound, "start", fmt.Sprintf("parent lot %d does not exist", *input.ParentLotID), nil)
		}
	}

	claim, carryIn, err := m.checkCarryOverClaim(ctx, processCode, productCode, input.CarryOver)
	if err != nil {
		return nil, err
	}

	lotNumber := strings.ToUpper(strings.TrimSpace(input.LotNumber))
	if lotNumber == "" {
		lotNumber = tempLotNumber(processCode)
	}

	production := &ProductionLot{
		LotNumber:   lotNumber,
		ProcessCode: processCode,
		Status:      StatusInProgress,
		ProductCode: productCode,
		Worker:      strings.TrimSpace(input.Worker),
		PlannedQty:  input.PlannedQty,
		CarryOverIn: carryIn,
		StartedAt:   m.now().UTC(),
		ParentLotID: input.ParentLotID,
	}
	for _, material := range input.Materials {
		production.Materials = append(production.Materials, Material{
			MaterialLotNo: identifier.Normalize(material.LotNo),
			Quantity:      material.Quantity,
			MaterialCode:  material.MaterialCode,
			MaterialName:  material.MaterialName,
		})
	}

	if err := m.store.CreateLot(ctx, production, claim); err != nil {
		return nil, Wrap(ErrStore, "start", "create lot", err)
	}

	m.logger.Info("lot started",
		slog.String("lot", production.LotNumber),
		slog.String("process", processCode),
		slog.String("product", productCode),
		slog.Int("planned_qty", input.PlannedQty),
		slog.Int("carry_over_in", carryIn))
	return production, nil
}

// Complete finishes an in-progress lot: the final identifier is minted here
// because it encodes the completed quantity, which is unknowable earlier.
func (m *Manager) Complete(ctx context.Context, lotID int64, input CompleteInput) (*ProductionLot, error) {
	production, err := m.mustGet(ctx, lotID, "complete")
	if err != nil {
		return nil, err
	}
	if production.Status != StatusInProgress {
		return nil, Wrap(ErrLifecycle, "complete",
			fmt.Sprintf("only in-progress lots can be completed (lot %s is %s)", production.LotNumber, production.Status), nil)
	}
	if input.CompletedQty <= 0 {
		return nil, Wrap(ErrInput, "complete", fmt.Sprintf("completed quantity must be positive, got %d", input.CompletedQty), nil)
	}
	if input.DefectQty < 0 {
		return nil, Wrap(ErrInput, "complete", fmt.Sprintf("defect quantity must not be negative, got %d", input.DefectQty), nil)
	}
	if input.CreateCarryOver && (input.CarryOverQty < 0 || input.CarryOverQty > input.CompletedQty) {
		return nil, Wrap(ErrInput, "complete",
			fmt.Sprintf("carry-over quantity %d outside 0..%d", input.CarryOverQty, input.CompletedQty), nil)
	}

	now := m.now().UTC()
	previousLotNumber := production.LotNumber

	if production.IsTemporary() {
		key := sequence.Key(production.ProcessCode, "completion", sequence.DateKey(now))
		seq, err := m.sequences.Next(ctx, key)
		if err != nil {
			return nil, Wrap(ErrStore, "complete", "allocate sequence", err)
		}
		finalNumber, err := identifier.EncodeCompletion(production.ProcessCode, production.ProductCode, input.CompletedQty, now, int(seq))
		if err != nil {
			return nil, Wrap(ErrInput, "complete", "encode completion identifier", err)
		}
		production.LotNumber = finalNumber
	}

	production.Status = StatusCompleted
	production.CompletedQty = input.CompletedQty
	production.DefectQty = input.DefectQty
	production.CompletedAt = &now

	var carry *CarryOver
	if input.CreateCarryOver && input.CarryOverQty > 0 {
		production.CarryOverOut = input.CarryOverQty
		carry = &CarryOver{
			ProcessCode: production.ProcessCode,
			ProductCode: production.ProductCode,
			SourceLotNo: production.LotNumber,
			Quantity:    input.CarryOverQty,
			CreatedAt:   now,
		}
	}

	if err := m.store.FinalizeLot(ctx, production, previousLotNumber, carry); err != nil {
		return nil, Wrap(ErrStore, "complete", "finalize lot", err)
	}

	m.logger.Info("lot completed",
		slog.String("lot", production.LotNumber),
		slog.String("process", production.ProcessCode),
		slog.Int("completed_qty", input.CompletedQty),
		slog.Int("defect_qty", input.DefectQty),
		slog.Int("carry_over_out", production.CarryOverOut))
	return production, nil
}

// Cancel deletes or soft-cancels an in-progress lot, rolling back any
// carry-over the lot consumed at start.
func (m *Manager) Cancel(ctx context.Context, lotID int64, hardDelete bool) error {
	production, err := m.mustGet(ctx, lotID, "cancel")
	if err != nil {
		return err
	}
	if production.Status != StatusInProgress {
		return Wrap(ErrLifecycle, "cancel",
			fmt.Sprintf("only in-progress lots can be deleted (lot %s is %s)", production.LotNumber, production.Status), nil)
	}
	if err := m.store.ReleaseLot(ctx, production, hardDelete); err != nil {
		return Wrap(ErrStore, "cancel", "release lot", err)
	}
	m.logger.Info("lot cancelled",
		slog.String("lot", production.LotNumber),
		slog.Bool("hard_delete", hardDelete),
		slog.Int("carry_over_rolled_back", production.CarryOverIn))
	return nil
}

// MarkConsumed records that a completed lot's output has been fully used
// downstream. Collaborator-driven; not part of the lifecycle state machine.
func (m *Manager) MarkConsumed(ctx context.Context, lotID int64) error {
	production, err := m.mustGet(ctx, lotID, "mark consumed")
	if err != nil {
		return err
	}
	if production.Status != StatusCompleted {
		return Wrap(ErrLifecycle, "mark consumed",
			fmt.Sprintf("only completed lots can be marked consumed (lot %s is %s)", production.LotNumber, production.Status), nil)
	}
	if err := m.store.UpdateLotStatus(ctx, lotID, StatusConsumed); err != nil {
		return Wrap(ErrStore, "mark consumed", "update status", err)
	}
	return nil
}

// Get returns a lot by id.
func (m *Manager) Get(ctx context.Context, lotID int64) (*ProductionLot, error) {
	return m.mustGet(ctx, lotID, "get")
}

// GetByNumber returns a lot by its identifier text.
func (m *Manager) GetByNumber(ctx context.Context, lotNumber string) (*ProductionLot, error) {
	production, err := m.store.LotByNumber(ctx, identifier.Normalize(lotNumber))
	if err != nil {
		return nil, Wrap(ErrStore, "get", "load lot", err)
	}
	if production == nil {
		return nil, Wrap(ErrNotFound, "get", fmt.Sprintf("lot %q does not exist", lotNumber), nil)
	}
	return production, nil
}

// ByProcess lists lots for one process.
func (m *Manager) ByProcess(ctx context.Context, processCode string) ([]*ProductionLot, error) {
	return m.store.ListLots(ctx, Filter{ProcessCode: strings.ToUpper(strings.TrimSpace(processCode))})
}

// ByStatus lists lots in one status.
func (m *Manager) ByStatus(ctx context.Context, status Status) ([]*ProductionLot, error) {
	return m.store.ListLots(ctx, Filter{Status: status})
}

// InProgress lists every open lot.
func (m *Manager) InProgress(ctx context.Context) ([]*ProductionLot, error) {
	return m.store.ListLots(ctx, Filter{Status: StatusInProgress})
}

// ByDateRange lists lots started inside [from, to].
func (m *Manager) ByDateRange(ctx context.Context, from, to time.Time) ([]*ProductionLot, error) {
	return m.store.ListLots(ctx, Filter{From: from, To: to})
}

// AvailableCarryOvers lists redeemable carry-overs for a process/product.
func (m *Manager) AvailableCarryOvers(ctx context.Context, processCode, productCode string) ([]*CarryOver, error) {
	return m.store.AvailableCarryOvers(ctx,
		strings.ToUpper(strings.TrimSpace(processCode)),
		strings.ToUpper(strings.TrimSpace(productCode)))
}

func (m *Manager) mustGet(ctx context.Context, lotID int64, operation string) (*ProductionLot, error) {
	production, err := m.store.LotByID(ctx, lotID)
	if err != nil {
		return nil, Wrap(ErrStore, operation, "load lot", err)
	}
	if production == nil {
		return nil, Wrap(ErrNotFound, operation, fmt.Sprintf("lot %d does not exist", lotID), nil)
	}
	return production, nil
}

func (m *Manager) validateMaterials(processCode string, materials []MaterialInput) error {
	inputs := make([]process.Input, 0, len(materials))
	for _, material := range materials {
		if material.Quantity <= 0 {
			return Wrap(ErrInput, "start",
				fmt.Sprintf("material %s quantity must be positive, got %d", material.LotNo, material.Quantity), nil)
		}
		decoded := identifier.Decode(material.LotNo)
		input := process.Input{
			LotNo:    decoded.Normalized,
			Category: identifier.InferCategory(decoded),
		}
		if input.Category == process.CategorySemiProduct {
			input.SourceProcess = decoded.ProcessCode
		}
		inputs = append(inputs, input)
	}

	result := process.Validate(processCode, inputs)
	for _, warning := range result.Warnings {
		m.logger.Warn("routing warning",
			slog.String("process", processCode),
			slog.String("code", warning.Code),
			slog.String("lot", warning.LotNo),
			slog.String("message", warning.Message))
	}
	if !result.Valid {
		messages := make([]string, 0, len(result.Errors))
		for _, issue := range result.Errors {
			messages = append(messages, fmt.Sprintf("%s: %s", issue.Code, issue.Message))
		}
		return Wrap(ErrValidation, "start", strings.Join(messages, "; "), nil)
	}
	return nil
}

func (m *Manager) checkCarryOverClaim(ctx context.Context, processCode, productCode string, claim *CarryOverClaim) (*CarryOverClaim, int, error) {
	if claim == nil {
		return nil, 0, nil
	}
	if claim.Quantity <= 0 {
		return nil, 0, Wrap(ErrInput, "start", fmt.Sprintf("carry-over quantity must be positive, got %d", claim.Quantity), nil)
	}
	carry, err := m.store.CarryOverByID(ctx, claim.CarryOverID)
	if err != nil {
		return nil, 0, Wrap(ErrStore, "start", "load carry-over", err)
	}
	if carry == nil {
		return nil, 0, Wrap(ErrNotFound, "start", fmt.Sprintf("carry-over %d does not exist", claim.CarryOverID), nil)
	}
	if carry.ProcessCode != processCode || carry.ProductCode != productCode {
		return nil, 0, Wrap(ErrValidation, "start",
			fmt.Sprintf("carry-over %d belongs to %s/%s, not %s/%s",
				carry.ID, carry.ProcessCode, carry.ProductCode, processCode, productCode), nil)
	}
	if claim.Quantity > carry.Remaining() {
		return nil, 0, Wrap(ErrValidation, "start",
			fmt.Sprintf("carry-over %d has %d remaining, requested %d", carry.ID, carry.Remaining(), claim.Quantity), nil)
	}
	return claim, claim.Quantity, nil
}

func tempLotNumber(processCode string) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
	return fmt.Sprintf("%s%s-%s", TempPrefix, processCode, suffix)
}
