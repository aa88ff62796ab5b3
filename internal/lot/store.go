package lot

import (
	"context"
	"time"
)

// CarryOverClaim requests consumption of a banked quantity when a lot starts.
type CarryOverClaim struct {
	CarryOverID int64
	Quantity    int
}

// Filter narrows lot list queries. Zero fields are ignored.
type Filter struct {
	ProcessCode string
	Status      Status
	From        time.Time
	To          time.Time
}

// Store is the durable persistence contract the Manager depends on. Reads
// return nil without error when the record does not exist; the Manager maps
// that to ErrNotFound. Compound writes are atomic: no reader may observe the
// lot updated but its carry-over stale, or vice versa.
type Store interface {
	// CreateLot inserts the lot and its materials, and, when claim is
	// non-nil, applies the carry-over consumption in the same transaction.
	CreateLot(ctx context.Context, production *ProductionLot, claim *CarryOverClaim) error

	LotByID(ctx context.Context, id int64) (*ProductionLot, error)
	LotByNumber(ctx context.Context, lotNumber string) (*ProductionLot, error)
	ListLots(ctx context.Context, filter Filter) ([]*ProductionLot, error)

	// FinalizeLot persists a completion: the lot row update, retargeting of
	// any carry-over that pointed at previousLotNumber, and the optional new
	// carry-over record, all in one transaction.
	FinalizeLot(ctx context.Context, production *ProductionLot, previousLotNumber string, carry *CarryOver) error

	// ReleaseLot cancels a lot, rolling back any consumed carry-over in the
	// same transaction. When hard is true the row is removed, otherwise its
	// status becomes CANCELLED.
	ReleaseLot(ctx context.Context, production *ProductionLot, hard bool) error

	UpdateLotStatus(ctx context.Context, id int64, status Status) error

	MaterialsForLot(ctx context.Context, lotID int64) ([]Material, error)

	CarryOverByID(ctx context.Context, id int64) (*CarryOver, error)
	AvailableCarryOvers(ctx context.Context, processCode, productCode string) ([]*CarryOver, error)
}
