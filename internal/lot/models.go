package lot

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a production lot.
type Status string

const (
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
	// StatusConsumed marks a completed lot whose output has since been
	// fully used downstream. Set by collaborators, never by the Manager's
	// own transitions.
	StatusConsumed Status = "CONSUMED"
)

// TempPrefix marks lot numbers that have not yet been finalized.
const TempPrefix = "TMP-"

var allStatuses = []Status{
	StatusInProgress,
	StatusCompleted,
	StatusCancelled,
	StatusConsumed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToUpper(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// ProductionLot is one traceable batch moving through a process.
type ProductionLot struct {
	ID           int64
	LotNumber    string
	ProcessCode  string
	Status       Status
	ProductCode  string
	Worker       string
	PlannedQty   int
	CompletedQty int
	DefectQty    int
	CarryOverIn  int
	CarryOverOut int
	// CarryOverID records which carry-over the lot claimed its
	// CarryOverIn from, so a cancel returns the quantity to that exact
	// row even after other lots have claimed from it too.
	CarryOverID *int64
	StartedAt   time.Time
	CompletedAt *time.Time
	ParentLotID *int64
	Materials   []Material
}

// IsTemporary reports whether the lot still carries a placeholder number.
func (l ProductionLot) IsTemporary() bool {
	return strings.HasPrefix(l.LotNumber, TempPrefix)
}

// Material is an edge from a lot to a consumed material or semi-product batch.
type Material struct {
	ID            int64
	LotID         int64
	MaterialLotNo string
	Quantity      int
	MaterialCode  string
	MaterialName  string
}

// CarryOver is unconsumed output of a completed lot, banked for a later lot
// of the same process and product.
type CarryOver struct {
	ID          int64
	ProcessCode string
	ProductCode string
	SourceLotNo string
	Quantity    int
	UsedQty     int
	TargetLotNo string
	IsUsed      bool
	CreatedAt   time.Time
}

// Remaining returns the quantity still redeemable from the carry-over.
func (c CarryOver) Remaining() int {
	if c.Quantity < c.UsedQty {
		return 0
	}
	return c.Quantity - c.UsedQty
}
