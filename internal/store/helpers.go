package store

import (
	"database/sql"
	"errors"
	"time"

	"lottrace/internal/lot"
)

const lotColumns = "id, lot_number, process_code, status, product_code, worker, planned_qty, completed_qty, defect_qty, carry_over_in, carry_over_out, carry_over_id, started_at, completed_at, parent_lot_id"

func scanLot(scanner interface{ Scan(dest ...any) error }) (*lot.ProductionLot, error) {
	var (
		id           int64
		lotNumber    string
		processCode  string
		statusStr    string
		productCode  string
		worker       sql.NullString
		plannedQty   int64
		completedQty int64
		defectQty    int64
		carryIn      int64
		carryOut     int64
		carryID      sql.NullInt64
		startedRaw   sql.NullString
		completedRaw sql.NullString
		parentID     sql.NullInt64
	)

	if err := scanner.Scan(
		&id,
		&lotNumber,
		&processCode,
		&statusStr,
		&productCode,
		&worker,
		&plannedQty,
		&completedQty,
		&defectQty,
		&carryIn,
		&carryOut,
		&carryID,
		&startedRaw,
		&completedRaw,
		&parentID,
	); err != nil {
		return nil, err
	}

	production := &lot.ProductionLot{
		ID:           id,
		LotNumber:    lotNumber,
		ProcessCode:  processCode,
		Status:       lot.Status(statusStr),
		ProductCode:  productCode,
		Worker:       worker.String,
		PlannedQty:   int(plannedQty),
		CompletedQty: int(completedQty),
		DefectQty:    int(defectQty),
		CarryOverIn:  int(carryIn),
		CarryOverOut: int(carryOut),
	}
	if started, err := parseTimeString(startedRaw.String); err == nil {
		production.StartedAt = started
	}
	if completedRaw.Valid {
		if completed, err := parseTimeString(completedRaw.String); err == nil {
			production.CompletedAt = &completed
		}
	}
	if carryID.Valid {
		v := carryID.Int64
		production.CarryOverID = &v
	}
	if parentID.Valid {
		v := parentID.Int64
		production.ParentLotID = &v
	}
	return production, nil
}

const carryOverColumns = "id, process_code, product_code, source_lot_no, quantity, used_qty, target_lot_no, is_used, created_at"

func scanCarryOver(scanner interface{ Scan(dest ...any) error }) (*lot.CarryOver, error) {
	var (
		id          int64
		processCode string
		productCode string
		sourceLotNo string
		quantity    int64
		usedQty     int64
		targetLotNo sql.NullString
		isUsed      sql.NullInt64
		createdRaw  sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&processCode,
		&productCode,
		&sourceLotNo,
		&quantity,
		&usedQty,
		&targetLotNo,
		&isUsed,
		&createdRaw,
	); err != nil {
		return nil, err
	}

	carry := &lot.CarryOver{
		ID:          id,
		ProcessCode: processCode,
		ProductCode: productCode,
		SourceLotNo: sourceLotNo,
		Quantity:    int(quantity),
		UsedQty:     int(usedQty),
		TargetLotNo: targetLotNo.String,
		IsUsed:      isUsed.Int64 != 0,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		carry.CreatedAt = created
	}
	return carry, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func nullableInt64(value *int64) any {
	if value == nil {
		return nil
	}
	return *value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func formatTime(value time.Time) string {
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
