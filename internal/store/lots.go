package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"lottrace/internal/lot"
)

// CreateLot inserts the lot and its materials, applying the carry-over claim
// in the same transaction when present.
func (s *Store) CreateLot(ctx context.Context, production *lot.ProductionLot, claim *lot.CarryOverClaim) error {
	if production == nil {
		return errors.New("production lot is required")
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if claim != nil {
			id := claim.CarryOverID
			production.CarryOverID = &id
		}
		res, err := tx.ExecContext(ctx, `
            INSERT INTO production_lots (lot_number, process_code, status, product_code, worker, planned_qty, completed_qty, defect_qty, carry_over_in, carry_over_out, carry_over_id, started_at, completed_at, parent_lot_id)
            VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			production.LotNumber,
			production.ProcessCode,
			string(production.Status),
			production.ProductCode,
			nullableString(production.Worker),
			production.PlannedQty,
			production.CompletedQty,
			production.DefectQty,
			production.CarryOverIn,
			production.CarryOverOut,
			nullableInt64(production.CarryOverID),
			formatTime(production.StartedAt),
			nullableTime(production.CompletedAt),
			nullableInt64(production.ParentLotID),
		)
		if err != nil {
			return fmt.Errorf("insert lot %s: %w", production.LotNumber, err)
		}
		lotID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("read lot id: %w", err)
		}
		production.ID = lotID

		for i := range production.Materials {
			material := &production.Materials[i]
			material.LotID = lotID
			res, err := tx.ExecContext(ctx, `
                INSERT INTO lot_materials (lot_id, material_lot_no, quantity, material_code, material_name)
                VALUES (?, ?, ?, ?, ?)`,
				lotID,
				material.MaterialLotNo,
				material.Quantity,
				nullableString(material.MaterialCode),
				nullableString(material.MaterialName),
			)
			if err != nil {
				return fmt.Errorf("insert material %s: %w", material.MaterialLotNo, err)
			}
			if id, err := res.LastInsertId(); err == nil {
				material.ID = id
			}
		}

		if claim != nil {
			if err := consumeCarryOver(ctx, tx, claim, production.LotNumber); err != nil {
				return err
			}
		}
		return nil
	})
}

// consumeCarryOver books quantity against a carry-over row. The guard in the
// WHERE clause keeps used_qty from ever exceeding quantity, even under
// concurrent claims.
func consumeCarryOver(ctx context.Context, tx *sql.Tx, claim *lot.CarryOverClaim, targetLotNo string) error {
	res, err := tx.ExecContext(ctx, `
        UPDATE carry_overs
        SET used_qty = used_qty + ?,
            target_lot_no = ?,
            is_used = CASE WHEN used_qty + ? >= quantity THEN 1 ELSE 0 END
        WHERE id = ? AND used_qty + ? <= quantity`,
		claim.Quantity,
		targetLotNo,
		claim.Quantity,
		claim.CarryOverID,
		claim.Quantity,
	)
	if err != nil {
		return fmt.Errorf("consume carry-over %d: %w", claim.CarryOverID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check carry-over consumption: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("carry-over %d has insufficient remaining quantity for %d", claim.CarryOverID, claim.Quantity)
	}
	return nil
}

// LotByID fetches a lot with its materials. Returns nil when absent.
func (s *Store) LotByID(ctx context.Context, id int64) (*lot.ProductionLot, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+lotColumns+` FROM production_lots WHERE id = ?`, id)
	production, err := scanLot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query lot %d: %w", id, err)
	}
	if err := s.attachMaterials(ctx, production); err != nil {
		return nil, err
	}
	return production, nil
}

// LotByNumber fetches a lot by its lot number. Returns nil when absent.
func (s *Store) LotByNumber(ctx context.Context, lotNumber string) (*lot.ProductionLot, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+lotColumns+` FROM production_lots WHERE lot_number = ?`, lotNumber)
	production, err := scanLot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query lot %s: %w", lotNumber, err)
	}
	if err := s.attachMaterials(ctx, production); err != nil {
		return nil, err
	}
	return production, nil
}

func (s *Store) attachMaterials(ctx context.Context, production *lot.ProductionLot) error {
	materials, err := s.MaterialsForLot(ctx, production.ID)
	if err != nil {
		return err
	}
	production.Materials = materials
	return nil
}

// ListLots returns lots matching the filter, newest first. Materials are not
// attached.
func (s *Store) ListLots(ctx context.Context, filter lot.Filter) ([]*lot.ProductionLot, error) {
	ctx = ensureContext(ctx)

	var (
		conditions []string
		args       []any
	)
	if filter.ProcessCode != "" {
		conditions = append(conditions, "process_code = ?")
		args = append(args, filter.ProcessCode)
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(filter.Status))
	}
	if !filter.From.IsZero() {
		conditions = append(conditions, "started_at >= ?")
		args = append(args, formatTime(filter.From))
	}
	if !filter.To.IsZero() {
		conditions = append(conditions, "started_at < ?")
		args = append(args, formatTime(filter.To))
	}

	query := `SELECT ` + lotColumns + ` FROM production_lots`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY started_at DESC, id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list lots: %w", err)
	}
	defer rows.Close()

	var lots []*lot.ProductionLot
	for rows.Next() {
		production, err := scanLot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lot: %w", err)
		}
		lots = append(lots, production)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lots: %w", err)
	}
	return lots, nil
}

// FinalizeLot persists a completion atomically: the lot row, retargeting of
// any carry-over that pointed at the previous lot number, and the optional
// new carry-over record.
func (s *Store) FinalizeLot(ctx context.Context, production *lot.ProductionLot, previousLotNumber string, carry *lot.CarryOver) error {
	if production == nil {
		return errors.New("production lot is required")
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
            UPDATE production_lots
            SET lot_number = ?, status = ?, completed_qty = ?, defect_qty = ?, carry_over_out = ?, completed_at = ?
            WHERE id = ?`,
			production.LotNumber,
			string(production.Status),
			production.CompletedQty,
			production.DefectQty,
			production.CarryOverOut,
			nullableTime(production.CompletedAt),
			production.ID,
		)
		if err != nil {
			return fmt.Errorf("finalize lot %d: %w", production.ID, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("check lot finalize: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("lot %d not found", production.ID)
		}

		if previousLotNumber != "" && previousLotNumber != production.LotNumber {
			if _, err := tx.ExecContext(ctx,
				`UPDATE carry_overs SET target_lot_no = ? WHERE target_lot_no = ?`,
				production.LotNumber, previousLotNumber,
			); err != nil {
				return fmt.Errorf("retarget carry-overs from %s: %w", previousLotNumber, err)
			}
		}

		if carry != nil {
			if carry.CreatedAt.IsZero() {
				carry.CreatedAt = time.Now().UTC()
			}
			res, err := tx.ExecContext(ctx, `
                INSERT INTO carry_overs (process_code, product_code, source_lot_no, quantity, used_qty, target_lot_no, is_used, created_at)
                VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				carry.ProcessCode,
				carry.ProductCode,
				carry.SourceLotNo,
				carry.Quantity,
				carry.UsedQty,
				nullableString(carry.TargetLotNo),
				boolToInt(carry.IsUsed),
				formatTime(carry.CreatedAt),
			)
			if err != nil {
				return fmt.Errorf("insert carry-over for %s: %w", carry.SourceLotNo, err)
			}
			if id, err := res.LastInsertId(); err == nil {
				carry.ID = id
			}
		}
		return nil
	})
}

// ReleaseLot cancels a lot and rolls back its consumed carry-over, if any,
// in one transaction. Materials cascade when the row is removed.
func (s *Store) ReleaseLot(ctx context.Context, production *lot.ProductionLot, hard bool) error {
	if production == nil {
		return errors.New("production lot is required")
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		// The rollback targets the claimed row by id: target_lot_no only
		// records the latest claimant, so it cannot identify this lot's
		// claim once the carry-over has served another lot.
		if production.CarryOverID != nil && production.CarryOverIn > 0 {
			if _, err := tx.ExecContext(ctx, `
                UPDATE carry_overs
                SET used_qty = CASE WHEN used_qty >= ? THEN used_qty - ? ELSE 0 END,
                    target_lot_no = CASE WHEN target_lot_no = ? THEN NULL ELSE target_lot_no END,
                    is_used = 0
                WHERE id = ?`,
				production.CarryOverIn,
				production.CarryOverIn,
				production.LotNumber,
				*production.CarryOverID,
			); err != nil {
				return fmt.Errorf("roll back carry-over for %s: %w", production.LotNumber, err)
			}
		}

		if hard {
			if _, err := tx.ExecContext(ctx, `DELETE FROM production_lots WHERE id = ?`, production.ID); err != nil {
				return fmt.Errorf("delete lot %d: %w", production.ID, err)
			}
			return nil
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE production_lots SET status = ? WHERE id = ?`,
			string(lot.StatusCancelled), production.ID,
		); err != nil {
			return fmt.Errorf("cancel lot %d: %w", production.ID, err)
		}
		return nil
	})
}

// UpdateLotStatus sets the status column only.
func (s *Store) UpdateLotStatus(ctx context.Context, id int64, status lot.Status) error {
	res, err := s.execWithRetry(ctx, `UPDATE production_lots SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("update lot %d status: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check lot status update: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("lot %d not found", id)
	}
	return nil
}

// MaterialsForLot returns the material edges for a lot in insertion order.
func (s *Store) MaterialsForLot(ctx context.Context, lotID int64) ([]lot.Material, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, lot_id, material_lot_no, quantity, material_code, material_name FROM lot_materials WHERE lot_id = ? ORDER BY id`,
		lotID,
	)
	if err != nil {
		return nil, fmt.Errorf("query materials for lot %d: %w", lotID, err)
	}
	defer rows.Close()
	return collectMaterials(rows)
}

// MaterialUses returns every lot-material edge consuming the given material
// identifier, ordered by consuming lot.
func (s *Store) MaterialUses(ctx context.Context, materialLotNo string) ([]lot.Material, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, lot_id, material_lot_no, quantity, material_code, material_name FROM lot_materials WHERE material_lot_no = ? ORDER BY lot_id, id`,
		materialLotNo,
	)
	if err != nil {
		return nil, fmt.Errorf("query uses of material %s: %w", materialLotNo, err)
	}
	defer rows.Close()
	return collectMaterials(rows)
}

func collectMaterials(rows *sql.Rows) ([]lot.Material, error) {
	var materials []lot.Material
	for rows.Next() {
		var (
			material     lot.Material
			quantity     int64
			materialCode sql.NullString
			materialName sql.NullString
		)
		if err := rows.Scan(&material.ID, &material.LotID, &material.MaterialLotNo, &quantity, &materialCode, &materialName); err != nil {
			return nil, fmt.Errorf("scan material: %w", err)
		}
		material.Quantity = int(quantity)
		material.MaterialCode = materialCode.String
		material.MaterialName = materialName.String
		materials = append(materials, material)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate materials: %w", err)
	}
	return materials, nil
}

// LotsByParent returns direct children of a lot, oldest first.
func (s *Store) LotsByParent(ctx context.Context, parentID int64) ([]*lot.ProductionLot, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+lotColumns+` FROM production_lots WHERE parent_lot_id = ? ORDER BY id`,
		parentID,
	)
	if err != nil {
		return nil, fmt.Errorf("query children of lot %d: %w", parentID, err)
	}
	defer rows.Close()

	var lots []*lot.ProductionLot
	for rows.Next() {
		production, err := scanLot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lot: %w", err)
		}
		lots = append(lots, production)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lots: %w", err)
	}
	return lots, nil
}
