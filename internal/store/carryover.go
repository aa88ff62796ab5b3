package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"lottrace/internal/lot"
)

// CarryOverByID fetches one carry-over record. Returns nil when absent.
func (s *Store) CarryOverByID(ctx context.Context, id int64) (*lot.CarryOver, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+carryOverColumns+` FROM carry_overs WHERE id = ?`, id)
	carry, err := scanCarryOver(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query carry-over %d: %w", id, err)
	}
	return carry, nil
}

// AvailableCarryOvers returns carry-overs with remaining quantity for the
// given process and product, oldest first so banked stock drains in order.
func (s *Store) AvailableCarryOvers(ctx context.Context, processCode, productCode string) ([]*lot.CarryOver, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `
        SELECT `+carryOverColumns+` FROM carry_overs
        WHERE process_code = ? AND product_code = ? AND used_qty < quantity
        ORDER BY created_at, id`,
		processCode, productCode,
	)
	if err != nil {
		return nil, fmt.Errorf("query carry-overs for %s/%s: %w", processCode, productCode, err)
	}
	defer rows.Close()

	var carries []*lot.CarryOver
	for rows.Next() {
		carry, err := scanCarryOver(rows)
		if err != nil {
			return nil, fmt.Errorf("scan carry-over: %w", err)
		}
		carries = append(carries, carry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate carry-overs: %w", err)
	}
	return carries, nil
}
