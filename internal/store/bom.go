package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"lottrace/internal/bom"
)

// ReplaceBOM swaps the full line set for a product in one transaction.
func (s *Store) ReplaceBOM(ctx context.Context, productCode string, lines []bom.Line) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM bom_lines WHERE product_code = ?`, productCode); err != nil {
			return fmt.Errorf("clear bom for %s: %w", productCode, err)
		}
		for i := range lines {
			line := &lines[i]
			res, err := tx.ExecContext(ctx, `
                INSERT INTO bom_lines (product_code, material_code, material_name, qty_per, unit)
                VALUES (?, ?, ?, ?, ?)`,
				productCode,
				line.MaterialCode,
				nullableString(line.MaterialName),
				line.QtyPer.String(),
				nullableString(line.Unit),
			)
			if err != nil {
				return fmt.Errorf("insert bom line %s/%s: %w", productCode, line.MaterialCode, err)
			}
			if id, err := res.LastInsertId(); err == nil {
				line.ID = id
			}
		}
		return nil
	})
}

// BOMLines returns the lines for a product in insertion order. qty_per is
// stored as decimal text so quantities survive round trips exactly.
func (s *Store) BOMLines(ctx context.Context, productCode string) ([]bom.Line, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, product_code, material_code, material_name, qty_per, unit FROM bom_lines WHERE product_code = ? ORDER BY id`,
		productCode,
	)
	if err != nil {
		return nil, fmt.Errorf("query bom for %s: %w", productCode, err)
	}
	defer rows.Close()

	var lines []bom.Line
	for rows.Next() {
		var (
			line         bom.Line
			materialName sql.NullString
			qtyPerRaw    string
			unit         sql.NullString
		)
		if err := rows.Scan(&line.ID, &line.ProductCode, &line.MaterialCode, &materialName, &qtyPerRaw, &unit); err != nil {
			return nil, fmt.Errorf("scan bom line: %w", err)
		}
		line.MaterialName = materialName.String
		line.Unit = unit.String
		qtyPer, err := decimal.NewFromString(qtyPerRaw)
		if err != nil {
			return nil, fmt.Errorf("parse qty_per %q: %w", qtyPerRaw, err)
		}
		line.QtyPer = qtyPer
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bom lines: %w", err)
	}
	return lines, nil
}
