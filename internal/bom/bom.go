package bom

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrCycle marks a BOM whose product graph loops.
var ErrCycle = errors.New("bom cycle detected")

// Line is one bill-of-materials entry for a product.
type Line struct {
	ID           int64
	ProductCode  string
	MaterialCode string
	MaterialName string
	QtyPer       decimal.Decimal
	Unit         string
}

// Requirement is a gross material requirement for a planned quantity.
type Requirement struct {
	MaterialCode string
	MaterialName string
	Quantity     decimal.Decimal
	Unit         string
}

// Store is the persistence surface for BOM lines.
type Store interface {
	ReplaceBOM(ctx context.Context, productCode string, lines []Line) error
	BOMLines(ctx context.Context, productCode string) ([]Line, error)
}

// Calculator explodes BOMs into gross requirements.
type Calculator struct {
	store Store
}

// NewCalculator constructs a calculator over the given store.
func NewCalculator(store Store) *Calculator {
	return &Calculator{store: store}
}

// Requirements explodes productCode for a planned lot quantity. Lines whose
// material code has its own BOM are exploded recursively; leaf requirements
// for the same material are merged.
func (c *Calculator) Requirements(ctx context.Context, productCode string, lotQty int) ([]Requirement, error) {
	if lotQty <= 0 {
		return nil, fmt.Errorf("lot quantity must be positive, got %d", lotQty)
	}
	product := strings.ToUpper(strings.TrimSpace(productCode))

	totals := make(map[string]*Requirement)
	var order []string
	visiting := make(map[string]struct{})

	var explode func(code string, multiplier decimal.Decimal) error
	explode = func(code string, multiplier decimal.Decimal) error {
		if _, active := visiting[code]; active {
			return fmt.Errorf("%w: product %s reaches itself", ErrCycle, code)
		}
		visiting[code] = struct{}{}
		defer delete(visiting, code)

		lines, err := c.store.BOMLines(ctx, code)
		if err != nil {
			return fmt.Errorf("bom lines for %s: %w", code, err)
		}
		for _, line := range lines {
			required := line.QtyPer.Mul(multiplier)

			subLines, err := c.store.BOMLines(ctx, line.MaterialCode)
			if err != nil {
				return fmt.Errorf("bom lines for %s: %w", line.MaterialCode, err)
			}
			if len(subLines) > 0 {
				if err := explode(line.MaterialCode, required); err != nil {
					return err
				}
				continue
			}

			if existing, ok := totals[line.MaterialCode]; ok {
				existing.Quantity = existing.Quantity.Add(required)
				continue
			}
			totals[line.MaterialCode] = &Requirement{
				MaterialCode: line.MaterialCode,
				MaterialName: line.MaterialName,
				Quantity:     required,
				Unit:         line.Unit,
			}
			order = append(order, line.MaterialCode)
		}
		return nil
	}

	if err := explode(product, decimal.NewFromInt(int64(lotQty))); err != nil {
		return nil, err
	}

	requirements := make([]Requirement, 0, len(order))
	for _, code := range order {
		requirements = append(requirements, *totals[code])
	}
	return requirements, nil
}

// Normalize uppercases codes and rejects non-positive per-unit quantities
// before lines are stored.
func Normalize(lines []Line) ([]Line, error) {
	normalized := make([]Line, 0, len(lines))
	for _, line := range lines {
		line.ProductCode = strings.ToUpper(strings.TrimSpace(line.ProductCode))
		line.MaterialCode = strings.ToUpper(strings.TrimSpace(line.MaterialCode))
		if line.ProductCode == "" || line.MaterialCode == "" {
			return nil, errors.New("bom line requires product and material codes")
		}
		if !line.QtyPer.IsPositive() {
			return nil, fmt.Errorf("bom line %s/%s quantity per unit must be positive", line.ProductCode, line.MaterialCode)
		}
		normalized = append(normalized, line)
	}
	return normalized, nil
}
