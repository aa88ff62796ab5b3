// Package bom computes gross material requirements from per-product bills
// of materials. Lines may reference other products that carry their own
// BOM, so explosion is multi-level with a cycle guard. Quantities per unit
// are decimals (cable cut lengths, adhesive grams); totals therefore stay
// decimal until the caller rounds for ordering.
package bom
