package process

import "strings"

// Category classifies what kind of batch an input is.
type Category string

const (
	CategoryMaterial    Category = "material"
	CategorySemiProduct Category = "semi_product"
	CategoryProduction  Category = "production"
)

// unknownRank sorts unknown process codes after every catalog entry.
const unknownRank = 99

// Definition describes one plant process.
type Definition struct {
	Code      string
	ShortCode string
	Name      string
	Rank      int

	// InputCategories is the set of batch categories the process accepts.
	InputCategories []Category

	// Predecessors lists the processes allowed to feed this one with
	// semi-products. Empty means no predecessor constraint applies.
	Predecessors []string
}

// catalog is the authoritative routing table for the ten plant processes.
// Order matters: ranks follow slice position.
var catalog = []Definition{
	{Code: "MO", ShortCode: "M", Name: "Material Issue", Rank: 1,
		InputCategories: []Category{CategoryMaterial}},
	{Code: "CA", ShortCode: "C", Name: "Crimping", Rank: 2,
		InputCategories: []Category{CategoryMaterial}},
	{Code: "MC", ShortCode: "K", Name: "Machine Crimping", Rank: 3,
		InputCategories: []Category{CategoryMaterial, CategorySemiProduct},
		Predecessors:    []string{"MO", "CA"}},
	{Code: "MS", ShortCode: "S", Name: "Manual Soldering", Rank: 4,
		InputCategories: []Category{CategoryMaterial, CategorySemiProduct},
		Predecessors:    []string{"MO", "CA", "MC"}},
	{Code: "SB", ShortCode: "B", Name: "Sub Assembly", Rank: 5,
		InputCategories: []Category{CategoryMaterial, CategorySemiProduct},
		Predecessors:    []string{"CA", "MC", "MS"}},
	{Code: "HS", ShortCode: "H", Name: "Heat Shrink", Rank: 6,
		InputCategories: []Category{CategorySemiProduct},
		Predecessors:    []string{"CA", "MC", "MS", "SB"}},
	{Code: "SP", ShortCode: "P", Name: "Semi-Product Prep", Rank: 7,
		InputCategories: []Category{CategoryMaterial, CategorySemiProduct},
		Predecessors:    []string{"SB", "HS"}},
	{Code: "PA", ShortCode: "A", Name: "Final Assembly", Rank: 8,
		InputCategories: []Category{CategoryMaterial, CategorySemiProduct}},
	{Code: "CI", ShortCode: "I", Name: "Circuit Inspection", Rank: 9,
		InputCategories: []Category{CategorySemiProduct, CategoryProduction}},
	{Code: "VI", ShortCode: "V", Name: "Visual Inspection", Rank: 10,
		InputCategories: []Category{CategorySemiProduct, CategoryProduction}},
}

var (
	byCode      = make(map[string]Definition, len(catalog))
	byShortCode = make(map[string]Definition, len(catalog))
)

func init() {
	for _, def := range catalog {
		byCode[def.Code] = def
		byShortCode[def.ShortCode] = def
	}
}

// All returns the catalog in routing order.
func All() []Definition {
	cp := make([]Definition, len(catalog))
	copy(cp, catalog)
	return cp
}

// Lookup resolves a two-letter process code.
func Lookup(code string) (Definition, bool) {
	def, ok := byCode[normalize(code)]
	return def, ok
}

// LookupShort resolves a one-letter short code to its process definition.
func LookupShort(short string) (Definition, bool) {
	def, ok := byShortCode[normalize(short)]
	return def, ok
}

// Known reports whether code names a catalog process.
func Known(code string) bool {
	_, ok := byCode[normalize(code)]
	return ok
}

// IsInspection reports whether code is one of the inspection processes.
func IsInspection(code string) bool {
	switch normalize(code) {
	case "CI", "VI":
		return true
	default:
		return false
	}
}

// Rank returns the routing-order rank for a process code. Unknown codes
// rank after every known process.
func Rank(code string) int {
	if def, ok := byCode[normalize(code)]; ok {
		return def.Rank
	}
	return unknownRank
}

// DisplayName returns the human name for a process code, or the normalized
// code itself when unknown.
func DisplayName(code string) string {
	normalized := normalize(code)
	if def, ok := byCode[normalized]; ok {
		return def.Name
	}
	return normalized
}

// AcceptsCategory reports whether the definition admits the given category.
func (d Definition) AcceptsCategory(category Category) bool {
	for _, allowed := range d.InputCategories {
		if allowed == category {
			return true
		}
	}
	return false
}

// AllowsPredecessor reports whether source may feed this process with a
// semi-product. An empty predecessor set means no constraint applies.
func (d Definition) AllowsPredecessor(source string) bool {
	if len(d.Predecessors) == 0 {
		return true
	}
	source = normalize(source)
	for _, allowed := range d.Predecessors {
		if allowed == source {
			return true
		}
	}
	return false
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
