package identifier

import (
	"strings"

	"golang.org/x/text/width"

	"lottrace/internal/process"
)

// Kind names one of the identifier grammars.
type Kind string

const (
	KindLegacy        Kind = "legacy"
	KindCurrent       Kind = "current"
	KindBundle        Kind = "bundle"
	KindPurchaseOrder Kind = "purchase_order"
	KindCompletion    Kind = "completion"
	KindInspection    Kind = "inspection"
	KindVendor        Kind = "vendor"
	KindUnknown       Kind = "unknown"
)

// Identifier is the decoded form of one identifier string. Immutable once
// parsed; a zero Quantity or empty field means the grammar does not carry it.
type Identifier struct {
	Raw        string
	Normalized string
	Kind       Kind

	ProcessCode string
	ProductCode string
	Quantity    int
	DateKey     string // YYMMDD
	Sequence    string // zero-padded text, width fixed per grammar
	MarkingLot  string // inspection formats only
	LotInfo     string // vendor formats only
	Version     string // vendor formats only

	IsBundle bool
	Valid    bool
	Reason   string
}

// Normalize canonicalizes raw scan text: full-width characters are folded
// to their half-width forms (some scanner keyboards emit full-width
// digits), alternate separators become dashes, and everything is uppercased.
func Normalize(raw string) string {
	folded := width.Narrow.String(strings.TrimSpace(raw))
	replaced := strings.NewReplacer("_", "-", "/", "-").Replace(folded)
	return strings.ToUpper(replaced)
}

// InferCategory maps a decoded identifier to the routing category of the
// batch it names. Unparseable and vendor identifiers are raw materials,
// inspection output is finished production, and anything else carrying a
// known process is a semi-product.
func InferCategory(id Identifier) process.Category {
	if !id.Valid || id.Kind == KindVendor {
		return process.CategoryMaterial
	}
	if !process.Known(id.ProcessCode) {
		return process.CategoryMaterial
	}
	if process.IsInspection(id.ProcessCode) {
		return process.CategoryProduction
	}
	return process.CategorySemiProduct
}

// ProcessRank exposes the routing rank of the identifier's process for
// ordering decoded batches; identifiers without a known process rank last.
func ProcessRank(id Identifier) int {
	return process.Rank(id.ProcessCode)
}

// ProcessDisplayName returns the human name of the identifier's process.
func ProcessDisplayName(id Identifier) string {
	return process.DisplayName(id.ProcessCode)
}

func invalid(raw, normalized, reason string) Identifier {
	return Identifier{Raw: raw, Normalized: normalized, Kind: KindUnknown, Reason: reason}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isAlnum(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'A' && r <= 'Z':
		default:
			return false
		}
	}
	return true
}

func isUpperAlpha(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
