package identifier

import (
	"fmt"
	"strconv"
	"strings"

	"lottrace/internal/process"
)

// A strategy owns one grammar. claims decides whether the normalized text
// belongs to this grammar; once a strategy claims a string, its parse result
// is final and no later strategy runs, keeping detection deterministic.
type strategy struct {
	name   string
	claims func(normalized string) bool
	parse  func(raw, normalized string) Identifier
}

// strategies are probed in fixed priority order. Bundle and purchase-order
// prefixes bind tightest, vendor formats must run before the Q-family probe
// (compact vendor text contains a Q of its own), and the legacy three-part
// pattern is the last resort before giving up.
var strategies = []strategy{
	{name: "bundle", claims: claimsBundle, parse: parseBundle},
	{name: "purchase_order", claims: claimsPurchaseOrder, parse: parsePurchaseOrder},
	{name: "vendor_compact", claims: claimsVendorCompact, parse: parseVendorCompact},
	{name: "vendor_colon", claims: claimsVendorColon, parse: parseVendorColon},
	{name: "inspection", claims: claimsInspection, parse: parseInspection},
	{name: "q_family", claims: claimsQFamily, parse: parseQFamily},
	{name: "legacy", claims: claimsLegacy, parse: parseLegacy},
}

// Decode parses raw identifier text. It never fails: unrecognized or
// malformed input yields Valid=false with a human-readable Reason.
func Decode(raw string) Identifier {
	normalized := Normalize(raw)
	if normalized == "" {
		return invalid(raw, normalized, "empty identifier")
	}
	for _, s := range strategies {
		if s.claims(normalized) {
			return s.parse(raw, normalized)
		}
	}
	return invalid(raw, normalized, "unrecognized identifier format")
}

// DecodeVendor parses vendor (HQ) label text, additionally accepting the
// permissive dash-delimited fallback used on older supplier labels. The
// fallback is deliberately not part of the general Decode chain: it is loose
// enough to swallow malformed plant identifiers that must decode as invalid.
func DecodeVendor(raw string) Identifier {
	normalized := Normalize(raw)
	if normalized == "" {
		return invalid(raw, normalized, "empty identifier")
	}
	switch {
	case claimsVendorCompact(normalized):
		return parseVendorCompact(raw, normalized)
	case claimsVendorColon(normalized):
		return parseVendorColon(raw, normalized)
	}

	parts := strings.Split(normalized, "-")
	if len(parts) == 3 && isAlnum(parts[0]) && isDigits(parts[1]) && isAlnum(parts[2]) {
		qty, _ := strconv.Atoi(parts[1])
		return Identifier{
			Raw: raw, Normalized: normalized, Kind: KindVendor,
			ProductCode: parts[0], Quantity: qty, LotInfo: parts[2], Valid: true,
		}
	}
	return invalid(raw, normalized, "unrecognized vendor label format")
}

func claimsBundle(normalized string) bool {
	return strings.HasPrefix(normalized, "BD-")
}

func parseBundle(raw, normalized string) Identifier {
	parts := strings.Split(normalized, "-")
	if len(parts) != 4 {
		return invalid(raw, normalized, "bundle identifier must have four dash-separated parts")
	}
	product, dateKey, seq := parts[1], parts[2], parts[3]
	switch {
	case !isAlnum(product):
		return invalid(raw, normalized, "bundle product code must be alphanumeric")
	case len(dateKey) != 6 || !isDigits(dateKey):
		return invalid(raw, normalized, "bundle date must be six digits (YYMMDD)")
	case len(seq) != 3 || !isDigits(seq):
		return invalid(raw, normalized, "bundle sequence must be three digits")
	}
	return Identifier{
		Raw: raw, Normalized: normalized, Kind: KindBundle,
		ProductCode: product, DateKey: dateKey, Sequence: seq,
		IsBundle: true, Valid: true,
	}
}

func claimsPurchaseOrder(normalized string) bool {
	parts := strings.Split(normalized, "-")
	if len(parts) != 3 || !strings.HasPrefix(parts[1], "PO") {
		return false
	}
	product, qty, ok := splitQuantity(parts[0])
	date := strings.TrimPrefix(parts[1], "PO")
	return ok && isAlnum(product) && qty > 0 &&
		len(date) == 6 && isDigits(date) &&
		len(parts[2]) == 3 && isDigits(parts[2])
}

func parsePurchaseOrder(raw, normalized string) Identifier {
	parts := strings.Split(normalized, "-")
	product, qty, _ := splitQuantity(parts[0])
	return Identifier{
		Raw: raw, Normalized: normalized, Kind: KindPurchaseOrder,
		ProductCode: product, Quantity: qty,
		DateKey: strings.TrimPrefix(parts[1], "PO"), Sequence: parts[2],
		Valid: true,
	}
}

func claimsVendorCompact(normalized string) bool {
	if !strings.HasPrefix(normalized, "P") || strings.ContainsAny(normalized, "-:") {
		return false
	}
	_, _, _, _, ok := splitVendorCompact(normalized)
	return ok
}

func parseVendorCompact(raw, normalized string) Identifier {
	code, qty, lotInfo, version, ok := splitVendorCompact(normalized)
	if !ok {
		return invalid(raw, normalized, "malformed vendor identifier")
	}
	return Identifier{
		Raw: raw, Normalized: normalized, Kind: KindVendor,
		ProductCode: code, Quantity: qty, LotInfo: lotInfo, Version: version,
		Valid: true,
	}
}

// splitVendorCompact splits P{code}Q{qty}S{lotInfo}[V{ver}]. The markers are
// searched left to right so codes containing Q or S elsewhere still parse.
func splitVendorCompact(normalized string) (code string, qty int, lotInfo, version string, ok bool) {
	body := strings.TrimPrefix(normalized, "P")
	qIdx := strings.Index(body, "Q")
	if qIdx <= 0 {
		return "", 0, "", "", false
	}
	code = body[:qIdx]
	rest := body[qIdx+1:]
	sIdx := strings.Index(rest, "S")
	if sIdx <= 0 {
		return "", 0, "", "", false
	}
	qtyText := rest[:sIdx]
	lotInfo = rest[sIdx+1:]
	if vIdx := strings.LastIndex(lotInfo, "V"); vIdx > 0 && isDigits(lotInfo[vIdx+1:]) {
		version = lotInfo[vIdx+1:]
		lotInfo = lotInfo[:vIdx]
	}
	if !isAlnum(code) || !isDigits(qtyText) || !isAlnum(lotInfo) {
		return "", 0, "", "", false
	}
	qty, _ = strconv.Atoi(qtyText)
	if qty <= 0 {
		return "", 0, "", "", false
	}
	return code, qty, lotInfo, version, true
}

func claimsVendorColon(normalized string) bool {
	return strings.Contains(normalized, ":")
}

func parseVendorColon(raw, normalized string) Identifier {
	parts := strings.Split(normalized, ":")
	if len(parts) < 2 || len(parts) > 4 {
		return invalid(raw, normalized, "vendor identifier must have two to four colon-separated parts")
	}
	if !isAlnum(parts[0]) {
		return invalid(raw, normalized, "vendor code must be alphanumeric")
	}
	if !isDigits(parts[1]) {
		return invalid(raw, normalized, "vendor quantity must be numeric")
	}
	qty, _ := strconv.Atoi(parts[1])
	id := Identifier{
		Raw: raw, Normalized: normalized, Kind: KindVendor,
		ProductCode: parts[0], Quantity: qty, Valid: true,
	}
	if len(parts) > 2 {
		id.LotInfo = parts[2]
	}
	if len(parts) > 3 {
		id.Version = parts[3]
	}
	return id
}

func claimsInspection(normalized string) bool {
	return strings.HasPrefix(normalized, "CI-") || strings.HasPrefix(normalized, "VI-")
}

func parseInspection(raw, normalized string) Identifier {
	parts := strings.Split(normalized, "-")
	if len(parts) != 3 {
		return invalid(raw, normalized, "inspection identifier must have three dash-separated parts")
	}
	markingLot, seq := parts[1], parts[2]
	switch {
	case len(markingLot) != 3 || !isAlnum(markingLot):
		return invalid(raw, normalized, "marking lot must be exactly three alphanumeric characters")
	case len(seq) != 4 || !isDigits(seq):
		return invalid(raw, normalized, "inspection sequence must be four digits")
	}
	return Identifier{
		Raw: raw, Normalized: normalized, Kind: KindInspection,
		ProcessCode: parts[0], MarkingLot: markingLot, Sequence: seq,
		Valid: true,
	}
}

func claimsQFamily(normalized string) bool {
	return strings.Contains(normalized, "Q")
}

// parseQFamily handles the two grammars that embed a quantity: the current
// lot format and the completion lot format. Whether the text before the Q
// starts with an embedded process code is a heuristic carried over from the
// plant's existing behavior; see the pinned examples in the tests before
// touching it.
func parseQFamily(raw, normalized string) Identifier {
	qIdx := strings.Index(normalized, "Q")
	prefix := normalized[:qIdx]
	rest := strings.Split(normalized[qIdx+1:], "-")
	if prefix == "" {
		return invalid(raw, normalized, "missing product code before quantity marker")
	}
	if len(rest) != 3 {
		return invalid(raw, normalized, "quantity-bearing identifier must have three parts after the quantity")
	}
	qtyText, middle, seq := rest[0], rest[1], rest[2]
	if !isDigits(qtyText) {
		return invalid(raw, normalized, "quantity must be numeric")
	}
	qty, _ := strconv.Atoi(qtyText)
	if len(seq) != 3 || !isDigits(seq) {
		return invalid(raw, normalized, "sequence must be three digits")
	}

	if len(prefix) > 2 && process.Known(prefix[:2]) {
		// Embedded process code: completion lot. The remainder of the
		// prefix, dashes included, is the semi-product code.
		if len(middle) != 6 || !isDigits(middle) {
			return invalid(raw, normalized, "completion date must be six digits (YYMMDD)")
		}
		return Identifier{
			Raw: raw, Normalized: normalized, Kind: KindCompletion,
			ProcessCode: prefix[:2], ProductCode: prefix[2:], Quantity: qty,
			DateKey: middle, Sequence: seq, Valid: true,
		}
	}

	if strings.Contains(prefix, "-") || !isAlnum(prefix) {
		return invalid(raw, normalized, "product code must be alphanumeric")
	}
	if len(middle) != 7 {
		return invalid(raw, normalized, "expected process short code followed by six-digit date")
	}
	short, dateKey := middle[:1], middle[1:]
	def, ok := process.LookupShort(short)
	if !ok {
		return invalid(raw, normalized, fmt.Sprintf("unknown process short code %q", short))
	}
	if !isDigits(dateKey) {
		return invalid(raw, normalized, "date must be six digits (YYMMDD)")
	}
	return Identifier{
		Raw: raw, Normalized: normalized, Kind: KindCurrent,
		ProcessCode: def.Code, ProductCode: prefix, Quantity: qty,
		DateKey: dateKey, Sequence: seq, Valid: true,
	}
}

func claimsLegacy(normalized string) bool {
	parts := strings.Split(normalized, "-")
	return len(parts) == 3 &&
		len(parts[0]) == 2 && isUpperAlpha(parts[0]) &&
		len(parts[1]) == 6 && isDigits(parts[1]) &&
		len(parts[2]) == 4 && isDigits(parts[2])
}

func parseLegacy(raw, normalized string) Identifier {
	parts := strings.Split(normalized, "-")
	return Identifier{
		Raw: raw, Normalized: normalized, Kind: KindLegacy,
		ProcessCode: parts[0], DateKey: parts[1], Sequence: parts[2],
		Valid: true,
	}
}

// splitQuantity splits text of the form {product}Q{digits} on its last Q.
func splitQuantity(text string) (product string, qty int, ok bool) {
	qIdx := strings.LastIndex(text, "Q")
	if qIdx <= 0 || qIdx == len(text)-1 {
		return "", 0, false
	}
	qtyText := text[qIdx+1:]
	if !isDigits(qtyText) {
		return "", 0, false
	}
	qty, _ = strconv.Atoi(qtyText)
	return text[:qIdx], qty, true
}
