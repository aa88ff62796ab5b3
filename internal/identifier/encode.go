package identifier

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"lottrace/internal/process"
)

// ErrInput marks encode failures caused by out-of-range or malformed fields.
var ErrInput = errors.New("invalid identifier input")

const dateLayout = "060102"

// EncodeLegacy builds a legacy V1 lot identifier: PP-YYMMDD-NNNN.
func EncodeLegacy(processCode string, date time.Time, seq int) (string, error) {
	code, err := requireProcess(processCode)
	if err != nil {
		return "", err
	}
	if err := requireSequence(seq, 4); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s-%04d", code, date.Format(dateLayout), seq), nil
}

// EncodeCurrent builds a current V2 lot identifier:
// {productCode}Q{qty}-{shortCode}{YYMMDD}-{seq3}.
func EncodeCurrent(productCode string, qty int, processCode string, date time.Time, seq int) (string, error) {
	product, err := requireProductCode(productCode)
	if err != nil {
		return "", err
	}
	code, err := requireProcess(processCode)
	if err != nil {
		return "", err
	}
	def, _ := process.Lookup(code)
	if err := requireQuantity(qty); err != nil {
		return "", err
	}
	if err := requireSequence(seq, 3); err != nil {
		return "", err
	}
	return fmt.Sprintf("%sQ%d-%s%s-%03d", product, qty, def.ShortCode, date.Format(dateLayout), seq), nil
}

// EncodeBundle builds a bundle identifier: BD-{productCode}-{YYMMDD}-{seq3}.
func EncodeBundle(productCode string, date time.Time, seq int) (string, error) {
	product, err := requireProductCode(productCode)
	if err != nil {
		return "", err
	}
	if err := requireSequence(seq, 3); err != nil {
		return "", err
	}
	return fmt.Sprintf("BD-%s-%s-%03d", product, date.Format(dateLayout), seq), nil
}

// EncodePurchaseOrder builds a purchase-order identifier:
// {productCode}Q{qty}-PO{YYMMDD}-{seq3}.
func EncodePurchaseOrder(productCode string, qty int, date time.Time, seq int) (string, error) {
	product, err := requireProductCode(productCode)
	if err != nil {
		return "", err
	}
	if err := requireQuantity(qty); err != nil {
		return "", err
	}
	if err := requireSequence(seq, 3); err != nil {
		return "", err
	}
	return fmt.Sprintf("%sQ%d-PO%s-%03d", product, qty, date.Format(dateLayout), seq), nil
}

// EncodeCompletion builds a completion lot identifier:
// {processCode}{semiProductCode}Q{completedQty}-{YYMMDD}-{seq3}.
// The semi-product code may itself contain dashes.
func EncodeCompletion(processCode, semiProductCode string, completedQty int, date time.Time, seq int) (string, error) {
	code, err := requireProcess(processCode)
	if err != nil {
		return "", err
	}
	product := strings.ToUpper(strings.TrimSpace(semiProductCode))
	if product == "" {
		return "", fmt.Errorf("%w: semi-product code is required", ErrInput)
	}
	if err := requireQuantity(completedQty); err != nil {
		return "", err
	}
	if err := requireSequence(seq, 3); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%sQ%d-%s-%03d", code, product, completedQty, date.Format(dateLayout), seq), nil
}

// EncodeInspection builds an inspection identifier: {CI|VI}-{markingLot}-{seq4}.
func EncodeInspection(processCode, markingLot string, seq int) (string, error) {
	code, err := requireProcess(processCode)
	if err != nil {
		return "", err
	}
	if !process.IsInspection(code) {
		return "", fmt.Errorf("%w: process %s is not an inspection process", ErrInput, code)
	}
	marking := strings.ToUpper(strings.TrimSpace(markingLot))
	if len(marking) != 3 || !isAlnum(marking) {
		return "", fmt.Errorf("%w: marking lot must be exactly three alphanumeric characters, got %q", ErrInput, markingLot)
	}
	if err := requireSequence(seq, 4); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s-%04d", code, marking, seq), nil
}

// EncodeVendor builds a compact vendor identifier: P{code}Q{qty}S{lotInfo}[V{ver}].
func EncodeVendor(code string, qty int, lotInfo string, version int) (string, error) {
	vendorCode := strings.ToUpper(strings.TrimSpace(code))
	if !isAlnum(vendorCode) {
		return "", fmt.Errorf("%w: vendor code must be alphanumeric", ErrInput)
	}
	if err := requireQuantity(qty); err != nil {
		return "", err
	}
	info := strings.ToUpper(strings.TrimSpace(lotInfo))
	if !isAlnum(info) {
		return "", fmt.Errorf("%w: vendor lot info must be alphanumeric", ErrInput)
	}
	if version < 0 {
		return "", fmt.Errorf("%w: vendor version must not be negative", ErrInput)
	}
	text := fmt.Sprintf("P%sQ%dS%s", vendorCode, qty, info)
	if version > 0 {
		text += fmt.Sprintf("V%d", version)
	}
	return text, nil
}

func requireProcess(code string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if !process.Known(normalized) {
		return "", fmt.Errorf("%w: unknown process code %q", ErrInput, code)
	}
	return normalized, nil
}

func requireProductCode(code string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if !isAlnum(normalized) {
		return "", fmt.Errorf("%w: product code must be alphanumeric, got %q", ErrInput, code)
	}
	return normalized, nil
}

func requireQuantity(qty int) error {
	if qty <= 0 {
		return fmt.Errorf("%w: quantity must be a positive whole number, got %d", ErrInput, qty)
	}
	return nil
}

func requireSequence(seq, width int) error {
	max := 999
	if width == 4 {
		max = 9999
	}
	if seq < 1 || seq > max {
		return fmt.Errorf("%w: sequence %d outside range 1..%d", ErrInput, seq, max)
	}
	return nil
}
