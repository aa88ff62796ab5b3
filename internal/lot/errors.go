package lot

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for callers to branch on with errors.Is. NotFound is kept
// distinct from validation so a caller can tell "bad reference" from "bad
// state" and from "bad rule".
var (
	ErrNotFound   = errors.New("not found")
	ErrLifecycle  = errors.New("lifecycle error")
	ErrValidation = errors.New("validation error")
	ErrInput      = errors.New("input error")
	ErrStore      = errors.New("store error")
)

// Wrap tags err (optional) with the given marker and operation context.
func Wrap(marker error, operation, message string, err error) error {
	detail := buildDetail(operation, message)
	if marker == nil {
		marker = ErrStore
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(operation, message string) string {
	parts := make([]string, 0, 2)
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "lot operation failure"
	}
	return strings.Join(parts, ": ")
}
