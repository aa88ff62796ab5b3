package process

import (
	"fmt"
	"strings"
)

// Issue codes reported by Validate.
const (
	CodeInvalidProcess      = "INVALID_PROCESS_CODE"
	CodeEmptyInputs         = "EMPTY_INPUTS"
	CodeInvalidInputType    = "INVALID_INPUT_TYPE"
	CodeInvalidPrevProcess  = "INVALID_PREVIOUS_PROCESS"
	CodeReverseProcessOrder = "REVERSE_PROCESS_ORDER"
)

// Input describes one batch proposed as an input to a process.
type Input struct {
	LotNo string
	// Category is the batch classification, usually inferred from the
	// batch's decoded identifier.
	Category Category
	// SourceProcess is the process that produced the batch, when known.
	// Empty for raw materials and vendor batches.
	SourceProcess string
}

// Issue is one validation finding tied to an input.
type Issue struct {
	Code    string
	Message string
	LotNo   string
}

// Result collects every error and warning for a proposed input set.
// Any error makes the whole set invalid; warnings never do.
type Result struct {
	Valid    bool
	Errors   []Issue
	Warnings []Issue
}

// Validate decides whether the given inputs may feed the target process.
func Validate(processCode string, inputs []Input) Result {
	result := Result{Valid: true}

	target, ok := Lookup(processCode)
	if !ok {
		result.Valid = false
		result.Errors = append(result.Errors, Issue{
			Code:    CodeInvalidProcess,
			Message: fmt.Sprintf("unknown process code %q", strings.TrimSpace(processCode)),
		})
		return result
	}

	if len(inputs) == 0 {
		result.Valid = false
		result.Errors = append(result.Errors, Issue{
			Code:    CodeEmptyInputs,
			Message: fmt.Sprintf("process %s requires at least one input", target.Code),
		})
		return result
	}

	for _, input := range inputs {
		if !target.AcceptsCategory(input.Category) {
			result.Errors = append(result.Errors, Issue{
				Code: CodeInvalidInputType,
				Message: fmt.Sprintf("process %s does not accept %s inputs (allowed: %s)",
					target.Code, input.Category, joinCategories(target.InputCategories)),
				LotNo: input.LotNo,
			})
			continue
		}

		if input.Category != CategorySemiProduct || input.SourceProcess == "" {
			continue
		}
		source := normalize(input.SourceProcess)
		if !Known(source) {
			continue
		}

		if !target.AllowsPredecessor(source) {
			result.Errors = append(result.Errors, Issue{
				Code: CodeInvalidPrevProcess,
				Message: fmt.Sprintf("process %s does not accept semi-products from %s (allowed: %s)",
					target.Code, source, strings.Join(target.Predecessors, ", ")),
				LotNo: input.LotNo,
			})
			continue
		}

		// Feeding a later-or-equal process back into an earlier one is
		// suspicious but legal; inspection targets consume finished work
		// from anywhere, so they are exempt.
		if Rank(source) >= target.Rank && !IsInspection(target.Code) {
			result.Warnings = append(result.Warnings, Issue{
				Code: CodeReverseProcessOrder,
				Message: fmt.Sprintf("input from %s (rank %d) feeds earlier process %s (rank %d)",
					source, Rank(source), target.Code, target.Rank),
				LotNo: input.LotNo,
			})
		}
	}

	result.Valid = len(result.Errors) == 0
	return result
}

func joinCategories(categories []Category) string {
	names := make([]string, len(categories))
	for i, category := range categories {
		names[i] = string(category)
	}
	return strings.Join(names, ", ")
}
