package executor

import (
	language "github.com/hanpama/graphgate/internal/language"
)

// ExecutionResult represents the result of executing a GraphQL operation.
type ExecutionResult struct {
	Data   any                `json:"data"`
	Errors language.ErrorList `json:"errors,omitempty"`
}

// ErrorResult returns a result without data, as produced when an operation
// fails before execution starts.
func ErrorResult(errs ...*language.Error) *ExecutionResult {
	return &ExecutionResult{Errors: errs}
}
