package analyses

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrBatchTooLarge = errors.New("batch too large")
)

const (
	ErrorCodeValidation = "VALIDATION_ERROR"
	ErrorCodeAITimeout  = "AI_TIMEOUT"
	ErrorCodeAIInvalid  = "AI_INVALID_RESPONSE"
	ErrorCodeStorage    = "STORAGE_ERROR"
	ErrorCodeInternal   = "INTERNAL_ERROR"
)
