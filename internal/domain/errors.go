package domain

import "errors"

// Error taxonomy shared across the store, the text-generation client and the orchestrator.
// Callers wrap these with fmt.Errorf("%w: ...") and match with errors.Is.
var (
	ErrValidation    = errors.New("validation error")
	ErrNotFound      = errors.New("not found")
	ErrDataSource    = errors.New("data source error")
	ErrSchema        = errors.New("schema error")
	ErrDataAccess    = errors.New("data access error")
	ErrConfig        = errors.New("configuration error")
	ErrRemoteService = errors.New("remote service error")
	ErrParse         = errors.New("parse error")
)
