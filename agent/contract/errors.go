package contract

import "errors"

var (
	ErrValidation  = errors.New("validation failed")
	ErrUpstream    = errors.New("completion upstream failed")
	ErrProtocol    = errors.New("tool protocol violation")
	ErrUnknownTool = errors.New("unknown tool")
	ErrNotFound    = errors.New("not found")
)
