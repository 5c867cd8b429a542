package booklet

import "errors"

// Sentinel errors returned (wrapped) by the conversion pipeline.
var (
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrRenderFailed  = errors.New("render failed")
	ErrBatchSize     = errors.New("batch size out of range")
	ErrReentrant     = errors.New("scheduler re-entered while composing")
)
