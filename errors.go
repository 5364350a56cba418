package vdiff

import "errors"

var (
	// ErrUnknownOp is returned by Patch for an op whose type is not one of
	// the four known kinds. Nothing is applied.
	ErrUnknownOp = errors.New("unknown patch operation")

	// ErrUnknownUpdate is returned by Patch for a reorder update of an
	// unknown type. Nothing is applied.
	ErrUnknownUpdate = errors.New("unknown reorder update")

	// ErrMissingNode is returned when a Replace op or Insert update has no node.
	ErrMissingNode = errors.New("operation requires a node")

	// ErrPositionNotFound is returned when a patch position does not exist in
	// the host tree, i.e. the patches were computed against another tree.
	ErrPositionNotFound = errors.New("patch position not found in host tree")

	// ErrBaseMismatch is returned when a delta is applied to a document other
	// than the one it was computed against.
	ErrBaseMismatch = errors.New("base hash mismatch")
)
