package project

import "errors"

var (
	// ErrProjectNotFound indicates the project doesn't exist.
	ErrProjectNotFound = errors.New("project not found")
	// ErrTemplateNotFound indicates the template doesn't exist.
	ErrTemplateNotFound = errors.New("template not found")
	// ErrActivityNotFound indicates the activity doesn't exist in its owner.
	ErrActivityNotFound = errors.New("activity not found")
	// ErrIndexOutOfRange indicates a list position outside the owning list.
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrDuplicateID indicates an insert would break id uniqueness.
	ErrDuplicateID = errors.New("duplicate id")
	// ErrUnknownBucket indicates a kanban bucket name that doesn't exist.
	ErrUnknownBucket = errors.New("unknown kanban bucket")
	// ErrInvalidInput indicates invalid enum input for an update.
	ErrInvalidInput = errors.New("invalid project input")
)
