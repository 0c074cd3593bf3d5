package code_analyzer

import "go.trai.ch/zerr"

var (
	// ErrEmptyChangeSet is returned when Analyze is called without any changed files.
	ErrEmptyChangeSet = zerr.New("change-set is empty")

	// ErrInvalidProjectRoot is returned when the project root is not an existing directory.
	ErrInvalidProjectRoot = zerr.New("invalid project root")

	// ErrBinarySource is returned when a source module contains binary content.
	ErrBinarySource = zerr.New("source file is binary")
)
