package config

import "errors"

// Sentinel errors for configuration validation.
var (
	// ErrInvalidPreset indicates an unknown or malformed encoder preset.
	ErrInvalidPreset = errors.New("invalid preset")

	// ErrInvalidParallelism indicates a negative encoder count.
	ErrInvalidParallelism = errors.New("invalid parallelism")

	// ErrMissingExecutable indicates an empty encoder or merger path.
	ErrMissingExecutable = errors.New("missing executable")

	// ErrInvalidSAR indicates a sample aspect ratio not of the form N:M.
	ErrInvalidSAR = errors.New("invalid sample aspect ratio")

	// ErrInvalidJob indicates a job definition that cannot be run.
	ErrInvalidJob = errors.New("invalid job")
)
