package model

import (
	"errors"
	"fmt"
)

var (
	// ErrLoad marks an unreadable, corrupt or unsupported source model (fatal)
	ErrLoad = errors.New("load model")

	// ErrGeometry marks a failed geometry computation for one element (recoverable)
	ErrGeometry = errors.New("geometry")

	// ErrConfiguration marks an invalid run setting such as an unknown grouping level (fatal)
	ErrConfiguration = errors.New("configuration")

	// ErrNoElements reports that no elements remained after filtering
	ErrNoElements = errors.New("no elements found after filtering")
)

// LoadError is returned when a model file cannot be opened or decoded
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load model %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

func (e *LoadError) Is(target error) bool { return target == ErrLoad }

// GeometryError is returned when the geometry of a single element cannot be measured
type GeometryError struct {
	ElementID int64
	Err       error
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("geometry of element #%d: %v", e.ElementID, e.Err)
}

func (e *GeometryError) Unwrap() error { return e.Err }

func (e *GeometryError) Is(target error) bool { return target == ErrGeometry }

// ConfigurationError is returned for invalid run settings
type ConfigurationError struct {
	Key string
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Key, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }
