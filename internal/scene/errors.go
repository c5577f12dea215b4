package scene

import (
	"errors"
	"fmt"
)

// Load-phase errors.
var (
	// ErrLoad matches every *LoadError.
	ErrLoad = errors.New("load failed")

	// ErrMissingDocument is returned when an input document does not exist.
	ErrMissingDocument = errors.New("input document not found")

	// ErrInvalidDocument is returned when a document is not valid JSON or lacks required keys.
	ErrInvalidDocument = errors.New("input document is structurally invalid")

	// ErrShape is returned when matrix dimensions disagree with the rosters.
	ErrShape = errors.New("matrix shape mismatch")
)

// Document names used in errors and diagnostics.
const (
	DocAnnotation          = "haptic_annotation"
	DocPhysicalDatabase    = "physical_object_database"
	DocProxyRatings        = "proxy_matching_results"
	DocRelationshipRatings = "relationship_rating_results"
)

// LoadError reports a fatal failure to read one input document.
type LoadError struct {
	Document string
	Path     string
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s from %s: %v", e.Document, e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Is makes every LoadError match ErrLoad.
func (e *LoadError) Is(target error) bool { return target == ErrLoad }
