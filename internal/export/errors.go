package export

import (
	"errors"
	"fmt"
)

var (
	ErrMissingAsset    = errors.New("missing image asset")
	ErrSchemaViolation = errors.New("schema violation")
)

// MissingAssetError reports an image reference with no file under the asset root.
type MissingAssetError struct {
	PersonID string
	Path     string
	Total    int // missing references across all persons
}

func (e *MissingAssetError) Error() string {
	msg := fmt.Sprintf("person %s: image %s does not exist", e.PersonID, e.Path)
	if e.Total > 1 {
		msg += fmt.Sprintf(" (%d missing in total)", e.Total)
	}
	return msg
}

func (e *MissingAssetError) Unwrap() error { return ErrMissingAsset }

// SchemaViolationError reports an output document that does not satisfy its schema.
type SchemaViolationError struct {
	Document string
	Field    string
	Reason   string
}

func (e *SchemaViolationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Document, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", e.Document, e.Field, e.Reason)
}

func (e *SchemaViolationError) Unwrap() error { return ErrSchemaViolation }
