package documents

import "errors"

var (
	ErrNotFound        = errors.New("document not found")
	ErrFieldNotFound   = errors.New("field not found")
	ErrNoFile          = errors.New("no file provided")
	ErrTooLarge        = errors.New("file too large")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrNoFilledFields  = errors.New("no filled fields")
	ErrArtifactMissing = errors.New("artifact not generated")
)
