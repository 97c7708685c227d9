package staging

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrUploadNotFound = errors.New("staged upload not found")

// Upload identifies a staged file between the upload step and the create or
// append step that consumes it.
type Upload struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
}

// Store keeps staged uploads. Nothing expires: an abandoned upload stays
// until removed by hand.
type Store interface {
	Put(ctx context.Context, upload Upload, data []byte) error
	Get(ctx context.Context, id string) (Upload, []byte, error)
}

// NewUpload generates the identifier a staged file is stored under.
func NewUpload(filename string) Upload {
	return Upload{ID: uuid.NewString(), Filename: filename}
}

// validID keeps ids usable as file and object names.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
