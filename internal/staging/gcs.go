package staging

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
)

const filenameMetadataKey = "filename"

// GCSStore keeps uploads as objects under uploads/ in a bucket, with the
// original filename in the object metadata.
type GCSStore struct {
	Client *storage.Client
	Bucket string
}

func (s *GCSStore) object(id string) *storage.ObjectHandle {
	return s.Client.Bucket(s.Bucket).Object("uploads/" + id + ".csv")
}

func (s *GCSStore) Put(ctx context.Context, upload Upload, data []byte) error {
	if !validID(upload.ID) {
		return fmt.Errorf("invalid upload id %q", upload.ID)
	}

	w := s.object(upload.ID).NewWriter(ctx)
	w.ContentType = "text/csv"
	w.Metadata = map[string]string{filenameMetadataKey: upload.Filename}

	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("failed to upload file to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close GCS writer: %w", err)
	}
	return nil
}

func (s *GCSStore) Get(ctx context.Context, id string) (Upload, []byte, error) {
	if !validID(id) {
		return Upload{}, nil, ErrUploadNotFound
	}

	obj := s.object(id)
	attrs, err := obj.Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return Upload{}, nil, ErrUploadNotFound
	}
	if err != nil {
		return Upload{}, nil, fmt.Errorf("failed to fetch staged upload attributes from GCS: %w", err)
	}

	rc, err := obj.NewReader(ctx)
	if err != nil {
		return Upload{}, nil, fmt.Errorf("failed to fetch staged upload from GCS: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return Upload{}, nil, fmt.Errorf("failed to read staged upload from GCS: %w", err)
	}
	return Upload{ID: id, Filename: attrs.Metadata[filenameMetadataKey]}, data, nil
}
