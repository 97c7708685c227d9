package staging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// DiskStore keeps uploads as <id>.csv with a <id>.json sidecar under Dir.
type DiskStore struct {
	Dir string
}

func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	return &DiskStore{Dir: dir}, nil
}

func (s *DiskStore) Put(ctx context.Context, upload Upload, data []byte) error {
	if !validID(upload.ID) {
		return fmt.Errorf("invalid upload id %q", upload.ID)
	}
	meta, err := json.Marshal(upload)
	if err != nil {
		return fmt.Errorf("failed to encode upload metadata: %w", err)
	}
	if err := os.WriteFile(s.dataPath(upload.ID), data, 0o644); err != nil {
		return fmt.Errorf("failed to write staged upload: %w", err)
	}
	if err := os.WriteFile(s.metaPath(upload.ID), meta, 0o644); err != nil {
		return fmt.Errorf("failed to write staged upload metadata: %w", err)
	}
	return nil
}

func (s *DiskStore) Get(ctx context.Context, id string) (Upload, []byte, error) {
	if !validID(id) {
		return Upload{}, nil, ErrUploadNotFound
	}

	meta, err := os.ReadFile(s.metaPath(id))
	if errors.Is(err, fs.ErrNotExist) {
		return Upload{}, nil, ErrUploadNotFound
	}
	if err != nil {
		return Upload{}, nil, fmt.Errorf("failed to read staged upload metadata: %w", err)
	}

	var upload Upload
	if err := json.Unmarshal(meta, &upload); err != nil {
		return Upload{}, nil, fmt.Errorf("failed to decode staged upload metadata: %w", err)
	}

	data, err := os.ReadFile(s.dataPath(id))
	if errors.Is(err, fs.ErrNotExist) {
		return Upload{}, nil, ErrUploadNotFound
	}
	if err != nil {
		return Upload{}, nil, fmt.Errorf("failed to read staged upload: %w", err)
	}
	return upload, data, nil
}

func (s *DiskStore) dataPath(id string) string {
	return filepath.Join(s.Dir, id+".csv")
}

func (s *DiskStore) metaPath(id string) string {
	return filepath.Join(s.Dir, id+".json")
}
