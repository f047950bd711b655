package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"tender-backend/internal/shared/storage/object"
	"tender-backend/internal/shared/telemetry"
)

// Service stores validated uploads and reads them back for processing.
type Service struct {
	Store     object.Store
	Repo      Repo
	Validator Validator
	Now       func() time.Time
}

// Validate checks an upload without writing anything.
func (s *Service) Validate(fileName string, data []byte) (Meta, error) {
	return s.Validator.Validate(fileName, data)
}

// Save writes the blob under documentID and records the document. If the
// record cannot be written the blob is removed, so a failed save leaves nothing behind.
func (s *Service) Save(ctx context.Context, userID, documentID, fileName string, data []byte, meta Meta) (Document, error) {
	if userID == "" || documentID == "" {
		return Document{}, ErrInvalidInput
	}
	key, err := object.DocumentKey(userID, documentID, fileName)
	if err != nil {
		return Document{}, &ValidationError{Field: "file", Message: "invalid file name"}
	}

	size, err := s.Store.Put(ctx, key, meta.MimeType, bytes.NewReader(data))
	if err != nil {
		return Document{}, fmt.Errorf("store document: %w", err)
	}

	doc := Document{
		ID:              documentID,
		UserID:          userID,
		FileName:        fileName,
		MimeType:        meta.MimeType,
		SizeBytes:       size,
		PageCount:       meta.PageCount,
		StorageProvider: s.Store.Provider(),
		StorageKey:      key,
		CreatedAt:       s.now(),
	}
	if err := s.Repo.Create(ctx, doc); err != nil {
		if delErr := s.Store.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			telemetry.Error("document.cleanup_failed", map[string]any{
				"document_id": documentID,
				"error":       delErr.Error(),
			})
		}
		return Document{}, fmt.Errorf("record document: %w", err)
	}
	return doc, nil
}

// Get returns a document owned by userID.
func (s *Service) Get(ctx context.Context, userID, documentID string) (Document, error) {
	if userID == "" {
		return Document{}, errors.New("user id required")
	}
	return s.Repo.GetByID(ctx, userID, documentID)
}

// Read loads the stored bytes of a document.
func (s *Service) Read(ctx context.Context, doc Document) ([]byte, error) {
	rc, err := s.Store.Open(ctx, doc.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("open document key=%s: %w", doc.StorageKey, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read document key=%s: %w", doc.StorageKey, err)
	}
	return data, nil
}

// List returns the caller's documents, newest first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Document, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}
	return s.Repo.ListByUser(ctx, userID, limit, offset)
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
