package object

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"tender-backend/internal/shared/util"
)

var (
	// ErrInvalidKey is returned for storage keys that escape the store root.
	ErrInvalidKey = errors.New("invalid storage key")
	// ErrNotFound is returned by Open when nothing is stored under the key.
	ErrNotFound = errors.New("object not found")
)

// Store saves and retrieves document blobs by key.
type Store interface {
	Put(ctx context.Context, key, contentType string, r io.Reader) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Provider() string
}

// DocumentKey builds the storage key for an uploaded document. Keys are
// namespaced by a hash of the user so raw identities never reach storage.
func DocumentKey(userID, documentID, fileName string) (string, error) {
	name, err := util.SanitizeFileName(fileName)
	if err != nil {
		return "", fmt.Errorf("sanitize file name: %w", err)
	}
	if documentID == "" {
		return "", errors.New("document id is required")
	}
	return path.Join("documents", util.HashUserKey(userID), documentID+"_"+name), nil
}
