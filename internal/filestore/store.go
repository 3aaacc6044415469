// Package filestore defines the object storage interface used to fetch
// schema descriptors and to keep backups of database files.
//
// All providers implement the Store interface. Callers depend only on this
// package, never on a specific provider package.
//
// Usage:
//
//	cfg := filestore.DefaultConfig("localhost:9000", "minioadmin", "minioadmin")
//	store, err := minio.New(ctx, cfg)
//	if err != nil { ... }
//	defer store.Close()
//
//	loc, _ := filestore.ParseURL("s3://schemas/shop.yaml")
//	data, err := filestore.ReadAll(ctx, store, loc)
package filestore

import (
	"context"
	"io"

	"github.com/koustreak/DatAct/internal/errs"
)

// MaxReadSize bounds ReadAll. Descriptors are small; anything larger is
// almost certainly the wrong object.
const MaxReadSize = 1 << 20

// Store is the single interface all file storage providers must implement.
type Store interface {
	// Ping verifies the storage backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any held resources (connections, goroutines, etc.).
	Close() error

	// GetObject opens a streaming handle to the object at key inside bucket.
	// The caller MUST call Object.Close() after reading.
	GetObject(ctx context.Context, bucket, key string) (Object, error)

	// StatObject returns metadata for the object at key inside bucket
	// without downloading its content.
	StatObject(ctx context.Context, bucket, key string) (*ObjectInfo, error)

	// PutFile uploads the local file at path to key inside bucket.
	PutFile(ctx context.Context, bucket, key, path string) (*ObjectInfo, error)
}

// ReadAll downloads the object at loc, up to MaxReadSize bytes.
func ReadAll(ctx context.Context, s Store, loc Location) ([]byte, error) {
	obj, err := s.GetObject(ctx, loc.Bucket, loc.Key)
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	if info := obj.Info(); info != nil && info.Size > MaxReadSize {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "%s is %d bytes, limit is %d", loc, info.Size, MaxReadSize)
	}

	data, err := io.ReadAll(io.LimitReader(obj, MaxReadSize+1))
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "failed to read "+loc.String(), err)
	}
	if len(data) > MaxReadSize {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "%s exceeds %d bytes", loc, MaxReadSize)
	}
	return data, nil
}
