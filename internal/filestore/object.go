package filestore

import (
	"io"
	"strings"
	"time"

	"github.com/koustreak/DatAct/internal/errs"
)

// ObjectInfo describes a single object stored in a bucket.
type ObjectInfo struct {
	// Key is the full object path within the bucket (e.g. "schemas/shop.yaml").
	Key string

	// Size is the byte size of the object. -1 if unknown.
	Size int64

	// ContentType is the MIME type (e.g. "application/yaml").
	ContentType string

	// ETag is the object's entity tag / hash, as returned by the backend.
	ETag string

	// LastModified is when the object was last written.
	LastModified time.Time
}

// Object is a streaming handle to an object's content.
// The caller MUST call Close() after reading to avoid resource leaks.
type Object interface {
	io.ReadCloser

	// Info returns the metadata for this object.
	Info() *ObjectInfo
}

// Scheme prefixes object locations given where a file path is also accepted.
const Scheme = "s3://"

// Location addresses one object.
type Location struct {
	Bucket string
	Key    string
}

func (l Location) String() string { return Scheme + l.Bucket + "/" + l.Key }

// IsURL reports whether s is an object location rather than a file path.
func IsURL(s string) bool { return strings.HasPrefix(s, Scheme) }

// ParseURL splits "s3://bucket/key" into its parts.
func ParseURL(s string) (Location, error) {
	rest, ok := strings.CutPrefix(s, Scheme)
	if !ok {
		return Location{}, errs.Newf(errs.ErrKindInvalidInput, "%q is not an %s URL", s, Scheme)
	}
	bucket, key, _ := strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return Location{}, errs.Newf(errs.ErrKindInvalidInput, "%q needs both a bucket and a key", s)
	}
	return Location{Bucket: bucket, Key: key}, nil
}
