package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ObjectStore is the boundary to the external object-storage provider.
// Put writes one object and returns its stable URL. Implementations report
// failures as *UploadError so callers can tell transient from permanent.
type ObjectStore interface {
	Put(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// UploadError is a failure from the storage provider. Permanent failures
// (file too large, unsupported MIME type, malformed content) must not be
// retried; everything else is assumed transient.
type UploadError struct {
	Path      string
	Permanent bool
	Err       error
}

func (e *UploadError) Error() string {
	kind := "transient"
	if e.Permanent {
		kind = "permanent"
	}
	return fmt.Sprintf("upload %s: %s: %v", e.Path, kind, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// IsPermanent reports whether err carries a permanent upload failure.
func IsPermanent(err error) bool {
	var ue *UploadError
	return errors.As(err, &ue) && ue.Permanent
}

// File is one uploaded attachment as received from the client.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// ObjectPath builds the deterministic, collision-avoiding destination for an
// object: namespace/<registration>/<segments...>/<filename>. Partitioning by
// the request-scoped registration ID means concurrent registrations never
// write into each other's prefix. The provider may still suffix identical
// filenames within one prefix; no content dedup is done.
func ObjectPath(namespace, registrationID string, segments ...string) string {
	parts := append([]string{namespace, registrationID}, segments...)
	return strings.Join(parts, "/")
}
