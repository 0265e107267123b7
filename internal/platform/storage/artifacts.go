package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	gcs "cloud.google.com/go/storage"
	"github.com/oklog/ulid/v2"
)

const (
	downloadTokenKey   = "firebaseStorageDownloadTokens"
	firebaseStorageAPI = "https://firebasestorage.googleapis.com/v0/b/"
)

var errInvalidKey = errors.New("storage: object key is required")

// objectBackend is the subset of bucket operations the artifact store needs.
type objectBackend interface {
	Write(ctx context.Context, key string, data []byte, attrs gcs.ObjectAttrs) error
	Delete(ctx context.Context, key string) error
}

// ArtifactStore uploads generated files to one bucket and hands back Firebase download
// URLs, which stay valid without signing as long as the token metadata is kept.
type ArtifactStore struct {
	bucket  string
	backend objectBackend
	token   func() string
}

// NewArtifactStore binds the store to bucket on client.
func NewArtifactStore(client *gcs.Client, bucket string) (*ArtifactStore, error) {
	if client == nil {
		return nil, errors.New("storage: client is required")
	}
	return newArtifactStore(bucket, gcsBackend{bucket: client.Bucket(strings.TrimSpace(bucket))})
}

func newArtifactStore(bucket string, backend objectBackend) (*ArtifactStore, error) {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, errors.New("storage: bucket name is required")
	}
	return &ArtifactStore{
		bucket:  bucket,
		backend: backend,
		token:   func() string { return strings.ToLower(ulid.Make().String()) },
	}, nil
}

// Put writes data at key, replacing any previous object, and returns its download URL.
func (s *ArtifactStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if key == "" {
		return "", errInvalidKey
	}
	token := s.token()
	attrs := gcs.ObjectAttrs{
		ContentType:  contentType,
		CacheControl: "private, max-age=0",
		Metadata:     map[string]string{downloadTokenKey: token},
	}
	if err := s.backend.Write(ctx, key, data, attrs); err != nil {
		return "", fmt.Errorf("storage: put %s: %w", key, err)
	}
	return DownloadURL(s.bucket, key, token), nil
}

// Delete removes the object at key. key may also be a download URL for this bucket.
// Deleting a missing object is not an error.
func (s *ArtifactStore) Delete(ctx context.Context, key string) error {
	key = ObjectKey(key)
	if key == "" {
		return errInvalidKey
	}
	err := s.backend.Delete(ctx, key)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("storage: delete %s: %w", key, err)
	}
	return nil
}

// DownloadURL formats the Firebase Storage download URL for an object.
func DownloadURL(bucket, key, token string) string {
	u := firebaseStorageAPI + bucket + "/o/" + url.PathEscape(key) + "?alt=media"
	if token != "" {
		u += "&token=" + url.QueryEscape(token)
	}
	return u
}

// ObjectKey extracts the object key from a Firebase download URL or gs:// URI. Plain keys
// are returned trimmed.
func ObjectKey(ref string) string {
	ref = strings.TrimSpace(ref)
	switch {
	case strings.HasPrefix(ref, "gs://"):
		rest := strings.TrimPrefix(ref, "gs://")
		if _, key, ok := strings.Cut(rest, "/"); ok {
			return key
		}
		return ""
	case strings.HasPrefix(ref, "https://"), strings.HasPrefix(ref, "http://"):
		u, err := url.Parse(ref)
		if err != nil {
			return ""
		}
		_, escaped, ok := strings.Cut(u.EscapedPath(), "/o/")
		if !ok {
			return ""
		}
		key, err := url.PathUnescape(escaped)
		if err != nil {
			return ""
		}
		return key
	}
	return strings.TrimLeft(ref, "/")
}

type gcsBackend struct {
	bucket *gcs.BucketHandle
}

func (b gcsBackend) Write(ctx context.Context, key string, data []byte, attrs gcs.ObjectAttrs) error {
	w := b.bucket.Object(key).NewWriter(ctx)
	w.ContentType = attrs.ContentType
	w.CacheControl = attrs.CacheControl
	w.Metadata = attrs.Metadata
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func (b gcsBackend) Delete(ctx context.Context, key string) error {
	return b.bucket.Object(key).Delete(ctx)
}
