package gcp

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// BucketClient wraps a GCS bucket as the pipeline's object/media storage
// collaborator. Source images live under source/, synthesized audio
// under audio/; PublicURL resolves a playable CDN address.
type BucketClient struct {
	client    *storage.Client
	bucket    string
	cdnDomain string
}

// NewBucketClient creates the storage collaborator client
func NewBucketClient(ctx context.Context, bucket, cdnDomain string) (*BucketClient, error) {
	if bucket == "" {
		return nil, fmt.Errorf("storage bucket not configured")
	}

	opts := append(ClientOptionsFromEnv(), option.WithScopes(storage.ScopeReadWrite))
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}

	return &BucketClient{
		client:    client,
		bucket:    bucket,
		cdnDomain: cdnDomain,
	}, nil
}

// Put uploads bytes under the given object key, overwriting any previous
// object. Uploads are idempotent per key, which is what makes publish
// retries safe.
func (b *BucketClient) Put(ctx context.Context, key string, data []byte, contentType string) error {
	w := b.client.Bucket(b.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return fmt.Errorf("uploading object %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalizing object %s: %w", key, err)
	}
	return nil
}

// Get downloads the bytes stored under the given object key
func (b *BucketClient) Get(ctx context.Context, key string) ([]byte, error) {
	r, err := b.client.Bucket(b.bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("opening object %s: %w", key, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading object %s: %w", key, err)
	}
	return data, nil
}

// Delete removes the object stored under the given key
func (b *BucketClient) Delete(ctx context.Context, key string) error {
	if err := b.client.Bucket(b.bucket).Object(key).Delete(ctx); err != nil {
		return fmt.Errorf("deleting object %s: %w", key, err)
	}
	return nil
}

// PublicURL resolves the playable address of an object, preferring the
// configured CDN domain over the raw bucket endpoint.
func (b *BucketClient) PublicURL(key string) string {
	if b.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", b.cdnDomain, key)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", b.bucket, key)
}

// Close releases the underlying API client
func (b *BucketClient) Close() error {
	return b.client.Close()
}
