// Package storage uploads files into named buckets, backed by S3 or a local
// directory.
package storage

import (
	"context"
	"path"
	"strings"

	"bistro/internal/model"
)

// Known buckets.
const (
	BucketAvatars    = "avatars"
	BucketMenuImages = "menu-images"
	BucketReports    = "reports"
)

var knownBuckets = map[string]bool{
	BucketAvatars:    true,
	BucketMenuImages: true,
	BucketReports:    true,
}

// IsKnownBucket reports whether bucket accepts uploads.
func IsKnownBucket(bucket string) bool {
	return knownBuckets[bucket]
}

// Object describes an uploaded file.
type Object struct {
	Bucket string `json:"bucket"`
	Path   string `json:"path"`
	URL    string `json:"url"`
}

// Store uploads files and resolves their public URLs.
type Store interface {
	// Upload writes data to path inside bucket, replacing any existing object.
	Upload(ctx context.Context, bucket, objectPath string, data []byte, contentType string) (*Object, error)

	// PublicURL returns the URL an uploaded object is served from.
	PublicURL(bucket, objectPath string) string
}

// CleanPath normalises an object path and rejects paths that escape the bucket.
func CleanPath(objectPath string) (string, error) {
	p := strings.TrimSpace(objectPath)
	if p == "" {
		return "", model.ValidationError("object path is required")
	}
	if strings.HasPrefix(p, "/") || strings.Contains(p, "\\") {
		return "", model.ValidationError("object path must be relative")
	}
	for _, segment := range strings.Split(p, "/") {
		if segment == ".." {
			return "", model.ValidationError("object path must not contain '..'")
		}
	}
	cleaned := path.Clean(p)
	if cleaned == "." {
		return "", model.ValidationError("object path is required")
	}
	return cleaned, nil
}

func checkTarget(bucket, objectPath string) (string, error) {
	if !IsKnownBucket(bucket) {
		return "", model.ErrUnknownBucket
	}
	return CleanPath(objectPath)
}
