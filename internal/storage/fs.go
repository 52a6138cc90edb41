package storage

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// PublicPrefix is the URL path local uploads are served under.
const PublicPrefix = "/storage/"

type fsStore struct {
	dir           string
	publicBaseURL string
	logger        zerolog.Logger
}

// NewFSStore creates a store that writes files below dir.
func NewFSStore(dir, publicBaseURL string, logger zerolog.Logger) Store {
	return &fsStore{
		dir:           dir,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		logger:        logger.With().Str("component", "fs-storage").Logger(),
	}
}

func (s *fsStore) Upload(ctx context.Context, bucket, objectPath string, data []byte, _ string) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p, err := checkTarget(bucket, objectPath)
	if err != nil {
		return nil, err
	}

	out := filepath.Join(s.dir, bucket, filepath.FromSlash(p))
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		s.logger.Error().Err(err).Str("path", out).Msg("failed to create directory")
		return nil, fmt.Errorf("failed to create directory for %s: %w", p, err)
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		s.logger.Error().Err(err).Str("path", out).Msg("failed to write file")
		return nil, fmt.Errorf("failed to write %s: %w", p, err)
	}

	s.logger.Info().
		Str("bucket", bucket).
		Str("path", p).
		Int("bytes", len(data)).
		Msg("file stored")

	return &Object{Bucket: bucket, Path: p, URL: s.PublicURL(bucket, p)}, nil
}

func (s *fsStore) PublicURL(bucket, objectPath string) string {
	return s.publicBaseURL + PublicPrefix + bucket + "/" + strings.TrimLeft(objectPath, "/")
}

// FileServer serves files written by an fs store rooted at dir under
// PublicPrefix.
func FileServer(dir string) http.Handler {
	return http.StripPrefix(PublicPrefix, http.FileServer(http.Dir(dir)))
}
