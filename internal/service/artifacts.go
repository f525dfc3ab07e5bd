package service

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ArtifactArchive uploads rendered figures to object storage before the
// per-run working directory is cleaned up. Archiving is best-effort: a
// failed upload is reported as a warning and never fails the run.
type ArtifactArchive struct {
	client *minio.Client
	bucket string
}

func NewArtifactArchive(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*ArtifactArchive, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", bucket, err)
		}
	}
	return &ArtifactArchive{client: client, bucket: bucket}, nil
}

// Store uploads one run's artifacts under {user}/{session}/{run}/{file}.
// Returns the first upload error; callers log it and continue.
func (a *ArtifactArchive) Store(ctx context.Context, userID, sessionID, runID string, artifacts []Artifact) error {
	for _, art := range artifacts {
		key := path.Join(userID, sessionID, runID, art.Name)
		_, err := a.client.PutObject(ctx, a.bucket, key,
			bytes.NewReader(art.Data), int64(len(art.Data)),
			minio.PutObjectOptions{ContentType: artifactMime(art.Name)})
		if err != nil {
			return fmt.Errorf("put %s: %w", key, err)
		}
	}
	return nil
}

// artifactMime derives the mime type from the file extension.
func artifactMime(name string) string {
	if strings.HasSuffix(name, ".svg") {
		return "image/svg+xml"
	}
	return "image/png"
}
