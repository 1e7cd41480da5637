package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"shardrun/internal/domain"
)

// FileUploader treats a local directory as the results bucket.
// Destinations are paths relative to the bucket root.
type FileUploader struct {
	bucket string
}

// NewFileUploader creates a FileUploader rooted at bucket
func NewFileUploader(bucket string) *FileUploader {
	return &FileUploader{bucket: bucket}
}

// Upload copies each file to <bucket>/<destination>/<base name>.
// Files keep their base name, so two paths with the same base name overwrite each other.
func (u *FileUploader) Upload(ctx context.Context, paths []string, destination string) ([]domain.RemoteRef, error) {
	dir := filepath.Join(u.bucket, destination)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating %s", dir)
	}

	refs := make([]domain.RemoteRef, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		target := filepath.Join(dir, filepath.Base(path))
		if err := copyFile(path, target); err != nil {
			return nil, errors.WithMessagef(err, "uploading %s", path)
		}
		log.WithField("file", path).Debugf("uploaded to %s", target)
		refs = append(refs, domain.RemoteRef{Local: path, Remote: target})
	}
	return refs, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.WithStack(err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return errors.WithStack(err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errors.WithStack(err)
	}
	return errors.WithStack(out.Close())
}
