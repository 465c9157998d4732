package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/HillPhelmuth/WhiteBoard/pkg/imagecatalog"
	"github.com/google/uuid"
)

const (
	tmpDirName  = ".tmp"
	listBatch   = 256
	dirPerm     = 0o755
	defaultPerm = 0o644
)

// Config options for the filesystem backend
type Config struct {
	BaseDir string // Base directory; each container is a subdirectory
}

// Backend is a filesystem implementation of the imagecatalog.BlobStore interface.
// Uploads are staged in {BaseDir}/.tmp, on the same filesystem as the
// containers, so container directories only ever hold complete blobs.
type Backend struct {
	baseDir string
	tmpDir  string
}

// New creates a new filesystem storage backend
func New(config Config) (*Backend, error) {
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}

	tmpDir := filepath.Join(config.BaseDir, tmpDirName)
	if err := os.MkdirAll(tmpDir, dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &Backend{baseDir: config.BaseDir, tmpDir: tmpDir}, nil
}

// EnsureContainer creates the container directory if it doesn't exist
func (b *Backend) EnsureContainer(ctx context.Context, name string) (imagecatalog.Container, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkName(name); err != nil {
		return nil, fmt.Errorf("invalid container name: %w", err)
	}
	if name == tmpDirName {
		return nil, fmt.Errorf("invalid container name: %q is reserved", name)
	}

	dir := filepath.Join(b.baseDir, name)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create container directory: %w", err)
	}
	return &container{name: name, dir: dir, tmpDir: b.tmpDir}, nil
}

type container struct {
	name   string
	dir    string
	tmpDir string
}

func (c *container) Name() string {
	return c.name
}

// Upload writes to a temp file and renames it over the destination, so
// readers never observe a partial blob. An overwrite keeps the modification
// time of the blob it replaces, which List reports as the creation time.
func (c *container) Upload(ctx context.Context, fileName string, reader io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkName(fileName); err != nil {
		return fmt.Errorf("invalid file name: %w", err)
	}

	tmpPath := filepath.Join(c.tmpDir, c.name+"-"+uuid.NewString())
	tmp, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, defaultPerm)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	success := false
	defer func() {
		if !success {
			if rmErr := os.Remove(tmpPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				slog.Warn("failed to remove tmp file", "path", tmpPath, "err", rmErr)
			}
		}
	}()

	if _, err := io.Copy(tmp, reader); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}

	dst := filepath.Join(c.dir, fileName)
	if info, err := os.Stat(dst); err == nil {
		if err := os.Chtimes(tmpPath, time.Time{}, info.ModTime()); err != nil {
			return fmt.Errorf("failed to keep creation time: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	if err := os.Rename(tmpPath, dst); err != nil {
		return fmt.Errorf("failed to rename file: %w", err)
	}
	success = true
	return nil
}

func (c *container) Download(ctx context.Context, fileName string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkName(fileName); err != nil {
		return nil, fmt.Errorf("invalid file name: %w", err)
	}

	file, err := os.Open(filepath.Join(c.dir, fileName))
	if errors.Is(err, os.ErrNotExist) {
		return nil, imagecatalog.ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// List reads the directory in batches. CreatedOn is the file modification
// time, which is the closest portable stand-in for a creation time.
func (c *container) List(ctx context.Context) iter.Seq2[imagecatalog.BlobRef, error] {
	return func(yield func(imagecatalog.BlobRef, error) bool) {
		dir, err := os.Open(c.dir)
		if err != nil {
			yield(imagecatalog.BlobRef{}, fmt.Errorf("failed to open container directory: %w", err))
			return
		}
		defer dir.Close()

		for {
			if err := ctx.Err(); err != nil {
				yield(imagecatalog.BlobRef{}, err)
				return
			}

			entries, err := dir.ReadDir(listBatch)
			for _, entry := range entries {
				if !entry.Type().IsRegular() {
					continue
				}
				info, infoErr := entry.Info()
				if errors.Is(infoErr, os.ErrNotExist) {
					continue
				} else if infoErr != nil {
					yield(imagecatalog.BlobRef{}, fmt.Errorf("failed to stat %s: %w", entry.Name(), infoErr))
					return
				}
				ref := imagecatalog.BlobRef{Name: entry.Name(), CreatedOn: info.ModTime().UTC(), Size: info.Size()}
				if !yield(ref, nil) {
					return
				}
			}

			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(imagecatalog.BlobRef{}, fmt.Errorf("failed to read container directory: %w", err))
				return
			}
		}
	}
}

func checkName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("%q is not a valid name", name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%q must not contain path separators", name)
	}
	return nil
}
