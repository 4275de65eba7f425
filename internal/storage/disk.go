package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
)

// DiskStorage keeps files flat in a single local directory, addressed
// through afs file:// URLs.
type DiskStorage struct {
	fs      afs.Service
	baseURL string
}

// NewDiskStorage creates dir when missing.
func NewDiskStorage(dir string) (*DiskStorage, error) {
	if dir == "" {
		return nil, fmt.Errorf("disk storage: empty directory")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("disk storage: %w", err)
	}
	s := &DiskStorage{fs: afs.New(), baseURL: file.Scheme + "://" + filepath.ToSlash(abs)}
	ctx := context.Background()
	ok, err := s.fs.Exists(ctx, s.baseURL)
	if err != nil {
		return nil, fmt.Errorf("disk storage: %w", err)
	}
	if !ok {
		if err := s.fs.Create(ctx, s.baseURL, file.DefaultDirOsMode, true); err != nil {
			return nil, fmt.Errorf("disk storage: %w", err)
		}
	}
	return s, nil
}

// fileURL maps key to its location; keys with path elements are rejected.
func (s *DiskStorage) fileURL(key string) (string, error) {
	if key == "" || key != filepath.Base(key) || key == "." || key == ".." {
		return "", fmt.Errorf("disk storage: invalid key %q", key)
	}
	return url.Join(s.baseURL, key), nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// UploadFile writes to a temp file and moves it into place so readers never
// see a partial file.
func (s *DiskStorage) UploadFile(ctx context.Context, key string, reader io.Reader, size int64, _ string) error {
	final, err := s.fileURL(key)
	if err != nil {
		return err
	}
	tmp := url.Join(s.baseURL, ".upload-"+NewKey())
	cr := &countingReader{r: reader}
	if err := s.fs.Upload(ctx, tmp, file.DefaultFileOsMode, cr); err != nil {
		_ = s.fs.Delete(ctx, tmp)
		return fmt.Errorf("disk storage: upload %s: %w", key, err)
	}
	if size >= 0 && cr.n != size {
		_ = s.fs.Delete(ctx, tmp)
		return fmt.Errorf("disk storage: short write %d of %d bytes", cr.n, size)
	}
	if err := ctx.Err(); err != nil {
		_ = s.fs.Delete(ctx, tmp)
		return err
	}
	if err := s.fs.Move(ctx, tmp, final); err != nil {
		_ = s.fs.Delete(ctx, tmp)
		return fmt.Errorf("disk storage: move %s: %w", key, err)
	}
	return nil
}

func (s *DiskStorage) DownloadFile(ctx context.Context, key string) (io.ReadCloser, error) {
	u, err := s.fileURL(key)
	if err != nil {
		return nil, err
	}
	ok, err := s.fs.Exists(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("disk storage: %w", err)
	}
	if !ok {
		return nil, ErrNotFound
	}
	return s.fs.OpenURL(ctx, u)
}

func (s *DiskStorage) RemoveFile(ctx context.Context, key string) error {
	u, err := s.fileURL(key)
	if err != nil {
		return err
	}
	ok, err := s.fs.Exists(ctx, u)
	if err != nil {
		return fmt.Errorf("disk storage: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	return s.fs.Delete(ctx, u)
}
