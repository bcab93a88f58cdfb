package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
)

// Source is the successful GET response of a WebDAV resource.
type Source struct {
	// Path is the remote path that answered, used in logs.
	Path string
	Body io.Reader
	// ContentLength is checked when >= 0.
	ContentLength int64
	Header        http.Header
}

// Handle streams src.Body to a temp file next to destPath, which is
// renamed to destPath on success. On any error the temp file is removed
// and destPath is left untouched.
func Handle(ctx context.Context, src Source, destPath string, logger *slog.Logger, optFns ...Option) error {
	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return fmt.Errorf("applying option: %w", err)
		}
	}

	if src.Header == nil {
		src.Header = make(http.Header)
	}

	if opts.skipExisting {
		skip, err := keepExisting(destPath, src.ContentLength)
		if err != nil {
			return err
		}
		if skip {
			logger.Info("skipping existing file", "path", src.Path, "dest", destPath)
			return nil
		}
	}

	verifiers := make([]*checksumVerifier, 0, 4)
	if opts.checksum != nil {
		verifiers = append(verifiers, opts.checksum)
	}
	if opts.serverDigest {
		announced := serverVerifiers(src.Header)
		if len(announced) == 0 {
			logger.Debug("server announced no digest", "path", src.Path)
		}
		verifiers = append(verifiers, announced...)
	}

	file, err := os.CreateTemp(filepath.Dir(destPath), ".netdav-dl-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	var successful bool
	defer func() {
		if err := file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			logger.Error("defer closing temp file", "error", err)
		}
		if !successful {
			if err := os.Remove(file.Name()); err != nil {
				logger.Error("failed to remove temp file", "error", err)
			}
		}
	}()

	writers := []io.Writer{file}
	for _, v := range verifiers {
		writers = append(writers, v)
	}
	writer := io.MultiWriter(writers...)

	var pw *progressWriter
	if opts.progress {
		pw = newProgressWriter(writer, src, destPath, logger)
		writer = pw
	}

	n, err := io.Copy(writer, &contextReader{ctx: ctx, r: src.Body})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %w", ErrDownloadCancelled, err)
		}

		return fmt.Errorf("copying body: %w", err)
	}
	if pw != nil {
		pw.done()
	}

	if src.ContentLength >= 0 && n != src.ContentLength {
		return &Error{
			Path:    destPath,
			Written: n,
			Err:     ErrContentLengthMismatch,
			Detail:  fmt.Sprintf("expected %d bytes, got %d", src.ContentLength, n),
		}
	}

	for _, v := range verifiers {
		if err := v.Verify(); err != nil {
			if dlErr, ok := errors.AsType[*Error](err); ok {
				dlErr.Path, dlErr.Written = destPath, n
			}
			return err
		}
	}

	if err := file.Sync(); err != nil {
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(file.Name(), destPath); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}

	successful = true

	return nil
}

// keepExisting reports whether destPath already holds a file matching
// the announced length.
func keepExisting(destPath string, contentLength int64) (bool, error) {
	fi, err := os.Stat(destPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("checking destination: %w", err)
	case fi.IsDir():
		return false, fmt.Errorf("destination %s is a directory", destPath)
	}

	return contentLength < 0 || fi.Size() == contentLength, nil
}

// contextReader stops a copy once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *contextReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}

	return cr.r.Read(p)
}
