package download

import (
	"io"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
)

const progressInterval = time.Second

// progressWriter logs how much of a GET body has reached disk. The
// logger carries the remote path, destination and ETag.
type progressWriter struct {
	w           io.Writer
	logger      *slog.Logger
	transferred int64
	total       int64
	startTime   time.Time
	lastLog     time.Time
}

func newProgressWriter(w io.Writer, src Source, destPath string, logger *slog.Logger) *progressWriter {
	attrs := []any{"method", "GET", "path", src.Path, "dest", destPath}
	if etag := src.Header.Get("ETag"); etag != "" {
		attrs = append(attrs, "etag", etag)
	}

	now := time.Now()
	return &progressWriter{
		w:         w,
		logger:    logger.With(attrs...),
		total:     src.ContentLength,
		startTime: now,
		lastLog:   now,
	}
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n, err := pw.w.Write(p)
	pw.transferred += int64(n)

	if time.Since(pw.lastLog) >= progressInterval {
		pw.lastLog = time.Now()
		pw.log("downloading")
	}

	return n, err
}

// done logs the final tally once the body is exhausted.
func (pw *progressWriter) done() {
	pw.log("download complete")
}

func (pw *progressWriter) log(msg string) {
	elapsed := time.Since(pw.startTime)
	attrs := []any{
		"elapsed", elapsed.Round(time.Millisecond),
		"transferred", humanize.Bytes(uint64(pw.transferred)),
	}
	if secs := elapsed.Seconds(); secs > 0 {
		attrs = append(attrs, "rate", humanize.Bytes(uint64(float64(pw.transferred)/secs))+"/s")
	}

	// Chunked GET responses carry no Content-Length.
	if pw.total > 0 {
		attrs = append(attrs,
			"progress", humanize.FtoaWithDigits(float64(pw.transferred)/float64(pw.total)*100, 1)+"%",
			"total", humanize.Bytes(uint64(pw.total)),
		)
	}

	pw.logger.Info(msg, attrs...)
}
