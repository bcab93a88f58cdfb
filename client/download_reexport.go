package client

import (
	"hash"

	"github.com/adamwoolhether/netdav/client/download"
)

// -------------------------------------------------------------------------
// Type aliases: re-export user-facing types from [download].
// -------------------------------------------------------------------------

type (
	// DownloadOption configures [Client.Download].
	DownloadOption = download.Option

	// DownloadError wraps a sentinel error with additional detail.
	DownloadError = download.Error
)

// -------------------------------------------------------------------------
// Sentinel errors
// -------------------------------------------------------------------------

var (
	// ErrContentLengthMismatch indicates the byte count did not match Content-Length.
	ErrContentLengthMismatch = download.ErrContentLengthMismatch

	// ErrChecksumMismatch indicates the file checksum did not match the expected value.
	ErrChecksumMismatch = download.ErrChecksumMismatch

	// ErrDownloadCancelled indicates the download was cancelled via context.
	ErrDownloadCancelled = download.ErrDownloadCancelled
)

// -------------------------------------------------------------------------
// Download option forwarding functions
// -------------------------------------------------------------------------

// WithChecksum enables checksum validation of the downloaded resource.
// h is a [hash.Hash] instance (e.g. sha256.New()), and expected is the
// hex-encoded expected checksum string.
func WithChecksum(h hash.Hash, expected string) DownloadOption {
	return download.WithChecksum(h, expected)
}

// WithServerDigest verifies the download against the digests announced
// by the server (Digest, Content-Digest, Content-MD5, OC-Checksum).
func WithServerDigest() DownloadOption { return download.WithServerDigest() }

// WithProgress enables periodic download progress logging.
func WithProgress() DownloadOption { return download.WithProgress() }

// WithSkipExisting causes a download to return nil when the destination
// file already exists with the announced length.
func WithSkipExisting() DownloadOption { return download.WithSkipExisting() }
