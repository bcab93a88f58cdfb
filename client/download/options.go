package download

import (
	"errors"
	"hash"
)

// Option configures [Handle].
type Option func(*options) error

type options struct {
	checksum     *checksumVerifier
	serverDigest bool
	progress     bool
	skipExisting bool
}

// WithChecksum verifies the downloaded bytes against expected, the
// hex-encoded sum produced by h. Case is ignored.
func WithChecksum(h hash.Hash, expected string) Option {
	return func(opts *options) error {
		if h == nil {
			return errors.New("hash must not be nil")
		}

		if expected == "" {
			return errors.New("expected checksum must not be empty")
		}

		opts.checksum = newHexVerifier(h, expected, "checksum")
		return nil
	}
}

// WithServerDigest verifies the bytes against every digest the server
// announced for the resource: Digest, Content-Digest, Repr-Digest,
// Content-MD5 and the OC-Checksum header of ownCloud and Nextcloud.
// Unknown algorithms are ignored; a response without any is accepted.
func WithServerDigest() Option {
	return func(opts *options) error {
		opts.serverDigest = true
		return nil
	}
}

// WithProgress logs transfer progress at most once per second, tagged
// with the remote path and the resource's ETag.
func WithProgress() Option {
	return func(opts *options) error {
		opts.progress = true
		return nil
	}
}

// WithSkipExisting leaves the destination in place when it already
// exists and its size equals the announced Content-Length. When the
// server did not announce a length any existing file is kept.
func WithSkipExisting() Option {
	return func(opts *options) error {
		opts.skipExisting = true
		return nil
	}
}
