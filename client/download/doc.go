// Package download saves the body of a WebDAV GET to disk.
//
// [Handle] writes the body to a temporary file alongside the
// destination path and renames it into place once the length and any
// digests check out:
//
//	err := download.Handle(ctx, download.Source{
//		Path:          "/reports/q1.csv",
//		Body:          resp.Body,
//		ContentLength: resp.ContentLength,
//		Header:        resp.Header,
//	}, destPath, logger,
//		download.WithChecksum(sha256.New(), expectedHex),
//		download.WithServerDigest(),
//	)
//
// Most callers should use [github.com/adamwoolhether/netdav/client.Client.Download],
// which invokes Handle once the server has answered with success and
// re-exports the options as client.With* functions.
package download
