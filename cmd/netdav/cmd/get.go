package cmd

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/adamwoolhether/netdav/client"
)

type getArgs struct {
	output       string
	sha256       string
	verifyDigest bool
	progress     bool
	skipExisting bool
}

func NewGetCmd(c *Context) *cobra.Command {
	args := &getArgs{}
	subc := &cobra.Command{
		Use:   "get <remote>",
		Short: "Download a resource to a file or stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, pos []string) error {
			return onRunGet(cmd.Context(), c, cmd.OutOrStdout(), pos[0], args)
		},
	}
	subc.Flags().StringVarP(&args.output, "output", "o", "", "local file, stdout when empty")
	subc.Flags().StringVar(&args.sha256, "sha256", "", "expected hex sha256 of the content")
	subc.Flags().BoolVar(&args.verifyDigest, "verify-digest", false, "check digests announced by the server")
	subc.Flags().BoolVar(&args.progress, "progress", false, "log download progress")
	subc.Flags().BoolVar(&args.skipExisting, "skip-existing", false, "keep an existing output file")
	return subc
}

func onRunGet(ctx context.Context, c *Context, w io.Writer, remote string, args *getArgs) error {
	if args.output == "" {
		if _, err := c.Client.GetStream(ctx, remote, w); err != nil {
			return fmt.Errorf("get %s:%w", remote, err)
		}
		return nil
	}

	var opts []client.DownloadOption
	if args.sha256 != "" {
		opts = append(opts, client.WithChecksum(sha256.New(), args.sha256))
	}
	if args.verifyDigest {
		opts = append(opts, client.WithServerDigest())
	}
	if args.progress {
		opts = append(opts, client.WithProgress())
	}
	if args.skipExisting {
		opts = append(opts, client.WithSkipExisting())
	}

	start := time.Now()
	if err := c.Client.Download(ctx, remote, args.output, opts...); err != nil {
		return fmt.Errorf("download %s:%w", remote, err)
	}

	attrs := []any{"remote", remote, "output", args.output, "cost", time.Since(start)}
	if fi, err := os.Stat(args.output); err == nil {
		attrs = append(attrs, "size", humanize.Bytes(uint64(fi.Size())))
	}
	c.Logger.Info("download succ", attrs...)

	return nil
}

func init() {
	register(NewGetCmd)
}
