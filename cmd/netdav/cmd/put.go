package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/adamwoolhether/netdav/client"
)

type putArgs struct {
	contentType string
}

func NewPutCmd(c *Context) *cobra.Command {
	args := &putArgs{}
	subc := &cobra.Command{
		Use:   "put <local> <remote>",
		Short: "Upload a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, pos []string) error {
			return onRunPut(cmd.Context(), c, pos[0], pos[1], args)
		},
	}
	subc.Flags().StringVarP(&args.contentType, "content-type", "t", "", "content type of the upload")
	return subc
}

func onRunPut(ctx context.Context, c *Context, local, remote string, args *putArgs) error {
	f, err := os.Open(local)
	if err != nil {
		return fmt.Errorf("open file:%w", err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat file:%w", err)
	}

	var opts []client.RequestOption
	if args.contentType != "" {
		opts = append(opts, client.WithContentType(args.contentType))
	}

	start := time.Now()
	if _, err := c.Client.Put(ctx, remote, f, fi.Size(), opts...); err != nil {
		return fmt.Errorf("put %s:%w", remote, err)
	}
	c.Logger.Info("upload succ", "remote", remote, "size", humanize.Bytes(uint64(fi.Size())), "cost", time.Since(start))

	return nil
}

func init() {
	register(NewPutCmd)
}
