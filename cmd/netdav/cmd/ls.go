package cmd

import (
	"context"
	"fmt"
	"io"
	"regexp"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/adamwoolhether/netdav/client"
)

type findArgs struct {
	recursive bool
	name      string
	pattern   string
	suppress  bool
	long      bool
}

func NewLsCmd(c *Context) *cobra.Command {
	args := &findArgs{long: true}
	subc := &cobra.Command{
		Use:   "ls [path]",
		Short: "List a collection",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, pos []string) error {
			return onRunFind(cmd.Context(), c, cmd.OutOrStdout(), pathArg(pos), args)
		},
	}
	return subc
}

func NewFindCmd(c *Context) *cobra.Command {
	args := &findArgs{}
	subc := &cobra.Command{
		Use:   "find [path]",
		Short: "Walk a tree depth first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, pos []string) error {
			return onRunFind(cmd.Context(), c, cmd.OutOrStdout(), pathArg(pos), args)
		},
	}
	subc.Flags().BoolVarP(&args.recursive, "recursive", "r", false, "descend into collections")
	subc.Flags().StringVarP(&args.name, "name", "n", "", "only files with this name")
	subc.Flags().StringVarP(&args.pattern, "pattern", "p", "", "only files whose name matches this regexp")
	subc.Flags().BoolVar(&args.suppress, "suppress-errors", false, "skip collections that cannot be listed")
	subc.Flags().BoolVarP(&args.long, "long", "l", false, "show kind and size")
	return subc
}

func onRunFind(ctx context.Context, c *Context, w io.Writer, path string, args *findArgs) error {
	var opts []client.FindOption
	if args.recursive {
		opts = append(opts, client.WithRecursive())
	}
	if args.name != "" {
		opts = append(opts, client.WithFilename(args.name))
	}
	if args.pattern != "" {
		re, err := regexp.Compile(args.pattern)
		if err != nil {
			return fmt.Errorf("compile pattern:%w", err)
		}
		opts = append(opts, client.WithFilenamePattern(re))
	}
	if args.suppress {
		opts = append(opts, client.WithSuppressErrors())
	}

	for item, err := range c.Client.Find(ctx, path, opts...) {
		if err != nil {
			return err
		}

		if !args.long {
			fmt.Fprintln(w, item.URL.Path)
			continue
		}

		size := "-"
		if n, ok := item.Size(); ok {
			size = humanize.Bytes(uint64(n))
		}
		kind := "f"
		if item.IsDir() {
			kind = "d"
		}
		fmt.Fprintf(w, "%s %8s %s\n", kind, size, item.URL.Path)
	}

	return nil
}

func pathArg(pos []string) string {
	if len(pos) == 0 {
		return "."
	}

	return pos[0]
}

func init() {
	register(NewLsCmd)
	register(NewFindCmd)
}
