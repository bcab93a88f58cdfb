package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adamwoolhether/netdav/client"
	"github.com/adamwoolhether/netdav/client/davxml"
)

type propsArgs struct {
	acl   bool
	depth string
}

func NewPropsCmd(c *Context) *cobra.Command {
	args := &propsArgs{}
	subc := &cobra.Command{
		Use:   "props <path>",
		Short: "Print the PROPFIND response of a resource",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, pos []string) error {
			opts := []client.PropfindOption{client.WithRequestOptions(client.WithDepth(args.depth))}
			if args.acl {
				opts = append(opts, client.WithACL())
			}

			ms, err := c.Client.Propfind(cmd.Context(), pos[0], opts...)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ms)
			return nil
		},
	}
	subc.Flags().BoolVar(&args.acl, "acl", false, "request access control properties")
	subc.Flags().StringVarP(&args.depth, "depth", "d", "0", "depth: 0, 1 or infinity")
	return subc
}

func NewProppatchCmd(c *Context) *cobra.Command {
	return &cobra.Command{
		Use:   "proppatch <path> <snippet>",
		Short: "Set properties from an XML snippet",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, pos []string) error {
			_, err := c.Client.Proppatch(cmd.Context(), pos[0], pos[1])
			return err
		},
	}
}

type lockArgs struct {
	owner  string
	shared bool
}

func NewLockCmd(c *Context) *cobra.Command {
	args := &lockArgs{}
	subc := &cobra.Command{
		Use:   "lock <path>",
		Short: "Take a write lock and print its token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, pos []string) error {
			info := davxml.LockInfo{Owner: args.owner}
			if args.shared {
				info.Scope = davxml.Shared
			}

			resp, err := c.Client.Lock(cmd.Context(), pos[0], info)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Header.Get("Lock-Token"))
			return nil
		},
	}
	subc.Flags().StringVar(&args.owner, "owner", "", "lock owner, usually a contact href")
	subc.Flags().BoolVar(&args.shared, "shared", false, "request a shared lock")
	return subc
}

func NewUnlockCmd(c *Context) *cobra.Command {
	return &cobra.Command{
		Use:   "unlock <path> <token>",
		Short: "Release a lock",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, pos []string) error {
			_, err := c.Client.Unlock(cmd.Context(), pos[0], pos[1])
			return err
		},
	}
}

func init() {
	register(NewPropsCmd)
	register(NewProppatchCmd)
	register(NewLockCmd)
	register(NewUnlockCmd)
}
