package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adamwoolhether/netdav/client"
)

func NewMkdirCmd(c *Context) *cobra.Command {
	return &cobra.Command{
		Use:   "mkdir <path>",
		Short: "Create a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, pos []string) error {
			_, err := c.Client.Mkdir(cmd.Context(), pos[0])
			return err
		},
	}
}

func NewRmCmd(c *Context) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <path>",
		Short: "Delete a resource or collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, pos []string) error {
			_, err := c.Client.Delete(cmd.Context(), pos[0])
			return err
		},
	}
}

type transferArgs struct {
	noOverwrite bool
}

func newTransferCmd(c *Context, use, short string, verb client.Verb) *cobra.Command {
	args := &transferArgs{}
	subc := &cobra.Command{
		Use:   use + " <src> <dst>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, pos []string) error {
			opts := []client.RequestOption{client.WithOverwrite(!args.noOverwrite)}

			var err error
			switch verb {
			case client.VerbMove:
				_, err = c.Client.Move(cmd.Context(), pos[0], pos[1], opts...)
			default:
				_, err = c.Client.Copy(cmd.Context(), pos[0], pos[1], opts...)
			}
			return err
		},
	}
	subc.Flags().BoolVar(&args.noOverwrite, "no-overwrite", false, "fail when the destination exists")
	return subc
}

func NewMvCmd(c *Context) *cobra.Command {
	return newTransferCmd(c, "mv", "Move a resource", client.VerbMove)
}

func NewCpCmd(c *Context) *cobra.Command {
	return newTransferCmd(c, "cp", "Copy a resource", client.VerbCopy)
}

func NewExistsCmd(c *Context) *cobra.Command {
	return &cobra.Command{
		Use:   "exists <path>",
		Short: "Report whether a resource exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, pos []string) error {
			ok, err := c.Client.Exists(cmd.Context(), pos[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ok)
			return nil
		},
	}
}

func init() {
	register(NewMkdirCmd)
	register(NewRmCmd)
	register(NewMvCmd)
	register(NewCpCmd)
	register(NewExistsCmd)
}
