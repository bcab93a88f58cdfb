// Package cmd holds the netdav subcommands.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/adamwoolhether/netdav/client"
	"github.com/adamwoolhether/netdav/internal/config"
)

const (
	defaultConfigFileEnv = "NETDAV_CONFIG"
)

var cmds []CreateFunc

// Context is shared by every subcommand once the root has run.
type Context struct {
	Client *client.Client
	Config *config.Config
	Logger *slog.Logger
}

type CreateFunc func(ctx *Context) *cobra.Command

func register(cr CreateFunc) {
	cmds = append(cmds, cr)
}

func initContext(ctx *Context, cmd *cobra.Command, baseURL string, cfgs []string) error {
	c, err := config.Load(cfgs, config.WithURL(baseURL))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	ctx.Config = c

	ctx.Logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: c.Level()}))

	cli, err := client.Build(c.URL, c.Options(ctx.Logger)...)
	if err != nil {
		return fmt.Errorf("building client: %w", err)
	}
	ctx.Client = cli

	return nil
}

// NewRoot returns the netdav command with every subcommand attached.
func NewRoot() *cobra.Command {
	var configFile, baseURL string
	ctx := &Context{}
	rootCmd := &cobra.Command{
		Use:           "netdav",
		Short:         "WebDAV command line client",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	for _, cr := range cmds {
		rootCmd.AddCommand(cr(ctx))
	}
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		envConfigFile, _ := os.LookupEnv(defaultConfigFileEnv)
		return initContext(ctx, cmd, baseURL, []string{configFile, envConfigFile, userConfigFile()})
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file")
	rootCmd.PersistentFlags().StringVarP(&baseURL, "url", "u", "", "base url, overrides the config file")
	return rootCmd
}

func userConfigFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}

	return filepath.Join(dir, "netdav", "config.json")
}
