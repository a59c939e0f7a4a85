package main

import (
	"context"
	"log/slog"

	"go-engsite/internal/bootstrap"
	"go-engsite/internal/config"
	"go-engsite/internal/content"
	"go-engsite/internal/storage"

	"github.com/spf13/cobra"
)

// cli is the state shared by every command.
type cli struct {
	configFile string
	envFile    string

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "site-cli",
		Short: "Maintenance tool for the engineering services site",
		Long: `site-cli works on the same data directory and backend as the site and
admin servers. Settings come from ./engsite.yaml, ./.env and ENGSITE_*
environment variables.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&c.configFile, "config", "", "config file (default is ./engsite.yaml)")
	root.PersistentFlags().StringVar(&c.envFile, "env", "", "env file (default is ./.env)")

	root.AddCommand(
		newExportCmd(c),
		newSchemaCmd(c),
		newMigrateCmd(c),
		newImportPostsCmd(c),
		newSubscribersCmd(c),
		newHashPasswordCmd(),
	)
	return root
}

// load reads the configuration once. Logs go to stderr so command output
// on stdout stays clean.
func (c *cli) load(cmd *cobra.Command) error {
	if c.cfg != nil {
		return nil
	}
	cfg, err := config.Load(config.Options{ConfigFile: c.configFile, EnvFile: c.envFile})
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.logger = cfg.Log.NewLogger(cmd.ErrOrStderr())
	return nil
}

// open returns the full data layer, remote tier included when configured.
func (c *cli) open(cmd *cobra.Command) (*bootstrap.Env, error) {
	if err := c.load(cmd); err != nil {
		return nil, err
	}
	return bootstrap.Open(cmd.Context(), c.cfg, c.logger)
}

// openLocal returns services over the local store only.
func (c *cli) openLocal(cmd *cobra.Command) (*content.Site, *storage.JSONStore, error) {
	if err := c.load(cmd); err != nil {
		return nil, nil, err
	}
	store, err := storage.NewJSONStore(c.cfg.DataDir)
	if err != nil {
		return nil, nil, err
	}
	site, err := content.NewSite(content.Deps{Store: store, Logger: c.logger})
	if err != nil {
		return nil, nil, err
	}
	return site, store, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
