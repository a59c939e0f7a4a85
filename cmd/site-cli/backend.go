package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"go-engsite/internal/bootstrap"
	"go-engsite/internal/content"
	"go-engsite/internal/model"
	"go-engsite/internal/remote"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

func newSchemaCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Create the backend tables if they do not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := c.connect(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			keys := model.AllKeys()
			if err := client.EnsureSchema(commandContext(cmd), keys...); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schema ready: %s\n", strings.Join(keys, ", "))
			return nil
		},
	}
}

func newMigrateCmd(c *cli) *cobra.Command {
	var withSchema bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Copy every local collection into the backend",
		Long: `migrate upserts each record of the local JSON store into the matching
backend table. Collections that were never written locally are seeded with
the sample content first. Records keep their ids, so running it twice is
harmless.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := c.connect(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			ctx := commandContext(cmd)
			if withSchema {
				if err := client.EnsureSchema(ctx, model.AllKeys()...); err != nil {
					return err
				}
			}
			site, _, err := c.openLocal(cmd)
			if err != nil {
				return err
			}
			return migrate(ctx, site, func(key string) tableWriter { return client.Table(key) }, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&withSchema, "schema", true, "create missing tables before copying")
	return cmd
}

// connect opens the backend; unlike the servers, commands that need it fail
// when it is unreachable.
func (c *cli) connect(cmd *cobra.Command) (*remote.Client, error) {
	if err := c.load(cmd); err != nil {
		return nil, err
	}
	if !c.cfg.Backend.Enabled {
		return nil, fmt.Errorf("backend is disabled (set backend.enabled)")
	}
	return remote.Connect(commandContext(cmd), bootstrap.RemoteConfig(c.cfg), c.logger)
}

// tableWriter is the part of a backend table migrate needs.
type tableWriter interface {
	Upsert(ctx context.Context, id string, doc []byte) error
}

// migrate copies every collection and reports a line per collection. Failed
// records do not stop the run; they are returned together.
func migrate(ctx context.Context, site *content.Site, table func(key string) tableWriter, out io.Writer) error {
	steps := []func() (string, int, error){
		func() (string, int, error) { return copyRepo(ctx, site.Blog.Repo(), table) },
		func() (string, int, error) { return copyRepo(ctx, site.Events.Repo(), table) },
		func() (string, int, error) { return copyRepo(ctx, site.Team.Repo(), table) },
		func() (string, int, error) { return copyRepo(ctx, site.Testimonials.Repo(), table) },
		func() (string, int, error) { return copyRepo(ctx, site.Packages.Repo(), table) },
		func() (string, int, error) { return copyRepo(ctx, site.Buttons.Repo(), table) },
		func() (string, int, error) { return copyRepo(ctx, site.Newsletter.Repo(), table) },
		func() (string, int, error) { return copyRepo(ctx, site.Contact.Repo(), table) },
		func() (string, int, error) { return copyRepo(ctx, site.Payments, table) },
	}

	var errs error
	total := 0
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return multierr.Append(errs, err)
		}
		key, n, err := step()
		total += n
		fmt.Fprintf(out, "%-24s %d copied\n", key, n)
		errs = multierr.Append(errs, err)
	}
	if failed := multierr.Errors(errs); len(failed) > 0 {
		fmt.Fprintf(out, "Migrated %d records, %d failed\n", total, len(failed))
		return errs
	}
	fmt.Fprintf(out, "Migrated %d records\n", total)
	return nil
}

func copyRepo[T model.Entity](ctx context.Context, repo *content.Repository[T], table func(key string) tableWriter) (string, int, error) {
	key := repo.Key()
	items, err := repo.Local().Get()
	if err != nil {
		return key, 0, fmt.Errorf("reading %s: %w", key, err)
	}
	tbl := table(key)

	var errs error
	n := 0
	for _, item := range items {
		doc, err := json.Marshal(item)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s/%s: %w", key, item.EntityID(), err))
			continue
		}
		if err := tbl.Upsert(ctx, item.EntityID(), doc); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s/%s: %w", key, item.EntityID(), err))
			continue
		}
		n++
	}
	return key, n, errs
}
