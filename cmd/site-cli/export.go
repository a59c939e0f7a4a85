package main

import (
	"fmt"

	"go-engsite/internal/generator"
	"go-engsite/internal/templating"

	"github.com/spf13/cobra"
)

func newExportCmd(c *cli) *cobra.Command {
	var (
		outDir    string
		staticDir string
		baseURL   string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render the public site to a directory for static hosting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			engine, err := templating.NewEngine(templating.SiteSet)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("static") {
				staticDir = c.cfg.Server.StaticDir
			}
			if baseURL == "" {
				baseURL = c.cfg.Site.BaseURL
			}

			exp := generator.NewExporter(generator.Config{
				OutDir:    outDir,
				StaticDir: staticDir,
				SiteTitle: c.cfg.Site.Title,
				BaseURL:   baseURL,
			}, engine, c.logger)

			ctx := commandContext(cmd)
			res, err := exp.Export(ctx, generator.SnapshotFrom(ctx, env.Site))
			if err != nil {
				return fmt.Errorf("export failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d pages to %s\n", len(res.Pages), outDir)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", "dist", "output directory")
	cmd.Flags().StringVar(&staticDir, "static", "", "static assets directory (default server.static_dir)")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "absolute site URL for sitemap.xml (default site.base_url)")
	return cmd
}
