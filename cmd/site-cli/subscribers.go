package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newSubscribersCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subscribers",
		Short: "Work with newsletter subscribers",
	}

	var outFile string
	export := &cobra.Command{
		Use:   "export",
		Short: "Write every subscriber as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			w := cmd.OutOrStdout()
			if outFile != "" {
				f, err := os.Create(outFile)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			if err := env.Site.Newsletter.ExportCSV(commandContext(cmd), w); err != nil {
				return fmt.Errorf("exporting subscribers: %w", err)
			}
			return nil
		},
	}
	export.Flags().StringVarP(&outFile, "out", "o", "", "write to a file instead of stdout")
	cmd.AddCommand(export)
	return cmd
}
