package main

import (
	"fmt"

	"github.com/jmgilman/seed/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func (c *cli) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if c.jsonOut {
				return c.encode(c.cfg)
			}
			out, err := yaml.Marshal(c.cfg)
			if err != nil {
				return err
			}
			_, err = c.stdout.Write(out)
			return err
		},
	}, &cobra.Command{
		Use:   "path",
		Short: "Print the config file in use",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			path := c.v.ConfigFileUsed()
			if path == "" {
				path = config.ConfigFilePath()
			}
			_, err := fmt.Fprintln(c.stdout, path)
			return err
		},
	})
	return cmd
}
