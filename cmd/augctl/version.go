package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/augeas"
	"github.com/aretw0/augeas/pkg/registry"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of augctl",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(cmd.OutOrStdout(), "augctl version %s\n", strings.TrimSpace(augeas.Version))
		fmt.Fprintf(cmd.OutOrStdout(), "engines: %s\n", strings.Join(registry.Names(), ", "))
		if sessionOpts.Engine == "" {
			return nil
		}
		return withSession(func(s *augeas.Session) error {
			v, _, err := s.Get(augeas.PathVersion)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "engine %s version %s\n", s.Options().Engine, v)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
