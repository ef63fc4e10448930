package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/augeas"
	"github.com/aretw0/augeas/internal/cli"
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load files and report the ones that failed to parse",
	Args:  cli.Args(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(s *augeas.Session) error {
			if err := s.Load(); err != nil {
				return err
			}
			fes, err := s.FileErrors()
			if err != nil {
				return err
			}
			if err := printer().FileErrors(fes); err != nil {
				return err
			}
			if len(fes) > 0 {
				return fmt.Errorf("%d file(s) failed to load", len(fes))
			}
			return nil
		})
	},
}

var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Write back every file whose tree differs from disk",
	Args:  cli.Args(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(s *augeas.Session) error {
			if err := saveOrReport(s); err != nil {
				return err
			}
			saved, err := s.Match("/augeas/events/saved")
			if err != nil {
				return err
			}
			files := make([]string, 0, len(saved))
			for _, p := range saved {
				v, _, err := s.Get(p)
				if err != nil {
					return err
				}
				files = append(files, v)
			}
			return printer().Paths(files)
		})
	},
}

var errorsCmd = &cobra.Command{
	Use:   "errors",
	Short: "Print the errors recorded while loading files",
	Args:  cli.Args(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(s *augeas.Session) error {
			fes, err := s.FileErrors()
			if err != nil {
				return err
			}
			return printer().FileErrors(fes)
		})
	},
}

var transformsCmd = &cobra.Command{
	Use:     "transforms",
	Aliases: []string{"transform"},
	Short:   "List the registered transforms, including those added with --transform",
	Args:    cli.Args(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(s *augeas.Session) error {
			ts, err := s.Transforms()
			if err != nil {
				return err
			}
			return printer().Transforms(ts)
		})
	},
}

var srunCmd = &cobra.Command{
	Use:   "srun [FILE]",
	Short: "Run augtool commands from FILE or stdin",
	Long: `srun runs one command per line, such as:

  set /files/etc/hosts/1/alias[last()+1] web
  rm /files/etc/hosts/*[canonical = "old"]
  save

It stops at the first failing command.`,
	Args: cli.Args(cobra.MaximumNArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		var in io.Reader = os.Stdin
		if len(args) == 1 && args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}
		text, err := io.ReadAll(in)
		if err != nil {
			return err
		}
		autosave, _ := cmd.Flags().GetBool("autosave")
		return withSession(func(s *augeas.Session) error {
			res, err := s.Srun(string(text))
			fmt.Fprint(os.Stdout, res.Output)
			if err != nil {
				return err
			}
			if autosave && !res.Quit {
				return saveOrReport(s)
			}
			return nil
		})
	},
}

func init() {
	srunCmd.Flags().BoolP("autosave", "s", false, "Save after the commands ran")
	rootCmd.AddCommand(loadCmd, saveCmd, errorsCmd, transformsCmd, srunCmd)
}

