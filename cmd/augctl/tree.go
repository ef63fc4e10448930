package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/augeas"
	"github.com/aretw0/augeas/internal/cli"
)

var getCmd = &cobra.Command{
	Use:   "get PATH",
	Short: "Print the value of the node matching PATH",
	Args:  cli.ExactArgs(1, "exactly one PATH"),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(s *augeas.Session) error {
			v, ok, err := s.Get(args[0])
			if err != nil {
				return err
			}
			return printer().Value(args[0], v, ok)
		})
	},
}

var setCmd = &cobra.Command{
	Use:   "set PATH [VALUE]",
	Short: "Set the value of the node matching PATH and save",
	Long:  "Set creates PATH and its missing ancestors. Without VALUE the node's value is cleared.",
	Args:  cli.Args(cobra.RangeArgs(1, 2)),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(s *augeas.Session) error {
			var err error
			if len(args) == 2 {
				err = s.Set(args[0], args[1])
			} else {
				err = s.Clear(args[0])
			}
			if err != nil {
				return err
			}
			return saveOrReport(s)
		})
	},
}

var setmCmd = &cobra.Command{
	Use:   "setm BASE SUB [VALUE]",
	Short: "Set SUB below every node matching BASE and save",
	Args:  cli.Args(cobra.RangeArgs(2, 3)),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(s *augeas.Session) error {
			var (
				n   int
				err error
			)
			if len(args) == 3 {
				n, err = s.SetM(args[0], args[1], args[2])
			} else {
				n, err = s.ClearM(args[0], args[1])
			}
			if err != nil {
				return err
			}
			if err := saveOrReport(s); err != nil {
				return err
			}
			return printer().Count("setm", n)
		})
	},
}

var matchCmd = &cobra.Command{
	Use:   "match PATH",
	Short: "List the paths of the nodes matching PATH",
	Args:  cli.ExactArgs(1, "exactly one PATH"),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(s *augeas.Session) error {
			paths, err := s.Match(args[0])
			if err != nil {
				return err
			}
			return printer().Paths(paths)
		})
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm PATH",
	Short: "Remove the nodes matching PATH and save",
	Args:  cli.ExactArgs(1, "exactly one PATH"),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(s *augeas.Session) error {
			n, err := s.Rm(args[0])
			if err != nil {
				return err
			}
			if err := saveOrReport(s); err != nil {
				return err
			}
			return printer().Count("rm", n)
		})
	},
}

var mvCmd = &cobra.Command{
	Use:     "mv SRC DST",
	Aliases: []string{"move"},
	Short:   "Move the node matching SRC to DST and save",
	Args:    cli.ExactArgs(2, "SRC and DST"),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(s *augeas.Session) error {
			if err := s.Mv(args[0], args[1]); err != nil {
				return err
			}
			return saveOrReport(s)
		})
	},
}

var insCmd = &cobra.Command{
	Use:     "ins LABEL before|after PATH",
	Aliases: []string{"insert"},
	Short:   "Insert a LABEL sibling next to the node matching PATH and save",
	Args:    cli.ExactArgs(3, "LABEL, before or after, and PATH"),
	RunE: func(cmd *cobra.Command, args []string) error {
		var before bool
		switch args[1] {
		case "before":
			before = true
		case "after":
		default:
			return &augeas.Error{Kind: augeas.KindBadArgument, Op: "ins", Message: "expected before or after, got " + args[1]}
		}
		return withSession(func(s *augeas.Session) error {
			if err := s.Insert(args[2], args[0], before); err != nil {
				return err
			}
			return saveOrReport(s)
		})
	},
}

var renameCmd = &cobra.Command{
	Use:   "rename PATH LABEL",
	Short: "Relabel the nodes matching PATH and save",
	Args:  cli.ExactArgs(2, "PATH and LABEL"),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(s *augeas.Session) error {
			n, err := s.Rename(args[0], args[1])
			if err != nil {
				return err
			}
			if err := saveOrReport(s); err != nil {
				return err
			}
			return printer().Count("rename", n)
		})
	},
}

var printCmd = &cobra.Command{
	Use:   "print [PATH]",
	Short: "Print the subtrees matching PATH (default /files)",
	Args:  cli.Args(cobra.MaximumNArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "/files"
		if len(args) == 1 {
			path = args[0]
		}
		format, _ := cmd.Flags().GetString("format")
		return withSession(func(s *augeas.Session) error {
			nodes, err := cli.Collect(s, path)
			if err != nil {
				return err
			}
			switch format {
			case "mermaid":
				matched, err := s.Match(path)
				if err != nil {
					return err
				}
				return printer().Mermaid(nodes, matched)
			case "", "augtool":
				return printer().Tree(nodes)
			default:
				return &augeas.Error{Kind: augeas.KindBadArgument, Op: "print", Message: "unknown format " + format}
			}
		})
	},
}

var spanCmd = &cobra.Command{
	Use:   "span PATH",
	Short: "Print where the node matching PATH comes from in its file",
	Args:  cli.ExactArgs(1, "exactly one PATH"),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionOpts.EnableSpan = true
		return withSession(func(s *augeas.Session) error {
			sp, err := s.Span(args[0])
			if err != nil {
				return err
			}
			return printer().JSON(sp)
		})
	},
}

func init() {
	printCmd.Flags().String("format", "augtool", "Output format: augtool or mermaid")
	rootCmd.AddCommand(getCmd, setCmd, setmCmd, matchCmd, rmCmd, mvCmd, insCmd, renameCmd, printCmd, spanCmd)
}
