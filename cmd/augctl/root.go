package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/augeas"
	"github.com/aretw0/augeas/internal/cli"
	"github.com/aretw0/augeas/internal/logging"
)

var (
	sessionOpts cli.Options
	jsonOutput  bool
	logLevel    string
	logger      = logging.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "augctl",
	Short: "augctl edits configuration files through the augeas tree",
	Long: `augctl parses configuration files into a tree, lets you query and change it
with path expressions, and writes the changes back to disk.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Quiet unless a level was asked for.
		if !cmd.Flags().Changed("log-level") {
			env := os.Getenv("AUGCTL_LOG_LEVEL")
			if env == "" {
				return nil
			}
			logLevel = env
		}
		level, err := logging.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		logger = logging.New(level)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		printer().Error(os.Stderr, err)
		if cli.IsUsage(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetFlagErrorFunc(cli.FlagError)

	f := rootCmd.PersistentFlags()
	f.StringVarP(&sessionOpts.Root, "root", "r", "", "Filesystem root of the tree (default $AUGEAS_ROOT or /)")
	f.StringSliceVarP(&sessionOpts.LoadPath, "include", "I", nil, "Extra lens search directory (repeatable)")
	f.StringVarP(&sessionOpts.Profile, "profile", "p", "", "YAML session profile")
	f.StringVar(&sessionOpts.Engine, "engine", "", "Engine to open (default $AUGEAS_ENGINE or memory)")
	f.StringVar(&sessionOpts.SaveMode, "save-mode", "", "overwrite, backup, newfile or noop")
	f.BoolVarP(&sessionOpts.NoLoad, "noload", "L", false, "Do not load any files at startup")
	f.BoolVarP(&sessionOpts.NoAutoload, "noautoload", "A", false, "Do not autoload modules")
	f.BoolVar(&sessionOpts.TypeCheck, "typecheck", false, "Typecheck lenses")
	f.BoolVar(&sessionOpts.EnableSpan, "span", false, "Record position information of nodes")
	f.StringArrayVarP(&sessionOpts.Transforms, "transform", "t", nil, "Extra transform LENS=GLOB[,GLOB...] (repeatable)")
	f.BoolVar(&jsonOutput, "json", false, "Print results as JSON")
	f.StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn or error")
}

func printer() *cli.Printer {
	return cli.NewPrinter(os.Stdout, jsonOutput)
}

// withSession opens the session described by the flags, runs fn and closes
// it again.
func withSession(fn func(*augeas.Session) error) (err error) {
	s, err := sessionOpts.Open(logger, augeas.Hooks{})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(s)
}

// saveOrReport saves s and prints the per file errors when that fails.
func saveOrReport(s *augeas.Session) error {
	if err := s.Save(); err != nil {
		if fes, ferr := s.FileErrors(); ferr == nil && len(fes) > 0 {
			_ = cli.NewPrinter(os.Stderr, jsonOutput).FileErrors(fes)
		}
		return err
	}
	logger.Debug("saved", "mode", s.Options().SaveMode.String())
	return nil
}
