// Command vdiff diffs, patches and merges HTML documents through virtual
// tree reconciliation.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/dannyswat/vdiff"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
)

// app carries what every command needs once flags and config are resolved.
type app struct {
	configPath string
	keyAttr    string
	logLevel   string
	colorMode  string

	cfg  Config
	opts []vdiff.Option
	out  io.Writer
}

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %s\n", color.RedString("Error:"), err)
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{out: stdout}

	rootCmd := &cobra.Command{
		Use:   "vdiff",
		Short: "Diff and patch HTML documents as virtual trees",
		Long: `vdiff reconciles two HTML documents into a positional patch set and
replays patch sets against a document without rebuilding it.

Children carrying a key attribute are matched by key, so reordered
lists turn into moves instead of rewrites.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd, stderr)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default "+defaultConfigFile+" if present)")
	flags.StringVar(&a.keyAttr, "key", "", "attribute used to key list items")
	flags.StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error")
	flags.StringVar(&a.colorMode, "color", "", "auto, always or never")

	rootCmd.AddCommand(
		diffCmd(a),
		patchCmd(a),
		mergeCmd(a),
		checkCmd(a),
		versionCmd(a),
	)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	return rootCmd
}

func (a *app) setup(cmd *cobra.Command, stderr io.Writer) error {
	cfg, err := LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("key") {
		cfg.KeyAttr = a.keyAttr
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if cmd.Flags().Changed("color") {
		cfg.Color = a.colorMode
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := cfg.Logger(stderr)
	if err != nil {
		return err
	}
	switch cfg.Color {
	case "always":
		color.NoColor = false
	case "never":
		color.NoColor = true
	default:
		f, ok := a.out.(*os.File)
		color.NoColor = !ok || !(isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
	}

	a.cfg = cfg
	a.opts = []vdiff.Option{
		vdiff.WithKey(vdiff.KeyAttr(cfg.KeyAttr)),
		vdiff.WithLogger(logger),
	}
	logger.Debug("configuration loaded", "key_attr", cfg.KeyAttr, "color", cfg.Color)
	return nil
}

func versionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.out, "vdiff %s (%s)\n", version, commit)
		},
	}
}
