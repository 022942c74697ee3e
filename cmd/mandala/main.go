package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mandala/internal/config"
	"mandala/internal/grid"
	"mandala/internal/logging"
)

// Exit codes by error kind.
const (
	exitOK                = 0
	exitFailure           = 1
	exitInvalidGrid       = 2
	exitMalformedDocument = 3
	exitIncompatibleGrids = 4
	exitIOFailure         = 5
)

// options holds the parsed flags for one invocation.
type options struct {
	verbose    bool
	configPath string
	profile    string

	mirror    bool
	prompt    string
	promptSet bool // --prompt was given, possibly with an empty topic
	export    string
	compare   bool
	initCfg   bool

	format   string
	name     string
	order    string
	noHeader bool
	demo     bool
}

var (
	// Logger
	logger = zap.NewNop()

	// cfg is loaded in PersistentPreRunE.
	cfg = config.DefaultConfig()
)

// rootCmd represents the base command
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "mandala",
		Short: "Mandala Grid - a weighted 3x3 personality framework for AI agents",
		Long: `mandala prints, exports, compares and composes prompts from a Mandala Grid:
nine labeled positions on a 3x3 board, each carrying a bias weight in [0,1].

With no mode flag the loaded grid is displayed as a table.`,
		Example: `  mandala
  mandala --prompt "Should I open-source my AI framework?"
  mandala --export grid.json
  mandala --compare a.json b.yaml
  mandala --profile skeptic.yaml --mirror`,
		Args: func(cmd *cobra.Command, args []string) error {
			if opts.compare {
				return cobra.ExactArgs(2)(cmd, args)
			}
			return cobra.NoArgs(cmd, args)
		},
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(opts)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.promptSet = cmd.Flags().Changed("prompt")
			if opts.name != "" && opts.export == "" {
				return errors.New("--name requires --export")
			}
			return run(cmd.OutOrStdout(), opts, args)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logging.Sync()
		},
	}

	f := cmd.Flags()
	f.BoolVar(&opts.mirror, "mirror", false, "Compare the loaded grid against the built-in default and reflect on it")
	f.StringVar(&opts.prompt, "prompt", "", "Compose a weighted reasoning prompt for a topic")
	f.StringVar(&opts.export, "export", "", "Write the loaded grid to a document at this path")
	f.BoolVar(&opts.compare, "compare", false, "Compare two grid documents given as arguments")
	f.BoolVar(&opts.initCfg, "init-config", false, "Write the effective configuration to the config path")
	cmd.MarkFlagsMutuallyExclusive("mirror", "prompt", "export", "compare", "init-config")

	f.StringVar(&opts.profile, "profile", "", "Grid document to load instead of the default")
	f.StringVar(&opts.format, "format", "", "Export format: json or yaml (default from extension, then config)")
	f.StringVar(&opts.name, "name", "", "Profile name written by --export (default: the loaded grid's)")
	f.StringVar(&opts.order, "order", "", "Prompt order: center-bias, grid or index (default from config)")
	f.BoolVar(&opts.noHeader, "no-header", false, "Omit the run header from composed prompts")
	f.BoolVar(&opts.demo, "demo", false, "Append a sample prompt to the display")

	pf := cmd.PersistentFlags()
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")
	pf.StringVar(&opts.configPath, "config", "", "Config file (default "+config.DefaultConfigPath+")")

	return cmd
}

// setup loads .env and config, then builds the logger.
func setup(opts *options) error {
	if err := config.LoadEnvFile(config.DefaultEnvFile); err != nil {
		return err
	}

	if opts.configPath == "" {
		opts.configPath = config.DefaultConfigPath
	}
	path := opts.configPath
	loaded, err := config.Load(path)
	if err != nil {
		return err
	}
	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	cfg = loaded

	if _, err := logging.Initialize(cfg.Logging, opts.verbose); err != nil {
		return err
	}
	logger = logging.Get(logging.CategoryCLI)
	logger.Debug("configuration loaded",
		zap.String("path", path),
		zap.String("profile", cfg.Profile),
		zap.String("order", cfg.Prompt.Order))
	return nil
}

// exitCode maps err onto the process exit status.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	switch grid.KindOf(err) {
	case grid.KindInvalidGrid:
		return exitInvalidGrid
	case grid.KindMalformedDocument:
		return exitMalformedDocument
	case grid.KindIncompatibleGrids:
		return exitIncompatibleGrids
	case grid.KindIOFailure:
		return exitIOFailure
	}
	return exitFailure
}

// reportError writes the one-line "<kind>: <reason>" diagnostic.
func reportError(w io.Writer, err error) {
	var ge *grid.Error
	if errors.As(err, &ge) {
		fmt.Fprintln(w, ge.Error())
		return
	}
	fmt.Fprintf(w, "error: %v\n", err)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		reportError(os.Stderr, err)
		logging.Sync()
		os.Exit(exitCode(err))
	}
}
