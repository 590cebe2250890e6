// Package cli implements drivectl, a command line client for a drive backed
// by a repository directory.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/gitdrive/internal/infrastructure/config"
	"github.com/GriffinCanCode/gitdrive/internal/infrastructure/logging"
	"github.com/GriffinCanCode/gitdrive/internal/objectstore"
	"github.com/GriffinCanCode/gitdrive/internal/settings"
	"github.com/GriffinCanCode/gitdrive/internal/vfs"
	"github.com/GriffinCanCode/gitdrive/internal/vfs/codec"
)

// Options configures a command tree. Zero values fall back to the process
// environment and standard streams.
type Options struct {
	Config *config.Config
	// Source overrides the coordinates lookup.
	Source settings.Source
	Out    io.Writer
	Err    io.Writer
}

// envCoordinates lets the drive be addressed without a settings file.
type envCoordinates struct {
	Token    string `envconfig:"TOKEN"`
	Owner    string `envconfig:"OWNER"`
	Repo     string `envconfig:"REPO"`
	Branch   string `envconfig:"BRANCH"`
	Dir      string `envconfig:"DIR"`
	UseProxy bool   `envconfig:"USE_PROXY"`
}

type styles struct {
	dir  lipgloss.Style
	dim  lipgloss.Style
	warn lipgloss.Style
	fail lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		dir:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("33")),
		dim:  r.NewStyle().Foreground(lipgloss.Color("241")),
		warn: r.NewStyle().Foreground(lipgloss.Color("214")),
		fail: r.NewStyle().Foreground(lipgloss.Color("196")),
	}
}

type app struct {
	opts Options
	cfg  *config.Config

	settingsPath string
	verbose      bool

	out    io.Writer
	errOut io.Writer
	style  styles
	logger *logging.Logger
	engine *vfs.Engine
}

// NewRootCommand builds the drivectl command tree.
func NewRootCommand(opts Options) *cobra.Command {
	a := &app{opts: opts, out: opts.Out, errOut: opts.Err}
	if a.out == nil {
		a.out = os.Stdout
	}
	if a.errOut == nil {
		a.errOut = os.Stderr
	}
	a.cfg = opts.Config
	if a.cfg == nil {
		a.cfg = config.LoadOrDefault()
	}
	a.style = newStyles(a.out)

	root := &cobra.Command{
		Use:   "drivectl",
		Short: "drivectl manages files in a repository-backed drive",
		Long: `drivectl lists, uploads, downloads and rearranges files stored in a
directory of a GitHub repository. Every change is one commit.

The repository is read from the settings file written by the server, or
from GITDRIVE_TOKEN, GITDRIVE_OWNER, GITDRIVE_REPO, GITDRIVE_BRANCH and
GITDRIVE_DIR when GITDRIVE_TOKEN is set.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.SetOut(a.out)
	root.SetErr(a.errOut)
	root.PersistentFlags().StringVar(&a.settingsPath, "settings", a.cfg.Settings.Path, "settings file holding the repository coordinates")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log every backend call to stderr")

	root.AddCommand(
		a.lsCmd(),
		a.treeCmd(),
		a.getCmd(),
		a.putCmd(),
		a.pushCmd(),
		a.mkdirCmd(),
		a.rmCmd(),
		a.rmdirCmd(),
		a.mvCmd(),
		a.cpCmd(),
		a.exportCmd(),
		a.repoCmd(),
	)
	return root
}

// Execute runs drivectl with the process arguments and returns the exit code.
func Execute() int {
	root := NewRootCommand(Options{})
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, newStyles(os.Stderr).fail.Render("error:"), err)
		return 1
	}
	return 0
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	logCfg := logging.FromConfig(a.cfg.Logging, "stderr")
	if a.verbose {
		logCfg.Level = "debug"
		logCfg.Development = true
	} else if !a.cfg.Logging.Development {
		logCfg.Level = "warn"
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	a.logger = logger

	source, err := a.source()
	if err != nil {
		return err
	}
	client := objectstore.New(objectstore.Options{
		BaseURL:           a.cfg.Store.BaseURL,
		RawBaseURL:        a.cfg.Store.RawBaseURL,
		ProxyPrefix:       a.cfg.Store.ProxyPrefix,
		Timeout:           a.cfg.Store.Timeout,
		ReadRetries:       a.cfg.Store.ReadRetries,
		RequestsPerSecond: a.cfg.Store.RequestsPerSecond,
		UserAgent:         "drivectl",
		Logger:            logger.Logger,
	})
	a.engine = vfs.New(client, source,
		vfs.WithCodec(codec.New(a.cfg.Transfer.MaxObjectSize)),
		vfs.WithLogger(logger.Logger),
	)
	logger.Debug("drivectl ready", zap.String("command", cmd.Name()))
	return nil
}

func (a *app) source() (settings.Source, error) {
	if a.opts.Source != nil {
		return a.opts.Source, nil
	}
	var env envCoordinates
	if err := envconfig.Process("GITDRIVE", &env); err != nil {
		return nil, fmt.Errorf("failed to read GITDRIVE_* environment: %w", err)
	}
	if env.Token != "" {
		return settings.Static{
			Token:    env.Token,
			Owner:    env.Owner,
			Repo:     env.Repo,
			Branch:   env.Branch,
			Dir:      env.Dir,
			UseProxy: env.UseProxy,
		}, nil
	}
	return settings.NewStore(a.settingsPath, a.cfg.Settings.Secret), nil
}

// progress prints each step of a recursive operation to stderr.
func (a *app) progress(ev vfs.Event) {
	if ev.Err != nil {
		fmt.Fprintf(a.errOut, "%s %s: %v\n", a.style.fail.Render(ev.Step), ev.Path, ev.Err)
		return
	}
	fmt.Fprintf(a.errOut, "%s %s\n", a.style.dim.Render(ev.Step), ev.Path)
}

// report turns a tree operation result into command output. Warnings are
// printed and do not fail the command.
func (a *app) report(err error) error {
	if err == nil {
		return nil
	}
	if vfs.IsWarning(err) {
		fmt.Fprintln(a.errOut, a.style.warn.Render("warning:"), err)
		return nil
	}
	if agg, ok := vfs.AsAggregate(err); ok {
		for _, f := range agg.Failures {
			fmt.Fprintf(a.errOut, "%s %s %s: %v\n", a.style.fail.Render("failed"), f.Op, f.Path, f.Err)
		}
		return fmt.Errorf("%s %s: %d path(s) failed", agg.Op, agg.Path, len(agg.Failures))
	}
	return err
}
