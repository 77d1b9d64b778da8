// Package cli is the command-line host for the news pipeline.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"newsdesk/internal/app"
	"newsdesk/internal/browser"
	"newsdesk/internal/catalog"
	"newsdesk/internal/config"
	"newsdesk/internal/domain"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// SetVersionInfo is called from main with values injected at build time.
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
}

// AppFactory builds the application once flags and config are known.
type AppFactory func(ctx context.Context, cfg *config.Config) (*app.App, error)

type options struct {
	feed       string
	offline    bool
	configPath string
}

type runtime struct {
	opts    options
	factory AppFactory
	openURL func(string) error
	cfg     *config.Config
	app     *app.App
}

// NewRootCommand assembles the command tree. factory may be nil to use app.New.
func NewRootCommand(factory AppFactory) *cobra.Command {
	return newRootCommand(factory, browser.Open)
}

func newRootCommand(factory AppFactory, openURL func(string) error) *cobra.Command {
	if factory == nil {
		factory = app.New
	}
	rt := &runtime{factory: factory, openURL: openURL}

	root := &cobra.Command{
		Use:           "newsdesk",
		Short:         "Read BBC News headlines and articles from the terminal",
		Long:          "newsdesk fetches news feeds and articles, keeps a local cache and falls back to it when the network is unavailable.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return rt.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if rt.app != nil {
				return rt.app.Close()
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.list(cmd)
		},
	}
	root.PersistentFlags().StringVarP(&rt.opts.feed, "feed", "f", "", "feed name (world, technology, business, ...) or feed URL")
	root.PersistentFlags().BoolVar(&rt.opts.offline, "offline", false, "never touch the network, use cached copies only")
	root.PersistentFlags().StringVar(&rt.opts.configPath, "config", "", "path to an HCL config file")

	root.AddCommand(
		rt.listCmd(),
		rt.showCmd(),
		rt.openCmd(),
		rt.feedsCmd(),
		rt.cacheCmd(),
		rt.archiveCmd(),
		rt.serveCmd(),
		versionCmd(),
	)
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute(ctx context.Context) int {
	root := NewRootCommand(nil)
	if err := root.ExecuteContext(ctx); err != nil {
		errOut := root.ErrOrStderr()
		fmt.Fprintln(errOut, "Error:", err)
		if hint := errorHint(err); hint != "" {
			fmt.Fprintln(errOut, hint)
		}
		return 1
	}
	return 0
}

func errorHint(err error) string {
	switch {
	case errors.Is(err, domain.ErrOffline):
		return "Nothing cached for this feed yet. Run once without --offline while connected."
	case domain.IsRetryable(err):
		return "The request failed and no cached copy exists. Check your connection and try again."
	default:
		return ""
	}
}

// setup loads .env, config and the app. Commands that need no app skip it.
func (rt *runtime) setup(cmd *cobra.Command) error {
	if cmd.Annotations["skipApp"] == "true" {
		return nil
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	cfg, err := config.Load(rt.opts.configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if !cmd.Flags().Changed("offline") {
		rt.opts.offline = cfg.Offline
	}
	rt.cfg = cfg
	a, err := rt.factory(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	rt.app = a
	return nil
}

// selectedFeed resolves --feed, falling back to the configured default.
func (rt *runtime) selectedFeed() (catalog.Feed, error) {
	name := rt.opts.feed
	if name == "" {
		name = rt.cfg.DefaultFeed
	}
	if u, err := url.Parse(name); err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" {
		return catalog.Feed{Name: u.Host, URL: name}, nil
	}
	if name == "" {
		return catalog.Default(), nil
	}
	return catalog.Lookup(name)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Annotations: map[string]string{"skipApp": "true"},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "newsdesk %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}
