// ABOUTME: Root cobra command and shared app lifecycle for subcommands
// ABOUTME: Loads config, builds the app, and tears it down after each command
package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/harperreed/leadsync/app"
	"github.com/harperreed/leadsync/config"
	"github.com/harperreed/leadsync/logging"
)

const (
	remoteWait   = 10 * time.Second
	disposeGrace = 10 * time.Second
)

type env struct {
	configPath string
	logLevel   string
	user       string
	version    string
	appOpts    []app.Option
}

// NewRootCmd builds the command tree. Options are applied to every app a
// subcommand opens, after the ones derived from config.
func NewRootCmd(version string, opts ...app.Option) *cobra.Command {
	e := &env{version: version, appOpts: opts}

	root := &cobra.Command{
		Use:     "leadsync",
		Short:   "Leadsync - shared sales lead finder",
		Version: version,
		Long: `Leadsync finds local businesses by category and area, and keeps a shared
lead list in sync across the team. Run "leadsync tui" for the interactive view
or "leadsync mcp" to expose the lead tools to an agent.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&e.configPath, "config", "", "Config file (default: "+config.DefaultPath()+")")
	root.PersistentFlags().StringVar(&e.logLevel, "log-level", "", "Override log.level")
	root.PersistentFlags().StringVar(&e.user, "user", "", "Act as this team member")

	root.AddCommand(
		e.searchCmd(),
		e.listCmd(),
		e.showCmd(),
		e.addCmd(),
		e.addSocialCmd(),
		e.noteCmd(),
		e.callCmd(),
		e.setStatusCmd(),
		e.assignCmd(),
		e.markCmd(),
		e.unmarkCmd(),
		e.deleteCmd(),
		e.clearCmd(),
		e.exportCmd(),
		e.importCmd(),
		e.statsCmd(),
		e.vizCmd(),
		e.syncCmd(),
		e.mcpCmd(),
		e.serveCmd(),
		e.tuiCmd(),
		configCmd(),
	)
	return root
}

func (e *env) open(cmd *cobra.Command, extra ...app.Option) (*app.App, error) {
	cfg, err := config.Load(e.configPath)
	if err != nil {
		return nil, err
	}
	if e.user != "" {
		role := cfg.RoleOf(e.user)
		cfg.User.Name = e.user
		cfg.User.Role = role
	}
	level := cfg.Log.Level
	if e.logLevel != "" {
		level = e.logLevel
	}

	opts := []app.Option{app.WithLogger(logging.New(level, cmd.ErrOrStderr()))}
	opts = append(opts, extra...)
	opts = append(opts, e.appOpts...)
	a := app.New(cfg, opts...)
	if err := a.Init(cmd.Context()); err != nil {
		return nil, errors.Join(err, a.Dispose(context.Background()))
	}
	return a, nil
}

func dispose(a *app.App, errp *error) {
	ctx, cancel := context.WithTimeout(context.Background(), disposeGrace)
	defer cancel()
	if err := a.Dispose(ctx); err != nil && *errp == nil {
		*errp = fmt.Errorf("shutdown: %w", err)
	}
}

// oneShot runs fn against shared state and waits for its writes to land.
func (e *env) oneShot(fn func(cmd *cobra.Command, args []string, a *app.App) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		a, err := e.open(cmd)
		if err != nil {
			return err
		}
		defer dispose(a, &err)

		wctx, cancel := context.WithTimeout(cmd.Context(), remoteWait)
		if werr := a.WaitRemote(wctx); werr != nil {
			log := a.Logger()
			log.Warn().Err(werr).Msg("remote not loaded; using local cache")
		}
		cancel()

		if err := fn(cmd, args, a); err != nil {
			return err
		}
		return a.WaitIdle(cmd.Context())
	}
}

// session runs a long-lived surface that manages its own lifetime.
func (e *env) session(fn func(cmd *cobra.Command, args []string, a *app.App) error, extra ...app.Option) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		a, err := e.open(cmd, extra...)
		if err != nil {
			return err
		}
		defer dispose(a, &err)
		return fn(cmd, args, a)
	}
}
