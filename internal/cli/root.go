package cli

import (
	"context"
	"errors"
	"io"

	"github.com/spf13/cobra"

	"costbook/internal/log"
)

// Bootstrap builds the App a command runs against.
type Bootstrap func(ctx context.Context) (*App, error)

// DefaultBootstrap reads .env and the environment, sets up logging and opens
// the App.
func DefaultBootstrap(ctx context.Context) (*App, error) {
	LoadEnvFile()
	cfg, err := LoadAndValidateConfig()
	if err != nil {
		return nil, err
	}
	return NewApp(ctx, cfg, SetupLogger(cfg.LogLevel).WithComponent(log.ComponentCLI))
}

// runtime carries the App from PersistentPreRunE to the subcommands.
type runtime struct {
	boot Bootstrap
	app  *App
	json bool
}

// Execute runs the command line in args. The App is closed even when the
// command fails, so pending replication and the last snapshot are flushed.
func Execute(ctx context.Context, boot Bootstrap, args []string, out io.Writer) (err error) {
	rt := &runtime{boot: boot}
	defer func() { err = errors.Join(err, rt.close()) }()

	root := newRootCmd(rt)
	root.SetArgs(args)
	root.SetOut(out)
	return root.ExecuteContext(ctx)
}

func newRootCmd(rt *runtime) *cobra.Command {
	root := &cobra.Command{
		Use:   "costbook",
		Short: "Track the items and other costs of a project",
		Long: `costbook records purchased items and miscellaneous costs, keeps them in a
local database and mirrors them to a remote store for the signed in user.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			app, err := rt.boot(cmd.Context())
			if err != nil {
				return err
			}
			rt.app = app
			return nil
		},
	}
	root.PersistentFlags().BoolVar(&rt.json, "json", false, "output as JSON")

	root.AddCommand(
		newSignupCmd(rt),
		newLoginCmd(rt),
		newLogoutCmd(rt),
		newWhoamiCmd(rt),
		newItemCmd(rt),
		newCostCmd(rt),
		newSummaryCmd(rt),
		newChartCmd(rt),
		newSyncCmd(rt),
		newServeCmd(rt),
	)
	return root
}

func (rt *runtime) close() error {
	if rt.app == nil {
		return nil
	}
	err := rt.app.Close()
	rt.app = nil
	return err
}
