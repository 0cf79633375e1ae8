package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"accommodation-portal/cmd/accomctl/commands"
	"accommodation-portal/internal/bootstrap"
)

func main() {
	var configPath, envFile string
	appCtx := &commands.AppContext{}

	rootCmd := &cobra.Command{
		Use:          "accomctl",
		Short:        "Accommodation portal admin CLI",
		Long:         `Administrative tasks for the accommodation portal: schema migrations, test users and room flag reconciliation.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			app, err := bootstrap.Open(bootstrap.Options{ConfigPath: configPath, EnvFile: envFile})
			if err != nil {
				return err
			}
			appCtx.App = app
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if appCtx.App != nil {
				appCtx.App.Close()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config")

	rootCmd.AddCommand(commands.MigrateCmd(appCtx))
	rootCmd.AddCommand(commands.SeedUsersCmd(appCtx))
	rootCmd.AddCommand(commands.ReconcileRoomsCmd(appCtx))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
