package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Luismorlan/infoflow/app_config"
	"github.com/Luismorlan/infoflow/utils"
	"github.com/Luismorlan/infoflow/utils/dotenv"
	"github.com/Luismorlan/infoflow/utils/flag"
	Logger "github.com/Luismorlan/infoflow/utils/log"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "infoflow",
		Short:         "Collect, score, classify and brief content from many platforms",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := dotenv.LoadDotEnvs(); err != nil {
				return err
			}
			Logger.InitLogger()
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&flag.ConfigPath, "config", flag.ConfigPath, "path to the yaml application config")
	rootCmd.PersistentFlags().StringVar(&flag.ServiceName, "service", flag.CLI, "service name reported in logs")

	rootCmd.AddCommand(fetchCmd())
	rootCmd.AddCommand(scoreCmd())
	rootCmd.AddCommand(classifyCmd())
	rootCmd.AddCommand(briefCmd())
	rootCmd.AddCommand(publishCmd())
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(tagCmd())
	rootCmd.AddCommand(serveCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		Logger.Log.Error(err)
		os.Exit(1)
	}
}

// setup loads the app config, migrates the db and builds the pipeline.
func setup(ctx context.Context) (*app_config.InfoFlowAppConfig, *app_config.Components, error) {
	appConfig, err := app_config.ParseInfoFlowAppConfig(flag.ConfigPath)
	if err != nil {
		return nil, nil, err
	}
	db, err := utils.GetDBConnection()
	if err != nil {
		return nil, nil, err
	}
	if err := utils.DatabaseSetupAndMigration(db); err != nil {
		return nil, nil, err
	}
	components, err := app_config.NewComponents(ctx, appConfig, db)
	if err != nil {
		return nil, nil, err
	}
	return appConfig, components, nil
}
