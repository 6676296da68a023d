package main

import (
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/Luismorlan/infoflow/server"
	"github.com/Luismorlan/infoflow/utils/flag"
	Logger "github.com/Luismorlan/infoflow/utils/log"
)

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the read-only query api without cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			appConfig, components, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			if addr == "" {
				addr = appConfig.ApiAddress()
			}
			gin.SetMode(gin.ReleaseMode)
			router := server.NewRouter(components.Reader, server.Options{TraceService: flag.ServiceName})
			Logger.Log.WithField("address", addr).Info("api server starts up")
			return router.Run(addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, API_ADDRESS of the config by default")
	return cmd
}
