package main

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/Luismorlan/infoflow/app_config"
	"github.com/Luismorlan/infoflow/query"
	"github.com/Luismorlan/infoflow/server"
	. "github.com/Luismorlan/infoflow/utils"
	"github.com/Luismorlan/infoflow/utils/dotenv"
	"github.com/Luismorlan/infoflow/utils/flag"
	. "github.com/Luismorlan/infoflow/utils/log"
)

func cleanup() {
	CloseTracer()
	Log.Info("api server shutdown")
}

func main() {
	defer cleanup()

	if err := dotenv.LoadDotEnvs(); err != nil {
		panic(err)
	}
	flag.Parse(flag.APIServer)
	InitLogger()
	StartTracer()

	appConfig, err := app_config.ParseInfoFlowAppConfig(flag.ConfigPath)
	if err != nil {
		Log.Fatalf("fail to load app config: %v", err)
	}
	loc, err := appConfig.Location()
	if err != nil {
		Log.Fatal(err)
	}

	db, err := GetDBConnection()
	if err != nil {
		Log.Fatalf("fail to connect to db: %v", err)
	}

	opts := server.Options{TraceService: flag.ServiceName}
	cache, err := GetRedisCache(context.Background(), appConfig.CacheTTL())
	if err != nil {
		// The api still serves, only without cache.
		Log.Errorf("redis unavailable, cache disabled: %v", err)
	} else if cache != nil {
		defer cache.Close()
		opts.Cache = cache
	}

	gin.SetMode(gin.ReleaseMode)
	router := server.NewRouter(query.NewReader(db, loc), opts)

	Log.Info("api server starts up")
	if err := router.Run(appConfig.ApiAddress()); err != nil {
		Log.Fatal(err)
	}
}
