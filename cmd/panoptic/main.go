package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/Luismorlan/infoflow/app_config"
	"github.com/Luismorlan/infoflow/panoptic"
	"github.com/Luismorlan/infoflow/panoptic/modules"
	"github.com/Luismorlan/infoflow/utils"
	"github.com/Luismorlan/infoflow/utils/dotenv"
	"github.com/Luismorlan/infoflow/utils/flag"
	Logger "github.com/Luismorlan/infoflow/utils/log"
)

// init() will always be called on before the execution of main function.
func init() {
	if err := dotenv.LoadDotEnvs(); err != nil {
		panic(err)
	}
}

// NewDogStatsdClient falls back to a no-op client when the agent address is
// not configured.
func NewDogStatsdClient() statsd.ClientInterface {
	addr := os.Getenv("DD_AGENT_ADDRESS")
	if addr == "" {
		return &statsd.NoOpClient{}
	}
	client, err := statsd.New(addr)
	if err != nil {
		panic(err)
	}
	return client
}

func adminAddress() string {
	if addr := os.Getenv("PANOPTIC_ADMIN_ADDRESS"); addr != "" {
		return addr
	}
	return ":8081"
}

func main() {
	flag.Parse(flag.Panoptic)
	Logger.InitLogger()

	appConfig, err := app_config.ParseInfoFlowAppConfig(flag.ConfigPath)
	if err != nil {
		Logger.Log.Fatalf("fail to load app config: %v", err)
	}
	loc, err := appConfig.Location()
	if err != nil {
		Logger.Log.Fatal(err)
	}

	db, err := utils.GetDBConnection()
	if err != nil {
		Logger.Log.Fatalf("fail to connect to db: %v", err)
	}
	if err := utils.DatabaseSetupAndMigration(db); err != nil {
		Logger.Log.Fatalf("fail to migrate db: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	components, err := app_config.NewComponents(ctx, appConfig, db)
	if err != nil {
		Logger.Log.Fatalf("fail to build pipeline: %v", err)
	}

	eventbus := gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer:            100,
			BlockPublishUntilSubscriberAck: false,
		},
		watermill.NewStdLogger(false, false),
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	scheduler, err := modules.NewScheduler(
		modules.SchedulerConfig{Name: "scheduler", Location: loc},
		appConfig.JOBS,
		modules.NewSchedulerJobDoer(eventbus),
		ctx,
	)
	if err != nil {
		Logger.Log.Fatalf("invalid jobs: %v", err)
	}

	// Initialize all engine modules here.
	engineModules := []panoptic.Module{
		// Reporter reports the execution metrics to datadog and prometheus.
		modules.NewReporter(modules.ReporterConfig{Name: "reporter"}, NewDogStatsdClient(), registry, eventbus),
		// Scheduler emits due jobs onto EventBus.
		scheduler,
		// Orchestrator listens jobs on EventBus, checks their dependencies and
		// executes them in process.
		modules.NewOrchestrator(
			modules.OrchestratorConfig{Name: "orchestrator"},
			components.Executor(),
			db,
			modules.NewDependencyChecker(db, loc),
			eventbus,
		),
	}
	engine := panoptic.NewEngine(engineModules, ctx, cancel, eventbus)

	gin.SetMode(gin.ReleaseMode)
	admin := &http.Server{Addr: adminAddress(), Handler: modules.NewAdminRouter(scheduler, registry)}
	go func() {
		if err := admin.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			Logger.Log.Errorf("admin server stopped: %v", err)
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		admin.Shutdown(context.Background())
		engine.Shutdown()
	}()

	// blocking call.
	engine.Run()

	Logger.Log.Info("engine stopped execution")
}
