// Package run contains the command to run a workspace pipeline service.
package run

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/hcengineering/platform-sub028/pkg/core"
	"github.com/hcengineering/platform-sub028/pkg/hierarchy"
	"github.com/hcengineering/platform-sub028/pkg/logger"
	"github.com/hcengineering/platform-sub028/pkg/model"
	"github.com/hcengineering/platform-sub028/pkg/pipeline"
	"github.com/hcengineering/platform-sub028/pkg/storage"
	"github.com/hcengineering/platform-sub028/pkg/storage/memory"
	"github.com/hcengineering/platform-sub028/pkg/storage/postgres"
	"github.com/hcengineering/platform-sub028/pkg/storage/sqlcommon"
	"github.com/hcengineering/platform-sub028/pkg/storage/sqlite"
	"github.com/hcengineering/platform-sub028/pkg/telemetry"
)

const (
	datastoreEngineFlag   = "datastore-engine"
	datastoreURIFlag      = "datastore-uri"
	datastoreUsernameFlag = "datastore-username"
	datastorePasswordFlag = "datastore-password"
	workspaceFlag         = "workspace"
	metricsEnabledFlag    = "metrics-enabled"
	metricsAddrFlag       = "metrics-addr"
	logFormatFlag         = "log-format"
	logLevelFlag          = "log-level"
)

func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the workspace transaction pipeline",
		Long:  "Run the workspace transaction pipeline.",
		RunE:  run,
		Args:  cobra.NoArgs,
	}

	flags := cmd.Flags()

	flags.String(datastoreEngineFlag, "memory", "the datastore engine that will be used for persistence. Allowed values: memory, postgres, sqlite")
	flags.String(datastoreURIFlag, "", "the connection uri to use to connect to the datastore (for any engine other than 'memory')")
	flags.String(datastoreUsernameFlag, "", "the connection username to connect to the datastore (overwrites any username provided in the connection uri)")
	flags.String(datastorePasswordFlag, "", "the connection password to connect to the datastore (overwrites any password provided in the connection uri)")
	flags.String(workspaceFlag, "default", "the workspace served by this pipeline instance")
	flags.Bool(metricsEnabledFlag, true, "enable/disable prometheus metrics on the '/metrics' endpoint")
	flags.String(metricsAddrFlag, "0.0.0.0:2112", "the host:port address to serve the prometheus metrics server on")
	flags.String(logFormatFlag, "text", "the log format to output logs in. Allowed values: text, json")
	flags.String(logLevelFlag, "info", "the log level to use. Allowed values: none, debug, info, warn, error, panic, fatal")

	cmd.PreRun = bindRunFlags(flags)

	return cmd
}

func run(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.MustNewLogger(viper.GetString(logFormatFlag), viper.GetString(logLevelFlag))

	engine := viper.GetString(datastoreEngineFlag)
	workspace := viper.GetString(workspaceFlag)

	h, err := hierarchy.New(model.Bootstrap())
	if err != nil {
		return fmt.Errorf("build classifier hierarchy: %w", err)
	}

	factory, err := adapterFactory(engine, workspace, h, log)
	if err != nil {
		return err
	}

	manager, err := pipeline.NewAdapterManager(pipeline.AdapterManagerConfig{
		DomainAdapters: map[core.Domain]string{},
		DefaultAdapter: engine,
		Factories:      map[string]storage.Factory{engine: factory},
	}, log)
	if err != nil {
		return fmt.Errorf("configure adapter manager: %w", err)
	}

	metrics := telemetry.NewMetrics(prometheus.DefaultRegisterer)

	pctx := &pipeline.Context{
		WorkspaceID: uuid.New(),
		Workspace:   workspace,
		Hierarchy:   h,
		Model:       model.NewStore(h),
		Manager:     manager,
		Logger:      log,
		Metrics:     metrics,
	}

	p, err := pipeline.New(ctx, pctx, pipeline.DefaultFactories(nil, nil)...)
	if err != nil {
		return fmt.Errorf("assemble pipeline: %w", err)
	}
	defer func() {
		if err := p.Close(); err != nil {
			log.Error("failed to close pipeline", zap.Error(err))
		}
	}()

	var metricsServer *http.Server
	if viper.GetBool(metricsEnabledFlag) {
		addr := viper.GetString(metricsAddrFlag)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{Addr: addr, Handler: mux}

		go func() {
			log.Info("starting metrics server", zap.String("addr", addr))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server closed unexpectedly", zap.Error(err))
			}
		}()
	}

	log.Info("pipeline ready",
		zap.String("workspace", workspace),
		zap.String("engine", engine))

	<-ctx.Done()
	log.Info("shutting down")

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Error("failed to shutdown metrics server", zap.Error(err))
		}
	}
	return nil
}

// adapterFactory builds the lazy storage factory for the configured engine.
// Connections are only opened when the first domain is touched.
func adapterFactory(engine, workspace string, h *hierarchy.Hierarchy, log logger.Logger) (storage.Factory, error) {
	uri := viper.GetString(datastoreURIFlag)
	opts := []sqlcommon.DatastoreOption{
		sqlcommon.WithWorkspace(workspace),
		sqlcommon.WithUsername(viper.GetString(datastoreUsernameFlag)),
		sqlcommon.WithPassword(viper.GetString(datastorePasswordFlag)),
		sqlcommon.WithLogger(log),
		sqlcommon.WithMetrics(),
	}

	switch engine {
	case "memory":
		return func(context.Context) (storage.Adapter, error) {
			return memory.New(h), nil
		}, nil
	case "postgres":
		return func(ctx context.Context) (storage.Adapter, error) {
			return postgres.New(ctx, uri, h, sqlcommon.NewConfig(opts...))
		}, nil
	case "sqlite":
		return func(ctx context.Context) (storage.Adapter, error) {
			return sqlite.New(ctx, uri, h, sqlcommon.NewConfig(opts...))
		}, nil
	default:
		return nil, fmt.Errorf("storage engine '%s' is unsupported", engine)
	}
}
