// Command server runs the anomaly detection HTTP service.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"github.com/galafis/Anomaly-Detection-System/internal/api"
	"github.com/galafis/Anomaly-Detection-System/internal/database"
	"github.com/galafis/Anomaly-Detection-System/pkg/alerting"
	"github.com/galafis/Anomaly-Detection-System/pkg/config"
	"github.com/galafis/Anomaly-Detection-System/pkg/detector"
	"github.com/galafis/Anomaly-Detection-System/pkg/logger"
)

const version = "1.0.0"

func main() {
	var (
		configPath  = flag.String("config", "", "path to YAML config file")
		writeConfig = flag.String("write-config", "", "write the default config to a file and exit")
	)
	flag.Parse()

	if *writeConfig != "" {
		if err := config.Default().WriteExample(*writeConfig); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("wrote default config to %s\n", *writeConfig)
		return
	}

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	log := logger.New(&logger.Config{
		Level:   logger.ParseLevel(cfg.Logging.Level),
		Format:  logger.ParseFormat(cfg.Logging.Format),
		Output:  os.Stdout,
		Service: "anomaly-detection",
		Version: version,
	})
	log.Info("starting anomaly detection service v%s", version)

	conn, err := database.NewConnection(&cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer conn.Close()
	store := database.NewStore(conn)

	dispatcher := buildDispatcher(cfg, log)

	manager := detector.NewManager(detector.Params{
		FeatureCount:     cfg.Detector.FeatureCount,
		RandomSeed:       cfg.Detector.RandomSeed,
		Trees:            cfg.Detector.Trees,
		SampleSize:       cfg.Detector.SampleSize,
		Contamination:    cfg.Detector.Contamination,
		Nu:               cfg.Detector.Nu,
		Gamma:            cfg.Detector.Gamma,
		ModelsDir:        cfg.Detector.ModelsDir,
		BootstrapSamples: cfg.Detector.BootstrapSamples,
	}, store, log)

	engine := detector.NewEngine(manager, store, dispatcher, log, detector.EngineOptions{
		IncludeStatisticalInEnsemble: cfg.Detector.EnsembleIncludeStatistical,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("initializing models")
	if err := engine.Init(ctx); err != nil {
		return fmt.Errorf("initializing models: %w", err)
	}

	var scheduler *cron.Cron
	if cfg.Detector.RetrainSchedule != "" {
		scheduler = cron.New()
		_, err := scheduler.AddFunc(cfg.Detector.RetrainSchedule, func() {
			if err := engine.TrainAsync(context.Background(), nil, ""); err != nil {
				log.Warn("scheduled retraining skipped: %v", err)
			}
		})
		if err != nil {
			return fmt.Errorf("invalid retrain schedule %q: %w", cfg.Detector.RetrainSchedule, err)
		}
		scheduler.Start()
		log.Info("scheduled retraining enabled: %s", cfg.Detector.RetrainSchedule)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(engine, log),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if scheduler != nil {
		<-scheduler.Stop().Done()
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown: %v", err)
	}
	if err := engine.Shutdown(shutdownCtx); err != nil {
		log.Warn("engine shutdown: %v", err)
	}
	log.Info("shutdown complete")
	return nil
}

// buildDispatcher selects the alert sink: a rate-limited webhook when one is
// configured, otherwise the log dispatcher.
func buildDispatcher(cfg *config.Config, log *logger.Logger) detector.AlertDispatcher {
	var sink detector.AlertDispatcher
	if cfg.Alerting.WebhookURL != "" {
		sink = alerting.NewWebhookDispatcher(cfg.Alerting.WebhookURL, cfg.Alerting.Timeout)
	} else {
		sink = alerting.NewLogDispatcher(log)
	}
	return alerting.NewThrottled(sink, cfg.Alerting.MaxPerMinute, log)
}
