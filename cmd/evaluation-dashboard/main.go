package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	// Application
	applicationPort "github.com/dreschagin/evaluation-dashboard/internal/application/port"
	"github.com/dreschagin/evaluation-dashboard/internal/application/usecase"

	// Domain
	"github.com/dreschagin/evaluation-dashboard/internal/domain/service"

	// Infrastructure
	redisCache "github.com/dreschagin/evaluation-dashboard/internal/infrastructure/cache/redis"
	natsInfra "github.com/dreschagin/evaluation-dashboard/internal/infrastructure/messaging/nats"
	wsInfra "github.com/dreschagin/evaluation-dashboard/internal/infrastructure/notification/websocket"
	"github.com/dreschagin/evaluation-dashboard/internal/infrastructure/observability/cloudwatch"
	"github.com/dreschagin/evaluation-dashboard/internal/infrastructure/observability/metrics"
	dynamodbRepo "github.com/dreschagin/evaluation-dashboard/internal/infrastructure/persistence/dynamodb"
	"github.com/dreschagin/evaluation-dashboard/internal/infrastructure/persistence/sqldb"
	"github.com/dreschagin/evaluation-dashboard/internal/infrastructure/render"
	s3storage "github.com/dreschagin/evaluation-dashboard/internal/infrastructure/storage/s3"

	// Interfaces
	httpInterface "github.com/dreschagin/evaluation-dashboard/internal/interfaces/http"
	"github.com/dreschagin/evaluation-dashboard/internal/interfaces/http/handler"
	"github.com/dreschagin/evaluation-dashboard/internal/interfaces/http/middleware"
	"github.com/dreschagin/evaluation-dashboard/internal/interfaces/messaging"
	"github.com/dreschagin/evaluation-dashboard/internal/refresher"

	// Shared
	"github.com/dreschagin/evaluation-dashboard/pkg/config"
	"github.com/dreschagin/evaluation-dashboard/pkg/logger"
)

func main() {
	startedAt := time.Now()

	// 1. Загружаем конфигурацию
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Инициализируем logger
	log := logger.New(os.Getenv("LOG_LEVEL"))
	log.Info("Starting Evaluation Dashboard", "db_driver", cfg.Database.Driver)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Подключаемся к БД (схема применяется при открытии)
	db, err := sqldb.Open(ctx, cfg.Database.Driver, cfg.Database.DSN())
	if err != nil {
		log.Error("Failed to open database", err)
		os.Exit(1)
	}
	defer db.Close()

	if cfg.Database.Driver == sqldb.DriverPostgres {
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
		db.SetConnMaxIdleTime(cfg.Database.ConnMaxIdleTime)
	}
	log.Info("Database connected successfully")

	// 4. Dependency Injection - Infrastructure Layer

	// Repository
	evaluationRepository := sqldb.NewEvaluationRepository(db, cfg.Database.Driver)

	// WebSocket Hub
	hub := wsInfra.NewHub(log)

	// Prometheus
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	appMetrics := metrics.New(registry, hub.ClientCount)

	// Redis cache сеток
	var gridCache applicationPort.Cache
	var cacheImpl *redisCache.RedisCache
	if cfg.Redis.Enabled {
		cacheImpl, err = redisCache.NewRedisCache(
			cfg.Redis.Host,
			cfg.Redis.Port,
			cfg.Redis.Password,
			cfg.Redis.DB,
			cfg.Redis.TTL,
			cfg.Redis.PoolSize,
			cfg.Redis.MinIdleConns,
			cfg.Redis.DialTimeout,
			cfg.Redis.ReadTimeout,
			cfg.Redis.WriteTimeout,
		)
		if err != nil {
			log.Warn("Failed to connect to Redis, continuing without grid cache", "error", err.Error())
			cacheImpl = nil
		} else {
			gridCache = cacheImpl
			defer cacheImpl.Close()
			log.Info("Redis grid cache initialized", "ttl", cfg.Redis.TTL.String())
		}
	} else {
		log.Warn("Redis grid cache is disabled")
	}

	// 4.5. CloudWatch Integration

	var metricsPublisher applicationPort.MetricsPublisher
	var metricsPublisherImpl *cloudwatch.MetricsPublisher
	if cfg.CloudWatch.MetricsEnabled {
		metricsPublisherImpl, err = cloudwatch.NewMetricsPublisher(ctx,
			cloudwatch.MetricsPublisherConfig{
				Namespace:         cfg.CloudWatch.MetricsNamespace,
				Region:            cfg.CloudWatch.Region,
				Endpoint:          cfg.CloudWatch.Endpoint,
				AccessKeyID:       cfg.CloudWatch.AccessKeyID,
				SecretAccessKey:   cfg.CloudWatch.SecretAccessKey,
				DefaultDimensions: cfg.CloudWatch.MetricsDimensions,
				BufferSize:        cfg.CloudWatch.MetricsBufferSize,
				FlushInterval:     cfg.CloudWatch.MetricsFlushInterval,
				StorageResolution: cfg.CloudWatch.MetricsStorageResolution,
			}, log)
		if err != nil {
			log.Error("Failed to initialize CloudWatch metrics publisher", err)
			os.Exit(1)
		}
		metricsPublisher = metricsPublisherImpl
		log.Info("CloudWatch metrics publisher initialized")
	} else {
		log.Warn("CloudWatch metrics publishing is disabled")
	}

	var logsPublisherImpl *cloudwatch.LogsPublisher
	if cfg.CloudWatch.LogsEnabled {
		logsPublisherImpl, err = cloudwatch.NewLogsPublisher(ctx,
			cloudwatch.LogsPublisherConfig{
				LogGroupName:    cfg.CloudWatch.LogGroupName,
				LogStreamName:   cfg.CloudWatch.LogStreamName,
				Region:          cfg.CloudWatch.Region,
				Endpoint:        cfg.CloudWatch.Endpoint,
				AccessKeyID:     cfg.CloudWatch.AccessKeyID,
				SecretAccessKey: cfg.CloudWatch.SecretAccessKey,
				BufferSize:      cfg.CloudWatch.LogsBufferSize,
				FlushInterval:   cfg.CloudWatch.LogsFlushInterval,
				AutoCreate:      true,
				Service:         "evaluation-dashboard",
			})
		if err != nil {
			log.Error("Failed to initialize CloudWatch logs publisher", err)
			os.Exit(1)
		}
		log.SetLogPublisher(logsPublisherImpl)
		log.Info("CloudWatch logs publisher initialized")
	} else {
		log.Warn("CloudWatch logs publishing is disabled")
	}

	// 4.6. NATS
	var eventPublisher applicationPort.EventPublisher
	var natsSubscriber *natsInfra.NATSSubscriber
	if cfg.NATS.Enabled {
		nc, connErr := natsInfra.Connect(cfg.NATS.URL, "evaluation-dashboard", log)
		if connErr != nil {
			log.Warn("Failed to connect to NATS, continuing without messaging", "error", connErr.Error())
		} else {
			defer nc.Close()
			publisherImpl, pubErr := natsInfra.NewNATSPublisherFromConn(nc, cfg.NATS.JetStream, log)
			if pubErr != nil {
				log.Warn("Failed to initialize NATS publisher", "error", pubErr.Error())
			} else {
				eventPublisher = publisherImpl
				log.Info("NATS event publisher initialized", "url", cfg.NATS.URL, "jetstream", cfg.NATS.JetStream)
			}
			if cfg.NATS.SubscribeIngest {
				natsSubscriber = natsInfra.NewNATSSubscriber(nc, cfg.NATS.QueueGroup, log)
			}
		}
	} else {
		log.Warn("NATS messaging is disabled")
	}

	// Snapshot archive
	var snapshotStorage applicationPort.SnapshotStorage
	if cfg.S3.Enabled {
		storageImpl, initErr := s3storage.NewSnapshotStorage(ctx, s3storage.Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			UsePathStyle:    cfg.S3.UsePathStyle,
			URLMode:         s3storage.URLMode(cfg.S3.URLMode),
			PresignedTTL:    cfg.S3.PresignedTTL,
		})
		if initErr != nil {
			log.Error("Failed to initialize snapshot storage", initErr)
			os.Exit(1)
		}
		snapshotStorage = storageImpl
		log.Info("S3 snapshot storage initialized", "bucket", cfg.S3.Bucket)
	} else {
		log.Warn("S3 storage is disabled, snapshot archiving will fail")
	}

	var snapshotMetadataRepo applicationPort.SnapshotMetadataRepository
	if cfg.Dynamo.Enabled {
		repoImpl, initErr := dynamodbRepo.NewSnapshotMetadataRepository(ctx, dynamodbRepo.Config{
			TableName:       cfg.Dynamo.TableSnapshotMetadata,
			Region:          cfg.Dynamo.Region,
			Endpoint:        cfg.Dynamo.Endpoint,
			AccessKeyID:     cfg.Dynamo.AccessKeyID,
			SecretAccessKey: cfg.Dynamo.SecretAccessKey,
			StrongReads:     cfg.Dynamo.StrongReads,
		})
		if initErr != nil {
			log.Error("Failed to initialize snapshot metadata repository", initErr)
			os.Exit(1)
		}
		snapshotMetadataRepo = repoImpl
		log.Info("Snapshot metadata repository initialized", "provider", "dynamodb")
	} else {
		log.Warn("DynamoDB snapshot metadata index is disabled, using S3 listing mode")
	}

	// 5. Dependency Injection - Domain Layer

	gridBuilder := service.NewGridBuilder(cfg.Grid.TimeLayout, cfg.Grid.CanonicalRows...)

	// 6. Dependency Injection - Application Layer (Use Cases)

	buildGridUC := usecase.NewBuildEvaluationGridUseCase(
		evaluationRepository,
		gridBuilder,
		gridCache, // nil если Redis выключен
		appMetrics,
		usecase.BuildEvaluationGridConfig{
			DefaultLimit: cfg.Grid.HistoryLimit,
			MaxLimit:     cfg.Grid.MaxLimit,
		},
		log,
	)

	renderHeatmapUC := usecase.NewRenderHeatmapUseCase(
		buildGridUC,
		map[applicationPort.RenderFormat]applicationPort.HeatmapRenderer{
			applicationPort.FormatPNG:  render.NewPNGRenderer(),
			applicationPort.FormatSVG:  render.NewSVGRenderer(),
			applicationPort.FormatHTML: render.NewHTMLRenderer(),
		},
		appMetrics,
		log,
	)

	ingestUC := usecase.NewIngestEvaluationUseCase(
		evaluationRepository,
		buildGridUC,
		hub,
		eventPublisher,   // nil если NATS выключен
		metricsPublisher, // nil если CloudWatch выключен
		appMetrics,
		usecase.IngestEvaluationConfig{
			UpdatesSubject: cfg.NATS.UpdatesSubject,
			Canonical:      true,
		},
		log,
	)

	archiveSnapshotUC := usecase.NewArchiveHeatmapSnapshotUseCase(
		renderHeatmapUC,
		snapshotStorage,
		snapshotMetadataRepo,
		usecase.ArchiveHeatmapSnapshotConfig{
			KeyPrefix:           cfg.S3.KeyPrefix,
			MetadataTTLDays:     cfg.Snapshot.MetadataTTLDays,
			MetadataWriteStrict: cfg.Snapshot.MetadataWriteStrict,
			Canonical:           true,
		},
		log,
	)
	listSnapshotsUC := usecase.NewListHeatmapSnapshotsUseCase(
		snapshotStorage,
		snapshotMetadataRepo,
		usecase.ListHeatmapSnapshotsConfig{
			KeyPrefix:           cfg.S3.KeyPrefix,
			FallbackToS3OnError: cfg.Snapshot.MetadataFallbackToS3,
		},
		log,
	)

	// 7. Refresher
	var refresherRunner *refresher.Runner
	if cfg.Refresher.Enabled {
		scopes, parseErr := refresher.ParseScopes(cfg.Refresher.Scopes)
		if parseErr != nil {
			log.Error("Invalid REFRESHER_SCOPES", parseErr)
			os.Exit(1)
		}
		refresherService := refresher.NewService(buildGridUC, evaluationRepository, hub, scopes, true)
		refresherRunner = refresher.NewRunner(refresherService, log, cfg.Refresher.Interval, cfg.Refresher.Timeout)
	} else {
		log.Warn("Grid refresher is disabled")
	}

	// 8. Dependency Injection - Interfaces Layer (HTTP Handlers)

	authConfig := middleware.AuthConfig{
		Enabled:     cfg.Security.AuthEnabled,
		BearerToken: cfg.Security.AuthToken,
		IngestToken: cfg.Security.IngestToken,
	}

	readiness := map[string]handler.ReadinessCheck{
		"database": evaluationRepository.Ping,
	}
	if cacheImpl != nil {
		readiness["redis"] = cacheImpl.Ping
	}
	routerOptions := httpInterface.RouterOptions{
		Metrics:        appMetrics,
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		WriteLimiter:   middleware.NewPerMinuteRateLimiter(cfg.Snapshot.RateLimitPerMinute),
	}
	if refresherRunner != nil {
		readiness["refresher"] = func(context.Context) error { return refresherRunner.Ready() }
		routerOptions.RefresherHandler = refresher.NewHandler(refresherRunner)
	}

	router := httpInterface.NewRouter(
		handler.NewDashboardHandler(renderHeatmapUC, true, log),
		handler.NewWebSocketHandler(hub, cfg.Security.AllowedOrigins, authConfig, log),
		handler.NewEvaluationAPIHandler(buildGridUC, renderHeatmapUC, ingestUC, true, cfg.Snapshot.MaxIngestBytes, log),
		handler.NewSnapshotAPIHandler(archiveSnapshotUC, listSnapshotsUC, cfg.Snapshot.MaxIngestBytes, log),
		handler.NewAuthAPIHandler(authConfig, log),
		handler.NewHealthHandler(readiness),
		routerOptions,
		cfg.Security,
		log,
	)

	// 9. Запускаем фоновые процессы

	go hub.Run(ctx)
	log.Info("WebSocket hub started")

	if natsSubscriber != nil {
		consumer := messaging.NewEvaluationConsumer(ingestUC, log)
		if err := natsSubscriber.Subscribe(ctx, cfg.NATS.IngestSubject, consumer.Handle); err != nil {
			log.Error("Failed to subscribe to evaluation events", err, "subject", cfg.NATS.IngestSubject)
		}
	}

	if refresherRunner != nil {
		go refresherRunner.Start(ctx)
		log.Info("Grid refresher started", "interval", cfg.Refresher.Interval.String())
	}

	// 10. Настраиваем HTTP сервер

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info("HTTP server starting", "port", cfg.Server.Port)
		log.Info("Dashboard available at http://localhost:" + cfg.Server.Port)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server failed", err)
			os.Exit(1)
		}
	}()

	// 11. Ожидаем сигнал для graceful shutdown

	<-sigChan
	log.Info("Shutdown signal received, starting graceful shutdown...")

	// Останавливаем hub, refresher и подписки
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", err)
	}

	if natsSubscriber != nil {
		if err := natsSubscriber.Close(); err != nil {
			log.Warn("Failed to close NATS subscriber", "error", err.Error())
		}
	}

	if metricsPublisherImpl != nil {
		log.Info("Flushing CloudWatch metrics buffer...")
		if err := metricsPublisherImpl.Close(shutdownCtx); err != nil {
			log.Error("Failed to flush CloudWatch metrics", err)
		}
	}

	if logsPublisherImpl != nil {
		log.Info("Flushing CloudWatch logs buffer...")
		log.SetLogPublisher(nil)
		if err := logsPublisherImpl.Close(shutdownCtx); err != nil {
			log.Error("Failed to flush CloudWatch logs", err)
		}
	}

	log.Info("Server stopped gracefully", "uptime", time.Since(startedAt).Round(time.Second).String())
}
