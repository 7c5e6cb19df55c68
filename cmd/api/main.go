package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rentcars/internal/api"
	"rentcars/internal/bot"
	"rentcars/internal/config"
	"rentcars/internal/database"
	"rentcars/internal/database/postgres"
	"rentcars/internal/domain"
	"rentcars/internal/events"
	"rentcars/internal/google"
	"rentcars/internal/kafka"
	"rentcars/internal/logging"
	"rentcars/internal/metrics"
	"rentcars/internal/models"
	"rentcars/internal/notify"
	"rentcars/internal/repository"
	"rentcars/internal/service"
	"rentcars/internal/worker"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, sqliteDB, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	redisClient := initRedis(ctx, cfg, logger)
	if redisClient != nil {
		defer repository.Close(redisClient)
	}

	cache := initCache(cfg, redisClient, logger)
	bus := events.NewEventBus()
	tgBot := initTelegram(cfg, bus, logger)

	if producer := initKafka(cfg, bus, logger); producer != nil {
		defer producer.Close()
	}

	var syncWorker domain.SyncWorker
	if w := initSyncWorker(ctx, cfg, store, redisClient, logger); w != nil {
		go w.Start(ctx)
		syncWorker = w
	}

	if sqliteDB != nil {
		go database.NewBackupService(sqliteDB, cfg.Backup, logger).Start(ctx)
	}

	carService := service.NewCarService(store, cache, bus, logging.Component(logger, "car_service"))
	reservationService := service.NewReservationService(store, cache, bus, syncWorker, logging.Component(logger, "reservation_service"))

	if err := seedCars(ctx, carService, logger); err != nil {
		return err
	}

	if tgBot != nil {
		go bot.NewBot(bot.NewBotWrapper(tgBot), carService, reservationService,
			cfg.Telegram.AdminChatIDs, logger).Start(ctx)
	}

	startMetrics(ctx, cfg, logger)

	grpcServer := api.NewGRPCServer(cfg.API, reservationService, carService, logger)
	httpServer := api.NewHTTPServer(cfg.API, reservationService, carService, store, logger)

	return startServers(ctx, grpcServer, httpServer, cfg, logger)
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, baseLogger, closer, nil
}

// openStore returns the configured repository. The second result is set only for SQLite.
func openStore(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (domain.Repository, *database.DB, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		storage, err := postgres.New(ctx, cfg.Database.Postgres.ConnString(), logger)
		if err != nil {
			logger.Error().Err(err).Msg("init postgres")
			return nil, nil, err
		}
		return storage, nil, nil
	default:
		db, err := database.NewDB(cfg.Database.Path, logger)
		if err != nil {
			logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
			return nil, nil, err
		}
		return db, db, nil
	}
}

func seedCars(ctx context.Context, cars *service.CarService, logger *zerolog.Logger) error {
	carsPath := os.Getenv("CARS_PATH")
	if carsPath == "" {
		carsPath = "configs/cars.yaml"
	}
	data, err := os.ReadFile(carsPath)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Info().Str("cars_path", carsPath).Msg("no seed inventory file")
		return nil
	}
	if err != nil {
		logger.Error().Err(err).Str("cars_path", carsPath).Msg("read cars")
		return err
	}

	var carsConfig struct {
		Cars []*models.Car `yaml:"cars"`
	}
	if err := yaml.Unmarshal(data, &carsConfig); err != nil {
		logger.Error().Err(err).Str("cars_path", carsPath).Msg("parse cars")
		return err
	}

	if _, err := cars.SeedCars(ctx, carsConfig.Cars); err != nil {
		return fmt.Errorf("seed cars: %w", err)
	}
	return nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	client := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, client); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = repository.Close(client)
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return client
}

func initCache(cfg *config.Config, redisClient *redis.Client, logger *zerolog.Logger) domain.CarCache {
	ttl := time.Duration(cfg.Cache.CarsTTL) * time.Second
	memory := repository.NewMemoryCarCache(ttl)
	if redisClient == nil {
		return memory
	}
	return repository.NewFailoverCarCache(repository.NewRedisCarCache(redisClient, ttl), memory, logger)
}

func initTelegram(cfg *config.Config, bus *events.EventBus, logger *zerolog.Logger) *tgbotapi.BotAPI {
	if cfg.Telegram.BotToken == "" {
		return nil
	}

	tg, err := notify.NewBot(cfg.Telegram.BotToken, cfg.Telegram.Debug)
	if err != nil {
		logger.Warn().Err(err).Msg("telegram init failed, continuing without notifications")
		return nil
	}
	notify.NewTelegramNotifier(tg, cfg.Telegram.AdminChatIDs, logger).Register(bus)
	logger.Info().Int("chats", len(cfg.Telegram.AdminChatIDs)).Msg("telegram notifications enabled")
	return tg
}

func initKafka(cfg *config.Config, bus *events.EventBus, logger *zerolog.Logger) *kafka.Producer {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil
	}

	producer := kafka.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	kafka.NewForwarder(producer, logger).Register(bus)
	logger.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("kafka forwarding enabled")
	return producer
}

func initSyncWorker(
	ctx context.Context,
	cfg *config.Config,
	store domain.SyncTaskStore,
	redisClient *redis.Client,
	logger *zerolog.Logger,
) *worker.SyncWorker {
	if cfg.Google.ReservationsSpreadsheetID == "" {
		return nil
	}

	sheets, err := google.NewSheetsService(ctx, cfg.Google.CredentialsFile, cfg.Google.ReservationsSpreadsheetID)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without sheets")
		return nil
	}
	if err := sheets.WarmUpCache(ctx); err != nil {
		logger.Warn().Err(err).Msg("google sheets cache warm-up failed")
	}
	logger.Info().Msg("google sheets connected")

	pollInterval, err := time.ParseDuration(cfg.Worker.PollInterval)
	if err != nil {
		logger.Warn().Err(err).Str("poll_interval", cfg.Worker.PollInterval).Msg("invalid worker poll interval, using default")
		pollInterval = 0
	}

	return worker.NewSyncWorker(store, sheets, redisClient, worker.RetryPolicy{MaxRetries: cfg.Worker.MaxRetries}, pollInterval, logger)
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	metrics.Register()
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}
	go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
}

func startServers(
	ctx context.Context,
	grpcServer *api.GRPCServer,
	httpServer *api.HTTPServer,
	cfg *config.Config,
	logger *zerolog.Logger,
) error {
	if cfg.API.GRPC.Enabled {
		go func() {
			if err := grpcServer.ListenAndServe(); err != nil {
				logger.Error().Err(err).Msg("grpc server stopped")
			}
		}()
	}

	if cfg.API.HTTP.Enabled {
		go func() {
			if err := httpServer.Start(); err != nil {
				logger.Error().Err(err).Msg("http server stopped")
			}
		}()
	}

	logger.Info().
		Bool("grpc", cfg.API.GRPC.Enabled).Int("grpc_port", cfg.API.GRPC.Port).
		Bool("http", cfg.API.HTTP.Enabled).Int("http_port", cfg.API.HTTP.Port).
		Msg("API server started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	grpcServer.Shutdown(shutdownCtx)
	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
