package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"courtcal/config"
	"courtcal/cron"
	"courtcal/database"
	"courtcal/database/repository"
	"courtcal/database/repository/memory"
	"courtcal/handlers"
	"courtcal/middleware"
	"courtcal/routes"
	"courtcal/services/availability"
	"courtcal/services/booking"
	"courtcal/services/deadline"
	"courtcal/services/events"
	"courtcal/services/resource"
	"courtcal/services/scheduling"
	"courtcal/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const serviceName = "courtcal"

type blockStore interface {
	availability.Repository
	scheduling.BlockSource
}

type bookingStore interface {
	booking.Repository
	scheduling.BookingSource
}

// stores is the persistence the services run on, Mongo or in-process.
type stores struct {
	blocks    blockStore
	bookings  bookingStore
	resources resource.Repository
	deadlines deadline.Repository
	events    cron.EventStore
}

func openStores(ctx context.Context, logger *zap.Logger) stores {
	if config.AppConfig.Store == "memory" {
		logger.Warn("Using the in-memory store; data is lost on restart")
		m := memory.NewStore()
		return stores{blocks: m, bookings: m, resources: m, deadlines: m, events: m}
	}

	db, err := database.InitDB(logger)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to connect to MongoDB: %v", err)
	}
	repos := repository.NewMongo(db)
	if err := repos.EnsureIndexes(ctx); err != nil {
		logger.Sugar().Fatalf("main: failed to create indexes: %v", err)
	}
	return stores{
		blocks:    repos.Availability,
		bookings:  repos.Bookings,
		resources: repos.Resources,
		deadlines: repos.Deadlines,
		events:    repos.Events,
	}
}

func loadHolidays(logger *zap.Logger) deadline.HolidaySet {
	cfg := config.AppConfig
	configured, err := deadline.ParseHolidaySet(cfg.Holidays)
	if err != nil {
		logger.Sugar().Fatalf("main: invalid HOLIDAYS: %v", err)
	}
	if !cfg.FederalHolidays {
		return configured
	}
	year := time.Now().Year()
	return deadline.FederalHolidaySet(year-1, year+5, cfg.Location()).Merge(configured)
}

func main() {
	config.LoadConfig()
	utils.InitializeLogger()
	logger := utils.GetLogger()
	defer logger.Sync()

	cfg := config.AppConfig
	loc := cfg.Location()
	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	shutdownTracing, err := utils.InitTracing(rootCtx, serviceName)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize tracing: %v", err)
	}

	st := openStores(rootCtx, logger)

	var cache *redis.Client
	if c, err := utils.InitCache(); err != nil {
		logger.Warn("Redis unavailable; slot cache, idempotency keys and the task queue are disabled", zap.Error(err))
	} else {
		cache = c
	}

	// Event sink. asynq and the reminder queue need Redis; kafka and log do not.
	var (
		publisher   events.Publisher = events.LogPublisher{Logger: logger}
		reminders   deadline.ReminderScheduler
		relay       events.Publisher
		queueClient *asynq.Client
	)
	if cache != nil {
		queueClient = asynq.NewClient(utils.QueueRedisOpt())
		asynqPub := events.NewAsynqPublisher(queueClient, logger)
		reminders = asynqPub
		if cfg.EventSink == "asynq" {
			publisher = asynqPub
		}
	}
	var kafkaPub *events.KafkaPublisher
	if cfg.EventSink == "kafka" {
		kafkaPub = events.NewKafkaPublisher(events.SplitBrokers(cfg.KafkaBrokers), cfg.KafkaTopic)
		publisher = kafkaPub
		relay = kafkaPub
	}
	logger.Info("Event sink ready", zap.String("sink", cfg.EventSink), zap.Bool("reminders", reminders != nil))

	// Scheduling core.
	registry := &scheduling.Registry{
		Blocks:   st.blocks,
		Bookings: st.bookings,
		Expander: scheduling.NewExpander(cfg.MaxOccurrences, loc),
		Policy:   scheduling.Policy{TentativeBlocking: cfg.TentativeBlocking},
		Logger:   logger,
	}
	detector := &scheduling.Detector{Registry: registry, Bookings: st.bookings, Logger: logger}
	var slotCache scheduling.SlotCache
	if cache != nil {
		slotCache = scheduling.NewRedisSlotCache(cache, cfg.SlotCacheTTL)
	}
	finder := &scheduling.SlotFinder{Registry: registry, Detector: detector, Location: loc, Cache: slotCache, Logger: logger}

	// services.
	availabilityService, err := availability.NewDefaultAvailabilityService(st.blocks, st.resources, detector, finder, logger)
	if err != nil {
		logger.Sugar().Fatalf("main: %v", err)
	}
	availabilityService.DefaultHours = cfg.DefaultHours()
	availabilityService.Location = loc
	availabilityService.SlotCache = slotCache
	availabilityService.Publisher = publisher

	orchestrator, err := booking.NewOrchestrator(st.bookings, st.resources, detector, publisher, logger)
	if err != nil {
		logger.Sugar().Fatalf("main: %v", err)
	}
	orchestrator.MaxAttempts = cfg.MaxReserveAttempts
	orchestrator.Location = loc
	orchestrator.SlotCache = slotCache
	if cache != nil {
		idem := booking.NewRedisIdempotencyStore(cache)
		idem.TTL = cfg.IdempotencyTTL
		orchestrator.Idempotency = idem
	}

	resourceService, err := resource.NewDefaultResourceService(st.resources, logger)
	if err != nil {
		logger.Sugar().Fatalf("main: %v", err)
	}
	if n, err := resourceService.SeedResources(rootCtx, cfg.Resources); err != nil {
		logger.Sugar().Fatalf("main: failed to seed resources: %v", err)
	} else if n > 0 {
		logger.Info("Seeded resources from config", zap.Int("count", n))
	}

	deadlineService, err := deadline.NewDefaultDeadlineService(st.deadlines, loadHolidays(logger), publisher, reminders, loc, logger)
	if err != nil {
		logger.Sugar().Fatalf("main: %v", err)
	}
	deadlineService.ReminderHour = cfg.ReminderHour

	// Background worker: persists queued events, fires reminders, runs the daily sweep.
	stopWorker := func() {}
	if queueClient != nil {
		worker := &cron.Worker{Events: st.events, Deadlines: st.deadlines, Sweeper: deadlineService, Relay: relay, Logger: logger}
		if stopFn, err := cron.Start(utils.QueueRedisOpt(), worker, cfg.SweepCron, loc); err != nil {
			logger.Error("Task worker not running", zap.Error(err))
		} else {
			stopWorker = stopFn
		}
	}

	utils.StartHealthMonitor(rootCtx, 30*time.Second, cache, database.MongoClient)

	// Create the Gin router.
	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	if err := router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		logger.Sugar().Fatalf("main: invalid TRUSTED_PROXIES: %v", err)
	}
	router.Use(utils.ErrorHandler())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.NewRateLimiter(cfg.MaxRequestsPerMin).Middleware())

	handlerBundle := handlers.NewHandlerBundle(handlers.Services{
		Availability: availabilityService,
		Bookings:     orchestrator,
		Resources:    resourceService,
		Deadlines:    deadlineService,
		Location:     loc,
	})
	routes.RegisterRoutes(router, handlerBundle)

	// Start the HTTP server.
	srv := &http.Server{
		Addr:    "0.0.0.0:" + cfg.AppPort,
		Handler: otelhttp.NewHandler(router, serviceName),
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")
	stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Errorf("main: server forced to shutdown: %v", err)
	}
	stopWorker()
	if queueClient != nil {
		if err := queueClient.Close(); err != nil {
			logger.Warn("Failed to close task queue client", zap.Error(err))
		}
	}
	if kafkaPub != nil {
		if err := kafkaPub.Close(); err != nil {
			logger.Warn("Failed to close Kafka writer", zap.Error(err))
		}
	}
	if cache != nil {
		_ = cache.Close()
	}
	if err := database.CloseDB(ctx); err != nil {
		logger.Warn("Failed to disconnect MongoDB", zap.Error(err))
	}
	if err := shutdownTracing(ctx); err != nil {
		logger.Warn("Failed to flush traces", zap.Error(err))
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
