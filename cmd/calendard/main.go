package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"campcal/internal/app/calendar"
	"campcal/internal/app/commands"
	availabilityapp "campcal/internal/app/handlers/availability"
	"campcal/internal/app/handlers/reservations"
	"campcal/internal/app/middleware"
	appoutbox "campcal/internal/app/outbox"
	"campcal/internal/app/policies"
	"campcal/internal/app/queries"
	"campcal/internal/app/quote"
	"campcal/internal/app/resolver"
	"campcal/internal/domain/pricing"
	"campcal/internal/domain/reservation"
	"campcal/internal/domain/shared/money"
	"campcal/internal/infra/broker/kafka"
	"campcal/internal/infra/config"
	"campcal/internal/infra/datalayer"
	mongostore "campcal/internal/infra/db/mongo"
	ginserver "campcal/internal/infra/http/gin"
	"campcal/internal/infra/inbox"
	"campcal/internal/infra/obs"
	infraoutbox "campcal/internal/infra/outbox"
	"campcal/internal/infra/session"
	"campcal/internal/infra/storage/memory"
)

// reservationChangesTopic carries the data layer's reservation updates.
const reservationChangesTopic = "datalayer.reservation.events.v1"

// dataLayer is every collaborator port the calendar needs.
type dataLayer interface {
	policies.AvailabilityPort
	policies.OverlapPort
	policies.QuotePort
	policies.InventoryPort
	policies.ReservationPort
	policies.HoldPort
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := getenv("APP_ENV", "dev")
	logger := obs.NewLogger(env)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer app.close(logger)

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, app.health, app.handlers)
	app.startBackground(ctx, cfg, logger)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "campground_id", cfg.CampgroundID, "data_api", cfg.UsesDataAPI())
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

type application struct {
	handlers ginserver.Handlers
	health   obs.HealthHandlers
	sessions *session.Registry
	worker   *infraoutbox.Worker
	producer *kafka.Producer
	consumer *kafka.Consumer
	mongo    *mongostore.Client
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (*application, error) {
	app := &application{health: obs.HealthHandlers{Checks: map[string]func(context.Context) error{}}}

	data, err := buildDataLayer(cfg, logger)
	if err != nil {
		return nil, err
	}

	var (
		idemStore   middleware.IdempotencyStore
		box         appoutbox.Outbox
		workerStore infraoutbox.Store
		dedupe      kafka.Deduper
	)
	publishing := len(cfg.KafkaBrokers) > 0
	if cfg.MongoURI != "" {
		app.mongo, err = mongostore.New(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		app.health.Checks["mongo"] = app.mongo.Ping
		if idemStore, err = mongostore.NewIdempotencyStore(ctx, app.mongo.DB, cfg.IdempotencyTTL); err != nil {
			return nil, err
		}
		if publishing {
			mongoBox, err := infraoutbox.NewMongoStore(ctx, app.mongo.DB)
			if err != nil {
				return nil, err
			}
			box, workerStore = mongoBox, mongoBox
		}
		inboxStore, err := inbox.NewStore(ctx, app.mongo.DB, cfg.KafkaGroupID, 7*24*time.Hour)
		if err != nil {
			return nil, err
		}
		dedupe = inboxStore
	} else {
		idemStore = memory.NewIdempotencyStore(cfg.IdempotencyTTL)
	}
	if box == nil {
		// Without a publisher nothing drains the outbox, so it keeps no rows.
		capacity := 0
		if publishing {
			capacity = memory.DefaultOutboxCapacity
		}
		memBox := memory.NewOutbox(capacity)
		box, workerStore = memBox, memBox
	}

	inventory := session.NewInventoryCache(data, cfg.InventoryTTL)
	app.sessions = session.NewRegistry(cfg.SessionTTL, inventory)
	if cg, ok := data.(*memory.Campground); ok {
		cg.OnChange(func(reservation.ID) { app.sessions.Invalidate(cg.ID) })
	}

	encoder := appoutbox.JSONEventEncoder{IDGenerator: uuid.NewString}
	commandBus := commands.NewInMemoryBus()
	reservations.Handlers{
		Move:  &reservations.MoveReservationHandler{Reservations: data, Outbox: box, Encoder: encoder},
		Hold:  &reservations.CreateHoldHandler{Holds: data, Outbox: box, Encoder: encoder},
		Split: &reservations.SplitReservationHandler{Reservations: data, Outbox: box, Encoder: encoder},
	}.Register(commandBus)

	queryBus := queries.NewInMemoryBus()
	availabilityapp.Register(queryBus, &availabilityapp.GetGridHandler{Inventory: inventory})

	commandsWithMiddleware := middleware.ChainCommands(
		commandBus,
		middleware.Logging(logger),
		middleware.Validation(middleware.SelfValidator{}),
		middleware.Authorization(middleware.CapabilityAuthorizer{}),
		middleware.Idempotency(idemStore, nil),
		middleware.OutboxFlush(box),
	)
	queriesWithMiddleware := middleware.ChainQueries(queryBus, middleware.QueryValidation(middleware.SelfValidator{}))

	deps := calendar.Deps{
		Inventory:  inventory,
		Resolver:   &resolver.Resolver{Availability: data, Overlap: data, Logger: logger},
		Quotes:     &quote.Engine{Quotes: data, Logger: logger},
		Commands:   commandsWithMiddleware,
		Queries:    queriesWithMiddleware,
		Outbox:     box,
		Encoder:    encoder,
		Logger:     logger,
		NewKey:     uuid.NewString,
		Invalidate: app.sessions.Invalidate,
	}

	app.handlers = ginserver.Handlers{
		Calendar: ginserver.CalendarHandler{
			Sessions:     app.sessions,
			NewEngine:    func(c calendar.Config) *calendar.Engine { return calendar.New(c, deps) },
			CampgroundID: cfg.CampgroundID,
			WindowDays:   cfg.Calendar.WindowDays,
			HoldMinutes:  cfg.Calendar.HoldMinutes,
			Logger:       logger,
		},
	}

	if publishing {
		app.producer, err = kafka.NewProducer(cfg.KafkaBrokers, nil)
		if err != nil {
			return nil, err
		}
		app.worker = &infraoutbox.Worker{
			Store:       workerStore,
			Producer:    app.producer,
			Interval:    cfg.OutboxPollInterval,
			TopicPrefix: cfg.KafkaTopicPrefix,
			Backoff:     cfg.RetryBackoff,
			Logger:      logger,
		}
		refresh := &kafka.InventoryRefresh{Inbox: dedupe, Targets: app.sessions, Logger: logger}
		app.consumer, err = kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, nil, refresh, logger)
		if err != nil {
			return nil, err
		}
	}
	return app, nil
}

func buildDataLayer(cfg config.Config, logger *slog.Logger) (dataLayer, error) {
	if cfg.UsesDataAPI() {
		return &datalayer.Client{
			BaseURL: cfg.DataAPIURL,
			HTTP:    &http.Client{Timeout: cfg.DataAPITimeout},
			Logger:  logger,
			Headers: map[string]string{"X-Service": "campcal"},
		}, nil
	}

	nightly, err := money.New(cfg.Calendar.NightlyCents, cfg.Calendar.Currency)
	if err != nil {
		return nil, err
	}
	weekend, err := money.New(cfg.Calendar.WeekendCents, cfg.Calendar.Currency)
	if err != nil {
		return nil, err
	}
	cg := memory.NewCampground(cfg.CampgroundID, pricing.RateCard{
		Nightly:          nightly,
		WeekendSurcharge: weekend,
		Deposit:          pricing.DepositRule(cfg.Calendar.DepositRule),
	})
	for _, name := range cfg.Calendar.Sites {
		cg.AddSite(reservation.Site{ID: reservation.SiteID(name), Name: name})
	}
	if path := getenv("CALENDAR_FIXTURES", ""); path != "" {
		if err := loadFixtures(path, cg, logger); err != nil {
			logger.Warn("calendar fixtures load failed", "error", err, "path", path)
		}
	}
	logger.Info("using in-process data layer", "campground_id", cg.ID, "sites", len(cfg.Calendar.Sites))
	return cg, nil
}

func (a *application) startBackground(ctx context.Context, cfg config.Config, logger *slog.Logger) {
	if a.worker != nil {
		go func() {
			if err := a.worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("outbox worker stopped", "error", err)
			}
		}()
	}
	if a.consumer != nil {
		topic := cfg.KafkaTopicPrefix + reservationChangesTopic
		go func() {
			if err := a.consumer.Run(ctx, []string{topic}); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("reservation consumer stopped", "error", err, "topic", topic)
			}
		}()
	}
}

func (a *application) close(logger *slog.Logger) {
	if a.consumer != nil {
		if err := a.consumer.Close(); err != nil {
			logger.Warn("kafka consumer close failed", "error", err)
		}
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			logger.Warn("kafka producer close failed", "error", err)
		}
	}
	if a.mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.mongo.Close(ctx); err != nil {
			logger.Warn("mongo disconnect failed", "error", err)
		}
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
