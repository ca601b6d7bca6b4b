package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	cancelBookingHandler "github.com/vberezn/schedulebot/internal/api/handlers/cancel_booking"
	getAvailableSlotsHandler "github.com/vberezn/schedulebot/internal/api/handlers/get_available_slots"
	getBookingHandler "github.com/vberezn/schedulebot/internal/api/handlers/get_booking"
	listBookingsHandler "github.com/vberezn/schedulebot/internal/api/handlers/list_bookings"
	sendMessageHandler "github.com/vberezn/schedulebot/internal/api/handlers/send_message"
	"github.com/vberezn/schedulebot/internal/api/middleware"
	"github.com/vberezn/schedulebot/internal/calendar"
	"github.com/vberezn/schedulebot/internal/config"
	"github.com/vberezn/schedulebot/internal/domain"
	"github.com/vberezn/schedulebot/internal/engine"
	"github.com/vberezn/schedulebot/internal/guard"
	"github.com/vberezn/schedulebot/internal/infra/storage/bookings"
	"github.com/vberezn/schedulebot/internal/infra/storage/conversations"
	"github.com/vberezn/schedulebot/internal/infra/storage/rules"
	"github.com/vberezn/schedulebot/internal/llm"
	"github.com/vberezn/schedulebot/internal/notify"
	bookingsService "github.com/vberezn/schedulebot/internal/service/bookings"
	"github.com/vberezn/schedulebot/internal/transport/telegram"
	cancelBookingUC "github.com/vberezn/schedulebot/internal/usecase/cancel_booking"
	createBookingUC "github.com/vberezn/schedulebot/internal/usecase/create_booking"
	getAvailableSlotsUC "github.com/vberezn/schedulebot/internal/usecase/get_available_slots"
	"github.com/vberezn/schedulebot/pkg/logger"
	"github.com/vberezn/schedulebot/pkg/metrics"
	"github.com/vberezn/schedulebot/pkg/txmanager"
)

func main() {
	// Загружаем конфигурацию
	cfg, err := config.Load("config.toml")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Инициализируем логгер
	log, err := logger.New(cfg.Logs.File, cfg.Logs.Level)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	log.Info("Starting schedulebot...")

	ownerLoc, err := time.LoadLocation(cfg.Service.OwnerTimezone)
	if err != nil {
		log.Fatal("Invalid owner timezone %q: %v", cfg.Service.OwnerTimezone, err)
	}

	// Инициализируем метрики (если включены)
	var engineMetrics engine.Metrics = noopMetrics{}
	var metricsCollector *metrics.Metrics
	if cfg.Metrics.Enabled {
		metricsCollector = metrics.New(cfg.Metrics.ServiceName)
		engineMetrics = metricsCollector
		log.Info("Metrics enabled at %s", cfg.Metrics.Path)
	}

	// Подключаемся к базе данных
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to connect to database: %v", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)

	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database: %v", err)
	}
	log.Info("Successfully connected to database (host=%s, port=%d, db=%s)",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)

	// Репозитории и транзакционный менеджер
	bookingRepository := bookings.NewRepository(db)
	conversationRepository := conversations.NewRepository(db)
	ruleRepository := rules.NewRepository(db)
	txMgr := txmanager.NewTransactionManager(db)

	// Календари: book для записи, watch только для занятости
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cal, err := buildCalendar(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize calendar: %v", err)
	}

	// Use cases
	getAvailableSlotsUseCase := getAvailableSlotsUC.NewUseCase(ruleRepository, bookingRepository, cal, log)
	createBookingUseCase := createBookingUC.NewUseCase(bookingRepository, cal, txMgr, log)
	cancelBookingUseCase := cancelBookingUC.NewUseCase(bookingRepository, cal, log)

	bookingSvc := bookingsService.NewService(bookingRepository, log)

	// Guard и модель
	messageGuard := guard.New(guard.NewSlidingWindowLimiter(
		domain.RateLimitMessages, domain.RateLimitWindow, cfg.Guard.MaxSenders))

	converser := llm.NewAnthropicClient(
		cfg.Anthropic.APIKey,
		cfg.Anthropic.Model,
		time.Duration(cfg.Anthropic.Timeout)*time.Second,
		log,
	)
	log.Info("Anthropic client initialized (model=%s)", cfg.Anthropic.Model)

	// Движок диалогов
	ownerIDs := map[string]string{}
	if cfg.Telegram.Enabled && cfg.Telegram.OwnerChatID != 0 {
		ownerIDs[telegram.ChannelName] = telegram.SenderID(cfg.Telegram.OwnerChatID)
	}

	eng := engine.New(
		engine.Config{
			OwnerName:     cfg.Service.OwnerName,
			OwnerIDs:      ownerIDs,
			BookingLinks:  cfg.Service.BookingLinks,
			OwnerLocation: ownerLoc,
			Slots: engine.SlotParams{
				DurationMinutes: cfg.Availability.DurationMinutes,
				BufferMinutes:   cfg.Availability.BufferMinutes,
				MinNoticeHours:  cfg.Availability.MinNoticeHours,
				MaxDaysAhead:    cfg.Availability.MaxDaysAhead,
			},
		},
		conversationRepository,
		ruleRepository,
		getAvailableSlotsUseCase,
		createBookingUseCase,
		messageGuard,
		converser,
		engineMetrics,
		log,
	)

	// Telegram-транспорт и уведомления владельца
	if cfg.Telegram.Enabled {
		bot, err := telegram.New(telegram.Config{
			Token:       cfg.Telegram.Token,
			OwnerChatID: cfg.Telegram.OwnerChatID,
		}, eng, log)
		if err != nil {
			log.Fatal("Failed to initialize telegram bot: %v", err)
		}

		eng.SetNotifier(notify.New(bot, ownerLoc, log))
		go bot.Run(ctx)

		if cfg.Reminders.Enabled {
			reminderLoop := notify.NewReminderLoop(
				bookingRepository,
				notify.New(bot, ownerLoc, log),
				map[string]notify.ChannelSender{telegram.ChannelName: bot},
				time.Duration(cfg.Reminders.IntervalMinutes)*time.Minute,
				&engine.RealTimeProvider{},
				log,
			)
			go reminderLoop.Run(ctx)
		}
	}

	// Handlers
	sendMessage := sendMessageHandler.NewHandler(eng, log)
	getAvailableSlots := getAvailableSlotsHandler.NewHandler(getAvailableSlotsUseCase, ownerLoc, log)
	getBooking := getBookingHandler.NewHandler(bookingSvc, log)
	listBookings := listBookingsHandler.NewHandler(bookingSvc, log)
	cancelBooking := cancelBookingHandler.NewHandler(cancelBookingUseCase, log)

	// Роутер
	r := mux.NewRouter()
	r.Use(middleware.Logging(log))

	if cfg.Metrics.Enabled {
		r.Use(middleware.Metrics(metricsCollector))
		r.Handle(cfg.Metrics.Path, promhttp.Handler()).Methods(http.MethodGet)
		log.Info("Prometheus metrics endpoint exposed at %s", cfg.Metrics.Path)
	}

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()

	// Диалог с ботом через HTTP (альтернатива Telegram)
	api.HandleFunc("/messages", sendMessage.Handle).Methods(http.MethodPost)

	// Доступные слоты
	api.HandleFunc("/slots", getAvailableSlots.Handle).Methods(http.MethodGet)

	// Гостевая отмена по токену из подтверждения
	api.HandleFunc("/cancel", cancelBooking.HandleByToken).Methods(http.MethodPost)

	// Владельческий API бронирований
	api.HandleFunc("/bookings", listBookings.Handle).Methods(http.MethodGet)
	api.HandleFunc("/bookings/{bookingId}", getBooking.Handle).Methods(http.MethodGet)
	api.HandleFunc("/bookings/{bookingId}", cancelBooking.Handle).Methods(http.MethodDelete)

	// HTTP сервер
	addr := fmt.Sprintf(":%d", cfg.Server.HTTPPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		log.Info("Starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown: %v", err)
	}

	log.Info("Server stopped gracefully")
}

// buildCalendar собирает мультикалендарь по конфигурации
func buildCalendar(ctx context.Context, cfg *config.Config, log calendar.Logger) (*calendar.Multi, error) {
	if cfg.Calendar.Provider == "static" {
		log.Warn("Calendar: using in-memory provider, bookings will not reach a real calendar")
		return calendar.NewMulti(calendar.NewStatic("static"), nil, log), nil
	}

	book, err := calendar.NewGoogle(ctx, googleConfig(cfg.Calendar.Book))
	if err != nil {
		return nil, fmt.Errorf("book calendar: %w", err)
	}

	watch := make([]calendar.Provider, 0, len(cfg.Calendar.Watch))
	for _, w := range cfg.Calendar.Watch {
		p, err := calendar.NewGoogle(ctx, googleConfig(w))
		if err != nil {
			return nil, fmt.Errorf("watch calendar %s: %w", w.DisplayName, err)
		}
		watch = append(watch, p)
	}

	return calendar.NewMulti(book, watch, log), nil
}

func googleConfig(c config.CalendarAccountConfig) calendar.GoogleConfig {
	return calendar.GoogleConfig{
		CalendarID:      c.CalendarID,
		DisplayName:     c.DisplayName,
		CredentialsFile: c.CredentialsFile,
		TokenFile:       c.TokenFile,
	}
}

type noopMetrics struct{}

func (noopMetrics) IncMessage(string, string) {}
func (noopMetrics) IncRejection(string)       {}
func (noopMetrics) IncToolExecution(string)   {}
func (noopMetrics) IncBooking()               {}
func (noopMetrics) IncLostRace()              {}
