package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormpg "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/shifterhq/shifter/internal"
	"github.com/shifterhq/shifter/internal/audit"
	auditpg "github.com/shifterhq/shifter/internal/audit/postgres"
	"github.com/shifterhq/shifter/internal/auth"
	"github.com/shifterhq/shifter/internal/bot"
	"github.com/shifterhq/shifter/internal/core/events"
	"github.com/shifterhq/shifter/internal/news"
	newspg "github.com/shifterhq/shifter/internal/news/postgres"
	"github.com/shifterhq/shifter/internal/note"
	notepg "github.com/shifterhq/shifter/internal/note/postgres"
	"github.com/shifterhq/shifter/internal/notify"
	notifypg "github.com/shifterhq/shifter/internal/notify/postgres"
	"github.com/shifterhq/shifter/internal/request"
	requestpg "github.com/shifterhq/shifter/internal/request/postgres"
	"github.com/shifterhq/shifter/internal/schedule"
	schedulepg "github.com/shifterhq/shifter/internal/schedule/postgres"
	"github.com/shifterhq/shifter/internal/store"
	storepg "github.com/shifterhq/shifter/internal/store/postgres"
	"github.com/shifterhq/shifter/internal/transport/rest"
	"github.com/shifterhq/shifter/internal/user"
	userpg "github.com/shifterhq/shifter/internal/user/postgres"
	"github.com/shifterhq/shifter/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server: the schedule API plus the telegram webhook.`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

// Core is the wired application: repositories, services and the bot,
// shared between the server and worker commands.
type Core struct {
	Config *internal.Config
	DB     *sqlx.DB
	Logger *slog.Logger
	API    *tgbotapi.BotAPI

	UserRepo     *userpg.UserRepository
	StoreRepo    *storepg.StoreRepository
	ScheduleRepo schedule.Repository
	PendingRepo  notify.PendingRepository

	Queue    *notify.Queue
	Notifier *notify.Notifier

	UserService     *user.Service
	StoreService    *store.Service
	ScheduleService *schedule.Service
	RequestService  *request.Service
	NewsService     *news.Service
	NoteService     *note.Service
	AuditService    *audit.Service
	AuthService     *auth.Service

	Bot *bot.Bot
}

func startHTTPServer() {
	core, err := buildCore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	if err := registerWebhook(core.API, core.Config); err != nil {
		core.Logger.Error("webhook registration failed", "error", err)
	}

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, core.DB.DB, rest.Handlers{
		Auth:     auth.NewHandler(core.AuthService),
		User:     user.NewHandler(core.UserService),
		Store:    store.NewHandler(core.StoreService),
		Schedule: schedule.NewHandler(core.ScheduleService),
		Request:  request.NewHandler(core.RequestService),
		News:     news.NewHandler(core.NewsService),
		Note:     note.NewHandler(core.NoteService),
		Audit:    audit.NewHandler(core.AuditService),
		Webhook:  bot.NewWebhookHandler(core.Bot, core.Config.Telegram.Token),
	}, core.Logger)

	addr := fmt.Sprintf(":%d", core.Config.Server.Port)
	core.Logger.Info("starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  core.Config.Server.ReadTimeout,
		WriteTimeout: core.Config.Server.WriteTimeout,
		IdleTimeout:  core.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		core.Logger.Info("received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			core.Logger.Error("server shutdown error", "error", err)
		}
		if err := core.DB.Close(); err != nil {
			core.Logger.Error("database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			core.Logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}

	core.Logger.Info("server stopped")
}

func buildCore() (*Core, error) {
	cfg, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.LoggerWrapper()

	db, err := initDB(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := gorm.Open(gormpg.New(gormpg.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm over pgx pool: %w", err)
	}

	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}
	transport := notify.NewTelegramTransport(api, log)

	loc := cfg.Scheduler.Location()

	userRepo := userpg.NewUserRepository(gormDB)
	storeRepo := storepg.NewStoreRepository(gormDB)
	scheduleRepo := schedulepg.NewScheduleRepository(gormDB)
	requestRepo := requestpg.NewRequestRepository(gormDB)
	pendingRepo := notifypg.NewPendingRepository(gormDB)
	newsRepo := newspg.NewNewsRepository(gormDB)
	noteRepo := notepg.NewNoteRepository(gormDB)
	auditRepo := auditpg.NewAuditRepository(gormDB)

	eventBus := events.NewEventBus(log)
	audit.NewRecorder(auditRepo, log).SubscribeAll(eventBus)

	queue := notify.NewQueue(transport, pendingRepo, log, loc,
		cfg.Scheduler.QuietStartHour, cfg.Scheduler.QuietEndHour, cfg.Scheduler.SendThrottle)
	notifier := notify.NewNotifier(queue, userRepo, storeRepo, log)

	scheduleSvc := schedule.NewService(scheduleRepo, log)
	userSvc := user.NewService(userRepo, storeRepo, notifier, scheduleSvc, eventBus, log, cfg.Security.BCryptCost)
	storeSvc := store.NewService(storeRepo, log)
	requestSvc := request.NewService(requestRepo, scheduleSvc, userRepo, storeRepo, notifier, eventBus, log)
	newsSvc := news.NewService(newsRepo, notifier, eventBus, log)
	noteSvc := note.NewService(noteRepo, log)
	auditSvc := audit.NewService(auditRepo, log)

	tokens := auth.NewJWTTokenGenerator(
		cfg.Security.AccessTokenSecret, cfg.Security.RefreshTokenSecret,
		cfg.Security.AccessTokenTTL, cfg.Security.RefreshTokenTTL)
	authSvc := auth.NewService(userRepo, tokens, log, cfg.Security.BCryptCost)

	tgBot := bot.New(transport, userSvc, requestSvc, scheduleSvc, storeSvc, newsSvc, log, loc)

	return &Core{
		Config:          cfg,
		DB:              db,
		Logger:          log,
		API:             api,
		UserRepo:        userRepo,
		StoreRepo:       storeRepo,
		ScheduleRepo:    scheduleRepo,
		PendingRepo:     pendingRepo,
		Queue:           queue,
		Notifier:        notifier,
		UserService:     userSvc,
		StoreService:    storeSvc,
		ScheduleService: scheduleSvc,
		RequestService:  requestSvc,
		NewsService:     newsSvc,
		NoteService:     noteSvc,
		AuditService:    auditSvc,
		AuthService:     authSvc,
		Bot:             tgBot,
	}, nil
}

// registerWebhook points telegram at this deployment. Skipped when no public
// URL is configured, which is the long-polling-free local setup where
// updates are injected by hand.
func registerWebhook(api *tgbotapi.BotAPI, cfg *internal.Config) error {
	if cfg.Telegram.WebhookURL == "" {
		return nil
	}

	url := fmt.Sprintf("%s/bot/%s", strings.TrimSuffix(cfg.Telegram.WebhookURL, "/"), cfg.Telegram.Token)
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return err
	}
	_, err = api.Request(wh)
	return err
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)

	// verify connection; close underlying *sql.DB on failure
	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
