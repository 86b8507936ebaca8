package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"

	"originality_sync/internal/app"
	"originality_sync/internal/domain/alert"
	"originality_sync/internal/infra/antiplagiat"
	"originality_sync/internal/infra/config"
	idb "originality_sync/internal/infra/database"
	"originality_sync/internal/infra/content"
	"originality_sync/internal/infra/logger"
	"originality_sync/internal/infra/telegram"
)

// application holds the wired services shared by all commands.
type application struct {
	cfg       *config.AppConfig
	db        *sql.DB
	bot       *telebot.Bot // nil when TELEGRAM_TOKEN is empty
	notifier  alert.Notifier
	documents *app.DocumentService
	admin     *app.AdminService
	jobs      []app.Job
	log       *logrus.Entry
}

// newApplication connects to the database and wires every service. The bot
// only polls for updates when poll is true; otherwise it is used to send alerts.
func newApplication(ctx context.Context, cfg *config.AppConfig, poll bool) (*application, error) {
	mainLogger := logger.Component("main")

	db, err := idb.ConnectWithRetry(ctx, cfg.DatabaseURL, mainLogger)
	if err != nil {
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}
	mainLogger.Info("Database connection established successfully.")

	a := &application{cfg: cfg, db: db, notifier: alert.Nop{}, log: mainLogger}

	if cfg.TelegramToken != "" {
		bot, err := telebot.NewBot(telebot.Settings{
			Token:   cfg.TelegramToken,
			Poller:  &telebot.LongPoller{Timeout: 10 * time.Second},
			Offline: !poll,
			OnError: func(err error, c telebot.Context) {
				entry := logger.Component("telebot").WithError(err)
				if c != nil && c.Sender() != nil && c.Chat() != nil {
					entry = entry.WithFields(logrus.Fields{"sender_id": c.Sender().ID, "chat_id": c.Chat().ID})
				}
				entry.Error("Telegram handler error")
			},
		})
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("could not create Telegram bot: %w", err)
		}
		a.bot = bot
		a.notifier = telegram.NewAdminNotifier(telegram.NewTelebotAdapter(bot), cfg.AdminTelegramID)
	} else {
		mainLogger.Warn("TELEGRAM_TOKEN is not set, admin alerts and commands are disabled")
	}

	creds := cfg.Credentials()
	if !creds.Complete() {
		mainLogger.Warn("Originality service credentials are incomplete, jobs will not run until they are configured")
	}

	docRepo := idb.NewPostgresDocumentRepository(db)
	actionRepo := idb.NewPostgresActionLogRepository(db)
	lmsRepo := idb.NewPostgresLMSRepository(db)
	contentSource := content.NewRegistry(content.NewFileSource(cfg.FileStorageRoot), lmsRepo)

	client := antiplagiat.NewRateLimitedClient(
		antiplagiat.NewClient(creds, cfg.RemoteTimeout, logger.Component("antiplagiat")),
		cfg.RemoteRateLimit, 1,
	)

	leases := app.NewLeaseRegistry(cfg.RefreshLeaseTTL)
	reconciler := app.NewReconciler(docRepo, actionRepo, client, lmsRepo, a.notifier, logger.Component("reconciler"))

	a.jobs = []app.Job{
		app.NewIngestionJob(docRepo, actionRepo, lmsRepo, lmsRepo, contentSource, client, app.IngestionOptions{
			BatchSize:    cfg.UploadBatchSize,
			MinWordCount: cfg.MinWordCount,
			Credentials:  creds,
		}, logger.Component(app.JobUploadAndCheck)),
		app.NewReconciliationJob(docRepo, reconciler, leases, creds, cfg.CheckBatchSize, logger.Component(app.JobControlCheckStatus)),
		app.NewRetentionJob(actionRepo, cfg.ActionLogRetentionMonths, logger.Component(app.JobClearActionLog)),
	}
	a.documents = app.NewDocumentService(docRepo, actionRepo, reconciler, client, leases, creds, logger.Component("documents"))
	a.admin = app.NewAdminService(client, creds, a.documents, a.jobs, cfg.AdminTelegramID)
	return a, nil
}

func (a *application) Close() {
	if err := a.db.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close database connection")
	}
}

// cronSpecs maps each job onto its schedule.
func (a *application) cronSpecs() map[string]string {
	return map[string]string{
		app.JobUploadAndCheck:     a.cfg.CronSpecUploadAndCheck,
		app.JobControlCheckStatus: a.cfg.CronSpecControlCheck,
		app.JobClearActionLog:     a.cfg.CronSpecClearActionLog,
	}
}
