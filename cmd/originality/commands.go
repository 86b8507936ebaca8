package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"sort"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"originality_sync/internal/app"
	"originality_sync/internal/infra/api"
	"originality_sync/internal/infra/config"
	idb "originality_sync/internal/infra/database"
	"originality_sync/internal/infra/logger"
	"originality_sync/internal/infra/scheduler"
	"originality_sync/internal/infra/telegram"
)

var rootCmd = &cobra.Command{
	Use:           "originality",
	Short:         "Originality checks for LMS submissions",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, runCmd, accountCmd, migrateCmd)
	migrateCmd.Flags().Int("down", 0, "roll back the given number of migrations instead of applying them")
	serveCmd.Flags().Bool("skip-migrate", false, "do not apply pending migrations on startup")
}

// loadConfig reads the configuration and initialises the global logger.
func loadConfig() (*config.AppConfig, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("could not load application configuration: %w", err)
	}
	logger.Init(cfg)
	return cfg, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// --- serve ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduler, the HTTP API and the admin bot",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		mainLogger := logger.Component("main")
		mainLogger.WithFields(logrus.Fields{
			"version":     version,
			"environment": cfg.Environment,
			"http_addr":   cfg.HTTPAddr,
		}).Info("Originality sync starting...")

		if skip, _ := cmd.Flags().GetBool("skip-migrate"); !skip {
			if err := idb.Migrate(cfg.DatabaseURL, logger.Component("migrate")); err != nil {
				return err
			}
		}

		ctx, stop := signalContext()
		defer stop()

		a, err := newApplication(ctx, cfg, true)
		if err != nil {
			return err
		}
		defer a.Close()

		jobScheduler := scheduler.NewJobScheduler(a.notifier, logger.Component("scheduler"), cfg.JobTimeout)
		specs := a.cronSpecs()
		for _, job := range a.jobs {
			if err := jobScheduler.Register(specs[job.Name()], job); err != nil {
				return err
			}
		}

		router := api.NewRouter(api.NewDocumentHandler(a.documents, logger.Component("api")), logger.Component("http"))
		server := api.NewServer(cfg.HTTPAddr, router, logger.Component("http"))

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return jobScheduler.Run(gctx) })
		g.Go(func() error { return server.Run(gctx) })

		if a.bot != nil {
			botLogger := logger.Component("telegram")
			telegram.RegisterBotCommands(a.bot, cfg.AdminTelegramID, a.admin.JobNames(), botLogger)
			telegram.RegisterAdminHandlers(gctx, a.bot, a.admin, cfg.AdminTelegramID, cfg.JobTimeout, botLogger)
			mainLogger.Info("Telegram command handlers registered.")

			g.Go(func() error {
				a.bot.Start() // blocks until Stop
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				a.bot.Stop()
				return nil
			})
		}

		mainLogger.Info("Application setup complete.")
		err = g.Wait()
		mainLogger.Info("Application shut down.")
		return err
	},
}

// --- run ---

var runCmd = &cobra.Command{
	Use:       "run <job>",
	Short:     "Run a single job once and exit",
	Long:      "Run a single job once and exit. Jobs: upload_and_check, control_check_status, clear_action_log.",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{app.JobUploadAndCheck, app.JobControlCheckStatus, app.JobClearActionLog},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, stop := signalContext()
		defer stop()

		a, err := newApplication(ctx, cfg, false)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := context.WithTimeout(ctx, cfg.JobTimeout)
		defer cancel()

		report, err := a.admin.Run(ctx, args[0])
		if err != nil {
			if errors.Is(err, app.ErrUnknownJob) {
				return fmt.Errorf("%w (available: %v)", err, a.admin.JobNames())
			}
			return err
		}
		a.log.WithFields(report.Fields()).Info("Job finished")
		printReport(cmd, report)
		return nil
	},
}

func printReport(cmd *cobra.Command, report *app.RunReport) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s finished in %s\n", report.Job, report.Duration)
	outcomes := make([]string, 0, len(report.Counts))
	for k := range report.Counts {
		outcomes = append(outcomes, k)
	}
	sort.Strings(outcomes)
	for _, k := range outcomes {
		fmt.Fprintf(out, "  %-14s %d\n", k, report.Counts[k])
	}
	if report.Deleted > 0 {
		fmt.Fprintf(out, "  %-14s %d\n", "deleted", report.Deleted)
	}
}

// --- account ---

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Test the connection to the checking service",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, stop := signalContext()
		defer stop()

		a, err := newApplication(ctx, cfg, false)
		if err != nil {
			return err
		}
		defer a.Close()

		status, err := a.admin.CheckAccount(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "plan:       %s\n", status.PlanName)
		if !status.Expiration.IsZero() {
			fmt.Fprintf(out, "expires:    %s\n", status.Expiration.Format("2006-01-02"))
		}
		fmt.Fprintf(out, "checks:     %d of %d remaining\n", status.RemainingChecks, status.TotalChecks)
		return nil
	},
}

// --- migrate ---

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		down, _ := cmd.Flags().GetInt("down")
		if down < 0 {
			return fmt.Errorf("--down must be positive")
		}
		if down > 0 {
			return idb.MigrateDown(cfg.DatabaseURL, down, logger.Component("migrate"))
		}
		return idb.Migrate(cfg.DatabaseURL, logger.Component("migrate"))
	},
}

