package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"task-tracker/internal/api"
	"task-tracker/internal/auth"
	"task-tracker/internal/bot"
	"task-tracker/internal/config"
	"task-tracker/internal/repository"
	"task-tracker/internal/service"
)

const reportTimeout = 30 * time.Second

func serveCmd(configPath *string) *cobra.Command {
	var withoutBot bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and, when TELEGRAM_TOKEN is set, the Telegram bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			if withoutBot {
				cfg.TelegramToken = ""
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().BoolVar(&withoutBot, "no-bot", false, "do not start the Telegram bot even if TELEGRAM_TOKEN is set")

	return cmd
}

func serve(parent context.Context, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	gin.SetMode(gin.ReleaseMode)

	db, err := repository.NewDB(cfg.DatabaseDriver, cfg.DatabaseURL, cfg.DBLogLevel)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	userRepo := repository.NewUserRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	taskRepo := repository.NewTaskRepository(db)

	categorySvc := service.NewCategoryService(categoryRepo)
	taskSvc := service.NewTaskService(taskRepo, categoryRepo)
	reminderSvc := service.NewReminderService(taskRepo)

	authSvc := auth.NewService(userRepo, auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL), cfg.DefaultCategories)
	server := api.NewServer(authSvc, taskSvc, categorySvc)

	botDone := make(chan error, 1)
	if cfg.TelegramToken != "" {
		telegramBot, err := bot.New(cfg.TelegramToken, userRepo, categorySvc, taskSvc, reminderSvc, cfg.DefaultCategories)
		if err != nil {
			return fmt.Errorf("bot: %w", err)
		}

		scheduler := service.NewSchedulerService(time.UTC)
		if err := scheduleReports(scheduler, cfg, telegramBot.SendDailyReports); err != nil {
			return fmt.Errorf("schedule reports: %w", err)
		}
		scheduler.Start()
		defer scheduler.Stop()

		go func() {
			botDone <- telegramBot.Start(ctx)
		}()
		log.Println("[info] telegram bot started")
	} else {
		log.Println("[info] TELEGRAM_TOKEN not set, bot disabled")
	}

	log.Printf("[info] task tracker listening on %s", cfg.HTTPAddr)
	if err := server.Run(ctx, cfg.HTTPAddr); err != nil {
		return fmt.Errorf("http server: %w", err)
	}

	stop()
	if cfg.TelegramToken != "" {
		select {
		case err := <-botDone:
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("bot stopped with error: %v", err)
			}
		case <-time.After(5 * time.Second):
			log.Println("[info] bot still finishing its long poll, not waiting")
		}
	}
	log.Println("[info] shutdown complete")
	return nil
}

// scheduleReports registers the summary job: once a day at REPORT_TIME when
// it is set, otherwise every REPORT_INTERVAL_HOURS. Zero interval disables it.
func scheduleReports(scheduler *service.SchedulerService, cfg config.Config, job service.Job) error {
	switch {
	case cfg.ReportTime != "":
		_, err := scheduler.ScheduleDaily("daily reports", cfg.ReportTime, reportTimeout, job)
		return err
	case cfg.ReportInterval > 0:
		_, err := scheduler.ScheduleInterval("periodic reports", cfg.ReportInterval, reportTimeout, job)
		return err
	default:
		log.Println("[info] report schedule disabled")
		return nil
	}
}
