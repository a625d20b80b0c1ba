package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"taskflow/internal/bot"
	"taskflow/internal/service"
	"taskflow/internal/web"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and, when TELEGRAM_TOKEN is set, the Telegram bot",
	Long: `Start the Taskflow servers.

The HTTP API always runs. The Telegram bot starts when TELEGRAM_TOKEN is
set, and periodic summaries are sent to TELEGRAM_CHAT_ID when it is set too.

Examples:
  taskflow serve
  taskflow serve --addr 127.0.0.1:9000`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "HTTP listen address (overrides HTTP_ADDR)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctrl, cfg, closeDB, err := openBoard(ctx)
	if err != nil {
		return err
	}
	defer closeDB()

	addr := cfg.HTTPAddr
	if serveAddr != "" {
		addr = serveAddr
	}

	gin.SetMode(gin.ReleaseMode)
	g, ctx := errgroup.WithContext(ctx)

	var telegramBot *bot.Bot
	if cfg.BotEnabled() {
		telegramBot, err = bot.New(cfg.TelegramToken, ctrl, service.NewSummaryService(ctrl), cfg.TelegramChatID)
		if err != nil {
			return err
		}

		if cfg.TelegramChatID != 0 {
			scheduler := service.NewSchedulerService(time.Local)
			id, err := scheduler.ScheduleReport(cfg.ReportAt, cfg.ReportInterval, func() {
				jobCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
				defer cancel()
				if err := telegramBot.SendReport(jobCtx, cfg.TelegramChatID); err != nil && !errors.Is(err, context.Canceled) {
					log.Printf("report: %v", err)
				}
			})
			if err != nil {
				return err
			}
			scheduler.Start()
			defer scheduler.Stop()
			log.Printf("[info] next report at %s", scheduler.Next(id).Format(time.RFC3339))
		}
	}

	g.Go(func() error {
		return web.NewServer(ctrl).Run(ctx, addr)
	})
	if telegramBot != nil {
		g.Go(func() error {
			return telegramBot.Start(ctx)
		})
	}

	log.Println("Taskflow started.")
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Println("Shutdown complete.")
	return nil
}
