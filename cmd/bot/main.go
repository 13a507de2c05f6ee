package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"github.com/robfig/cron/v3"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"github.com/darknesspwnsu/tppc-faqbot-sub002/internal/command"
	"github.com/darknesspwnsu/tppc-faqbot-sub002/internal/config"
	"github.com/darknesspwnsu/tppc-faqbot-sub002/internal/constants"
	"github.com/darknesspwnsu/tppc-faqbot-sub002/internal/feeds"
	fxmodules "github.com/darknesspwnsu/tppc-faqbot-sub002/internal/fx"
	"github.com/darknesspwnsu/tppc-faqbot-sub002/internal/marketpoll"
	"github.com/darknesspwnsu/tppc-faqbot-sub002/internal/middleware"
	"github.com/darknesspwnsu/tppc-faqbot-sub002/internal/server"
)

func main() {
	fx.New(
		fxmodules.Module,
		fx.Invoke(runBot),
		fx.Invoke(runScheduler),
		fx.Invoke(runAdminServer),
	).Run()
}

func runBot(
	lc fx.Lifecycle,
	session *discordgo.Session,
	router *command.Router,
	db *sql.DB,
	logger zerolog.Logger,
) {
	router.Register(session)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := session.Open(); err != nil {
				return fmt.Errorf("open discord session: %w", err)
			}
			logger.Info().Msg("discord session open")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := session.Close(); err != nil {
				logger.Warn().Err(err).Msg("error closing discord session")
			}
			if err := db.Close(); err != nil {
				logger.Warn().Err(err).Msg("error closing database connection")
			}
			logger.Info().Msg("bot stopped gracefully")
			return nil
		},
	})
}

func runScheduler(
	lc fx.Lifecycle,
	engine *marketpoll.Engine,
	feedsClient *feeds.Client,
	logger zerolog.Logger,
) {
	c := cron.New()

	_, err := c.AddFunc(fmt.Sprintf("@every %s", constants.SchedulerTick), func() {
		ctx, cancel := context.WithTimeout(context.Background(), constants.TickTimeout)
		defer cancel()
		engine.Tick(ctx)
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to schedule marketpoll tick")
	}

	_, err = c.AddFunc(fmt.Sprintf("@every %s", constants.FeedsRefreshEvery), func() {
		ctx, cancel := context.WithTimeout(context.Background(), constants.ExternalAPITimeout)
		defer cancel()
		feedsClient.Refresh(ctx)
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to schedule feeds refresh")
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			c.Start()
			logger.Info().Msg("scheduler started")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			stopCtx := c.Stop()
			select {
			case <-stopCtx.Done():
			case <-ctx.Done():
			}
			logger.Info().Msg("scheduler stopped")
			return nil
		},
	})
}

func runAdminServer(
	lc fx.Lifecycle,
	admin *server.AdminServer,
	cfg *config.Config,
	logger zerolog.Logger,
) {
	mux := http.NewServeMux()
	admin.Routes(mux)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	})

	handler := middleware.RequestID(logger)(c.Handler(mux))
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.AdminPort),
		Handler: handler,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				logger.Info().Str("addr", srv.Addr).Msg("admin server starting")
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Fatal().Err(err).Msg("admin server failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("admin server shutdown failed")
				return err
			}
			logger.Info().Msg("admin server stopped gracefully")
			return nil
		},
	})
}
