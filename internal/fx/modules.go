package fx

import (
	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"github.com/darknesspwnsu/tppc-faqbot-sub002/internal/command"
	"github.com/darknesspwnsu/tppc-faqbot-sub002/internal/config"
	"github.com/darknesspwnsu/tppc-faqbot-sub002/internal/database"
	"github.com/darknesspwnsu/tppc-faqbot-sub002/internal/feeds"
	"github.com/darknesspwnsu/tppc-faqbot-sub002/internal/logger"
	"github.com/darknesspwnsu/tppc-faqbot-sub002/internal/marketpoll"
	"github.com/darknesspwnsu/tppc-faqbot-sub002/internal/platform"
	"github.com/darknesspwnsu/tppc-faqbot-sub002/internal/repository"
	"github.com/darknesspwnsu/tppc-faqbot-sub002/internal/server"
)

func ProvideCatalogSource(cfg *config.Config, log zerolog.Logger) *marketpoll.CatalogSource {
	return marketpoll.NewCatalogSource(cfg.SeedPath, cfg.GenderPath, cfg.EvolutionPath, log)
}

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Provide(database.New),
	// store
	fx.Provide(fx.Annotate(repository.NewStore, fx.As(new(marketpoll.Store)))),
	// platform
	fx.Provide(fx.Annotate(platform.NewDiscordClient, fx.As(new(platform.ChatPlatform)))),
	fx.Provide(platform.NewSession),
	// core
	fx.Provide(ProvideCatalogSource),
	fx.Provide(feeds.NewClient),
	fx.Provide(newEngine),
	// surfaces
	fx.Provide(command.NewRouter),
	fx.Provide(server.NewAdminServer),
)

func newEngine(store marketpoll.Store, chat platform.ChatPlatform, catalog *marketpoll.CatalogSource, log zerolog.Logger) *marketpoll.Engine {
	return marketpoll.NewEngine(store, chat, catalog, log)
}
