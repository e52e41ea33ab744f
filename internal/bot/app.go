// Package bot wires the Telegram surface: commands, callbacks, the
// rewrite fallback, and the withdrawal conversation handlers.
package bot

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	tele "gopkg.in/telebot.v4"

	"github.com/rajeshboy669/linxbot/core/bootstrap"
	coretelegram "github.com/rajeshboy669/linxbot/core/telegram"
	"github.com/rajeshboy669/linxbot/core/telegram/middleware"
	"github.com/rajeshboy669/linxbot/core/telegram/router"
	"github.com/rajeshboy669/linxbot/core/telegram/state"
	"github.com/rajeshboy669/linxbot/internal/health"
	"github.com/rajeshboy669/linxbot/internal/linxapi"
	"github.com/rajeshboy669/linxbot/internal/rewrite"
	"github.com/rajeshboy669/linxbot/internal/store"
	"github.com/rajeshboy669/linxbot/internal/withdraw"
)

// App holds every dependency constructed once at startup; nothing is
// reached through package-level globals.
type App struct {
	cfg      *Config
	db       *sqlx.DB
	users    *store.Users
	api      *linxapi.Client
	rewriter *rewrite.Rewriter
	sessions state.Manager
	flow     *withdraw.Flow
	registry *coretelegram.Registry
	health   *health.Server
}

// New bootstraps infrastructure (logger, database, migrations) and
// builds the application object graph.
func New(cfg *Config) (*App, error) {
	res, err := bootstrap.Run(bootstrap.Options{
		Config:   &cfg.Core,
		Database: cfg.Database,
	})
	if err != nil {
		return nil, err
	}

	users := store.NewUsers(res.DB)
	api := linxapi.New(linxapi.Options{
		APIURL:     cfg.Linx.APIURL,
		BalanceURL: cfg.Linx.BalanceURL,
		PayoutURL:  cfg.Linx.PayoutURL,
		Timeout:    time.Duration(cfg.Linx.TimeoutSeconds) * time.Second,
	})
	sessions := state.NewMemoryManager()

	app := &App{
		cfg:      cfg,
		db:       res.DB,
		users:    users,
		api:      api,
		rewriter: rewrite.New(api),
		sessions: sessions,
		flow:     withdraw.NewFlow(sessions, api, users),
		registry: coretelegram.NewRegistry(),
		health:   health.New(cfg.Health.Listen),
	}
	app.registerHandlers()
	return app, nil
}

// TelegramRunOptions assembles the bot runtime for the core runner.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	routes := router.CommandRoutes(a.registry, router.CommandRouteOptions{
		AdminID: a.cfg.Core.Telegram.AdminID,
	})
	routes = append(routes, router.CallbackRoute(a.registry, router.CallbackOptions{}))
	routes = append(routes, router.TextRoutes(a.sessions, a.registry, router.TextOptions{})...)
	routes = append(routes, coretelegram.Route{
		Endpoint: tele.OnPhoto,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(a.handlePhoto)),
	})

	return coretelegram.RunOptions{
		Config:      &a.cfg.Core,
		Registry:    a.registry,
		Middlewares: coretelegram.DefaultMiddlewares(&a.cfg.Core, nil),
		Routes:      routes,
		OnStart: func(ctx context.Context, rt coretelegram.Runtime) error {
			a.health.Start()
			return nil
		},
		OnStop: func(ctx context.Context, rt coretelegram.Runtime) error {
			stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			_ = a.health.Shutdown(stopCtx)
			return a.db.Close()
		},
	}, nil
}
